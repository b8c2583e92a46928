package service

import (
	"context"
	"fmt"

	"github.com/fjod/storefront-checkout/domain"
)

// MergeOnLogin folds the guest cart into the user's server cart and clears
// the guest cart once the merged cart is stored.
func (s *CheckoutServiceImpl) MergeOnLogin(ctx context.Context, sessionID, userID string) ([]domain.CartLine, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	guest, err := s.local.GetCart(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read guest cart: %w", err)
	}

	cartCtx, cancel := context.WithTimeout(ctx, s.storefront.timeout)
	defer cancel()

	server, err := s.storefront.api.GetCart(cartCtx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read server cart: %w", err)
	}
	if len(guest) == 0 {
		return server, nil
	}

	merged := domain.MergeLines(server, guest)
	if err := s.storefront.api.ReplaceCart(cartCtx, userID, merged); err != nil {
		return nil, fmt.Errorf("failed to store merged cart: %w", err)
	}

	if err := s.local.ClearCart(ctx, sessionID); err != nil {
		s.logger.WarnContext(ctx, "guest cart not cleared after merge", "session_id", sessionID, "error", err)
	}
	s.logger.InfoContext(ctx, "guest cart merged", "user_id", userID, "guest_lines", len(guest), "lines", len(merged))
	return merged, nil
}
