package service

import (
	"context"
	"fmt"

	"github.com/fjod/storefront-checkout/domain"
)

// GuestCart returns the persistent cart of the session.
func (s *CheckoutServiceImpl) GuestCart(ctx context.Context, sessionID string) (*ResolvedCart, error) {
	lines, err := s.local.GetCart(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read guest cart: %w", err)
	}
	return newResolvedCart(lines, false), nil
}

// AddToGuestCart folds lines into the guest cart. A line matching an existing
// LineKey adds to its quantity.
func (s *CheckoutServiceImpl) AddToGuestCart(ctx context.Context, sessionID string, lines []domain.CartLine) (*ResolvedCart, error) {
	if err := checkCartLines(lines); err != nil {
		return nil, err
	}
	current, err := s.local.GetCart(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read guest cart: %w", err)
	}
	return s.saveGuestCart(ctx, sessionID, domain.MergeLines(current, lines))
}

// ReplaceGuestCart stores lines as the whole guest cart. Duplicates collapse
// into one line per LineKey.
func (s *CheckoutServiceImpl) ReplaceGuestCart(ctx context.Context, sessionID string, lines []domain.CartLine) (*ResolvedCart, error) {
	if err := checkCartLines(lines); err != nil {
		return nil, err
	}
	return s.saveGuestCart(ctx, sessionID, domain.MergeLines(nil, lines))
}

func (s *CheckoutServiceImpl) saveGuestCart(ctx context.Context, sessionID string, lines []domain.CartLine) (*ResolvedCart, error) {
	if err := s.local.SaveCart(ctx, sessionID, lines); err != nil {
		return nil, fmt.Errorf("failed to save guest cart: %w", err)
	}
	return newResolvedCart(lines, false), nil
}

func checkCartLines(lines []domain.CartLine) error {
	for _, l := range lines {
		if !l.HasProductID() || l.Quantity <= 0 {
			return ErrInvalidCartLine
		}
	}
	return nil
}
