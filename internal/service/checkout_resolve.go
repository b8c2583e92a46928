package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/internal/storage"
	"github.com/shopspring/decimal"
)

type ResolveRequest struct {
	SessionID string
	UserID    string
	BuyNow    bool
}

// ResolvedCart is the ordered set of lines a checkout pays for.
type ResolvedCart struct {
	Lines    []domain.CartLine `json:"lines"`
	Subtotal decimal.Decimal   `json:"subtotal"`
	BuyNow   bool              `json:"buyNow"`
}

func (c *ResolvedCart) Empty() bool {
	return len(c.Lines) == 0
}

func newResolvedCart(lines []domain.CartLine, buyNow bool) *ResolvedCart {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return &ResolvedCart{Lines: lines, Subtotal: domain.Subtotal(lines), BuyNow: buyNow}
}

// Resolve picks the cart source: the staged buy-now line, the server cart
// for signed-in users, or the guest cart. Read failures degrade to an empty
// cart.
func (s *CheckoutServiceImpl) Resolve(ctx context.Context, req ResolveRequest) (*ResolvedCart, error) {
	switch {
	case req.BuyNow:
		return newResolvedCart(s.buyNowLines(ctx, req.SessionID), true), nil
	case req.UserID != "":
		return newResolvedCart(s.serverCart(ctx, req.UserID), false), nil
	default:
		return newResolvedCart(s.guestCart(ctx, req.SessionID), false), nil
	}
}

func (s *CheckoutServiceImpl) buyNowLines(ctx context.Context, sessionID string) []domain.CartLine {
	var line *domain.CartLine
	err := s.session.Get(ctx, sessionID, storage.KeyBuyNow, &line)
	if errors.Is(err, storage.ErrNotFound) || line == nil {
		return nil
	}
	if err != nil {
		s.logger.WarnContext(ctx, "buy-now line unreadable", "session_id", sessionID, "error", err)
		return nil
	}
	return []domain.CartLine{*line}
}

func (s *CheckoutServiceImpl) serverCart(ctx context.Context, userID string) []domain.CartLine {
	cartCtx, cancel := context.WithTimeout(ctx, s.storefront.timeout)
	defer cancel()

	lines, err := s.storefront.api.GetCart(cartCtx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "server cart fetch failed", "user_id", userID, "error", err)
		return nil
	}
	return lines
}

func (s *CheckoutServiceImpl) guestCart(ctx context.Context, sessionID string) []domain.CartLine {
	lines, err := s.local.GetCart(ctx, sessionID)
	if err != nil {
		s.logger.WarnContext(ctx, "guest cart unreadable", "session_id", sessionID, "error", err)
		return nil
	}
	return lines
}

// StageBuyNow replaces the buy-now line for the session.
func (s *CheckoutServiceImpl) StageBuyNow(ctx context.Context, sessionID string, line domain.CartLine) error {
	if !line.HasProductID() || line.Quantity <= 0 {
		return ErrInvalidBuyNowLine
	}
	if err := s.session.Set(ctx, sessionID, storage.KeyBuyNow, line); err != nil {
		return fmt.Errorf("failed to stage buy-now line: %w", err)
	}
	return nil
}
