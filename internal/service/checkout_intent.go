package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/storefront-checkout/domain"
	r "github.com/fjod/storefront-checkout/internal/repository"
	"github.com/fjod/storefront-checkout/internal/storage"
	"github.com/fjod/storefront-checkout/internal/storefront"
	"github.com/fjod/storefront-checkout/internal/validation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type StartPaymentRequest struct {
	SessionID string
	UserID    string
	BuyNow    bool
}

type StartPaymentResult struct {
	Intent   *domain.PaymentIntentRef `json:"intent,omitempty"`
	Subtotal decimal.Decimal          `json:"subtotal"`
	Errors   validation.FieldErrors   `json:"errors,omitempty"`
	Outcome  *domain.Outcome          `json:"outcome,omitempty"`
}

// PendingPayment is what the session remembers between intent creation and
// card confirmation: the intent and the exact lines it was created for.
type PendingPayment struct {
	Intent domain.PaymentIntentRef `json:"intent"`
	Lines  []domain.CartLine       `json:"lines"`
	BuyNow bool                    `json:"buyNow"`
}

// NormalizeLines maps cart lines to payable lines, dropping lines without a
// product id.
func NormalizeLines(lines []domain.CartLine) []domain.PayableLine {
	out := make([]domain.PayableLine, 0, len(lines))
	for _, l := range lines {
		if !l.HasProductID() {
			continue
		}
		out = append(out, domain.PayableLine{
			ProductID:  l.ProductID,
			Qty:        l.Quantity,
			VariantSKU: l.VariantSKU,
		})
	}
	return out
}

// StartPayment validates the form, resolves the cart and creates the payment
// intent. Nothing is sent to the storefront while the form has errors.
func (s *CheckoutServiceImpl) StartPayment(ctx context.Context, req StartPaymentRequest) (*StartPaymentResult, error) {
	form, err := s.loadForm(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	if errs := validation.ValidateForm(*form); len(errs) > 0 {
		return &StartPaymentResult{
			Errors:  errs,
			Outcome: errorOutcome(domain.MsgValidationFailed),
		}, nil
	}

	cart, err := s.Resolve(ctx, ResolveRequest{SessionID: req.SessionID, UserID: req.UserID, BuyNow: req.BuyNow})
	if err != nil {
		return nil, err
	}
	if cart.Empty() {
		return &StartPaymentResult{
			Subtotal: cart.Subtotal,
			Outcome:  &domain.Outcome{Notice: domain.Notice{Level: domain.NoticeWarning, Message: domain.MsgCartEmpty}},
		}, nil
	}

	if req.UserID != "" {
		s.saveAddressIfAbsent(ctx, req.UserID, form.Address)
	}

	ref, err := s.Initiate(ctx, req.SessionID, req.UserID, form.Email, cart)
	if errors.Is(err, ErrNoPayableLines) {
		return &StartPaymentResult{Subtotal: cart.Subtotal, Outcome: errorOutcome(domain.MsgNoPayableLines)}, nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "payment intent failed", "session_id", req.SessionID, "error", err)
		return &StartPaymentResult{Subtotal: cart.Subtotal, Outcome: errorOutcome(domain.MsgIntentFailed)}, nil
	}

	return &StartPaymentResult{Intent: ref, Subtotal: cart.Subtotal}, nil
}

// Initiate creates a payment intent for the payable lines of the cart and
// stores it in the session.
func (s *CheckoutServiceImpl) Initiate(ctx context.Context, sessionID, userID, email string, cart *ResolvedCart) (*domain.PaymentIntentRef, error) {
	items := NormalizeLines(cart.Lines)
	if len(items) == 0 {
		return nil, ErrNoPayableLines
	}

	intentCtx, cancel := context.WithTimeout(ctx, s.storefront.timeout)
	defer cancel()

	ref, err := s.storefront.api.CreatePaymentIntent(intentCtx, storefront.CreateIntentRequest{
		Items: items,
		Email: email,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	pending := PendingPayment{Intent: *ref, Lines: cart.Lines, BuyNow: cart.BuyNow}
	if err := s.session.Set(ctx, sessionID, storage.KeyPaymentIntent, pending); err != nil {
		return nil, fmt.Errorf("failed to store payment intent: %w", err)
	}
	if err := s.session.Delete(ctx, sessionID, storage.KeyConfirmation); err != nil {
		s.logger.WarnContext(ctx, "stale confirmation not cleared", "session_id", sessionID, "error", err)
	}

	attempt := &r.CheckoutAttempt{
		ID:              uuid.New().String(),
		SessionID:       sessionID,
		UserID:          userID,
		PaymentIntentID: ref.PaymentIntentID,
		Status:          domain.CheckoutStatusIntentCreated,
	}
	if err := s.repo.CreateAttempt(ctx, attempt); err != nil && !errors.Is(err, r.ErrDuplicateAttempt) {
		s.logger.WarnContext(ctx, "checkout attempt not recorded", "payment_intent_id", ref.PaymentIntentID, "error", err)
	}

	return ref, nil
}

func (s *CheckoutServiceImpl) saveAddressIfAbsent(ctx context.Context, userID string, addr domain.ShippingAddress) {
	userCtx, cancel := context.WithTimeout(ctx, s.storefront.timeout)
	defer cancel()

	profile, err := s.storefront.api.GetUser(userCtx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "user profile fetch failed", "user_id", userID, "error", err)
		return
	}
	if profile.ShippingAddress != nil && !profile.ShippingAddress.IsZero() {
		return
	}
	if err := s.storefront.api.SaveShippingAddress(userCtx, userID, addr); err != nil {
		s.logger.WarnContext(ctx, "shipping address not saved", "user_id", userID, "error", err)
	}
}

func errorOutcome(msg string) *domain.Outcome {
	return &domain.Outcome{Notice: domain.Notice{Level: domain.NoticeError, Message: msg}}
}
