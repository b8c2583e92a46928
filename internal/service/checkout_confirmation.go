package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/internal/payment"
	"github.com/fjod/storefront-checkout/internal/storage"
)

// ConfirmationState is the payment modal of one session.
type ConfirmationState struct {
	IntentID     string `json:"intentId"`
	CardRef      string `json:"cardRef"`
	CardComplete bool   `json:"cardComplete"`
	Submitting   bool   `json:"submitting"`
}

func (c ConfirmationState) Mounted() bool {
	return c.CardRef != ""
}

// CanPay reports whether the pay button is enabled.
func (c ConfirmationState) CanPay() bool {
	return c.Mounted() && c.CardComplete && !c.Submitting
}

type SubmitRequest struct {
	SessionID string
	UserID    string
	Username  string
}

// Mount attaches a card element to the pending intent. Mounting the same
// element again is a no-op; a different element replaces it.
func (s *CheckoutServiceImpl) Mount(ctx context.Context, sessionID, cardRef string) (*ConfirmationState, error) {
	if cardRef == "" {
		return nil, ErrMissingCardRef
	}
	pending, err := s.pendingPayment(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state, err := s.confirmation(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if state.CardRef == cardRef && state.IntentID == pending.Intent.PaymentIntentID {
		return state, nil
	}

	state = &ConfirmationState{IntentID: pending.Intent.PaymentIntentID, CardRef: cardRef}
	if err := s.saveConfirmation(ctx, sessionID, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *CheckoutServiceImpl) SetCardComplete(ctx context.Context, sessionID string, complete bool) (*ConfirmationState, error) {
	state, err := s.confirmation(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !state.Mounted() {
		return nil, ErrPaymentNotReady
	}
	state.CardComplete = complete
	if err := s.saveConfirmation(ctx, sessionID, state); err != nil {
		return nil, err
	}
	return state, nil
}

// submitLockTTL bounds how long an abandoned submit blocks the session.
const submitLockTTL = 2 * time.Minute

// Submit confirms the card payment and, once it succeeded, commits the order.
// Only one submit per session runs at a time.
func (s *CheckoutServiceImpl) Submit(ctx context.Context, req SubmitRequest) (*domain.Outcome, error) {
	state, err := s.confirmation(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if !state.CanPay() {
		return nil, ErrPaymentNotReady
	}
	pending, err := s.pendingPayment(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	form, err := s.loadForm(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	locked, err := s.session.Lock(ctx, req.SessionID, storage.KeySubmitting, submitLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to lock submit: %w", err)
	}
	if !locked {
		return nil, ErrPaymentNotReady
	}

	// From here the card may be charged, so the caller going away must not
	// stop the confirmation or the ledger writes behind it.
	ctx = context.WithoutCancel(ctx)
	defer func() {
		if err := s.session.Delete(ctx, req.SessionID, storage.KeySubmitting); err != nil {
			s.logger.WarnContext(ctx, "submit lock not released", "session_id", req.SessionID, "error", err)
		}
	}()

	state.Submitting = true
	if err := s.saveConfirmation(ctx, req.SessionID, state); err != nil {
		return nil, err
	}

	customer := form.Customer(req.UserID, req.Username)
	billing := domain.BillingDetails{Name: customer.FullName(), Email: customer.Email, Phone: customer.Phone}

	payCtx, cancel := context.WithTimeout(ctx, s.payment.timeout)
	res, err := s.payment.confirmer.ConfirmCardPayment(payCtx, pending.Intent, state.CardRef, billing)
	cancel()

	if err != nil {
		s.reenable(ctx, req.SessionID, state)
		s.metrics.Outcomes.WithLabelValues("sdk_error").Inc()

		var confirmErr *payment.ConfirmError
		if errors.As(err, &confirmErr) {
			return errorOutcome(confirmErr.Message), nil
		}
		s.logger.ErrorContext(ctx, "card confirmation failed", "payment_intent_id", pending.Intent.PaymentIntentID, "error", err)
		return errorOutcome(domain.MsgConfirmFailed), nil
	}

	if res.Status != domain.PaymentStatusSucceeded {
		s.reenable(ctx, req.SessionID, state)
		s.metrics.Outcomes.WithLabelValues("not_succeeded").Inc()
		return &domain.Outcome{Notice: domain.Notice{
			Level:   domain.NoticeWarning,
			Message: domain.MsgPaymentNotDone + res.Status.String(),
		}}, nil
	}

	outcome := s.commit(ctx, req.SessionID, customer, form.Address, pending)
	if err := s.session.Delete(ctx, req.SessionID, storage.KeyPaymentIntent, storage.KeyConfirmation); err != nil {
		s.logger.WarnContext(ctx, "payment session keys not cleared", "session_id", req.SessionID, "error", err)
	}
	return outcome, nil
}

func (s *CheckoutServiceImpl) reenable(ctx context.Context, sessionID string, state *ConfirmationState) {
	state.Submitting = false
	if err := s.saveConfirmation(ctx, sessionID, state); err != nil {
		s.logger.WarnContext(ctx, "confirmation not re-enabled", "session_id", sessionID, "error", err)
	}
}

func (s *CheckoutServiceImpl) pendingPayment(ctx context.Context, sessionID string) (*PendingPayment, error) {
	var pending PendingPayment
	err := s.session.Get(ctx, sessionID, storage.KeyPaymentIntent, &pending)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoPaymentIntent
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load payment intent: %w", err)
	}
	return &pending, nil
}

func (s *CheckoutServiceImpl) confirmation(ctx context.Context, sessionID string) (*ConfirmationState, error) {
	var state ConfirmationState
	err := s.session.Get(ctx, sessionID, storage.KeyConfirmation, &state)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to load confirmation: %w", err)
	}
	return &state, nil
}

func (s *CheckoutServiceImpl) saveConfirmation(ctx context.Context, sessionID string, state *ConfirmationState) error {
	if err := s.session.Set(ctx, sessionID, storage.KeyConfirmation, state); err != nil {
		return fmt.Errorf("failed to save confirmation: %w", err)
	}
	return nil
}
