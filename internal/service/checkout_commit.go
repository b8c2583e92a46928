package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fjod/storefront-checkout/domain"
	r "github.com/fjod/storefront-checkout/internal/repository"
	"github.com/fjod/storefront-checkout/internal/storage"
	"github.com/fjod/storefront-checkout/internal/storefront"
	"github.com/google/uuid"
)

// ledgerTimeout bounds each checkout ledger write made while committing.
const ledgerTimeout = 5 * time.Second

// commit runs after the card payment succeeded, on a context the caller
// cannot cancel. PAYMENT_CONFIRMED with the order payload is written first.
// The order is created exactly once with the intent id as idempotency key;
// when that fails the attempt is left ORDER_PENDING for the reconciler.
// Everything after order creation is best effort and never changes what the
// customer is told.
func (s *CheckoutServiceImpl) commit(ctx context.Context, sessionID string, customer domain.Customer, addr domain.ShippingAddress, pending *PendingPayment) *domain.Outcome {
	intentID := pending.Intent.PaymentIntentID
	order := &domain.Order{
		UserID:          customer.UserID,
		Username:        customer.Username,
		Mail:            customer.Email,
		PhoneNumber:     customer.Phone,
		Products:        pending.Lines,
		ShippingAddress: addr,
		PaymentIntentID: intentID,
	}
	s.recordAttempt(ctx, sessionID, customer.UserID, order, domain.CheckoutStatusPaymentConfirmed)

	var steps domain.StepLog
	defer func() {
		err := s.ledger(ctx, func(ctx context.Context) error {
			return s.repo.SaveSteps(ctx, intentID, steps)
		})
		if err != nil {
			s.logger.WarnContext(ctx, "commit steps not recorded", "payment_intent_id", intentID, "error", err)
		}
	}()

	orderCtx, cancel := context.WithTimeout(ctx, s.storefront.timeout)
	confirmation, err := s.storefront.api.CreateOrder(orderCtx, intentID, order)
	cancel()
	if err != nil {
		s.step(&steps, domain.StepCreateOrder, err)
		s.logger.ErrorContext(ctx, "order not recorded after payment", "payment_intent_id", intentID, "error", err)
		s.recordAttempt(ctx, sessionID, customer.UserID, order, domain.CheckoutStatusOrderPending)
		s.metrics.Outcomes.WithLabelValues("order_pending").Inc()
		return &domain.Outcome{
			Notice:   domain.Notice{Level: domain.NoticeWarning, Message: domain.MsgOrderUncertain},
			Redirect: domain.HomeRoute,
		}
	}
	s.step(&steps, domain.StepCreateOrder, nil)
	err = s.ledger(ctx, func(ctx context.Context) error {
		return s.repo.SetOrderCreated(ctx, intentID, confirmation.OrderID)
	})
	if err != nil {
		s.logger.WarnContext(ctx, "order id not recorded", "payment_intent_id", intentID, "error", err)
	}

	if customer.Authenticated() {
		s.step(&steps, domain.StepClearServerCart, s.clearServerCart(ctx, customer.UserID))
	}
	s.step(&steps, domain.StepClearLocalCart, s.clearLocalCart(ctx, sessionID))

	outcome := &domain.Outcome{
		Notice:   domain.Notice{Level: domain.NoticeSuccess, Message: domain.MsgOrderPlaced},
		Redirect: domain.HomeRoute,
		OrderID:  confirmation.OrderID,
	}

	s.step(&steps, domain.StepSendMail, s.sendMail(ctx, customer, order, confirmation.OrderID))
	s.step(&steps, domain.StepPublishEvent, s.ledger(ctx, func(ctx context.Context) error {
		return r.CompleteOrder(ctx, s.repo, order, confirmation.OrderID)
	}))

	s.metrics.Outcomes.WithLabelValues("order_placed").Inc()
	return outcome
}

// recordAttempt stores the order payload under status. An attempt missing
// from the ledger is created directly in that status.
func (s *CheckoutServiceImpl) recordAttempt(ctx context.Context, sessionID, userID string, order *domain.Order, status domain.CheckoutStatus) {
	payload, err := json.Marshal(order)
	if err != nil {
		s.logger.ErrorContext(ctx, "order payload not encoded", "payment_intent_id", order.PaymentIntentID, "error", err)
		return
	}

	err = s.ledger(ctx, func(ctx context.Context) error {
		err := s.repo.SetOrderPayload(ctx, order.PaymentIntentID, status, payload)
		if !errors.Is(err, r.ErrAttemptNotFound) {
			return err
		}
		return s.repo.CreateAttempt(ctx, &r.CheckoutAttempt{
			ID:              uuid.New().String(),
			SessionID:       sessionID,
			UserID:          userID,
			PaymentIntentID: order.PaymentIntentID,
			Status:          status,
			OrderPayload:    payload,
		})
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "checkout attempt not recorded", "payment_intent_id", order.PaymentIntentID, "status", status, "error", err)
	}
}

func (s *CheckoutServiceImpl) ledger(ctx context.Context, fn func(context.Context) error) error {
	ledgerCtx, cancel := context.WithTimeout(ctx, ledgerTimeout)
	defer cancel()
	return fn(ledgerCtx)
}

func (s *CheckoutServiceImpl) clearServerCart(ctx context.Context, userID string) error {
	cartCtx, cancel := context.WithTimeout(ctx, s.storefront.timeout)
	defer cancel()

	err := s.storefront.api.ClearCart(cartCtx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "server cart not cleared", "user_id", userID, "error", err)
	}
	return err
}

func (s *CheckoutServiceImpl) clearLocalCart(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, ledgerTimeout)
	defer cancel()

	err := errors.Join(
		s.local.ClearCart(ctx, sessionID),
		s.session.Delete(ctx, sessionID, storage.KeyBuyNow),
	)
	if err != nil {
		s.logger.WarnContext(ctx, "local cart not cleared", "session_id", sessionID, "error", err)
	}
	return err
}

func (s *CheckoutServiceImpl) sendMail(ctx context.Context, customer domain.Customer, order *domain.Order, orderID string) error {
	mailCtx, cancel := context.WithTimeout(ctx, s.storefront.timeout)
	defer cancel()

	err := s.storefront.api.SendMail(mailCtx, storefront.MailRequest{
		To:              customer.Email,
		Name:            customer.FullName(),
		OrderID:         orderID,
		PaymentIntentID: order.PaymentIntentID,
		Products:        order.Products,
		Total:           domain.Subtotal(order.Products).StringFixed(2),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "order mail not sent", "order_id", orderID, "error", err)
	}
	return err
}

func (s *CheckoutServiceImpl) step(steps *domain.StepLog, step domain.CommitStep, err error) {
	state := domain.StepConfirmed
	if err != nil {
		state = domain.StepFailed
	}
	steps.Set(step, state, err)
	s.metrics.CommitSteps.WithLabelValues(string(step), string(state)).Inc()
}
