package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/internal/metrics"
	r "github.com/fjod/storefront-checkout/internal/repository"
	"github.com/segmentio/kafka-go"
)

// OrderCreator records an order on the storefront. The same idempotency key
// must not create a second order.
type OrderCreator interface {
	CreateOrder(ctx context.Context, idempotencyKey string, order *domain.Order) (*domain.OrderConfirmation, error)
}

type Config struct {
	Brokers      []string
	Topic        string
	Timeout      time.Duration
	EventTick    time.Duration
	RecoveryTick time.Duration
	StuckAfter   time.Duration
	MaxAttempts  int
	BatchSize    int
}

// OutboxPoller publishes outbox events to kafka and reconciles paid
// checkouts whose order was not recorded.
type OutboxPoller struct {
	timeout      time.Duration
	eventTick    time.Duration
	recoveryTick time.Duration
	stuckAfter   time.Duration
	maxAttempts  int
	batchSize    int
	repo         r.RepoInterface
	orders       OrderCreator
	writer       *kafka.Writer
	metrics      *metrics.CheckoutMetrics
	logger       *slog.Logger
}

func NewOutboxPoller(cfg Config, repo r.RepoInterface, orders OrderCreator, m *metrics.CheckoutMetrics, logger *slog.Logger) *OutboxPoller {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
	}
	if m == nil {
		m = metrics.NewCheckoutMetrics(nil)
	}
	return &OutboxPoller{
		timeout:      cfg.Timeout,
		eventTick:    cfg.EventTick,
		recoveryTick: cfg.RecoveryTick,
		stuckAfter:   cfg.StuckAfter,
		maxAttempts:  cfg.MaxAttempts,
		batchSize:    cfg.BatchSize,
		repo:         repo,
		orders:       orders,
		writer:       w,
		metrics:      m,
		logger:       logger,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.recoverStuckAttempts(ctx)
			p.reconcilePendingOrders(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to fetch outbox events", "error", err)
		return
	}

	for _, event := range events {
		if err := p.publishToKafka(ctx, event); err != nil {
			p.logger.ErrorContext(ctx, "failed to publish event", "event_id", event.ID, "error", err)
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.logger.ErrorContext(ctx, "failed to mark event as processed", "event_id", event.ID, "error", err)
		}
	}
}

// recoverStuckAttempts handles attempts that stopped in PAYMENT_CONFIRMED:
// with an order id they only miss completion, without one they become
// ORDER_PENDING for the reconciler.
func (p *OutboxPoller) recoverStuckAttempts(ctx context.Context) {
	attempts, err := p.repo.GetStuckAttempts(ctx, p.stuckAfter)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to get stuck attempts", "error", err)
		return
	}

	for _, attempt := range attempts {
		intentID := attempt.PaymentIntentID
		if attempt.OrderID == nil {
			if err := p.repo.UpdateStatus(ctx, intentID, domain.CheckoutStatusOrderPending); err != nil {
				p.logger.ErrorContext(ctx, "failed to mark attempt pending", "payment_intent_id", intentID, "error", err)
			}
			continue
		}

		order, ok := p.decodeOrder(ctx, attempt)
		if !ok {
			continue
		}
		if err := r.CompleteOrder(ctx, p.repo, order, *attempt.OrderID); err != nil {
			p.logger.ErrorContext(ctx, "failed to complete stuck attempt", "payment_intent_id", intentID, "error", err)
			continue
		}
		p.logger.InfoContext(ctx, "stuck attempt recovered", "payment_intent_id", intentID)
	}
}

// reconcilePendingOrders retries order creation for paid attempts with the
// same idempotency key. Attempts that exhaust maxAttempts go FAILED and need
// manual follow-up.
func (p *OutboxPoller) reconcilePendingOrders(ctx context.Context) {
	attempts, err := p.repo.GetPendingOrders(ctx, p.batchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to get pending orders", "error", err)
		return
	}

	for _, attempt := range attempts {
		intentID := attempt.PaymentIntentID
		if !p.stillPending(ctx, intentID) {
			continue
		}
		order, ok := p.decodeOrder(ctx, attempt)
		if !ok {
			continue
		}

		orderCtx, cancel := context.WithTimeout(ctx, p.timeout)
		confirmation, err := p.orders.CreateOrder(orderCtx, intentID, order)
		cancel()

		if err == nil {
			if err := p.repo.SetOrderCreated(ctx, intentID, confirmation.OrderID); err != nil {
				p.logger.ErrorContext(ctx, "failed to record order id", "payment_intent_id", intentID, "error", err)
			}
			if err := r.CompleteOrder(ctx, p.repo, order, confirmation.OrderID); err != nil {
				p.logger.ErrorContext(ctx, "failed to complete reconciled attempt", "payment_intent_id", intentID, "error", err)
				continue
			}
			p.metrics.Reconciled.WithLabelValues("completed").Inc()
			p.logger.InfoContext(ctx, "pending order reconciled", "payment_intent_id", intentID, "order_id", confirmation.OrderID)
			continue
		}

		n, incErr := p.repo.IncrementAttempts(ctx, intentID)
		if incErr != nil {
			p.logger.ErrorContext(ctx, "failed to count reconcile attempt", "payment_intent_id", intentID, "error", incErr)
			continue
		}
		if n < p.maxAttempts {
			p.metrics.Reconciled.WithLabelValues("retry").Inc()
			p.logger.WarnContext(ctx, "order still pending", "payment_intent_id", intentID, "attempts", n, "error", err)
			continue
		}

		if err := p.repo.UpdateStatus(ctx, intentID, domain.CheckoutStatusFailed); err != nil {
			p.logger.ErrorContext(ctx, "failed to mark attempt failed", "payment_intent_id", intentID, "error", err)
			continue
		}
		p.metrics.Reconciled.WithLabelValues("failed").Inc()
		p.logger.ErrorContext(ctx, "order reconciliation exhausted, manual follow-up needed", "payment_intent_id", intentID, "attempts", n)
	}
}

// stillPending re-reads the attempt so one completed by a late request or
// another replica since the batch was listed is not retried.
func (p *OutboxPoller) stillPending(ctx context.Context, intentID string) bool {
	current, err := p.repo.GetAttemptByIntentID(ctx, intentID)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to reload pending attempt", "payment_intent_id", intentID, "error", err)
		return false
	}
	if current.Status != domain.CheckoutStatusOrderPending {
		p.logger.DebugContext(ctx, "attempt no longer pending", "payment_intent_id", intentID, "status", current.Status)
		return false
	}
	return true
}

func (p *OutboxPoller) decodeOrder(ctx context.Context, attempt *r.CheckoutAttempt) (*domain.Order, bool) {
	var order domain.Order
	if err := json.Unmarshal(attempt.OrderPayload, &order); err != nil {
		p.logger.ErrorContext(ctx, "failed to unmarshal order payload", "payment_intent_id", attempt.PaymentIntentID, "error", err)
		return nil, false
	}
	if order.PaymentIntentID == "" {
		order.PaymentIntentID = attempt.PaymentIntentID
	}
	return &order, true
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *r.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateId), // payment intent id keeps one checkout on one partition
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}
