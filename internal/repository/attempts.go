package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/lib/pq"
)

const attemptColumns = `id, session_id, user_id, payment_intent_id, status, order_payload, order_id, steps, attempts, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) CreateAttempt(ctx context.Context, attempt *CheckoutAttempt) error {
	steps, err := json.Marshal(stepsOrEmpty(attempt.Steps))
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	query := `INSERT INTO checkout_attempts (id, session_id, user_id, payment_intent_id, status, order_payload, steps, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`

	_, insertErr := r.db.ExecContext(ctx, query,
		attempt.ID,
		attempt.SessionID,
		attempt.UserID,
		attempt.PaymentIntentID,
		attempt.Status,
		nullJSON(attempt.OrderPayload),
		steps)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateAttempt
		}
		return fmt.Errorf("insert checkout attempt: %w", insertErr)
	}
	return nil
}

func (r *Repository) GetAttemptByIntentID(ctx context.Context, intentID string) (*CheckoutAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM checkout_attempts WHERE payment_intent_id = $1`

	attempt, err := scanAttempt(r.db.QueryRowContext(ctx, query, intentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query checkout attempt: %w", err)
	}
	return attempt, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, intentID string, status domain.CheckoutStatus) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := transition(ctx, tx, intentID, status); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE checkout_attempts SET status = $2, updated_at = NOW() WHERE payment_intent_id = $1`,
			intentID, status)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		return nil
	})
}

func (r *Repository) SetOrderPayload(ctx context.Context, intentID string, status domain.CheckoutStatus, payload []byte) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := transition(ctx, tx, intentID, status); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE checkout_attempts SET status = $2, order_payload = $3, updated_at = NOW() WHERE payment_intent_id = $1`,
			intentID, status, nullJSON(payload))
		if err != nil {
			return fmt.Errorf("set order payload: %w", err)
		}
		return nil
	})
}

func (r *Repository) SetOrderCreated(ctx context.Context, intentID, orderID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE checkout_attempts SET order_id = $2, updated_at = NOW() WHERE payment_intent_id = $1`,
		intentID, orderID)
	if err != nil {
		return fmt.Errorf("set order id: %w", err)
	}
	return expectRow(res)
}

func (r *Repository) SaveSteps(ctx context.Context, intentID string, steps domain.StepLog) error {
	data, err := json.Marshal(stepsOrEmpty(steps))
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE checkout_attempts SET steps = $2, updated_at = NOW() WHERE payment_intent_id = $1`,
		intentID, data)
	if err != nil {
		return fmt.Errorf("save steps: %w", err)
	}
	return expectRow(res)
}

// CompleteAttempt marks the attempt completed and enqueues the OrderPlaced
// event in the same transaction. Completing twice is a no-op.
func (r *Repository) CompleteAttempt(ctx context.Context, intentID string, eventPayload []byte) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		from, err := transition(ctx, tx, intentID, domain.CheckoutStatusCompleted)
		if err != nil {
			return err
		}
		if from == domain.CheckoutStatusCompleted {
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE checkout_attempts SET status = $2, updated_at = NOW() WHERE payment_intent_id = $1`,
			intentID, domain.CheckoutStatusCompleted)
		if err != nil {
			return fmt.Errorf("complete attempt: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO outbox_events (aggregate_id, event_type, payload, created_at) VALUES ($1, $2, $3, NOW())`,
			intentID, EventOrderPlaced, eventPayload)
		if err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}
		return nil
	})
}

func (r *Repository) IncrementAttempts(ctx context.Context, intentID string) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx,
		`UPDATE checkout_attempts SET attempts = attempts + 1, updated_at = NOW() WHERE payment_intent_id = $1 RETURNING attempts`,
		intentID).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrAttemptNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	return attempts, nil
}

// GetPendingOrders lists paid attempts whose order was not recorded, oldest first.
func (r *Repository) GetPendingOrders(ctx context.Context, limit int) ([]*CheckoutAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM checkout_attempts
	          WHERE status = $1 ORDER BY updated_at LIMIT $2`
	return r.queryAttempts(ctx, query, domain.CheckoutStatusOrderPending, limit)
}

// GetStuckAttempts lists attempts left in PAYMENT_CONFIRMED for longer than olderThan.
func (r *Repository) GetStuckAttempts(ctx context.Context, olderThan time.Duration) ([]*CheckoutAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM checkout_attempts
	          WHERE status = $1 AND updated_at < $2 ORDER BY updated_at`
	return r.queryAttempts(ctx, query, domain.CheckoutStatusPaymentConfirmed, time.Now().Add(-olderThan))
}

func (r *Repository) queryAttempts(ctx context.Context, query string, args ...any) ([]*CheckoutAttempt, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query checkout attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*CheckoutAttempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkout attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return attempts, nil
}

func scanAttempt(row rowScanner) (*CheckoutAttempt, error) {
	var a CheckoutAttempt
	var payload, steps []byte
	var orderID sql.NullString

	if err := row.Scan(
		&a.ID,
		&a.SessionID,
		&a.UserID,
		&a.PaymentIntentID,
		&a.Status,
		&payload,
		&orderID,
		&steps,
		&a.Attempts,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if len(payload) > 0 {
		a.OrderPayload = json.RawMessage(payload)
	}
	if orderID.Valid {
		a.OrderID = &orderID.String
	}
	if err := json.Unmarshal(steps, &a.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}
	return &a, nil
}

// transition locks the attempt row and checks the move. Staying in the same
// status is allowed.
func transition(ctx context.Context, tx *sql.Tx, intentID string, to domain.CheckoutStatus) (domain.CheckoutStatus, error) {
	var from domain.CheckoutStatus
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM checkout_attempts WHERE payment_intent_id = $1 FOR UPDATE`,
		intentID).Scan(&from)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrAttemptNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lock checkout attempt: %w", err)
	}

	if from != to && !domain.CanTransitionTo(from, to) {
		return from, &TransitionError{From: from, To: to}
	}
	return from, nil
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func stepsOrEmpty(steps domain.StepLog) domain.StepLog {
	if steps == nil {
		return domain.StepLog{}
	}
	return steps
}

// CompleteOrder completes the attempt for order and enqueues its OrderPlaced event.
func CompleteOrder(ctx context.Context, repo RepoInterface, order *domain.Order, orderID string) error {
	payload, err := json.Marshal(domain.NewOrderPlaced(order, orderID, time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("marshal order placed event: %w", err)
	}
	return repo.CompleteAttempt(ctx, order.PaymentIntentID, payload)
}
