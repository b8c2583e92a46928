package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

const EventOrderPlaced = "OrderPlaced"

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// CheckoutAttempt is one paid-or-paying checkout, keyed by payment intent id.
type CheckoutAttempt struct {
	ID              string
	SessionID       string
	UserID          string
	PaymentIntentID string
	Status          domain.CheckoutStatus
	OrderPayload    json.RawMessage
	OrderID         *string
	Steps           domain.StepLog
	Attempts        int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OutboxEvent struct {
	ID          int
	AggregateId string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

type RepoInterface interface {
	Close() error
	RunMigrations(*Credentials) error

	CreateAttempt(ctx context.Context, attempt *CheckoutAttempt) error
	GetAttemptByIntentID(ctx context.Context, intentID string) (*CheckoutAttempt, error)
	UpdateStatus(ctx context.Context, intentID string, status domain.CheckoutStatus) error
	SetOrderPayload(ctx context.Context, intentID string, status domain.CheckoutStatus, payload []byte) error
	SetOrderCreated(ctx context.Context, intentID, orderID string) error
	SaveSteps(ctx context.Context, intentID string, steps domain.StepLog) error
	CompleteAttempt(ctx context.Context, intentID string, eventPayload []byte) error
	IncrementAttempts(ctx context.Context, intentID string) (int, error)
	GetPendingOrders(ctx context.Context, limit int) ([]*CheckoutAttempt, error)
	GetStuckAttempts(ctx context.Context, olderThan time.Duration) ([]*CheckoutAttempt, error)

	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int) error
}

var _ RepoInterface = (*Repository)(nil)

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "checkout_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}
