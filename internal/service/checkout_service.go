package service

import (
	"context"
	"log/slog"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/internal/location"
	"github.com/fjod/storefront-checkout/internal/metrics"
	r "github.com/fjod/storefront-checkout/internal/repository"
	"github.com/fjod/storefront-checkout/internal/storage"
	"github.com/fjod/storefront-checkout/internal/validation"
)

// CheckoutService is the checkout workflow as seen by the HTTP layer.
type CheckoutService interface {
	Resolve(ctx context.Context, req ResolveRequest) (*ResolvedCart, error)
	StageBuyNow(ctx context.Context, sessionID string, line domain.CartLine) error
	MergeOnLogin(ctx context.Context, sessionID, userID string) ([]domain.CartLine, error)

	GuestCart(ctx context.Context, sessionID string) (*ResolvedCart, error)
	AddToGuestCart(ctx context.Context, sessionID string, lines []domain.CartLine) (*ResolvedCart, error)
	ReplaceGuestCart(ctx context.Context, sessionID string, lines []domain.CartLine) (*ResolvedCart, error)

	Locations(ctx context.Context) (*location.Table, error)
	GetForm(ctx context.Context, sessionID string) (*FormState, error)
	UpdateForm(ctx context.Context, sessionID string, update FormUpdate) (*FormState, error)
	Validate(ctx context.Context, sessionID string) (validation.FieldErrors, error)

	StartPayment(ctx context.Context, req StartPaymentRequest) (*StartPaymentResult, error)
	Mount(ctx context.Context, sessionID, cardRef string) (*ConfirmationState, error)
	SetCardComplete(ctx context.Context, sessionID string, complete bool) (*ConfirmationState, error)
	Submit(ctx context.Context, req SubmitRequest) (*domain.Outcome, error)
}

var _ CheckoutService = (*CheckoutServiceImpl)(nil)

type Dependencies struct {
	Repo       r.RepoInterface
	Session    storage.SessionStore
	Local      storage.LocalStore
	Storefront *StorefrontHandler
	Payment    *PaymentHandler
	Locations  *location.Loader
	Metrics    *metrics.CheckoutMetrics
	Logger     *slog.Logger
}

type CheckoutServiceImpl struct {
	repo       r.RepoInterface
	session    storage.SessionStore
	local      storage.LocalStore
	storefront *StorefrontHandler
	payment    *PaymentHandler
	locations  *location.Loader
	metrics    *metrics.CheckoutMetrics
	logger     *slog.Logger
}

func NewCheckoutService(deps Dependencies) *CheckoutServiceImpl {
	m := deps.Metrics
	if m == nil {
		m = metrics.NewCheckoutMetrics(nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutServiceImpl{
		repo:       deps.Repo,
		session:    deps.Session,
		local:      deps.Local,
		storefront: deps.Storefront,
		payment:    deps.Payment,
		locations:  deps.Locations,
		metrics:    m,
		logger:     logger,
	}
}
