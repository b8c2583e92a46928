package http

import (
	"context"
	"sync"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/internal/location"
	"github.com/fjod/storefront-checkout/internal/service"
	"github.com/fjod/storefront-checkout/internal/validation"
)

// MockCheckoutService records the calls it receives.
type MockCheckoutService struct {
	mu    sync.Mutex
	calls []string

	Cart         *service.ResolvedCart
	Merged       []domain.CartLine
	Table        *location.Table
	Form         *service.FormState
	FieldErrors  validation.FieldErrors
	StartResult  *service.StartPaymentResult
	Confirmation *service.ConfirmationState
	Outcome      *domain.Outcome
	Err          error

	LastResolve service.ResolveRequest
	LastStart   service.StartPaymentRequest
	LastSubmit  service.SubmitRequest
	LastUpdate  service.FormUpdate
	LastBuyNow  domain.CartLine
	LastLines   []domain.CartLine
	LastCardRef string
}

var _ service.CheckoutService = (*MockCheckoutService)(nil)

func (m *MockCheckoutService) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *MockCheckoutService) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (m *MockCheckoutService) Resolve(ctx context.Context, req service.ResolveRequest) (*service.ResolvedCart, error) {
	m.record("Resolve")
	m.LastResolve = req
	return m.Cart, m.Err
}

func (m *MockCheckoutService) StageBuyNow(ctx context.Context, sessionID string, line domain.CartLine) error {
	m.record("StageBuyNow")
	m.LastBuyNow = line
	return m.Err
}

func (m *MockCheckoutService) MergeOnLogin(ctx context.Context, sessionID, userID string) ([]domain.CartLine, error) {
	m.record("MergeOnLogin")
	return m.Merged, m.Err
}

func (m *MockCheckoutService) GuestCart(ctx context.Context, sessionID string) (*service.ResolvedCart, error) {
	m.record("GuestCart")
	return m.Cart, m.Err
}

func (m *MockCheckoutService) AddToGuestCart(ctx context.Context, sessionID string, lines []domain.CartLine) (*service.ResolvedCart, error) {
	m.record("AddToGuestCart")
	m.LastLines = lines
	return m.Cart, m.Err
}

func (m *MockCheckoutService) ReplaceGuestCart(ctx context.Context, sessionID string, lines []domain.CartLine) (*service.ResolvedCart, error) {
	m.record("ReplaceGuestCart")
	m.LastLines = lines
	return m.Cart, m.Err
}

func (m *MockCheckoutService) Locations(ctx context.Context) (*location.Table, error) {
	m.record("Locations")
	return m.Table, m.Err
}

func (m *MockCheckoutService) GetForm(ctx context.Context, sessionID string) (*service.FormState, error) {
	m.record("GetForm")
	return m.Form, m.Err
}

func (m *MockCheckoutService) UpdateForm(ctx context.Context, sessionID string, update service.FormUpdate) (*service.FormState, error) {
	m.record("UpdateForm")
	m.LastUpdate = update
	return m.Form, m.Err
}

func (m *MockCheckoutService) Validate(ctx context.Context, sessionID string) (validation.FieldErrors, error) {
	m.record("Validate")
	return m.FieldErrors, m.Err
}

func (m *MockCheckoutService) StartPayment(ctx context.Context, req service.StartPaymentRequest) (*service.StartPaymentResult, error) {
	m.record("StartPayment")
	m.LastStart = req
	return m.StartResult, m.Err
}

func (m *MockCheckoutService) Mount(ctx context.Context, sessionID, cardRef string) (*service.ConfirmationState, error) {
	m.record("Mount")
	m.LastCardRef = cardRef
	return m.Confirmation, m.Err
}

func (m *MockCheckoutService) SetCardComplete(ctx context.Context, sessionID string, complete bool) (*service.ConfirmationState, error) {
	m.record("SetCardComplete")
	return m.Confirmation, m.Err
}

func (m *MockCheckoutService) Submit(ctx context.Context, req service.SubmitRequest) (*domain.Outcome, error) {
	m.record("Submit")
	m.LastSubmit = req
	return m.Outcome, m.Err
}

// memLocalStore is an in-memory storage.LocalStore.
type memLocalStore struct {
	mu    sync.Mutex
	carts map[string][]domain.CartLine
}

func newMemLocalStore() *memLocalStore {
	return &memLocalStore{carts: map[string][]domain.CartLine{}}
}

func (m *memLocalStore) GetCart(_ context.Context, sessionID string) ([]domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CartLine{}, m.carts[sessionID]...), nil
}

func (m *memLocalStore) SaveCart(_ context.Context, sessionID string, lines []domain.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[sessionID] = append([]domain.CartLine{}, lines...)
	return nil
}

func (m *memLocalStore) ClearCart(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, sessionID)
	return nil
}
