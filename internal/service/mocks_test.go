package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/internal/payment"
	r "github.com/fjod/storefront-checkout/internal/repository"
	"github.com/fjod/storefront-checkout/internal/storefront"
)

// MockRepository implements r.RepoInterface for testing. Writes fail on a
// done context the way database/sql does.
type MockRepository struct {
	mu sync.Mutex

	CreateErr       error
	CreatedAttempts []*r.CheckoutAttempt
	Statuses        map[string]domain.CheckoutStatus
	Payloads        map[string][]byte
	OrderIDs        map[string]string
	Steps           map[string]domain.StepLog
	CompletedEvents map[string][]byte
	SetPayloadErr   error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		Statuses:        map[string]domain.CheckoutStatus{},
		Payloads:        map[string][]byte{},
		OrderIDs:        map[string]string{},
		Steps:           map[string]domain.StepLog{},
		CompletedEvents: map[string][]byte{},
	}
}

func (m *MockRepository) Close() error {
	return nil
}

func (m *MockRepository) RunMigrations(*r.Credentials) error {
	return nil
}

func (m *MockRepository) CreateAttempt(ctx context.Context, attempt *r.CheckoutAttempt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if _, ok := m.Statuses[attempt.PaymentIntentID]; ok {
		return r.ErrDuplicateAttempt
	}
	m.CreatedAttempts = append(m.CreatedAttempts, attempt)
	m.Statuses[attempt.PaymentIntentID] = attempt.Status
	if attempt.OrderPayload != nil {
		m.Payloads[attempt.PaymentIntentID] = attempt.OrderPayload
	}
	return nil
}

func (m *MockRepository) GetAttemptByIntentID(_ context.Context, intentID string) (*r.CheckoutAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.Statuses[intentID]
	if !ok {
		return nil, r.ErrAttemptNotFound
	}
	return &r.CheckoutAttempt{PaymentIntentID: intentID, Status: status, Steps: m.Steps[intentID]}, nil
}

func (m *MockRepository) transition(intentID string, to domain.CheckoutStatus) error {
	from, ok := m.Statuses[intentID]
	if !ok {
		return r.ErrAttemptNotFound
	}
	if from != to && !domain.CanTransitionTo(from, to) {
		return &r.TransitionError{From: from, To: to}
	}
	m.Statuses[intentID] = to
	return nil
}

func (m *MockRepository) UpdateStatus(ctx context.Context, intentID string, status domain.CheckoutStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transition(intentID, status)
}

func (m *MockRepository) SetOrderPayload(ctx context.Context, intentID string, status domain.CheckoutStatus, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetPayloadErr != nil {
		return m.SetPayloadErr
	}
	if err := m.transition(intentID, status); err != nil {
		return err
	}
	m.Payloads[intentID] = payload
	return nil
}

func (m *MockRepository) SetOrderCreated(ctx context.Context, intentID, orderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OrderIDs[intentID] = orderID
	return nil
}

func (m *MockRepository) SaveSteps(ctx context.Context, intentID string, steps domain.StepLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Steps[intentID] = steps
	return nil
}

func (m *MockRepository) CompleteAttempt(ctx context.Context, intentID string, eventPayload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.transition(intentID, domain.CheckoutStatusCompleted); err != nil {
		return err
	}
	m.CompletedEvents[intentID] = eventPayload
	return nil
}

func (m *MockRepository) IncrementAttempts(context.Context, string) (int, error) {
	return 1, nil
}

func (m *MockRepository) GetPendingOrders(context.Context, int) ([]*r.CheckoutAttempt, error) {
	return nil, nil
}

func (m *MockRepository) GetStuckAttempts(context.Context, time.Duration) ([]*r.CheckoutAttempt, error) {
	return nil, nil
}

func (m *MockRepository) GetUnprocessedEvents(context.Context, int) ([]*r.OutboxEvent, error) {
	return nil, nil
}

func (m *MockRepository) MarkEventAsProcessed(context.Context, int) error {
	return nil
}

func (m *MockRepository) status(intentID string) domain.CheckoutStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Statuses[intentID]
}

// MockStorefront implements storefront.API and records every call in order.
type MockStorefront struct {
	mu    sync.Mutex
	Calls []string

	Cart           []domain.CartLine
	CartErr        error
	ReplacedCart   []domain.CartLine
	ReplaceErr     error
	ClearErr       error
	Locations      json.RawMessage
	LocationsErr   error
	User           *storefront.UserProfile
	UserErr        error
	SavedAddress   *domain.ShippingAddress
	Intent         *domain.PaymentIntentRef
	IntentErr      error
	IntentRequests []storefront.CreateIntentRequest
	Confirmation   *domain.OrderConfirmation
	OrderErr       error
	Orders         []*domain.Order
	IdempotencyKey []string
	MailErr        error
	Mails          []storefront.MailRequest
}

func (m *MockStorefront) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

func (m *MockStorefront) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.Calls...)
}

func (m *MockStorefront) GetCart(_ context.Context, userID string) ([]domain.CartLine, error) {
	m.record("GET /cart/" + userID)
	return m.Cart, m.CartErr
}

func (m *MockStorefront) ReplaceCart(_ context.Context, userID string, lines []domain.CartLine) error {
	m.record("PUT /cart/" + userID)
	m.ReplacedCart = lines
	return m.ReplaceErr
}

func (m *MockStorefront) ClearCart(ctx context.Context, userID string) error {
	m.record("DELETE /cart/remove/" + userID)
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.ClearErr
}

func (m *MockStorefront) GetLocations(context.Context) (json.RawMessage, error) {
	m.record("GET /location")
	return m.Locations, m.LocationsErr
}

func (m *MockStorefront) GetUser(_ context.Context, userID string) (*storefront.UserProfile, error) {
	m.record("GET /user/" + userID)
	return m.User, m.UserErr
}

func (m *MockStorefront) SaveShippingAddress(_ context.Context, userID string, addr domain.ShippingAddress) error {
	m.record("POST /shippingaddress/" + userID)
	m.SavedAddress = &addr
	return nil
}

func (m *MockStorefront) CreatePaymentIntent(_ context.Context, req storefront.CreateIntentRequest) (*domain.PaymentIntentRef, error) {
	m.record("POST /payments/create-intent")
	m.IntentRequests = append(m.IntentRequests, req)
	return m.Intent, m.IntentErr
}

func (m *MockStorefront) CreateOrder(ctx context.Context, idempotencyKey string, order *domain.Order) (*domain.OrderConfirmation, error) {
	m.record("POST /checkout")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.IdempotencyKey = append(m.IdempotencyKey, idempotencyKey)
	m.Orders = append(m.Orders, order)
	return m.Confirmation, m.OrderErr
}

func (m *MockStorefront) SendMail(ctx context.Context, req storefront.MailRequest) error {
	m.record("POST /sendMail")
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Mails = append(m.Mails, req)
	return m.MailErr
}

func (m *MockStorefront) count(call string) int {
	n := 0
	for _, c := range m.calls() {
		if c == call {
			n++
		}
	}
	return n
}

// MockConfirmer implements payment.CardConfirmer for testing
type MockConfirmer struct {
	Result    *payment.ConfirmResult
	Err       error
	CardRefs  []string
	Billing   []domain.BillingDetails
	OnConfirm func()
}

func (m *MockConfirmer) ConfirmCardPayment(ctx context.Context, intent domain.PaymentIntentRef, cardRef string, billing domain.BillingDetails) (*payment.ConfirmResult, error) {
	m.CardRefs = append(m.CardRefs, cardRef)
	m.Billing = append(m.Billing, billing)
	if m.OnConfirm != nil {
		m.OnConfirm()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.Result, m.Err
}

// MockLocalStore implements storage.LocalStore for testing
type MockLocalStore struct {
	Carts      map[string][]domain.CartLine
	GetErr     error
	ClearErr   error
	ClearCalls int
}

func (m *MockLocalStore) GetCart(_ context.Context, sessionID string) ([]domain.CartLine, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	return m.Carts[sessionID], nil
}

func (m *MockLocalStore) SaveCart(_ context.Context, sessionID string, lines []domain.CartLine) error {
	if m.Carts == nil {
		m.Carts = map[string][]domain.CartLine{}
	}
	m.Carts[sessionID] = lines
	return nil
}

func (m *MockLocalStore) ClearCart(_ context.Context, sessionID string) error {
	m.ClearCalls++
	if m.ClearErr != nil {
		return m.ClearErr
	}
	delete(m.Carts, sessionID)
	return nil
}
