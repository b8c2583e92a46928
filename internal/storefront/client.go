package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/internal/metrics"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const idempotencyHeader = "Idempotency-Key"

// API is the slice of the storefront REST API the checkout flow calls into.
type API interface {
	GetCart(ctx context.Context, userID string) ([]domain.CartLine, error)
	ReplaceCart(ctx context.Context, userID string, lines []domain.CartLine) error
	ClearCart(ctx context.Context, userID string) error
	GetLocations(ctx context.Context) (json.RawMessage, error)
	GetUser(ctx context.Context, userID string) (*UserProfile, error)
	SaveShippingAddress(ctx context.Context, userID string, addr domain.ShippingAddress) error
	CreatePaymentIntent(ctx context.Context, req CreateIntentRequest) (*domain.PaymentIntentRef, error)
	CreateOrder(ctx context.Context, idempotencyKey string, order *domain.Order) (*domain.OrderConfirmation, error)
	SendMail(ctx context.Context, req MailRequest) error
}

type UserProfile struct {
	ID              string                  `json:"_id"`
	Username        string                  `json:"username"`
	Email           string                  `json:"email"`
	ShippingAddress *domain.ShippingAddress `json:"shippingAddress"`
}

type CreateIntentRequest struct {
	Items []domain.PayableLine `json:"items"`
	Email string               `json:"email"`
}

type MailRequest struct {
	To              string            `json:"to"`
	Name            string            `json:"name"`
	OrderID         string            `json:"orderId"`
	PaymentIntentID string            `json:"paymentIntentId"`
	Products        []domain.CartLine `json:"products"`
	Total           string            `json:"total"`
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	breaker    *gobreaker.CircuitBreaker[[]byte]
	metrics    *metrics.CheckoutMetrics
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "storefront",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || clientFault(err)
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) GetCart(ctx context.Context, userID string) ([]domain.CartLine, error) {
	body, err := c.do(ctx, "get_cart", http.MethodGet, "/cart/"+url.PathEscape(userID), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeCart(body)
}

// decodeCart accepts a bare array or an envelope with "cart", "items" or
// "products".
func decodeCart(body []byte) ([]domain.CartLine, error) {
	var lines []*domain.CartLine
	if err := json.Unmarshal(body, &lines); err == nil {
		return domain.CompactLines(lines), nil
	}

	var envelope struct {
		Cart     []*domain.CartLine `json:"cart"`
		Items    []*domain.CartLine `json:"items"`
		Products []*domain.CartLine `json:"products"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedPayload, err)
	}
	switch {
	case envelope.Cart != nil:
		return domain.CompactLines(envelope.Cart), nil
	case envelope.Items != nil:
		return domain.CompactLines(envelope.Items), nil
	default:
		return domain.CompactLines(envelope.Products), nil
	}
}

func (c *Client) ReplaceCart(ctx context.Context, userID string, lines []domain.CartLine) error {
	_, err := c.do(ctx, "replace_cart", http.MethodPut, "/cart/"+url.PathEscape(userID), nil, map[string]any{"cart": lines})
	return err
}

func (c *Client) ClearCart(ctx context.Context, userID string) error {
	_, err := c.do(ctx, "clear_cart", http.MethodDelete, "/cart/remove/"+url.PathEscape(userID), nil, nil)
	return err
}

func (c *Client) GetLocations(ctx context.Context) (json.RawMessage, error) {
	body, err := c.do(ctx, "get_locations", http.MethodGet, "/location", nil, nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, ErrUnexpectedPayload
	}
	return body, nil
}

func (c *Client) GetUser(ctx context.Context, userID string) (*UserProfile, error) {
	body, err := c.do(ctx, "get_user", http.MethodGet, "/user/"+url.PathEscape(userID), nil, nil)
	if err != nil {
		return nil, err
	}
	var profile UserProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedPayload, err)
	}
	return &profile, nil
}

func (c *Client) SaveShippingAddress(ctx context.Context, userID string, addr domain.ShippingAddress) error {
	_, err := c.do(ctx, "save_shipping_address", http.MethodPost, "/shippingaddress/"+url.PathEscape(userID), nil, addr)
	return err
}

func (c *Client) CreatePaymentIntent(ctx context.Context, req CreateIntentRequest) (*domain.PaymentIntentRef, error) {
	body, err := c.do(ctx, "create_intent", http.MethodPost, "/payments/create-intent", nil, req)
	if err != nil {
		return nil, err
	}
	var ref domain.PaymentIntentRef
	if err := json.Unmarshal(body, &ref); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedPayload, err)
	}
	if ref.ClientSecret == "" || ref.PaymentIntentID == "" {
		return nil, fmt.Errorf("%w: missing client secret or intent id", ErrUnexpectedPayload)
	}
	return &ref, nil
}

// CreateOrder posts the order once; the storefront deduplicates on the
// idempotency key so the reconciler may repeat the call safely.
func (c *Client) CreateOrder(ctx context.Context, idempotencyKey string, order *domain.Order) (*domain.OrderConfirmation, error) {
	headers := map[string]string{idempotencyHeader: idempotencyKey}
	body, err := c.do(ctx, "create_order", http.MethodPost, "/checkout", headers, order)
	if err != nil {
		return nil, err
	}
	var conf domain.OrderConfirmation
	if len(bytes.TrimSpace(body)) == 0 {
		return &conf, nil
	}
	if err := json.Unmarshal(body, &conf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedPayload, err)
	}
	return &conf, nil
}

func (c *Client) SendMail(ctx context.Context, req MailRequest) error {
	_, err := c.do(ctx, "send_mail", http.MethodPost, "/sendMail", nil, req)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, headers map[string]string, payload any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, op, method, path, headers, payload)
	})
	c.observe(op, start, err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return body, nil
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, headers map[string]string, payload any) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c *Client) observe(op string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		if apiErr, ok := asAPIError(err); ok {
			status = strconv.Itoa(apiErr.StatusCode)
		}
	}
	c.metrics.StorefrontCall.WithLabelValues(op, status).
		Observe(float64(time.Since(start).Milliseconds()))
}
