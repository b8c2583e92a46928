package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// CardConfirmer confirms a card payment against a created payment intent.
type CardConfirmer interface {
	ConfirmCardPayment(ctx context.Context, intent domain.PaymentIntentRef, cardRef string, billing domain.BillingDetails) (*ConfirmResult, error)
}

type ConfirmResult struct {
	PaymentIntentID string
	Status          domain.PaymentStatus
}

// ConfirmError is a failure reported by the payment provider. Its message is
// meant to be shown to the customer as is.
type ConfirmError struct {
	Code    string
	Message string
}

func (e *ConfirmError) Error() string {
	return e.Message
}

type StripeConfirmer struct {
	api *client.API
}

type Option func(*stripe.BackendConfig)

// WithBackendURL points the confirmer at another API host.
func WithBackendURL(url string) Option {
	return func(c *stripe.BackendConfig) {
		c.URL = stripe.String(url)
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *stripe.BackendConfig) {
		c.HTTPClient = hc
	}
}

func NewStripeConfirmer(secretKey string, opts ...Option) *StripeConfirmer {
	cfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
	}
	return &StripeConfirmer{api: client.New(secretKey, backends)}
}

func (s *StripeConfirmer) ConfirmCardPayment(ctx context.Context, intent domain.PaymentIntentRef, cardRef string, billing domain.BillingDetails) (*ConfirmResult, error) {
	if intent.PaymentIntentID == "" {
		return nil, &ConfirmError{Code: "missing_intent", Message: "payment intent is missing"}
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(cardRef),
	}
	if billing.Email != "" {
		params.ReceiptEmail = stripe.String(billing.Email)
	}
	params.Context = ctx
	params.AddMetadata("customer_name", billing.Name)
	params.AddMetadata("customer_phone", billing.Phone)

	pi, err := s.api.PaymentIntents.Confirm(intent.PaymentIntentID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return nil, &ConfirmError{Code: string(stripeErr.Code), Message: stripeErr.Msg}
		}
		return nil, fmt.Errorf("confirm payment intent %s: %w", intent.PaymentIntentID, err)
	}

	return &ConfirmResult{
		PaymentIntentID: pi.ID,
		Status:          domain.PaymentStatus(pi.Status),
	}, nil
}
