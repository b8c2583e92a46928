package storage

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/storefront-checkout/domain"
)

// Session-scoped keys. They expire with the session.
const (
	KeyBuyNow        = "buyNow"
	KeyFormData      = "formData"
	KeyPaymentIntent = "paymentIntent"
	KeyConfirmation  = "confirmation"
	KeySubmitting    = "submitting"
)

var ErrNotFound = errors.New("key not found in session storage")

// SessionStore holds JSON values scoped to one browsing session.
type SessionStore interface {
	Get(ctx context.Context, sessionID, key string, dst any) error
	Set(ctx context.Context, sessionID, key string, value any) error
	Delete(ctx context.Context, sessionID string, keys ...string) error
	// Lock sets key only when it is absent. It reports whether this caller
	// took the lock; the lock expires after ttl.
	Lock(ctx context.Context, sessionID, key string, ttl time.Duration) (bool, error)
}

// LocalStore is the persistent guest cart, the server-side stand-in for the
// browser's "cart" entry.
type LocalStore interface {
	GetCart(ctx context.Context, sessionID string) ([]domain.CartLine, error)
	SaveCart(ctx context.Context, sessionID string, lines []domain.CartLine) error
	ClearCart(ctx context.Context, sessionID string) error
}
