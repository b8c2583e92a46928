package repository

import (
	"errors"
	"fmt"

	"github.com/fjod/storefront-checkout/domain"
)

var (
	ErrAttemptNotFound   = errors.New("checkout attempt not found")
	ErrDuplicateAttempt  = errors.New("checkout attempt for this payment intent already exists")
	ErrIllegalTransition = errors.New("illegal transition of checkout status")
)

type TransitionError struct {
	From, To domain.CheckoutStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v: %s -> %s", ErrIllegalTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}
