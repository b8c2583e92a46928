package service

import "errors"

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrNoPayableLines    = errors.New("no cart line resolves to a product")
	ErrNoPaymentIntent   = errors.New("no payment intent in session")
	ErrPaymentNotReady   = errors.New("card details incomplete or payment already submitting")
	ErrMissingCardRef    = errors.New("card element reference is required")
	ErrNotAuthenticated  = errors.New("operation requires an authenticated user")
	ErrInvalidBuyNowLine = errors.New("buy-now line needs a product id and a positive quantity")
	ErrInvalidCartLine   = errors.New("cart line needs a product id and a positive quantity")
)
