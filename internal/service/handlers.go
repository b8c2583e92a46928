package service

import (
	"time"

	"github.com/fjod/storefront-checkout/internal/payment"
	"github.com/fjod/storefront-checkout/internal/storefront"
)

type StorefrontHandler struct {
	api     storefront.API
	timeout time.Duration
}

func NewStorefrontHandler(api storefront.API, timeout time.Duration) *StorefrontHandler {
	return &StorefrontHandler{
		api:     api,
		timeout: timeout,
	}
}

type PaymentHandler struct {
	confirmer payment.CardConfirmer
	timeout   time.Duration
}

func NewPaymentHandler(confirmer payment.CardConfirmer, timeout time.Duration) *PaymentHandler {
	return &PaymentHandler{
		confirmer: confirmer,
		timeout:   timeout,
	}
}
