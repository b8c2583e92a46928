package domain

import "time"

// OrderPlaced is published once an order is recorded for a paid intent.
type OrderPlaced struct {
	PaymentIntentID string     `json:"paymentIntentId"`
	OrderID         string     `json:"orderId"`
	UserID          string     `json:"userId,omitempty"`
	Email           string     `json:"email"`
	Products        []CartLine `json:"products"`
	Total           string     `json:"total"`
	PlacedAt        time.Time  `json:"placedAt"`
}

func NewOrderPlaced(order *Order, orderID string, at time.Time) OrderPlaced {
	return OrderPlaced{
		PaymentIntentID: order.PaymentIntentID,
		OrderID:         orderID,
		UserID:          order.UserID,
		Email:           order.Mail,
		Products:        order.Products,
		Total:           Subtotal(order.Products).StringFixed(2),
		PlacedAt:        at,
	}
}
