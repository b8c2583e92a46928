package domain

type CheckoutStatus string

const (
	CheckoutStatusIntentCreated    CheckoutStatus = "INTENT_CREATED"
	CheckoutStatusPaymentConfirmed CheckoutStatus = "PAYMENT_CONFIRMED"
	CheckoutStatusOrderPending     CheckoutStatus = "ORDER_PENDING"
	CheckoutStatusCompleted        CheckoutStatus = "COMPLETED"
	CheckoutStatusFailed           CheckoutStatus = "FAILED"
)

var transitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusIntentCreated:    {CheckoutStatusPaymentConfirmed, CheckoutStatusFailed},
	CheckoutStatusPaymentConfirmed: {CheckoutStatusCompleted, CheckoutStatusOrderPending},
	CheckoutStatusOrderPending:     {CheckoutStatusCompleted, CheckoutStatusFailed},
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusCompleted || s == CheckoutStatusFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

// CanTransitionTo guards the checkout ledger state machine.
func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
