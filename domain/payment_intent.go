package domain

// PaymentIntentRef authorizes one client-side card confirmation. It lives
// for the current checkout session only.
type PaymentIntentRef struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	Livemode        bool   `json:"livemode"`
	Account         string `json:"account"`
}

type PaymentStatus string

const (
	PaymentStatusSucceeded             PaymentStatus = "succeeded"
	PaymentStatusProcessing            PaymentStatus = "processing"
	PaymentStatusRequiresAction        PaymentStatus = "requires_action"
	PaymentStatusRequiresPaymentMethod PaymentStatus = "requires_payment_method"
	PaymentStatusCanceled              PaymentStatus = "canceled"
)

func (s PaymentStatus) String() string {
	return string(s)
}

// PayableLine is the normalized cart line sent to the payment-intent endpoint.
type PayableLine struct {
	ProductID  string `json:"productId"`
	Qty        int    `json:"qty"`
	VariantSKU string `json:"variantSku,omitempty"`
}

// BillingDetails accompany the card confirmation.
type BillingDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
