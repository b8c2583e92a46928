package domain

type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is the toast shown to the customer.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Outcome is what every checkout action reports back: feedback and, when the
// flow moves on, where to navigate.
type Outcome struct {
	Notice   Notice `json:"notice"`
	Redirect string `json:"redirect,omitempty"`
	OrderID  string `json:"orderId,omitempty"`
}

const HomeRoute = "/"

const (
	MsgOrderPlaced      = "Order placed successfully."
	MsgOrderUncertain   = "Your payment was captured, but we could not confirm your order. Our team will follow up."
	MsgCartEmpty        = "Your cart is empty."
	MsgIntentFailed     = "Could not start payment. Please try again."
	MsgNoPayableLines   = "None of the items in your cart can be paid for."
	MsgPaymentNotDone   = "Payment status: "
	MsgPaymentNotReady  = "Card details are not complete."
	MsgValidationFailed = "Please fix the highlighted fields."
	MsgConfirmFailed    = "Payment could not be confirmed. Please try again."
)
