package domain

// Customer is the identity placing the order. UserID is empty for guests.
type Customer struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (c Customer) Authenticated() bool {
	return c.UserID != ""
}

func (c Customer) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}

// Order is created once payment succeeded. The order-management API owns it
// after creation.
type Order struct {
	UserID          string          `json:"userId"`
	Username        string          `json:"username"`
	Mail            string          `json:"mail"`
	PhoneNumber     string          `json:"phoneNumber"`
	Products        []CartLine      `json:"products"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentIntentID string          `json:"paymentIntentId"`
}

// OrderConfirmation is what POST /checkout answers with.
type OrderConfirmation struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status,omitempty"`
}
