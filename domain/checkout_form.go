package domain

// CheckoutForm is the state of the checkout form, kept in session storage
// under formData between requests.
type CheckoutForm struct {
	FirstName string          `json:"firstName"`
	LastName  string          `json:"lastName"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone"`
	Address   ShippingAddress `json:"address"`
}

func (f CheckoutForm) Customer(userID, username string) Customer {
	return Customer{
		UserID:    userID,
		Username:  username,
		Email:     f.Email,
		Phone:     f.Phone,
		FirstName: f.FirstName,
		LastName:  f.LastName,
	}
}
