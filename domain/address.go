package domain

// GeoPoint is a map pin chosen by the customer.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ShippingAddress is created by the checkout form. The pin, when set, is an
// override independent of the selected municipality.
type ShippingAddress struct {
	Address      string    `json:"address"`
	City         string    `json:"city"`
	LandMark     string    `json:"landMark"`
	Province     string    `json:"province"`
	District     string    `json:"district"`
	Municipality string    `json:"municipality"`
	Location     *GeoPoint `json:"location"`
	ShortNote    string    `json:"shortnote"`
}

// IsZero reports whether nothing has been entered.
func (a ShippingAddress) IsZero() bool {
	return a.Address == "" && a.City == "" && a.Province == "" &&
		a.District == "" && a.Municipality == "" && a.Location == nil
}
