package location

import (
	"fmt"

	"github.com/fjod/storefront-checkout/domain"
)

// Selection is the persisted state of the cascading picker.
type Selection struct {
	Province     string           `json:"province"`
	District     string           `json:"district"`
	Municipality string           `json:"municipality"`
	Pin          *domain.GeoPoint `json:"location"`
}

// Selector moves a Selection through the table. Each level resets the
// levels below it.
type Selector struct {
	table *Table
	state Selection
}

func NewSelector(table *Table, state Selection) *Selector {
	return &Selector{table: table, state: state}
}

func (s *Selector) State() Selection {
	return s.state
}

func (s *Selector) SelectProvince(province string) error {
	if !s.table.hasProvince(province) {
		return fmt.Errorf("%w: %q", ErrUnknownProvince, province)
	}
	s.state.Province = province
	s.state.District = ""
	s.state.Municipality = ""
	return nil
}

func (s *Selector) SelectDistrict(district string) error {
	if !s.table.hasDistrict(s.state.Province, district) {
		return fmt.Errorf("%w: %q", ErrUnknownDistrict, district)
	}
	s.state.District = district
	s.state.Municipality = ""
	return nil
}

func (s *Selector) SelectMunicipality(municipality string) error {
	if !s.table.hasMunicipality(s.state.Province, s.state.District, municipality) {
		return fmt.Errorf("%w: %q", ErrUnknownMunicipality, municipality)
	}
	s.state.Municipality = municipality
	return nil
}

func (s *Selector) ProvinceOptions() []string {
	return s.table.Provinces()
}

func (s *Selector) DistrictOptions() []string {
	if s.state.Province == "" {
		return nil
	}
	return s.table.Districts(s.state.Province)
}

func (s *Selector) MunicipalityOptions() []string {
	if s.state.District == "" {
		return nil
	}
	return s.table.Municipalities(s.state.Province, s.state.District)
}

// SetPin overrides the address location. The pin is not checked against the
// selected municipality.
func (s *Selector) SetPin(lat, lng float64) error {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidPin, lat, lng)
	}
	s.state.Pin = &domain.GeoPoint{Lat: lat, Lng: lng}
	return nil
}

func (s *Selector) ClearPin() {
	s.state.Pin = nil
}

// Apply copies the selection onto the address.
func (s *Selector) Apply(addr domain.ShippingAddress) domain.ShippingAddress {
	addr.Province = s.state.Province
	addr.District = s.state.District
	addr.Municipality = s.state.Municipality
	addr.Location = s.state.Pin
	return addr
}
