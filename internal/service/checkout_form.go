package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/fjod/storefront-checkout/internal/location"
	"github.com/fjod/storefront-checkout/internal/storage"
	"github.com/fjod/storefront-checkout/internal/validation"
)

// FormUpdate carries the fields a client changed. Nil fields are left alone.
// Location moves run province first, so a new province clears the district
// and municipality before they are applied.
type FormUpdate struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`

	Address   *string `json:"address"`
	City      *string `json:"city"`
	LandMark  *string `json:"landMark"`
	ShortNote *string `json:"shortnote"`

	Province     *string          `json:"province"`
	District     *string          `json:"district"`
	Municipality *string          `json:"municipality"`
	Pin          *domain.GeoPoint `json:"location"`
	ClearPin     bool             `json:"clearLocation"`
}

func (u FormUpdate) movesLocation() bool {
	return u.Province != nil || u.District != nil || u.Municipality != nil || u.Pin != nil || u.ClearPin
}

type LocationOptions struct {
	Provinces      []string `json:"provinces"`
	Districts      []string `json:"districts"`
	Municipalities []string `json:"municipalities"`
}

type FormState struct {
	Form    domain.CheckoutForm `json:"form"`
	Options *LocationOptions    `json:"options,omitempty"`
}

func (s *CheckoutServiceImpl) Locations(ctx context.Context) (*location.Table, error) {
	locCtx, cancel := context.WithTimeout(ctx, s.storefront.timeout)
	defer cancel()
	return s.locations.Table(locCtx)
}

func (s *CheckoutServiceImpl) GetForm(ctx context.Context, sessionID string) (*FormState, error) {
	form, err := s.loadForm(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	state := &FormState{Form: *form}
	if table, err := s.Locations(ctx); err == nil {
		state.Options = options(location.NewSelector(table, selectionOf(form.Address)))
	}
	return state, nil
}

func (s *CheckoutServiceImpl) UpdateForm(ctx context.Context, sessionID string, update FormUpdate) (*FormState, error) {
	form, err := s.loadForm(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	setIf(&form.FirstName, update.FirstName)
	setIf(&form.LastName, update.LastName)
	setIf(&form.Email, update.Email)
	setIf(&form.Phone, update.Phone)
	setIf(&form.Address.Address, update.Address)
	setIf(&form.Address.City, update.City)
	setIf(&form.Address.LandMark, update.LandMark)
	setIf(&form.Address.ShortNote, update.ShortNote)

	state := &FormState{}
	if update.movesLocation() {
		table, err := s.Locations(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load locations: %w", err)
		}
		selector := location.NewSelector(table, selectionOf(form.Address))
		if err := applyLocation(selector, update); err != nil {
			return nil, err
		}
		form.Address = selector.Apply(form.Address)
		state.Options = options(selector)
	}

	if err := s.session.Set(ctx, sessionID, storage.KeyFormData, form); err != nil {
		return nil, fmt.Errorf("failed to save form: %w", err)
	}
	state.Form = *form
	return state, nil
}

// Validate checks the stored form. Checkout proceeds only on an empty result.
func (s *CheckoutServiceImpl) Validate(ctx context.Context, sessionID string) (validation.FieldErrors, error) {
	form, err := s.loadForm(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return validation.ValidateForm(*form), nil
}

func (s *CheckoutServiceImpl) loadForm(ctx context.Context, sessionID string) (*domain.CheckoutForm, error) {
	var form domain.CheckoutForm
	err := s.session.Get(ctx, sessionID, storage.KeyFormData, &form)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to load form: %w", err)
	}
	return &form, nil
}

func applyLocation(selector *location.Selector, update FormUpdate) error {
	if update.Province != nil {
		if err := selector.SelectProvince(*update.Province); err != nil {
			return err
		}
	}
	if update.District != nil {
		if err := selector.SelectDistrict(*update.District); err != nil {
			return err
		}
	}
	if update.Municipality != nil {
		if err := selector.SelectMunicipality(*update.Municipality); err != nil {
			return err
		}
	}
	if update.ClearPin {
		selector.ClearPin()
	}
	if update.Pin != nil {
		if err := selector.SetPin(update.Pin.Lat, update.Pin.Lng); err != nil {
			return err
		}
	}
	return nil
}

func selectionOf(addr domain.ShippingAddress) location.Selection {
	return location.Selection{
		Province:     addr.Province,
		District:     addr.District,
		Municipality: addr.Municipality,
		Pin:          addr.Location,
	}
}

func options(selector *location.Selector) *LocationOptions {
	return &LocationOptions{
		Provinces:      selector.ProvinceOptions(),
		Districts:      selector.DistrictOptions(),
		Municipalities: selector.MunicipalityOptions(),
	}
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
