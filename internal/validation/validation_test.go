package validation

import (
	"testing"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func validForm() domain.CheckoutForm {
	return domain.CheckoutForm{
		FirstName: "Asha",
		LastName:  "Rai",
		Email:     "asha@example.com",
		Phone:     "9800000000",
	}
}

func TestValidateForm_Valid(t *testing.T) {
	assert.Empty(t, ValidateForm(validForm()))
}

func TestValidateForm_InvalidEmail(t *testing.T) {
	form := validForm()
	form.Email = "not-an-email"

	errs := ValidateForm(form)
	assert.Len(t, errs, 1)
	assert.Contains(t, errs, "email")
}

func TestValidateForm_RequiredNames(t *testing.T) {
	form := validForm()
	form.FirstName = "   "
	form.LastName = ""

	errs := ValidateForm(form)
	assert.Equal(t, "firstName is required", errs["firstName"])
	assert.Equal(t, "lastName is required", errs["lastName"])
}

func TestValidateForm_Phone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		ok    bool
	}{
		{"plain", "9800000000", true},
		{"dashes", "980-000-0000", true},
		{"spaces and parens", "(980) 000 0000", true},
		{"nine digits", "980000000", false},
		{"eleven digits", "98000000001", false},
		{"letters only", "phone", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			form.Phone = tt.phone
			errs := ValidateForm(form)
			if tt.ok {
				assert.NotContains(t, errs, "phone")
			} else {
				assert.Contains(t, errs, "phone")
			}
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "9800000000", NormalizePhone("+(980) 000-0000"))
	assert.Equal(t, "", NormalizePhone("n/a"))
}

func TestNewValidator_RegistersPhoneRule(t *testing.T) {
	var v *validator.Validate
	assert.NotPanics(t, func() { v = newValidator() })

	assert.NoError(t, v.Var("980-000-0000", "phone"))
	assert.Error(t, v.Var("12345", "phone"))
}
