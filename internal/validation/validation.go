package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/go-playground/validator/v10"
)

const phoneDigits = 10

// FieldErrors maps a form field to its message. Empty means the form passed.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for field, msg := range f {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

type formInput struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,phone"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	err := v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return len(NormalizePhone(fl.Field().String())) == phoneDigits
	})
	if err != nil {
		panic(fmt.Sprintf("validation: register phone rule: %v", err))
	}
	return v
}

// ValidateForm checks the customer fields of the checkout form.
func ValidateForm(form domain.CheckoutForm) FieldErrors {
	in := formInput{
		FirstName: strings.TrimSpace(form.FirstName),
		LastName:  strings.TrimSpace(form.LastName),
		Email:     strings.TrimSpace(form.Email),
		Phone:     form.Phone,
	}

	errs := FieldErrors{}
	err := validate.Struct(in)
	if err == nil {
		return errs
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errs["form"] = err.Error()
		return errs
	}
	for _, fe := range validationErrors {
		errs[fe.Field()] = message(fe)
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "enter a valid email address"
	case "phone":
		return fmt.Sprintf("phone must have exactly %d digits", phoneDigits)
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// NormalizePhone strips everything but digits.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
