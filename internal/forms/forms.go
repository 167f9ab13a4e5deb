// Package forms holds the input shapes submitted through HTML forms and the
// admin endpoints, with one Validate method per form.
//
// Validation runs through a shared go-playground/validator instance whose
// field names come from the `form` tag, so FieldErrors are keyed by the
// names the templates render.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a form field name to the message displayed next to it.
// The empty key holds errors that belong to the whole form.
type FieldErrors map[string]string

// Add records msg for field unless the field already has an error.
func (fe FieldErrors) Add(field, msg string) {
	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

// Error joins every message. Order is unspecified.
func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for field, msg := range fe {
		if field == "" {
			parts = append(parts, msg)
			continue
		}
		parts = append(parts, field+": "+msg)
	}
	return strings.Join(parts, "; ")
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("notnumeric", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "" || strings.Trim(s, "0123456789") != ""
		})
	})
	return validate
}

// check validates s and converts failures into FieldErrors. It returns nil
// when s is valid.
func check(s any) FieldErrors {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"": err.Error()}
	}
	out := FieldErrors{}
	for _, fe := range verrs {
		out.Add(fe.Field(), message(fe))
	}
	return out
}

// message renders one validator failure the way the pages display it.
func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters (it has %d).", fe.Param(), len([]rune(fmt.Sprint(fe.Value()))))
	case "min":
		return fmt.Sprintf("This password is too short. It must contain at least %s characters.", fe.Param())
	case "eqfield":
		return "The two password fields didn't match."
	case "oneof":
		return fmt.Sprintf("Select a valid choice. %v is not one of the available choices.", fe.Value())
	case "numeric":
		return "Enter a whole number."
	case "notnumeric":
		return "This password is entirely numeric."
	default:
		return fmt.Sprintf("Invalid value (%s).", fe.Tag())
	}
}
