// Package validate wraps go-playground/validator with the content rules and
// converts failures into apperr.InvalidFormatError.
package validate

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"content-dumper/internal/shared/apperr"
)

// Validation tags registered on top of the built-in ones.
const (
	TagTitle  = "title"
	TagWebURL = "web_url"
)

// Validator wraps the go-playground validator with custom rules.
type Validator struct {
	validator *validator.Validate
}

// New creates a validator with the custom rules and json field names.
func New() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	registerCustomValidators(validate)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	return &Validator{validator: validate}
}

// Struct validates i and returns the first failure as an InvalidFormatError.
func (v *Validator) Struct(i any) error {
	err := v.validator.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Invalid("", err.Error())
	}
	fe := verrs[0]
	return &apperr.InvalidFormatError{Field: fe.Field(), Msg: message(fe)}
}

// Var validates a single value against tag, naming it field in the error.
func (v *Validator) Var(field string, value any, tag string) error {
	err := v.validator.Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &apperr.InvalidFormatError{Field: field, Msg: message(verrs[0])}
	}
	return apperr.Invalid(field, err.Error())
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters long", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters long", fe.Param())
		}
		return "must be at most " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "isbn":
		return "must be a valid ISBN-10 or ISBN-13"
	case TagWebURL, "url", "http_url":
		return "must be a valid http or https URL"
	case TagTitle:
		return "must not be blank or contain control characters"
	case "uuid4", "uuid":
		return "must be a valid UUID"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}

func registerCustomValidators(validate *validator.Validate) {
	_ = validate.RegisterValidation(TagTitle, func(fl validator.FieldLevel) bool {
		return IsTitle(fl.Field().String())
	})
	_ = validate.RegisterValidation(TagWebURL, func(fl validator.FieldLevel) bool {
		return IsWebURL(fl.Field().String())
	})
}

// IsTitle reports whether s has visible content and no control characters.
func IsTitle(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// IsWebURL reports whether s is an absolute http(s) URL with a host.
func IsWebURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != "" && !strings.ContainsAny(u.Host, " \t")
}

// NormalizeISBN strips separators and upper-cases a trailing check digit X.
func NormalizeISBN(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		case r == '-' || unicode.IsSpace(r):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
