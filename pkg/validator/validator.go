package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ErrorResponse struct {
	FailedField string `json:"field"`
	Tag         string `json:"tag"`
	Value       string `json:"value,omitempty"`
}

var validate = validator.New()

var isbnPattern = regexp.MustCompile(`^(97[89])?\d{9}[\dX]$`)

func init() {
	// Register custom validation for UUID
	validate.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		if id, ok := fl.Field().Interface().(uuid.UUID); ok {
			return id != uuid.Nil
		}
		return false
	})
	// ISBN-10 or ISBN-13, hyphens and spaces ignored
	validate.RegisterValidation("isbn_code", func(fl validator.FieldLevel) bool {
		return isbnPattern.MatchString(NormalizeISBN(fl.Field().String()))
	})
}

// NormalizeISBN strips separators and upper-cases the check digit.
func NormalizeISBN(s string) string {
	s = strings.NewReplacer("-", "", " ", "").Replace(s)
	return strings.ToUpper(strings.TrimSpace(s))
}

func ValidateStruct(data interface{}) []*ErrorResponse {
	var errors []*ErrorResponse
	err := validate.Struct(data)
	if err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return []*ErrorResponse{{FailedField: "", Tag: err.Error()}}
		}
		for _, err := range verrs {
			var element ErrorResponse
			element.FailedField = err.StructNamespace()
			element.Tag = err.Tag()
			element.Value = err.Param()
			errors = append(errors, &element)
		}
	}
	return errors
}

// Error is returned by services when a request fails validation.
type Error struct {
	Fields []*ErrorResponse
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return "Validation failed"
	}
	first := e.Fields[0]
	return fmt.Sprintf("Validation failed: Field '%s' failed on tag '%s'", first.FailedField, first.Tag)
}

// Check validates data and wraps any failures in *Error.
func Check(data interface{}) error {
	if errs := ValidateStruct(data); len(errs) > 0 {
		return &Error{Fields: errs}
	}
	return nil
}

// Invalid builds a single-field validation error.
func Invalid(field, tag string) error {
	return &Error{Fields: []*ErrorResponse{{FailedField: field, Tag: tag}}}
}
