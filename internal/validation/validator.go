// Package validation checks entries and request bodies using validator/v10.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/arabicbase/arabicbase/internal/domain"
	domainerrors "github.com/arabicbase/arabicbase/internal/errors"
	"github.com/arabicbase/arabicbase/internal/normalize"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator configured for our domain.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("entry_type", func(fl validator.FieldLevel) bool {
		return domain.EntryType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("vote_type", func(fl validator.FieldLevel) bool {
		return domain.VoteType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("catalog_name", func(fl validator.FieldLevel) bool {
		name := normalize.CatalogName(fl.Field().String())
		return name != "" && len(name) <= 100
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns a domain error.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// ValidateEntry checks an entry's fields plus the cross-field invariants the
// struct tags cannot express.
func (v *Validator) ValidateEntry(e *domain.Entry) error {
	if e == nil {
		return domainerrors.Validation("entry is required")
	}
	if strings.TrimSpace(e.Term) == "" {
		return domainerrors.ValidationWithDetails("validation failed", map[string]string{"term": "is required"})
	}
	if err := v.Validate(e); err != nil {
		return err
	}
	if !e.InsightsConsistent() {
		return domainerrors.ValidationWithDetails("validation failed",
			map[string]string{"has_ai_insights": "requires ai_enrichment"})
	}
	return nil
}

// ValidateCatalogName checks a dialect or category name.
func (v *Validator) ValidateCatalogName(name string) error {
	if err := v.v.Var(name, "catalog_name"); err != nil {
		return domainerrors.ValidationWithDetails("validation failed",
			map[string]string{"name": "must be 1-100 characters"})
	}
	return nil
}

// formatError converts validator errors to domain errors.
func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fieldErrors[e.Field()] = friendlyMessage(e)
	}
	return domainerrors.ValidationWithDetails("validation failed", fieldErrors)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "max":
		if e.Kind() == reflect.Slice {
			return fmt.Sprintf("must not have more than %s items", e.Param())
		}
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	case "entry_type":
		types := make([]string, len(domain.EntryTypes))
		for i, t := range domain.EntryTypes {
			types[i] = string(t)
		}
		return "must be one of: " + strings.Join(types, " ")
	case "vote_type":
		return "must be up or down"
	case "catalog_name":
		return "must be 1-100 characters"
	case "uuid":
		return "must be a valid UUID"
	default:
		return "is invalid"
	}
}
