package inventory

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/safar/inventory-store/internal/database"
	"github.com/safar/inventory-store/internal/models"
)

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// "required" accepts "   "; names must carry at least one visible rune.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return v
}

func (r *Repository) validateItem(item *models.InventoryItem) error {
	if item == nil {
		return &database.ValidationError{Field: "item", Reason: "is required"}
	}
	return toValidationError(r.validate.Struct(item))
}

func (r *Repository) validateExistingItem(item *models.InventoryItem) error {
	if err := r.validateItem(item); err != nil {
		return err
	}
	if item.ID == uuid.Nil {
		return &database.ValidationError{Field: "id", Reason: "is required"}
	}
	return nil
}

func (r *Repository) validateProperties(props []models.InventoryItemProperty) error {
	for i := range props {
		if err := toValidationError(r.validate.Struct(&props[i])); err != nil {
			var vErr *database.ValidationError
			if errors.As(err, &vErr) {
				vErr.Field = fmt.Sprintf("properties[%d].%s", i, vErr.Field)
			}
			return err
		}
	}
	return nil
}

func validateRetireNames(names []string) error {
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return &database.ValidationError{Field: fmt.Sprintf("retire[%d]", i), Reason: "is required"}
		}
	}
	return nil
}

// toValidationError reports the first failing field.
func toValidationError(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &database.ValidationError{Reason: err.Error()}
	}

	fe := fieldErrs[0]
	var reason string
	switch fe.Tag() {
	case "required", "notblank":
		reason = "is required"
	case "max":
		reason = fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		reason = fmt.Sprintf("must be at least %s", fe.Param())
	default:
		reason = fmt.Sprintf("failed %s validation", fe.Tag())
	}

	return &database.ValidationError{Field: fe.Field(), Reason: reason}
}
