// Package taskform validates task creation payloads before they reach the task service.
package taskform

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"trademinutes-gateway/internal/models"

	"github.com/go-playground/validator/v10"
)

// ValidationError names the first offending field of a payload.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"error"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	validate *validator.Validate
	initOnce sync.Once
)

func validatorInstance() *validator.Validate {
	initOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		validate = v
	})
	return validate
}

// Validate checks in against the creation form rules and returns the first
// failure as a *ValidationError.
func Validate(in models.TaskInput) error {
	if err := validatorInstance().Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fromFieldError(verrs[0])
		}
		return err
	}

	slot := in.Availability[0]
	from, _ := time.Parse("15:04", slot.TimeFrom)
	to, _ := time.Parse("15:04", slot.TimeTo)
	if !from.Before(to) {
		return &ValidationError{Field: "availability[0].timeFrom", Message: "'Time From' must be earlier than 'Time To'"}
	}
	return nil
}

func fromFieldError(fe validator.FieldError) *ValidationError {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	return &ValidationError{Field: field, Message: message(fe)}
}

func message(fe validator.FieldError) string {
	switch fe.Field() {
	case "category":
		return "Please select a category."
	case "title":
		return "Please enter a title."
	case "description":
		return "Please enter a description."
	case "location":
		return "Please select a valid location from the suggestions."
	case "date":
		if fe.Tag() == "required" {
			return "Please select a date."
		}
		return "Date must be in YYYY-MM-DD format."
	case "timeFrom", "timeTo":
		if fe.Tag() == "required" {
			return "Please select both start and end times."
		}
		return "Times must be in HH:MM format."
	case "latitude", "longitude":
		return "Please select a valid location from the suggestions."
	case "availability":
		return "Exactly one availability window is required."
	case "locationType":
		return "Location type must be one of in-person, remote or online."
	case "credits":
		return "Credits must be greater than zero."
	}
	return fmt.Sprintf("Please provide a valid %s.", fe.Field())
}
