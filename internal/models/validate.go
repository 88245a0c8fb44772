package models

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"complaintdesk/backend/internal/config"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// GetValidator returns the shared validator with the department rule registered.
func GetValidator() *validator.Validate {
	once.Do(initValidator)
	return validate
}

func initValidator() {
	validate = validator.New()
	_ = validate.RegisterValidation("department", func(fl validator.FieldLevel) bool {
		return IsKnownDepartment(fl.Field().String())
	})
}

// Validate checks v and wraps failures in ErrValidation.
func Validate(v interface{}) error {
	if err := GetValidator().Struct(v); err != nil {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(ParseErrors(err), "; "))
	}
	return nil
}

// ParseErrors renders validator errors as short messages.
func ParseErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{err.Error()}
	}

	errs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		errs = append(errs, prettyError(e))
	}
	return errs
}

func prettyError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " field is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", e.Field(), e.Param())
	case "department":
		return fmt.Sprintf("%s must be one of %s", e.Field(), strings.Join(config.Departments, ", "))
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", e.Field(), strings.ReplaceAll(e.Param(), " ", ", "))
	default:
		return e.Error()
	}
}

// CreateComplaintRequest is the body of a new complaint submission.
type CreateComplaintRequest struct {
	Text       string `json:"text" validate:"required,max=2000"`
	Department string `json:"department" validate:"omitempty,department"`
}

// ProfileRequest is an admin update of a staff profile.
type ProfileRequest struct {
	UserID     string `validate:"required"`
	Role       string `validate:"omitempty,oneof=ADMIN STAFF admin staff"`
	Department string `validate:"omitempty,department"`
	Language   string `validate:"omitempty,len=2"`
}
