// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes the database
//
// Services take repository interfaces, never *sqlite.DB, so tests can hand
// them in-memory fakes. They return apperror values and know nothing about
// HTTP status codes.
//
// AUTHORIZATION:
// The router already applies the role gate, but every mutating method here
// receives the caller's auth.Principal explicitly and checks it again, so
// the rules hold no matter which transport calls the service.
package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/edublog/internal/apperror"
	"github.com/sakif/edublog/internal/auth"
	"github.com/sakif/edublog/internal/model"
)

// Validation constants.
const (
	MaxTitleLength = 100
)

// validate is safe for concurrent use and caches struct metadata, so one
// instance serves the whole package.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON name ("title", not "Title") so messages
	// match what the client sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})

	return v
}

// validateStruct runs the struct-tag rules on s and converts the first
// failure into an apperror.ValidationFailed.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validating input: %w", err)
	}

	fe := fieldErrs[0]
	return apperror.ValidationFailed(fe.Field(), fieldMessage(fe))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

// checkDiscipline enforces the rule that discipline is set if and only if
// the role is professor.
func checkDiscipline(role model.Role, discipline string) error {
	if role == model.RoleProfessor && discipline == "" {
		return apperror.ValidationFailed("discipline", "discipline is required for professors")
	}
	if role != model.RoleProfessor && discipline != "" {
		return apperror.ValidationFailed("discipline", "discipline is only allowed for professors")
	}
	return nil
}

// checkPassword applies the rules bcrypt imposes on a new password.
func checkPassword(field, password string) error {
	if password == "" {
		return apperror.ValidationFailed(field, field+" is required")
	}
	if len(password) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be at most %d bytes", field, auth.MaxPasswordBytes))
	}
	return nil
}

// isUnexpected reports whether err falls outside the apperror taxonomy,
// i.e. it will become a 500 and is worth logging at Error level.
func isUnexpected(err error) bool {
	var appErr *apperror.AppError
	return !errors.As(err, &appErr)
}
