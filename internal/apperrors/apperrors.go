// Package apperrors maps domain failures onto go-errors categories so the
// transport layer can translate them without knowing where they came from.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to the errors built here.
const (
	TextCodeNotFound       = "NOT_FOUND"
	TextCodeParcelNotFound = "PARCEL_NOT_FOUND"
	TextCodeValidation     = "VALIDATION_FAILED"
	TextCodeInternal       = "INTERNAL"
)

// NotFound reports a missing record, or one the principal does not own. Both
// cases look the same to the caller. The text code names the entity, e.g.
// PARCEL_NOT_FOUND or YIELD_RECORD_NOT_FOUND.
func NotFound(entity, id string) error {
	return goerrors.New(fmt.Sprintf("%s %s not found", entity, id), goerrors.CategoryNotFound).
		WithTextCode(NotFoundCode(entity)).
		WithCode(http.StatusNotFound)
}

// NotFoundCode returns the text code NotFound attaches for entity.
func NotFoundCode(entity string) string {
	entity = strings.TrimSpace(entity)
	if entity == "" {
		return TextCodeNotFound
	}
	return strings.ToUpper(strings.ReplaceAll(entity, " ", "_")) + "_" + TextCodeNotFound
}

// Validation wraps an input validation failure.
func Validation(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid input").
		WithTextCode(TextCodeValidation).
		WithCode(http.StatusBadRequest)
}

// Internal wraps an unexpected failure.
func Internal(err error, message string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithTextCode(TextCodeInternal).
		WithCode(http.StatusInternalServerError)
}

// IsNotFound reports whether err carries the not found category.
func IsNotFound(err error) bool {
	return hasCategory(err, goerrors.CategoryNotFound)
}

// IsValidation reports whether err carries the validation category.
func IsValidation(err error) bool {
	return hasCategory(err, goerrors.CategoryValidation)
}

// HTTPStatus picks the response status for err.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsNotFound(err):
		return http.StatusNotFound
	case IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func hasCategory(err error, category goerrors.Category) bool {
	var e *goerrors.Error
	if errors.As(err, &e) {
		return e.Category == category
	}
	return false
}
