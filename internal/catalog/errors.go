package catalog

import (
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"productblog/internal/db"
	"productblog/internal/thumbnail"
)

var (
	// ErrNotFound: no product row for the requested id.
	ErrNotFound = db.ErrNotFound
	// ErrBadRequest: the request lacks a usable product identifier.
	ErrBadRequest = errors.New("catalog: bad request")
	// ErrImageDecode: the uploaded image could not be decoded.
	ErrImageDecode = thumbnail.ErrDecode
)

// ValidationError carries field-level messages for a rejected product form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "catalog: invalid " + strings.Join(keys, ", ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func newValidationError(err error) *ValidationError {
	ve := &ValidationError{Fields: map[string]string{}}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		ve.add("error", err.Error())
		return ve
	}
	for _, e := range verrs {
		switch e.Tag() {
		case "required":
			ve.add(e.Field(), "is required")
		case "numeric":
			ve.add(e.Field(), "must be a number")
		case "max":
			ve.add(e.Field(), "exceeds maximum length")
		default:
			ve.add(e.Field(), "invalid value")
		}
	}
	return ve
}
