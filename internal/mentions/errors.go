package mentions

import (
	"errors"
	"net/http"
)

// Domain errors for mention operations.
var (
	ErrNotFound       = errors.New("mention not found")
	ErrDuplicate      = errors.New("mention already exists")
	ErrInvalidMention = errors.New("invalid mention")
	ErrInvalidID      = errors.New("invalid mention id")
	ErrInvalidFilter  = errors.New("invalid filter")
	ErrBodyTooLarge   = errors.New("request body too large")
)

// MapHTTPStatus maps mention domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidMention), errors.Is(err, ErrInvalidID), errors.Is(err, ErrInvalidFilter):
		return http.StatusBadRequest
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
