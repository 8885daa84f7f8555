package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport wraps network level failures: DNS, refused connections, timeouts.
	ErrTransport = errors.New("crm api is unreachable")
	// ErrReadOnlyTag is returned when a write is attempted on a tag from an external source.
	ErrReadOnlyTag = errors.New("tags from external sources are read-only")
	// ErrPartialFailure is returned by batch operations when some items failed.
	ErrPartialFailure = errors.New("batch operation partially failed")
)

// APIError is a logical failure reported by the CRM API, either through
// "success": false or through an HTTP error status.
type APIError struct {
	Status  int    // HTTP status code of the response
	Message string // Message reported by the server
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("crm api error: %s", http.StatusText(e.Status))
	}
	return "crm api error: " + e.Message
}

// ValidationError is a client-side check failure; no request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsAPIError reports whether err carries an APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsValidationError reports whether err carries a ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// UserMessage returns the text shown to the user for err.
func UserMessage(err error) string {
	var apiErr *APIError
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		return vErr.Error()
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, ErrTransport):
		return ErrTransport.Error()
	default:
		return "request failed"
	}
}
