package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized is matched by any 401 answer of the school API.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoToken is returned when an authenticated call is made without a token.
	ErrNoToken = errors.New("no auth token")
)

// HTTPError is a non-2xx answer of the school API.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Is makes errors.Is(err, ErrUnauthorized) hold for 401 answers.
func (e *HTTPError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// StatusCode extracts the HTTP status of err, or 0.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// IsRejection reports whether the school API refused the request on its
// merits (validation or conflict) rather than failing.
func IsRejection(err error) bool {
	switch StatusCode(err) {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return true
	}
	return false
}

// Malformed describes a record dropped during response validation.
type Malformed struct {
	Index int   `json:"index"`
	ID    int64 `json:"id,omitempty"`
	Err   error `json:"-"`
}

func (m Malformed) Error() string {
	return fmt.Sprintf("record %d (id %d): %v", m.Index, m.ID, m.Err)
}
