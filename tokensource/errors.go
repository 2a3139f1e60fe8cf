package tokensource

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthenticationError is a fatal API failure: a rejected refresh grant, a 401
// that survived a token refresh, or any HTTP status the client has no
// recovery for. It carries the vendor's response for diagnostics.
type AuthenticationError struct {
	Status int
	Reason string
	Body   string
	URL    string
}

func (e *AuthenticationError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = http.StatusText(e.Status)
	}
	return fmt.Sprintf("authentication failure: %s (status %d), body: %s, attempted url: %s",
		reason, e.Status, e.Body, e.URL)
}

// IsUnauthorized reports whether err is an AuthenticationError with HTTP 401.
// Used to distinguish an expired token from other API failures.
func IsUnauthorized(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr) && authErr.Status == http.StatusUnauthorized
}
