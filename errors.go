package zohocrm

import (
	"errors"
	"fmt"

	"github.com/growthpath/zohocrm-go/tokensource"
)

// AuthenticationError is the fatal failure class: a rejected refresh grant, a
// 401 that survived a token refresh, or any HTTP status with no recovery
// path. It is shared with the token manager.
type AuthenticationError = tokensource.AuthenticationError

// FormatError reports a 2xx response missing the expected data envelope.
// This signals an API contract change or a malformed request and is never
// retried: repeating a malformed interaction repeats the malformed result.
type FormatError struct {
	URL  string
	Hint string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("did not receive the expected data format in the response for %s: %s", e.URL, e.Hint)
}

// NotFoundError reports that a record requested by id does not exist.
// Recoverable by the caller.
type NotFoundError struct {
	Module string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no record with id %s in module %s", e.ID, e.Module)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}
