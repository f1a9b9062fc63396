package api

import (
	"errors"
	"fmt"
	"net/http"
)

// RemoteError is a non-2xx response from the SwiftWallet API, carrying the
// HTTP status and the server-provided message when one was decodable.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote error: status %d", e.Status)
	}
	return fmt.Sprintf("remote error: status %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the remote API.
func IsUnauthorized(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Status == http.StatusUnauthorized
}

// ErrorMessage extracts the server message from err, falling back to the
// provided generic message when the server did not supply one.
func ErrorMessage(err error, fallback string) string {
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return fallback
}
