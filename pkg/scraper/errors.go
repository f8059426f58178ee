package scraper

import (
	"errors"
	"fmt"
)

// ErrTransport is wrapped around network and I/O failures that are not
// challenge failures: timeouts, connection resets, body read errors.
var ErrTransport = errors.New("transport error")

// StatusError reports a response with a status other than 200 OK.
//
// The status code is carried so callers can branch on it, for example
// to distinguish a 404 from a rate-limiting 429.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
