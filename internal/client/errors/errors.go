// Package errors provides custom error types for upstream service clients.
package errors

import (
	"fmt"
)

// DefaultRejectionCode is reported when the checker rejects a login without its own code.
const DefaultRejectionCode = -100

type (
	// UpstreamError reports a failed or malformed upstream exchange.
	UpstreamError struct {
		Service string
		Status  int
		Body    string
		Err     error
	}
	// RejectedError reports that the identity checker refused the account identifier.
	RejectedError struct {
		Login string
		Code  int
	}
)

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Service, e.Err.Error())
	}
	return fmt.Sprintf("%s: unexpected response %d: %s", e.Service, e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: login cannot be refilled (code %d)", e.Login, e.Code)
}
