// Package errors provides custom error types of the order workflow.
package errors

import "fmt"

type (
	ServiceFoundNilArgument struct {
		Msg string
	}
	// ValidationError reports a malformed order request. Nothing upstream was called.
	ValidationError struct {
		Msg string
	}
	// VerificationError reports that the login checker could not be queried.
	VerificationError struct {
		Err error
	}
)

func (e *ServiceFoundNilArgument) Error() string {
	return e.Msg
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("login verification failed: %s", e.Err.Error())
}

func (e *VerificationError) Unwrap() error { return e.Err }
