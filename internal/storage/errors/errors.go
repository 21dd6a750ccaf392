// Package errors provides custom storage error types.
package errors

import (
	"fmt"
)

type (
	StatementPSQLError struct {
		Err error
	}
	ExecutionPSQLError struct {
		Err error
	}
	ScanningPSQLError struct {
		Err error
	}
	NotFoundError struct {
		Err error
		ID  string
	}
	UnavailableError struct {
		Err error
	}
	ContextTimeoutExceededError struct {
		Err error
	}
)

func (e *StatementPSQLError) Error() string {
	return fmt.Sprintf("%s: could not compile", e.Err.Error())
}

func (e *StatementPSQLError) Unwrap() error { return e.Err }

func (e *ExecutionPSQLError) Error() string {
	return fmt.Sprintf("%s: could not execute", e.Err.Error())
}

func (e *ExecutionPSQLError) Unwrap() error { return e.Err }

func (e *ScanningPSQLError) Error() string {
	return fmt.Sprintf("%s: could not scan", e.Err.Error())
}

func (e *ScanningPSQLError) Unwrap() error { return e.Err }

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: not found", e.ID)
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: database unavailable", e.Err.Error())
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *ContextTimeoutExceededError) Error() string {
	return fmt.Sprintf("%s: context timeout exceeded", e.Err.Error())
}

func (e *ContextTimeoutExceededError) Unwrap() error { return e.Err }
