package relay

import (
	"errors"
	"fmt"
)

const (
	ErrorInput        = "input_error"
	ErrorProtocol     = "protocol_error"
	ErrorConsumerGone = "consumer_gone"
	ErrorSinkDelivery = "sink_delivery_error"
	ErrorWorkerFault  = "worker_fault"
)

// ErrConsumerGone is returned by Conveyor.Put once the dispatch side has
// terminated, so the producer stops reading upstream frames instead of
// filling a queue nobody drains.
var ErrConsumerGone = NewError(ErrorConsumerGone, "dispatch worker terminated")

// Error represents a stable, categorized relay failure.
type Error struct {
	Category string
	Detail   string
	Cause    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Detail == "" {
		return e.Category
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Detail, e.Cause)
	}

	return fmt.Sprintf("%s: %s", e.Category, e.Detail)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Cause
}

// NewError creates a categorized relay error.
func NewError(category string, detail string) *Error {
	return &Error{Category: category, Detail: detail}
}

// WrapError creates a categorized relay error around an underlying cause.
func WrapError(category string, detail string, cause error) *Error {
	return &Error{Category: category, Detail: detail, Cause: cause}
}

// CategoryFromError returns the stable category for an error when available.
func CategoryFromError(err error) string {
	if err == nil {
		return ""
	}

	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Category
	}

	return ""
}
