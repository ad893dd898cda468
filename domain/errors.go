package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotActive = errors.New("lottery event is not active")
	ErrEventEnded     = errors.New("lottery event ended, insufficient remaining draws")
	ErrUserExhausted  = errors.New("user has insufficient remaining draws")
	ErrSystemBusy     = errors.New("system busy, please try again later")
	ErrNoPrizes       = errors.New("lottery prizes not found")

	ErrRateRequired       = errors.New("rate cannot be null")
	ErrRatePrecision      = errors.New("rate must have at most 2 decimal places")
	ErrRateRange          = errors.New("rate must be between 0.0 and 1.0")
	ErrRateTotalExceeded  = errors.New("total prize rate exceeds 1.0")
	ErrPrizeEventMismatch = errors.New("prize does not belong to this event")
	ErrReservedPrizeName  = errors.New("prize name is reserved for a draw that won nothing")

	// ErrExhausted is returned by counter primitives when a decrement would
	// take the counter below zero. It never leaves the business layer as is.
	ErrExhausted = errors.New("counter exhausted")
)

// DomainError is a business rule violation. It is surfaced to the caller with
// its reason and never retried automatically.
type DomainError struct {
	Err error
}

func NewDomainError(err error) *DomainError {
	return &DomainError{Err: err}
}

func (e *DomainError) Error() string {
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a missing durable row. Reason is optional and is set
// when the row exists but holds nothing usable (e.g. zero allowance).
type NotFoundError struct {
	Resource string
	Key      string
	Reason   error
}

func NewNotFoundError(resource string, key any) *NotFoundError {
	return &NotFoundError{Resource: resource, Key: fmt.Sprint(key)}
}

func (e *NotFoundError) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("%s %s: %v", e.Resource, e.Key, e.Reason)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return e.Reason
}

// SystemError hides an unexpected failure behind a generic message. The cause
// is kept for logging.
type SystemError struct {
	Message string
	Err     error
}

const GenericSystemMessage = "system error, please try again later"

func NewSystemError(err error) *SystemError {
	return &SystemError{Message: GenericSystemMessage, Err: err}
}

func (e *SystemError) Error() string {
	return e.Message
}

func (e *SystemError) Unwrap() error {
	return e.Err
}

func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
