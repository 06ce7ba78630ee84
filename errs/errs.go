// Package errs holds the error kinds shared by the settlement packages.
// Callers wrap a kind with context and match it with errors.Is.
package errs

import (
	"github.com/pkg/errors"
)

var (
	// ErrValidation reports malformed or out-of-domain input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound reports an unknown record key.
	ErrNotFound = errors.New("not found")
	// ErrPriceUnavailable is returned when the feed fails and nothing is cached.
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrEncodingRange reports a value that does not fit its wire field.
	ErrEncodingRange = errors.New("encoding range error")
	// ErrVerificationTimeout means no receipt was seen before the deadline.
	// It is not a negative answer.
	ErrVerificationTimeout = errors.New("verification timeout")
	// ErrVerificationFailed means the receipt was seen and rejected.
	ErrVerificationFailed = errors.New("verification failed")
	// ErrPersistence wraps store failures.
	ErrPersistence = errors.New("persistence error")
	// ErrInvalidTransition reports a lifecycle update whose precondition
	// did not hold.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrRenewalRejected is returned when renewing a deleted record.
	ErrRenewalRejected = errors.New("renewal rejected")
	// ErrConflict reports a duplicate or concurrently modified record.
	ErrConflict = errors.New("conflict")
)

// Validation returns an ErrValidation carrying the formatted detail.
func Validation(format string, args ...interface{}) error {
	return errors.Wrapf(ErrValidation, format, args...)
}

// NotFound returns an ErrNotFound carrying the formatted detail.
func NotFound(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

// EncodingRange returns an ErrEncodingRange for the named field.
func EncodingRange(field string, format string, args ...interface{}) error {
	return errors.Wrapf(
		errors.Wrapf(ErrEncodingRange, format, args...),
		"field %s", field,
	)
}

type persistenceError struct {
	cause error
}

func (e *persistenceError) Error() string {
	return ErrPersistence.Error() + ": " + e.cause.Error()
}

func (e *persistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *persistenceError) Unwrap() error {
	return e.cause
}

// Persistence marks err as a store failure while keeping it as the cause.
// A nil err yields nil.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPersistence) {
		return err
	}

	return &persistenceError{cause: err}
}

// Retryable reports whether the same call may succeed later without any
// change of input.
func Retryable(err error) bool {
	return errors.Is(err, ErrVerificationTimeout) ||
		errors.Is(err, ErrPriceUnavailable) ||
		errors.Is(err, ErrPersistence)
}
