package service

import (
	"github.com/pkg/errors"

	"github.com/photon-storage/photon-settlement/errs"
)

var (
	ErrSystem           = errors.New("system error")
	errPaymentsDisabled = errors.New("stablecoin payments are disabled")
)

// ErrorCode is the numeric code returned with each error kind.
var ErrorCode = map[error]int{
	ErrSystem:                   1000,
	errs.ErrValidation:          1001,
	errs.ErrNotFound:            1002,
	errs.ErrPriceUnavailable:    1003,
	errs.ErrEncodingRange:       1004,
	errs.ErrVerificationTimeout: 1005,
	errs.ErrVerificationFailed:  1006,
	errs.ErrPersistence:         1007,
	errs.ErrInvalidTransition:   1008,
	errs.ErrRenewalRejected:     1009,
	errs.ErrConflict:            1010,
}
