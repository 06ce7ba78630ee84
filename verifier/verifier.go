// Package verifier confirms that an alternate-chain transaction paid the
// expected amount of a token to the expected recipient.
package verifier

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/raulk/clock"

	"github.com/photon-storage/go-common/log"

	"github.com/photon-storage/photon-settlement/chain/evm"
	"github.com/photon-storage/photon-settlement/errs"
)

const (
	// DefaultPollInterval is the wait between receipt requests.
	DefaultPollInterval = 5 * time.Second
	// DefaultTimeout bounds a whole verification.
	DefaultTimeout = 120 * time.Second
)

var verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "settlement_verifications_total",
	Help: "Cross-chain payment verifications by final status.",
}, []string{"status"})

// Status is the state of a verification.
type Status uint8

const (
	Pending Status = iota
	Confirmed
	Failed
	TimedOut
)

var statusName = map[Status]string{
	Pending:   "PENDING",
	Confirmed: "CONFIRMED",
	Failed:    "FAILED",
	TimedOut:  "TIMED_OUT",
}

// String returns the status name.
func (s Status) String() string {
	if name, ok := statusName[s]; ok {
		return name
	}

	return "UNKNOWN"
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ReceiptFetcher reads a receipt; nil means not mined yet.
type ReceiptFetcher interface {
	TransactionReceipt(ctx context.Context, hash string) (*evm.Receipt, error)
}

// Expectation describes the transfer that must appear in the receipt.
type Expectation struct {
	TxHash string
	Amount *big.Int
	From   string
	To     string
	Token  string
}

// Result is the outcome of a verification.
type Result struct {
	Status Status   `json:"status"`
	Amount *big.Int `json:"amount,omitempty"`
	Reason string   `json:"reason,omitempty"`
}

// Err maps a non-confirmed result to its error kind.
func (r *Result) Err() error {
	switch r.Status {
	case Confirmed:
		return nil
	case Failed:
		return errors.Wrap(errs.ErrVerificationFailed, r.Reason)
	case TimedOut:
		return errs.ErrVerificationTimeout
	}

	return errors.Errorf("verification still %s", r.Status)
}

// Verifier polls receipts until a terminal state or the deadline.
type Verifier struct {
	fetcher  ReceiptFetcher
	clock    clock.Clock
	interval time.Duration
	timeout  time.Duration
}

// New returns a verifier. Non-positive durations take the defaults and a
// nil clock uses wall time.
func New(fetcher ReceiptFetcher, interval, timeout time.Duration, clk clock.Clock) *Verifier {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if clk == nil {
		clk = clock.New()
	}

	return &Verifier{
		fetcher:  fetcher,
		clock:    clk,
		interval: interval,
		timeout:  timeout,
	}
}

// Verify blocks until exp is confirmed, rejected, or the deadline passes.
// Nothing is remembered between calls, so a timed-out hash may be
// verified again later. An error is returned only when ctx is canceled.
func (v *Verifier) Verify(ctx context.Context, exp Expectation) (*Result, error) {
	if err := exp.validate(); err != nil {
		return nil, err
	}

	deadline := v.clock.Timer(v.timeout)
	defer deadline.Stop()

	ticker := v.clock.Ticker(v.interval)
	defer ticker.Stop()

	for {
		receipt, err := v.fetcher.TransactionReceipt(ctx, exp.TxHash)
		if err != nil {
			log.Warn("fetch receipt failed, retrying",
				"tx", exp.TxHash, "error", err)
		} else if receipt != nil {
			res := evaluate(receipt, exp)
			verificationsTotal.WithLabelValues(res.Status.String()).Inc()
			return res, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, errors.Wrap(ctx.Err(), "verification canceled")
			}
			return v.timedOut(), nil

		case <-deadline.C:
			return v.timedOut(), nil

		case <-ticker.C:
		}
	}
}

func (v *Verifier) timedOut() *Result {
	verificationsTotal.WithLabelValues(TimedOut.String()).Inc()
	return &Result{
		Status: TimedOut,
		Reason: "receipt not found before deadline",
	}
}

func (e Expectation) validate() error {
	if e.TxHash == "" {
		return errs.Validation("missing transaction hash")
	}
	if e.Amount == nil || e.Amount.Sign() <= 0 {
		return errs.Validation("expected amount must be positive")
	}
	if e.From == "" || e.To == "" || e.Token == "" {
		return errs.Validation("from, to and token addresses are required")
	}

	return nil
}

// evaluate inspects a mined receipt. The first Transfer log from the
// token contract between the expected parties decides the outcome.
func evaluate(r *evm.Receipt, exp Expectation) *Result {
	if !r.Succeeded() {
		return &Result{Status: Failed, Reason: "transaction reverted with status " + r.Status}
	}

	for _, l := range r.Logs {
		if !strings.EqualFold(l.Address, exp.Token) {
			continue
		}

		tr, ok, err := evm.DecodeTransfer(l)
		if !ok {
			continue
		}
		if err != nil {
			log.Warn("skip malformed transfer log", "tx", exp.TxHash, "error", err)
			continue
		}

		if !strings.EqualFold(tr.From, exp.From) || !strings.EqualFold(tr.To, exp.To) {
			continue
		}

		if tr.Amount.Cmp(exp.Amount) < 0 {
			return &Result{
				Status: Failed,
				Amount: tr.Amount,
				Reason: "transferred " + tr.Amount.String() + ", expected " + exp.Amount.String(),
			}
		}

		return &Result{Status: Confirmed, Amount: tr.Amount}
	}

	return &Result{Status: Failed, Reason: "no matching transfer log"}
}
