// Package price serves the native-token/USD rate with a short-lived cache
// that degrades to the last known value when the feed is down.
package price

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/raulk/clock"
	"github.com/shopspring/decimal"

	"github.com/photon-storage/go-common/log"

	"github.com/photon-storage/photon-settlement/errs"
)

// DefaultTTL is how long a fetched price is served without refetching.
const DefaultTTL = 60 * time.Second

var (
	feedFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_price_feed_fetch_total",
		Help: "Price feed fetches by result.",
	}, []string{"result"})
	staleServedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_price_stale_served_total",
		Help: "Prices served from an expired cache because the feed failed.",
	})
)

// FeedPrice is a raw fixed-point observation: Mantissa × 10^Exponent.
type FeedPrice struct {
	Mantissa    string
	Exponent    int32
	PublishTime time.Time
}

// Value returns the exact decimal price.
func (p *FeedPrice) Value() (decimal.Decimal, error) {
	m, err := decimal.NewFromString(p.Mantissa)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse mantissa %q", p.Mantissa)
	}

	return m.Shift(p.Exponent), nil
}

// Feed fetches the latest observation of a price feed.
type Feed interface {
	LatestPrice(ctx context.Context, feedID string) (*FeedPrice, error)
}

type cachedPrice struct {
	value     decimal.Decimal
	fetchedAt time.Time
}

// Oracle caches one price per process.
type Oracle struct {
	feed   Feed
	feedID string
	ttl    time.Duration
	clock  clock.Clock
	last   atomic.Pointer[cachedPrice]
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(o *Oracle) {
		o.ttl = ttl
	}
}

// WithClock injects the time source.
func WithClock(c clock.Clock) Option {
	return func(o *Oracle) {
		o.clock = c
	}
}

// NewOracle returns an oracle reading feedID from feed.
func NewOracle(feed Feed, feedID string, opts ...Option) *Oracle {
	o := &Oracle{
		feed:   feed,
		feedID: feedID,
		ttl:    DefaultTTL,
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Price returns native-token price in USD.
// Concurrent misses may each hit the feed; the last write wins.
func (o *Oracle) Price(ctx context.Context) (decimal.Decimal, error) {
	now := o.clock.Now()
	cached := o.last.Load()
	if cached != nil && now.Sub(cached.fetchedAt) < o.ttl {
		return cached.value, nil
	}

	value, err := o.fetch(ctx)
	if err == nil {
		feedFetchTotal.WithLabelValues("ok").Inc()
		o.last.Store(&cachedPrice{value: value, fetchedAt: now})
		return value, nil
	}

	feedFetchTotal.WithLabelValues("error").Inc()
	if cached == nil {
		return decimal.Zero, errors.Wrapf(errs.ErrPriceUnavailable, "feed %s: %v", o.feedID, err)
	}

	staleServedTotal.Inc()
	log.Warn("price feed unavailable, serving cached price",
		"feed", o.feedID,
		"price", cached.value.String(),
		"age", now.Sub(cached.fetchedAt).String(),
		"error", err,
	)
	return cached.value, nil
}

func (o *Oracle) fetch(ctx context.Context) (decimal.Decimal, error) {
	p, err := o.feed.LatestPrice(ctx, o.feedID)
	if err != nil {
		return decimal.Zero, err
	}

	value, err := p.Value()
	if err != nil {
		return decimal.Zero, err
	}

	if !value.IsPositive() {
		return decimal.Zero, errors.Errorf("non-positive price %s", value)
	}

	return value, nil
}
