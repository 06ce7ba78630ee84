package quote

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photon-storage/photon-settlement/database/orm"
	"github.com/photon-storage/photon-settlement/errs"
)

type staticConfig struct {
	cfg *orm.Config
	err error
}

func (s staticConfig) PricingConfig(context.Context) (*orm.Config, error) {
	return s.cfg, s.err
}

type staticPrice struct {
	price decimal.Decimal
	err   error
}

func (s staticPrice) Price(context.Context) (decimal.Decimal, error) {
	return s.price, s.err
}

func newTestCalculator(rate float64, minDays uint32, price int64) *Calculator {
	return New(
		staticConfig{cfg: &orm.Config{ID: orm.ConfigID, RatePerBytePerDay: rate, MinDurationDays: minDays}},
		staticPrice{price: decimal.NewFromInt(price)},
	)
}

func TestQuoteExample(t *testing.T) {
	c := newTestCalculator(1e-10, 1, 150)
	q, err := c.Quote(context.Background(), 1_000_000, 30)
	require.NoError(t, err)

	assert.Equal(t, uint64(30), q.EffectiveDays)
	assert.Equal(t, "0.003", q.CostUSD.String())
	assert.Equal(t, "0.00002", q.CostNative.String())
	assert.Equal(t, uint64(20000), q.TotalCostSubunits)
}

func TestQuoteMinimumDuration(t *testing.T) {
	c := newTestCalculator(1e-10, 30, 150)

	short, err := c.Quote(context.Background(), 1_000_000, 1)
	require.NoError(t, err)
	atMin, err := c.Quote(context.Background(), 1_000_000, 30)
	require.NoError(t, err)

	assert.Equal(t, uint64(30), short.EffectiveDays)
	assert.Equal(t, atMin.TotalCostSubunits, short.TotalCostSubunits)

	renewal, err := c.RenewalCost(context.Background(), 1_000_000, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), renewal.EffectiveDays)
	assert.Less(t, renewal.TotalCostSubunits, short.TotalCostSubunits)
}

func TestQuoteRoundsUp(t *testing.T) {
	c := newTestCalculator(1e-10, 1, 3)
	q, err := c.Quote(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), q.TotalCostSubunits)
}

func TestQuoteMonotonic(t *testing.T) {
	c := newTestCalculator(3.7e-11, 7, 123)
	sizes := []uint64{1, 17, 1 << 10, 999_999, 1 << 20, 1 << 30}
	days := []uint64{1, 6, 7, 8, 30, 365}

	for i := range sizes {
		for j := range days {
			q, err := c.Quote(context.Background(), sizes[i], days[j])
			require.NoError(t, err)
			if i+1 < len(sizes) {
				bigger, err := c.Quote(context.Background(), sizes[i+1], days[j])
				require.NoError(t, err)
				assert.LessOrEqual(t, q.TotalCostSubunits, bigger.TotalCostSubunits)
			}
			if j+1 < len(days) {
				longer, err := c.Quote(context.Background(), sizes[i], days[j+1])
				require.NoError(t, err)
				assert.LessOrEqual(t, q.TotalCostSubunits, longer.TotalCostSubunits)
			}
		}
	}
}

func TestQuoteValidation(t *testing.T) {
	c := newTestCalculator(1e-10, 1, 150)
	_, err := c.Quote(context.Background(), 0, 30)
	assert.True(t, errors.Is(err, errs.ErrValidation))
	_, err = c.Quote(context.Background(), 10, 0)
	assert.True(t, errors.Is(err, errs.ErrValidation))
	_, err = c.Quote(context.Background(), 10, orm.MaxDurationDays+1)
	assert.True(t, errors.Is(err, errs.ErrValidation))
	_, err = c.StablecoinRenewalCost(context.Background(), 10, (1<<32)+5, StablecoinDecimals)
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestQuotePropagatesPriceError(t *testing.T) {
	c := New(
		staticConfig{cfg: &orm.Config{RatePerBytePerDay: 1e-10, MinDurationDays: 1}},
		staticPrice{err: errors.Wrap(errs.ErrPriceUnavailable, "feed down")},
	)
	_, err := c.Quote(context.Background(), 10, 10)
	assert.True(t, errors.Is(err, errs.ErrPriceUnavailable))
}

func TestStablecoinCost(t *testing.T) {
	c := New(
		staticConfig{cfg: &orm.Config{RatePerBytePerDay: 1e-10, MinDurationDays: 1}},
		staticPrice{err: errors.New("unused")},
	)
	q, err := c.StablecoinCost(context.Background(), 1_000_000, 30, StablecoinDecimals)
	require.NoError(t, err)
	assert.Equal(t, "3000000000000000", q.TotalSubunits.String())
}

func TestStablecoinRenewalCostIgnoresMinimum(t *testing.T) {
	c := New(
		staticConfig{cfg: &orm.Config{RatePerBytePerDay: 1e-10, MinDurationDays: 30}},
		staticPrice{err: errors.New("unused")},
	)

	deposit, err := c.StablecoinCost(context.Background(), 1_000_000, 1, StablecoinDecimals)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), deposit.EffectiveDays)
	assert.Equal(t, "3000000000000000", deposit.TotalSubunits.String())

	renewal, err := c.StablecoinRenewalCost(context.Background(), 1_000_000, 1, StablecoinDecimals)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), renewal.EffectiveDays)
	assert.Equal(t, "100000000000000", renewal.TotalSubunits.String())
}
