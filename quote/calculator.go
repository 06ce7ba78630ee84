// Package quote prices storage requests.
package quote

import (
	"context"
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/photon-storage/photon-settlement/database/orm"
	"github.com/photon-storage/photon-settlement/errs"
)

const (
	// NativeDecimals is the subunit exponent of the settlement chain token.
	NativeDecimals = 9
	// StablecoinDecimals is the subunit exponent of USDFC.
	StablecoinDecimals = 18

	divisionPrecision = 30
)

// ConfigSource provides the current pricing config.
type ConfigSource interface {
	PricingConfig(ctx context.Context) (*orm.Config, error)
}

// PriceSource provides the native token price in USD.
type PriceSource interface {
	Price(ctx context.Context) (decimal.Decimal, error)
}

// Quote is a priced storage request.
type Quote struct {
	SizeBytes         uint64          `json:"size_bytes"`
	RequestedDays     uint64          `json:"requested_days"`
	EffectiveDays     uint64          `json:"effective_days"`
	RatePerBytePerDay decimal.Decimal `json:"rate_per_byte_per_day"`
	NativePriceUSD    decimal.Decimal `json:"native_price_usd"`
	CostUSD           decimal.Decimal `json:"cost_usd"`
	CostNative        decimal.Decimal `json:"cost_native"`
	TotalCostSubunits uint64          `json:"total_cost_subunits"`
}

// StablecoinQuote is a request priced directly in a USD stablecoin.
type StablecoinQuote struct {
	SizeBytes     uint64          `json:"size_bytes"`
	EffectiveDays uint64          `json:"effective_days"`
	CostUSD       decimal.Decimal `json:"cost_usd"`
	TotalSubunits *big.Int        `json:"total_subunits"`
}

// Calculator combines config and price into quotes.
type Calculator struct {
	config ConfigSource
	price  PriceSource
}

// New returns a calculator.
func New(config ConfigSource, price PriceSource) *Calculator {
	return &Calculator{
		config: config,
		price:  price,
	}
}

// Quote prices a new deposit, clamping the duration up to the configured
// minimum.
func (c *Calculator) Quote(ctx context.Context, sizeBytes, requestedDays uint64) (*Quote, error) {
	return c.quote(ctx, sizeBytes, requestedDays, true)
}

// RenewalCost prices an extension. Renewals buy exactly the days they add,
// so no minimum applies.
func (c *Calculator) RenewalCost(ctx context.Context, sizeBytes, additionalDays uint64) (*Quote, error) {
	return c.quote(ctx, sizeBytes, additionalDays, false)
}

// StablecoinCost prices a new deposit in a USD stablecoin with the given
// number of decimals, clamping the duration up to the configured minimum.
// No price lookup is needed.
func (c *Calculator) StablecoinCost(
	ctx context.Context,
	sizeBytes, requestedDays uint64,
	decimals int32,
) (*StablecoinQuote, error) {
	return c.stablecoin(ctx, sizeBytes, requestedDays, decimals, true)
}

// StablecoinRenewalCost prices an extension in a USD stablecoin. Like
// RenewalCost it charges exactly the days added.
func (c *Calculator) StablecoinRenewalCost(
	ctx context.Context,
	sizeBytes, additionalDays uint64,
	decimals int32,
) (*StablecoinQuote, error) {
	return c.stablecoin(ctx, sizeBytes, additionalDays, decimals, false)
}

func (c *Calculator) stablecoin(
	ctx context.Context,
	sizeBytes, requestedDays uint64,
	decimals int32,
	clampToMinimum bool,
) (*StablecoinQuote, error) {
	if err := checkRequest(sizeBytes, requestedDays); err != nil {
		return nil, err
	}

	cfg, err := c.config.PricingConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load pricing config")
	}

	days := effectiveDays(requestedDays, cfg, clampToMinimum)
	costUSD := CostUSD(sizeBytes, days, cfg.Rate())
	return &StablecoinQuote{
		SizeBytes:     sizeBytes,
		EffectiveDays: days,
		CostUSD:       costUSD,
		TotalSubunits: costUSD.Shift(decimals).Ceil().BigInt(),
	}, nil
}

func (c *Calculator) quote(
	ctx context.Context,
	sizeBytes, requestedDays uint64,
	clampToMinimum bool,
) (*Quote, error) {
	if err := checkRequest(sizeBytes, requestedDays); err != nil {
		return nil, err
	}

	cfg, err := c.config.PricingConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load pricing config")
	}

	price, err := c.price.Price(ctx)
	if err != nil {
		return nil, err
	}

	days := effectiveDays(requestedDays, cfg, clampToMinimum)
	rate := cfg.Rate()
	costUSD := CostUSD(sizeBytes, days, rate)
	costNative := costUSD.DivRound(price, divisionPrecision)
	subunits, err := ToSubunits(costNative, NativeDecimals)
	if err != nil {
		return nil, err
	}

	return &Quote{
		SizeBytes:         sizeBytes,
		RequestedDays:     requestedDays,
		EffectiveDays:     days,
		RatePerBytePerDay: rate,
		NativePriceUSD:    price,
		CostUSD:           costUSD,
		CostNative:        costNative,
		TotalCostSubunits: subunits,
	}, nil
}

// CostUSD returns size × days × rate.
func CostUSD(sizeBytes, days uint64, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(sizeBytes), 0).
		Mul(decimal.NewFromBigInt(new(big.Int).SetUint64(days), 0)).
		Mul(rate)
}

// ToSubunits rounds amount × 10^decimals up to a whole subunit.
func ToSubunits(amount decimal.Decimal, decimals int32) (uint64, error) {
	n := amount.Shift(decimals).Ceil().BigInt()
	if n.Sign() < 0 || !n.IsUint64() {
		return 0, errs.Validation("cost %s does not fit in subunits", amount)
	}

	return n.Uint64(), nil
}

func effectiveDays(requested uint64, cfg *orm.Config, clampToMinimum bool) uint64 {
	if clampToMinimum && requested < uint64(cfg.MinDurationDays) {
		return uint64(cfg.MinDurationDays)
	}

	return requested
}

func checkRequest(sizeBytes, days uint64) error {
	if sizeBytes == 0 {
		return errs.Validation("size must be positive")
	}
	if days == 0 {
		return errs.Validation("duration must be positive")
	}
	if days > orm.MaxDurationDays {
		return errs.Validation("duration %d exceeds %d days", days, orm.MaxDurationDays)
	}

	return nil
}
