package service

import (
	"math/big"
	"strconv"

	"github.com/docker/go-units"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/photon-storage/photon-settlement/api/util"
	"github.com/photon-storage/photon-settlement/errs"
	"github.com/photon-storage/photon-settlement/quote"
)

const (
	tokenSOL   = "SOL"
	tokenUSDFC = "USDFC"
)

type priceResp struct {
	Token    string          `json:"token"`
	PriceUSD decimal.Decimal `json:"price_usd"`
}

// Price handles the /price request.
func (s *Service) Price(c *gin.Context) (*priceResp, error) {
	p, err := s.prices.Price(c.Request.Context())
	if err != nil {
		return nil, err
	}

	return &priceResp{Token: tokenSOL, PriceUSD: p}, nil
}

type quoteReq struct {
	SizeBytes    uint64 `form:"size_bytes"`
	DurationDays uint64 `form:"duration_days"`
	Token        string `form:"token"`
}

type quoteResp struct {
	Token         string          `json:"token"`
	SizeBytes     uint64          `json:"size_bytes"`
	Size          string          `json:"size"`
	RequestedDays uint64          `json:"requested_days"`
	EffectiveDays uint64          `json:"effective_days"`
	CostUSD       decimal.Decimal `json:"cost_usd"`
	// Subunits is a string since USDFC amounts overflow JSON numbers.
	Subunits string `json:"subunits"`
	Amount   string `json:"amount"`
}

// Quote handles the /quote request.
func (s *Service) Quote(c *gin.Context, req *quoteReq) (*quoteResp, error) {
	resp := &quoteResp{
		SizeBytes:     req.SizeBytes,
		Size:          units.HumanSize(float64(req.SizeBytes)),
		RequestedDays: req.DurationDays,
	}

	switch req.Token {
	case "", tokenSOL:
	case tokenUSDFC:
		q, err := s.quotes.StablecoinCost(
			c.Request.Context(), req.SizeBytes, req.DurationDays, quote.StablecoinDecimals)
		if err != nil {
			return nil, err
		}

		resp.Token = tokenUSDFC
		resp.EffectiveDays = q.EffectiveDays
		resp.CostUSD = q.CostUSD
		resp.Subunits = q.TotalSubunits.String()
		resp.Amount = util.FormatBigAmount(q.TotalSubunits, quote.StablecoinDecimals, tokenUSDFC)
		return resp, nil
	default:
		return nil, errs.Validation("unsupported token %q", req.Token)
	}

	q, err := s.quotes.Quote(c.Request.Context(), req.SizeBytes, req.DurationDays)
	if err != nil {
		return nil, err
	}

	resp.Token = tokenSOL
	resp.EffectiveDays = q.EffectiveDays
	resp.CostUSD = q.CostUSD
	resp.Subunits = strconv.FormatUint(q.TotalCostSubunits, 10)
	resp.Amount = util.FormatAmount(lamports(q.TotalCostSubunits), quote.NativeDecimals, tokenSOL)
	return resp, nil
}

func lamports(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
