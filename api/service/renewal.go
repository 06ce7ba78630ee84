package service

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/photon-storage/photon-settlement/api/util"
	"github.com/photon-storage/photon-settlement/database/orm"
	"github.com/photon-storage/photon-settlement/errs"
	"github.com/photon-storage/photon-settlement/instruction"
	"github.com/photon-storage/photon-settlement/lifecycle"
	"github.com/photon-storage/photon-settlement/quote"
	"github.com/photon-storage/photon-settlement/verifier"
)

// renewable loads cid and rejects records that can no longer be renewed.
func (s *Service) renewable(ctx context.Context, cid string) (*orm.Upload, error) {
	if cid == "" {
		return nil, errs.Validation("cid is required")
	}

	u, err := s.lifecycle.Upload(ctx, cid)
	if err != nil {
		return nil, err
	}

	if u.DeletionStatus == orm.StatusDeleted {
		return nil, errors.Wrapf(errs.ErrRenewalRejected,
			"upload %s was already removed from storage", cid)
	}

	return u, nil
}

type renewalCostReq struct {
	CID          string `form:"cid"`
	DurationDays uint64 `form:"duration_days"`
	Chain        string `form:"chain"`
}

type renewalCostResp struct {
	CID               string          `json:"cid"`
	FileName          string          `json:"file_name,omitempty"`
	FileSize          uint64          `json:"file_size"`
	Token             string          `json:"token"`
	AdditionalDays    uint64          `json:"additional_days"`
	CurrentExpiration string          `json:"current_expiration"`
	NewExpiration     string          `json:"new_expiration"`
	CostUSD           decimal.Decimal `json:"cost_usd"`
	Subunits          string          `json:"subunits"`
	Amount            string          `json:"amount"`
}

// RenewalCost handles the /renewal/cost request. The stored file size
// prices the extension.
func (s *Service) RenewalCost(c *gin.Context, req *renewalCostReq) (*renewalCostResp, error) {
	ctx := c.Request.Context()
	u, err := s.renewable(ctx, req.CID)
	if err != nil {
		return nil, err
	}

	resp := &renewalCostResp{
		CID:               u.ContentCID,
		FileName:          u.FileName,
		FileSize:          u.FileSize,
		AdditionalDays:    req.DurationDays,
		CurrentExpiration: u.ExpiresAt.Format("2006-01-02"),
	}

	switch orm.PaymentChain(req.Chain) {
	case "", orm.ChainSolana:
		q, err := s.quotes.RenewalCost(ctx, u.FileSize, req.DurationDays)
		if err != nil {
			return nil, err
		}

		resp.Token = tokenSOL
		resp.CostUSD = q.CostUSD
		resp.Subunits = strconv.FormatUint(q.TotalCostSubunits, 10)
		resp.Amount = util.FormatAmount(lamports(q.TotalCostSubunits), quote.NativeDecimals, tokenSOL)
	case orm.ChainFilecoin:
		q, err := s.quotes.StablecoinRenewalCost(ctx, u.FileSize, req.DurationDays, quote.StablecoinDecimals)
		if err != nil {
			return nil, err
		}

		resp.Token = tokenUSDFC
		resp.CostUSD = q.CostUSD
		resp.Subunits = q.TotalSubunits.String()
		resp.Amount = util.FormatBigAmount(q.TotalSubunits, quote.StablecoinDecimals, tokenUSDFC)
	default:
		return nil, errs.Validation("unsupported chain %q", req.Chain)
	}

	resp.NewExpiration = s.lifecycle.RenewedExpiry(u, req.DurationDays).Format("2006-01-02")
	return resp, nil
}

type renewalInstructionReq struct {
	Owner        string `json:"owner"`
	CID          string `json:"cid"`
	DurationDays uint64 `json:"duration_days"`
}

// RenewalInstruction handles the /renewal/instruction request. The
// extension is always priced from the stored file size.
func (s *Service) RenewalInstruction(
	c *gin.Context,
	req *renewalInstructionReq,
) (*instruction.Descriptor, error) {
	ctx := c.Request.Context()
	u, err := s.renewable(ctx, req.CID)
	if err != nil {
		return nil, err
	}

	return s.builder.BuildRenewal(ctx, instruction.RenewalRequest{
		Owner:        req.Owner,
		CID:          req.CID,
		DurationDays: req.DurationDays,
		SizeBytes:    u.FileSize,
	})
}

type confirmRenewalReq struct {
	CID            string `json:"cid"`
	Signature      string `json:"signature"`
	DurationDays   uint64 `json:"duration_days"`
	AmountSubunits uint64 `json:"amount_subunits"`
}

// ConfirmRenewal handles the /renewal/confirm request.
func (s *Service) ConfirmRenewal(c *gin.Context, req *confirmRenewalReq) (*settlementResp, error) {
	ctx := c.Request.Context()
	if _, err := s.renewable(ctx, req.CID); err != nil {
		return nil, err
	}

	st, err := s.settled(ctx, req.Signature)
	if err != nil {
		return nil, err
	}
	if st.Status != verifier.Confirmed {
		return &st.settlementResp, nil
	}

	u, err := s.lifecycle.RecordRenewal(ctx, lifecycle.RenewalRecord{
		CID:            req.CID,
		AdditionalDays: req.DurationDays,
		Amount:         lamports(req.AmountSubunits),
		TxHash:         req.Signature,
	})
	if err != nil {
		return nil, err
	}

	st.Upload = newUploadResp(u)
	return &st.settlementResp, nil
}

type verifyRenewalReq struct {
	From         string `json:"from"`
	CID          string `json:"cid"`
	TxHash       string `json:"tx_hash"`
	DurationDays uint64 `json:"duration_days"`
}

// VerifyRenewal handles the /renewal/verify request for USDFC payments.
// Deleted records are rejected before the payment is waited on.
func (s *Service) VerifyRenewal(c *gin.Context, req *verifyRenewalReq) (*settlementResp, error) {
	ctx := c.Request.Context()
	u, err := s.renewable(ctx, req.CID)
	if err != nil {
		return nil, err
	}

	q, err := s.quotes.StablecoinRenewalCost(ctx, u.FileSize, req.DurationDays, quote.StablecoinDecimals)
	if err != nil {
		return nil, err
	}

	res, err := s.verifyPayment(ctx, req.From, req.TxHash, q.TotalSubunits)
	if err != nil {
		return nil, err
	}

	renewed, err := s.lifecycle.RecordRenewal(ctx, lifecycle.RenewalRecord{
		CID:            req.CID,
		AdditionalDays: req.DurationDays,
		Amount:         decimal.NewFromBigInt(res.Amount, 0),
		TxHash:         req.TxHash,
	})
	if err != nil {
		return nil, err
	}

	return &settlementResp{
		Status: res.Status,
		Upload: newUploadResp(renewed),
	}, nil
}
