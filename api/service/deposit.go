package service

import (
	"context"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
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

// DepositInstruction handles the /deposit/instruction request.
func (s *Service) DepositInstruction(
	c *gin.Context,
	req *instruction.DepositRequest,
) (*instruction.Descriptor, error) {
	return s.builder.BuildDeposit(c.Request.Context(), *req)
}

type fileInfo struct {
	Email    string `json:"email"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
}

type confirmDepositReq struct {
	fileInfo
	Owner          string `json:"owner"`
	CID            string `json:"cid"`
	Signature      string `json:"signature"`
	SizeBytes      uint64 `json:"size_bytes"`
	DurationDays   uint64 `json:"duration_days"`
	AmountSubunits uint64 `json:"amount_subunits"`
}

type settlementResp struct {
	Status verifier.Status `json:"status"`
	Reason string          `json:"reason,omitempty"`
	Upload *uploadResp     `json:"upload,omitempty"`
}

// ConfirmDeposit handles the /deposit/confirm request. The deposit is
// recorded once its settlement chain transaction is confirmed; until then
// the response is PENDING and the client retries.
func (s *Service) ConfirmDeposit(c *gin.Context, req *confirmDepositReq) (*settlementResp, error) {
	st, err := s.settled(c.Request.Context(), req.Signature)
	if err != nil {
		return nil, err
	}
	if st.Status != verifier.Confirmed {
		return &st.settlementResp, nil
	}

	u, err := s.lifecycle.RecordDeposit(c.Request.Context(), lifecycle.DepositRecord{
		Owner:        req.Owner,
		CID:          req.CID,
		DurationDays: req.DurationDays,
		Amount:       lamports(req.AmountSubunits),
		Slot:         st.slot,
		Chain:        orm.ChainSolana,
		Token:        tokenSOL,
		TxHash:       req.Signature,
		Email:        req.Email,
		FileName:     req.FileName,
		FileType:     req.FileType,
		FileSize:     req.SizeBytes,
	})
	if err != nil {
		return nil, err
	}

	st.Upload = newUploadResp(u)
	return &st.settlementResp, nil
}

type chainSettlement struct {
	settlementResp
	slot uint64
}

// settled reports the landing state of a settlement chain signature.
func (s *Service) settled(ctx context.Context, sig string) (*chainSettlement, error) {
	if _, err := solana.SignatureFromBase58(sig); err != nil {
		return nil, errs.Validation("malformed transaction signature %q", sig)
	}

	status, err := s.chain.SignatureStatus(ctx, sig)
	if err != nil {
		return nil, err
	}

	switch {
	case !status.Found || !status.Confirmed:
		return &chainSettlement{settlementResp: settlementResp{Status: verifier.Pending}}, nil
	case !status.Succeeded:
		return nil, errors.Wrapf(errs.ErrVerificationFailed, "transaction %s failed", sig)
	}

	return &chainSettlement{
		settlementResp: settlementResp{Status: verifier.Confirmed},
		slot:           status.Slot,
	}, nil
}

type verifyDepositReq struct {
	fileInfo
	From         string `json:"from"`
	CID          string `json:"cid"`
	TxHash       string `json:"tx_hash"`
	SizeBytes    uint64 `json:"size_bytes"`
	DurationDays uint64 `json:"duration_days"`
}

// VerifyDeposit handles the /deposit/verify request for USDFC payments.
// It blocks until the transfer is confirmed, rejected or timed out.
func (s *Service) VerifyDeposit(c *gin.Context, req *verifyDepositReq) (*settlementResp, error) {
	ctx := c.Request.Context()
	q, err := s.quotes.StablecoinCost(ctx, req.SizeBytes, req.DurationDays, quote.StablecoinDecimals)
	if err != nil {
		return nil, err
	}

	res, err := s.verifyPayment(ctx, req.From, req.TxHash, q.TotalSubunits)
	if err != nil {
		return nil, err
	}

	u, err := s.lifecycle.RecordDeposit(ctx, lifecycle.DepositRecord{
		Owner:        req.From,
		CID:          req.CID,
		DurationDays: q.EffectiveDays,
		Amount:       decimal.NewFromBigInt(res.Amount, 0),
		Chain:        orm.ChainFilecoin,
		Token:        tokenUSDFC,
		TxHash:       req.TxHash,
		Email:        req.Email,
		FileName:     req.FileName,
		FileType:     req.FileType,
		FileSize:     req.SizeBytes,
	})
	if err != nil {
		return nil, err
	}

	return &settlementResp{
		Status: res.Status,
		Upload: newUploadResp(u),
	}, nil
}

// verifyPayment checks that from paid at least amount USDFC to the
// configured wallet in txHash.
func (s *Service) verifyPayment(
	ctx context.Context,
	from, txHash string,
	amount *big.Int,
) (*verifier.Result, error) {
	if s.verifier == nil {
		return nil, errs.Validation("%v", errPaymentsDisabled)
	}

	cfg, err := s.lifecycle.PricingConfig(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.verifier.Verify(ctx, verifier.Expectation{
		TxHash: txHash,
		Amount: amount,
		From:   from,
		To:     cfg.FilecoinWallet,
		Token:  s.token,
	})
	if err != nil {
		return nil, err
	}

	if err := res.Err(); err != nil {
		return nil, err
	}

	return res, nil
}

type uploadResp struct {
	CID            string    `json:"cid"`
	Owner          string    `json:"owner"`
	Chain          string    `json:"chain"`
	Token          string    `json:"token"`
	DurationDays   uint32    `json:"duration_days"`
	DepositAmount  string    `json:"deposit_amount"`
	FileName       string    `json:"file_name,omitempty"`
	FileSize       uint64    `json:"file_size"`
	TxHash         string    `json:"tx_hash,omitempty"`
	DeletionStatus string    `json:"deletion_status"`
	ExpiresAt      string    `json:"expires_at"`
	CreatedAt      time.Time `json:"created_at"`
}

func newUploadResp(u *orm.Upload) *uploadResp {
	resp := &uploadResp{
		CID:            u.ContentCID,
		Owner:          u.DepositKey,
		Chain:          string(u.PaymentChain),
		Token:          u.PaymentToken,
		DurationDays:   u.DurationDays,
		DepositAmount:  util.FormatAmount(u.DepositAmount, tokenDecimals(u.PaymentChain), u.PaymentToken),
		FileName:       u.FileName,
		FileSize:       u.FileSize,
		DeletionStatus: string(u.DeletionStatus),
		ExpiresAt:      u.ExpiresAt.Format("2006-01-02"),
		CreatedAt:      u.CreatedAt,
	}
	if u.TransactionHash != nil {
		resp.TxHash = *u.TransactionHash
	}

	return resp
}

func tokenDecimals(chain orm.PaymentChain) int32 {
	if chain == orm.ChainFilecoin {
		return quote.StablecoinDecimals
	}

	return quote.NativeDecimals
}
