package service

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/photon-storage/photon-settlement/api/pagination"
	"github.com/photon-storage/photon-settlement/api/util"
	"github.com/photon-storage/photon-settlement/database/orm"
	"github.com/photon-storage/photon-settlement/errs"
)

type uploadsReq struct {
	Owner string `form:"owner"`
	Chain string `form:"chain"`
}

// Uploads handles the /uploads request.
func (s *Service) Uploads(
	c *gin.Context,
	req *uploadsReq,
	page *pagination.Query,
) (*pagination.Result, error) {
	if req.Owner == "" {
		return nil, errs.Validation("missing owner")
	}

	chain, err := parseChain(req.Chain, true)
	if err != nil {
		return nil, err
	}

	ups, count, err := s.lifecycle.UploadsByOwner(
		c.Request.Context(), req.Owner, chain, page.Start, page.Limit)
	if err != nil {
		return nil, err
	}

	resps := make([]*uploadResp, len(ups))
	for i, u := range ups {
		resps[i] = newUploadResp(u)
	}

	return &pagination.Result{
		Data:  resps,
		Total: count,
	}, nil
}

type transactionsReq struct {
	CID string `form:"cid"`
}

type transactionResp struct {
	Hash         string    `json:"hash"`
	Type         string    `json:"type"`
	Amount       string    `json:"amount"`
	DurationDays uint32    `json:"duration_days"`
	CreatedAt    time.Time `json:"created_at"`
}

// Transactions handles the /transactions request.
func (s *Service) Transactions(c *gin.Context, req *transactionsReq) ([]*transactionResp, error) {
	if req.CID == "" {
		return nil, errs.Validation("missing cid")
	}

	u, err := s.lifecycle.Upload(c.Request.Context(), req.CID)
	if err != nil {
		return nil, err
	}

	txs, err := s.lifecycle.Transactions(c.Request.Context(), req.CID)
	if err != nil {
		return nil, err
	}

	decimals := tokenDecimals(u.PaymentChain)
	resps := make([]*transactionResp, len(txs))
	for i, tx := range txs {
		resps[i] = &transactionResp{
			Hash:         tx.TransactionHash,
			Type:         tx.TransactionType.String(),
			Amount:       util.FormatAmount(tx.Amount, decimals, u.PaymentToken),
			DurationDays: tx.DurationDays,
			CreatedAt:    tx.CreatedAt,
		}
	}

	return resps, nil
}

const (
	sourceLedger = "ledger"
	sourceChain  = "chain"
)

type escrowReq struct {
	Chain  string `form:"chain"`
	Source string `form:"source"`
}

type escrowResp struct {
	Chain    string `json:"chain"`
	Source   string `json:"source"`
	Subunits string `json:"subunits"`
	Balance  string `json:"balance"`
}

// EscrowBalance handles the /escrow/balance request. The ledger source
// recomputes the balance from stored rows; the chain source reads the
// escrow account directly and only exists for the settlement chain.
func (s *Service) EscrowBalance(c *gin.Context, req *escrowReq) (*escrowResp, error) {
	chain, err := parseChain(req.Chain, false)
	if err != nil {
		return nil, err
	}

	source := req.Source
	if source == "" {
		source = sourceLedger
	}

	var balance decimal.Decimal
	switch source {
	case sourceLedger:
		if balance, err = s.lifecycle.EscrowBalance(c.Request.Context(), chain); err != nil {
			return nil, err
		}

	case sourceChain:
		if chain != orm.ChainSolana {
			return nil, errs.Validation("chain balance is only available for %s", orm.ChainSolana)
		}
		escrow, err := s.accounts.Escrow()
		if err != nil {
			return nil, err
		}
		lamportBalance, err := s.chain.Balance(c.Request.Context(), escrow)
		if err != nil {
			return nil, err
		}
		balance = lamports(lamportBalance)

	default:
		return nil, errs.Validation("unknown balance source %q", req.Source)
	}

	symbol := tokenSOL
	if chain == orm.ChainFilecoin {
		symbol = tokenUSDFC
	}

	return &escrowResp{
		Chain:    string(chain),
		Source:   source,
		Subunits: balance.String(),
		Balance:  util.FormatAmount(balance, tokenDecimals(chain), symbol),
	}, nil
}

// parseChain accepts "sol" and "fil". An empty value is every chain when
// allowAll is set and the settlement chain otherwise.
func parseChain(s string, allowAll bool) (orm.PaymentChain, error) {
	switch orm.PaymentChain(s) {
	case "":
		if allowAll {
			return "", nil
		}
		return orm.ChainSolana, nil
	case orm.ChainSolana, orm.ChainFilecoin:
		return orm.PaymentChain(s), nil
	}

	return "", errs.Validation("unknown chain %s", strconv.Quote(s))
}
