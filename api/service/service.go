package service

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/photon-storage/photon-settlement/chain/pda"
	"github.com/photon-storage/photon-settlement/chain/solrpc"
	"github.com/photon-storage/photon-settlement/instruction"
	"github.com/photon-storage/photon-settlement/lifecycle"
	"github.com/photon-storage/photon-settlement/quote"
	"github.com/photon-storage/photon-settlement/verifier"
)

// ChainReader reads settlement chain state.
type ChainReader interface {
	SignatureStatus(ctx context.Context, sig string) (*solrpc.SignatureStatus, error)
	Balance(ctx context.Context, addr solana.PublicKey) (uint64, error)
}

// PaymentVerifier confirms alternate-chain payments.
type PaymentVerifier interface {
	Verify(ctx context.Context, exp verifier.Expectation) (*verifier.Result, error)
}

// Deps are the components a Service forwards to.
type Deps struct {
	Lifecycle *lifecycle.Manager
	Quotes    *quote.Calculator
	Prices    quote.PriceSource
	Builder   *instruction.Builder
	Accounts  *pda.Resolver
	Chain     ChainReader
	// Verifier is nil when alternate-chain payments are disabled.
	Verifier PaymentVerifier
	// StablecoinToken is the USDFC contract address.
	StablecoinToken string
}

// Service defines an instance of service that handles third-party requests.
type Service struct {
	lifecycle *lifecycle.Manager
	quotes    *quote.Calculator
	prices    quote.PriceSource
	builder   *instruction.Builder
	accounts  *pda.Resolver
	chain     ChainReader
	verifier  PaymentVerifier
	token     string
}

// New creates a new service instance.
func New(d Deps) *Service {
	return &Service{
		lifecycle: d.Lifecycle,
		quotes:    d.Quotes,
		prices:    d.Prices,
		builder:   d.Builder,
		accounts:  d.Accounts,
		chain:     d.Chain,
		verifier:  d.Verifier,
		token:     d.StablecoinToken,
	}
}

type pingResp struct {
	Pong string `json:"pong"`
}

func (s *Service) Ping(_ *gin.Context) (*pingResp, error) {
	return &pingResp{Pong: "pong"}, nil
}
