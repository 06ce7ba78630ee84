package instruction

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/go-playground/validator/v10"
	"github.com/ipfs/go-cid"
	"github.com/pkg/errors"

	"github.com/photon-storage/photon-settlement/chain/pda"
	"github.com/photon-storage/photon-settlement/errs"
	"github.com/photon-storage/photon-settlement/quote"
	"github.com/photon-storage/photon-settlement/wire"
)

// Quoter prices deposits and renewals.
type Quoter interface {
	Quote(ctx context.Context, sizeBytes, requestedDays uint64) (*quote.Quote, error)
	RenewalCost(ctx context.Context, sizeBytes, additionalDays uint64) (*quote.Quote, error)
}

// DepositRequest asks for a deposit instruction. A nil AmountSubunits is
// filled from a fresh quote.
type DepositRequest struct {
	Owner          string  `json:"owner" validate:"required"`
	CID            string  `json:"cid" validate:"required"`
	SizeBytes      uint64  `json:"size_bytes" validate:"gt=0"`
	DurationDays   uint64  `json:"duration_days" validate:"gt=0"`
	AmountSubunits *uint64 `json:"amount_subunits,omitempty"`
}

// RenewalRequest asks for a renewal instruction. SizeBytes is only needed
// to price the extension when ExtensionCostSubunits is nil.
type RenewalRequest struct {
	Owner                 string  `json:"owner" validate:"required"`
	CID                   string  `json:"cid" validate:"required"`
	DurationDays          uint64  `json:"duration_days" validate:"gt=0"`
	SizeBytes             uint64  `json:"size_bytes" validate:"required_without=ExtensionCostSubunits"`
	ExtensionCostSubunits *uint64 `json:"extension_cost_subunits,omitempty"`
}

// Builder assembles escrow program instructions.
type Builder struct {
	accounts *pda.Resolver
	quoter   Quoter
	validate *validator.Validate
}

// NewBuilder returns a builder resolving accounts with r.
func NewBuilder(r *pda.Resolver, quoter Quoter) *Builder {
	return &Builder{
		accounts: r,
		quoter:   quoter,
		validate: validator.New(),
	}
}

// BuildDeposit returns the deposit instruction for req.
func (b *Builder) BuildDeposit(ctx context.Context, req DepositRequest) (*Descriptor, error) {
	if err := b.check(req); err != nil {
		return nil, err
	}

	owner, err := parseOwner(req.Owner)
	if err != nil {
		return nil, err
	}
	if err := checkCID(req.CID); err != nil {
		return nil, err
	}

	d := &Descriptor{ProgramID: b.accounts.Program()}
	duration := req.DurationDays
	if req.AmountSubunits != nil {
		d.AmountSubunits = *req.AmountSubunits
	} else {
		q, err := b.quoter.Quote(ctx, req.SizeBytes, req.DurationDays)
		if err != nil {
			return nil, err
		}
		d.Quote = q
		d.AmountSubunits = q.TotalCostSubunits
		duration = q.EffectiveDays
	}

	if d.Payload, err = wire.DepositPayload(req.CID, req.SizeBytes, duration); err != nil {
		return nil, err
	}

	if d.Accounts, err = b.ownerAccounts(owner, req.CID); err != nil {
		return nil, err
	}

	return d, nil
}

// BuildRenewal returns the renewal instruction for req.
func (b *Builder) BuildRenewal(ctx context.Context, req RenewalRequest) (*Descriptor, error) {
	if err := b.check(req); err != nil {
		return nil, err
	}

	owner, err := parseOwner(req.Owner)
	if err != nil {
		return nil, err
	}
	if err := checkCID(req.CID); err != nil {
		return nil, err
	}

	d := &Descriptor{ProgramID: b.accounts.Program()}
	if req.ExtensionCostSubunits != nil {
		d.AmountSubunits = *req.ExtensionCostSubunits
	} else {
		q, err := b.quoter.RenewalCost(ctx, req.SizeBytes, req.DurationDays)
		if err != nil {
			return nil, err
		}
		d.Quote = q
		d.AmountSubunits = q.TotalCostSubunits
	}

	if d.Payload, err = wire.RenewalPayload(req.DurationDays); err != nil {
		return nil, err
	}

	if d.Accounts, err = b.ownerAccounts(owner, req.CID); err != nil {
		return nil, err
	}

	return d, nil
}

// ConfigParams are the arguments of the config initialization instruction.
type ConfigParams struct {
	Admin           solana.PublicKey
	RateSubunits    uint64
	MinDurationDays uint64
	Withdrawal      solana.PublicKey
}

// BuildInitializeConfig returns the one-time config initialization
// instruction signed by the admin.
func (b *Builder) BuildInitializeConfig(p ConfigParams) (*Descriptor, error) {
	if p.Admin.IsZero() || p.Withdrawal.IsZero() {
		return nil, errs.Validation("admin and withdrawal wallets are required")
	}
	if p.MinDurationDays == 0 {
		return nil, errs.Validation("minimum duration must be positive")
	}

	payload, err := wire.InitializeConfigPayload(
		p.Admin.Bytes(), p.RateSubunits, p.MinDurationDays, p.Withdrawal.Bytes())
	if err != nil {
		return nil, err
	}

	config, err := b.accounts.Config()
	if err != nil {
		return nil, err
	}

	escrow, err := b.accounts.Escrow()
	if err != nil {
		return nil, err
	}

	return &Descriptor{
		ProgramID: b.accounts.Program(),
		Accounts: []AccountMeta{
			writable(config),
			writable(escrow),
			signer(p.Admin),
			readonly(solana.SystemProgramID),
		},
		Payload: payload,
	}, nil
}

// ownerAccounts returns the fixed account order shared by deposit and
// renewal: deposit, escrow, config, owner, system program.
func (b *Builder) ownerAccounts(owner solana.PublicKey, contentCID string) ([]AccountMeta, error) {
	deposit, err := b.accounts.Deposit(owner, contentCID)
	if err != nil {
		return nil, err
	}

	escrow, err := b.accounts.Escrow()
	if err != nil {
		return nil, err
	}

	config, err := b.accounts.Config()
	if err != nil {
		return nil, err
	}

	return []AccountMeta{
		writable(deposit),
		writable(escrow),
		readonly(config),
		signer(owner),
		readonly(solana.SystemProgramID),
	}, nil
}

func (b *Builder) check(req interface{}) error {
	err := b.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return errs.Validation("field %s failed %s", fe.Field(), fe.Tag())
	}

	return errs.Validation("%v", err)
}

func parseOwner(owner string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return solana.PublicKey{}, errs.Validation("owner %q is not a public key: %v", owner, err)
	}

	return pk, nil
}

func checkCID(s string) error {
	if _, err := cid.Decode(s); err != nil {
		return errs.Validation("cid %q is malformed: %v", s, err)
	}

	return nil
}
