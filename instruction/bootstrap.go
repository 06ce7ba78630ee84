package instruction

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/photon-storage/go-common/log"
)

// AccountReader checks settlement chain account existence.
type AccountReader interface {
	AccountExists(ctx context.Context, addr solana.PublicKey) (bool, error)
}

// InstructionSigner signs d with the keys it holds and submits it,
// returning the transaction signature.
type InstructionSigner interface {
	SignAndSend(ctx context.Context, d *Descriptor) (string, error)
}

// EnsureConfig submits the config initialization instruction unless the
// config account already exists. It returns the signature of the
// submitted transaction, or "" when nothing was sent.
func (b *Builder) EnsureConfig(
	ctx context.Context,
	reader AccountReader,
	signer InstructionSigner,
	p ConfigParams,
) (string, error) {
	config, err := b.accounts.Config()
	if err != nil {
		return "", err
	}

	exists, err := reader.AccountExists(ctx, config)
	if err != nil {
		return "", errors.Wrap(err, "check config account")
	}

	if exists {
		log.Info("config account already initialized", "address", config.String())
		return "", nil
	}

	d, err := b.BuildInitializeConfig(p)
	if err != nil {
		return "", err
	}

	sig, err := signer.SignAndSend(ctx, d)
	if err != nil {
		return "", errors.Wrap(err, "submit config initialization")
	}

	log.Info("config account initialized",
		"address", config.String(), "signature", sig)
	return sig, nil
}
