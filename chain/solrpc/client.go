// Package solrpc talks to the settlement chain: account and balance reads,
// signature status lookups, and admin transaction submission.
package solrpc

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"

	"github.com/photon-storage/photon-settlement/instruction"
)

const (
	// MainnetRPC is the public mainnet-beta endpoint.
	MainnetRPC = rpc.MainNetBeta_RPC
	// DevnetRPC is the public devnet endpoint.
	DevnetRPC = rpc.DevNet_RPC

	requestTimeout = 15 * time.Second
)

// Client wraps the settlement chain RPC.
type Client struct {
	rpc        *rpc.Client
	commitment rpc.CommitmentType
	admin      *solana.PrivateKey
}

// NewClient returns a client for endpoint. The admin key may be nil when
// the process never submits transactions.
func NewClient(endpoint string, admin *solana.PrivateKey) *Client {
	return &Client{
		rpc:        rpc.New(endpoint),
		commitment: rpc.CommitmentConfirmed,
		admin:      admin,
	}
}

// AccountExists reports whether addr holds an account.
func (c *Client) AccountExists(ctx context.Context, addr solana.PublicKey) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	_, err := c.rpc.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "get account %s", addr)
	}

	return true, nil
}

// Balance returns the lamports held by addr.
func (c *Client) Balance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := c.rpc.GetBalance(ctx, addr, c.commitment)
	if err != nil {
		return 0, errors.Wrapf(err, "get balance %s", addr)
	}

	return res.Value, nil
}

// SignatureStatus is the landing state of a submitted transaction.
type SignatureStatus struct {
	Found     bool
	Slot      uint64
	Succeeded bool
	Confirmed bool
}

// SignatureStatus looks up sig, searching history for older transactions.
func (c *Client) SignatureStatus(ctx context.Context, sig string) (*SignatureStatus, error) {
	s, err := solana.SignatureFromBase58(sig)
	if err != nil {
		return nil, errors.Wrapf(err, "parse signature %q", sig)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := c.rpc.GetSignatureStatuses(ctx, true, s)
	if err != nil {
		return nil, errors.Wrapf(err, "get signature status %s", sig)
	}

	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return &SignatureStatus{}, nil
	}

	v := res.Value[0]
	return &SignatureStatus{
		Found:     true,
		Slot:      v.Slot,
		Succeeded: v.Err == nil,
		Confirmed: v.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
			v.ConfirmationStatus == rpc.ConfirmationStatusFinalized,
	}, nil
}

// SignAndSend implements instruction.InstructionSigner with the admin key.
// The admin pays the fee and must be the only signer.
func (c *Client) SignAndSend(ctx context.Context, d *instruction.Descriptor) (string, error) {
	if c.admin == nil {
		return "", errors.New("no admin key configured")
	}

	adminPub := c.admin.PublicKey()
	for _, s := range d.Signers() {
		if !s.Equals(adminPub) {
			return "", errors.Errorf("instruction needs signer %s", s)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	recent, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", errors.Wrap(err, "get latest blockhash")
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{d.Instruction()},
		recent.Value.Blockhash,
		solana.TransactionPayer(adminPub),
	)
	if err != nil {
		return "", errors.Wrap(err, "build transaction")
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(adminPub) {
			return c.admin
		}
		return nil
	}); err != nil {
		return "", errors.Wrap(err, "sign transaction")
	}

	sig, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		return "", errors.Wrap(err, "send transaction")
	}

	return sig.String(), nil
}

var _ instruction.InstructionSigner = (*Client)(nil)
var _ instruction.AccountReader = (*Client)(nil)
