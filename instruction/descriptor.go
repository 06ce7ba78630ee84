// Package instruction assembles unsigned escrow program instructions for
// clients to sign and submit.
package instruction

import (
	"github.com/gagliardetto/solana-go"

	"github.com/photon-storage/photon-settlement/quote"
)

// AccountMeta is one account reference of an instruction.
type AccountMeta struct {
	Address    solana.PublicKey `json:"pubkey"`
	IsSigner   bool             `json:"is_signer"`
	IsWritable bool             `json:"is_writable"`
}

// Descriptor is a transport-neutral instruction. AmountSubunits is what the
// signer must fund; it is not part of Payload.
type Descriptor struct {
	ProgramID      solana.PublicKey `json:"program_id"`
	Accounts       []AccountMeta    `json:"accounts"`
	Payload        []byte           `json:"payload"`
	AmountSubunits uint64           `json:"amount_subunits"`
	Quote          *quote.Quote     `json:"quote,omitempty"`
}

// Instruction converts d for the settlement chain SDK.
func (d *Descriptor) Instruction() solana.Instruction {
	metas := make(solana.AccountMetaSlice, len(d.Accounts))
	for i, a := range d.Accounts {
		metas[i] = solana.NewAccountMeta(a.Address, a.IsWritable, a.IsSigner)
	}

	return solana.NewInstruction(d.ProgramID, metas, d.Payload)
}

// Signers returns the accounts that must sign, in order.
func (d *Descriptor) Signers() []solana.PublicKey {
	var signers []solana.PublicKey
	for _, a := range d.Accounts {
		if a.IsSigner {
			signers = append(signers, a.Address)
		}
	}

	return signers
}

func writable(addr solana.PublicKey) AccountMeta {
	return AccountMeta{Address: addr, IsWritable: true}
}

func readonly(addr solana.PublicKey) AccountMeta {
	return AccountMeta{Address: addr}
}

func signer(addr solana.PublicKey) AccountMeta {
	return AccountMeta{Address: addr, IsSigner: true, IsWritable: true}
}
