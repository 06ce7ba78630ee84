// Package pda derives the program-owned account addresses used by the
// escrow program.
package pda

import (
	"crypto/sha256"
	"strings"

	"github.com/gagliardetto/solana-go"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

const (
	// MaxSeedLength is the per-seed byte bound of the settlement chain.
	MaxSeedLength = 32

	configSeed  = "config"
	escrowSeed  = "escrow"
	depositSeed = "deposit"
)

// AddressDeriver maps (domain seed, variable seeds, program id) to an
// address. Implementations must be pure.
type AddressDeriver interface {
	Derive(
		domainSeed string,
		variableSeeds [][]byte,
		programID solana.PublicKey,
	) (solana.PublicKey, error)
}

// ProgramDeriver finds the canonical off-curve program address.
type ProgramDeriver struct{}

// Derive implements AddressDeriver. Seeds over MaxSeedLength are replaced
// by their SHA-256 digest, never truncated.
func (ProgramDeriver) Derive(
	domainSeed string,
	variableSeeds [][]byte,
	programID solana.PublicKey,
) (solana.PublicKey, error) {
	seeds := make([][]byte, 0, len(variableSeeds)+1)
	seeds = append(seeds, boundSeed([]byte(domainSeed)))
	for _, s := range variableSeeds {
		seeds = append(seeds, boundSeed(s))
	}

	addr, _, err := solana.FindProgramAddress(seeds, programID)
	if err != nil {
		return solana.PublicKey{}, errors.Wrapf(err, "derive %s address", domainSeed)
	}

	return addr, nil
}

func boundSeed(seed []byte) []byte {
	if len(seed) <= MaxSeedLength {
		return seed
	}

	sum := sha256.Sum256(seed)
	return sum[:]
}

// CachedDeriver memoizes another deriver.
type CachedDeriver struct {
	next  AddressDeriver
	cache *lru.Cache[string, solana.PublicKey]
}

// NewCachedDeriver wraps next with an LRU cache of the given size.
func NewCachedDeriver(next AddressDeriver, size int) (*CachedDeriver, error) {
	cache, err := lru.New[string, solana.PublicKey](size)
	if err != nil {
		return nil, errors.Wrap(err, "create address cache")
	}

	return &CachedDeriver{next: next, cache: cache}, nil
}

// Derive implements AddressDeriver.
func (d *CachedDeriver) Derive(
	domainSeed string,
	variableSeeds [][]byte,
	programID solana.PublicKey,
) (solana.PublicKey, error) {
	key := cacheKey(domainSeed, variableSeeds, programID)
	if addr, ok := d.cache.Get(key); ok {
		return addr, nil
	}

	addr, err := d.next.Derive(domainSeed, variableSeeds, programID)
	if err != nil {
		return solana.PublicKey{}, err
	}

	d.cache.Add(key, addr)
	return addr, nil
}

func cacheKey(domainSeed string, variableSeeds [][]byte, programID solana.PublicKey) string {
	var b strings.Builder
	b.Write(programID[:])
	b.WriteString(domainSeed)
	for _, s := range variableSeeds {
		// Length prefix keeps ["ab","c"] and ["a","bc"] apart.
		b.WriteByte(byte(len(s)))
		b.WriteByte(byte(len(s) >> 8))
		b.Write(s)
	}

	return b.String()
}

// CIDSeed returns the fixed-width seed for a content identifier.
func CIDSeed(cid string) []byte {
	sum := sha256.Sum256([]byte(cid))
	return sum[:]
}

// Resolver resolves the fixed set of escrow program accounts.
type Resolver struct {
	deriver AddressDeriver
	program solana.PublicKey
}

// NewResolver returns a resolver for the given program.
func NewResolver(deriver AddressDeriver, program solana.PublicKey) *Resolver {
	return &Resolver{
		deriver: deriver,
		program: program,
	}
}

// Program returns the program id addresses are derived under.
func (r *Resolver) Program() solana.PublicKey {
	return r.program
}

// Config returns the singleton config account.
func (r *Resolver) Config() (solana.PublicKey, error) {
	return r.deriver.Derive(configSeed, nil, r.program)
}

// Escrow returns the singleton escrow vault.
func (r *Resolver) Escrow() (solana.PublicKey, error) {
	return r.deriver.Derive(escrowSeed, nil, r.program)
}

// Deposit returns the deposit account of (owner, cid).
func (r *Resolver) Deposit(owner solana.PublicKey, cid string) (solana.PublicKey, error) {
	return r.deriver.Derive(
		depositSeed,
		[][]byte{owner.Bytes(), CIDSeed(cid)},
		r.program,
	)
}
