package transport

import (
	"fmt"
	"math/big"
)

// StakeableTokenType is the only token-type byte the default weigher
// accepts, per spec.md §9's design note on the production weight policy.
const StakeableTokenType = 1

// DefaultWeight is the fixed weight every accepted id contributes. The
// production policy does not vary weight by id beyond the type-byte
// gate; callers that need per-id weight tables should supply their own
// Weigher instead.
const DefaultWeight uint64 = 1

// TypeByteWeigher implements the production weight policy the design
// notes describe: extract the low-order byte of the id as a token-type
// discriminator, and accept only ids whose type byte equals
// StakeableTokenType. It is the default Weigher wired into the
// Controller when no table-lookup override is supplied.
type TypeByteWeigher struct{}

// WeightOf implements Weigher.
func (TypeByteWeigher) WeightOf(id *big.Int) (uint64, error) {
	if id == nil || id.Sign() < 0 {
		return 0, fmt.Errorf("transport: invalid token id")
	}
	typeByte := attributeByte(id)
	if typeByte != StakeableTokenType {
		return 0, fmt.Errorf("transport: token id %s has unsupported type byte %d", id, typeByte)
	}
	return DefaultWeight, nil
}

// attributeByte extracts the low-order byte of id, the type discriminator
// the production id layout reserves.
func attributeByte(id *big.Int) byte {
	if id.BitLen() == 0 {
		return 0
	}
	return byte(new(big.Int).And(id, big.NewInt(0xff)).Uint64())
}

// TableWeigher is the test-friendly substitute the design notes describe:
// a fixed id -> weight lookup table, with no type-byte gating.
type TableWeigher map[string]uint64

// WeightOf implements Weigher.
func (t TableWeigher) WeightOf(id *big.Int) (uint64, error) {
	w, ok := t[id.String()]
	if !ok {
		return 0, fmt.Errorf("transport: no weight configured for token id %s", id)
	}
	return w, nil
}
