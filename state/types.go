package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TokenInfo is the Token Registry entry for one NFT id (spec.md §3). Owner
// is the zero address when the token is not currently staked; weight is
// fixed at deposit time and never changes thereafter.
type TokenInfo struct {
	Owner         common.Address
	Weight        uint64
	DepositCycle  uint64
	WithdrawCycle uint64
}

// Staked reports whether the token currently has a non-zero owner.
func (t TokenInfo) Staked() bool {
	return t.Owner != (common.Address{})
}

// NextClaim is the per-staker Claim Cursor (spec.md §3). Period of 0 means
// "uninitialized" — the staker has never staked, or was re-initialized
// after exhausting claims with zero stake remaining.
type NextClaim struct {
	Period    uint64
	GlobalIdx uint64
	StakerIdx uint64
}

// Uninitialized reports whether this cursor has never been set.
func (n NextClaim) Uninitialized() bool {
	return n.Period == 0
}

// Scalars holds the engine-wide mutable fields outside the two histories:
// enablement, the one-shot start timestamp, and the running rewards pool.
type Scalars struct {
	Enabled          bool
	StartTimestamp   int64
	TotalRewardsPool *big.Int
}

func defaultScalars() Scalars {
	return Scalars{Enabled: true, TotalRewardsPool: big.NewInt(0)}
}
