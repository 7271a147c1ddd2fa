// Package transport defines the external collaborators spec.md §6
// delegates to: the NFT custody transport, the reward-token transport,
// and the pluggable weight-derivation policy. The engine only ever holds
// these as interfaces; production wiring and test doubles both live
// outside this module.
package transport

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Ack is the opaque acknowledgment token the receiver hooks must return
// to confirm acceptance of an incoming transfer, mirroring the magic
// return values ERC-721-style receiver hooks use.
type Ack [4]byte

var (
	// AckSingle is returned by OnSingleReceived on success.
	AckSingle = Ack{0x15, 0x0b, 0x7a, 0x02}
	// AckBatch is returned by OnBatchReceived on success.
	AckBatch = Ack{0x4b, 0x80, 0x8f, 0x2b}
)

// NFT is the whitelisted asset-transport contract the Controller moves
// staked tokens through. SafeTransferFrom is always attempted first; a
// receiver-callback failure falls back to the unsafe TransferFrom per
// spec.md §6.
type NFT interface {
	SafeTransferFrom(from, to common.Address, id *big.Int, value uint64, data []byte) error
	TransferFrom(from, to common.Address, id *big.Int) error
}

// RewardToken is the minimal value-token transport used to fund the
// rewards pool and to pay out claims. Both methods report success via
// their boolean return, which the Controller MUST check.
type RewardToken interface {
	TransferFrom(sender, recipient common.Address, amount *big.Int) (bool, error)
	Transfer(recipient common.Address, amount *big.Int) (bool, error)
}

// Weigher derives the fixed integer weight an NFT id contributes once
// staked. Implementations may reject an id outright (e.g. an unsupported
// token-type byte) by returning a non-nil error.
type Weigher interface {
	WeightOf(id *big.Int) (uint64, error)
}

// WeigherFunc adapts a bare function to the Weigher interface.
type WeigherFunc func(id *big.Int) (uint64, error)

// WeightOf implements Weigher.
func (f WeigherFunc) WeightOf(id *big.Int) (uint64, error) {
	return f(id)
}
