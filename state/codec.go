package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"nftstaking/snapshot"
)

// storedSnapshot is the RLP-encodable shape of a snapshot.Snapshot: the
// in-memory type carries a *uint256.Int, which RLP does not know how to
// encode, so persistence goes through *big.Int instead.
type storedSnapshot struct {
	Stake      *big.Int
	StartCycle uint64
}

type storedHistory struct {
	Entries []storedSnapshot
}

func encodeHistory(h *snapshot.History) ([]byte, error) {
	entries := h.Entries()
	stored := storedHistory{Entries: make([]storedSnapshot, len(entries))}
	for i, e := range entries {
		stored.Entries[i] = storedSnapshot{Stake: e.Stake.ToBig(), StartCycle: e.StartCycle}
	}
	return rlp.EncodeToBytes(&stored)
}

func decodeHistory(data []byte) (*snapshot.History, error) {
	if len(data) == 0 {
		return snapshot.New(), nil
	}
	var stored storedHistory
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return nil, err
	}
	entries := make([]snapshot.Snapshot, len(stored.Entries))
	for i, e := range stored.Entries {
		stake, overflow := uint256.FromBig(e.Stake)
		if overflow {
			stake = uint256.NewInt(0)
		}
		entries[i] = snapshot.Snapshot{Stake: stake, StartCycle: e.StartCycle}
	}
	return snapshot.FromEntries(entries), nil
}

type storedTokenInfo struct {
	Owner         common.Address
	Weight        uint64
	DepositCycle  uint64
	WithdrawCycle uint64
}

func encodeTokenInfo(info TokenInfo) ([]byte, error) {
	stored := storedTokenInfo{
		Owner:         info.Owner,
		Weight:        info.Weight,
		DepositCycle:  info.DepositCycle,
		WithdrawCycle: info.WithdrawCycle,
	}
	return rlp.EncodeToBytes(&stored)
}

func decodeTokenInfo(data []byte) (TokenInfo, error) {
	var stored storedTokenInfo
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return TokenInfo{}, err
	}
	return TokenInfo{
		Owner:         stored.Owner,
		Weight:        stored.Weight,
		DepositCycle:  stored.DepositCycle,
		WithdrawCycle: stored.WithdrawCycle,
	}, nil
}

type storedNextClaim struct {
	Period    uint64
	GlobalIdx uint64
	StakerIdx uint64
}

func encodeNextClaim(c NextClaim) ([]byte, error) {
	stored := storedNextClaim(c)
	return rlp.EncodeToBytes(&stored)
}

func decodeNextClaim(data []byte) (NextClaim, error) {
	var stored storedNextClaim
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return NextClaim{}, err
	}
	return NextClaim(stored), nil
}

// storedScalars keeps StartTimestamp as uint64 because RLP has no encoding
// for signed integers.
type storedScalars struct {
	Enabled          bool
	StartTimestamp   uint64
	TotalRewardsPool *big.Int
}

func encodeScalars(s Scalars) ([]byte, error) {
	pool := s.TotalRewardsPool
	if pool == nil {
		pool = big.NewInt(0)
	}
	stored := storedScalars{Enabled: s.Enabled, StartTimestamp: uint64(s.StartTimestamp), TotalRewardsPool: pool}
	return rlp.EncodeToBytes(&stored)
}

func decodeScalars(data []byte) (Scalars, error) {
	var stored storedScalars
	if err := rlp.DecodeBytes(data, &stored); err != nil {
		return Scalars{}, err
	}
	return Scalars{Enabled: stored.Enabled, StartTimestamp: int64(stored.StartTimestamp), TotalRewardsPool: stored.TotalRewardsPool}, nil
}

func encodeBigInt(v *big.Int) ([]byte, error) {
	if v == nil {
		v = big.NewInt(0)
	}
	return rlp.EncodeToBytes(v)
}

func decodeBigInt(data []byte) (*big.Int, error) {
	v := new(big.Int)
	if err := rlp.DecodeBytes(data, v); err != nil {
		return nil, err
	}
	return v, nil
}
