// Package state persists the staking engine's entities (spec.md §3) to a
// durable key/value store, following the teacher's core/state/manager.go
// pattern: package-level key variables, RLP-encoded values, one
// narrow Store method per entity.
package state

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"nftstaking/snapshot"
	"nftstaking/storage"
)

// Store wraps a storage.Database with typed accessors for every entity
// the engine persists.
type Store struct {
	db storage.Database
}

// New constructs a Store over the given backend.
func New(db storage.Database) *Store {
	return &Store{db: db}
}

// GlobalHistory loads the global total-weight history.
func (s *Store) GlobalHistory() (*snapshot.History, error) {
	data, err := s.getOrEmpty(globalHistoryKeyBytes)
	if err != nil {
		return nil, err
	}
	return decodeHistory(data)
}

// PutGlobalHistory persists the global total-weight history.
func (s *Store) PutGlobalHistory(h *snapshot.History) error {
	data, err := encodeHistory(h)
	if err != nil {
		return err
	}
	return s.db.Put(globalHistoryKeyBytes, data)
}

// StakerHistory loads the per-staker history for addr.
func (s *Store) StakerHistory(addr common.Address) (*snapshot.History, error) {
	data, err := s.getOrEmpty(stakerHistoryKey(addr))
	if err != nil {
		return nil, err
	}
	return decodeHistory(data)
}

// PutStakerHistory persists the per-staker history for addr.
func (s *Store) PutStakerHistory(addr common.Address, h *snapshot.History) error {
	data, err := encodeHistory(h)
	if err != nil {
		return err
	}
	return s.db.Put(stakerHistoryKey(addr), data)
}

// TokenInfo loads the registry entry for id. A never-staked id returns
// the zero-value TokenInfo with ok=false.
func (s *Store) TokenInfo(id *big.Int) (info TokenInfo, ok bool, err error) {
	data, err := s.db.Get(tokenInfoKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return TokenInfo{}, false, nil
	}
	if err != nil {
		return TokenInfo{}, false, err
	}
	info, err = decodeTokenInfo(data)
	if err != nil {
		return TokenInfo{}, false, err
	}
	return info, true, nil
}

// PutTokenInfo persists the registry entry for id.
func (s *Store) PutTokenInfo(id *big.Int, info TokenInfo) error {
	data, err := encodeTokenInfo(info)
	if err != nil {
		return err
	}
	return s.db.Put(tokenInfoKey(id), data)
}

// NextClaim loads the claim cursor for addr. An unset cursor returns the
// zero value (Period 0, "uninitialized").
func (s *Store) NextClaim(addr common.Address) (NextClaim, error) {
	data, err := s.db.Get(nextClaimKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return NextClaim{}, nil
	}
	if err != nil {
		return NextClaim{}, err
	}
	return decodeNextClaim(data)
}

// PutNextClaim persists the claim cursor for addr.
func (s *Store) PutNextClaim(addr common.Address, c NextClaim) error {
	data, err := encodeNextClaim(c)
	if err != nil {
		return err
	}
	return s.db.Put(nextClaimKey(addr), data)
}

// RewardsSchedule loads the rewards_per_cycle budget for period. An
// unscheduled period returns zero.
func (s *Store) RewardsSchedule(period uint64) (*big.Int, error) {
	data, err := s.db.Get(rewardsScheduleKey(period))
	if errors.Is(err, storage.ErrNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return decodeBigInt(data)
}

// PutRewardsSchedule persists the rewards_per_cycle budget for period.
func (s *Store) PutRewardsSchedule(period uint64, rewardsPerCycle *big.Int) error {
	data, err := encodeBigInt(rewardsPerCycle)
	if err != nil {
		return err
	}
	return s.db.Put(rewardsScheduleKey(period), data)
}

// Scalars loads the engine-wide mutable scalars. Absent state returns
// sensible defaults (enabled, zero pool, not started).
func (s *Store) Scalars() (Scalars, error) {
	data, err := s.db.Get(scalarsKeyBytes)
	if errors.Is(err, storage.ErrNotFound) {
		return defaultScalars(), nil
	}
	if err != nil {
		return Scalars{}, err
	}
	return decodeScalars(data)
}

// PutScalars persists the engine-wide mutable scalars.
func (s *Store) PutScalars(scalars Scalars) error {
	data, err := encodeScalars(scalars)
	if err != nil {
		return err
	}
	return s.db.Put(scalarsKeyBytes, data)
}

func (s *Store) getOrEmpty(key []byte) ([]byte, error) {
	data, err := s.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}
