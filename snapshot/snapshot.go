// Package snapshot implements the append-only piecewise-constant stake
// history described in spec.md §4.2 — the primitive shared by the global
// total-weight history and every per-staker history. A History is a
// sequence of Snapshots, each naming the cycle at which a new constant
// stake value took effect; the value holds until the next entry's
// start_cycle (or forever, for the last entry).
package snapshot

import (
	"fmt"

	"github.com/holiman/uint256"

	stakeerrors "nftstaking/errors"
)

// Snapshot is one piecewise-constant segment: stake holds from StartCycle
// up to (but not including) the next entry's StartCycle.
type Snapshot struct {
	Stake      *uint256.Int
	StartCycle uint64
}

// History is an ordered, append-only sequence of Snapshots. Entries are
// never removed; start_cycle strictly increases across the slice except
// for in-place coalescing of the tail entry (§4.2 invariant).
type History struct {
	entries []Snapshot
}

// New constructs an empty history.
func New() *History {
	return &History{}
}

// Len returns the number of segments recorded.
func (h *History) Len() int {
	return len(h.entries)
}

// At returns the segment at index, and whether it exists.
func (h *History) At(index int) (Snapshot, bool) {
	if index < 0 || index >= len(h.entries) {
		return Snapshot{}, false
	}
	return h.entries[index], true
}

// Last returns the history's final segment, failing with ErrEmptyHistory
// if the history has never been written to.
func (h *History) Last() (Snapshot, error) {
	if len(h.entries) == 0 {
		return Snapshot{}, stakeerrors.ErrEmptyHistory
	}
	return h.entries[len(h.entries)-1], nil
}

// LastIndex returns the index of the final segment, failing with
// ErrEmptyHistory if empty — the public read-surface operation spec.md
// §6 names as last_global_snapshot_index / last_staker_snapshot_index.
func (h *History) LastIndex() (int, error) {
	if len(h.entries) == 0 {
		return 0, stakeerrors.ErrEmptyHistory
	}
	return len(h.entries) - 1, nil
}

// StakeAt returns the piecewise-constant stake value in effect at cycle c,
// i.e. the Stake of the entry with the greatest StartCycle <= c. Returns
// zero if c precedes the history's first segment or the history is empty.
func (h *History) StakeAt(c uint64) *uint256.Int {
	var result *uint256.Int
	for i := range h.entries {
		if h.entries[i].StartCycle > c {
			break
		}
		result = h.entries[i].Stake
	}
	if result == nil {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Set(result)
}

// Update applies a signed stake delta at currentCycle, either coalescing
// into the current-cycle tail or appending a new segment, per the
// update(history, Δstake, current_cycle) operation of spec.md §4.2. It
// returns the index of the (possibly newly created) tail entry.
//
// Arithmetic is checked end to end: an empty history requires a positive
// delta, and the new total must neither overflow nor underflow the
// unsigned 256-bit representation.
func (h *History) Update(delta int64, currentCycle uint64) (int, error) {
	if len(h.entries) == 0 {
		if delta <= 0 {
			return 0, fmt.Errorf("snapshot: first update to an empty history must be positive: %w", stakeerrors.ErrUnderflow)
		}
		stake := uint256.NewInt(uint64(delta))
		h.entries = append(h.entries, Snapshot{Stake: stake, StartCycle: currentCycle})
		return 0, nil
	}

	tailIdx := len(h.entries) - 1
	tail := h.entries[tailIdx]

	newStake, err := applyDelta(tail.Stake, delta)
	if err != nil {
		return 0, err
	}

	if tail.StartCycle == currentCycle {
		h.entries[tailIdx].Stake = newStake
		return tailIdx, nil
	}

	if currentCycle < tail.StartCycle {
		return 0, fmt.Errorf("snapshot: cycle %d precedes tail start_cycle %d", currentCycle, tail.StartCycle)
	}

	h.entries = append(h.entries, Snapshot{Stake: newStake, StartCycle: currentCycle})
	return len(h.entries) - 1, nil
}

// applyDelta adds a signed delta to an unsigned 256-bit stake, detecting
// overflow on the way up and underflow on the way down.
func applyDelta(stake *uint256.Int, delta int64) (*uint256.Int, error) {
	result := new(uint256.Int)
	if delta >= 0 {
		if result.AddOverflow(stake, uint256.NewInt(uint64(delta))) {
			return nil, stakeerrors.ErrOverflow
		}
		return result, nil
	}
	magnitude := uint256.NewInt(uint64(-delta))
	if magnitude.Cmp(stake) > 0 {
		return nil, stakeerrors.ErrUnderflow
	}
	result.Sub(stake, magnitude)
	return result, nil
}

// ZeroPrefix overwrites segments [0, upTo) with the zero value. This is
// the storage-reclaim optimization spec.md §4.4/§9 describes: semantically
// inert because the Claim Engine never re-reads a segment once its
// staker_idx cursor has advanced past it.
func (h *History) ZeroPrefix(upTo int) {
	for i := 0; i < upTo && i < len(h.entries); i++ {
		h.entries[i] = Snapshot{Stake: uint256.NewInt(0), StartCycle: 0}
	}
}

// Entries returns a defensive copy of the underlying segment slice, for
// encoding and for the Claim Engine's read-only walk.
func (h *History) Entries() []Snapshot {
	cp := make([]Snapshot, len(h.entries))
	copy(cp, h.entries)
	return cp
}

// FromEntries reconstructs a History from a previously-encoded slice.
func FromEntries(entries []Snapshot) *History {
	return &History{entries: entries}
}
