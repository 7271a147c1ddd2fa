// Package claim implements the Claim Engine (spec.md §4.4) — the
// period-by-period, segment-by-segment walker over the global and
// per-staker snapshot histories that computes the reward owed to a
// staker for up to max_periods past completed periods, and the resumable
// cursor that lets the next claim pick up where this one left off.
package claim

import (
	"math/big"

	"nftstaking/snapshot"
	"nftstaking/state"
	"nftstaking/timegrid"
)

// Computed is the result of one claim/estimate walk.
type Computed struct {
	StartPeriod uint64
	Periods     uint64
	Amount      *big.Int
}

// ScheduleLookup resolves a period's rewards_per_cycle budget. The engine
// treats an unscheduled period as zero, matching state.Store's default.
type ScheduleLookup func(period uint64) (*big.Int, error)

// segment is the engine's working view of one history's current position:
// the active snapshot and the sentinel-or-real following one.
type segment struct {
	stake      *big.Int
	startCycle uint64
	nextStake  *big.Int
	nextStart  uint64 // 0 means "no next segment"
	idx        uint64
}

func loadSegment(h *snapshot.History, idx uint64) segment {
	seg := segment{stake: big.NewInt(0), idx: idx}
	if cur, ok := h.At(int(idx)); ok {
		seg.stake = cur.Stake.ToBig()
		seg.startCycle = cur.StartCycle
	}
	if next, ok := h.At(int(idx) + 1); ok {
		seg.nextStake = next.Stake.ToBig()
		seg.nextStart = next.StartCycle
	}
	return seg
}

func (s *segment) advance(h *snapshot.History) {
	s.idx++
	s.stake = s.nextStake
	if s.stake == nil {
		s.stake = big.NewInt(0)
	}
	s.startCycle = s.nextStart
	s.nextStake = nil
	s.nextStart = 0
	if next, ok := h.At(int(s.idx) + 1); ok {
		s.nextStake = next.Stake.ToBig()
		s.nextStart = next.StartCycle
	}
}

// Walk computes the reward owed for periods [cursor.Period, endPeriod) and
// returns the result alongside the advanced cursor. It performs no
// storage writes; callers (the Controller's claim() and estimate()
// operations) decide whether to persist the new cursor.
func Walk(grid *timegrid.Grid, global, staker *snapshot.History, schedule ScheduleLookup, cursor state.NextClaim, currentPeriod uint64, maxPeriods uint64) (Computed, state.NextClaim, error) {
	zero := Computed{Amount: big.NewInt(0)}

	if maxPeriods == 0 || global.Len() == 0 || cursor.Uninitialized() || cursor.Period == currentPeriod {
		return zero, cursor, nil
	}

	remaining := currentPeriod - cursor.Period
	periodsToClaim := maxPeriods
	if remaining < periodsToClaim {
		periodsToClaim = remaining
	}
	endPeriod := cursor.Period + periodsToClaim

	amount := big.NewInt(0)
	g := loadSegment(global, cursor.GlobalIdx)
	s := loadSegment(staker, cursor.StakerIdx)

	for p := cursor.Period; p < endPeriod; p++ {
		nextPeriodStart := p*uint64(grid.PeriodCycles()) + 1
		rewardPerCycle, err := schedule(p)
		if err != nil {
			return zero, cursor, err
		}

		start := (p-1)*uint64(grid.PeriodCycles()) + 1
		end := uint64(0)

		for end != nextPeriodStart {
			if g.startCycle > start {
				start = g.startCycle
			}
			if s.startCycle > start {
				start = s.startCycle
			}

			end = nextPeriodStart
			if g.nextStart != 0 && g.nextStart < end {
				end = g.nextStart
			}
			if s.nextStart != 0 && s.nextStart < end {
				end = s.nextStart
			}

			if g.stake.Sign() != 0 && s.stake.Sign() != 0 && rewardPerCycle.Sign() != 0 {
				width := new(big.Int).SetUint64(end - start)
				numerator := new(big.Int).Mul(width, rewardPerCycle)
				numerator.Mul(numerator, s.stake)
				contribution := new(big.Int).Quo(numerator, g.stake)
				amount.Add(amount, contribution)
			}

			if g.nextStart != 0 && g.nextStart == end {
				g.advance(global)
			}
			if s.nextStart != 0 && s.nextStart == end {
				s.advance(staker)
			}
		}
	}

	newCursor := state.NextClaim{Period: endPeriod, GlobalIdx: g.idx, StakerIdx: s.idx}
	result := Computed{StartPeriod: cursor.Period, Periods: periodsToClaim, Amount: amount}
	return result, newCursor, nil
}

// Reinitialize applies the cursor re-initialization rule of spec.md §4.4:
// once a staker's history has been fully walked past and their current
// stake is zero, the next stake should start fresh rather than carry
// forward a stale global_idx. When it fires, the bool result reports that
// the staker's history should also be truncated back to empty: nothing
// below the old staker_idx is ever read again, so discarding it entirely
// is equivalent to (and simpler than) the optional zero-prefix reclaim of
// §4.4, and it is what makes the next stake's staker_idx come out as 0
// per the worked example in spec.md §8.
func Reinitialize(grid *timegrid.Grid, staker *snapshot.History, result Computed, cursor state.NextClaim, newCursor state.NextClaim) (state.NextClaim, bool) {
	if result.Periods == 0 || cursor.Uninitialized() {
		return newCursor, false
	}
	lastClaimedCycle := (result.StartPeriod + result.Periods - 1) * uint64(grid.PeriodCycles())
	last, err := staker.Last()
	if err != nil {
		return newCursor, false
	}
	if lastClaimedCycle >= last.StartCycle && last.Stake.IsZero() {
		return state.NextClaim{}, true
	}
	return newCursor, false
}
