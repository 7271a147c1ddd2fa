// Package timegrid maps wall-clock timestamps onto the engine's 1-based
// cycle and period indices. Every function here is pure; the grid itself
// has no mutable state beyond the two immutables it is constructed with.
package timegrid

import (
	"fmt"
)

// ErrPreStart is returned by Cycle when queried with a timestamp before
// the grid's start_timestamp, or when the grid has not started yet.
var ErrPreStart = fmt.Errorf("timegrid: timestamp precedes start")

// Grid converts timestamps to cycle indices and cycle indices to period
// indices, given the immutable cycle width and period length spec.md §3
// requires (cycle_seconds >= 60, period_cycles >= 2).
type Grid struct {
	startTimestamp int64
	cycleSeconds   uint32
	periodCycles   uint16
}

// New constructs a Grid. startTimestamp of 0 means "not started"; Cycle
// always fails against an unstarted grid.
func New(startTimestamp int64, cycleSeconds uint32, periodCycles uint16) *Grid {
	return &Grid{
		startTimestamp: startTimestamp,
		cycleSeconds:   cycleSeconds,
		periodCycles:   periodCycles,
	}
}

// Started reports whether the grid's start timestamp has been set.
func (g *Grid) Started() bool {
	return g.startTimestamp != 0
}

// Cycle returns the 1-based cycle index containing ts.
//
//	cycle(ts) = (ts - start_timestamp) / cycle_seconds + 1
func (g *Grid) Cycle(ts int64) (uint64, error) {
	if !g.Started() {
		return 0, ErrPreStart
	}
	if ts < g.startTimestamp {
		return 0, ErrPreStart
	}
	elapsed := ts - g.startTimestamp
	return uint64(elapsed/int64(g.cycleSeconds)) + 1, nil
}

// Period returns the 1-based period index containing cycle.
//
//	period(cycle) = (cycle - 1) / period_cycles + 1
func (g *Grid) Period(cycle uint64) (uint64, error) {
	if cycle == 0 {
		return 0, fmt.Errorf("timegrid: cycle must be >= 1")
	}
	return (cycle-1)/uint64(g.periodCycles) + 1, nil
}

// FirstCycleOfPeriod returns the first (inclusive) cycle of period p.
func (g *Grid) FirstCycleOfPeriod(p uint64) uint64 {
	return (p-1)*uint64(g.periodCycles) + 1
}

// FirstCycleOfNextPeriod returns the exclusive upper bound of period p —
// the first cycle of the period after p.
func (g *Grid) FirstCycleOfNextPeriod(p uint64) uint64 {
	return p*uint64(g.periodCycles) + 1
}

// PeriodCycles returns the configured number of cycles per period.
func (g *Grid) PeriodCycles() uint16 {
	return g.periodCycles
}

// CycleSeconds returns the configured cycle width in seconds.
func (g *Grid) CycleSeconds() uint32 {
	return g.cycleSeconds
}

// StartTimestamp returns the configured start timestamp, or 0 if unset.
func (g *Grid) StartTimestamp() int64 {
	return g.startTimestamp
}

// WithStart returns a copy of the grid with its start timestamp set.
func (g *Grid) WithStart(ts int64) *Grid {
	return New(ts, g.cycleSeconds, g.periodCycles)
}

// CurrentCycle composes Cycle over the provided clock reading.
func (g *Grid) CurrentCycle(now int64) (uint64, error) {
	return g.Cycle(now)
}

// CurrentPeriod composes Cycle and Period over the provided clock reading.
func (g *Grid) CurrentPeriod(now int64) (uint64, error) {
	cycle, err := g.Cycle(now)
	if err != nil {
		return 0, err
	}
	return g.Period(cycle)
}
