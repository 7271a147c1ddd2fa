package claim

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"nftstaking/snapshot"
	"nftstaking/state"
	"nftstaking/timegrid"
)

func flatSchedule(amounts map[uint64]int64) ScheduleLookup {
	return func(period uint64) (*big.Int, error) {
		if v, ok := amounts[period]; ok {
			return big.NewInt(v), nil
		}
		return big.NewInt(0), nil
	}
}

// Scenario 1: single staker, flat schedule across two periods, full exit
// at the start of period 3.
func TestWalkSingleStakerFlatSchedule(t *testing.T) {
	grid := timegrid.New(0, 60, 7)

	global := snapshot.New()
	_, err := global.Update(1, 1)
	require.NoError(t, err)
	_, err = global.Update(-1, 15)
	require.NoError(t, err)

	staker := snapshot.New()
	_, err = staker.Update(1, 1)
	require.NoError(t, err)
	_, err = staker.Update(-1, 15)
	require.NoError(t, err)

	schedule := flatSchedule(map[uint64]int64{1: 1000, 2: 1000})
	cursor := state.NextClaim{Period: 1, GlobalIdx: 0, StakerIdx: 0}

	result, newCursor, err := Walk(grid, global, staker, schedule, cursor, 3, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(1), result.StartPeriod)
	require.Equal(t, uint64(2), result.Periods)
	require.Equal(t, big.NewInt(14000), result.Amount)
	require.Equal(t, uint64(3), newCursor.Period)
	require.Equal(t, uint64(1), newCursor.GlobalIdx)
	require.Equal(t, uint64(1), newCursor.StakerIdx)
}

// Scenario 2: two stakers, proportional split within a single segment.
func TestWalkTwoStakersProportionalSplit(t *testing.T) {
	grid := timegrid.New(0, 60, 7)

	global := snapshot.New()
	_, err := global.Update(1, 1) // A
	require.NoError(t, err)
	_, err = global.Update(3, 1) // B, same cycle, coalesces
	require.NoError(t, err)

	stakerA := snapshot.New()
	_, _ = stakerA.Update(1, 1)
	stakerB := snapshot.New()
	_, _ = stakerB.Update(3, 1)

	schedule := flatSchedule(map[uint64]int64{1: 1000})

	cursorA := state.NextClaim{Period: 1, GlobalIdx: 0, StakerIdx: 0}
	resultA, _, err := Walk(grid, global, stakerA, schedule, cursorA, 2, 1)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1750), resultA.Amount)

	cursorB := state.NextClaim{Period: 1, GlobalIdx: 0, StakerIdx: 0}
	resultB, _, err := Walk(grid, global, stakerB, schedule, cursorB, 2, 1)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(5250), resultB.Amount)
}

// Scenario 3: mid-period stake change splits one period into two segments.
func TestWalkMidPeriodStakeChange(t *testing.T) {
	grid := timegrid.New(0, 60, 7)

	global := snapshot.New()
	_, _ = global.Update(1, 1) // A at cycle 1
	_, _ = global.Update(1, 4) // B at cycle 4

	stakerA := snapshot.New()
	_, _ = stakerA.Update(1, 1)
	stakerB := snapshot.New()
	_, _ = stakerB.Update(1, 4)

	schedule := flatSchedule(map[uint64]int64{1: 1000})

	cursorA := state.NextClaim{Period: 1, GlobalIdx: 0, StakerIdx: 0}
	resultA, newCursorA, err := Walk(grid, global, stakerA, schedule, cursorA, 2, 1)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(5000), resultA.Amount)
	require.Equal(t, uint64(1), newCursorA.GlobalIdx)

	cursorB := state.NextClaim{Period: 1, GlobalIdx: 1, StakerIdx: 0}
	resultB, _, err := Walk(grid, global, stakerB, schedule, cursorB, 2, 1)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(2000), resultB.Amount)
}

// Scenario 4: claiming the in-progress period is always a no-op.
func TestWalkCurrentPeriodExcluded(t *testing.T) {
	grid := timegrid.New(0, 60, 7)
	global := snapshot.New()
	_, _ = global.Update(1, 1)
	staker := snapshot.New()
	_, _ = staker.Update(1, 1)

	schedule := flatSchedule(map[uint64]int64{1: 1000})
	cursor := state.NextClaim{Period: 1, GlobalIdx: 0, StakerIdx: 0}

	result, newCursor, err := Walk(grid, global, staker, schedule, cursor, 1, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(0), result.Periods)
	require.Equal(t, big.NewInt(0), result.Amount)
	require.Equal(t, cursor, newCursor)
}

// Scenario 6: max_periods bounds the walk to exactly that many periods.
func TestWalkMaxPeriodsBound(t *testing.T) {
	grid := timegrid.New(0, 60, 7)
	global := snapshot.New()
	_, _ = global.Update(1, 1)
	staker := snapshot.New()
	_, _ = staker.Update(1, 1)

	schedule := flatSchedule(map[uint64]int64{1: 100, 2: 100, 3: 100, 4: 100})
	cursor := state.NextClaim{Period: 1, GlobalIdx: 0, StakerIdx: 0}

	result, newCursor, err := Walk(grid, global, staker, schedule, cursor, 11, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(3), result.Periods)
	require.Equal(t, uint64(4), newCursor.Period)
}

// Scenario 5: cursor re-initialization after a full exit followed by an
// exhaustive claim.
func TestReinitializeAfterFullExit(t *testing.T) {
	grid := timegrid.New(0, 60, 7)
	staker := snapshot.New()
	_, _ = staker.Update(1, 1)
	_, _ = staker.Update(-1, 10)

	cursor := state.NextClaim{Period: 1, GlobalIdx: 0, StakerIdx: 0}
	result := Computed{StartPeriod: 1, Periods: 2, Amount: big.NewInt(0)}
	newCursor := state.NextClaim{Period: 3, GlobalIdx: 1, StakerIdx: 1}

	reinit, reset := Reinitialize(grid, staker, result, cursor, newCursor)
	require.True(t, reset)
	require.True(t, reinit.Uninitialized())
}

func TestReinitializeNotTriggeredWhileStillWithinHold(t *testing.T) {
	grid := timegrid.New(0, 60, 7)
	staker := snapshot.New()
	_, _ = staker.Update(1, 1)
	_, _ = staker.Update(-1, 15)

	cursor := state.NextClaim{Period: 1, GlobalIdx: 0, StakerIdx: 0}
	result := Computed{StartPeriod: 1, Periods: 2, Amount: big.NewInt(14000)}
	newCursor := state.NextClaim{Period: 3, GlobalIdx: 1, StakerIdx: 1}

	reinit, reset := Reinitialize(grid, staker, result, cursor, newCursor)
	require.False(t, reset)
	require.Equal(t, newCursor, reinit)
}

func TestWalkEarlyExitEmptyGlobalHistory(t *testing.T) {
	grid := timegrid.New(0, 60, 7)
	global := snapshot.New()
	staker := snapshot.New()
	schedule := flatSchedule(nil)
	cursor := state.NextClaim{Period: 1, GlobalIdx: 0, StakerIdx: 0}

	result, newCursor, err := Walk(grid, global, staker, schedule, cursor, 1, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(0), result.Periods)
	require.Equal(t, cursor, newCursor)
}

func TestWalkEarlyExitUninitializedCursor(t *testing.T) {
	grid := timegrid.New(0, 60, 7)
	global := snapshot.New()
	_, _ = global.Update(1, 1)
	staker := snapshot.New()
	schedule := flatSchedule(nil)
	cursor := state.NextClaim{}

	result, _, err := Walk(grid, global, staker, schedule, cursor, 1, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(0), result.Periods)
}
