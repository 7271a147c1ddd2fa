package controller

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"nftstaking/config"
	stakingerrors "nftstaking/errors"
	"nftstaking/state"
	"nftstaking/storage"
)

var (
	ownerAddr       = common.HexToAddress("0x000000000000000000000000000000000000A0")
	nftAddr         = common.HexToAddress("0x000000000000000000000000000000000000B0")
	vaultAddr       = common.HexToAddress("0x000000000000000000000000000000000000C0")
	rewardTokenAddr = common.HexToAddress("0x000000000000000000000000000000000000D0")
	stakerAddr      = common.HexToAddress("0x000000000000000000000000000000000000E0")
)

// genesis is the engine's start_timestamp in every test below. It must be
// non-zero: timegrid treats a zero start_timestamp as "not started", and
// a real deployment is never started at the Unix epoch anyway.
const genesis = int64(1_700_000_000)

// at returns the wall-clock timestamp n cycles after genesis.
func at(cycles int64) int64 {
	return genesis + cycles*60
}

type fakeNFT struct {
	safeErr     error
	transferErr error
	returned    []common.Address
}

func (f *fakeNFT) SafeTransferFrom(from, to common.Address, id *big.Int, value uint64, data []byte) error {
	if f.safeErr != nil {
		return f.safeErr
	}
	f.returned = append(f.returned, to)
	return nil
}

func (f *fakeNFT) TransferFrom(from, to common.Address, id *big.Int) error {
	if f.transferErr != nil {
		return f.transferErr
	}
	f.returned = append(f.returned, to)
	return nil
}

type fakeRewardToken struct {
	ok       bool
	err      error
	fundedIn []*big.Int
	paidOut  []*big.Int
}

func (f *fakeRewardToken) TransferFrom(sender, recipient common.Address, amount *big.Int) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.ok {
		f.fundedIn = append(f.fundedIn, amount)
	}
	return f.ok, nil
}

func (f *fakeRewardToken) Transfer(recipient common.Address, amount *big.Int) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.ok {
		f.paidOut = append(f.paidOut, amount)
	}
	return f.ok, nil
}

func newTestController(t *testing.T) (*Controller, *fakeNFT, *fakeRewardToken) {
	t.Helper()
	cfg := &config.Config{
		CycleSeconds: 60,
		PeriodCycles: 7,
		NFTTransport: nftAddr.Hex(),
		RewardToken:  rewardTokenAddr.Hex(),
		Owner:        ownerAddr.Hex(),
		Vault:        vaultAddr.Hex(),
		Environment:  "test",
	}
	store := state.New(storage.NewMemDB())
	nft := &fakeNFT{}
	reward := &fakeRewardToken{ok: true}
	c, err := New(cfg, store, nft, reward, nil, nil, nil)
	require.NoError(t, err)
	return c, nft, reward
}

func TestStartRequiresOwnerAndFiresOnce(t *testing.T) {
	c, _, _ := newTestController(t)

	err := c.Start(stakerAddr, genesis)
	require.ErrorIs(t, err, stakingerrors.ErrUnauthorized)

	require.NoError(t, c.Start(ownerAddr, genesis))

	err = c.Start(ownerAddr, genesis)
	require.ErrorIs(t, err, stakingerrors.ErrAlreadyStarted)
}

func TestStakeRequiresStartedAndWhitelistedCaller(t *testing.T) {
	c, _, _ := newTestController(t)
	id := big.NewInt(1) // low byte 1: accepted by the default weigher

	err := c.Stake(nftAddr, stakerAddr, id, at(0))
	require.ErrorIs(t, err, stakingerrors.ErrNotStarted)

	require.NoError(t, c.Start(ownerAddr, genesis))

	err = c.Stake(stakerAddr, stakerAddr, id, at(0))
	require.ErrorIs(t, err, stakingerrors.ErrNotWhitelisted)

	require.NoError(t, c.Stake(nftAddr, stakerAddr, id, at(0)))

	info, ok, err := c.TokenInfo(id)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, stakerAddr, info.Owner)
	require.Equal(t, uint64(1), info.Weight)
	require.Equal(t, uint64(1), info.DepositCycle)

	idx, err := c.LastGlobalSnapshotIndex()
	require.NoError(t, err)
	require.Equal(t, uint64(0), idx)

	cursor, err := c.NextClaimCursor(stakerAddr)
	require.NoError(t, err)
	require.Equal(t, uint64(1), cursor.Period)
}

func TestUnstakeEnforcesFreezeThenAllowsCooldownOnReStake(t *testing.T) {
	c, nft, _ := newTestController(t)
	id := big.NewInt(1)

	require.NoError(t, c.Start(ownerAddr, genesis))
	require.NoError(t, c.Stake(nftAddr, stakerAddr, id, at(0))) // deposit_cycle 1

	err := c.Unstake(stakerAddr, id, at(0)) // still cycle 1
	require.ErrorIs(t, err, stakingerrors.ErrFrozen)

	err = c.Unstake(stakerAddr, id, at(1)) // cycle 2, one cycle held
	require.ErrorIs(t, err, stakingerrors.ErrFrozen)

	require.NoError(t, c.Unstake(stakerAddr, id, at(2))) // cycle 3, held for two
	require.Len(t, nft.returned, 1)
	require.Equal(t, stakerAddr, nft.returned[0])

	info, ok, err := c.TokenInfo(id)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, info.Staked())
	require.Equal(t, uint64(3), info.WithdrawCycle)

	err = c.Stake(nftAddr, stakerAddr, id, at(2)) // re-stake in the withdraw cycle
	require.ErrorIs(t, err, stakingerrors.ErrCooldown)

	require.NoError(t, c.Stake(nftAddr, stakerAddr, id, at(3))) // cycle 4, cooldown cleared
}

func TestUnstakeRejectsNonOwner(t *testing.T) {
	c, _, _ := newTestController(t)
	id := big.NewInt(1)
	require.NoError(t, c.Start(ownerAddr, genesis))
	require.NoError(t, c.Stake(nftAddr, stakerAddr, id, at(0)))

	err := c.Unstake(ownerAddr, id, at(2))
	require.ErrorIs(t, err, stakingerrors.ErrUnauthorized)
}

func TestUnstakeFallsBackToUnsafeTransferOnReceiverRejection(t *testing.T) {
	c, nft, _ := newTestController(t)
	id := big.NewInt(1)
	require.NoError(t, c.Start(ownerAddr, genesis))
	require.NoError(t, c.Stake(nftAddr, stakerAddr, id, at(0)))

	nft.safeErr = require.AnError
	require.NoError(t, c.Unstake(stakerAddr, id, at(2)))
	require.Len(t, nft.returned, 1)
}

func TestClaimAndEstimateAgreeAndExhaustTheSchedule(t *testing.T) {
	c, _, reward := newTestController(t)
	id := big.NewInt(1)

	require.NoError(t, c.Start(ownerAddr, genesis))
	require.NoError(t, c.Stake(nftAddr, stakerAddr, id, at(0))) // sole staker, full weight

	// Fund periods 1 and 2 at genesis, while period 1 is still current.
	require.NoError(t, c.AddRewards(ownerAddr, 1, 2, big.NewInt(1000), at(0)))
	require.Len(t, reward.fundedIn, 1)
	require.Equal(t, big.NewInt(14000), reward.fundedIn[0]) // 1000 * 7 cycles * 2 periods

	// 14 cycles in => period 3 is current, periods 1-2 are complete.
	now := at(14)

	estimated, err := c.Estimate(stakerAddr, 10, now)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(14000), estimated.Amount)
	require.Equal(t, uint64(2), estimated.Periods)

	// Estimate must not mutate the cursor.
	estimatedAgain, err := c.Estimate(stakerAddr, 10, now)
	require.NoError(t, err)
	require.Equal(t, estimated, estimatedAgain)

	claimed, err := c.Claim(stakerAddr, 10, now)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(14000), claimed.Amount)
	require.Len(t, reward.paidOut, 1)
	require.Equal(t, big.NewInt(14000), reward.paidOut[0])

	pool, err := c.TotalRewardsPool()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0), pool)

	// A second claim for the same (now exhausted) window is a no-op.
	again, err := c.Claim(stakerAddr, 10, now)
	require.NoError(t, err)
	require.Equal(t, uint64(0), again.Periods)
	require.Len(t, reward.paidOut, 1)
}

func TestClaimIsNoopWithinTheCurrentPeriod(t *testing.T) {
	c, _, reward := newTestController(t)
	id := big.NewInt(1)
	require.NoError(t, c.Start(ownerAddr, genesis))
	require.NoError(t, c.Stake(nftAddr, stakerAddr, id, at(0)))
	require.NoError(t, c.AddRewards(ownerAddr, 1, 1, big.NewInt(1000), at(0)))

	result, err := c.Claim(stakerAddr, 10, at(0)) // still period 1
	require.NoError(t, err)
	require.Equal(t, uint64(0), result.Periods)
	require.Equal(t, big.NewInt(0), result.Amount)
	require.Empty(t, reward.paidOut)
}

func TestDisableBlocksNewStakesButAllowsUnstakeAndClaim(t *testing.T) {
	c, _, _ := newTestController(t)
	id := big.NewInt(1)
	otherID := big.NewInt(257) // low byte 1, distinct id

	require.NoError(t, c.Start(ownerAddr, genesis))
	require.NoError(t, c.Stake(nftAddr, stakerAddr, id, at(0)))
	require.NoError(t, c.AddRewards(ownerAddr, 1, 1, big.NewInt(700), at(0)))

	require.NoError(t, c.Disable(ownerAddr))

	err := c.Stake(nftAddr, stakerAddr, otherID, at(1))
	require.ErrorIs(t, err, stakingerrors.ErrDisabled)

	// Emergency exit: no freeze wait once disabled.
	require.NoError(t, c.Unstake(stakerAddr, id, at(1)))

	// Claims keep working after disable so stakers can still collect —
	// the emergency exit leaves the histories untouched, so the staker
	// still holds all 7 cycles of period 1 and is paid all of it.
	claimed, err := c.Claim(stakerAddr, 10, at(8)) // period 2 current, period 1 complete
	require.NoError(t, err)
	require.Equal(t, big.NewInt(4900), claimed.Amount)

	pool, err := c.TotalRewardsPool()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0), pool) // 4900 funded - 4900 paid
}

func TestWithdrawRewardsPoolRequiresDisabledAndOwner(t *testing.T) {
	c, _, reward := newTestController(t)
	id := big.NewInt(1)
	require.NoError(t, c.Start(ownerAddr, genesis))
	require.NoError(t, c.Stake(nftAddr, stakerAddr, id, at(0)))
	require.NoError(t, c.AddRewards(ownerAddr, 1, 1, big.NewInt(700), at(0)))

	err := c.WithdrawRewardsPool(ownerAddr, big.NewInt(100))
	require.ErrorIs(t, err, stakingerrors.ErrEnabled)

	require.NoError(t, c.Disable(ownerAddr))

	err = c.WithdrawRewardsPool(stakerAddr, big.NewInt(100))
	require.ErrorIs(t, err, stakingerrors.ErrUnauthorized)

	require.NoError(t, c.WithdrawRewardsPool(ownerAddr, big.NewInt(4900)))
	require.Equal(t, []*big.Int{big.NewInt(4900)}, reward.paidOut)

	pool, err := c.TotalRewardsPool()
	require.NoError(t, err)
	require.Equal(t, big.NewInt(0), pool)
}

func TestAddRewardsRejectsBackdatedSchedule(t *testing.T) {
	c, _, _ := newTestController(t)
	require.NoError(t, c.Start(ownerAddr, genesis))

	err := c.AddRewards(ownerAddr, 1, 2, big.NewInt(100), at(14)) // period 3 current
	require.ErrorIs(t, err, stakingerrors.ErrBadRange)
}

func TestOnBatchReceivedAbortsBatchOnFirstUnweighableID(t *testing.T) {
	c, _, _ := newTestController(t)
	require.NoError(t, c.Start(ownerAddr, genesis))

	good := big.NewInt(1) // type byte 1: accepted
	bad := big.NewInt(2)  // type byte 2: rejected by the default weigher

	_, err := c.OnBatchReceived(nftAddr, stakerAddr, []*big.Int{good, bad}, []uint64{1, 1}, nil, at(0))
	require.Error(t, err)

	info, ok, err := c.TokenInfo(good)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, info.Staked())

	_, ok, err = c.TokenInfo(bad)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOnSingleReceivedRejectsUnwhitelistedOperator(t *testing.T) {
	c, _, _ := newTestController(t)
	require.NoError(t, c.Start(ownerAddr, genesis))

	_, err := c.OnSingleReceived(stakerAddr, stakerAddr, big.NewInt(1), 1, nil, at(0))
	require.ErrorIs(t, err, stakingerrors.ErrNotWhitelisted)
}
