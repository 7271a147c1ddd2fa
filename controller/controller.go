// Package controller implements the Controller (spec.md §4.3/§4.5/§4.6):
// the single facade that exposes stake/unstake/claim/estimate and the
// administrative operations, updates the Snapshot Store on every deposit
// and withdrawal, and is the only package that talks to the external NFT
// and reward-token transports. Every exported operation takes the
// Controller's one mutex for its full duration, mirroring the teacher's
// core/node.go stateMu pattern, so the engine never processes two
// mutating calls concurrently and never leaves state partially updated
// across a blocking external call.
package controller

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"nftstaking/claim"
	"nftstaking/config"
	stakingerrors "nftstaking/errors"
	"nftstaking/events"
	"nftstaking/observability"
	"nftstaking/snapshot"
	"nftstaking/state"
	"nftstaking/timegrid"
	"nftstaking/transport"
)

// Controller is the staking engine's single entry point. Construct one per
// process with New; all of its methods are safe for concurrent use.
type Controller struct {
	mu sync.Mutex

	store *state.Store

	cycleSeconds uint32
	periodCycles uint16

	nftTransportAddr common.Address
	owner            common.Address
	vault            common.Address

	nft         transport.NFT
	rewardToken transport.RewardToken
	weigher     transport.Weigher

	emitter events.Emitter
	metrics *observability.StakingMetrics
	logger  *slog.Logger
}

// New constructs a Controller from its immutable configuration and
// collaborators. weigher defaults to transport.TypeByteWeigher{} and
// emitter to events.NoopEmitter{} when nil, so callers that don't care
// about weight policy or event delivery can omit them.
func New(cfg *config.Config, store *state.Store, nft transport.NFT, rewardToken transport.RewardToken, weigher transport.Weigher, emitter events.Emitter, logger *slog.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("controller: store is required")
	}
	if nft == nil || rewardToken == nil {
		return nil, fmt.Errorf("controller: nft and rewardToken transports are required")
	}

	nftAddr, err := cfg.NFTTransportAddress()
	if err != nil {
		return nil, err
	}
	owner, err := cfg.OwnerAddress()
	if err != nil {
		return nil, err
	}
	vault, err := cfg.VaultAddress()
	if err != nil {
		return nil, err
	}

	if weigher == nil {
		weigher = transport.TypeByteWeigher{}
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller{
		store:            store,
		cycleSeconds:     cfg.CycleSeconds,
		periodCycles:     cfg.PeriodCycles,
		nftTransportAddr: nftAddr,
		owner:            owner,
		vault:            vault,
		nft:              nft,
		rewardToken:      rewardToken,
		weigher:          weigher,
		emitter:          emitter,
		metrics:          observability.Staking(),
		logger:           logger,
	}, nil
}

func (c *Controller) currentGrid(scalars state.Scalars) *timegrid.Grid {
	return timegrid.New(scalars.StartTimestamp, c.cycleSeconds, c.periodCycles)
}

func (c *Controller) requireOwner(caller common.Address) error {
	if caller != c.owner {
		return stakingerrors.ErrUnauthorized
	}
	return nil
}

func (c *Controller) requireWhitelisted(caller common.Address) error {
	if caller != c.nftTransportAddr {
		return stakingerrors.ErrNotWhitelisted
	}
	return nil
}

// Start sets the one-shot start_timestamp, per spec.md §4.5. Only the
// configured owner may call it, and only once.
func (c *Controller) Start(caller common.Address, now int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireOwner(caller); err != nil {
		return err
	}
	scalars, err := c.store.Scalars()
	if err != nil {
		return err
	}
	if c.currentGrid(scalars).Started() {
		return stakingerrors.ErrAlreadyStarted
	}
	scalars.StartTimestamp = now
	if err := c.store.PutScalars(scalars); err != nil {
		return err
	}
	c.emitter.Emit(events.Started{StartTimestamp: now})
	c.logger.Info("staking engine started", "start_timestamp", now)
	return nil
}

// Disable permanently stops new stakes, per spec.md §4.5. Unstake,
// claim, and estimate keep working afterward; disable is one-way.
func (c *Controller) Disable(caller common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireOwner(caller); err != nil {
		return err
	}
	scalars, err := c.store.Scalars()
	if err != nil {
		return err
	}
	if !scalars.Enabled {
		return stakingerrors.ErrDisabled
	}
	scalars.Enabled = false
	if err := c.store.PutScalars(scalars); err != nil {
		return err
	}
	c.emitter.Emit(events.Disabled{})
	c.logger.Warn("staking engine disabled")
	return nil
}

// AddRewards funds the reward pool for periods [startPeriod, endPeriod],
// adding rewardsPerCycle to each period's existing budget, per spec.md §4.5. The inbound transfer is
// attempted before any schedule entry is written, so a rejected transfer
// leaves the schedule untouched.
func (c *Controller) AddRewards(caller common.Address, startPeriod, endPeriod uint64, rewardsPerCycle *big.Int, now int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireOwner(caller); err != nil {
		return err
	}
	if rewardsPerCycle == nil || rewardsPerCycle.Sign() < 0 {
		return stakingerrors.ErrBadRange
	}
	scalars, err := c.store.Scalars()
	if err != nil {
		return err
	}
	grid := c.currentGrid(scalars)
	if !grid.Started() {
		return stakingerrors.ErrNotStarted
	}
	currentPeriod, err := grid.CurrentPeriod(now)
	if err != nil {
		return err
	}
	if startPeriod == 0 || endPeriod < startPeriod || startPeriod < currentPeriod {
		return stakingerrors.ErrBadRange
	}

	periods := endPeriod - startPeriod + 1
	amount := new(big.Int).Mul(rewardsPerCycle, big.NewInt(int64(c.periodCycles)))
	amount.Mul(amount, new(big.Int).SetUint64(periods))

	ok, err := c.rewardToken.TransferFrom(caller, c.vault, amount)
	if err != nil {
		return err
	}
	if !ok {
		return stakingerrors.ErrTransferFailed
	}

	for p := startPeriod; p <= endPeriod; p++ {
		existing, err := c.store.RewardsSchedule(p)
		if err != nil {
			return err
		}
		if err := c.store.PutRewardsSchedule(p, new(big.Int).Add(existing, rewardsPerCycle)); err != nil {
			return err
		}
	}
	scalars.TotalRewardsPool = new(big.Int).Add(scalars.TotalRewardsPool, amount)
	if err := c.store.PutScalars(scalars); err != nil {
		return err
	}
	c.emitter.Emit(events.RewardsAdded{StartPeriod: startPeriod, EndPeriod: endPeriod, RewardsPerCycle: rewardsPerCycle})
	c.logger.Info("rewards added", "start_period", startPeriod, "end_period", endPeriod, "amount", amount.String())
	return nil
}

// WithdrawRewardsPool lets the owner recover unclaimed funds once the
// engine is disabled, per spec.md §4.5.
func (c *Controller) WithdrawRewardsPool(caller common.Address, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireOwner(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return stakingerrors.ErrBadRange
	}
	scalars, err := c.store.Scalars()
	if err != nil {
		return err
	}
	if scalars.Enabled {
		return stakingerrors.ErrEnabled
	}
	if amount.Cmp(scalars.TotalRewardsPool) > 0 {
		return stakingerrors.ErrBadRange
	}

	ok, err := c.rewardToken.Transfer(caller, amount)
	if err != nil {
		return err
	}
	if !ok {
		return stakingerrors.ErrTransferFailed
	}

	scalars.TotalRewardsPool = new(big.Int).Sub(scalars.TotalRewardsPool, amount)
	if err := c.store.PutScalars(scalars); err != nil {
		return err
	}
	c.logger.Info("rewards pool withdrawn", "amount", amount.String())
	return nil
}

// Stake is the direct-call staking path: the whitelisted NFT transport
// has already moved custody to the vault and now asks the engine to
// account for it. OnSingleReceived and OnBatchReceived are thin wrappers
// around the same logic for transports that drive staking through an
// ERC-721-style receiver callback instead.
func (c *Controller) Stake(caller, owner common.Address, id *big.Int, now int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireWhitelisted(caller); err != nil {
		return err
	}
	return c.stakeLocked(owner, id, now)
}

// OnSingleReceived is the receiver hook the NFT transport calls for a
// single incoming token.
func (c *Controller) OnSingleReceived(operator, from common.Address, id *big.Int, value uint64, data []byte, now int64) (transport.Ack, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireWhitelisted(operator); err != nil {
		return transport.Ack{}, err
	}
	if err := c.stakeLocked(from, id, now); err != nil {
		return transport.Ack{}, err
	}
	return transport.AckSingle, nil
}

// OnBatchReceived is the receiver hook the NFT transport calls for a
// batch of incoming tokens. It is all-or-nothing: the first rejected id
// aborts the whole batch, and nothing staked earlier in the loop is
// rolled back by this method — callers that need atomicity across a
// batch should stake ids one at a time instead.
func (c *Controller) OnBatchReceived(operator, from common.Address, ids []*big.Int, values []uint64, data []byte, now int64) (transport.Ack, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.requireWhitelisted(operator); err != nil {
		return transport.Ack{}, err
	}
	for _, id := range ids {
		if err := c.stakeLocked(from, id, now); err != nil {
			return transport.Ack{}, err
		}
	}
	return transport.AckBatch, nil
}

// stakeLocked implements spec.md §4.3's stake(id, owner). Callers must
// already hold c.mu.
func (c *Controller) stakeLocked(owner common.Address, id *big.Int, now int64) error {
	scalars, err := c.store.Scalars()
	if err != nil {
		return err
	}
	if !scalars.Enabled {
		return stakingerrors.ErrDisabled
	}
	grid := c.currentGrid(scalars)
	if !grid.Started() {
		return stakingerrors.ErrNotStarted
	}
	currentCycle, err := grid.CurrentCycle(now)
	if err != nil {
		return err
	}

	weight, err := c.weigher.WeightOf(id)
	if err != nil {
		return err
	}

	info, ok, err := c.store.TokenInfo(id)
	if err != nil {
		return err
	}
	if ok && info.WithdrawCycle == currentCycle {
		c.metrics.RecordCooldownRejected()
		return stakingerrors.ErrCooldown
	}

	global, staker, err := c.applyHistories(owner, int64(weight), currentCycle)
	if err != nil {
		return err
	}

	cursor, err := c.store.NextClaim(owner)
	if err != nil {
		return err
	}
	if cursor.Uninitialized() {
		currentPeriod, err := grid.CurrentPeriod(now)
		if err != nil {
			return err
		}
		gIdx, err := global.LastIndex()
		if err != nil {
			return err
		}
		sIdx, err := staker.LastIndex()
		if err != nil {
			return err
		}
		cursor = state.NextClaim{Period: currentPeriod, GlobalIdx: uint64(gIdx), StakerIdx: uint64(sIdx)}
		if err := c.store.PutNextClaim(owner, cursor); err != nil {
			return err
		}
	}

	newInfo := state.TokenInfo{Owner: owner, Weight: weight, DepositCycle: currentCycle}
	if err := c.store.PutTokenInfo(id, newInfo); err != nil {
		return err
	}

	c.emitter.Emit(events.NftStaked{Staker: owner, Cycle: currentCycle, TokenID: id, Weight: weight})
	c.logger.Info("nft staked", "staker", owner, "token_id", id.String(), "weight", weight, "cycle", currentCycle)
	return nil
}

// Unstake implements spec.md §4.3's unstake(id). While the engine is
// enabled, it enforces the two-cycle hold before the token can leave;
// once disabled, any owner may withdraw immediately and the stake
// histories are not updated (the emergency-exit path spec.md §4.6
// describes).
func (c *Controller) Unstake(caller common.Address, id *big.Int, now int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, ok, err := c.store.TokenInfo(id)
	if err != nil {
		return err
	}
	if !ok || !info.Staked() {
		return stakingerrors.ErrUnknownToken
	}
	if info.Owner != caller {
		return stakingerrors.ErrUnauthorized
	}

	scalars, err := c.store.Scalars()
	if err != nil {
		return err
	}
	grid := c.currentGrid(scalars)
	if !grid.Started() {
		return stakingerrors.ErrNotStarted
	}
	currentCycle, err := grid.CurrentCycle(now)
	if err != nil {
		return err
	}

	if scalars.Enabled && currentCycle-info.DepositCycle < 2 {
		c.metrics.RecordFreezeRejected()
		return stakingerrors.ErrFrozen
	}

	// The emergency exit after disable() leaves both histories untouched.
	if scalars.Enabled {
		if _, _, err := c.applyHistories(caller, -int64(info.Weight), currentCycle); err != nil {
			return err
		}
	}

	info.Owner = common.Address{}
	info.WithdrawCycle = currentCycle
	if err := c.store.PutTokenInfo(id, info); err != nil {
		return err
	}

	c.emitter.Emit(events.NftUnstaked{Staker: caller, Cycle: currentCycle, TokenID: id, Weight: info.Weight})

	if err := c.returnToken(caller, id); err != nil {
		return err
	}
	c.logger.Info("nft unstaked", "staker", caller, "token_id", id.String(), "cycle", currentCycle)
	return nil
}

// returnToken moves id back to its owner, trying the safe transfer first
// and falling back to the unsafe one on a receiver-side rejection, per
// spec.md §6.
func (c *Controller) returnToken(to common.Address, id *big.Int) error {
	safeErr := c.nft.SafeTransferFrom(c.vault, to, id, 1, nil)
	if safeErr == nil {
		return nil
	}
	if err := c.nft.TransferFrom(c.vault, to, id); err != nil {
		return fmt.Errorf("controller: safe transfer rejected (%v) and fallback transfer failed: %w", safeErr, err)
	}
	return nil
}

// applyHistories updates the global and staker histories by delta at
// currentCycle, persists both, and reports the post-update state, per
// spec.md §4.2's update(history, Δstake, current_cycle).
func (c *Controller) applyHistories(owner common.Address, delta int64, currentCycle uint64) (*snapshot.History, *snapshot.History, error) {
	global, err := c.store.GlobalHistory()
	if err != nil {
		return nil, nil, err
	}
	staker, err := c.store.StakerHistory(owner)
	if err != nil {
		return nil, nil, err
	}
	if _, err := global.Update(delta, currentCycle); err != nil {
		return nil, nil, err
	}
	if _, err := staker.Update(delta, currentCycle); err != nil {
		return nil, nil, err
	}
	if err := c.store.PutGlobalHistory(global); err != nil {
		return nil, nil, err
	}
	if err := c.store.PutStakerHistory(owner, staker); err != nil {
		return nil, nil, err
	}

	globalStake := global.StakeAt(currentCycle).ToBig()
	stakerStake := staker.StakeAt(currentCycle).ToBig()
	c.emitter.Emit(events.HistoriesUpdated{
		Staker:      owner,
		StartCycle:  currentCycle,
		StakerStake: stakerStake,
		GlobalStake: globalStake,
	})
	weight, _ := new(big.Float).SetInt(globalStake).Float64()
	c.metrics.SetTotalStakedWeight(weight)
	return global, staker, nil
}

// Claim implements spec.md §4.6's claim(max_periods): walk and persist.
func (c *Controller) Claim(staker common.Address, maxPeriods uint64, now int64) (claim.Computed, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.walk(staker, maxPeriods, now, true)
}

// Estimate implements spec.md §4.6's estimate(max_periods): the same
// walk, reported but never persisted.
func (c *Controller) Estimate(staker common.Address, maxPeriods uint64, now int64) (claim.Computed, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.walk(staker, maxPeriods, now, false)
}

func (c *Controller) walk(staker common.Address, maxPeriods uint64, now int64, persist bool) (claim.Computed, error) {
	scalars, err := c.store.Scalars()
	if err != nil {
		return claim.Computed{}, err
	}
	grid := c.currentGrid(scalars)
	if !grid.Started() {
		return claim.Computed{}, stakingerrors.ErrNotStarted
	}
	currentPeriod, err := grid.CurrentPeriod(now)
	if err != nil {
		return claim.Computed{}, err
	}

	global, err := c.store.GlobalHistory()
	if err != nil {
		return claim.Computed{}, err
	}
	stakerHistory, err := c.store.StakerHistory(staker)
	if err != nil {
		return claim.Computed{}, err
	}
	cursor, err := c.store.NextClaim(staker)
	if err != nil {
		return claim.Computed{}, err
	}

	result, newCursor, err := claim.Walk(grid, global, stakerHistory, c.store.RewardsSchedule, cursor, currentPeriod, maxPeriods)
	if err != nil {
		return claim.Computed{}, err
	}

	if !persist {
		return result, nil
	}

	c.metrics.RecordClaim(claimOutcome(global, cursor, currentPeriod, result))
	if result.Periods == 0 {
		return result, nil
	}
	c.metrics.SetCursorLag(float64(currentPeriod - cursor.Period - result.Periods))

	finalCursor, reset := claim.Reinitialize(grid, stakerHistory, result, cursor, newCursor)

	if result.Amount.Sign() > 0 {
		ok, err := c.rewardToken.Transfer(staker, result.Amount)
		if err != nil {
			return claim.Computed{}, err
		}
		if !ok {
			return claim.Computed{}, stakingerrors.ErrTransferFailed
		}
	}

	// All external I/O has already succeeded; only now do we commit the
	// cursor advance, matching spec.md §5's all-or-nothing requirement
	// without relying on a transactional store.
	if err := c.store.PutNextClaim(staker, finalCursor); err != nil {
		return claim.Computed{}, err
	}
	if reset {
		if err := c.store.PutStakerHistory(staker, snapshot.New()); err != nil {
			return claim.Computed{}, err
		}
	}
	scalars.TotalRewardsPool = new(big.Int).Sub(scalars.TotalRewardsPool, result.Amount)
	if err := c.store.PutScalars(scalars); err != nil {
		return claim.Computed{}, err
	}

	currentCycle, _ := grid.CurrentCycle(now)
	c.emitter.Emit(events.RewardsClaimed{
		Staker:      staker,
		Cycle:       currentCycle,
		StartPeriod: result.StartPeriod,
		Periods:     result.Periods,
		Amount:      result.Amount,
	})
	amt, _ := new(big.Float).SetInt(result.Amount).Float64()
	c.metrics.RecordRewardsPaid(amt)
	c.logger.Info("rewards claimed", "staker", staker, "periods", result.Periods, "amount", result.Amount.String())
	return result, nil
}

func claimOutcome(global *snapshot.History, cursor state.NextClaim, currentPeriod uint64, result claim.Computed) string {
	switch {
	case global.Len() == 0:
		return "no_history"
	case cursor.Uninitialized():
		return "no_history"
	case cursor.Period == currentPeriod:
		return "current_period"
	case result.Periods == 0:
		return "zero"
	default:
		return "ok"
	}
}

// CurrentCycle reports the cycle index containing now.
func (c *Controller) CurrentCycle(now int64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	scalars, err := c.store.Scalars()
	if err != nil {
		return 0, err
	}
	return c.currentGrid(scalars).CurrentCycle(now)
}

// CurrentPeriod reports the period index containing now.
func (c *Controller) CurrentPeriod(now int64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	scalars, err := c.store.Scalars()
	if err != nil {
		return 0, err
	}
	return c.currentGrid(scalars).CurrentPeriod(now)
}

// LastGlobalSnapshotIndex reports the index of the global history's final
// segment.
func (c *Controller) LastGlobalSnapshotIndex() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, err := c.store.GlobalHistory()
	if err != nil {
		return 0, err
	}
	idx, err := h.LastIndex()
	if err != nil {
		return 0, err
	}
	return uint64(idx), nil
}

// LastStakerSnapshotIndex reports the index of addr's history's final
// segment.
func (c *Controller) LastStakerSnapshotIndex(addr common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, err := c.store.StakerHistory(addr)
	if err != nil {
		return 0, err
	}
	idx, err := h.LastIndex()
	if err != nil {
		return 0, err
	}
	return uint64(idx), nil
}

// TokenInfo reports the registry entry for id.
func (c *Controller) TokenInfo(id *big.Int) (state.TokenInfo, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.TokenInfo(id)
}

// NextClaimCursor reports addr's current claim cursor.
func (c *Controller) NextClaimCursor(addr common.Address) (state.NextClaim, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.NextClaim(addr)
}

// RewardsSchedule reports the rewards_per_cycle budget scheduled for
// period.
func (c *Controller) RewardsSchedule(period uint64) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.RewardsSchedule(period)
}

// TotalRewardsPool reports the engine's current unclaimed reward balance.
func (c *Controller) TotalRewardsPool() (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	scalars, err := c.store.Scalars()
	if err != nil {
		return nil, err
	}
	return scalars.TotalRewardsPool, nil
}

// Enabled reports whether new stakes are currently accepted.
func (c *Controller) Enabled() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	scalars, err := c.store.Scalars()
	if err != nil {
		return false, err
	}
	return scalars.Enabled, nil
}
