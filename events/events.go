// Package events defines the structured state-change notifications the
// Controller emits (spec.md §6), mirroring the teacher's events package:
// one small struct per event plus an EventType() method and an Emitter
// sink the caller supplies.
package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event is a structured state change emitted by the Controller.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers. Callers that do
// not care about events can pass NoopEmitter.
type Emitter interface {
	Emit(Event)
}

// NoopEmitter discards every event handed to it.
type NoopEmitter struct{}

// Emit implements Emitter.
func (NoopEmitter) Emit(Event) {}

const (
	TypeRewardsAdded     = "staking.rewardsAdded"
	TypeStarted          = "staking.started"
	TypeNftStaked        = "staking.nftStaked"
	TypeNftUnstaked      = "staking.nftUnstaked"
	TypeRewardsClaimed   = "staking.rewardsClaimed"
	TypeHistoriesUpdated = "staking.historiesUpdated"
	TypeDisabled         = "staking.disabled"
)

// RewardsAdded reports an administrative reward-schedule top-up.
type RewardsAdded struct {
	StartPeriod     uint64
	EndPeriod       uint64
	RewardsPerCycle *big.Int
}

func (RewardsAdded) EventType() string { return TypeRewardsAdded }

// Started reports the one-shot start() call.
type Started struct {
	StartTimestamp int64
}

func (Started) EventType() string { return TypeStarted }

// NftStaked reports a successful deposit.
type NftStaked struct {
	Staker  common.Address
	Cycle   uint64
	TokenID *big.Int
	Weight  uint64
}

func (NftStaked) EventType() string { return TypeNftStaked }

// NftUnstaked reports a successful withdrawal.
type NftUnstaked struct {
	Staker  common.Address
	Cycle   uint64
	TokenID *big.Int
	Weight  uint64
}

func (NftUnstaked) EventType() string { return TypeNftUnstaked }

// RewardsClaimed reports a successful (possibly partial) claim.
type RewardsClaimed struct {
	Staker      common.Address
	Cycle       uint64
	StartPeriod uint64
	Periods     uint64
	Amount      *big.Int
}

func (RewardsClaimed) EventType() string { return TypeRewardsClaimed }

// HistoriesUpdated reports the post-update state of both histories after
// every stake/unstake. The Controller raises it from the one helper both
// stake() and unstake() funnel their history mutations through, so
// neither path can forget it (spec.md §6).
type HistoriesUpdated struct {
	Staker      common.Address
	StartCycle  uint64
	StakerStake *big.Int
	GlobalStake *big.Int
}

func (HistoriesUpdated) EventType() string { return TypeHistoriesUpdated }

// Disabled reports the one-way disable() call.
type Disabled struct{}

func (Disabled) EventType() string { return TypeDisabled }
