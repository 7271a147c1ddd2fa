// Package observability exposes the staking engine's Prometheus metrics as
// a process-wide singleton, mirroring the teacher's per-subsystem metrics
// registries (one struct of named collectors behind a sync.Once).
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// StakingMetrics groups the collectors the Controller updates on stake,
// unstake and claim.
type StakingMetrics struct {
	totalStakedWeight prometheus.Gauge
	stakerCount       prometheus.Gauge
	rewardsPaid       prometheus.Counter
	claimsServed      *prometheus.CounterVec
	cursorLagPeriods  prometheus.Gauge
	cooldownRejected  prometheus.Counter
	freezeRejected    prometheus.Counter
}

var (
	once     sync.Once
	registry *StakingMetrics
)

// Staking returns the process-wide staking metrics registry, constructing
// it (and registering its collectors with the default registerer) on first
// use.
func Staking() *StakingMetrics {
	once.Do(func() {
		registry = &StakingMetrics{
			totalStakedWeight: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "nftstaking_total_staked_weight",
				Help: "Current sum of weights across all staked NFTs.",
			}),
			stakerCount: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "nftstaking_staker_count_estimate",
				Help: "Approximate count of distinct stakers observed by the engine.",
			}),
			rewardsPaid: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "nftstaking_rewards_paid_total",
				Help: "Cumulative reward-token amount paid out across all claims, in base units.",
			}),
			claimsServed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "nftstaking_claims_total",
				Help: "Count of claim operations by outcome.",
			}, []string{"outcome"}),
			cursorLagPeriods: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "nftstaking_cursor_lag_periods",
				Help: "Periods behind current_period observed on the most recent claim.",
			}),
			cooldownRejected: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "nftstaking_cooldown_rejections_total",
				Help: "Count of stake attempts rejected by the re-stake cooldown.",
			}),
			freezeRejected: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "nftstaking_freeze_rejections_total",
				Help: "Count of unstake attempts rejected by the hold-time freeze.",
			}),
		}
		prometheus.MustRegister(
			registry.totalStakedWeight,
			registry.stakerCount,
			registry.rewardsPaid,
			registry.claimsServed,
			registry.cursorLagPeriods,
			registry.cooldownRejected,
			registry.freezeRejected,
		)
	})
	return registry
}

// SetTotalStakedWeight records the current global stake.
func (m *StakingMetrics) SetTotalStakedWeight(weight float64) {
	if m == nil {
		return
	}
	m.totalStakedWeight.Set(weight)
}

// RecordRewardsPaid adds amt (in base units, truncated to float64) to the
// cumulative rewards-paid counter.
func (m *StakingMetrics) RecordRewardsPaid(amt float64) {
	if m == nil || amt <= 0 {
		return
	}
	m.rewardsPaid.Add(amt)
}

// RecordClaim increments the claims counter for the given outcome
// ("ok", "zero", "current_period", "no_history").
func (m *StakingMetrics) RecordClaim(outcome string) {
	if m == nil {
		return
	}
	m.claimsServed.WithLabelValues(outcome).Inc()
}

// SetCursorLag records how many completed periods remained unclaimed
// after the most recent claim walk finished.
func (m *StakingMetrics) SetCursorLag(periods float64) {
	if m == nil {
		return
	}
	m.cursorLagPeriods.Set(periods)
}

// RecordCooldownRejected increments the cooldown-rejection counter.
func (m *StakingMetrics) RecordCooldownRejected() {
	if m == nil {
		return
	}
	m.cooldownRejected.Inc()
}

// RecordFreezeRejected increments the freeze-rejection counter.
func (m *StakingMetrics) RecordFreezeRejected() {
	if m == nil {
		return
	}
	m.freezeRejected.Inc()
}
