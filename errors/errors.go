// Package errors collects the tagged sentinel failures the staking
// engine raises (spec.md §7), following the teacher's pattern of a small
// package of package-level errors.New values compared with errors.Is.
package errors

import stderrors "errors"

var (
	// ErrNotStarted is returned when an operation that requires the
	// engine to have started is called before start().
	ErrNotStarted = stderrors.New("staking: not started")
	// ErrAlreadyStarted is returned by start() once start_timestamp is set.
	ErrAlreadyStarted = stderrors.New("staking: already started")

	// ErrDisabled is returned when stake is called while disabled, and by
	// disable() once already disabled. Claim and estimate are not gated on
	// enablement and never return it.
	ErrDisabled = stderrors.New("staking: disabled")
	// ErrEnabled is returned when withdraw_rewards_pool is called while enabled.
	ErrEnabled = stderrors.New("staking: still enabled")

	// ErrUnauthorized covers non-owner admin calls and unstake attempts by
	// a non-owner of the token.
	ErrUnauthorized = stderrors.New("staking: unauthorized")
	// ErrNotWhitelisted is returned by Stake and the receiver hooks when
	// the caller is not the whitelisted NFT transport.
	ErrNotWhitelisted = stderrors.New("staking: caller not whitelisted")

	// ErrBadRange covers a zero period, end < start, or scheduling into
	// the past once the engine has started.
	ErrBadRange = stderrors.New("staking: bad period range")

	// ErrFrozen is returned when unstake is attempted before the two-cycle hold.
	ErrFrozen = stderrors.New("staking: unstake frozen")
	// ErrCooldown is returned when re-stake is attempted in the unstake cycle.
	ErrCooldown = stderrors.New("staking: re-stake cooldown")

	// ErrTransferFailed is returned when a reward-token transfer returns false.
	ErrTransferFailed = stderrors.New("staking: token transfer failed")

	// ErrEmptyHistory is returned by the last-snapshot-index reads when
	// the relevant history has never been written to.
	ErrEmptyHistory = stderrors.New("staking: history is empty")

	// ErrOverflow/ErrUnderflow are returned by every checked arithmetic
	// operation the engine performs, per spec.md §3's arithmetic-safety
	// requirement. They are always fatal to the enclosing operation.
	ErrOverflow  = stderrors.New("staking: arithmetic overflow")
	ErrUnderflow = stderrors.New("staking: arithmetic underflow")

	// ErrUnknownToken is returned when an operation references an NFT id
	// with no TokenInfo record, or one that is not currently staked.
	ErrUnknownToken = stderrors.New("staking: unknown token id")
)
