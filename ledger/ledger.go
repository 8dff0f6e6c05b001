// Package ledger implements the reward-accounting core of the vault: an
// append-only, integer-exact ledger that distributes two reward tokens to
// depositors in exact proportion to their time-weighted share of the pool.
//
// The design is the classic accumulator scheme: the ledger keeps one
// monotonically non-decreasing "accumulated reward per share" counter per
// reward kind, scaled by RewardScale to survive integer division. A user's
// pending reward is always the closed-form difference
//
//	pending = staked * accRewardPerShare / RewardScale - rewardDebt
//
// so no operation ever iterates over users. Reward debt is the accumulator
// value already "priced in" to a user's balance at their last settlement.
//
// Ordering is the correctness burden here, not locking: callers must fold
// harvested rewards in (OnHarvest) before settling, and must settle a user
// (Settle) before changing their stake size, so that a stake change never
// retroactively alters rewards already accrued. The controller in package
// vault enforces that sequence; the ledger only provides the primitives.
package ledger

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Reward kind indices. The ledger tracks exactly two reward streams: the
// primary reward paid by the external source and a secondary bonus reward.
const (
	// PrimaryReward is the index of the main reward token stream.
	PrimaryReward = 0

	// SecondaryReward is the index of the bonus reward token stream.
	SecondaryReward = 1

	// RewardKinds is the total number of reward streams tracked (currently 2).
	RewardKinds = 2
)

// RewardScale is the fixed-point scale applied to the per-share accumulators.
// 1e12 keeps 12 decimal digits of precision under integer-only arithmetic;
// a settlement can under-pay a user by at most RewardScale⁻¹ units, and that
// dust stays in vault custody for future claimants.
var RewardScale = big.NewInt(1_000_000_000_000)

// Errors returned by ledger operations.
var (
	// ErrInsufficientBalance is returned when a stake decrease exceeds the
	// user's staked amount.
	ErrInsufficientBalance = errors.New("insufficient staked balance")

	// ErrInvalidAmount is returned for nil or negative amounts. The ledger
	// is unsigned by invariant; negative inputs indicate a caller bug.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Amounts is a per-reward-kind pair of token amounts, indexed by
// PrimaryReward / SecondaryReward.
type Amounts [RewardKinds]*big.Int

// ZeroAmounts returns an Amounts pair with both entries set to zero.
func ZeroAmounts() Amounts {
	return Amounts{new(big.Int), new(big.Int)}
}

// Copy returns a deep copy of the pair.
func (a Amounts) Copy() Amounts {
	cp := Amounts{}
	for i, v := range a {
		if v != nil {
			cp[i] = new(big.Int).Set(v)
		}
	}
	return cp
}

// IsZero reports whether both entries are zero (nil counts as zero).
func (a Amounts) IsZero() bool {
	for _, v := range a {
		if v != nil && v.Sign() != 0 {
			return false
		}
	}
	return true
}

// UserRecord holds the per-depositor accounting state. Records are created
// lazily on first deposit and never deleted: a fully-withdrawn user keeps a
// record with Staked == 0 so their reward debt stays consistent if they
// redeposit.
type UserRecord struct {
	// Staked is this user's share of the pool's total stake.
	Staked *big.Int

	// RewardDebt is staked * accRewardPerShare / RewardScale as of the
	// user's last settlement, per reward kind.
	RewardDebt Amounts
}

func newUserRecord() *UserRecord {
	return &UserRecord{
		Staked:     new(big.Int),
		RewardDebt: ZeroAmounts(),
	}
}

// Copy returns a deep copy of the record.
func (u *UserRecord) Copy() *UserRecord {
	return &UserRecord{
		Staked:     new(big.Int).Set(u.Staked),
		RewardDebt: u.RewardDebt.Copy(),
	}
}

// State is the global ledger state. It is an explicit owned data structure:
// the controller holds one instance and passes nothing through package-level
// globals, which keeps the ledger independently testable.
//
// Invariants maintained by the mutating operations:
//   - TotalStaked equals the sum of all users' Staked fields.
//   - AccRewardPerShare entries never decrease.
//   - A user's pending reward is always non-negative.
type State struct {
	// TotalStaked is the sum of all users' staked amounts.
	TotalStaked *big.Int

	// AccRewardPerShare is the cumulative reward per unit of stake since
	// genesis, scaled by RewardScale, per reward kind.
	AccRewardPerShare Amounts

	// Surplus holds rewards that were harvested while TotalStaked was zero.
	// Such amounts are not distributable (there is no share to credit them
	// to) and are retained here rather than folded into the accumulators.
	Surplus Amounts

	users map[common.Address]*UserRecord
}

// NewState creates an empty ledger with all counters at zero.
func NewState() *State {
	return &State{
		TotalStaked:       new(big.Int),
		AccRewardPerShare: ZeroAmounts(),
		Surplus:           ZeroAmounts(),
		users:             make(map[common.Address]*UserRecord),
	}
}

// Copy returns a deep copy of the entire ledger state, including every user
// record. The controller snapshots the ledger this way before an operation's
// first mutation so a failing external call can abort atomically.
func (s *State) Copy() *State {
	cp := &State{
		TotalStaked:       new(big.Int).Set(s.TotalStaked),
		AccRewardPerShare: s.AccRewardPerShare.Copy(),
		Surplus:           s.Surplus.Copy(),
		users:             make(map[common.Address]*UserRecord, len(s.users)),
	}
	for addr, u := range s.users {
		cp.users[addr] = u.Copy()
	}
	return cp
}

// user returns the record for addr, creating it lazily.
func (s *State) user(addr common.Address) *UserRecord {
	u, ok := s.users[addr]
	if !ok {
		u = newUserRecord()
		s.users[addr] = u
	}
	return u
}

// UserCount returns the number of user records ever created.
func (s *State) UserCount() int {
	return len(s.users)
}

// Users returns the addresses of all user records, in map order. Intended
// for snapshotting and inspection; the accounting itself never iterates.
func (s *State) Users() []common.Address {
	addrs := make([]common.Address, 0, len(s.users))
	for addr := range s.users {
		addrs = append(addrs, addr)
	}
	return addrs
}

// UserInfo returns a copy of the user's staked amount and reward debts.
// Unknown users report all zeros.
func (s *State) UserInfo(addr common.Address) (staked *big.Int, rewardDebt Amounts) {
	u, ok := s.users[addr]
	if !ok {
		return new(big.Int), ZeroAmounts()
	}
	return new(big.Int).Set(u.Staked), u.RewardDebt.Copy()
}

// StakedOf returns a copy of the user's staked amount.
func (s *State) StakedOf(addr common.Address) *big.Int {
	staked, _ := s.UserInfo(addr)
	return staked
}

// checkAmount rejects nil and negative amounts.
func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// OnHarvest folds freshly received reward amounts into the accumulators:
//
//	accRewardPerShare[R] += received[R] * RewardScale / totalStaked
//
// If TotalStaked is zero the amounts are not distributable; they are added
// to Surplus and the accumulators are left unchanged. Callers must invoke
// OnHarvest before any balance-changing operation so the accumulators
// reflect all rewards earned up to "now".
func (s *State) OnHarvest(received Amounts) error {
	for _, v := range received {
		if err := checkAmount(v); err != nil {
			return err
		}
	}
	if s.TotalStaked.Sign() == 0 {
		for kind := 0; kind < RewardKinds; kind++ {
			s.Surplus[kind].Add(s.Surplus[kind], received[kind])
		}
		return nil
	}
	for kind := 0; kind < RewardKinds; kind++ {
		if received[kind].Sign() == 0 {
			continue
		}
		delta := new(big.Int).Mul(received[kind], RewardScale)
		delta.Quo(delta, s.TotalStaked)
		s.AccRewardPerShare[kind].Add(s.AccRewardPerShare[kind], delta)
	}
	return nil
}

// pendingOf computes staked * acc / RewardScale - debt for one reward kind.
// Division truncates toward zero, so the result floors; with monotonic
// accumulators and the settle-before-stake-change protocol it is never
// negative.
func pendingOf(u *UserRecord, acc *big.Int, debt *big.Int) *big.Int {
	entitled := new(big.Int).Mul(u.Staked, acc)
	entitled.Quo(entitled, RewardScale)
	return entitled.Sub(entitled, debt)
}

// Pending returns the user's currently pending reward per kind without
// mutating any state.
func (s *State) Pending(addr common.Address) Amounts {
	u, ok := s.users[addr]
	if !ok {
		return ZeroAmounts()
	}
	out := Amounts{}
	for kind := 0; kind < RewardKinds; kind++ {
		out[kind] = pendingOf(u, s.AccRewardPerShare[kind], u.RewardDebt[kind])
	}
	return out
}

// Settle computes the user's pending reward per kind, resets their reward
// debt to the current accumulator baseline, and returns the pending amounts
// for payout by the caller. It must be called exactly once per state-changing
// entry point, before any stake change in the same operation.
//
// An address with no record settles to zeros without creating one: records
// come into existence on first deposit only, so stray claims cannot grow the
// user map or the checkpoints.
func (s *State) Settle(addr common.Address) Amounts {
	u, ok := s.users[addr]
	if !ok {
		return ZeroAmounts()
	}
	out := Amounts{}
	for kind := 0; kind < RewardKinds; kind++ {
		out[kind] = pendingOf(u, s.AccRewardPerShare[kind], u.RewardDebt[kind])
		debt := new(big.Int).Mul(u.Staked, s.AccRewardPerShare[kind])
		debt.Quo(debt, RewardScale)
		u.RewardDebt[kind] = debt
	}
	return out
}

// MarkPaid records reward amounts already delivered to a user outside a
// completed settlement by advancing their reward debt, so the delivered
// amounts cannot be claimed a second time. The controller uses this when an
// operation aborts after its payout step: the snapshot rollback would
// otherwise resurrect the paid amounts as pending. Zero amounts are a no-op.
func (s *State) MarkPaid(addr common.Address, paid Amounts) {
	if paid.IsZero() {
		return
	}
	u := s.user(addr)
	for kind := 0; kind < RewardKinds; kind++ {
		if paid[kind] == nil || paid[kind].Sign() == 0 {
			continue
		}
		u.RewardDebt[kind].Add(u.RewardDebt[kind], paid[kind])
	}
}

// rebaseDebt re-prices the user's reward debt against the current
// accumulators. Called after a stake change so the new stake size only earns
// from this point forward.
func (s *State) rebaseDebt(u *UserRecord) {
	for kind := 0; kind < RewardKinds; kind++ {
		debt := new(big.Int).Mul(u.Staked, s.AccRewardPerShare[kind])
		debt.Quo(debt, RewardScale)
		u.RewardDebt[kind] = debt
	}
}

// IncreaseStake adds amount to the user's stake and to TotalStaked. It must
// be called only immediately after Settle(addr) within the same operation,
// so the rebased reward debt is correct for the new, larger stake.
func (s *State) IncreaseStake(addr common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	u := s.user(addr)
	u.Staked.Add(u.Staked, amount)
	s.TotalStaked.Add(s.TotalStaked, amount)
	s.rebaseDebt(u)
	return nil
}

// DecreaseStake removes amount from the user's stake and from TotalStaked.
// Fails with ErrInsufficientBalance when amount exceeds the user's stake.
// Like IncreaseStake, it must directly follow Settle(addr).
func (s *State) DecreaseStake(addr common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	u := s.user(addr)
	if amount.Cmp(u.Staked) > 0 {
		return ErrInsufficientBalance
	}
	u.Staked.Sub(u.Staked, amount)
	s.TotalStaked.Sub(s.TotalStaked, amount)
	s.rebaseDebt(u)
	return nil
}
