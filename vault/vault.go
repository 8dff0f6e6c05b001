package vault

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-lpvault/ledger"
)

// Vault is the controller. Every state-changing entry point follows the same
// protocol: harvest newly-available rewards into the ledger's accumulators,
// settle the caller's pending reward, apply the caller's balance change, and
// only then perform external custody transfers. If any external call fails,
// the ledger is restored to its pre-operation state and no events are
// emitted, so an aborted operation is invisible to accounting.
//
// Two external effects of an aborted operation are irreversible and are
// compensated instead of rolled back: rewards already pulled from the source
// are folded back into the restored ledger so they stay claimable, and
// rewards already delivered to the caller are marked paid so the rollback
// cannot resurrect them. Custody taken from the caller before the failure
// (a transferred-in asset, a completed conversion) is returned to them.
//
// The mutex models the host's serialized-transaction guarantee: operations
// run to completion one at a time, so the ledger never exposes torn state.
// There is no finer-grained locking and none is needed.
type Vault struct {
	mu sync.Mutex

	rules     Rules
	ledger    *ledger.State
	source    RewardSource
	converter Converter
	bank      AssetBank
	whitelist map[Asset]struct{}
	sink      EventSink
	log       *logrus.Entry

	// lastHarvest is the amounts received by the most recent harvest,
	// controller-level bookkeeping surfaced via PoolInfo.
	lastHarvest ledger.Amounts
}

// Option configures optional collaborators at construction.
type Option func(*Vault)

// WithEventSink routes committed events to sink instead of discarding them.
func WithEventSink(sink EventSink) Option {
	return func(v *Vault) { v.sink = sink }
}

// WithLogger attaches a logger; a silenced one is used otherwise.
func WithLogger(log *logrus.Logger) Option {
	return func(v *Vault) { v.log = log.WithField("component", "vault") }
}

// WithLedger seeds the controller with pre-existing ledger state, e.g. one
// restored from a checkpoint.
func WithLedger(state *ledger.State) Option {
	return func(v *Vault) { v.ledger = state }
}

// New constructs a controller over the given collaborators. The whitelist
// starts from rules.Whitelist and is mutable only via the privileged
// operations.
func New(rules Rules, source RewardSource, converter Converter, bank AssetBank, opts ...Option) *Vault {
	silenced := logrus.New()
	silenced.SetLevel(logrus.PanicLevel)

	v := &Vault{
		rules:       rules.Copy(),
		ledger:      ledger.NewState(),
		source:      source,
		converter:   converter,
		bank:        bank,
		whitelist:   make(map[Asset]struct{}),
		sink:        NoopSink{},
		log:         silenced.WithField("component", "vault"),
		lastHarvest: ledger.ZeroAmounts(),
	}
	for _, asset := range rules.Whitelist {
		v.whitelist[asset] = struct{}{}
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// lpAsset returns the LP token as an Asset for custody transfers.
func (v *Vault) lpAsset() Asset {
	return TokenAsset(v.rules.Pool.LPToken)
}

// rewardAsset returns the reward token of the given kind as an Asset.
func (v *Vault) rewardAsset(kind int) Asset {
	return TokenAsset(v.rules.RewardTokens[kind])
}

// harvest pulls rewards from the source and folds them into the ledger
// accumulators, returning the received amounts. Must precede any settlement
// in the same operation. A non-nil error with zero returned amounts means
// nothing left the source.
func (v *Vault) harvest(ctx context.Context) (ledger.Amounts, error) {
	primary, secondary, err := v.source.Harvest(ctx)
	if err != nil {
		return ledger.ZeroAmounts(), external("harvest", err)
	}
	received := ledger.Amounts{ledger.PrimaryReward: primary, ledger.SecondaryReward: secondary}
	if err := v.ledger.OnHarvest(received); err != nil {
		return ledger.ZeroAmounts(), err
	}
	v.lastHarvest = received.Copy()
	return received.Copy(), nil
}

// payOut transfers settled reward amounts to the recipient, returning the
// amounts actually delivered. Zero amounts are skipped; the transfer is an
// external custody call, so a failure can leave earlier kinds delivered.
func (v *Vault) payOut(ctx context.Context, to common.Address, pending ledger.Amounts) (ledger.Amounts, error) {
	paid := ledger.ZeroAmounts()
	for kind := 0; kind < ledger.RewardKinds; kind++ {
		if pending[kind].Sign() == 0 {
			continue
		}
		if err := v.bank.TransferOut(ctx, v.rewardAsset(kind), to, pending[kind]); err != nil {
			return paid, external("payReward", err)
		}
		paid[kind].Set(pending[kind])
	}
	return paid, nil
}

// restoreAfterAbort rewinds the ledger to the pre-operation snapshot while
// keeping the operation's irreversible effects accounted: rewards already
// harvested are folded back in (they sit in vault custody and must remain
// claimable, or become surplus if no stake is left), and rewards already
// delivered to the payee are marked paid so the rollback cannot offer them
// a second time.
func (v *Vault) restoreAfterAbort(snapshot *ledger.State, harvested bool, received ledger.Amounts, payee common.Address, paid ledger.Amounts) {
	v.ledger = snapshot
	if harvested {
		// Amounts were accepted by the first fold, so this cannot fail.
		_ = v.ledger.OnHarvest(received)
	}
	v.ledger.MarkPaid(payee, paid)
}

// refundAsset returns custody taken from the caller by an aborted operation.
// Best effort: a failed refund leaves the amount in vault custody for manual
// release and is logged at error level.
func (v *Vault) refundAsset(ctx context.Context, asset Asset, to common.Address, amount *big.Int) {
	if err := v.bank.TransferOut(ctx, asset, to, amount); err != nil {
		v.log.WithError(err).WithFields(logrus.Fields{
			"asset": asset.String(), "to": to.Hex(), "amount": amount,
		}).Error("refund after aborted operation failed")
	}
}

// unwindConversion returns a conversion deposit's custody to the caller
// after an abort. LP already produced is converted back and the proceeds
// (which may be less than the input after venue fees) are returned; an asset
// taken but not yet converted is returned directly. Best effort.
func (v *Vault) unwindConversion(ctx context.Context, caller common.Address, asset Asset, amount, lpAmount *big.Int, assetTaken bool) {
	if lpAmount.Sign() > 0 {
		back, err := v.converter.ConvertFromLP(ctx, lpAmount, asset)
		if err != nil {
			v.log.WithError(err).WithFields(logrus.Fields{
				"asset": asset.String(), "lpAmount": lpAmount,
			}).Error("conversion unwind after aborted operation failed")
			return
		}
		v.refundAsset(ctx, asset, caller, back)
		return
	}
	if assetTaken {
		v.refundAsset(ctx, asset, caller, amount)
	}
}

// restake returns unstaked LP to the reward source after an aborted
// withdrawal, so venue custody matches the restored ledger. Best effort.
func (v *Vault) restake(ctx context.Context, amount *big.Int) {
	if err := v.source.Stake(ctx, amount); err != nil {
		v.log.WithError(err).WithField("amount", amount).
			Error("restake after aborted operation failed")
	}
}

// Deposit takes amount of LP from the caller, credits their stake, and
// stakes the LP into the reward source. Fails with ErrInvalidAmount when
// amount is zero. Emits a single Deposited event.
func (v *Vault) Deposit(ctx context.Context, caller common.Address, amount *big.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	snapshot := v.ledger.Copy()
	var (
		harvested bool
		received  = ledger.ZeroAmounts()
		paid      = ledger.ZeroAmounts()
		lpTaken   bool
	)
	err := func() error {
		var err error
		if received, err = v.harvest(ctx); err != nil {
			return err
		}
		harvested = true
		pending := v.ledger.Settle(caller)
		if err := v.ledger.IncreaseStake(caller, amount); err != nil {
			return err
		}
		// Ledger is final for this op; external custody moves follow.
		if paid, err = v.payOut(ctx, caller, pending); err != nil {
			return err
		}
		if err := v.bank.TransferIn(ctx, v.lpAsset(), caller, amount); err != nil {
			return external("transferIn", err)
		}
		lpTaken = true
		if err := v.source.Stake(ctx, amount); err != nil {
			return external("stake", err)
		}
		return nil
	}()
	if err != nil {
		v.restoreAfterAbort(snapshot, harvested, received, caller, paid)
		if lpTaken {
			v.refundAsset(ctx, v.lpAsset(), caller, amount)
		}
		return err
	}

	v.log.WithFields(logrus.Fields{"user": caller.Hex(), "amount": amount}).Info("deposit")
	v.sink.Emit(Deposited{User: caller, Amount: new(big.Int).Set(amount)})
	return nil
}

// DepositAsset converts amount of a whitelisted asset into LP and deposits
// the LP actually produced. Fails with ErrNotWhitelisted before any custody
// transfer occurs. The DepositedAsset event carries the LP amount received
// from the conversion, never the input amount.
func (v *Vault) DepositAsset(ctx context.Context, caller common.Address, asset Asset, amount *big.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if _, ok := v.whitelist[asset]; !ok {
		return ErrNotWhitelisted
	}

	snapshot := v.ledger.Copy()
	var (
		harvested  bool
		received   = ledger.ZeroAmounts()
		paid       = ledger.ZeroAmounts()
		assetTaken bool
	)
	lpAmount := new(big.Int)
	err := func() error {
		// Native funds arrive attached to the call; only tokens need an
		// explicit transfer-in.
		if !asset.IsNative() {
			if err := v.bank.TransferIn(ctx, asset, caller, amount); err != nil {
				return external("transferIn", err)
			}
			assetTaken = true
		}
		converted, err := v.converter.ConvertToLP(ctx, asset, amount)
		if err != nil {
			return external("convertToLP", err)
		}
		lpAmount.Set(converted)

		if received, err = v.harvest(ctx); err != nil {
			return err
		}
		harvested = true
		pending := v.ledger.Settle(caller)
		if err := v.ledger.IncreaseStake(caller, lpAmount); err != nil {
			return err
		}
		if paid, err = v.payOut(ctx, caller, pending); err != nil {
			return err
		}
		if err := v.source.Stake(ctx, lpAmount); err != nil {
			return external("stake", err)
		}
		return nil
	}()
	if err != nil {
		v.restoreAfterAbort(snapshot, harvested, received, caller, paid)
		v.unwindConversion(ctx, caller, asset, amount, lpAmount, assetTaken)
		return err
	}

	v.log.WithFields(logrus.Fields{
		"user": caller.Hex(), "asset": asset.String(), "lpAmount": lpAmount,
	}).Info("depositAsset")
	v.sink.Emit(DepositedAsset{User: caller, Asset: asset, LPAmount: lpAmount})
	return nil
}

// Withdraw settles the caller's rewards, reduces their stake, unstakes the
// LP from the reward source, and returns it to the caller. Fails with
// ErrInsufficientBalance when amount exceeds the caller's stake. A withdraw
// with pending rewards emits Claimed first, then Withdrawn.
func (v *Vault) Withdraw(ctx context.Context, caller common.Address, amount *big.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if amount.Cmp(v.ledger.StakedOf(caller)) > 0 {
		return ErrInsufficientBalance
	}

	snapshot := v.ledger.Copy()
	var (
		harvested bool
		received  = ledger.ZeroAmounts()
		paid      = ledger.ZeroAmounts()
		unstaked  bool
	)
	pending := ledger.ZeroAmounts()
	err := func() error {
		var err error
		if received, err = v.harvest(ctx); err != nil {
			return err
		}
		harvested = true
		pending = v.ledger.Settle(caller)
		if err := v.ledger.DecreaseStake(caller, amount); err != nil {
			return err
		}
		if paid, err = v.payOut(ctx, caller, pending); err != nil {
			return err
		}
		if err := v.source.Unstake(ctx, amount); err != nil {
			return external("unstake", err)
		}
		unstaked = true
		if err := v.bank.TransferOut(ctx, v.lpAsset(), caller, amount); err != nil {
			return external("transferOut", err)
		}
		return nil
	}()
	if err != nil {
		v.restoreAfterAbort(snapshot, harvested, received, caller, paid)
		if unstaked {
			v.restake(ctx, amount)
		}
		return err
	}

	v.log.WithFields(logrus.Fields{"user": caller.Hex(), "amount": amount}).Info("withdraw")
	if !pending.IsZero() {
		v.sink.Emit(Claimed{
			User:      caller,
			Primary:   pending[ledger.PrimaryReward],
			Secondary: pending[ledger.SecondaryReward],
		})
	}
	v.sink.Emit(Withdrawn{User: caller, Amount: new(big.Int).Set(amount)})
	return nil
}

// WithdrawAsset behaves like Withdraw but passes the unstaked LP through the
// conversion venue and sends the caller the requested asset instead. The
// event reports the converted amount actually produced.
func (v *Vault) WithdrawAsset(ctx context.Context, caller common.Address, asset Asset, amount *big.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if _, ok := v.whitelist[asset]; !ok {
		return ErrNotWhitelisted
	}
	if amount.Cmp(v.ledger.StakedOf(caller)) > 0 {
		return ErrInsufficientBalance
	}

	snapshot := v.ledger.Copy()
	var (
		harvested bool
		received  = ledger.ZeroAmounts()
		paid      = ledger.ZeroAmounts()
		unstaked  bool
	)
	pending := ledger.ZeroAmounts()
	assetAmount := new(big.Int)
	err := func() error {
		var err error
		if received, err = v.harvest(ctx); err != nil {
			return err
		}
		harvested = true
		pending = v.ledger.Settle(caller)
		if err := v.ledger.DecreaseStake(caller, amount); err != nil {
			return err
		}
		if paid, err = v.payOut(ctx, caller, pending); err != nil {
			return err
		}
		if err := v.source.Unstake(ctx, amount); err != nil {
			return external("unstake", err)
		}
		unstaked = true
		converted, err := v.converter.ConvertFromLP(ctx, amount, asset)
		if err != nil {
			return external("convertFromLP", err)
		}
		assetAmount.Set(converted)
		if err := v.bank.TransferOut(ctx, asset, caller, assetAmount); err != nil {
			return external("transferOut", err)
		}
		return nil
	}()
	if err != nil {
		v.restoreAfterAbort(snapshot, harvested, received, caller, paid)
		switch {
		case assetAmount.Sign() > 0:
			// LP was already converted out; convert back and restake so
			// venue custody matches the restored stake.
			lpBack, cerr := v.converter.ConvertToLP(ctx, asset, assetAmount)
			if cerr != nil {
				v.log.WithError(cerr).WithField("asset", asset.String()).
					Error("conversion unwind after aborted operation failed")
			} else {
				v.restake(ctx, lpBack)
			}
		case unstaked:
			v.restake(ctx, amount)
		}
		return err
	}

	v.log.WithFields(logrus.Fields{
		"user": caller.Hex(), "asset": asset.String(), "amount": assetAmount,
	}).Info("withdrawAsset")
	if !pending.IsZero() {
		v.sink.Emit(Claimed{
			User:      caller,
			Primary:   pending[ledger.PrimaryReward],
			Secondary: pending[ledger.SecondaryReward],
		})
	}
	v.sink.Emit(WithdrawnAsset{User: caller, Asset: asset, Amount: assetAmount})
	return nil
}

// Claim settles the caller's rewards and pays both amounts to `to`, which
// may differ from the caller (delegated payout). Always emits exactly one
// Claimed event, even when both pending amounts are zero.
func (v *Vault) Claim(ctx context.Context, caller, to common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	snapshot := v.ledger.Copy()
	var (
		harvested bool
		received  = ledger.ZeroAmounts()
		paid      = ledger.ZeroAmounts()
	)
	pending := ledger.ZeroAmounts()
	err := func() error {
		var err error
		if received, err = v.harvest(ctx); err != nil {
			return err
		}
		harvested = true
		pending = v.ledger.Settle(caller)
		paid, err = v.payOut(ctx, to, pending)
		return err
	}()
	if err != nil {
		// Debt belongs to the caller even when payout went to a delegate.
		v.restoreAfterAbort(snapshot, harvested, received, caller, paid)
		return err
	}

	v.log.WithFields(logrus.Fields{
		"user": caller.Hex(), "to": to.Hex(),
		"primary":   pending[ledger.PrimaryReward],
		"secondary": pending[ledger.SecondaryReward],
	}).Info("claim")
	v.sink.Emit(Claimed{
		User:      caller,
		Primary:   pending[ledger.PrimaryReward],
		Secondary: pending[ledger.SecondaryReward],
	})
	return nil
}

// GetRewards pulls rewards into vault custody and folds them into the
// accumulators without settling or paying any user; used to pre-fund the
// vault ahead of a batch of claims. Authority only.
func (v *Vault) GetRewards(ctx context.Context, caller common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if caller != v.rules.Authority {
		return ErrUnauthorized
	}

	snapshot := v.ledger.Copy()
	if _, err := v.harvest(ctx); err != nil {
		v.ledger = snapshot
		return err
	}
	v.log.WithFields(logrus.Fields{
		"primary":   v.lastHarvest[ledger.PrimaryReward],
		"secondary": v.lastHarvest[ledger.SecondaryReward],
	}).Info("getRewards")
	return nil
}

// AddWhitelistAsset adds an asset to the conversion-path whitelist.
// Idempotent. Authority only.
func (v *Vault) AddWhitelistAsset(caller common.Address, asset Asset) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if caller != v.rules.Authority {
		return ErrUnauthorized
	}
	v.whitelist[asset] = struct{}{}
	v.log.WithField("asset", asset.String()).Info("whitelist add")
	return nil
}

// RemoveWhitelistAsset removes an asset from the whitelist. Idempotent.
// Authority only.
func (v *Vault) RemoveWhitelistAsset(caller common.Address, asset Asset) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if caller != v.rules.Authority {
		return ErrUnauthorized
	}
	delete(v.whitelist, asset)
	v.log.WithField("asset", asset.String()).Info("whitelist remove")
	return nil
}

// IsWhitelisted reports whether an asset is eligible for the conversion
// path.
func (v *Vault) IsWhitelisted(asset Asset) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.whitelist[asset]
	return ok
}

// PoolInfo returns the pool reference and the ledger's global counters.
func (v *Vault) PoolInfo() PoolInfo {
	v.mu.Lock()
	defer v.mu.Unlock()

	return PoolInfo{
		Pool:              v.rules.Pool,
		RewardTokens:      v.rules.RewardTokens,
		TotalStaked:       new(big.Int).Set(v.ledger.TotalStaked),
		AccRewardPerShare: v.ledger.AccRewardPerShare.Copy(),
		Surplus:           v.ledger.Surplus.Copy(),
		LastHarvest:       v.lastHarvest.Copy(),
	}
}

// UserInfo returns the user's staked amount and reward debts.
func (v *Vault) UserInfo(addr common.Address) (staked, rewardDebtPrimary, rewardDebtSecondary *big.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	staked, debt := v.ledger.UserInfo(addr)
	return staked, debt[ledger.PrimaryReward], debt[ledger.SecondaryReward]
}

// PendingReward returns the user's settled-but-unpaid reward projection per
// the ledger's current accumulators, without touching the reward source.
func (v *Vault) PendingReward(addr common.Address) (primary, secondary *big.Int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	pending := v.ledger.Pending(addr)
	return pending[ledger.PrimaryReward], pending[ledger.SecondaryReward]
}

// PendingPrimaryReward reports the primary reward accrued at the source but
// not yet pulled into the vault. Read-only.
func (v *Vault) PendingPrimaryReward(ctx context.Context) (*big.Int, error) {
	amount, err := v.source.PendingReward(ctx, ledger.PrimaryReward)
	return amount, external("pendingReward", err)
}

// PendingSecondaryReward reports the secondary reward accrued at the source
// but not yet pulled into the vault. Read-only.
func (v *Vault) PendingSecondaryReward(ctx context.Context) (*big.Int, error) {
	amount, err := v.source.PendingReward(ctx, ledger.SecondaryReward)
	return amount, external("pendingReward", err)
}

// LedgerSnapshot returns a canonical binary checkpoint of the ledger.
func (v *Vault) LedgerSnapshot() ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ledger.MarshalBinary()
}

// RestoreLedger replaces the ledger with the decoded checkpoint. Intended
// for daemon startup, before the vault serves operations.
func (v *Vault) RestoreLedger(raw []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	state := ledger.NewState()
	if err := state.UnmarshalBinary(raw); err != nil {
		return err
	}
	v.ledger = state
	return nil
}

// Rules returns a copy of the vault's configuration.
func (v *Vault) Rules() Rules {
	return v.rules.Copy()
}
