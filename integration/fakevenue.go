package integration

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-lpvault/ledger"
	"github.com/rony4d/go-lpvault/vault"
)

// FakeVenueConfig tunes the in-memory venue used by the fake preset.
type FakeVenueConfig struct {
	// PrimaryRate and SecondaryRate are reward units accrued per second
	// while any LP is staked.
	PrimaryRate   *big.Int
	SecondaryRate *big.Int

	// LPPerAsset is the conversion rate applied in both directions:
	// LP out = asset in * LPPerAssetNum / LPPerAssetDen.
	LPPerAssetNum *big.Int
	LPPerAssetDen *big.Int

	// FeeBps is the conversion fee in basis points, charged on output.
	FeeBps int64

	// Clock supplies the venue's notion of time; defaults to time.Now.
	Clock func() time.Time
}

// DefaultFakeVenueConfig returns a venue that accrues 3 primary and 1
// secondary reward units per second with a 1:1 fee-free conversion rate.
func DefaultFakeVenueConfig() FakeVenueConfig {
	return FakeVenueConfig{
		PrimaryRate:   big.NewInt(3),
		SecondaryRate: big.NewInt(1),
		LPPerAssetNum: big.NewInt(1),
		LPPerAssetDen: big.NewInt(1),
		FeeBps:        0,
	}
}

// FakeVenue is an in-memory stand-in for the staking and conversion venues.
// It implements all three adapter interfaces so a vault can be assembled
// without a chain, with deterministic reward accrual driven by an injectable
// clock. It tracks per-account asset balances so custody mistakes surface as
// insufficient-balance errors rather than silently passing.
type FakeVenue struct {
	mu  sync.Mutex
	cfg FakeVenueConfig

	vaultAccount common.Address
	staked       *big.Int
	lastAccrual  time.Time
	accrued      ledger.Amounts

	lpAsset     vault.Asset
	rewardAsset [ledger.RewardKinds]vault.Asset

	balances map[vault.Asset]map[common.Address]*big.Int
}

var (
	_ vault.RewardSource = (*FakeVenue)(nil)
	_ vault.Converter    = (*FakeVenue)(nil)
	_ vault.AssetBank    = (*FakeVenue)(nil)
)

// NewFakeVenue creates a venue for the given rules. vaultAccount is the
// address holding vault custody inside the venue's balance books.
func NewFakeVenue(rules vault.Rules, vaultAccount common.Address, cfg FakeVenueConfig) *FakeVenue {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	f := &FakeVenue{
		cfg:          cfg,
		vaultAccount: vaultAccount,
		staked:       new(big.Int),
		lastAccrual:  cfg.Clock(),
		accrued:      ledger.ZeroAmounts(),
		lpAsset:      vault.TokenAsset(rules.Pool.LPToken),
		rewardAsset: [ledger.RewardKinds]vault.Asset{
			ledger.PrimaryReward:   vault.TokenAsset(rules.RewardTokens[ledger.PrimaryReward]),
			ledger.SecondaryReward: vault.TokenAsset(rules.RewardTokens[ledger.SecondaryReward]),
		},
		balances: make(map[vault.Asset]map[common.Address]*big.Int),
	}
	return f
}

// Mint credits an account with an asset balance. Test and demo setup only.
func (f *FakeVenue) Mint(asset vault.Asset, account common.Address, amount *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credit(asset, account, amount)
}

// BalanceOf returns an account's balance of an asset inside the venue.
func (f *FakeVenue) BalanceOf(asset vault.Asset, account common.Address) *big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.balance(asset, account))
}

func (f *FakeVenue) balance(asset vault.Asset, account common.Address) *big.Int {
	book := f.balances[asset]
	if book == nil {
		book = make(map[common.Address]*big.Int)
		f.balances[asset] = book
	}
	b := book[account]
	if b == nil {
		b = new(big.Int)
		book[account] = b
	}
	return b
}

func (f *FakeVenue) credit(asset vault.Asset, account common.Address, amount *big.Int) {
	b := f.balance(asset, account)
	b.Add(b, amount)
}

func (f *FakeVenue) debit(asset vault.Asset, account common.Address, amount *big.Int) error {
	b := f.balance(asset, account)
	if b.Cmp(amount) < 0 {
		return fmt.Errorf("venue balance of %s for %s is %s, need %s",
			asset, account.Hex(), b, amount)
	}
	b.Sub(b, amount)
	return nil
}

// accrue folds elapsed time into the pending reward counters. Rewards accrue
// only while LP is staked, matching how real venues stream per block.
func (f *FakeVenue) accrue() {
	now := f.cfg.Clock()
	elapsed := int64(now.Sub(f.lastAccrual) / time.Second)
	f.lastAccrual = now
	if elapsed <= 0 || f.staked.Sign() == 0 {
		return
	}
	secs := big.NewInt(elapsed)
	f.accrued[ledger.PrimaryReward].Add(f.accrued[ledger.PrimaryReward],
		new(big.Int).Mul(f.cfg.PrimaryRate, secs))
	f.accrued[ledger.SecondaryReward].Add(f.accrued[ledger.SecondaryReward],
		new(big.Int).Mul(f.cfg.SecondaryRate, secs))
}

// Stake moves LP from vault custody into the venue.
func (f *FakeVenue) Stake(ctx context.Context, amount *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.accrue()
	if err := f.debit(f.lpAsset, f.vaultAccount, amount); err != nil {
		return err
	}
	f.staked.Add(f.staked, amount)
	return nil
}

// Unstake moves LP from the venue back into vault custody.
func (f *FakeVenue) Unstake(ctx context.Context, amount *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.accrue()
	if f.staked.Cmp(amount) < 0 {
		return fmt.Errorf("venue staked balance %s below %s", f.staked, amount)
	}
	f.staked.Sub(f.staked, amount)
	f.credit(f.lpAsset, f.vaultAccount, amount)
	return nil
}

// PendingReward reports accrued-but-unclaimed rewards of one kind.
func (f *FakeVenue) PendingReward(ctx context.Context, kind int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.accrue()
	return new(big.Int).Set(f.accrued[kind]), nil
}

// Harvest pays all accrued rewards into vault custody and resets the
// counters, returning the amounts actually transferred.
func (f *FakeVenue) Harvest(ctx context.Context) (primary, secondary *big.Int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.accrue()
	primary = new(big.Int).Set(f.accrued[ledger.PrimaryReward])
	secondary = new(big.Int).Set(f.accrued[ledger.SecondaryReward])
	f.credit(f.rewardAsset[ledger.PrimaryReward], f.vaultAccount, primary)
	f.credit(f.rewardAsset[ledger.SecondaryReward], f.vaultAccount, secondary)
	f.accrued = ledger.ZeroAmounts()
	return primary, secondary, nil
}

// ConvertToLP swaps a vault-held asset into LP at the configured rate.
// Native funds are considered attached to the call rather than drawn from
// the vault's balance book.
func (f *FakeVenue) ConvertToLP(ctx context.Context, asset vault.Asset, amount *big.Int) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if asset.IsNative() {
		f.credit(asset, f.vaultAccount, amount)
	}
	if err := f.debit(asset, f.vaultAccount, amount); err != nil {
		return nil, err
	}
	out := f.applyRate(amount, f.cfg.LPPerAssetNum, f.cfg.LPPerAssetDen)
	f.credit(f.lpAsset, f.vaultAccount, out)
	return out, nil
}

// ConvertFromLP swaps vault-held LP back into the requested asset.
func (f *FakeVenue) ConvertFromLP(ctx context.Context, lpAmount *big.Int, asset vault.Asset) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.debit(f.lpAsset, f.vaultAccount, lpAmount); err != nil {
		return nil, err
	}
	out := f.applyRate(lpAmount, f.cfg.LPPerAssetDen, f.cfg.LPPerAssetNum)
	f.credit(asset, f.vaultAccount, out)
	return out, nil
}

// applyRate converts amount by num/den, then charges the fee on the output.
func (f *FakeVenue) applyRate(amount, num, den *big.Int) *big.Int {
	out := new(big.Int).Mul(amount, num)
	out.Quo(out, den)
	if f.cfg.FeeBps > 0 {
		fee := new(big.Int).Mul(out, big.NewInt(f.cfg.FeeBps))
		fee.Quo(fee, big.NewInt(10_000))
		out.Sub(out, fee)
	}
	return out
}

// TransferIn pulls an asset from a user account into vault custody. Native
// funds are treated as already attached to the call, so nothing moves.
func (f *FakeVenue) TransferIn(ctx context.Context, asset vault.Asset, from common.Address, amount *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if asset.IsNative() {
		f.credit(asset, f.vaultAccount, amount)
		return nil
	}
	if err := f.debit(asset, from, amount); err != nil {
		return err
	}
	f.credit(asset, f.vaultAccount, amount)
	return nil
}

// TransferOut sends an asset from vault custody to a user account.
func (f *FakeVenue) TransferOut(ctx context.Context, asset vault.Asset, to common.Address, amount *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.debit(asset, f.vaultAccount, amount); err != nil {
		return err
	}
	f.credit(asset, to, amount)
	return nil
}
