package vault

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RewardSource fronts the external staking venue that holds the LP token and
// emits the two reward tokens over time. Implementations must be called only
// by the controller, never by end users directly.
type RewardSource interface {
	// Stake moves LP custody from the vault into the reward source.
	Stake(ctx context.Context, amount *big.Int) error

	// Unstake moves LP custody from the reward source back to the vault.
	Unstake(ctx context.Context, amount *big.Int) error

	// PendingReward is a read-only projection of reward accrued but not yet
	// pulled into the vault. It must not mutate source state.
	PendingReward(ctx context.Context, kind int) (*big.Int, error)

	// Harvest pulls all currently-claimable rewards of both kinds into
	// vault custody and returns the amounts actually received. Idempotent
	// when nothing is pending (returns zeros).
	Harvest(ctx context.Context) (primary, secondary *big.Int, err error)
}

// Converter fronts the asset-conversion venue used by the non-LP
// deposit/withdraw path. Both calls are atomic: either the full conversion
// succeeds and the stated counter-amount is produced in vault custody, or
// the call fails and no assets move. The controller only ever uses the
// returned amounts, never an estimate.
type Converter interface {
	ConvertToLP(ctx context.Context, asset Asset, amount *big.Int) (lpAmount *big.Int, err error)
	ConvertFromLP(ctx context.Context, lpAmount *big.Int, asset Asset) (assetAmount *big.Int, err error)
}

// AssetBank is the custody capability: it moves assets between external
// accounts and the vault's own custody. Transport-level token mechanics live
// behind this boundary, keeping the controller testable without a chain.
type AssetBank interface {
	// TransferIn pulls amount of asset from `from` into vault custody. For
	// the native asset the funds arrive attached to the call and this is a
	// no-op acknowledgement.
	TransferIn(ctx context.Context, asset Asset, from common.Address, amount *big.Int) error

	// TransferOut sends amount of asset from vault custody to `to`.
	TransferOut(ctx context.Context, asset Asset, to common.Address, amount *big.Int) error
}
