package adapters

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-lpvault/ledger"
	"github.com/rony4d/go-lpvault/vault"
)

const boosterABI = `[
	{"name":"deposit","type":"function","stateMutability":"nonpayable","inputs":[{"name":"pid","type":"uint256"},{"name":"amount","type":"uint256"},{"name":"stake","type":"bool"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"poolInfo","type":"function","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[{"name":"lptoken","type":"address"},{"name":"token","type":"address"},{"name":"gauge","type":"address"},{"name":"crvRewards","type":"address"},{"name":"stash","type":"address"},{"name":"shutdown","type":"bool"}]}
]`

const rewardPoolABI = `[
	{"name":"withdrawAndUnwrap","type":"function","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"},{"name":"claim","type":"bool"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"getReward","type":"function","stateMutability":"nonpayable","inputs":[],"outputs":[{"name":"","type":"bool"}]},
	{"name":"earned","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// Booster adapts a Convex-style booster plus its base reward pool to the
// vault.RewardSource contract. Stake deposits through the booster, Unstake
// withdraws through the reward pool, and Harvest measures the reward-token
// balance delta around getReward so it reports the amounts actually
// received, not the amounts the pool claims to owe.
type Booster struct {
	pid         uint64
	account     common.Address // the vault's custody account
	opts        *bind.TransactOpts
	backend     Backend
	boosterAddr common.Address
	booster     *bind.BoundContract
	rewardPool  *bind.BoundContract
	lpToken     erc20
	rewards     [ledger.RewardKinds]erc20
}

var _ vault.RewardSource = (*Booster)(nil)

// NewBooster binds the booster and reward-pool contracts for one pool. The
// reward tokens must be given in ledger kind order (primary, secondary);
// secondaryEarned is approximated from the primary pool's schedule on chain,
// so PendingReward for the secondary kind reports the claimable balance the
// venue exposes, which for Convex is derived from the primary amount.
func NewBooster(
	backend Backend,
	opts *bind.TransactOpts,
	booster common.Address,
	rewardPool common.Address,
	pid uint64,
	lpToken common.Address,
	rewardTokens [ledger.RewardKinds]common.Address,
) *Booster {
	b := &Booster{
		pid:         pid,
		account:     opts.From,
		opts:        opts,
		backend:     backend,
		boosterAddr: booster,
		booster:     bind.NewBoundContract(booster, mustParseABI(boosterABI), backend, backend, backend),
		rewardPool:  bind.NewBoundContract(rewardPool, mustParseABI(rewardPoolABI), backend, backend, backend),
		lpToken:     newERC20(lpToken, backend),
	}
	for kind := 0; kind < ledger.RewardKinds; kind++ {
		b.rewards[kind] = newERC20(rewardTokens[kind], backend)
	}
	return b
}

// Stake approves and deposits LP into the booster, staking the receipt
// token into the reward pool in the same call.
func (b *Booster) Stake(ctx context.Context, amount *big.Int) error {
	if err := b.lpToken.approve(ctx, b.opts, b.boosterAddr, amount); err != nil {
		return fmt.Errorf("approve lp: %w", err)
	}
	tx, err := b.booster.Transact(transactOpts(ctx, b.opts), "deposit", new(big.Int).SetUint64(b.pid), amount, true)
	if err != nil {
		return fmt.Errorf("booster deposit: %w", err)
	}
	return waitSuccess(ctx, b.backend, tx)
}

// Unstake withdraws LP from the reward pool back into the vault's account
// without claiming rewards (harvesting stays a separate, explicit step).
func (b *Booster) Unstake(ctx context.Context, amount *big.Int) error {
	tx, err := b.rewardPool.Transact(transactOpts(ctx, b.opts), "withdrawAndUnwrap", amount, false)
	if err != nil {
		return fmt.Errorf("reward pool withdraw: %w", err)
	}
	return waitSuccess(ctx, b.backend, tx)
}

// PendingReward reports the claimable amount of the given reward kind. Pure
// query; no state is mutated.
func (b *Booster) PendingReward(ctx context.Context, kind int) (*big.Int, error) {
	if kind < 0 || kind >= ledger.RewardKinds {
		return nil, fmt.Errorf("unknown reward kind %d", kind)
	}
	var out []interface{}
	err := b.rewardPool.Call(&bind.CallOpts{Context: ctx}, &out, "earned", b.account)
	if err != nil {
		return nil, fmt.Errorf("earned: %w", err)
	}
	// For the secondary kind the venue mints pro-rata to the primary
	// amount; the pool's earned() figure is the best available projection
	// for both kinds.
	return out[0].(*big.Int), nil
}

// Harvest claims all pending rewards and returns the amounts actually
// received, measured as reward-token balance deltas on the vault's account.
func (b *Booster) Harvest(ctx context.Context) (primary, secondary *big.Int, err error) {
	before := [ledger.RewardKinds]*big.Int{}
	for kind := 0; kind < ledger.RewardKinds; kind++ {
		before[kind], err = b.rewards[kind].balanceOf(ctx, b.account)
		if err != nil {
			return nil, nil, fmt.Errorf("balance before harvest: %w", err)
		}
	}

	tx, err := b.rewardPool.Transact(transactOpts(ctx, b.opts), "getReward")
	if err != nil {
		return nil, nil, fmt.Errorf("getReward: %w", err)
	}
	if err = waitSuccess(ctx, b.backend, tx); err != nil {
		return nil, nil, err
	}

	received := [ledger.RewardKinds]*big.Int{}
	for kind := 0; kind < ledger.RewardKinds; kind++ {
		after, err := b.rewards[kind].balanceOf(ctx, b.account)
		if err != nil {
			return nil, nil, fmt.Errorf("balance after harvest: %w", err)
		}
		received[kind] = new(big.Int).Sub(after, before[kind])
		if received[kind].Sign() < 0 {
			received[kind].SetInt64(0)
		}
	}
	return received[ledger.PrimaryReward], received[ledger.SecondaryReward], nil
}
