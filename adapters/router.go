package adapters

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-lpvault/vault"
)

const zapRouterABI = `[
	{"name":"zapIn","type":"function","stateMutability":"payable","inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"lpAmount","type":"uint256"}]},
	{"name":"zapOut","type":"function","stateMutability":"nonpayable","inputs":[{"name":"lpAmount","type":"uint256"},{"name":"token","type":"address"}],"outputs":[{"name":"amount","type":"uint256"}]}
]`

// ZapRouter adapts a zap-style conversion venue to the vault.Converter
// contract. The venue picks the conversion ratio at call time; the adapter
// reports only the amounts actually produced, measured as LP / asset
// balance deltas on the vault's account, so an optimistic return value from
// the venue can never inflate the ledger.
type ZapRouter struct {
	account    common.Address
	opts       *bind.TransactOpts
	backend    Backend
	routerAddr common.Address
	router     *bind.BoundContract
	lpToken    erc20
}

var _ vault.Converter = (*ZapRouter)(nil)

// NewZapRouter binds the router for the pool's LP token.
func NewZapRouter(backend Backend, opts *bind.TransactOpts, router, lpToken common.Address) *ZapRouter {
	return &ZapRouter{
		account:    opts.From,
		opts:       opts,
		backend:    backend,
		routerAddr: router,
		router:     bind.NewBoundContract(router, mustParseABI(zapRouterABI), backend, backend, backend),
		lpToken:    newERC20(lpToken, backend),
	}
}

// ConvertToLP swaps amount of asset into LP. For token assets the router
// pulls from the vault's account, so an allowance is granted first; for the
// native asset the value rides along with the zapIn call.
func (z *ZapRouter) ConvertToLP(ctx context.Context, asset vault.Asset, amount *big.Int) (*big.Int, error) {
	before, err := z.lpToken.balanceOf(ctx, z.account)
	if err != nil {
		return nil, fmt.Errorf("lp balance before zap: %w", err)
	}

	opts := transactOpts(ctx, z.opts)
	tokenArg := common.Address{}
	if !asset.IsNative() {
		tokenArg = asset.Token
		if err := newERC20(asset.Token, z.backend).approve(ctx, z.opts, z.routerAddr, amount); err != nil {
			return nil, fmt.Errorf("approve asset: %w", err)
		}
	} else {
		opts.Value = amount
	}

	tx, err := z.router.Transact(opts, "zapIn", tokenArg, amount)
	if err != nil {
		return nil, fmt.Errorf("zapIn: %w", err)
	}
	if err := waitSuccess(ctx, z.backend, tx); err != nil {
		return nil, err
	}

	after, err := z.lpToken.balanceOf(ctx, z.account)
	if err != nil {
		return nil, fmt.Errorf("lp balance after zap: %w", err)
	}
	lpAmount := new(big.Int).Sub(after, before)
	if lpAmount.Sign() <= 0 {
		return nil, fmt.Errorf("zapIn produced no LP")
	}
	return lpAmount, nil
}

// ConvertFromLP swaps lpAmount of LP back into the requested asset and
// returns the asset amount actually received.
func (z *ZapRouter) ConvertFromLP(ctx context.Context, lpAmount *big.Int, asset vault.Asset) (*big.Int, error) {
	if asset.IsNative() {
		return z.convertFromLPNative(ctx, lpAmount)
	}

	out := newERC20(asset.Token, z.backend)
	before, err := out.balanceOf(ctx, z.account)
	if err != nil {
		return nil, fmt.Errorf("asset balance before zap: %w", err)
	}

	if err := z.lpToken.approve(ctx, z.opts, z.routerAddr, lpAmount); err != nil {
		return nil, fmt.Errorf("approve lp: %w", err)
	}
	tx, err := z.router.Transact(transactOpts(ctx, z.opts), "zapOut", lpAmount, asset.Token)
	if err != nil {
		return nil, fmt.Errorf("zapOut: %w", err)
	}
	if err := waitSuccess(ctx, z.backend, tx); err != nil {
		return nil, err
	}

	after, err := out.balanceOf(ctx, z.account)
	if err != nil {
		return nil, fmt.Errorf("asset balance after zap: %w", err)
	}
	amount := new(big.Int).Sub(after, before)
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("zapOut produced no output")
	}
	return amount, nil
}

// convertFromLPNative zaps out to the native coin; the delta is read from
// the account's coin balance.
func (z *ZapRouter) convertFromLPNative(ctx context.Context, lpAmount *big.Int) (*big.Int, error) {
	before, err := z.backend.BalanceAt(ctx, z.account, nil)
	if err != nil {
		return nil, fmt.Errorf("native balance before zap: %w", err)
	}

	if err := z.lpToken.approve(ctx, z.opts, z.routerAddr, lpAmount); err != nil {
		return nil, fmt.Errorf("approve lp: %w", err)
	}
	tx, err := z.router.Transact(transactOpts(ctx, z.opts), "zapOut", lpAmount, common.Address{})
	if err != nil {
		return nil, fmt.Errorf("zapOut: %w", err)
	}
	if err := waitSuccess(ctx, z.backend, tx); err != nil {
		return nil, err
	}

	after, err := z.backend.BalanceAt(ctx, z.account, nil)
	if err != nil {
		return nil, fmt.Errorf("native balance after zap: %w", err)
	}
	amount := new(big.Int).Sub(after, before)
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("zapOut produced no output")
	}
	return amount, nil
}
