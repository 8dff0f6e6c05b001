// Package adapters contains the thin shims that front the external venues:
// a Convex-style booster as the reward source and a zap router as the
// conversion venue. The real logic lives in the contracts; the adapters only
// translate vault-level calls into ABI calls and report the amounts the
// contracts actually moved.
package adapters

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Backend is the subset of an Ethereum client the adapters need. A live
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend

	// BalanceAt reads the native-coin balance, used to measure native
	// conversion deltas.
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// mustParseABI parses a compile-time constant ABI string.
func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("adapters: bad ABI constant: %v", err))
	}
	return parsed
}

// waitSuccess blocks until the transaction is mined and fails if it
// reverted.
func waitSuccess(ctx context.Context, backend Backend, tx *types.Transaction) error {
	receipt, err := bind.WaitMined(ctx, backend, tx)
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}
	return nil
}

// transactOpts clones the base options and binds them to ctx.
func transactOpts(ctx context.Context, base *bind.TransactOpts) *bind.TransactOpts {
	opts := *base
	opts.Context = ctx
	return &opts
}

const erc20ABI = `[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"transfer","type":"function","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"transferFrom","type":"function","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}
]`

// erc20 is a minimal bound ERC-20.
type erc20 struct {
	addr     common.Address
	contract *bind.BoundContract
	backend  Backend
}

func newERC20(addr common.Address, backend Backend) erc20 {
	parsed := mustParseABI(erc20ABI)
	return erc20{
		addr:     addr,
		contract: bind.NewBoundContract(addr, parsed, backend, backend, backend),
		backend:  backend,
	}
}

func (t erc20) balanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	var out []interface{}
	err := t.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (t erc20) approve(ctx context.Context, opts *bind.TransactOpts, spender common.Address, amount *big.Int) error {
	tx, err := t.contract.Transact(transactOpts(ctx, opts), "approve", spender, amount)
	if err != nil {
		return err
	}
	return waitSuccess(ctx, t.backend, tx)
}

func (t erc20) transfer(ctx context.Context, opts *bind.TransactOpts, to common.Address, amount *big.Int) error {
	tx, err := t.contract.Transact(transactOpts(ctx, opts), "transfer", to, amount)
	if err != nil {
		return err
	}
	return waitSuccess(ctx, t.backend, tx)
}

func (t erc20) transferFrom(ctx context.Context, opts *bind.TransactOpts, from, to common.Address, amount *big.Int) error {
	tx, err := t.contract.Transact(transactOpts(ctx, opts), "transferFrom", from, to, amount)
	if err != nil {
		return err
	}
	return waitSuccess(ctx, t.backend, tx)
}
