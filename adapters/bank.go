package adapters

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/rony4d/go-lpvault/vault"
)

// ErrNativeTransferIn is returned for an explicit native transfer-in: native
// funds arrive attached to the zap call itself, so the bank never pulls
// them separately.
var ErrNativeTransferIn = errors.New("native asset arrives with the call, no transfer-in")

const nativeTransferGas = 21000

// ERC20Bank implements vault.AssetBank over transfers signed by the vault's
// custody account. Token transfer-in uses transferFrom and therefore requires
// the depositor's prior allowance to the custody account, matching the
// approve-then-deposit flow of the reference deployment. Native transfer-out
// is a plain value transaction.
type ERC20Bank struct {
	account common.Address
	opts    *bind.TransactOpts
	backend Backend
}

var _ vault.AssetBank = (*ERC20Bank)(nil)

// NewERC20Bank creates a bank custodied by opts.From.
func NewERC20Bank(backend Backend, opts *bind.TransactOpts) *ERC20Bank {
	return &ERC20Bank{
		account: opts.From,
		opts:    opts,
		backend: backend,
	}
}

// TransferIn pulls amount of asset from `from` into custody.
func (b *ERC20Bank) TransferIn(ctx context.Context, asset vault.Asset, from common.Address, amount *big.Int) error {
	if asset.IsNative() {
		return ErrNativeTransferIn
	}
	return newERC20(asset.Token, b.backend).transferFrom(ctx, b.opts, from, b.account, amount)
}

// TransferOut sends amount of asset from custody to `to`.
func (b *ERC20Bank) TransferOut(ctx context.Context, asset vault.Asset, to common.Address, amount *big.Int) error {
	if asset.IsNative() {
		return b.transferOutNative(ctx, to, amount)
	}
	return newERC20(asset.Token, b.backend).transfer(ctx, b.opts, to, amount)
}

// transferOutNative sends a plain value transaction from the custody account.
func (b *ERC20Bank) transferOutNative(ctx context.Context, to common.Address, amount *big.Int) error {
	nonce, err := b.backend.PendingNonceAt(ctx, b.account)
	if err != nil {
		return fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := b.backend.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, to, amount, nativeTransferGas, gasPrice, nil)
	signed, err := b.opts.Signer(b.account, tx)
	if err != nil {
		return fmt.Errorf("sign native transfer: %w", err)
	}
	if err := b.backend.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("send native transfer: %w", err)
	}
	return waitSuccess(ctx, b.backend, signed)
}
