package vault

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// AssetKind discriminates the two custody models an accepted asset can have.
type AssetKind uint8

const (
	// AssetNative is the chain's native coin: funds arrive attached to the
	// call, so deposit needs no transfer-in step.
	AssetNative AssetKind = iota

	// AssetToken is an ERC-20 style token identified by its contract
	// address; custody moves via explicit transfers.
	AssetToken
)

// Asset identifies a depositable/withdrawable asset as a tagged variant over
// {native, token}. The native case differs only in how custody is taken in,
// never in ledger accounting. Asset is comparable, so it can key the
// whitelist set directly.
type Asset struct {
	Kind  AssetKind
	Token common.Address // zero for AssetNative
}

// NativeAsset returns the native-coin asset identifier.
func NativeAsset() Asset {
	return Asset{Kind: AssetNative}
}

// TokenAsset returns the asset identifier for a token contract.
func TokenAsset(token common.Address) Asset {
	return Asset{Kind: AssetToken, Token: token}
}

// IsNative reports whether the asset is the native coin.
func (a Asset) IsNative() bool {
	return a.Kind == AssetNative
}

// String returns a short human-readable identifier for logs and errors.
func (a Asset) String() string {
	if a.IsNative() {
		return "native"
	}
	return fmt.Sprintf("token(%s)", a.Token.Hex())
}
