package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event is the tagged union of caller-visible vault events. Events are
// buffered during an operation and delivered to the sink only after the
// operation commits, in a fixed order: a withdrawal with pending rewards
// yields Claimed first, then Withdrawn.
type Event interface {
	vaultEvent()
}

// Deposited reports a direct LP deposit.
type Deposited struct {
	User   common.Address
	Amount *big.Int
}

// DepositedAsset reports a conversion-path deposit. LPAmount is the LP
// actually received from the conversion, never the input amount: the
// conversion ratio is not 1:1.
type DepositedAsset struct {
	User     common.Address
	Asset    Asset
	LPAmount *big.Int
}

// Withdrawn reports a direct LP withdrawal.
type Withdrawn struct {
	User   common.Address
	Amount *big.Int
}

// WithdrawnAsset reports a conversion-path withdrawal. Amount is the
// converted asset amount actually sent to the caller.
type WithdrawnAsset struct {
	User   common.Address
	Asset  Asset
	Amount *big.Int
}

// Claimed reports a reward settlement payout. Claim emits exactly one of
// these even when both amounts are zero.
type Claimed struct {
	User      common.Address
	Primary   *big.Int
	Secondary *big.Int
}

func (Deposited) vaultEvent()      {}
func (DepositedAsset) vaultEvent() {}
func (Withdrawn) vaultEvent()      {}
func (WithdrawnAsset) vaultEvent() {}
func (Claimed) vaultEvent()        {}

// EventSink receives committed events. Implementations must not call back
// into the vault.
type EventSink interface {
	Emit(ev Event)
}

// NoopSink discards events; the default when no sink is configured.
type NoopSink struct{}

// Emit implements EventSink.
func (NoopSink) Emit(Event) {}
