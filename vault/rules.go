// Package vault implements the vault controller: it orchestrates deposits,
// withdrawals, claims, harvests, and whitelist management by composing the
// accounting ledger with the reward-source and conversion adapters, and it
// enforces authorization and input validation at the boundary.
package vault

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-lpvault/ledger"
)

// Network identification constants.
const (
	// MainNetworkID is the chain ID of Ethereum mainnet, where the real
	// Convex booster and Curve pools live.
	MainNetworkID uint64 = 1

	// FakeNetworkID is the chain ID used by local/fake networks in testing.
	FakeNetworkID uint64 = 1337
)

// Mainnet addresses of the reference deployment: the Curve DAI/USDC LP pool
// staked through the Convex booster.
var (
	MainNetBooster  = common.HexToAddress("0xF403C135812408BFbE8713b5A23a04b3D48AAE31")
	MainNetLPToken  = common.HexToAddress("0x845838DF265Dcd2c412A1Dc9e959c7d08537f8a2")
	MainNetCRVToken = common.HexToAddress("0xD533a949740bb3306d119CC777fa900bA034cd52")
	MainNetCVXToken = common.HexToAddress("0x4e3FBD56CD56c3e72c1403e103b45Db9da5B9D2B")
	MainNetPoolID   = uint64(0)
)

// PoolReference immutably identifies the external reward source and its LP
// token. It is set once at construction and never mutated.
type PoolReference struct {
	// PID is the pool's index inside the staking venue.
	PID uint64 `json:"pid"`

	// LPToken is the liquidity-pool token actually staked.
	LPToken common.Address `json:"lpToken"`

	// StakingVenue is the contract the LP is staked into.
	StakingVenue common.Address `json:"stakingVenue"`
}

// Rules describes the complete configuration of a vault deployment. This is
// the main type used to construct a controller; keep it deep-copyable so a
// deployment's parameters can be handed around without shared state.
type Rules struct {
	// Name is a human-readable network identifier (e.g. "main", "fake").
	Name string `json:"name"`

	// NetworkID is the chain ID the vault operates on.
	NetworkID uint64 `json:"networkID"`

	// Pool references the external reward source and its LP token.
	Pool PoolReference `json:"pool"`

	// RewardTokens are the two reward token contracts, indexed by
	// ledger.PrimaryReward / ledger.SecondaryReward.
	RewardTokens [ledger.RewardKinds]common.Address `json:"rewardTokens"`

	// Authority is the only address allowed to call privileged operations
	// (GetRewards, whitelist management).
	Authority common.Address `json:"authority"`

	// Whitelist seeds the set of assets eligible for the conversion path.
	Whitelist []Asset `json:"-"`
}

// MainNetRules returns the configuration of the reference mainnet
// deployment: Curve DAI/USDC LP staked in Convex, CRV as primary and CVX as
// secondary reward.
func MainNetRules(authority common.Address) Rules {
	return Rules{
		Name:      "main",
		NetworkID: MainNetworkID,
		Pool: PoolReference{
			PID:          MainNetPoolID,
			LPToken:      MainNetLPToken,
			StakingVenue: MainNetBooster,
		},
		RewardTokens: [ledger.RewardKinds]common.Address{
			ledger.PrimaryReward:   MainNetCRVToken,
			ledger.SecondaryReward: MainNetCVXToken,
		},
		Authority: authority,
	}
}

// FakeNetRules returns a configuration for local testing against mock
// venues. Token addresses are synthetic but distinct, so custody mistakes
// show up in tests.
func FakeNetRules(authority common.Address) Rules {
	return Rules{
		Name:      "fake",
		NetworkID: FakeNetworkID,
		Pool: PoolReference{
			PID:          0,
			LPToken:      common.HexToAddress("0x1000000000000000000000000000000000000001"),
			StakingVenue: common.HexToAddress("0x1000000000000000000000000000000000000002"),
		},
		RewardTokens: [ledger.RewardKinds]common.Address{
			ledger.PrimaryReward:   common.HexToAddress("0x1000000000000000000000000000000000000003"),
			ledger.SecondaryReward: common.HexToAddress("0x1000000000000000000000000000000000000004"),
		},
		Authority: authority,
	}
}

// Copy returns a deep copy of the rules.
func (r Rules) Copy() Rules {
	cp := r
	cp.Whitelist = append([]Asset(nil), r.Whitelist...)
	return cp
}

// String returns the rules as compact JSON for logs and config dumps.
func (r Rules) String() string {
	b, _ := json.Marshal(r)
	return string(b)
}

// PoolInfo is the read-only projection returned by Vault.PoolInfo.
type PoolInfo struct {
	Pool              PoolReference
	RewardTokens      [ledger.RewardKinds]common.Address
	TotalStaked       *big.Int
	AccRewardPerShare ledger.Amounts
	Surplus           ledger.Amounts
	LastHarvest       ledger.Amounts
}
