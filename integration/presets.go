// Package integration assembles a runnable vault from its parts: rules,
// venue adapters, the event recorder, and the scheduler. It carries the named
// presets the launcher exposes on the command line.
package integration

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-lpvault/vault"
)

// Preset bundles a rules profile with the scheduler cadence that suits it.
type Preset struct {
	Rules vault.Rules

	HarvestCron    string
	CheckpointCron string
}

// MainPreset is the reference mainnet deployment: Curve DAI/USDC LP staked
// through the Convex booster, harvested every 30 minutes.
func MainPreset(authority common.Address) Preset {
	return Preset{
		Rules:          vault.MainNetRules(authority),
		HarvestCron:    "0 */30 * * * *",
		CheckpointCron: "0 */5 * * * *",
	}
}

// FakePreset is the local testing profile: synthetic addresses, in-memory
// venues, aggressive harvest cadence so behavior is observable quickly.
func FakePreset(authority common.Address) Preset {
	return Preset{
		Rules:          vault.FakeNetRules(authority),
		HarvestCron:    "*/10 * * * * *",
		CheckpointCron: "0 * * * * *",
	}
}

// PresetByName resolves a preset from its CLI name.
func PresetByName(name string, authority common.Address) (Preset, error) {
	switch name {
	case "main":
		return MainPreset(authority), nil
	case "fake":
		return FakePreset(authority), nil
	default:
		return Preset{}, fmt.Errorf("unknown preset %q (want main or fake)", name)
	}
}
