package vault

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainNetRules(t *testing.T) {
	r := MainNetRules(authority)

	assert.Equal(t, "main", r.Name)
	assert.Equal(t, MainNetworkID, r.NetworkID)
	assert.Equal(t, MainNetLPToken, r.Pool.LPToken)
	assert.Equal(t, MainNetBooster, r.Pool.StakingVenue)
	assert.Equal(t, MainNetCRVToken, r.RewardTokens[0])
	assert.Equal(t, MainNetCVXToken, r.RewardTokens[1])
	assert.Equal(t, authority, r.Authority)
}

func TestFakeNetRulesAddressesAreDistinct(t *testing.T) {
	r := FakeNetRules(authority)

	seen := map[string]bool{
		r.Pool.LPToken.Hex():      true,
		r.Pool.StakingVenue.Hex(): true,
		r.RewardTokens[0].Hex():   true,
		r.RewardTokens[1].Hex():   true,
	}
	assert.Len(t, seen, 4, "synthetic addresses must not collide")
}

func TestRulesCopyIsIndependent(t *testing.T) {
	r := FakeNetRules(authority)
	r.Whitelist = []Asset{NativeAsset()}

	cp := r.Copy()
	cp.Whitelist[0] = TokenAsset(MainNetCRVToken)
	cp.Name = "changed"

	assert.Equal(t, NativeAsset(), r.Whitelist[0])
	assert.Equal(t, "fake", r.Name)
}

func TestRulesStringIsValidJSON(t *testing.T) {
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(MainNetRules(authority).String()), &decoded))
	assert.Equal(t, "main", decoded["name"])
}

func TestAssetString(t *testing.T) {
	assert.Equal(t, "native", NativeAsset().String())
	assert.Contains(t, TokenAsset(MainNetCRVToken).String(), MainNetCRVToken.Hex())
}
