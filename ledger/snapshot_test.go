package ledger

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-lpvault/utils/cser"
)

func populatedState(t *testing.T) *State {
	t.Helper()
	s := NewState()
	require.NoError(t, s.OnHarvest(amounts(11, 3))) // surplus, no stake yet
	require.NoError(t, s.IncreaseStake(alice, big.NewInt(1_000)))
	require.NoError(t, s.IncreaseStake(bob, big.NewInt(250)))
	require.NoError(t, s.OnHarvest(amounts(777, 99)))
	s.Settle(alice)
	require.NoError(t, s.IncreaseStake(carol, big.NewInt(5)))
	return s
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := populatedState(t)

	raw, err := s.MarshalBinary()
	require.NoError(t, err)

	restored := NewState()
	require.NoError(t, restored.UnmarshalBinary(raw))

	assert.Equal(t, 0, restored.TotalStaked.Cmp(s.TotalStaked))
	for kind := 0; kind < RewardKinds; kind++ {
		assert.Equal(t, 0, restored.AccRewardPerShare[kind].Cmp(s.AccRewardPerShare[kind]))
		assert.Equal(t, 0, restored.Surplus[kind].Cmp(s.Surplus[kind]))
	}
	require.Equal(t, s.UserCount(), restored.UserCount())
	for _, addr := range s.Users() {
		wantStaked, wantDebt := s.UserInfo(addr)
		gotStaked, gotDebt := restored.UserInfo(addr)
		assert.Equal(t, 0, gotStaked.Cmp(wantStaked))
		for kind := 0; kind < RewardKinds; kind++ {
			assert.Equal(t, 0, gotDebt[kind].Cmp(wantDebt[kind]))
		}
	}
}

// Equal states must always encode to identical bytes, no matter how the user
// map happens to iterate.
func TestSnapshotIsDeterministic(t *testing.T) {
	s := populatedState(t)

	first, err := s.MarshalBinary()
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := s.Copy().MarshalBinary()
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestSnapshotEmptyState(t *testing.T) {
	raw, err := NewState().MarshalBinary()
	require.NoError(t, err)

	restored := populatedState(t)
	require.NoError(t, restored.UnmarshalBinary(raw))
	assert.Equal(t, 0, restored.TotalStaked.Sign())
	assert.Equal(t, 0, restored.UserCount())
}

func TestSnapshotRejectsUnknownVersion(t *testing.T) {
	raw, err := populatedState(t).MarshalBinary()
	require.NoError(t, err)
	raw[0]++ // version byte is first

	err = NewState().UnmarshalBinary(raw)
	require.ErrorIs(t, err, ErrUnknownSnapshotVersion)
}

func TestSnapshotRejectsGarbage(t *testing.T) {
	cases := map[string][]byte{
		"empty":     {},
		"truncated": {SnapshotVersion},
		"random":    {SnapshotVersion, 0xde, 0xad, 0xbe, 0xef},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			err := NewState().UnmarshalBinary(raw)
			require.Error(t, err)
		})
	}
}

func TestSnapshotRejectsBrokenConservation(t *testing.T) {
	s := populatedState(t)
	// Desynchronize the global counter from the per-user records.
	s.TotalStaked.Add(s.TotalStaked, big.NewInt(1))

	raw, err := s.MarshalBinary()
	require.NoError(t, err)

	err = NewState().UnmarshalBinary(raw)
	require.ErrorIs(t, err, ErrCorruptSnapshot)
}

func TestSnapshotRejectsTrailingBytes(t *testing.T) {
	raw, err := populatedState(t).MarshalBinary()
	require.NoError(t, err)
	raw = append(raw, 0x00)

	err = NewState().UnmarshalBinary(raw)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownSnapshotVersion)
}

func TestSnapshotFailedDecodeLeavesReceiverIntact(t *testing.T) {
	s := populatedState(t)
	before := s.Copy()

	require.Error(t, s.UnmarshalBinary([]byte{0xff, 0xff}))

	assert.Equal(t, 0, s.TotalStaked.Cmp(before.TotalStaked))
	assert.Equal(t, before.UserCount(), s.UserCount())
}

func TestSnapshotUserCapIsEnforced(t *testing.T) {
	// Hand-encode a header claiming an absurd user count.
	raw, err := cser.MarshalBinaryAdapter(func(w *cser.Writer) error {
		w.U8(SnapshotVersion)
		w.BigInt(new(big.Int)) // totalStaked
		for i := 0; i < 2*RewardKinds; i++ {
			w.BigInt(new(big.Int)) // accs, surplus
		}
		w.VarUint(MaxSnapshotUsers + 1)
		return nil
	})
	require.NoError(t, err)

	err = NewState().UnmarshalBinary(raw)
	require.ErrorIs(t, err, cser.ErrTooLargeAlloc)
}
