package ledger

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0xa11ce00000000000000000000000000000000001")
	bob   = common.HexToAddress("0xb0b0000000000000000000000000000000000002")
	carol = common.HexToAddress("0xca5010000000000000000000000000000000003")
)

func amounts(primary, secondary int64) Amounts {
	return Amounts{big.NewInt(primary), big.NewInt(secondary)}
}

func TestEmptyState(t *testing.T) {
	s := NewState()

	assert.Equal(t, 0, s.TotalStaked.Sign())
	assert.True(t, s.AccRewardPerShare.IsZero())
	assert.True(t, s.Surplus.IsZero())
	assert.Equal(t, 0, s.UserCount())
	assert.True(t, s.Pending(alice).IsZero())
	assert.Equal(t, 0, s.StakedOf(alice).Sign())
}

func TestStakeChangeValidation(t *testing.T) {
	s := NewState()

	require.ErrorIs(t, s.IncreaseStake(alice, nil), ErrInvalidAmount)
	require.ErrorIs(t, s.IncreaseStake(alice, big.NewInt(-1)), ErrInvalidAmount)
	require.ErrorIs(t, s.DecreaseStake(alice, big.NewInt(-1)), ErrInvalidAmount)

	require.NoError(t, s.IncreaseStake(alice, big.NewInt(100)))
	require.ErrorIs(t, s.DecreaseStake(alice, big.NewInt(101)), ErrInsufficientBalance)
	require.ErrorIs(t, s.DecreaseStake(bob, big.NewInt(1)), ErrInsufficientBalance)
	require.NoError(t, s.DecreaseStake(alice, big.NewInt(100)))

	assert.Equal(t, 0, s.TotalStaked.Sign())
}

func TestSingleStakerGetsEverything(t *testing.T) {
	s := NewState()

	require.NoError(t, s.IncreaseStake(alice, big.NewInt(1000)))
	require.NoError(t, s.OnHarvest(amounts(500, 50)))

	pending := s.Pending(alice)
	assert.Equal(t, big.NewInt(500), pending[PrimaryReward])
	assert.Equal(t, big.NewInt(50), pending[SecondaryReward])

	settled := s.Settle(alice)
	assert.Equal(t, big.NewInt(500), settled[PrimaryReward])
	assert.Equal(t, big.NewInt(50), settled[SecondaryReward])

	// Settling again without new rewards yields nothing.
	assert.True(t, s.Settle(alice).IsZero())
	assert.True(t, s.Pending(alice).IsZero())
}

func TestProportionalDistribution(t *testing.T) {
	s := NewState()

	require.NoError(t, s.IncreaseStake(alice, big.NewInt(100)))
	require.NoError(t, s.IncreaseStake(bob, big.NewInt(300)))
	require.NoError(t, s.OnHarvest(amounts(400, 40)))

	assert.Equal(t, big.NewInt(100), s.Pending(alice)[PrimaryReward])
	assert.Equal(t, big.NewInt(10), s.Pending(alice)[SecondaryReward])
	assert.Equal(t, big.NewInt(300), s.Pending(bob)[PrimaryReward])
	assert.Equal(t, big.NewInt(30), s.Pending(bob)[SecondaryReward])
}

// A depositor who joins after a harvest must not earn any part of it, and a
// later harvest splits by the then-current stakes.
func TestTimeWeightedShares(t *testing.T) {
	s := NewState()

	require.NoError(t, s.IncreaseStake(alice, big.NewInt(100)))
	require.NoError(t, s.OnHarvest(amounts(100, 0)))

	// Bob joins after the first harvest: settle-then-stake, like the
	// controller does.
	s.Settle(bob)
	require.NoError(t, s.IncreaseStake(bob, big.NewInt(100)))
	assert.True(t, s.Pending(bob).IsZero(), "late joiner must not earn retroactively")

	require.NoError(t, s.OnHarvest(amounts(100, 0)))

	assert.Equal(t, big.NewInt(150), s.Pending(alice)[PrimaryReward])
	assert.Equal(t, big.NewInt(50), s.Pending(bob)[PrimaryReward])
}

func TestSettleFloorsPendingAndRetainsDust(t *testing.T) {
	s := NewState()

	for _, addr := range []common.Address{alice, bob, carol} {
		require.NoError(t, s.IncreaseStake(addr, big.NewInt(1)))
	}
	require.NoError(t, s.OnHarvest(amounts(100, 0)))

	total := new(big.Int)
	for _, addr := range []common.Address{alice, bob, carol} {
		settled := s.Settle(addr)
		assert.Equal(t, big.NewInt(33), settled[PrimaryReward])
		total.Add(total, settled[PrimaryReward])
	}

	// 100 / 3 floors to 33 each; the single unpaid unit stays in custody.
	assert.Equal(t, big.NewInt(99), total)
}

func TestConservationAcrossManyOperations(t *testing.T) {
	s := NewState()
	paid := new(big.Int)
	harvested := new(big.Int)

	harvest := func(amount int64) {
		require.NoError(t, s.OnHarvest(amounts(amount, 0)))
		harvested.Add(harvested, big.NewInt(amount))
	}
	settle := func(addr common.Address) {
		paid.Add(paid, s.Settle(addr)[PrimaryReward])
	}

	require.NoError(t, s.IncreaseStake(alice, big.NewInt(7)))
	harvest(1000)
	settle(bob)
	require.NoError(t, s.IncreaseStake(bob, big.NewInt(13)))
	harvest(999)
	settle(alice)
	require.NoError(t, s.DecreaseStake(alice, big.NewInt(7)))
	harvest(501)
	settle(alice)
	settle(bob)
	require.NoError(t, s.DecreaseStake(bob, big.NewInt(13)))
	settle(bob)

	// Every unit paid out was harvested first; rounding dust never leaves.
	assert.True(t, paid.Cmp(harvested) <= 0, "paid %s exceeds harvested %s", paid, harvested)
	dust := new(big.Int).Sub(harvested, paid)
	assert.True(t, dust.Cmp(big.NewInt(10)) < 0, "dust %s implausibly large", dust)
}

func TestHarvestWithNoStakeAccruesSurplus(t *testing.T) {
	s := NewState()

	require.NoError(t, s.OnHarvest(amounts(123, 45)))
	assert.Equal(t, big.NewInt(123), s.Surplus[PrimaryReward])
	assert.Equal(t, big.NewInt(45), s.Surplus[SecondaryReward])
	assert.True(t, s.AccRewardPerShare.IsZero(), "surplus must not move the accumulators")

	// A later depositor does not inherit the surplus.
	require.NoError(t, s.IncreaseStake(alice, big.NewInt(10)))
	assert.True(t, s.Pending(alice).IsZero())

	// Everyone withdraws; the next harvest is surplus again.
	s.Settle(alice)
	require.NoError(t, s.DecreaseStake(alice, big.NewInt(10)))
	require.NoError(t, s.OnHarvest(amounts(7, 0)))
	assert.Equal(t, big.NewInt(130), s.Surplus[PrimaryReward])
}

func TestOnHarvestRejectsInvalidAmounts(t *testing.T) {
	s := NewState()
	require.NoError(t, s.IncreaseStake(alice, big.NewInt(1)))

	require.ErrorIs(t, s.OnHarvest(Amounts{nil, big.NewInt(1)}), ErrInvalidAmount)
	require.ErrorIs(t, s.OnHarvest(amounts(-1, 0)), ErrInvalidAmount)
}

func TestFullWithdrawKeepsRecordConsistent(t *testing.T) {
	s := NewState()

	require.NoError(t, s.IncreaseStake(alice, big.NewInt(50)))
	require.NoError(t, s.OnHarvest(amounts(100, 10)))

	settled := s.Settle(alice)
	require.NoError(t, s.DecreaseStake(alice, big.NewInt(50)))
	assert.Equal(t, big.NewInt(100), settled[PrimaryReward])

	// The record survives at zero stake and accrues nothing further.
	assert.Equal(t, 1, s.UserCount())
	require.NoError(t, s.OnHarvest(amounts(100, 10)))
	assert.True(t, s.Pending(alice).IsZero())

	// Redepositing starts a fresh accrual baseline.
	s.Settle(alice)
	require.NoError(t, s.IncreaseStake(alice, big.NewInt(50)))
	require.NoError(t, s.OnHarvest(amounts(60, 6)))
	assert.Equal(t, big.NewInt(60), s.Pending(alice)[PrimaryReward])
	assert.Equal(t, big.NewInt(6), s.Pending(alice)[SecondaryReward])
}

func TestAccumulatorsAreMonotonic(t *testing.T) {
	s := NewState()
	require.NoError(t, s.IncreaseStake(alice, big.NewInt(3)))

	prev := ZeroAmounts()
	for i := 0; i < 10; i++ {
		require.NoError(t, s.OnHarvest(amounts(int64(i), int64(i*2))))
		for kind := 0; kind < RewardKinds; kind++ {
			assert.True(t, s.AccRewardPerShare[kind].Cmp(prev[kind]) >= 0)
		}
		prev = s.AccRewardPerShare.Copy()
	}
}

func TestCopyIsDeep(t *testing.T) {
	s := NewState()
	require.NoError(t, s.IncreaseStake(alice, big.NewInt(10)))
	require.NoError(t, s.OnHarvest(amounts(100, 10)))

	cp := s.Copy()

	s.Settle(alice)
	require.NoError(t, s.IncreaseStake(alice, big.NewInt(5)))
	require.NoError(t, s.IncreaseStake(bob, big.NewInt(1)))

	assert.Equal(t, big.NewInt(10), cp.TotalStaked)
	assert.Equal(t, big.NewInt(10), cp.StakedOf(alice))
	assert.Equal(t, 1, cp.UserCount())
	assert.Equal(t, big.NewInt(100), cp.Pending(alice)[PrimaryReward])
}

func TestTotalStakedMatchesSumOfUsers(t *testing.T) {
	s := NewState()

	steps := []struct {
		addr     common.Address
		delta    int64
		decrease bool
	}{
		{alice, 100, false},
		{bob, 250, false},
		{alice, 40, true},
		{carol, 1, false},
		{bob, 250, true},
	}
	for _, step := range steps {
		s.Settle(step.addr)
		if step.decrease {
			require.NoError(t, s.DecreaseStake(step.addr, big.NewInt(step.delta)))
		} else {
			require.NoError(t, s.IncreaseStake(step.addr, big.NewInt(step.delta)))
		}

		sum := new(big.Int)
		for _, addr := range s.Users() {
			sum.Add(sum, s.StakedOf(addr))
		}
		require.Equal(t, 0, sum.Cmp(s.TotalStaked))
	}
}

func TestSettleUnknownUserCreatesNoRecord(t *testing.T) {
	s := NewState()

	require.NoError(t, s.IncreaseStake(alice, big.NewInt(100)))
	require.NoError(t, s.OnHarvest(amounts(50, 5)))

	// A claim from an address that never deposited settles to zeros and must
	// not mint a permanent record.
	settled := s.Settle(bob)
	assert.True(t, settled.IsZero())
	assert.Equal(t, 1, s.UserCount())
}

func TestMarkPaidAdvancesDebt(t *testing.T) {
	s := NewState()

	require.NoError(t, s.IncreaseStake(alice, big.NewInt(100)))
	require.NoError(t, s.OnHarvest(amounts(40, 4)))

	s.MarkPaid(alice, amounts(30, 0))

	pending := s.Pending(alice)
	assert.Equal(t, big.NewInt(10), pending[PrimaryReward])
	assert.Equal(t, big.NewInt(4), pending[SecondaryReward])

	// Zero amounts are a no-op and must not create records either.
	s.MarkPaid(bob, ZeroAmounts())
	assert.Equal(t, 1, s.UserCount())
}
