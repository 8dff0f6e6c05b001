package ledger

import (
	"bytes"
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/go-lpvault/utils/cser"
)

// SnapshotVersion is the current checkpoint schema version. Bump it when the
// encoded layout changes; decoding rejects versions it does not know.
const SnapshotVersion = 1

// MaxSnapshotUsers caps the number of user records a checkpoint may carry,
// so a corrupt file cannot drive a huge allocation.
const MaxSnapshotUsers = 10_000_000

var (
	// ErrUnknownSnapshotVersion is returned for checkpoints written by an
	// incompatible (usually newer) release.
	ErrUnknownSnapshotVersion = errors.New("unknown ledger snapshot version")

	// ErrCorruptSnapshot is returned when a checkpoint decodes structurally
	// but violates a ledger invariant (unsorted users, broken conservation).
	ErrCorruptSnapshot = errors.New("corrupt ledger snapshot")
)

// MarshalBinary encodes the full ledger state as a canonical checkpoint.
// User records are written in ascending address order, so equal states
// always produce identical bytes regardless of map iteration order.
func (s *State) MarshalBinary() ([]byte, error) {
	return cser.MarshalBinaryAdapter(func(w *cser.Writer) error {
		w.U8(SnapshotVersion)

		w.BigInt(s.TotalStaked)
		for kind := 0; kind < RewardKinds; kind++ {
			w.BigInt(s.AccRewardPerShare[kind])
		}
		for kind := 0; kind < RewardKinds; kind++ {
			w.BigInt(s.Surplus[kind])
		}

		addrs := s.Users()
		sortAddresses(addrs)

		w.VarUint(uint64(len(addrs)))
		for _, addr := range addrs {
			u := s.users[addr]
			w.Address(addr)
			w.BigInt(u.Staked)
			for kind := 0; kind < RewardKinds; kind++ {
				w.BigInt(u.RewardDebt[kind])
			}
		}
		return nil
	})
}

// UnmarshalBinary decodes a checkpoint produced by MarshalBinary, replacing
// the receiver's state. Beyond structural decoding it re-checks the ledger
// invariants: addresses strictly ascending and conservation of TotalStaked.
func (s *State) UnmarshalBinary(raw []byte) error {
	decoded := NewState()

	err := cser.UnmarshalBinaryAdapter(raw, func(r *cser.Reader) error {
		version := r.U8()
		if version != SnapshotVersion {
			return ErrUnknownSnapshotVersion
		}

		decoded.TotalStaked = r.BigInt()
		for kind := 0; kind < RewardKinds; kind++ {
			decoded.AccRewardPerShare[kind] = r.BigInt()
		}
		for kind := 0; kind < RewardKinds; kind++ {
			decoded.Surplus[kind] = r.BigInt()
		}

		count := r.VarUint()
		if count > MaxSnapshotUsers {
			return cser.ErrTooLargeAlloc
		}

		var prev common.Address
		sum := new(big.Int)
		for i := uint64(0); i < count; i++ {
			addr := r.Address()
			if i > 0 && bytes.Compare(prev[:], addr[:]) >= 0 {
				return ErrCorruptSnapshot
			}
			prev = addr

			u := newUserRecord()
			u.Staked = r.BigInt()
			for kind := 0; kind < RewardKinds; kind++ {
				u.RewardDebt[kind] = r.BigInt()
			}
			decoded.users[addr] = u
			sum.Add(sum, u.Staked)
		}

		if sum.Cmp(decoded.TotalStaked) != 0 {
			return ErrCorruptSnapshot
		}
		return nil
	})
	if err != nil {
		return err
	}

	*s = *decoded
	return nil
}

// sortAddresses orders addresses by their byte representation.
func sortAddresses(addrs []common.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
}
