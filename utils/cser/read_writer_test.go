package cser

import (
	"math"
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeDecode(t *testing.T, write func(*Writer), read func(*Reader)) {
	t.Helper()
	raw, err := MarshalBinaryAdapter(func(w *Writer) error {
		write(w)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, UnmarshalBinaryAdapter(raw, func(r *Reader) error {
		read(r)
		return nil
	}))
}

func TestIntegerRoundTrips(t *testing.T) {
	u64s := []uint64{0, 1, 0x7f, 0x80, 0xff, 0x100, math.MaxUint32, math.MaxUint64}
	encodeDecode(t,
		func(w *Writer) {
			for _, v := range u64s {
				w.U64(v)
				w.VarUint(v)
			}
			w.U8(0)
			w.U8(255)
			w.U32(0)
			w.U32(math.MaxUint32)
			w.U56(0)
			w.U56(1<<56 - 1)
		},
		func(r *Reader) {
			for _, v := range u64s {
				assert.Equal(t, v, r.U64())
				assert.Equal(t, v, r.VarUint())
			}
			assert.Equal(t, uint8(0), r.U8())
			assert.Equal(t, uint8(255), r.U8())
			assert.Equal(t, uint32(0), r.U32())
			assert.Equal(t, uint32(math.MaxUint32), r.U32())
			assert.Equal(t, uint64(0), r.U56())
			assert.Equal(t, uint64(1<<56-1), r.U56())
		},
	)
}

func TestBoolUsesBitStream(t *testing.T) {
	pattern := []bool{true, false, true, true, false, false, false, true, true}
	encodeDecode(t,
		func(w *Writer) {
			for _, b := range pattern {
				w.Bool(b)
			}
		},
		func(r *Reader) {
			for _, b := range pattern {
				assert.Equal(t, b, r.Bool())
			}
		},
	)
}

func TestAddressRoundTrip(t *testing.T) {
	addr := common.HexToAddress("0x845838DF265Dcd2c412A1Dc9e959c7d08537f8a2")
	encodeDecode(t,
		func(w *Writer) { w.Address(addr) },
		func(r *Reader) { assert.Equal(t, addr, r.Address()) },
	)
}

func TestBigIntRoundTrip(t *testing.T) {
	values := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(255),
		big.NewInt(256),
		new(big.Int).SetUint64(math.MaxUint64),
		new(big.Int).Lsh(big.NewInt(1), 200),
	}
	encodeDecode(t,
		func(w *Writer) {
			for _, v := range values {
				w.BigInt(v)
			}
		},
		func(r *Reader) {
			for _, v := range values {
				assert.Equal(t, 0, v.Cmp(r.BigInt()))
			}
		},
	)
}

func TestBigIntRejectsLeadingZero(t *testing.T) {
	raw, err := MarshalBinaryAdapter(func(w *Writer) error {
		w.SliceBytes([]byte{0x00, 0x01}) // zero-padded magnitude
		return nil
	})
	require.NoError(t, err)

	err = UnmarshalBinaryAdapter(raw, func(r *Reader) error {
		r.BigInt()
		return nil
	})
	require.ErrorIs(t, err, ErrMalformedEncoding)
}

func TestSliceBytesEnforcesMaxLen(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	raw, err := MarshalBinaryAdapter(func(w *Writer) error {
		w.SliceBytes(payload)
		return nil
	})
	require.NoError(t, err)

	err = UnmarshalBinaryAdapter(raw, func(r *Reader) error {
		r.SliceBytes(len(payload) - 1)
		return nil
	})
	require.ErrorIs(t, err, ErrMalformedEncoding)
}

func TestLeftoverBytesAreNonCanonical(t *testing.T) {
	raw, err := MarshalBinaryAdapter(func(w *Writer) error {
		w.U64(12345)
		w.U64(67890)
		return nil
	})
	require.NoError(t, err)

	err = UnmarshalBinaryAdapter(raw, func(r *Reader) error {
		r.U64() // second value left unread
		return nil
	})
	require.ErrorIs(t, err, ErrNonCanonicalEncoding)
}

func TestTruncatedInputFails(t *testing.T) {
	raw, err := MarshalBinaryAdapter(func(w *Writer) error {
		w.Address(common.Address{0x01})
		return nil
	})
	require.NoError(t, err)

	for cut := 1; cut < len(raw); cut++ {
		err := UnmarshalBinaryAdapter(raw[:cut], func(r *Reader) error {
			r.Address()
			return nil
		})
		assert.Error(t, err, "cut at %d", cut)
	}
}

func TestMixedStreamFuzz(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 100; round++ {
		var (
			u64s  []uint64
			bools []bool
			bigs  []*big.Int
		)
		n := rng.Intn(30) + 1
		for i := 0; i < n; i++ {
			u64s = append(u64s, rng.Uint64()>>uint(rng.Intn(64)))
			bools = append(bools, rng.Intn(2) == 0)
			bigs = append(bigs, new(big.Int).SetUint64(rng.Uint64()))
		}

		encodeDecode(t,
			func(w *Writer) {
				for i := 0; i < n; i++ {
					w.U64(u64s[i])
					w.Bool(bools[i])
					w.BigInt(bigs[i])
				}
			},
			func(r *Reader) {
				for i := 0; i < n; i++ {
					require.Equal(t, u64s[i], r.U64())
					require.Equal(t, bools[i], r.Bool())
					require.Equal(t, 0, bigs[i].Cmp(r.BigInt()))
				}
			},
		)
	}
}
