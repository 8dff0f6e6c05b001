// Package cser implements the canonical split-stream encoding used for
// ledger checkpoints. Values are split across two streams: raw bytes go to a
// body stream, while booleans and small length fields go to a separate bit
// stream. The two streams are packed into a single blob with the bit-stream
// length appended as a reversed varint suffix, so a reader can split the
// blob back apart by scanning from the end.
//
// The encoding is canonical: every value has exactly one valid byte
// representation, and decoding fails on padding, leftover bytes, or non-zero
// unused trailing bits. That makes a checkpoint's bytes a stable identity
// for the state it encodes.
package cser

import (
	"github.com/rony4d/go-lpvault/utils/bits"
	"github.com/rony4d/go-lpvault/utils/fast"
)

// MarshalBinaryAdapter runs marshalCser against a fresh Writer and packs the
// two resulting streams into one blob.
func MarshalBinaryAdapter(marshalCser func(*Writer) error) ([]byte, error) {
	w := NewWriter()

	err := marshalCser(w)
	if err != nil {
		return nil, err
	}

	return binaryFromCSER(w.BitsW.Array, w.BytesW.Bytes())
}

// binaryFromCSER packs body bytes and the bit stream into one slice:
// [ body ] [ bit-stream bytes ] [ reversed varint(len(bit-stream)) ].
func binaryFromCSER(bbits *bits.Array, bbytes []byte) (raw []byte, err error) {
	bodyBytes := fast.NewWriter(bbytes)
	bodyBytes.Write(bbits.Bytes)

	// The suffix is written reversed so the reader can decode it back to
	// front without knowing its length up front.
	sizeWriter := fast.NewWriter(make([]byte, 0, 4))
	writeUint64Compact(sizeWriter, uint64(len(bbits.Bytes)))
	bodyBytes.Write(reversed(sizeWriter.Bytes()))

	return bodyBytes.Bytes(), nil
}

// binaryToCSER splits a packed blob back into its bit stream and body bytes.
func binaryToCSER(raw []byte) (bbits *bits.Array, bbytes []byte, err error) {
	// Decode the reversed length suffix; 9 bytes covers any 64-bit varint.
	bitsSizeBuf := reversed(tail(raw, 9))
	bitsSizeReader := fast.NewReader(bitsSizeBuf)
	bitsSize := readUint64Compact(bitsSizeReader)

	raw = raw[:len(raw)-bitsSizeReader.Position()]
	if uint64(len(raw)) < bitsSize {
		err = ErrMalformedEncoding
		return
	}

	bbits = &bits.Array{Bytes: raw[uint64(len(raw))-bitsSize:]}
	bbytes = raw[:uint64(len(raw))-bitsSize]
	return
}

// UnmarshalBinaryAdapter splits raw and runs unmarshalCser against the
// resulting Reader, then enforces canonicality: every byte and every bit
// must have been consumed, and unused trailing bits must be zero.
func UnmarshalBinaryAdapter(raw []byte, unmarshalCser func(reader *Reader) error) (err error) {
	// The primitives panic on malformed input rather than thread errors
	// through every call; recover converts that into a decode error.
	defer func() {
		if r := recover(); r != nil {
			err = ErrMalformedEncoding
		}
	}()

	bbits, bbytes, err := binaryToCSER(raw)
	if err != nil {
		return err
	}

	bodyReader := &Reader{
		BitsR:  bits.NewReader(bbits),
		BytesR: fast.NewReader(bbytes),
	}

	err = unmarshalCser(bodyReader)
	if err != nil {
		return err
	}

	if bodyReader.BitsR.NonReadBytes() > 1 {
		return ErrNonCanonicalEncoding
	}
	tail := bodyReader.BitsR.Read(bodyReader.BitsR.NonReadBits())
	if tail != 0 {
		return ErrNonCanonicalEncoding
	}
	if !bodyReader.BytesR.Empty() {
		return ErrNonCanonicalEncoding
	}

	return nil
}

// tail returns the last cap bytes of b, or all of b if shorter.
func tail(b []byte, cap int) []byte {
	if len(b) > cap {
		return b[len(b)-cap:]
	}
	return b
}

// reversed returns a new slice with the bytes of b in reverse order.
func reversed(b []byte) []byte {
	reversed := make([]byte, len(b))
	for i, v := range b {
		reversed[len(b)-1-i] = v
	}
	return reversed
}
