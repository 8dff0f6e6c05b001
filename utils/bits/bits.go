// Package bits implements a bit-level stream over a byte slice. The
// checkpoint codec uses it as a side channel for booleans and small length
// fields, so a flag costs one bit instead of a whole byte.
package bits

type (
	// Array holds the byte slice backing a bitstream.
	Array struct {
		Bytes []byte
	}

	// Writer appends bits to an Array. bitOffset is the index of the next
	// bit to write inside the last byte.
	Writer struct {
		*Array
		bitOffset int
	}

	// Reader consumes bits from an Array.
	Reader struct {
		*Array
		byteOffset int
		bitOffset  int
	}
)

// NewWriter creates a bitstream writer over arr.
func NewWriter(arr *Array) *Writer {
	return &Writer{Array: arr}
}

// NewReader creates a bitstream reader over arr.
func NewReader(arr *Array) *Reader {
	return &Reader{Array: arr}
}

func (a *Writer) byteBitsFree() int {
	return 8 - a.bitOffset
}

// writeIntoLastByte ORs the bits of v into the active byte at the current
// offset.
func (a *Writer) writeIntoLastByte(v uint) {
	a.Bytes[len(a.Bytes)-1] |= byte(v << a.bitOffset)
}

// zeroTopByteBits masks off the top 'bits' bits of a byte-sized value.
func zeroTopByteBits(v uint, bits int) uint {
	mask := uint(0xff) >> bits
	return v & mask
}

// Write appends the lowest 'bits' bits of v to the stream, least significant
// bit first.
func (a *Writer) Write(bits int, v uint) {
	if a.bitOffset == 0 {
		a.Bytes = append(a.Bytes, byte(0))
	}

	free := a.byteBitsFree()
	if bits <= free {
		a.writeIntoLastByte(v)
		if bits == free {
			a.bitOffset = 0
		} else {
			a.bitOffset += bits
		}
	} else {
		// Spills into the next byte: fill what's left, recurse for the rest.
		toWrite := free
		a.writeIntoLastByte(zeroTopByteBits(v, a.bitOffset))
		a.bitOffset = 0
		a.Write(bits-toWrite, v>>toWrite)
	}
}

func (a *Reader) byteBitsFree() int {
	return 8 - a.bitOffset
}

// Read consumes 'bits' bits and returns them as an integer, advancing the
// cursor.
func (a *Reader) Read(bits int) (v uint) {
	if bits == 0 {
		return 0
	}

	free := a.byteBitsFree()
	if bits <= free {
		clear := 8 - (a.bitOffset + bits)
		v = zeroTopByteBits(uint(a.Bytes[a.byteOffset]), clear) >> a.bitOffset
		if bits == free {
			a.bitOffset = 0
			a.byteOffset++
		} else {
			a.bitOffset += bits
		}
	} else {
		// Spans two or more bytes: take the remainder of this byte, recurse.
		toRead := free
		v = uint(a.Bytes[a.byteOffset]) >> a.bitOffset
		a.bitOffset = 0
		a.byteOffset++
		rest := a.Read(bits - toRead)
		v |= rest << toRead
	}
	return
}

// View returns the next 'bits' bits without advancing the cursor.
func (a *Reader) View(bits int) (v uint) {
	cp := *a
	return (&cp).Read(bits)
}

// NonReadBytes returns the number of unconsumed bytes.
func (a *Reader) NonReadBytes() int {
	return len(a.Bytes) - a.byteOffset
}

// NonReadBits returns the number of unconsumed bits.
func (a *Reader) NonReadBits() int {
	return a.NonReadBytes()*8 - a.bitOffset
}
