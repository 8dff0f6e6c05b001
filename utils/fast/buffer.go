// Package fast provides minimal byte-slice readers and writers for the
// checkpoint codec. They do no bounds checking: a read past the end panics,
// which the codec layer converts into a decode error. Only trusted,
// internally produced data goes through these buffers.
package fast

// Reader consumes a byte slice front to back.
type Reader struct {
	buf    []byte
	offset int
}

// Writer appends to a byte slice.
type Writer struct {
	buf []byte
}

// NewReader wraps bb for reading.
func NewReader(bb []byte) *Reader {
	return &Reader{buf: bb}
}

// NewWriter wraps bb for appending. Callers usually pass
// make([]byte, 0, capacity) to pre-allocate.
func NewWriter(bb []byte) *Writer {
	return &Writer{buf: bb}
}

// WriteByte appends a single byte.
func (b *Writer) WriteByte(v byte) {
	b.buf = append(b.buf, v)
}

// Write appends a slice of bytes.
func (b *Writer) Write(v []byte) {
	b.buf = append(b.buf, v...)
}

// Read consumes and returns the next n bytes. The returned slice shares
// memory with the underlying buffer. Panics if fewer than n bytes remain.
func (b *Reader) Read(n int) []byte {
	res := b.buf[b.offset : b.offset+n]
	b.offset += n
	return res
}

// ReadByte consumes and returns one byte. Panics if the buffer is empty.
func (b *Reader) ReadByte() byte {
	res := b.buf[b.offset]
	b.offset++
	return res
}

// Position returns how many bytes have been consumed.
func (b *Reader) Position() int {
	return b.offset
}

// Bytes returns the entire underlying buffer.
func (b *Reader) Bytes() []byte {
	return b.buf
}

// Bytes returns the accumulated content.
func (b *Writer) Bytes() []byte {
	return b.buf
}

// Empty reports whether the reader has consumed the whole buffer.
func (b *Reader) Empty() bool {
	return len(b.buf) == b.offset
}
