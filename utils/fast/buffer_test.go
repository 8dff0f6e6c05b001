package fast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterAccumulates(t *testing.T) {
	w := NewWriter(make([]byte, 0, 8))
	w.WriteByte(0x01)
	w.Write([]byte{0x02, 0x03})
	w.WriteByte(0x04)

	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, w.Bytes())
}

func TestReaderConsumesInOrder(t *testing.T) {
	r := NewReader([]byte{0x0a, 0x0b, 0x0c, 0x0d})

	assert.Equal(t, byte(0x0a), r.ReadByte())
	assert.Equal(t, 1, r.Position())
	assert.False(t, r.Empty())

	assert.Equal(t, []byte{0x0b, 0x0c}, r.Read(2))
	assert.Equal(t, byte(0x0d), r.ReadByte())
	assert.True(t, r.Empty())
	assert.Equal(t, 4, r.Position())
}

func TestReaderPanicsPastEnd(t *testing.T) {
	r := NewReader([]byte{0x01})
	r.ReadByte()

	require.Panics(t, func() { r.ReadByte() })
	require.Panics(t, func() { NewReader(nil).Read(1) })
}
