package binary

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestU32RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 63, 64, 127, 128, 624485, math.MaxUint32} {
		w := NewWriter()
		w.WriteU32(v)
		r := NewReader(w.Bytes())
		got, err := r.ReadU32()
		require.NoError(t, err)
		assert.Equal(t, v, got)
		assert.Zero(t, r.Remaining())
	}
}

func TestS64RoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 63, -64, 64, -65, math.MaxInt32, math.MinInt32, math.MaxInt64, math.MinInt64} {
		w := NewWriter()
		w.WriteS64(v)
		r := NewReader(w.Bytes())
		got, err := r.ReadS64()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestS32RoundTrip(t *testing.T) {
	for _, v := range []int32{0, -1, 42, -42, math.MaxInt32, math.MinInt32} {
		w := NewWriter()
		w.WriteS32(v)
		got, err := NewReader(w.Bytes()).ReadS32()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestReadU32_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"too long", []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x00}, ErrOverflow},
		{"unused bits", []byte{0xff, 0xff, 0xff, 0xff, 0x1f}, ErrUnusedBits},
		{"truncated", []byte{0x80}, io.ErrUnexpectedEOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(tt.data).ReadU32()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestReadS32_UnusedBits(t *testing.T) {
	// -1 with a wrong top nibble
	_, err := NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0x4f}).ReadS32()
	assert.ErrorIs(t, err, ErrUnusedBits)

	got, err := NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0x7f}).ReadS32()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), got)
}

func TestReadName(t *testing.T) {
	w := NewWriter()
	w.WriteName("memory")
	name, err := NewReader(w.Bytes()).ReadName()
	require.NoError(t, err)
	assert.Equal(t, "memory", name)

	_, err = NewReader([]byte{0x02, 0xff, 0xfe}).ReadName()
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestReadBytes_Bounds(t *testing.T) {
	r := NewReader([]byte{1, 2, 3})
	_, err := r.ReadBytes(4)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	b, err := r.ReadBytes(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)

	_, err = r.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSubReader_AbsolutePosition(t *testing.T) {
	r := NewReader([]byte{9, 9, 1, 2, 3, 9})
	_, _ = r.ReadBytes(2)
	sub, err := r.Sub(3)
	require.NoError(t, err)
	assert.Equal(t, 2, sub.Position())
	assert.Equal(t, 5, r.Position())

	_, _ = sub.ReadByte()
	assert.Equal(t, 3, sub.Position())
	assert.Equal(t, 2, sub.Remaining())

	_, err = r.Sub(2)
	assert.Error(t, err)
}

func TestWriter_Section(t *testing.T) {
	w := NewWriter()
	w.Section(5, []byte{1, 0, 1})
	assert.Equal(t, []byte{5, 3, 1, 0, 1}, w.Bytes())

	w = NewWriter()
	w.WriteU32LE(0x6d736100)
	assert.Equal(t, []byte{0x00, 0x61, 0x73, 0x6d}, w.Bytes())
}

func TestParseError(t *testing.T) {
	r := NewReader([]byte{1})
	_, _ = r.ReadByte()
	err := r.WrapError("header", io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "header at position 1")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
