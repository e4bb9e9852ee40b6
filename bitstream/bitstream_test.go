package bitstream

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPadding(t *testing.T) {
	cases := map[uint64]uint8{
		0:  0,
		1:  7,
		7:  1,
		8:  0,
		9:  7,
		16: 0,
		23: 1,
	}
	for bits, want := range cases {
		require.Equal(t, want, Padding(bits), "bits=%d", bits)
	}
}

func TestPackedLen(t *testing.T) {
	require.Equal(t, uint64(0), PackedLen(0))
	require.Equal(t, uint64(1), PackedLen(1))
	require.Equal(t, uint64(1), PackedLen(8))
	require.Equal(t, uint64(2), PackedLen(9))
}

func TestPackerMSBFirst(t *testing.T) {
	var buf bytes.Buffer
	p := NewPacker(&buf)
	require.NoError(t, p.WriteCode(0b1, 1))
	require.NoError(t, p.WriteCode(0b01, 2))
	require.NoError(t, p.WriteCode(0b11110, 5))
	require.NoError(t, p.WriteCode(0b101, 3))
	padding, err := p.Close()
	require.NoError(t, err)

	require.Equal(t, uint64(11), p.Bits())
	require.Equal(t, uint8(5), padding)
	require.Equal(t, []byte{0b10111110, 0b10100000}, buf.Bytes())
}

func TestPackerByteAlignedHasNoPadding(t *testing.T) {
	var buf bytes.Buffer
	p := NewPacker(&buf)
	for i := 0; i < 4; i++ {
		require.NoError(t, p.WriteCode(0b10, 2))
	}
	padding, err := p.Close()
	require.NoError(t, err)
	require.Equal(t, uint8(0), padding)
	require.Equal(t, []byte{0b10101010}, buf.Bytes())
}

func TestPackerMasksHighBits(t *testing.T) {
	var buf bytes.Buffer
	p := NewPacker(&buf)
	require.NoError(t, p.WriteCode(0xFF, 4))
	require.NoError(t, p.WriteCode(0, 4))
	_, err := p.Close()
	require.NoError(t, err)
	require.Equal(t, []byte{0xF0}, buf.Bytes())
}

func TestPackerWideCodes(t *testing.T) {
	var buf bytes.Buffer
	p := NewPacker(&buf)
	require.NoError(t, p.WriteCode(^uint64(0), 64))
	require.ErrorIs(t, p.WriteCode(1, 65), ErrCodeWidth)
	_, err := p.Close()
	require.NoError(t, err)
	require.Equal(t, bytes.Repeat([]byte{0xFF}, 8), buf.Bytes())
}

func TestUnpackerStopsBeforePadding(t *testing.T) {
	u, err := NewUnpacker([]byte{0b10111110, 0b10100000}, 5)
	require.NoError(t, err)
	require.Equal(t, uint64(11), u.Remaining())

	var got []bool
	for {
		b, err := u.ReadBit()
		if err != nil {
			require.ErrorIs(t, err, ErrExhausted)
			break
		}
		got = append(got, b)
	}
	want := []bool{true, false, true, true, true, true, true, false, true, false, true}
	require.Equal(t, want, got)
	require.Zero(t, u.Remaining())
}

func TestUnpackerRejectsBadPadding(t *testing.T) {
	_, err := NewUnpacker([]byte{0}, 8)
	require.ErrorIs(t, err, ErrInvalidPadding)

	_, err = NewUnpacker(nil, 1)
	require.ErrorIs(t, err, ErrInvalidPadding)

	u, err := NewUnpacker(nil, 0)
	require.NoError(t, err)
	_, err = u.ReadBit()
	require.ErrorIs(t, err, ErrExhausted)
}

func TestPackUnpackRoundTrip(t *testing.T) {
	codes := []struct {
		bits uint64
		n    uint8
	}{
		{0b0, 1}, {0b110, 3}, {0b1, 1}, {0xABCD, 16}, {0b10, 2}, {0x1234567, 27},
	}
	var buf bytes.Buffer
	p := NewPacker(&buf)
	for _, c := range codes {
		require.NoError(t, p.WriteCode(c.bits, c.n))
	}
	padding, err := p.Close()
	require.NoError(t, err)
	require.Equal(t, PackedLen(p.Bits()), uint64(buf.Len()))

	u, err := NewUnpacker(buf.Bytes(), padding)
	require.NoError(t, err)
	for _, c := range codes {
		var v uint64
		for i := uint8(0); i < c.n; i++ {
			b, err := u.ReadBit()
			require.NoError(t, err)
			v <<= 1
			if b {
				v |= 1
			}
		}
		require.Equal(t, c.bits, v)
	}
	_, err = u.ReadBit()
	require.ErrorIs(t, err, ErrExhausted)
}
