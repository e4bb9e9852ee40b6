// Package bitstream packs variable-width codes into bytes, most significant
// bit first, and reads them back with an exact bit budget.
package bitstream

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/icza/bitio"
)

const maxCodeWidth = 64

var (
	// ErrExhausted indicates the bit budget of an Unpacker is used up.
	ErrExhausted = errors.New("bitstream: bits exhausted")
	// ErrInvalidPadding indicates a padding count outside [0, 7], or padding on an empty payload.
	ErrInvalidPadding = errors.New("bitstream: invalid padding")
	// ErrCodeWidth indicates a code wider than 64 bits.
	ErrCodeWidth = errors.New("bitstream: code wider than 64 bits")
)

// Padding returns the number of zero bits needed to complete the final byte
// of a payload holding totalBits bits. Byte-aligned payloads get 0, never 8.
func Padding(totalBits uint64) uint8 {
	return uint8((8 - totalBits%8) % 8)
}

// PackedLen returns the payload size in bytes for totalBits bits.
func PackedLen(totalBits uint64) uint64 {
	return totalBits/8 + uint64(min(1, totalBits%8))
}

// Packer writes codes to an io.Writer.
type Packer struct {
	w    *bitio.Writer
	bits uint64
}

// NewPacker returns a Packer writing to w.
func NewPacker(w io.Writer) *Packer {
	return &Packer{w: bitio.NewWriter(w)}
}

// WriteCode writes the n low bits of code, highest of them first.
func (p *Packer) WriteCode(code uint64, n uint8) error {
	if n == 0 {
		return nil
	}
	if n > maxCodeWidth {
		return fmt.Errorf("%w: %d", ErrCodeWidth, n)
	}
	if n < maxCodeWidth {
		code &= (uint64(1) << n) - 1
	}
	if err := p.w.WriteBits(code, n); err != nil {
		return err
	}
	p.bits += uint64(n)
	return nil
}

// Bits reports the number of code bits written so far.
func (p *Packer) Bits() uint64 {
	return p.bits
}

// Close flushes the final partial byte, right-padded with zero bits, and
// returns how many padding bits were added. It does not close the
// underlying writer.
func (p *Packer) Close() (uint8, error) {
	if err := p.w.Close(); err != nil {
		return 0, err
	}
	return Padding(p.bits), nil
}

// Unpacker reads single bits from a packed payload, stopping before the
// trailing padding bits.
type Unpacker struct {
	r         *bitio.Reader
	remaining uint64
}

// NewUnpacker returns an Unpacker over payload whose last byte carries
// padding ignorable bits.
func NewUnpacker(payload []byte, padding uint8) (*Unpacker, error) {
	if padding > 7 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPadding, padding)
	}
	if len(payload) == 0 && padding != 0 {
		return nil, fmt.Errorf("%w: %d bits on empty payload", ErrInvalidPadding, padding)
	}
	return &Unpacker{
		r:         bitio.NewReader(bytes.NewReader(payload)),
		remaining: uint64(len(payload))*8 - uint64(padding),
	}, nil
}

// ReadBit returns the next bit, true for 1.
func (u *Unpacker) ReadBit() (bool, error) {
	if u.remaining == 0 {
		return false, ErrExhausted
	}
	b, err := u.r.ReadBool()
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, ErrExhausted
		}
		return false, err
	}
	u.remaining--
	return b, nil
}

// Remaining reports how many payload bits have not been read yet.
func (u *Unpacker) Remaining() uint64 {
	return u.remaining
}
