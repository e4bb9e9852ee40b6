package huff

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/seiflotfy/huff/bitstream"
)

// Encoder compresses byte sequences into Streams.
type Encoder struct {
	config Config
}

// NewEncoder creates a new encoder with the given options.
func NewEncoder(opts ...Option) *Encoder {
	return &Encoder{config: newConfig(opts)}
}

// Encode compresses data. The empty input yields an empty Stream.
func (e *Encoder) Encode(data []byte) (*Stream, error) {
	return e.EncodeContext(context.Background(), data)
}

// EncodeContext is Encode with a context bounding parallel frequency counting.
func (e *Encoder) EncodeContext(ctx context.Context, data []byte) (*Stream, error) {
	if limit := e.config.maxInputLength(); uint64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrInputTooLarge, len(data), limit)
	}
	if len(data) == 0 {
		e.config.Logger.Debug().Msg("empty input")
		return &Stream{}, nil
	}

	ft, err := e.count(ctx, data)
	if err != nil {
		return nil, err
	}
	tree, err := BuildTree(ft)
	if err != nil {
		return nil, err
	}
	cb, err := DeriveCodeBook(tree)
	if err != nil {
		return nil, err
	}

	totalBits := cb.TotalBits(ft)
	var payload bytes.Buffer
	payload.Grow(int(bitstream.PackedLen(totalBits)))

	p := bitstream.NewPacker(&payload)
	for _, b := range data {
		c := cb.codes[b]
		if err := p.WriteCode(c.Bits, c.Len); err != nil {
			return nil, err
		}
	}
	padding, err := p.Close()
	if err != nil {
		return nil, err
	}

	e.config.Logger.Debug().
		Int("distinct", ft.Distinct()).
		Uint8("max_code_len", cb.MaxLen()).
		Uint64("payload_bits", totalBits).
		Uint8("padding", padding).
		Msg("encoded")

	return &Stream{
		Padding:        padding,
		OriginalLength: uint64(len(data)),
		Table:          ft,
		Payload:        payload.Bytes(),
	}, nil
}

// EncodeTo compresses data and writes the serialized stream to w.
func (e *Encoder) EncodeTo(w io.Writer, data []byte) (int64, error) {
	s, err := e.Encode(data)
	if err != nil {
		return 0, err
	}
	return s.WriteTo(w)
}

func (e *Encoder) count(ctx context.Context, data []byte) (FrequencyTable, error) {
	if e.config.Workers > 1 && len(data) >= e.config.parallelThreshold() {
		return CountParallel(ctx, data, e.config.Workers)
	}
	return Count(data), nil
}
