package huff

import (
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/seiflotfy/huff/bitstream"
)

// decodeTable is the decode-side state derived from a frequency table.
type decodeTable struct {
	tree      *Tree
	totalBits uint64
}

// Decoder reconstructs original bytes from Streams.
type Decoder struct {
	config Config
	cache  *lru.Cache[uint64, *decodeTable]
}

// NewDecoder creates a new decoder with the given options.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{config: newConfig(opts)}
	if d.config.TreeCacheSize > 0 {
		cache, err := lru.New[uint64, *decodeTable](d.config.TreeCacheSize)
		if err == nil {
			d.cache = cache
		}
	}
	return d
}

// DecodeFrom reads a serialized stream from r and decodes it.
func (d *Decoder) DecodeFrom(r io.Reader) ([]byte, error) {
	var s Stream
	if _, err := s.ReadFrom(r); err != nil {
		return nil, err
	}
	return d.Decode(&s)
}

// Decode reconstructs the original bytes of s.
func (d *Decoder) Decode(s *Stream) ([]byte, error) {
	if s == nil {
		return nil, formatErrorf(0, nil, "nil stream")
	}
	if err := s.validateHeader(d.config.maxInputLength()); err != nil {
		return nil, err
	}
	headerLen := s.HeaderLen()

	if s.OriginalLength == 0 {
		if len(s.Payload) != 0 || s.Padding != 0 {
			return nil, formatErrorf(headerLen, nil, "empty input with %d payload bytes and padding %d", len(s.Payload), s.Padding)
		}
		return []byte{}, nil
	}

	dt, err := d.table(s.Table)
	if err != nil {
		return nil, formatErrorf(headerLen, err, "cannot rebuild tree")
	}
	if want := bitstream.PackedLen(dt.totalBits); uint64(len(s.Payload)) != want {
		return nil, formatErrorf(headerLen, nil, "payload is %d bytes, table implies %d", len(s.Payload), want)
	}
	if want := bitstream.Padding(dt.totalBits); s.Padding != want {
		return nil, formatErrorf(0, nil, "padding is %d, table implies %d", s.Padding, want)
	}

	u, err := bitstream.NewUnpacker(s.Payload, s.Padding)
	if err != nil {
		return nil, formatErrorf(0, err, "invalid padding")
	}

	// OriginalLength <= 8*len(Payload) holds here since every code is at least one bit.
	out := make([]byte, 0, s.OriginalLength)
	tree := dt.tree
	var consumed uint64
	for uint64(len(out)) < s.OriginalLength {
		idx := tree.root
		for !tree.nodes[idx].leaf() {
			bit, err := u.ReadBit()
			if err != nil {
				return nil, formatErrorf(headerLen+int64(consumed/8), err, "bits exhausted after %d of %d symbols", len(out), s.OriginalLength)
			}
			consumed++
			next := tree.child(idx, bit)
			if next == noChild {
				return nil, formatErrorf(headerLen+int64((consumed-1)/8), nil, "bit sequence matches no code at symbol %d", len(out))
			}
			idx = next
		}
		out = append(out, tree.nodes[idx].symbol)
	}

	if rem := u.Remaining(); rem != 0 {
		return nil, formatErrorf(headerLen+int64(consumed/8), nil, "%d payload bits left after %d symbols", rem, len(out))
	}
	if Count(out) != s.Table {
		return nil, formatErrorf(headerLen, nil, "decoded symbols disagree with the frequency table")
	}
	return out, nil
}

func (d *Decoder) table(ft FrequencyTable) (*decodeTable, error) {
	var key uint64
	if d.cache != nil {
		key = xxhash.Sum64(ft.appendBinary(nil))
		if dt, ok := d.cache.Get(key); ok {
			d.config.Logger.Debug().Uint64("table", key).Bool("cache_hit", true).Msg("decode table")
			return dt, nil
		}
	}

	tree, err := BuildTree(ft)
	if err != nil {
		return nil, err
	}
	cb, err := DeriveCodeBook(tree)
	if err != nil {
		return nil, fmt.Errorf("derive code book: %w", err)
	}
	dt := &decodeTable{tree: tree, totalBits: cb.TotalBits(ft)}

	if d.cache != nil {
		d.cache.Add(key, dt)
		d.config.Logger.Debug().Uint64("table", key).Bool("cache_hit", false).Msg("decode table")
	}
	return dt, nil
}
