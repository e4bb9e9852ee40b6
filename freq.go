package huff

import (
	"context"
	"encoding/binary"
	"math/bits"

	"github.com/duke-git/lancet/v2/slice"
	"golang.org/x/sync/errgroup"
)

const alphabetSize = 256

// FrequencyTable holds the occurrence count of every byte value of an input.
// The zero value is the table of the empty input.
type FrequencyTable struct {
	counts [alphabetSize]uint64
}

// Count returns the frequency table of data.
func Count(data []byte) FrequencyTable {
	var t FrequencyTable
	for _, b := range data {
		t.counts[b]++
	}
	return t
}

// CountParallel counts data in up to workers contiguous chunks concurrently
// and merges the partial tables by addition. workers <= 1 counts inline.
func CountParallel(ctx context.Context, data []byte, workers int) (FrequencyTable, error) {
	if err := ctx.Err(); err != nil {
		return FrequencyTable{}, err
	}
	if workers <= 1 || len(data) < workers {
		return Count(data), nil
	}

	chunk := (len(data) + workers - 1) / workers
	partials := make([]FrequencyTable, workers)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		lo := i * chunk
		if lo >= len(data) {
			break
		}
		hi := min(lo+chunk, len(data))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			partials[i] = Count(data[lo:hi])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return FrequencyTable{}, err
	}

	var t FrequencyTable
	for _, p := range partials {
		t = t.Merge(p)
	}
	return t, nil
}

// Merge returns the sum of t and other.
func (t FrequencyTable) Merge(other FrequencyTable) FrequencyTable {
	for i, c := range other.counts {
		t.counts[i] += c
	}
	return t
}

// Freq returns the count of sym.
func (t FrequencyTable) Freq(sym byte) uint64 {
	return t.counts[sym]
}

// Total returns the sum of all counts, the length of the counted input.
func (t FrequencyTable) Total() uint64 {
	return slice.ReduceBy(t.counts[:], uint64(0), func(_ int, c uint64, agg uint64) uint64 {
		return agg + c
	})
}

// checkedTotal is Total with overflow detection, for tables read from untrusted input.
func (t FrequencyTable) checkedTotal() (uint64, bool) {
	var sum, carry uint64
	for _, c := range t.counts {
		sum, carry = bits.Add64(sum, c, 0)
		if carry != 0 {
			return 0, false
		}
	}
	return sum, true
}

// Distinct returns the number of byte values with a non-zero count.
func (t FrequencyTable) Distinct() int {
	n := 0
	for _, c := range t.counts {
		if c != 0 {
			n++
		}
	}
	return n
}

// Symbols returns the byte values present in the table, ascending.
func (t FrequencyTable) Symbols() []byte {
	syms := make([]byte, 0, t.Distinct())
	for i, c := range t.counts {
		if c != 0 {
			syms = append(syms, byte(i))
		}
	}
	return syms
}

// appendBinary appends the serialized table: a uint16 symbol count followed
// by (symbol, uint64 frequency) pairs in ascending symbol order.
func (t FrequencyTable) appendBinary(dst []byte) []byte {
	syms := t.Symbols()
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(syms)))
	for _, s := range syms {
		dst = append(dst, s)
		dst = binary.LittleEndian.AppendUint64(dst, t.counts[s])
	}
	return dst
}
