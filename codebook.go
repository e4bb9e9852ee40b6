package huff

import (
	"strings"
)

const maxCodeLen = 64

// Code is a bit-code of Len bits stored in the low bits of Bits. The highest
// of those bits is emitted first.
type Code struct {
	Bits uint64
	Len  uint8
}

// String renders the code as a string of '0' and '1'.
func (c Code) String() string {
	var sb strings.Builder
	sb.Grow(int(c.Len))
	for i := int(c.Len) - 1; i >= 0; i-- {
		if c.Bits>>uint(i)&1 == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// HasPrefix reports whether p is a prefix of c.
func (c Code) HasPrefix(p Code) bool {
	if p.Len > c.Len {
		return false
	}
	return c.Bits>>(c.Len-p.Len) == p.Bits
}

// CodeBook maps every byte value to its code. Absent symbols have a zero-length code.
type CodeBook struct {
	codes [alphabetSize]Code
}

// DeriveCodeBook assigns each leaf of t the path leading to it, 0 for a left
// edge and 1 for a right edge.
func DeriveCodeBook(t *Tree) (CodeBook, error) {
	var cb CodeBook
	if t == nil || len(t.nodes) == 0 {
		return cb, ErrEmptyTable
	}

	type frame struct {
		idx  int32
		code Code
	}
	stack := make([]frame, 0, maxCodeLen)
	stack = append(stack, frame{idx: t.root})
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[f.idx]
		if n.leaf() {
			cb.codes[n.symbol] = f.code
			continue
		}
		if f.code.Len == maxCodeLen {
			return CodeBook{}, ErrCodeTooLong
		}
		// right is pushed first so the left subtree is visited first
		if n.right != noChild {
			stack = append(stack, frame{n.right, Code{Bits: f.code.Bits<<1 | 1, Len: f.code.Len + 1}})
		}
		if n.left != noChild {
			stack = append(stack, frame{n.left, Code{Bits: f.code.Bits << 1, Len: f.code.Len + 1}})
		}
	}
	return cb, nil
}

// Code returns the code of sym and whether sym has one.
func (cb *CodeBook) Code(sym byte) (Code, bool) {
	c := cb.codes[sym]
	return c, c.Len > 0
}

// Lengths returns the code length of every byte value, 0 for absent ones.
func (cb *CodeBook) Lengths() [alphabetSize]uint8 {
	var l [alphabetSize]uint8
	for i, c := range cb.codes {
		l[i] = c.Len
	}
	return l
}

// MaxLen returns the longest code length.
func (cb *CodeBook) MaxLen() uint8 {
	var m uint8
	for _, c := range cb.codes {
		m = max(m, c.Len)
	}
	return m
}

// TotalBits returns the encoded size in bits of an input with frequencies ft.
func (cb *CodeBook) TotalBits(ft FrequencyTable) uint64 {
	var total uint64
	for i, c := range cb.codes {
		total += ft.counts[i] * uint64(c.Len)
	}
	return total
}
