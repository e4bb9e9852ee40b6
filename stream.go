package huff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	paddingFieldLen  = 1
	lengthFieldLen   = 8
	countFieldLen    = 2
	entryLen         = 1 + 8
	headerFixedLen   = paddingFieldLen + lengthFieldLen + countFieldLen
	maxPaddingBits   = 7
	maxPayloadFactor = maxCodeLen / 8 // payload bytes per original byte, upper bound
)

// Wire format (little-endian):
//
//	padding  = uint8, 0-7 ignorable trailing bits of the last payload byte
//	length   = uint64 original input length
//	count    = uint16 distinct symbols, 0-256
//	repeat count times, ascending symbol:
//	  symbol = uint8
//	  freq   = uint64
//	payload  = packed codes up to the end of the stream
//
// The empty input serializes to an 11-byte header with no entries and no payload.
type Stream struct {
	Padding        uint8
	OriginalLength uint64
	Table          FrequencyTable
	Payload        []byte
}

// HeaderLen returns the serialized size of the header in bytes.
func (s *Stream) HeaderLen() int64 {
	return int64(headerFixedLen + entryLen*s.Table.Distinct())
}

// Len returns the serialized size of the stream in bytes.
func (s *Stream) Len() int64 {
	return s.HeaderLen() + int64(len(s.Payload))
}

// Ratio returns the original length divided by the serialized length.
func (s *Stream) Ratio() float64 {
	return float64(s.OriginalLength) / float64(s.Len())
}

// validateHeader checks the header fields against each other and against
// maxLength before any buffer is sized from them.
func (s *Stream) validateHeader(maxLength uint64) error {
	if s.Padding > maxPaddingBits {
		return formatErrorf(0, nil, "padding %d out of range", s.Padding)
	}
	if s.OriginalLength > maxLength {
		return formatErrorf(paddingFieldLen, ErrInputTooLarge, "original length %d above limit %d", s.OriginalLength, maxLength)
	}
	total, ok := s.Table.checkedTotal()
	if !ok {
		return formatErrorf(headerFixedLen, nil, "frequency sum overflows")
	}
	if total != s.OriginalLength {
		return formatErrorf(headerFixedLen, nil, "frequency sum %d does not match original length %d", total, s.OriginalLength)
	}
	if uint64(len(s.Payload)) > s.OriginalLength*maxPayloadFactor {
		return formatErrorf(s.HeaderLen(), nil, "payload of %d bytes too large for %d symbols", len(s.Payload), s.OriginalLength)
	}
	return nil
}

// AppendBinary appends the serialized stream to dst.
func (s *Stream) AppendBinary(dst []byte) ([]byte, error) {
	if s.Padding > maxPaddingBits {
		return dst, fmt.Errorf("invalid stream: padding %d out of range", s.Padding)
	}
	dst = append(dst, s.Padding)
	dst = binary.LittleEndian.AppendUint64(dst, s.OriginalLength)
	dst = s.Table.appendBinary(dst)
	return append(dst, s.Payload...), nil
}

// MarshalBinary returns the serialized stream.
func (s *Stream) MarshalBinary() ([]byte, error) {
	return s.AppendBinary(make([]byte, 0, s.Len()))
}

// UnmarshalBinary parses a serialized stream. The payload aliases no part of data.
func (s *Stream) UnmarshalBinary(data []byte) error {
	_, err := s.ReadFrom(bytes.NewReader(data))
	return err
}

func writeBytes(w io.Writer, b []byte) (int64, error) {
	n, err := w.Write(b)
	if err != nil {
		return int64(n), err
	}
	if n != len(b) {
		return int64(n), io.ErrShortWrite
	}
	return int64(n), nil
}

// WriteTo serializes the stream to w.
func (s *Stream) WriteTo(w io.Writer) (int64, error) {
	b, err := s.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := writeBytes(w, b)
	if err != nil {
		return n, &IOError{Op: "write stream", Err: err}
	}
	return n, nil
}

// readField fills buf from r. A short read is a truncated stream; any other
// failure belongs to the reader.
func readField(r io.Reader, buf []byte, offset int64, field string) (int64, error) {
	n, err := io.ReadFull(r, buf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return int64(n), formatErrorf(offset, io.ErrUnexpectedEOF, "truncated %s", field)
		}
		return int64(n), &IOError{Op: "read " + field, Err: err}
	}
	return int64(n), nil
}

// ReadFrom deserializes a stream from r, consuming r to its end.
func (s *Stream) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	var buf [lengthFieldLen]byte

	n, err := readField(r, buf[:paddingFieldLen], total, "padding")
	total += n
	if err != nil {
		return total, err
	}
	padding := buf[0]
	if padding > maxPaddingBits {
		return total, formatErrorf(0, nil, "padding %d out of range", padding)
	}

	lengthOffset := total
	n, err = readField(r, buf[:lengthFieldLen], total, "original length")
	total += n
	if err != nil {
		return total, err
	}
	originalLength := binary.LittleEndian.Uint64(buf[:])
	if originalLength > DefaultMaxInputLength {
		return total, formatErrorf(lengthOffset, ErrInputTooLarge, "original length %d above limit %d", originalLength, DefaultMaxInputLength)
	}

	countOffset := total
	n, err = readField(r, buf[:countFieldLen], total, "symbol count")
	total += n
	if err != nil {
		return total, err
	}
	count := int(binary.LittleEndian.Uint16(buf[:countFieldLen]))
	if count > alphabetSize {
		return total, formatErrorf(countOffset, nil, "symbol count %d above %d", count, alphabetSize)
	}

	var table FrequencyTable
	prev := -1
	for i := 0; i < count; i++ {
		entryOffset := total
		n, err = readField(r, buf[:1], total, fmt.Sprintf("table entry %d", i))
		total += n
		if err != nil {
			return total, err
		}
		sym := int(buf[0])
		if sym <= prev {
			return total, formatErrorf(entryOffset, nil, "table entry %d: symbol %d not ascending after %d", i, sym, prev)
		}
		prev = sym

		n, err = readField(r, buf[:lengthFieldLen], total, fmt.Sprintf("table entry %d", i))
		total += n
		if err != nil {
			return total, err
		}
		freq := binary.LittleEndian.Uint64(buf[:])
		if freq == 0 {
			return total, formatErrorf(entryOffset, nil, "table entry %d: zero frequency for symbol %d", i, sym)
		}
		table.counts[sym] = freq
	}

	// Read one byte past the largest payload the header allows so that an
	// oversized stream is detected without reading it whole.
	limit := int64(originalLength*maxPayloadFactor) + 1
	payload, err := io.ReadAll(io.LimitReader(r, limit))
	total += int64(len(payload))
	if err != nil {
		return total, &IOError{Op: "read payload", Err: err}
	}

	tmp := Stream{
		Padding:        padding,
		OriginalLength: originalLength,
		Table:          table,
		Payload:        payload,
	}
	if err := tmp.validateHeader(DefaultMaxInputLength); err != nil {
		return total, err
	}

	*s = tmp
	return total, nil
}
