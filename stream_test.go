package huff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestSerialization(t *testing.T) {
	data := skewedBytes(31, 10000)
	s := mustEncode(t, data)

	var buf bytes.Buffer
	n, err := s.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if n != s.Len() {
		t.Errorf("WriteTo: got %d bytes want %d", n, s.Len())
	}

	var loaded Stream
	m, err := loaded.ReadFrom(&buf)
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if m != n {
		t.Errorf("ReadFrom: got %d bytes want %d", m, n)
	}
	if loaded.Padding != s.Padding || loaded.OriginalLength != s.OriginalLength || loaded.Table != s.Table {
		t.Fatalf("header mismatch: got %+v", loaded)
	}
	if !bytes.Equal(loaded.Payload, s.Payload) {
		t.Fatal("payload mismatch")
	}
}

func TestSerializationLayout(t *testing.T) {
	s := &Stream{
		Padding:        5,
		OriginalLength: 0x0102,
		Table:          tableOf(map[byte]uint64{0x20: 0x02, 0x10: 0x0100}),
		Payload:        []byte{0xAA, 0xBB},
	}
	blob, err := s.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	want := []byte{
		0x05,
		0x02, 0x01, 0, 0, 0, 0, 0, 0,
		0x02, 0x00,
		0x10, 0x00, 0x01, 0, 0, 0, 0, 0, 0,
		0x20, 0x02, 0x00, 0, 0, 0, 0, 0, 0,
		0xAA, 0xBB,
	}
	if !bytes.Equal(blob, want) {
		t.Fatalf("got  %x\nwant %x", blob, want)
	}
	if int64(len(blob)) != s.Len() {
		t.Errorf("Len: got %d want %d", s.Len(), len(blob))
	}
}

func TestMarshalRejectsBadPadding(t *testing.T) {
	if _, err := (&Stream{Padding: 8}).MarshalBinary(); err == nil {
		t.Fatal("expected error for padding 8")
	}
}

func header(padding uint8, length uint64, entries ...[2]uint64) []byte {
	b := []byte{padding}
	b = binary.LittleEndian.AppendUint64(b, length)
	b = binary.LittleEndian.AppendUint16(b, uint16(len(entries)))
	for _, e := range entries {
		b = append(b, byte(e[0]))
		b = binary.LittleEndian.AppendUint64(b, e[1])
	}
	return b
}

func TestReadFromRejectsMalformedHeaders(t *testing.T) {
	tests := []struct {
		name   string
		blob   []byte
		offset int64
	}{
		{"padding 8", header(8, 0), 0},
		{"padding 255", header(255, 1, [2]uint64{'a', 1}), 0},
		{"huge length", header(0, DefaultMaxInputLength+1), 1},
		{
			"symbol count above 256",
			append(append([]byte{0}, make([]byte, 8)...), 0x01, 0x01),
			9,
		},
		{"unsorted symbols", header(0, 2, [2]uint64{'b', 1}, [2]uint64{'a', 1}), 20},
		{"duplicate symbols", header(0, 2, [2]uint64{'a', 1}, [2]uint64{'a', 1}), 20},
		{"zero frequency", header(0, 1, [2]uint64{'a', 0}, [2]uint64{'b', 1}), 11},
		{"sum mismatch", header(0, 3, [2]uint64{'a', 1}, [2]uint64{'b', 1}), headerFixedLen},
		{"sum overflow", header(0, 1, [2]uint64{'a', ^uint64(0)}, [2]uint64{'b', 2}), headerFixedLen},
		{"payload without symbols", append(header(0, 0), 0xFF), 0},
		{"payload too large", append(header(0, 1, [2]uint64{'a', 1}), make([]byte, 9)...), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Stream
			_, err := s.ReadFrom(bytes.NewReader(tt.blob))
			fe := requireFormatError(t, err)
			if tt.offset != 0 && fe.Offset != tt.offset {
				t.Errorf("offset: got %d want %d (%v)", fe.Offset, tt.offset, err)
			}
		})
	}
}

func TestReadFromKeepsTargetOnError(t *testing.T) {
	s := Stream{OriginalLength: 42}
	if _, err := s.ReadFrom(bytes.NewReader(header(9, 0))); err == nil {
		t.Fatal("expected error")
	}
	if s.OriginalLength != 42 {
		t.Fatal("ReadFrom modified the stream on error")
	}
}

type failingReader struct {
	data []byte
	err  error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if len(f.data) == 0 {
		return 0, f.err
	}
	n := copy(p, f.data)
	f.data = f.data[n:]
	return n, nil
}

func TestReadFromReaderFailureIsIOError(t *testing.T) {
	boom := errors.New("disk on fire")

	for _, blob := range [][]byte{
		nil,
		header(0, 1),
		header(0, 1, [2]uint64{'a', 1}),
	} {
		var s Stream
		_, err := s.ReadFrom(&failingReader{data: blob, err: boom})
		var ioErr *IOError
		if !errors.As(err, &ioErr) {
			t.Fatalf("expected *IOError, got %T: %v", err, err)
		}
		if !errors.Is(err, boom) {
			t.Fatalf("expected wrapped cause, got %v", err)
		}
		if errors.Is(err, ErrFormat) {
			t.Fatal("reader failure reported as format error")
		}
	}
}

type failingWriter struct{ n int }

func (f *failingWriter) Write(p []byte) (int, error) {
	if len(p) > f.n {
		return f.n, io.ErrClosedPipe
	}
	return len(p), nil
}

func TestWriteToWriterFailureIsIOError(t *testing.T) {
	s := mustEncode(t, []byte("hello"))
	_, err := s.WriteTo(&failingWriter{n: 3})
	var ioErr *IOError
	if !errors.As(err, &ioErr) || !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected IOError wrapping ErrClosedPipe, got %v", err)
	}
}

func TestStreamRatio(t *testing.T) {
	s := mustEncode(t, bytes.Repeat([]byte("a"), 800))
	// 800 bits -> 100 bytes payload, 20 bytes header
	if s.Len() != 120 {
		t.Fatalf("Len: got %d want 120", s.Len())
	}
	if r := s.Ratio(); r < 6.66 || r > 6.67 {
		t.Fatalf("Ratio: got %f", r)
	}
}
