// Package huff is a static Huffman codec for byte sequences.
//
// The whole input is counted once, an optimal prefix-free code is derived
// from the resulting tree, and every byte is replaced by its code. The
// compressed Stream carries the frequency table so that a Decoder can rebuild
// the identical tree.
package huff

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

const (
	// DefaultMaxInputLength bounds the original length accepted by encoders
	// and decoders. It also keeps every code within 64 bits.
	DefaultMaxInputLength = uint64(1) << 40
	// DefaultParallelThreshold is the input size from which counting is split across workers.
	DefaultParallelThreshold = 4 << 20
)

// Config holds configuration shared by Encoder and Decoder.
type Config struct {
	MaxInputLength    uint64 // Largest original length accepted (0 = DefaultMaxInputLength)
	Workers           int    // Frequency counting goroutines (0 or 1 = sequential)
	ParallelThreshold int    // Minimum input size for parallel counting (0 = default)
	TreeCacheSize     int    // Decoder tree cache entries (0 = disabled)
	Logger            zerolog.Logger
}

// Option is a functional option for configuring encoders and decoders.
type Option func(*Config)

// WithMaxInputLength sets the largest original length accepted.
// Values above DefaultMaxInputLength are clamped.
func WithMaxInputLength(n uint64) Option {
	return func(c *Config) {
		c.MaxInputLength = n
	}
}

// WithWorkers sets the number of goroutines counting frequencies.
func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithParallelThreshold sets the input size from which counting runs in parallel.
func WithParallelThreshold(n int) Option {
	return func(c *Config) {
		c.ParallelThreshold = n
	}
}

// WithTreeCache keeps up to n rebuilt trees in the decoder, keyed by table.
func WithTreeCache(n int) Option {
	return func(c *Config) {
		c.TreeCacheSize = n
	}
}

// WithLogger sets the logger receiving debug events.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func newConfig(opts []Option) Config {
	cfg := Config{Logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c Config) maxInputLength() uint64 {
	if c.MaxInputLength == 0 || c.MaxInputLength > DefaultMaxInputLength {
		return DefaultMaxInputLength
	}
	return c.MaxInputLength
}

func (c Config) parallelThreshold() int {
	if c.ParallelThreshold <= 0 {
		return DefaultParallelThreshold
	}
	return c.ParallelThreshold
}

var (
	// ErrFormat matches every *FormatError.
	ErrFormat = errors.New("huff: malformed stream")
	// ErrEmptyTable indicates a tree was requested for an empty frequency table.
	ErrEmptyTable = errors.New("huff: empty frequency table")
	// ErrCodeTooLong indicates a code longer than 64 bits.
	ErrCodeTooLong = errors.New("huff: code longer than 64 bits")
	// ErrInputTooLarge indicates an input above the configured maximum length.
	ErrInputTooLarge = errors.New("huff: input too large")
)

// FormatError reports a malformed or truncated stream.
type FormatError struct {
	Offset int64 // Byte offset in the serialized stream
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("huff: malformed stream at offset %d: %s", e.Offset, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func formatErrorf(offset int64, err error, format string, args ...any) *FormatError {
	return &FormatError{Offset: offset, Reason: fmt.Sprintf(format, args...), Err: err}
}

// IOError reports a failure of the underlying reader or writer.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return "huff: " + e.Op + ": " + e.Err.Error() }

func (e *IOError) Unwrap() error { return e.Err }

// Compress encodes data and returns the serialized stream.
func Compress(data []byte, opts ...Option) ([]byte, error) {
	s, err := NewEncoder(opts...).Encode(data)
	if err != nil {
		return nil, err
	}
	return s.MarshalBinary()
}

// Decompress decodes a serialized stream produced by Compress.
func Decompress(blob []byte, opts ...Option) ([]byte, error) {
	var s Stream
	if err := s.UnmarshalBinary(blob); err != nil {
		return nil, err
	}
	return NewDecoder(opts...).Decode(&s)
}
