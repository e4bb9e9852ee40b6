// Command huff compresses and decompresses files with a static Huffman code.
//
//	huff [flags] compress   <input> <output>
//	huff [flags] decompress <input> <output>
//	huff [flags] inspect    <input>
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/duke-git/lancet/v2/slice"
	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs"

	"github.com/seiflotfy/huff"
	"github.com/seiflotfy/huff/internal/config"
	"github.com/seiflotfy/huff/internal/logger"
	"github.com/seiflotfy/huff/internal/metrics"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var commands = []string{"compress", "decompress", "inspect"}

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type app struct {
	conf    *config.Conf
	log     zerolog.Logger
	metrics *metrics.Metrics
	stdout  io.Writer
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("huff", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: huff [flags] compress|decompress <input> <output>")
		fmt.Fprintln(stderr, "       huff [flags] inspect <input>")
		fs.PrintDefaults()
	}

	configPath := fs.String("config", "", "YAML config file")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.Int("workers", 0, "frequency counting goroutines")
	fs.Int("parallel-threshold", 0, "input size from which counting runs in parallel")
	fs.Int("tree-cache", 0, "decoder tree cache entries")
	fs.Int64("max-input", 0, "largest original length accepted")
	fs.String("metrics-textfile", "", "write prometheus metrics to this file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	rest := fs.Args()
	if len(rest) == 0 || !slice.Contain(commands, rest[0]) {
		fs.Usage()
		return exitUsage
	}
	cmd, files := rest[0], rest[1:]
	if want := arity(cmd); len(files) != want {
		fmt.Fprintf(stderr, "huff %s: expected %d file arguments, got %d\n", cmd, want, len(files))
		return exitUsage
	}

	conf, err := config.Load(*configPath, flagOverrides(fs))
	if err != nil {
		fmt.Fprintf(stderr, "huff: %v\n", err)
		return exitError
	}
	log, err := logger.New(conf, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "huff: %v\n", err)
		return exitError
	}

	a := &app{conf: conf, log: log, metrics: metrics.New(), stdout: stdout}

	start := time.Now()
	in, out, err := a.dispatch(cmd, files)
	a.metrics.Observe(cmd, in, out, time.Since(start), err)

	if path := conf.String("metrics.textfile"); path != "" {
		if werr := a.metrics.WriteTextfile(path); werr != nil {
			log.Error().Err(werr).Str("path", path).Msg("Failed to write metrics")
		}
	}

	if err != nil {
		log.Error().Err(err).Str("cmd", cmd).Msg("Failed")
		return exitError
	}
	return exitOK
}

func arity(cmd string) int {
	if cmd == "inspect" {
		return 1
	}
	return 2
}

// flagOverrides maps explicitly set flags onto config keys.
func flagOverrides(fs *flag.FlagSet) map[string]any {
	keys := map[string]string{
		"log-level":          "logger.level",
		"workers":            "codec.workers",
		"parallel-threshold": "codec.parallel-threshold",
		"tree-cache":         "codec.tree-cache",
		"max-input":          "codec.max-input",
		"metrics-textfile":   "metrics.textfile",
	}
	overrides := map[string]any{}
	fs.Visit(func(f *flag.Flag) {
		if key, ok := keys[f.Name]; ok {
			overrides[key] = f.Value.(flag.Getter).Get()
		}
	})
	return overrides
}

func (a *app) options() []huff.Option {
	return []huff.Option{
		huff.WithMaxInputLength(uint64(max(a.conf.Int64("codec.max-input"), 0))),
		huff.WithWorkers(a.conf.Int("codec.workers")),
		huff.WithParallelThreshold(a.conf.Int("codec.parallel-threshold")),
		huff.WithTreeCache(a.conf.Int("codec.tree-cache")),
		huff.WithLogger(a.log),
	}
}

func (a *app) dispatch(cmd string, files []string) (int64, int64, error) {
	switch cmd {
	case "compress":
		return a.compress(files[0], files[1])
	case "decompress":
		return a.decompress(files[0], files[1])
	case "inspect":
		return a.inspect(files[0])
	}
	return 0, 0, errUsage
}

func (a *app) compress(inPath, outPath string) (int64, int64, error) {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return 0, 0, err
	}

	s, err := huff.NewEncoder(a.options()...).EncodeContext(context.Background(), data)
	if err != nil {
		return int64(len(data)), 0, fmt.Errorf("compress %s: %w", inPath, err)
	}

	n, err := writeFile(outPath, s.WriteTo)
	if err != nil {
		return int64(len(data)), n, err
	}

	a.log.Info().
		Str("input", inPath).
		Str("output", outPath).
		Int("original_bytes", len(data)).
		Int64("compressed_bytes", n).
		Float64("ratio", s.Ratio()).
		Msg("File compressed successfully")
	return int64(len(data)), n, nil
}

func (a *app) decompress(inPath, outPath string) (int64, int64, error) {
	f, err := os.Open(inPath)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	in := &countingReader{r: bufio.NewReader(f)}
	data, err := huff.NewDecoder(a.options()...).DecodeFrom(in)
	if err != nil {
		return in.n, 0, fmt.Errorf("decompress %s: %w", inPath, err)
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return in.n, 0, err
	}

	a.log.Info().
		Str("input", inPath).
		Str("output", outPath).
		Int64("compressed_bytes", in.n).
		Int("original_bytes", len(data)).
		Msg("File decompressed successfully")
	return in.n, int64(len(data)), nil
}

func (a *app) inspect(inPath string) (int64, int64, error) {
	f, err := os.Open(inPath)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	var s huff.Stream
	n, err := s.ReadFrom(bufio.NewReader(f))
	if err != nil {
		return n, 0, fmt.Errorf("inspect %s: %w", inPath, err)
	}

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "original length\t%d\n", s.OriginalLength)
	fmt.Fprintf(w, "compressed length\t%d\n", s.Len())
	fmt.Fprintf(w, "header length\t%d\n", s.HeaderLen())
	fmt.Fprintf(w, "padding bits\t%d\n", s.Padding)
	fmt.Fprintf(w, "symbols\t%d\n", s.Table.Distinct())
	fmt.Fprintf(w, "ratio\t%.3f\n", s.Ratio())

	if s.Table.Distinct() > 0 {
		tree, err := huff.BuildTree(s.Table)
		if err != nil {
			return n, 0, err
		}
		cb, err := huff.DeriveCodeBook(tree)
		if err != nil {
			return n, 0, err
		}
		fmt.Fprintf(w, "\nsymbol\tfreq\tbits\tcode\n")
		for _, sym := range s.Table.Symbols() {
			code, _ := cb.Code(sym)
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", symbolName(sym), s.Table.Freq(sym), code.Len, code)
		}
	}
	if err := w.Flush(); err != nil {
		return n, 0, err
	}
	return n, 0, nil
}

func symbolName(sym byte) string {
	if sym > 0x20 && sym < 0x7f {
		return fmt.Sprintf("%q", sym)
	}
	return fmt.Sprintf("0x%02x", sym)
}

// writeFile creates path and removes it again if writeTo fails.
func writeFile(path string, writeTo func(io.Writer) (int64, error)) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	bw := bufio.NewWriter(f)
	n, err := writeTo(bw)
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return n, err
	}
	return n, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
