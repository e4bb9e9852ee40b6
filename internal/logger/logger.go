package logger

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/seiflotfy/huff/internal/config"
)

// New builds the command logger from the logger.* keys.
func New(conf *config.Conf, out io.Writer) (zerolog.Logger, error) {
	zerolog.TimeFieldFormat = conf.String("logger.time-format", time.RFC3339)

	l, err := zerolog.ParseLevel(conf.String("logger.level", "info"))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level: %w", err)
	}

	if conf.Bool("logger.prettier", false) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: zerolog.TimeFieldFormat}
	}

	return zerolog.New(out).Level(l).With().Timestamp().Logger(), nil
}
