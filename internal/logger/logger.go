package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/suenchunyu/word-frequency/internal/config"
)

// New builds the process logger writing to stderr.
func New(c config.Log) (zerolog.Logger, error) {
	return NewWithWriter(os.Stderr, c)
}

// NewWithWriter builds a logger writing JSON lines to w, or human readable
// lines when the format is "console".
func NewWithWriter(w io.Writer, c config.Log) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if c.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(c.Level))
		if err != nil {
			return zerolog.Nop(), err
		}
		level = l
	}

	if strings.EqualFold(c.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
