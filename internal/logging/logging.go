package logging

import (
	"io"
	"os"
	"strings"

	"sign-arena/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var writer io.Writer = os.Stdout

// Init configures the global zerolog logger. When cfg.File is set, output
// goes to a size-limited file instead of stdout.
func Init(cfg config.LogConfig) {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level))); err == nil && cfg.Level != "" {
		level = parsed
	}

	writer = os.Stdout
	if cfg.File != "" {
		if w, err := newSizeLimitedWriter(cfg.File, cfg.MaxMB); err == nil {
			writer = w
		}
	}
	output := writer
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
}

// Writer returns the destination Init selected, for handing to the HTTP
// request logger so both log streams end up in the same place.
func Writer() io.Writer {
	return writer
}
