// Package logging provides structured logging for drip built on zerolog.
//
// Loggers are carried through context.Context so that every progress line,
// prompt, and database call of one invocation shares the same run ID and
// component tags.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Output destinations accepted by Config.Output.
const (
	OutputStderr = "stderr"
	OutputStdout = "stdout"
	OutputFile   = "file"
)

// Format values accepted by Config.Format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config controls how the root logger is constructed.
type Config struct {
	// Level is a zerolog level name ("debug", "info", "warn", ...).
	// Invalid or empty values fall back to info.
	Level string

	// Format selects console (human-readable) or json output.
	Format string

	// Output selects the destination: stderr, stdout, or file.
	Output string

	// File is the log file path when Output is "file".
	File string

	// Caller adds file:line caller annotations.
	Caller bool
}

// Result holds the constructed logger plus the file handle that must be
// closed when the invocation finishes.
type Result struct {
	Logger    zerolog.Logger
	UsingFile bool
	FilePath  string

	file *os.File
}

// Close releases the log file handle, if any.
func (r *Result) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// New builds a logger from cfg. When a file destination cannot be opened it
// falls back to stderr rather than failing the run; batch jobs should never
// die because of their own logging.
func New(cfg Config) Result {
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	result := Result{}
	var out io.Writer

	switch cfg.Output {
	case OutputFile:
		if f, openErr := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600); openErr == nil {
			result.file = f
			result.UsingFile = true
			result.FilePath = cfg.File
			out = f
		} else {
			out = os.Stderr
		}
	case OutputStdout:
		out = os.Stdout
	default:
		out = os.Stderr
	}

	if cfg.Format != FormatJSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logCtx := zerolog.New(out).Level(lvl).With().Timestamp()
	if cfg.Caller {
		logCtx = logCtx.Caller()
	}
	result.Logger = logCtx.Logger()

	return result
}

// ComponentLogger returns a child logger tagged with a component field.
func ComponentLogger(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// FromContext returns the logger stored in ctx, or a disabled logger when
// none was attached.
func FromContext(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}
