package logutil

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileName = "process_mutex.log"
	maxSizeMB   = 10
	maxArchives = 3

	maxPayloadLogLength = 100
)

type Options struct {
	Level             string
	EnableFileLogging bool
	// Dir holds the log file; empty means the working directory.
	Dir string
	// Console receives human-readable output; nil means stderr.
	Console io.Writer
}

// Setup builds the process logger and sets the global level. File logging
// rotates at 10MB and keeps 3 archives.
func Setup(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	var out io.Writer = zerolog.ConsoleWriter{Out: console, TimeFormat: "15:04:05"}

	if opts.EnableFileLogging {
		out = zerolog.MultiLevelWriter(out, newFileWriter(opts.Dir))
	}

	return zerolog.New(out).With().Timestamp().Logger()
}

// newFileWriter returns the size-rotated log file writer.
func newFileWriter(dir string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    maxSizeMB,
		MaxBackups: maxArchives,
	}
}

// SanitizePayload makes a received payload safe to log: capped length,
// newlines and tabs escaped, other control characters replaced by '?'.
func SanitizePayload(text string) string {
	truncated := false
	if len(text) > maxPayloadLogLength {
		text = text[:maxPayloadLogLength]
		truncated = true
	}

	var b strings.Builder
	for _, r := range text {
		switch {
		case r == '\n' || r == '\r':
			b.WriteString("\\n")
		case r == '\t':
			b.WriteString("\\t")
		case r < 32 || r == 127:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	if truncated {
		b.WriteString("...")
	}
	return b.String()
}
