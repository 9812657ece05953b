package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const permission = 0664

// Builder assembles the daemon's zerolog logger.
type Builder struct {
	writer  io.Writer
	path    string
	level   string
	console bool
}

// Log holds the built logger and the file backing it, if any.
type Log struct {
	Logger zerolog.Logger
	File   *os.File
}

func New() *Builder {
	return &Builder{writer: os.Stdout}
}

func (b *Builder) FromPath(path string) *Builder {
	b.path = path
	return b
}

func (b *Builder) FromWriter(w io.Writer) *Builder {
	b.writer = w
	return b
}

func (b *Builder) Level(level string) *Builder {
	b.level = level
	return b
}

// Console switches to zerolog's human readable console output.
func (b *Builder) Console(on bool) *Builder {
	b.console = on
	return b
}

func (b *Builder) Make() (*Log, error) {
	out := &Log{}
	w := b.writer
	if b.path != "" {
		f, err := os.OpenFile(b.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, err
		}
		out.File = f
		w = zerolog.SyncWriter(f)
	} else if b.console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	level := zerolog.InfoLevel
	if b.level != "" {
		parsed, err := zerolog.ParseLevel(b.level)
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	out.Logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return out, nil
}

// Close releases the log file when logging to a path.
func (l *Log) Close() error {
	if l.File == nil {
		return nil
	}
	return l.File.Close()
}

// Component returns a child logger tagged the way every package logs.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
