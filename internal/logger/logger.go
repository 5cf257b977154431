package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the structured logger used across the engine. Key/value pairs
// follow the message, e.g. l.Debug("exchange completed", "alias", a, "status", 200).
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	With(kv ...any) Logger
}

type Options struct {
	Level   string   // debug, info, warn, error
	Writers []string // console, file, json
	File    string   // path for the file writer
}

type zlogger struct {
	z zerolog.Logger
}

// New builds a zerolog-backed Logger. Unknown writers are ignored; with no
// usable writer the logger writes JSON to stderr.
func New(opts Options) Logger {
	var ws []io.Writer
	for _, w := range opts.Writers {
		switch strings.ToLower(strings.TrimSpace(w)) {
		case "console":
			ws = append(ws, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
		case "json":
			ws = append(ws, os.Stderr)
		case "file":
			path := opts.File
			if path == "" {
				path = "sea-intercept.log"
			}
			ws = append(ws, &lumberjack.Logger{
				Filename:   path,
				MaxSize:    10, // MB
				MaxBackups: 3,
				MaxAge:     7,
			})
		}
	}
	var out io.Writer = os.Stderr
	switch len(ws) {
	case 0:
	case 1:
		out = ws[0]
	default:
		out = zerolog.MultiLevelWriter(ws...)
	}
	return FromWriter(out, opts.Level)
}

// FromWriter is New for a single caller-provided writer.
func FromWriter(w io.Writer, level string) Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return &zlogger{z: zerolog.New(w).Level(lvl).With().Timestamp().Logger()}
}

// NewNop discards everything.
func NewNop() Logger { return &zlogger{z: zerolog.Nop()} }

func (l *zlogger) Debug(msg string, kv ...any) { l.z.Debug().Fields(fields(kv)).Msg(msg) }
func (l *zlogger) Info(msg string, kv ...any)  { l.z.Info().Fields(fields(kv)).Msg(msg) }
func (l *zlogger) Warn(msg string, kv ...any)  { l.z.Warn().Fields(fields(kv)).Msg(msg) }
func (l *zlogger) Error(msg string, kv ...any) { l.z.Error().Fields(fields(kv)).Msg(msg) }

func (l *zlogger) With(kv ...any) Logger {
	return &zlogger{z: l.z.With().Fields(fields(kv)).Logger()}
}

func fields(kv []any) map[string]any {
	if len(kv) == 0 {
		return nil
	}
	m := make(map[string]any, len(kv)/2+1)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 >= len(kv) {
			m[key] = "(MISSING)"
			break
		}
		v := kv[i+1]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		m[key] = v
	}
	return m
}
