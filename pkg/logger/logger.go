package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// Init initializes the global slog logger writing JSON to writer.
func Init(writer io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(newHandler(writer, level)))
}

// InitWithFile behaves like Init and additionally fans every record out to the
// file at path. The returned closer releases the file.
func InitWithFile(writer io.Writer, level slog.Level, path string) (io.Closer, error) {
	if path == "" {
		Init(writer, level)
		return io.NopCloser(nil), nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	slog.SetDefault(slog.New(slogmulti.Fanout(
		newHandler(writer, level),
		newHandler(f, level),
	)))
	return f, nil
}

// ParseLevel maps a level name onto a slog level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newHandler(writer io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				a.Key = "timestamp"
			case slog.LevelKey:
				a.Key = "level"
			case slog.MessageKey:
				a.Key = "message"
			}
			return a
		},
	})
}
