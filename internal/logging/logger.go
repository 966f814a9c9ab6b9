package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the log file created under the configured log directory.
const FileName = "collectorkit.log"

// New initializes a JSON logger that writes to out and, when logDir is
// writable, to logDir/FileName as well. The returned closer releases the file.
func New(out io.Writer, logDir string, debug bool) (*slog.Logger, io.Closer) {
	var logWriter = out
	var closer io.Closer = nopCloser{}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if logDir != "" {
		logPath := filepath.Join(logDir, FileName)
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			slog.New(slog.NewJSONHandler(out, handlerOpts)).
				Warn("log file unavailable, continuing with stdout only", "error", err, "path", logPath)
		} else {
			logWriter = io.MultiWriter(out, f)
			closer = f
		}
	}

	return slog.New(slog.NewJSONHandler(logWriter, handlerOpts)), closer
}

// LogEvent records message at the named level: debug, info, warning or
// error. Unknown levels log at info.
func LogEvent(logger *slog.Logger, message, level string, args ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), ParseLevel(level), message, args...)
}

// ParseLevel maps a level name onto slog.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
