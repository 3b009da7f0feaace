package internal

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the JSON logger. Records go to out and, when a log file is
// configured, also to a size-rotated file. The returned closer releases the
// file and is never nil.
func newLogger(cfg ApplicationConfig, out io.Writer) (*slog.Logger, io.Closer) {
	var closer io.Closer = nopCloser{}
	w := out
	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogRotation.MaxSizeMB,
			MaxBackups: cfg.LogRotation.MaxBackups,
			MaxAge:     cfg.LogRotation.MaxAgeDays,
			Compress:   cfg.LogRotation.Compress,
		}
		w = io.MultiWriter(out, file)
		closer = file
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
