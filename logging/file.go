package logging

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

type FileOptions struct {
	Path       string
	MaxSizeMb  int
	MaxBackups int
}

// NewFileHandler writes JSON records to a size rotated file. Close the returned
// writer on shutdown.
func NewFileHandler(opts FileOptions, level slog.Leveler) (*slog.JSONHandler, io.Closer) {
	w := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMb,
		MaxBackups: opts.MaxBackups,
		Compress:   true,
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}), w
}
