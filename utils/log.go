package utils

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds the zerolog logger shared by the pool and the gnark solver.
// An unknown level falls back to info.
func NewLogger(w io.Writer, level string) zerolog.Logger {
	if w == nil {
		w = os.Stdout
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
