package logger

import (
	"log"
	"log/slog"
)

// New returns a stdlib-style logger for bootstrap code that runs before the
// application logger exists. Records go through the current slog default
// handler at warn level, tagged with the component.
func New(component string) *log.Logger {
	return slog.NewLogLogger(slog.Default().With("component", component).Handler(), slog.LevelWarn)
}
