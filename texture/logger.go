package texture

import (
	"log/slog"

	"github.com/gogpu/compositor/internal/logging"
)

var logger logging.Holder

// SetLogger configures the logger for the texture package.
// Pass nil to disable logging.
func SetLogger(l *slog.Logger) { logger.Set(l) }

func slogger() *slog.Logger { return logger.Get() }
