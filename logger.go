package compositor

import (
	"log/slog"

	"github.com/gogpu/compositor/internal/logging"
	"github.com/gogpu/compositor/overlay"
	"github.com/gogpu/compositor/quad"
	"github.com/gogpu/compositor/resource"
	"github.com/gogpu/compositor/texture"
	"github.com/gogpu/compositor/video"
)

var logger logging.Holder

// SetLogger configures the logger for the compositor and all its
// sub-packages. By default nothing is logged. Pass nil to restore the
// silent default.
//
// SetLogger is safe for concurrent use.
//
// Log levels used by the compositor:
//   - [slog.LevelDebug]: per-frame decisions (overlay rejections, pool hits)
//   - [slog.LevelInfo]: lifecycle events (context created, context lost)
//   - [slog.LevelWarn]: refused operations (resource still in use)
//
// Example:
//
//	compositor.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logger.Set(l)
	l = logger.Get()
	resource.SetLogger(l)
	texture.SetLogger(l)
	video.SetLogger(l)
	overlay.SetLogger(l)
	quad.SetLogger(l)
}

// Logger returns the current logger. It is never nil.
func Logger() *slog.Logger { return logger.Get() }

func slogger() *slog.Logger { return logger.Get() }
