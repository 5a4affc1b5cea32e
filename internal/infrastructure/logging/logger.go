package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/gray-logic-hw/internal/infrastructure/config"
)

// serviceName tags every log entry emitted by this process.
const serviceName = "graylogic-hw"

// Logger wraps slog.Logger for the hardware layer.
//
// The wrapper exists so library packages (channel, manager, the exporters)
// can depend on their own four-method Logger interfaces while the binary
// owns handler construction; *Logger satisfies all of them.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from configuration.
//
// Parameters:
//   - cfg: Logging configuration from config.yaml
//   - version: Build version stamped on every entry
//
// Returns:
//   - *Logger: Configured logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	handler := newHandler(cfg).WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(handler)}
}

// newHandler picks the slog handler for the configured format, output and
// level. JSON to stdout is the default when the config names neither.
func newHandler(cfg config.LoggingConfig) slog.Handler {
	var output io.Writer = os.Stdout
	if strings.ToLower(cfg.Output) == "stderr" {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.ToLower(cfg.Format) == "text" {
		return slog.NewTextHandler(output, opts)
	}
	return slog.NewJSONHandler(output, opts)
}

// parseLevel converts a config level string to slog.Level. Unrecognised
// values fall back to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// With returns a child Logger carrying additional default attributes.
//
// Example:
//
//	mqttLogger := logger.With("component", "mqtt")
//	mqttLogger.Info("connected") // Includes component=mqtt
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns the pre-configuration logger used during early startup,
// before config.Load has run: JSON to stdout at info level.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
