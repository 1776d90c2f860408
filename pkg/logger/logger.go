// Package logger wraps zerolog with the application defaults and the HTTP
// request-logging middleware.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// Config holds logger configuration.
type Config struct {
	// Level sets the minimum log level (debug, info, warn, error).
	Level string
	// Format sets the output format (json, console).
	Format string
	// Output sets the output destination (defaults to stdout).
	Output io.Writer
}

var defaultLogger zerolog.Logger

func init() {
	defaultLogger = build(Config{Level: "info", Format: "json", Output: os.Stdout})
}

// Init replaces the default logger with one built from cfg.
func Init(cfg Config) {
	defaultLogger = build(cfg)
	zerolog.TimeFieldFormat = time.RFC3339
}

func build(cfg Config) zerolog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	var zl zerolog.Logger
	if cfg.Format == "console" {
		zl = zerolog.New(zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	} else {
		zl = zerolog.New(cfg.Output).With().Timestamp().Logger()
	}

	switch cfg.Level {
	case "debug":
		zl = zl.Level(zerolog.DebugLevel)
	case "warn":
		zl = zl.Level(zerolog.WarnLevel)
	case "error":
		zl = zl.Level(zerolog.ErrorLevel)
	default:
		zl = zl.Level(zerolog.InfoLevel)
	}
	return zl
}

func Debug() *zerolog.Event { return defaultLogger.Debug() }
func Info() *zerolog.Event  { return defaultLogger.Info() }
func Warn() *zerolog.Event  { return defaultLogger.Warn() }
func Error() *zerolog.Event { return defaultLogger.Error() }
func Fatal() *zerolog.Event { return defaultLogger.Fatal() }

// Audit logs a security-sensitive operation at info level with a distinct
// "audit" tag. Use this for auth events, key revocations, bucket deletions.
func Audit(action, actorID string, fields map[string]string) {
	event := defaultLogger.Info().
		Str("log_type", "audit").
		Str("action", action).
		Str("actor_id", actorID)
	for k, v := range fields {
		event = event.Str(k, v)
	}
	event.Msg("audit event")
}

// Middleware returns a Fiber middleware that logs every request.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		event := defaultLogger.Info()
		if err != nil {
			event = defaultLogger.Error().Err(err)
		}

		requestID := ""
		if rid, ok := c.Locals("request_id").(string); ok {
			requestID = rid
		}

		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Str("ip", c.IP()).
			Dur("latency", time.Since(start)).
			Str("request_id", requestID).
			Msg("HTTP request")

		return err
	}
}
