package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName is attached to every log line so shipped logs can be told apart.
const ServiceName = "placement-backend"

// Setup initializes the global zerolog logger.
//   - level: trace, debug, info, warn, error, fatal or panic; unknown means info
//   - format: "pretty" for a console writer, anything else for JSON
//
// Caller information is only recorded at debug level and below.
func Setup(level, format string) zerolog.Logger {
	var writer io.Writer = os.Stdout
	if format == "pretty" {
		writer = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	ctx := zerolog.New(writer).
		With().
		Timestamp().
		Str("service", ServiceName)
	if lvl <= zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}
