package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	FormatPretty  = "pretty"
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Logger wraps zerolog.Logger with a service name and component scope.
type Logger struct {
	logger  zerolog.Logger
	service string
}

// New creates a logger from configuration. Invalid levels fall back to info.
func New(cfg *Config, serviceName string) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	out := cfg.Writer
	if out == nil {
		out = outputWriter(cfg.Output)
	}

	var zl zerolog.Logger
	switch strings.ToLower(cfg.Format) {
	case FormatConsole, FormatPretty:
		zl = newConsoleLogger(out, cfg.NoColor, serviceName)
	default:
		zl = zerolog.New(out)
	}
	zl = zl.Level(level)

	zc := zl.With()
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	if serviceName != "" {
		zc = zc.Str(FieldService, serviceName)
	}

	return &Logger{
		logger:  zc.Logger(),
		service: serviceName,
	}
}

// NewDefault creates a console logger at info level.
func NewDefault(serviceName string) *Logger {
	cfg := &Config{
		Level:     "info",
		Format:    FormatConsole,
		Output:    "stderr",
		Timestamp: true,
	}
	return New(cfg, serviceName)
}

// NewFromEnv creates a logger configured from LOG_* environment variables.
func NewFromEnv(serviceName string) *Logger {
	cfg := &Config{
		Level:     getEnvOrDefault("LOG_LEVEL", "info"),
		Format:    getEnvOrDefault("LOG_FORMAT", FormatConsole),
		Output:    getEnvOrDefault("LOG_OUTPUT", "stderr"),
		NoColor:   getEnvOrDefault("LOG_NO_COLOR", "false") == "true",
		Timestamp: getEnvOrDefault("LOG_TIMESTAMP", "true") == "true",
	}
	return New(cfg, serviceName)
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// WithContext returns a logger enriched with the request ID carried by ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if v := RequestIDFromContext(ctx); v != "" {
		return &Logger{logger: l.logger.With().Str(FieldRequestID, v).Logger(), service: l.service}
	}
	return l
}

// WithComponent returns a logger tagged with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		logger:  l.logger.With().Str(FieldComponent, name).Logger(),
		service: l.service,
	}
}

// WithFields returns a logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zc := l.logger.With()
	for k, v := range fields {
		zc = zc.Interface(k, v)
	}
	return &Logger{logger: zc.Logger(), service: l.service}
}

// WithError returns a logger with an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		logger:  l.logger.With().Err(err).Logger(),
		service: l.service,
	}
}

// GetLogger returns the underlying zerolog.Logger.
func (l *Logger) GetLogger() zerolog.Logger {
	return l.logger
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	event := l.logger.Debug()
	addFields(event, fields...)
	event.Msg(msg)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	event := l.logger.Info()
	addFields(event, fields...)
	event.Msg(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	event := l.logger.Warn()
	addFields(event, fields...)
	event.Msg(msg)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	event := l.logger.Error()
	addFields(event, fields...)
	event.Msg(msg)
}

// --- request id propagation ---

type contextKey string

const requestIDKey contextKey = "request_id"

// ContextWithRequestID stores a request ID on ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID stored on ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// --- internal helpers ---

func addFields(event *zerolog.Event, fields ...map[string]interface{}) {
	for _, fm := range fields {
		for k, v := range fm {
			event.Interface(k, v)
		}
	}
}

func outputWriter(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout
	case "discard":
		return io.Discard
	default:
		return os.Stderr
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func newConsoleLogger(out io.Writer, noColor bool, serviceName string) zerolog.Logger {
	tag := ""
	if len(serviceName) >= 3 {
		tag = strings.ToUpper(serviceName[:3])
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
		FormatLevel: func(i interface{}) string {
			lvl := strings.ToUpper(fmt.Sprintf("%s", i))
			short, color := levelStyle(lvl)
			if noColor {
				lvl = "[" + short + "]"
			} else {
				lvl = color + "[" + short + "]\033[0m"
			}
			if tag == "" {
				return lvl
			}
			if noColor {
				return fmt.Sprintf("[%s]%s", tag, lvl)
			}
			return fmt.Sprintf("\033[34m[%s]\033[0m%s", tag, lvl)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s:", i)
		},
	})
}

func levelStyle(lvl string) (short, color string) {
	switch lvl {
	case "TRACE":
		return "TRC", "\033[90m"
	case "DEBUG":
		return "DBG", "\033[36m"
	case "INFO":
		return "INF", "\033[32m"
	case "WARN":
		return "WRN", "\033[33m"
	case "ERROR":
		return "ERR", "\033[31m"
	default:
		return lvl, "\033[35m"
	}
}
