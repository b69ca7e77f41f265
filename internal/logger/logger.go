package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with application-specific methods
type Logger struct {
	zerolog.Logger
}

// New creates a new Logger instance writing to stdout
func New(level string, format string) *Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter creates a Logger writing to w
func NewWithWriter(w io.Writer, level string, format string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var logger zerolog.Logger

	if format == "text" || format == "console" {
		// Human-readable output for development
		output := zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
		logger = zerolog.New(output).With().Timestamp().Caller().Logger()
	} else {
		logger = zerolog.New(w).With().Timestamp().Caller().Logger()
	}

	return &Logger{Logger: logger}
}

// Nop returns a Logger that discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// WithRequestID returns a new logger with the request ID attached
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With().Str("request_id", requestID).Logger(),
	}
}

// WithUserID returns a new logger with the user ID attached
func (l *Logger) WithUserID(userID string) *Logger {
	return &Logger{
		Logger: l.With().Str("user_id", userID).Logger(),
	}
}

// WithComponent returns a new logger with the component name attached
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.With().Str("component", component).Logger(),
	}
}

// WithCampaign returns a new logger scoped to one campaign run
func (l *Logger) WithCampaign(campaignID, providerID string) *Logger {
	return &Logger{
		Logger: l.With().Str("campaign_id", campaignID).Str("provider_id", providerID).Logger(),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, statusCode int, duration time.Duration, clientIP string) {
	l.Info().
		Str("method", method).
		Str("path", path).
		Int("status", statusCode).
		Dur("duration", duration).
		Str("client_ip", clientIP).
		Msg("HTTP request")
}

// Delivery logs the outcome of one send within a campaign
func (l *Logger) Delivery(index, total int, recipient, messageID string, err error) {
	if err != nil {
		l.Warn().
			Err(err).
			Int("index", index+1).
			Int("total", total).
			Str("recipient", recipient).
			Msg("send failed")
		return
	}
	l.Info().
		Int("index", index+1).
		Int("total", total).
		Str("recipient", recipient).
		Str("message_id", messageID).
		Msg("email sent")
}

// AuditLog creates an audit log entry
func (l *Logger) AuditLog(userID, action, resourceType, resourceID string, metadata map[string]interface{}) {
	event := l.Info().
		Str("audit", "true").
		Str("user_id", userID).
		Str("action", action).
		Str("resource_type", resourceType).
		Str("resource_id", resourceID)

	if metadata != nil {
		event.Interface("metadata", metadata)
	}

	event.Msg("audit log")
}
