package log

import (
	"context"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// IntoContext returns a copy of ctx carrying logger.
func IntoContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// EchoMiddleware stores logger in the request context and logs each request
// when it completes.
func EchoMiddleware(logger *Logger) echo.MiddlewareFunc {
	sl := NewStructuredLogger(logger)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			reqLogger := logger
			if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
				reqLogger = logger.With(FieldRequestID, id)
			}
			c.SetRequest(req.WithContext(IntoContext(req.Context(), reqLogger)))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			sl.LogHTTPEnd(req.Context(), req.Method, c.Path(), c.Response().Status, time.Since(start).Milliseconds(), c.RealIP())
			return nil
		}
	}
}

// StructuredLogger provides structured logging methods with context awareness
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogHTTPEnd logs the completion of an HTTP request
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, method, path string, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = slog.LevelWarn
	} else if statusCode >= 500 {
		level = slog.LevelError
	}

	fields := NewFields().
		WithHTTPRequest(method, path).
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP).
		WithComponent(ComponentGateway)

	sl.logger.Logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

// LogEntryChanged logs a committed create, update or delete.
func (sl *StructuredLogger) LogEntryChanged(ctx context.Context, op, owner, kind string, id, amountCents int64, category, subcategory string) {
	fields := NewFields().
		WithOwner(owner).
		WithEntry(kind, id, amountCents, category, subcategory).
		WithOperation(op).
		WithComponent(ComponentEngine)

	sl.logger.Logger.InfoContext(ctx, "Entry changed", fields.ToSlice()...)
}

// LogFlowFailed logs a flow that ended in a failure result.
func (sl *StructuredLogger) LogFlowFailed(ctx context.Context, owner, flow, state, reason string, err error) {
	fields := NewFields().
		WithOwner(owner).
		WithFlow(flow, state).
		WithError(err).
		WithComponent(ComponentEngine)
	fields[FieldReason] = reason

	sl.logger.Logger.WarnContext(ctx, "Flow failed", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation).
		WithComponent(component)

	sl.logger.Logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}
