package log

import (
	"context"
	"log/slog"
	"net/http"
)

// StructuredLogger writes the fixed-shape records for request and
// transaction events.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// from prefers the request logger stored in ctx so records carry its
// request and user ids.
func (sl *StructuredLogger) from(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return sl.logger
}

// levelFor maps a response status to the severity of its completion record.
func levelFor(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

func requestFields(r *http.Request, clientIP string) Fields {
	return Fields{
		FieldMethod, r.Method,
		FieldPath, r.URL.Path,
		FieldQuery, r.URL.RawQuery,
		FieldClientIP, clientIP,
	}
}

// LogHTTPStart logs the start of an HTTP request
func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	f := requestFields(r, clientIP).Add(FieldUserAgent, r.UserAgent())
	sl.from(ctx).InfoContext(ctx, "HTTP request started", f...)
}

// LogHTTPEnd logs completion at a level derived from the status code.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	f := requestFields(r, clientIP).
		Add(FieldStatusCode, statusCode).
		Add(FieldDuration, durationMs)
	sl.from(ctx).Log(ctx, levelFor(statusCode), "HTTP request completed", f...)
}

// LogTransactionSaved logs a successful create or update.
func (sl *StructuredLogger) LogTransactionSaved(ctx context.Context, op, id, name string, amountCents int64, txType, category string) {
	f := Fields{}.Op(op).Transaction(id, name, amountCents, txType, category)
	sl.from(ctx).InfoContext(ctx, "Transaction saved", f...)
}

func (sl *StructuredLogger) LogTransactionDeleted(ctx context.Context, id string) {
	sl.from(ctx).InfoContext(ctx, "Transaction deleted", Fields{}.Op(OpDelete).Add(FieldTransactionID, id)...)
}
