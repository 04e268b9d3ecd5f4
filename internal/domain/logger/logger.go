package logger

import (
	"errors"
	"log/slog"
	"time"

	"github.com/countrycache/countrycache/internal/domain/countries"
)

// QueryLogger times one store operation and reports it under the "db" log type.
type QueryLogger struct {
	Operation string
	Entity    string
	StartTime time.Time
}

func NewQueryLogger(operation, entity string) *QueryLogger {
	return &QueryLogger{
		Operation: operation,
		Entity:    entity,
		StartTime: time.Now(),
	}
}

// Log records the outcome. A missing row is an expected result, not a failure.
func (l *QueryLogger) Log(err error, rowsAffected int64) {
	took := time.Since(l.StartTime)

	if err != nil && !errors.Is(err, countries.ErrNotFound) {
		slog.Error("Query failed",
			slog.String("type", "db"),
			slog.String("operation", l.Operation),
			slog.String("entity", l.Entity),
			slog.Duration("took", took),
			slog.Any("error", err),
		)
		return
	}

	slog.Debug("Query executed",
		slog.String("type", "db"),
		slog.String("operation", l.Operation),
		slog.String("entity", l.Entity),
		slog.Duration("took", took),
		slog.Int64("affected_rows", rowsAffected),
	)
}
