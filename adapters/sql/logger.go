package sql

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SQLLogger provides GORM-style SQL debug logging on top of zap
type SQLLogger struct {
	enabled bool
	log     *zap.Logger
	mu      sync.RWMutex
}

// NewSQLLogger creates a new SQL logger. A nil zap logger discards output.
func NewSQLLogger(log *zap.Logger, enabled bool) *SQLLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &SQLLogger{
		enabled: enabled,
		log:     log.Named("sql"),
	}
}

// IsEnabled returns whether SQL logging is enabled
func (l *SQLLogger) IsEnabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.enabled
}

// SetEnabled enables or disables SQL logging
func (l *SQLLogger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// LogQuery logs a SELECT query with execution time and row count
func (l *SQLLogger) LogQuery(query string, args []any, duration time.Duration, rowCount int) {
	if !l.IsEnabled() {
		return
	}

	l.log.Debug(l.formatQuery(query),
		zap.Duration("duration", duration),
		zap.Int("rows", rowCount),
		zap.String("args", l.formatArgs(args)))
}

// LogExec logs an INSERT/UPDATE/DELETE query with execution time and affected rows
func (l *SQLLogger) LogExec(query string, args []any, duration time.Duration, result sql.Result) {
	if !l.IsEnabled() {
		return
	}

	fields := []zap.Field{
		zap.Duration("duration", duration),
		zap.String("args", l.formatArgs(args)),
	}
	if result != nil {
		if affected, err := result.RowsAffected(); err == nil {
			fields = append(fields, zap.Int64("rows", affected))
		}
	}

	l.log.Debug(l.formatQuery(query), fields...)
}

// LogError logs a query that resulted in an error
func (l *SQLLogger) LogError(query string, args []any, duration time.Duration, err error) {
	if !l.IsEnabled() {
		return
	}

	l.log.Error(l.formatQuery(query),
		zap.Duration("duration", duration),
		zap.String("args", l.formatArgs(args)),
		zap.Error(err))
}

// LogSkippedClause records a clause kind the adapter does not translate
func (l *SQLLogger) LogSkippedClause(kind string) {
	if !l.IsEnabled() {
		return
	}

	l.log.Debug("skipping unsupported clause", zap.String("kind", kind))
}

// formatQuery cleans up the SQL query for better readability
func (l *SQLLogger) formatQuery(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

// formatArgs formats the query arguments for logging
func (l *SQLLogger) formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}

	var formatted []string
	for _, arg := range args {
		switch v := arg.(type) {
		case string:
			formatted = append(formatted, fmt.Sprintf(`"%s"`, v))
		case nil:
			formatted = append(formatted, "NULL")
		default:
			formatted = append(formatted, fmt.Sprintf("%v", v))
		}
	}

	return fmt.Sprintf("[%s]", strings.Join(formatted, ", "))
}
