// Package sql implements a document service on top of database/sql.
// Collections are tables, documents are rows. Statements are written in
// the SQLite dialect.
package sql

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"go.uber.org/zap"

	"github.com/preslavrachev/cloudkit/core"
	"github.com/preslavrachev/cloudkit/document"
)

// DefaultIDColumn is the primary key column used for whereid clauses
const DefaultIDColumn = "id"

// Adapter implements the document.Adapter interface using pure sql.DB
type Adapter struct {
	db       *sql.DB
	logger   *SQLLogger
	idColumn string
	strict   bool
	naming   func(string) string
}

var _ document.Adapter = (*Adapter)(nil)

// New creates a new SQL adapter
func New(db *sql.DB) *Adapter {
	return NewWithLogger(db, nil, false)
}

// NewWithDebug creates a new SQL adapter with debug logging enabled
func NewWithDebug(db *sql.DB, debugEnabled bool) *Adapter {
	log, err := zap.NewDevelopment()
	if err != nil {
		log = zap.NewNop()
	}
	return NewWithLogger(db, log, debugEnabled)
}

// NewWithLogger creates a new SQL adapter logging through log
func NewWithLogger(db *sql.DB, log *zap.Logger, debugEnabled bool) *Adapter {
	return &Adapter{
		db:       db,
		logger:   NewSQLLogger(log, debugEnabled),
		idColumn: DefaultIDColumn,
		naming:   strcase.ToSnake,
	}
}

// SetDebugEnabled enables or disables SQL debug logging
func (a *Adapter) SetDebugEnabled(enabled bool) {
	a.logger.SetEnabled(enabled)
}

// SetStrict makes queries carrying unknown clause kinds fail with
// document.ErrUnsupportedClause instead of skipping those clauses.
func (a *Adapter) SetStrict(strict bool) {
	a.strict = strict
}

// SetIDColumn changes the primary key column
func (a *Adapter) SetIDColumn(column string) error {
	if !identPattern.MatchString(column) {
		return fmt.Errorf("%w: invalid id column %q", core.ErrInvalidArgument, column)
	}
	a.idColumn = column
	return nil
}

// SetNaming sets the function mapping collection and field names to table
// and column names. nil keeps names as given. The default is snake_case.
func (a *Adapter) SetNaming(naming func(string) string) {
	if naming == nil {
		naming = func(s string) string { return s }
	}
	a.naming = naming
}

// loggedQueryContext wraps QueryContext with logging
func (a *Adapter) loggedQueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := a.db.QueryContext(ctx, query, args...)
	duration := time.Since(start)

	if err != nil {
		a.logger.LogError(query, args, duration, err)
		return nil, err
	}

	// We'll log the row count after scanning in the calling function
	return rows, nil
}

// loggedExecContext wraps ExecContext with logging
func (a *Adapter) loggedExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := a.db.ExecContext(ctx, query, args...)
	duration := time.Since(start)

	if err != nil {
		a.logger.LogError(query, args, duration, err)
		return nil, err
	}

	a.logger.LogExec(query, args, duration, result)
	return result, nil
}

// Select starts a new query
func (a *Adapter) Select(fields any) (*document.Query, error) {
	return document.NewQuery().Select(fields)
}

// ListCollections returns the user tables of the database
func (a *Adapter) ListCollections(ctx context.Context) ([]string, error) {
	queryStr := "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"

	start := time.Now()
	rows, err := a.loggedQueryContext(ctx, queryStr)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	a.logger.LogQuery(queryStr, nil, time.Since(start), len(names))
	return names, nil
}

// Query runs q and returns the matching rows as documents
func (a *Adapter) Query(ctx context.Context, collection string, q document.Assembler) ([]document.Document, error) {
	queryStr, args, err := a.Compile(collection, q)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := a.loggedQueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	docs, err := a.scanDocuments(rows)
	if err != nil {
		return nil, err
	}

	a.logger.LogQuery(queryStr, args, time.Since(start), len(docs))
	return docs, nil
}

// Count returns the number of rows matching q. Ordering and pagination
// clauses are ignored.
func (a *Adapter) Count(ctx context.Context, collection string, q document.Assembler) (int64, error) {
	queryStr, args, err := a.compile(collection, q, true)
	if err != nil {
		return 0, err
	}

	var count int64
	start := time.Now()
	err = a.db.QueryRowContext(ctx, queryStr, args...).Scan(&count)
	duration := time.Since(start)
	if err != nil {
		a.logger.LogError(queryStr, args, duration, err)
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	a.logger.LogQuery(queryStr, args, duration, 1)

	return count, nil
}

// FetchDocument retrieves a single document by its id
func (a *Adapter) FetchDocument(ctx context.Context, collection string, id any) (*document.Document, error) {
	q, err := document.NewQuery().From(collection)
	if err != nil {
		return nil, err
	}
	if _, err := q.WhereID(id); err != nil {
		return nil, err
	}
	if _, err := q.Limit(1); err != nil {
		return nil, err
	}

	docs, err := a.Query(ctx, "", q)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %v in %s", document.ErrDocumentNotFound, id, collection)
	}
	return &docs[0], nil
}

// InsertDocument inserts doc as a new row. A non-nil doc.ID is written
// to the id column.
func (a *Adapter) InsertDocument(ctx context.Context, collection string, doc document.Document) error {
	table, err := a.identifier(collection)
	if err != nil {
		return err
	}

	values := make(map[string]any, len(doc.Fields)+1)
	for field, value := range doc.Fields {
		col, err := a.identifier(field)
		if err != nil {
			return err
		}
		values[col] = value
	}
	if doc.ID != nil {
		values[a.idColumn] = doc.ID
	}
	if len(values) == 0 {
		return fmt.Errorf("%w: document has no fields", core.ErrInvalidArgument)
	}

	columns := make([]string, 0, len(values))
	for col := range values {
		columns = append(columns, col)
	}
	slices.Sort(columns)

	args := make([]any, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		args[i] = values[col]
		placeholders[i] = "?"
	}

	queryStr := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	if _, err := a.loggedExecContext(ctx, queryStr, args...); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// DeleteDocument deletes a document by id
func (a *Adapter) DeleteDocument(ctx context.Context, collection string, id any) error {
	table, err := a.identifier(collection)
	if err != nil {
		return err
	}

	queryStr := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, a.idColumn)

	result, err := a.loggedExecContext(ctx, queryStr, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %v in %s", document.ErrDocumentNotFound, id, collection)
	}
	return nil
}

// scanDocuments turns every row into a document keyed by column name
func (a *Adapter) scanDocuments(rows *sql.Rows) ([]document.Document, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	docs := []document.Document{}
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		fields := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				fields[col] = string(b)
				continue
			}
			fields[col] = values[i]
		}

		docs = append(docs, document.Document{
			ID:     fields[a.idColumn],
			Fields: fields,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return docs, nil
}
