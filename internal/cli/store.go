package cli

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	sqladapter "github.com/preslavrachev/cloudkit/adapters/sql"
)

// openSQL opens the configured SQLite database and wraps it in an
// adapter. The caller closes the returned database.
func openSQL(opts *RootOptions, log *zap.Logger) (*sql.DB, *sqladapter.Adapter, error) {
	db, err := sql.Open("sqlite3", opts.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database %s: %w", opts.Database, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to open database %s: %w", opts.Database, err)
	}

	adapter := sqladapter.NewWithLogger(db, log, opts.Verbose)
	adapter.SetStrict(opts.Strict)
	return db, adapter, nil
}
