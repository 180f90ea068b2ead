package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	sqladapter "github.com/preslavrachev/cloudkit/adapters/sql"
	"github.com/preslavrachev/cloudkit/document"
)

const sampleSchema = `
CREATE TABLE IF NOT EXISTS departments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	location TEXT NOT NULL,
	budget INTEGER NOT NULL,
	manager_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	email TEXT UNIQUE NOT NULL,
	department_id INTEGER,
	role TEXT NOT NULL,
	active BOOLEAN DEFAULT 1,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (department_id) REFERENCES departments(id)
);

CREATE TABLE IF NOT EXISTS products (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	price REAL NOT NULL,
	category TEXT NOT NULL
);
`

type sampleCollection struct {
	name string
	docs []document.Document
}

var sampleData = []sampleCollection{
	{"departments", []document.Document{
		{ID: 1, Fields: map[string]any{"name": "Engineering", "location": "Sofia", "budget": 500000, "managerName": "Alice Johnson"}},
		{ID: 2, Fields: map[string]any{"name": "Marketing", "location": "Berlin", "budget": 200000, "managerName": "Bob Smith"}},
		{ID: 3, Fields: map[string]any{"name": "Sales", "location": "Lisbon", "budget": 300000, "managerName": "Carol Davis"}},
	}},
	{"users", []document.Document{
		{ID: 1, Fields: map[string]any{"name": "Alice Johnson", "email": "alice@example.com", "departmentId": 1, "role": "manager"}},
		{ID: 2, Fields: map[string]any{"name": "Bob Smith", "email": "bob@example.com", "departmentId": 2, "role": "manager"}},
		{ID: 3, Fields: map[string]any{"name": "Carol Davis", "email": "carol@example.com", "departmentId": 3, "role": "manager"}},
		{ID: 4, Fields: map[string]any{"name": "David Wilson", "email": "david@example.com", "departmentId": 1, "role": "engineer"}},
		{ID: 5, Fields: map[string]any{"name": "Eve Brown", "email": "eve@example.com", "departmentId": 1, "role": "engineer", "active": false}},
		{ID: 6, Fields: map[string]any{"name": "Frank Miller", "email": "frank@example.com", "departmentId": 3, "role": "sales"}},
	}},
	{"products", []document.Document{
		{ID: 1, Fields: map[string]any{"name": "Laptop", "price": 1299.99, "category": "electronics"}},
		{ID: 2, Fields: map[string]any{"name": "Headphones", "price": 199.5, "category": "electronics"}},
		{ID: 3, Fields: map[string]any{"name": "Go in Practice", "price": 39.9, "category": "books"}},
		{ID: 4, Fields: map[string]any{"name": "Rain Jacket", "price": 89, "category": "clothing"}},
	}},
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create and fill sample collections",
		Long: `Create the departments, users and products tables and insert sample
documents. Collections that already hold documents are left alone.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, cmd)
		},
	}
}

func runSeed(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	log := opts.logger()
	defer log.Sync()

	db, adapter, err := openSQL(opts, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "database unavailable", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if _, err := db.ExecContext(ctx, sampleSchema); err != nil {
		return WrapExitError(ExitFailure, "failed to create schema", err)
	}

	var rows [][]any
	for _, c := range sampleData {
		inserted, err := seedCollection(ctx, adapter, c)
		if err != nil {
			return WrapExitError(ExitFailure, "seeding failed", err)
		}
		rows = append(rows, []any{c.name, inserted})
	}
	return formatter.Table([]string{"collection", "inserted"}, rows)
}

func seedCollection(ctx context.Context, adapter *sqladapter.Adapter, c sampleCollection) (int, error) {
	existing, err := adapter.Count(ctx, c.name, document.NewQuery())
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}

	for _, doc := range c.docs {
		if err := adapter.InsertDocument(ctx, c.name, doc); err != nil {
			return 0, fmt.Errorf("%s: %w", c.name, err)
		}
	}
	return len(c.docs), nil
}
