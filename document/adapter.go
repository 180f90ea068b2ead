package document

import (
	"context"
	"errors"
)

var (
	// ErrDocumentNotFound is returned when a fetch by id matches nothing
	ErrDocumentNotFound = errors.New("document not found")

	// ErrUnsupportedClause is returned by adapters running in strict mode
	// when a query carries a clause kind they do not understand.
	ErrUnsupportedClause = errors.New("unsupported clause")
)

// Document is a single record of a document service
type Document struct {
	ID     any            `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Get returns the value of a field
func (d Document) Get(field string) (any, bool) {
	v, ok := d.Fields[field]
	return v, ok
}

// Adapter defines the interface for document service backends. Adapters
// translate assembled queries into native requests.
type Adapter interface {
	// Select starts a new query for this adapter
	Select(fields any) (*Query, error)

	// Collection operations
	ListCollections(ctx context.Context) ([]string, error)

	// Document operations
	InsertDocument(ctx context.Context, collection string, doc Document) error
	FetchDocument(ctx context.Context, collection string, id any) (*Document, error)
	DeleteDocument(ctx context.Context, collection string, id any) error

	// Query runs q against collection. collection may be empty when q
	// names its source with a from clause.
	Query(ctx context.Context, collection string, q Assembler) ([]Document, error)
}
