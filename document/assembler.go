package document

// Assembler is implemented by every query type an adapter can accept.
// Assemble produces the representation the adapter acts on: a Clauses
// list for *Query, the query itself for NativeQuery, or whatever shape a
// backend-specific query type chooses.
type Assembler interface {
	Assemble() any
}

// NativeQuery carries a statement already written in the backend's own
// query language, bypassing clause translation.
type NativeQuery struct {
	Statement string
	Args      []any
}

var _ Assembler = NativeQuery{}

// Assemble returns the native query unchanged
func (n NativeQuery) Assemble() any {
	return n
}
