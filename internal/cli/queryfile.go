package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/preslavrachev/cloudkit/document"
)

// QueryFile is the YAML form of a query.
//
//	from: users
//	select: [name, email]
//	where:
//	  - cond: "age > ?"
//	    value: 30
//	  - cond: "name = ?"
//	    value: Alice
//	    op: or
//	order:
//	  - key: name
//	    direction: desc
//	limit: 10
//	extensions:
//	  - name: offset
//	    args: [20]
//
// A native section replaces all clauses with a backend statement.
type QueryFile struct {
	From       string          `yaml:"from,omitempty"`
	Select     any             `yaml:"select,omitempty"`
	Where      []WhereStep     `yaml:"where,omitempty"`
	WhereID    any             `yaml:"whereid,omitempty"`
	Order      []OrderStep     `yaml:"order,omitempty"`
	Limit      any             `yaml:"limit,omitempty"`
	Extensions []ExtensionStep `yaml:"extensions,omitempty"`
	Native     *NativeStep     `yaml:"native,omitempty"`
}

// WhereStep is a single where condition
type WhereStep struct {
	Cond  string `yaml:"cond"`
	Value any    `yaml:"value"`
	Op    string `yaml:"op,omitempty"`
}

// OrderStep is a single ordering key
type OrderStep struct {
	Key       any    `yaml:"key"`
	Direction string `yaml:"direction,omitempty"`
}

// ExtensionStep declares a clause outside the well-known set
type ExtensionStep struct {
	Name string `yaml:"name"`
	Args []any  `yaml:"args,omitempty"`
}

// NativeStep is a statement passed to the backend untouched
type NativeStep struct {
	Statement string `yaml:"statement"`
	Args      []any  `yaml:"args,omitempty"`
}

// LoadQueryFile reads and parses a query file. Unknown fields are
// rejected.
func LoadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	return ParseQueryFile(data)
}

// ParseQueryFile parses a query definition
func ParseQueryFile(data []byte) (*QueryFile, error) {
	var qf QueryFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&qf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &qf, nil
}

// HasLimit reports whether the file sets a limit, directly or through
// an extension
func (qf *QueryFile) HasLimit() bool {
	if qf.Limit != nil {
		return true
	}
	for _, ext := range qf.Extensions {
		if strings.EqualFold(ext.Name, document.KindLimit.String()) {
			return true
		}
	}
	return false
}

// Build turns the file into an assembler. Clauses are added in the
// order from, select, where, whereid, order, limit, extensions.
func (qf *QueryFile) Build() (document.Assembler, error) {
	if qf.Native != nil {
		if qf.hasClauses() {
			return nil, errors.New("native statements cannot be combined with clauses")
		}
		if qf.Native.Statement == "" {
			return nil, errors.New("native statement is empty")
		}
		return document.NativeQuery{Statement: qf.Native.Statement, Args: qf.Native.Args}, nil
	}

	q := document.NewQuery()
	if qf.From != "" {
		if _, err := q.From(qf.From); err != nil {
			return nil, fmt.Errorf("from: %w", err)
		}
	}
	if _, err := q.Select(qf.Select); err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	for i, w := range qf.Where {
		op := w.Op
		if op == "" {
			op = document.OperatorAnd
		}
		if _, err := q.WhereOp(w.Cond, w.Value, op); err != nil {
			return nil, fmt.Errorf("where[%d]: %w", i, err)
		}
	}
	if qf.WhereID != nil {
		if _, err := q.WhereID(qf.WhereID); err != nil {
			return nil, fmt.Errorf("whereid: %w", err)
		}
	}
	for _, o := range qf.Order {
		if o.Direction == "" {
			q.Order(o.Key)
			continue
		}
		q.Order(o.Key, o.Direction)
	}
	if qf.Limit != nil {
		if _, err := q.Limit(qf.Limit); err != nil {
			return nil, fmt.Errorf("limit: %w", err)
		}
	}
	for i, ext := range qf.Extensions {
		if _, err := q.Declare(ext.Name, ext.Args...); err != nil {
			return nil, fmt.Errorf("extensions[%d]: %w", i, err)
		}
	}
	return q, nil
}

func (qf *QueryFile) hasClauses() bool {
	return qf.From != "" || qf.Select != nil || len(qf.Where) > 0 || qf.WhereID != nil ||
		len(qf.Order) > 0 || qf.Limit != nil || len(qf.Extensions) > 0
}
