package document

import (
	"reflect"
	"strings"
)

// Kind identifies a clause. Well-known kinds receive type checks when
// they are added to a Query; any other lowercase name is an extension
// kind passed through untouched.
type Kind string

// Well-known clause kinds
const (
	KindSelect  Kind = "select"
	KindFrom    Kind = "from"
	KindWhere   Kind = "where"
	KindWhereID Kind = "whereid" // request element by ID
	KindLimit   Kind = "limit"
	KindOrder   Kind = "order"
)

// Boolean operators relating a where clause to the clauses before it.
const (
	OperatorAnd = "and"
	OperatorOr  = "or"
)

// DefaultDirection is used by Order when no direction is given.
const DefaultDirection = "asc"

// IsWellKnown reports whether k is one of the type-checked clause kinds
func (k Kind) IsWellKnown() bool {
	switch k {
	case KindSelect, KindFrom, KindWhere, KindWhereID, KindLimit, KindOrder:
		return true
	}
	return false
}

// String returns the clause kind as a string
func (k Kind) String() string {
	return string(k)
}

// Clause is a single unit of query intent.
//
// Payload shapes per kind:
//   - select:  string or []string
//   - from:    string
//   - where:   Condition
//   - whereid: scalar (string, bool, integer or float)
//   - limit:   int
//   - order:   Order
//   - others:  []any holding the declared arguments
type Clause struct {
	Kind    Kind `json:"kind"`
	Payload any  `json:"payload"`
}

// Condition is the payload of a where clause. Expr may contain ?
// placeholders bound from Value; Operator ("and"/"or") is left for the
// consuming adapter to interpret.
type Condition struct {
	Expr     string `json:"expr"`
	Value    any    `json:"value"`
	Operator string `json:"operator"`
}

// Order is the payload of an order clause. Key may be a field name, a
// column position or a list of either.
type Order struct {
	Key       any    `json:"key"`
	Direction string `json:"direction"`
}

// Fields returns the field names of a select clause. A string payload is
// split on commas. Returns nil for other kinds.
func (c Clause) Fields() []string {
	if c.Kind != KindSelect {
		return nil
	}
	switch v := c.Payload.(type) {
	case string:
		var fields []string
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				fields = append(fields, f)
			}
		}
		return fields
	case []string:
		return append([]string(nil), v...)
	}
	return nil
}

// Args returns the argument list of an extension clause, or nil when
// the payload is not an argument list.
func (c Clause) Args() []any {
	args, _ := c.Payload.([]any)
	return append([]any(nil), args...)
}

func (c Clause) clone() Clause {
	switch p := c.Payload.(type) {
	case Condition:
		p.Value = cloneValue(p.Value)
		c.Payload = p
	case Order:
		p.Key = cloneValue(p.Key)
		c.Payload = p
	default:
		c.Payload = cloneValue(p)
	}
	return c
}

// Clauses is the assembled form of a Query: its clauses in insertion order.
type Clauses []Clause

// OfKind returns the clauses of the given kind, in order.
func (cs Clauses) OfKind(kind Kind) Clauses {
	var out Clauses
	for _, c := range cs {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Last returns the last clause of the given kind.
func (cs Clauses) Last(kind Kind) (Clause, bool) {
	for i := len(cs) - 1; i >= 0; i-- {
		if cs[i].Kind == kind {
			return cs[i], true
		}
	}
	return Clause{}, false
}

// cloneValue deep-copies slices, arrays and maps, including those nested
// inside interface values, so snapshots handed out by a Query do not
// alias its internal state.
func cloneValue(v any) any {
	if v == nil {
		return nil
	}
	return deepCopy(reflect.ValueOf(v)).Interface()
}

func deepCopy(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return rv
		}
		cp := reflect.New(rv.Type()).Elem()
		cp.Set(deepCopy(rv.Elem()))
		return cp
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		cp := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := range rv.Len() {
			cp.Index(i).Set(deepCopy(rv.Index(i)))
		}
		return cp
	case reflect.Array:
		cp := reflect.New(rv.Type()).Elem()
		for i := range rv.Len() {
			cp.Index(i).Set(deepCopy(rv.Index(i)))
		}
		return cp
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		cp := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			cp.SetMapIndex(iter.Key(), deepCopy(iter.Value()))
		}
		return cp
	}
	return rv
}
