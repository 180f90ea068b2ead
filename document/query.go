package document

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/preslavrachev/cloudkit/core"
)

// Query is a generic, adapter-agnostic query. It aggregates clauses in
// call order and never interprets them; concrete adapters translate the
// assembled clause list into a native backend request.
//
// Builder methods that validate their input return the builder together
// with an error. A failed call leaves the clause list unchanged.
//
// A Query is not safe for concurrent use.
type Query struct {
	clauses []Clause
}

var _ Assembler = (*Query)(nil)

// NewQuery creates an empty Query
func NewQuery() *Query {
	return &Query{
		clauses: []Clause{},
	}
}

// Select adds a SELECT clause (fields to be selected). fields may be a
// string, a []string or a []any of strings. nil, "" and empty slices
// leave the query unchanged.
func (q *Query) Select(fields any) (*Query, error) {
	switch v := fields.(type) {
	case nil:
		return q, nil
	case string:
		if v == "" {
			return q, nil
		}
		q.add(KindSelect, v)
	case []string:
		if len(v) == 0 {
			return q, nil
		}
		q.add(KindSelect, append([]string(nil), v...))
	case []any:
		if len(v) == 0 {
			return q, nil
		}
		names := make([]string, 0, len(v))
		for i, f := range v {
			name, ok := f.(string)
			if !ok {
				return q, fmt.Errorf("%w: SELECT field %d must be a string, got %T", core.ErrInvalidArgument, i, f)
			}
			names = append(names, name)
		}
		q.add(KindSelect, names)
	default:
		return q, fmt.Errorf("%w: SELECT argument must be a string or a list of strings, got %T", core.ErrInvalidArgument, fields)
	}
	return q, nil
}

// From adds a FROM clause naming the source collection
func (q *Query) From(name any) (*Query, error) {
	s, ok := name.(string)
	if !ok {
		return q, fmt.Errorf("%w: FROM argument must be a string, got %T", core.ErrInvalidArgument, name)
	}
	q.add(KindFrom, s)
	return q, nil
}

// Where adds a condition combined with the previous ones by "and".
// value is substituted for the ? placeholders of cond by the adapter.
func (q *Query) Where(cond any, value any) (*Query, error) {
	return q.WhereOp(cond, value, OperatorAnd)
}

// OrWhere adds a condition combined with the previous ones by "or"
func (q *Query) OrWhere(cond any, value any) (*Query, error) {
	return q.WhereOp(cond, value, OperatorOr)
}

// WhereOp adds a condition with an explicit boolean operator. The
// operator is not checked; adapters decide what they accept.
func (q *Query) WhereOp(cond any, value any, op string) (*Query, error) {
	expr, ok := cond.(string)
	if !ok {
		return q, fmt.Errorf("%w: WHERE argument must be a string, got %T", core.ErrInvalidArgument, cond)
	}
	q.add(KindWhere, Condition{
		Expr:     expr,
		Value:    cloneValue(value),
		Operator: op,
	})
	return q, nil
}

// WhereID selects a record by its identifier, which must be a scalar
func (q *Query) WhereID(value any) (*Query, error) {
	if !isScalar(value) {
		return q, fmt.Errorf("%w: WHEREID argument must be a scalar, got %T", core.ErrInvalidArgument, value)
	}
	q.add(KindWhereID, value)
	return q, nil
}

// Limit adds a LIMIT clause (how many items to return). count must be
// exactly representable as an int.
func (q *Query) Limit(count any) (*Query, error) {
	n, ok := toInt(count)
	if !ok {
		return q, fmt.Errorf("%w: LIMIT argument must be an integer, got %v (%T)", core.ErrInvalidArgument, count, count)
	}
	q.add(KindLimit, n)
	return q, nil
}

// Order adds an ORDER clause: the field or fields to sort by and the
// direction, "asc" unless given. The direction is passed through as is.
func (q *Query) Order(key any, direction ...string) *Query {
	dir := DefaultDirection
	if len(direction) > 0 {
		dir = direction[0]
	}
	q.add(KindOrder, Order{
		Key:       cloneValue(key),
		Direction: dir,
	})
	return q
}

// Declare adds a generic clause. The name is case-folded and becomes the
// clause kind; args become its payload. Adapters that do not recognise
// the kind decide whether to ignore or reject it.
//
// Declaring a well-known kind goes through the corresponding typed
// method, so q.Declare("Limit", 5) behaves like q.Limit(5).
func (q *Query) Declare(name string, args ...any) (*Query, error) {
	kind := Kind(strings.ToLower(name))
	if kind == "" {
		return q, fmt.Errorf("%w: clause name must not be empty", core.ErrInvalidArgument)
	}

	switch kind {
	case KindSelect:
		if err := checkArity(kind, args, 1, 1); err != nil {
			return q, err
		}
		return q.Select(args[0])
	case KindFrom:
		if err := checkArity(kind, args, 1, 1); err != nil {
			return q, err
		}
		return q.From(args[0])
	case KindWhere:
		if err := checkArity(kind, args, 1, 3); err != nil {
			return q, err
		}
		return q.WhereOp(args[0], optArg(args, 1), stringArg(optArg(args, 2), OperatorAnd))
	case KindWhereID:
		if err := checkArity(kind, args, 1, 1); err != nil {
			return q, err
		}
		return q.WhereID(args[0])
	case KindLimit:
		if err := checkArity(kind, args, 1, 1); err != nil {
			return q, err
		}
		return q.Limit(args[0])
	case KindOrder:
		if err := checkArity(kind, args, 1, 2); err != nil {
			return q, err
		}
		return q.Order(args[0], stringArg(optArg(args, 1), DefaultDirection)), nil
	}

	payload := make([]any, len(args))
	for i, a := range args {
		payload[i] = cloneValue(a)
	}
	q.add(kind, payload)
	return q, nil
}

// Assemble returns the clause list; it is the representation every
// adapter receives from a Query.
func (q *Query) Assemble() any {
	return q.Clauses()
}

// Clauses returns a snapshot of the query clauses in insertion order.
// The snapshot does not alias the query.
func (q *Query) Clauses() Clauses {
	out := make(Clauses, len(q.clauses))
	for i, c := range q.clauses {
		out[i] = c.clone()
	}
	return out
}

// Len returns the number of clauses added so far
func (q *Query) Len() int {
	return len(q.clauses)
}

func (q *Query) add(kind Kind, payload any) {
	q.clauses = append(q.clauses, Clause{Kind: kind, Payload: payload})
}

func checkArity(kind Kind, args []any, lo, hi int) error {
	if len(args) < lo || len(args) > hi {
		if lo == hi {
			return fmt.Errorf("%w: %s expects %d argument(s), got %d", core.ErrInvalidArgument, strings.ToUpper(kind.String()), lo, len(args))
		}
		return fmt.Errorf("%w: %s expects %d to %d arguments, got %d", core.ErrInvalidArgument, strings.ToUpper(kind.String()), lo, hi, len(args))
	}
	return nil
}

func optArg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

// stringArg returns v as a string, or def when v is nil
func stringArg(v any, def string) string {
	switch s := v.(type) {
	case nil:
		return def
	case string:
		return s
	}
	return fmt.Sprint(v)
}

func isScalar(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// toInt converts integer kinds, integral floats and numeric strings to
// int, rejecting anything that would lose precision or overflow.
func toInt(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	switch s := v.(type) {
	case json.Number:
		return stringToInt(string(s))
	case string:
		return stringToInt(s)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i := rv.Int()
		if i < math.MinInt || i > math.MaxInt {
			return 0, false
		}
		return int(i), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt {
			return 0, false
		}
		return int(u), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return 0, false
		}
		if f < float64(math.MinInt) || f >= -float64(math.MinInt) {
			return 0, false
		}
		return int(f), true
	}
	return 0, false
}

func stringToInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 0); err == nil {
		return int(i), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return toInt(f)
}
