package sql

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/preslavrachev/cloudkit/core"
	"github.com/preslavrachev/cloudkit/document"
)

// kindOffset is the extension clause for skipping rows: q.Declare("offset", n)
const kindOffset document.Kind = "offset"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// statement is the SQL under construction for a clause list
type statement struct {
	columns []string
	table   string
	where   string
	lastOp  string
	args    []any
	order   []string
	limit   *int
	offset  *int
}

// Compile translates q into SQL with ? placeholders and its arguments.
// collection names the table when q has no from clause. A NativeQuery is
// returned verbatim.
func (a *Adapter) Compile(collection string, q document.Assembler) (string, []any, error) {
	return a.compile(collection, q, false)
}

func (a *Adapter) compile(collection string, q document.Assembler, count bool) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("%w: query cannot be nil", core.ErrInvalidArgument)
	}

	switch rep := q.Assemble().(type) {
	case document.Clauses:
		return a.compileClauses(collection, rep, count)
	case document.NativeQuery:
		if count {
			return fmt.Sprintf("SELECT COUNT(*) FROM (%s)", rep.Statement), rep.Args, nil
		}
		return rep.Statement, rep.Args, nil
	default:
		return "", nil, fmt.Errorf("%w: unsupported query representation %T", core.ErrInvalidArgument, rep)
	}
}

func (a *Adapter) compileClauses(collection string, clauses document.Clauses, count bool) (string, []any, error) {
	st := &statement{}

	for _, c := range clauses {
		var err error
		switch c.Kind {
		case document.KindSelect:
			err = a.addColumns(st, c)
		case document.KindFrom:
			name, ok := c.Payload.(string)
			if !ok {
				return "", nil, malformed(c)
			}
			st.table, err = a.identifier(name)
		case document.KindWhere:
			cond, ok := c.Payload.(document.Condition)
			if !ok {
				return "", nil, malformed(c)
			}
			err = st.addCondition(cond)
		case document.KindWhereID:
			err = st.addCondition(document.Condition{
				Expr:     a.idColumn + " = ?",
				Value:    c.Payload,
				Operator: document.OperatorAnd,
			})
		case document.KindLimit:
			n, ok := c.Payload.(int)
			if !ok {
				return "", nil, malformed(c)
			}
			st.limit = &n
		case document.KindOrder:
			order, ok := c.Payload.(document.Order)
			if !ok {
				return "", nil, malformed(c)
			}
			err = a.addOrder(st, order)
		case kindOffset:
			n, ok := intArg(c.Args())
			if !ok {
				return "", nil, malformed(c)
			}
			st.offset = &n
		default:
			if a.strict {
				return "", nil, fmt.Errorf("%w: %s", document.ErrUnsupportedClause, c.Kind)
			}
			a.logger.LogSkippedClause(c.Kind.String())
		}
		if err != nil {
			return "", nil, err
		}
	}

	if st.table == "" {
		if collection == "" {
			return "", nil, fmt.Errorf("%w: no collection given and no FROM clause", core.ErrInvalidArgument)
		}
		table, err := a.identifier(collection)
		if err != nil {
			return "", nil, err
		}
		st.table = table
	}

	return st.build(count), st.args, nil
}

func (st *statement) build(count bool) string {
	var b strings.Builder

	b.WriteString("SELECT ")
	switch {
	case count:
		b.WriteString("COUNT(*)")
	case len(st.columns) == 0:
		b.WriteString("*")
	default:
		b.WriteString(strings.Join(st.columns, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(st.table)

	if st.where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(st.where)
	}
	if count {
		return b.String()
	}

	if len(st.order) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(st.order, ", "))
	}
	if st.limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *st.limit)
	} else if st.offset != nil {
		// SQLite only accepts OFFSET after a LIMIT
		b.WriteString(" LIMIT -1")
	}
	if st.offset != nil {
		fmt.Fprintf(&b, " OFFSET %d", *st.offset)
	}
	return b.String()
}

func (a *Adapter) addColumns(st *statement, c document.Clause) error {
	switch c.Payload.(type) {
	case string, []string:
	default:
		return malformed(c)
	}
	for _, f := range c.Fields() {
		if f == "*" {
			st.columns = append(st.columns, f)
			continue
		}
		col, err := a.identifier(f)
		if err != nil {
			return err
		}
		st.columns = append(st.columns, col)
	}
	return nil
}

// addCondition folds cond into the where expression left to right:
// a, b OR c, d AND ... renders as ((a AND b) OR c) AND d.
func (st *statement) addCondition(cond document.Condition) error {
	op := strings.ToUpper(strings.TrimSpace(cond.Operator))
	if op == "" {
		op = "AND"
	}
	if op != "AND" && op != "OR" {
		return fmt.Errorf("%w: unsupported boolean operator %q", core.ErrInvalidArgument, cond.Operator)
	}

	expr, args, err := bindCondition(cond.Expr, cond.Value)
	if err != nil {
		return err
	}

	switch {
	case st.where == "":
		st.where = "(" + expr + ")"
	case st.lastOp == "" || op == st.lastOp:
		st.where += " " + op + " (" + expr + ")"
		st.lastOp = op
	default:
		st.where = "(" + st.where + ") " + op + " (" + expr + ")"
		st.lastOp = op
	}
	st.args = append(st.args, args...)
	return nil
}

func (a *Adapter) addOrder(st *statement, order document.Order) error {
	dir, ok := core.ParseSortDirection(order.Direction)
	if !ok {
		return fmt.Errorf("%w: unsupported sort direction %q", core.ErrInvalidArgument, order.Direction)
	}

	var keys []any
	switch k := order.Key.(type) {
	case []string:
		for _, s := range k {
			keys = append(keys, s)
		}
	case []any:
		keys = k
	default:
		keys = []any{k}
	}

	for _, key := range keys {
		var term string
		switch k := key.(type) {
		case string:
			col, err := a.identifier(k)
			if err != nil {
				return err
			}
			term = col
		case int:
			term = strconv.Itoa(k)
		default:
			return fmt.Errorf("%w: unsupported sort key %v (%T)", core.ErrInvalidArgument, key, key)
		}
		st.order = append(st.order, term+" "+strings.ToUpper(dir.String()))
	}
	return nil
}

// identifier validates a table or column name and applies the adapter's
// naming convention. Dotted names are handled per segment.
func (a *Adapter) identifier(name string) (string, error) {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return "", fmt.Errorf("%w: invalid identifier %q", core.ErrInvalidArgument, name)
	}
	for i, p := range parts {
		if !identPattern.MatchString(p) {
			return "", fmt.Errorf("%w: invalid identifier %q", core.ErrInvalidArgument, name)
		}
		parts[i] = a.naming(p)
	}
	return strings.Join(parts, "."), nil
}

// bindCondition matches the value of a where clause to the ? placeholders
// of its expression. A list bound to a single placeholder expands into
// one placeholder per element, so "id IN ?" works with a slice.
func bindCondition(expr string, value any) (string, []any, error) {
	positions := placeholders(expr)

	if len(positions) == 0 {
		return expr, nil, nil
	}

	list, isList := asList(value)
	if !isList {
		if len(positions) != 1 {
			return "", nil, fmt.Errorf("%w: condition %q has %d placeholders but one value", core.ErrInvalidArgument, expr, len(positions))
		}
		return expr, []any{value}, nil
	}

	if len(positions) > 1 {
		if len(positions) != len(list) {
			return "", nil, fmt.Errorf("%w: condition %q has %d placeholders but %d values", core.ErrInvalidArgument, expr, len(positions), len(list))
		}
		return expr, list, nil
	}

	pos := positions[0]
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(list)), ", ")
	before := strings.TrimRight(expr[:pos], " ")
	after := strings.TrimLeft(expr[pos+1:], " ")
	if !strings.HasSuffix(before, "(") || !strings.HasPrefix(after, ")") {
		marks = "(" + marks + ")"
	}
	return expr[:pos] + marks + expr[pos+1:], list, nil
}

// placeholders returns the byte offsets of ? marks outside quoted strings
func placeholders(expr string) []int {
	var positions []int
	var quote byte
	for i := 0; i < len(expr); i++ {
		ch := expr[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '?':
			positions = append(positions, i)
		}
	}
	return positions
}

// asList unpacks slices and arrays other than []byte
func asList(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	list := make([]any, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}
	return list, true
}

// intArg returns the single non-negative integer argument of an
// extension clause
func intArg(args []any) (int, bool) {
	if len(args) != 1 {
		return 0, false
	}
	var n int
	switch v := args[0].(type) {
	case int:
		n = v
	case int64:
		if v > math.MaxInt {
			return 0, false
		}
		n = int(v)
	case uint:
		if v > math.MaxInt {
			return 0, false
		}
		n = int(v)
	case float64:
		if v != math.Trunc(v) || v < 0 || v >= math.MaxInt {
			return 0, false
		}
		n = int(v)
	default:
		return 0, false
	}
	return n, n >= 0
}

func malformed(c document.Clause) error {
	return fmt.Errorf("%w: malformed %s clause payload %T", core.ErrInvalidArgument, c.Kind, c.Payload)
}
