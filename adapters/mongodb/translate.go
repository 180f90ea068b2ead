package mongodb

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/preslavrachev/cloudkit/adapters/internal/condition"
	"github.com/preslavrachev/cloudkit/core"
	"github.com/preslavrachev/cloudkit/document"
)

// Extension clause kinds understood by this adapter
const (
	KindSkip   document.Kind = "skip"
	KindOffset document.Kind = "offset"
)

// FindSpec is a translated query ready for Collection.Find
type FindSpec struct {
	Collection string
	Filter     bson.D
	Projection bson.D
	Sort       bson.D
	Limit      *int64
	Skip       *int64
}

// Options returns the find options for the translated query
func (s *FindSpec) Options() *options.FindOptionsBuilder {
	opts := options.Find()
	if len(s.Projection) > 0 {
		opts.SetProjection(s.Projection)
	}
	if len(s.Sort) > 0 {
		opts.SetSort(s.Sort)
	}
	if s.Limit != nil {
		opts.SetLimit(*s.Limit)
	}
	if s.Skip != nil {
		opts.SetSkip(*s.Skip)
	}
	return opts
}

// Translate converts q into a FindSpec. collection is used when q has no
// from clause. A NativeQuery statement is parsed as an extended JSON
// filter document.
func (a *Adapter) Translate(collection string, q document.Assembler) (*FindSpec, error) {
	if q == nil {
		return nil, fmt.Errorf("%w: query cannot be nil", core.ErrInvalidArgument)
	}

	var spec *FindSpec
	switch rep := q.Assemble().(type) {
	case document.Clauses:
		var err error
		if spec, err = a.translateClauses(rep); err != nil {
			return nil, err
		}
	case document.NativeQuery:
		var filter bson.D
		if err := bson.UnmarshalExtJSON([]byte(rep.Statement), false, &filter); err != nil {
			return nil, fmt.Errorf("%w: invalid native filter: %v", core.ErrInvalidArgument, err)
		}
		spec = &FindSpec{Filter: filter}
	default:
		return nil, fmt.Errorf("%w: unsupported query representation %T", core.ErrInvalidArgument, rep)
	}

	if spec.Collection == "" {
		spec.Collection = collection
	}
	if spec.Collection == "" {
		return nil, fmt.Errorf("%w: no collection given and no FROM clause", core.ErrInvalidArgument)
	}
	if spec.Filter == nil {
		spec.Filter = bson.D{}
	}
	return spec, nil
}

func (a *Adapter) translateClauses(clauses document.Clauses) (*FindSpec, error) {
	spec := &FindSpec{}
	f := &filterBuilder{}

	for _, c := range clauses {
		switch c.Kind {
		case document.KindSelect:
			for _, field := range c.Fields() {
				spec.Projection = append(spec.Projection, bson.E{Key: field, Value: 1})
			}
		case document.KindFrom:
			name, ok := c.Payload.(string)
			if !ok {
				return nil, malformed(c)
			}
			spec.Collection = name
		case document.KindWhere:
			cond, ok := c.Payload.(document.Condition)
			if !ok {
				return nil, malformed(c)
			}
			term, err := conditionFilter(cond)
			if err != nil {
				return nil, err
			}
			if err := f.add(cond.Operator, term); err != nil {
				return nil, err
			}
		case document.KindWhereID:
			if err := f.add(document.OperatorAnd, bson.D{{Key: "_id", Value: documentID(c.Payload)}}); err != nil {
				return nil, err
			}
		case document.KindLimit:
			n, ok := c.Payload.(int)
			if !ok {
				return nil, malformed(c)
			}
			limit := int64(n)
			spec.Limit = &limit
		case document.KindOrder:
			order, ok := c.Payload.(document.Order)
			if !ok {
				return nil, malformed(c)
			}
			sort, err := sortFields(order)
			if err != nil {
				return nil, err
			}
			spec.Sort = append(spec.Sort, sort...)
		case KindSkip, KindOffset:
			n, ok := int64Arg(c.Args())
			if !ok {
				return nil, malformed(c)
			}
			spec.Skip = &n
		default:
			if a.strict {
				return nil, fmt.Errorf("%w: %s", document.ErrUnsupportedClause, c.Kind)
			}
			a.log.Debug("skipping unsupported clause", zapKind(c.Kind))
		}
	}

	spec.Filter = f.filter
	return spec, nil
}

// filterBuilder folds where terms left to right into $and / $or
// documents, flattening runs of the same operator.
type filterBuilder struct {
	filter bson.D
	lastOp string
}

func (f *filterBuilder) add(operator string, term bson.D) error {
	var key string
	switch strings.ToLower(strings.TrimSpace(operator)) {
	case "", document.OperatorAnd:
		key = "$and"
	case document.OperatorOr:
		key = "$or"
	default:
		return fmt.Errorf("%w: unsupported boolean operator %q", core.ErrInvalidArgument, operator)
	}

	switch {
	case f.filter == nil:
		f.filter = term
		return nil
	case f.lastOp == key:
		terms := f.filter[0].Value.(bson.A)
		f.filter = bson.D{{Key: key, Value: append(terms, term)}}
	default:
		f.filter = bson.D{{Key: key, Value: bson.A{f.filter, term}}}
	}
	f.lastOp = key
	return nil
}

func conditionFilter(cond document.Condition) (bson.D, error) {
	p, err := condition.Parse(cond.Expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidArgument, err)
	}
	value := p.Value(cond.Value)

	var match any
	switch p.Op {
	case condition.OpEq:
		match = value
	case condition.OpNe:
		match = bson.D{{Key: "$ne", Value: value}}
	case condition.OpGt:
		match = bson.D{{Key: "$gt", Value: value}}
	case condition.OpGte:
		match = bson.D{{Key: "$gte", Value: value}}
	case condition.OpLt:
		match = bson.D{{Key: "$lt", Value: value}}
	case condition.OpLte:
		match = bson.D{{Key: "$lte", Value: value}}
	case condition.OpLike:
		pattern, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: LIKE needs a string pattern, got %T", core.ErrInvalidArgument, value)
		}
		match = bson.D{{Key: "$regex", Value: condition.LikePattern(pattern)}}
	case condition.OpIn:
		list, ok := asArray(value)
		if !ok {
			return nil, fmt.Errorf("%w: IN needs a list, got %T", core.ErrInvalidArgument, value)
		}
		match = bson.D{{Key: "$in", Value: list}}
	case condition.OpIsNull:
		match = nil
	case condition.OpNotNull:
		match = bson.D{{Key: "$ne", Value: nil}}
	}

	return bson.D{{Key: p.Field, Value: match}}, nil
}

func sortFields(order document.Order) (bson.D, error) {
	dir, ok := core.ParseSortDirection(order.Direction)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported sort direction %q", core.ErrInvalidArgument, order.Direction)
	}
	value := 1
	if dir == core.SortDesc {
		value = -1
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

	var sort bson.D
	for _, key := range keys {
		field, ok := key.(string)
		if !ok {
			return nil, fmt.Errorf("%w: sort key must be a field name, got %T", core.ErrInvalidArgument, key)
		}
		sort = append(sort, bson.E{Key: field, Value: value})
	}
	return sort, nil
}

// documentID turns 24 character hex strings into object ids; other ids
// are used as they are.
func documentID(id any) any {
	if s, ok := id.(string); ok && len(s) == 24 {
		if oid, err := bson.ObjectIDFromHex(s); err == nil {
			return oid
		}
	}
	return id
}

func asArray(v any) (bson.A, bool) {
	switch list := v.(type) {
	case bson.A:
		return list, true
	case []any:
		return bson.A(list), true
	case []string:
		out := make(bson.A, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	case []int:
		out := make(bson.A, len(list))
		for i, n := range list {
			out[i] = n
		}
		return out, true
	}
	return nil, false
}

func int64Arg(args []any) (int64, bool) {
	if len(args) != 1 {
		return 0, false
	}
	switch v := args[0].(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v == float64(int64(v)) {
			return int64(v), true
		}
	}
	return 0, false
}

func malformed(c document.Clause) error {
	return fmt.Errorf("%w: malformed %s clause payload %T", core.ErrInvalidArgument, c.Kind, c.Payload)
}
