package dynamo

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/preslavrachev/cloudkit/adapters/internal/condition"
	"github.com/preslavrachev/cloudkit/core"
	"github.com/preslavrachev/cloudkit/document"
)

// Extension clause kinds understood by this adapter
const (
	KindConsistentRead document.Kind = "consistentread"
	KindIndex          document.Kind = "index"
)

// SortKey orders scanned items client side
type SortKey struct {
	Field string
	Desc  bool
}

// ScanPlan is a translated query. Scan has no ordering and its Limit
// caps evaluated items rather than matches, so both are applied to the
// results after scanning.
type ScanPlan struct {
	Input *dynamodb.ScanInput
	Limit int
	Sort  []SortKey
}

// Translate converts q into a ScanPlan. collection is used when q has
// no from clause.
func (a *Adapter) Translate(collection string, q document.Assembler) (*ScanPlan, error) {
	if q == nil {
		return nil, fmt.Errorf("%w: query cannot be nil", core.ErrInvalidArgument)
	}
	clauses, ok := q.Assemble().(document.Clauses)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported query representation %T", core.ErrInvalidArgument, q.Assemble())
	}

	plan := &ScanPlan{Input: &dynamodb.ScanInput{}}
	b := newExprBuilder()
	table := collection
	var projection []string

	for _, c := range clauses {
		switch c.Kind {
		case document.KindSelect:
			for _, field := range c.Fields() {
				if field == "*" {
					continue
				}
				projection = append(projection, b.name(field))
			}
		case document.KindFrom:
			name, ok := c.Payload.(string)
			if !ok {
				return nil, malformed(c)
			}
			table = name
		case document.KindWhere:
			cond, ok := c.Payload.(document.Condition)
			if !ok {
				return nil, malformed(c)
			}
			expr, err := b.condition(cond)
			if err != nil {
				return nil, err
			}
			if err := b.fold(cond.Operator, expr); err != nil {
				return nil, err
			}
		case document.KindWhereID:
			v, err := b.value(c.Payload)
			if err != nil {
				return nil, err
			}
			if err := b.fold(document.OperatorAnd, b.name(a.keyAttribute)+" = "+v); err != nil {
				return nil, err
			}
		case document.KindLimit:
			n, ok := c.Payload.(int)
			if !ok {
				return nil, malformed(c)
			}
			plan.Limit = n
		case document.KindOrder:
			order, ok := c.Payload.(document.Order)
			if !ok {
				return nil, malformed(c)
			}
			keys, err := sortKeys(order)
			if err != nil {
				return nil, err
			}
			plan.Sort = append(plan.Sort, keys...)
		case KindConsistentRead:
			consistent := true
			if args := c.Args(); len(args) > 0 {
				v, ok := args[0].(bool)
				if !ok || len(args) > 1 {
					return nil, malformed(c)
				}
				consistent = v
			}
			plan.Input.ConsistentRead = aws.Bool(consistent)
		case KindIndex:
			args := c.Args()
			name, ok := "", len(args) == 1
			if ok {
				name, ok = args[0].(string)
			}
			if !ok || name == "" {
				return nil, malformed(c)
			}
			plan.Input.IndexName = aws.String(name)
		default:
			if a.strict {
				return nil, fmt.Errorf("%w: %s", document.ErrUnsupportedClause, c.Kind)
			}
			a.log.Debug("skipping unsupported clause", zap.String("kind", c.Kind.String()))
		}
	}

	if table == "" {
		return nil, fmt.Errorf("%w: no collection given and no FROM clause", core.ErrInvalidArgument)
	}
	plan.Input.TableName = aws.String(table)

	if len(projection) > 0 {
		// sort keys must come back to order the results
		for _, key := range plan.Sort {
			if ph := b.name(key.Field); !slices.Contains(projection, ph) {
				projection = append(projection, ph)
			}
		}
		plan.Input.ProjectionExpression = aws.String(strings.Join(projection, ", "))
	}
	if b.filter != "" {
		plan.Input.FilterExpression = aws.String(b.filter)
	}
	if len(b.names) > 0 {
		plan.Input.ExpressionAttributeNames = b.names
	}
	if len(b.values) > 0 {
		plan.Input.ExpressionAttributeValues = b.values
	}
	return plan, nil
}

// exprBuilder collects a filter expression with its #attr / :val
// placeholders.
type exprBuilder struct {
	names  map[string]string
	byAttr map[string]string
	values map[string]types.AttributeValue
	filter string
	lastOp string
}

func newExprBuilder() *exprBuilder {
	return &exprBuilder{
		names:  map[string]string{},
		byAttr: map[string]string{},
		values: map[string]types.AttributeValue{},
	}
}

// name returns the placeholder path for a dotted attribute path
func (b *exprBuilder) name(path string) string {
	parts := strings.Split(path, ".")
	for i, attr := range parts {
		ph, ok := b.byAttr[attr]
		if !ok {
			ph = fmt.Sprintf("#attr%d", len(b.byAttr)+1)
			b.byAttr[attr] = ph
			b.names[ph] = attr
		}
		parts[i] = ph
	}
	return strings.Join(parts, ".")
}

func (b *exprBuilder) value(v any) (string, error) {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: cannot marshal %T: %v", core.ErrInvalidArgument, v, err)
	}
	ph := fmt.Sprintf(":val%d", len(b.values)+1)
	b.values[ph] = av
	return ph, nil
}

func (b *exprBuilder) condition(cond document.Condition) (string, error) {
	p, err := condition.Parse(cond.Expr)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrInvalidArgument, err)
	}
	attr := b.name(p.Field)
	value := p.Value(cond.Value)

	switch p.Op {
	case condition.OpIsNull:
		return "attribute_not_exists(" + attr + ")", nil
	case condition.OpNotNull:
		return "attribute_exists(" + attr + ")", nil
	case condition.OpIn:
		list, ok := value.([]any)
		if !ok {
			list, ok = stringsOrInts(value)
		}
		if !ok || len(list) == 0 {
			return "", fmt.Errorf("%w: IN needs a non-empty list, got %T", core.ErrInvalidArgument, value)
		}
		phs := make([]string, len(list))
		for i, item := range list {
			if phs[i], err = b.value(item); err != nil {
				return "", err
			}
		}
		return attr + " IN (" + strings.Join(phs, ", ") + ")", nil
	case condition.OpLike:
		return b.like(attr, value)
	}

	v, err := b.value(value)
	if err != nil {
		return "", err
	}
	op := string(p.Op)
	if p.Op == condition.OpNe {
		op = "<>"
	}
	return attr + " " + op + " " + v, nil
}

// like maps the LIKE shapes DynamoDB can express: "abc%" to
// begins_with, "%abc%" to contains and a pattern without wildcards to
// equality.
func (b *exprBuilder) like(attr string, value any) (string, error) {
	pattern, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: LIKE needs a string pattern, got %T", core.ErrInvalidArgument, value)
	}
	if strings.Contains(pattern, "_") {
		return "", fmt.Errorf("%w: LIKE pattern %q is not supported", core.ErrInvalidArgument, pattern)
	}

	inner := strings.Trim(pattern, "%")
	if strings.Contains(inner, "%") {
		return "", fmt.Errorf("%w: LIKE pattern %q is not supported", core.ErrInvalidArgument, pattern)
	}
	if inner == "" && pattern != "" {
		return "attribute_exists(" + attr + ")", nil
	}
	v, err := b.value(inner)
	if err != nil {
		return "", err
	}

	leading := strings.HasPrefix(pattern, "%")
	trailing := strings.HasSuffix(pattern, "%") && len(pattern) > 1
	switch {
	case leading && trailing:
		return "contains(" + attr + ", " + v + ")", nil
	case trailing:
		return "begins_with(" + attr + ", " + v + ")", nil
	case leading:
		return "", fmt.Errorf("%w: LIKE pattern %q is not supported", core.ErrInvalidArgument, pattern)
	}
	return attr + " = " + v, nil
}

func (b *exprBuilder) fold(operator, expr string) error {
	op := strings.ToUpper(strings.TrimSpace(operator))
	if op == "" {
		op = "AND"
	}
	if op != "AND" && op != "OR" {
		return fmt.Errorf("%w: unsupported boolean operator %q", core.ErrInvalidArgument, operator)
	}

	switch {
	case b.filter == "":
		b.filter = "(" + expr + ")"
	case b.lastOp == "" || op == b.lastOp:
		b.filter += " " + op + " (" + expr + ")"
		b.lastOp = op
	default:
		b.filter = "(" + b.filter + ") " + op + " (" + expr + ")"
		b.lastOp = op
	}
	return nil
}

func sortKeys(order document.Order) ([]SortKey, error) {
	dir, ok := core.ParseSortDirection(order.Direction)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported sort direction %q", core.ErrInvalidArgument, order.Direction)
	}

	var names []any
	switch k := order.Key.(type) {
	case []string:
		for _, s := range k {
			names = append(names, s)
		}
	case []any:
		names = k
	default:
		names = []any{k}
	}

	keys := make([]SortKey, 0, len(names))
	for _, n := range names {
		field, ok := n.(string)
		if !ok || field == "" {
			return nil, fmt.Errorf("%w: sort key must be an attribute name, got %T", core.ErrInvalidArgument, n)
		}
		keys = append(keys, SortKey{Field: field, Desc: dir == core.SortDesc})
	}
	return keys, nil
}

func stringsOrInts(v any) ([]any, bool) {
	switch list := v.(type) {
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(list))
		for i, n := range list {
			out[i] = n
		}
		return out, true
	}
	return nil, false
}

func malformed(c document.Clause) error {
	return fmt.Errorf("%w: malformed %s clause payload %T", core.ErrInvalidArgument, c.Kind, c.Payload)
}
