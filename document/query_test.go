package document

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/preslavrachev/cloudkit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQuery(t *testing.T) {
	q := NewQuery()
	require.NotNil(t, q)
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.Clauses())
}

func TestQueryClauseOrder(t *testing.T) {
	q := NewQuery()

	_, err := q.Select([]string{"name", "age"})
	require.NoError(t, err)
	_, err = q.From("users")
	require.NoError(t, err)
	_, err = q.Where("age > ?", 18)
	require.NoError(t, err)
	_, err = q.WhereID(42)
	require.NoError(t, err)
	_, err = q.Limit(10)
	require.NoError(t, err)
	q.Order("name", "desc")

	want := Clauses{
		{Kind: KindSelect, Payload: []string{"name", "age"}},
		{Kind: KindFrom, Payload: "users"},
		{Kind: KindWhere, Payload: Condition{Expr: "age > ?", Value: 18, Operator: OperatorAnd}},
		{Kind: KindWhereID, Payload: 42},
		{Kind: KindLimit, Payload: 10},
		{Kind: KindOrder, Payload: Order{Key: "name", Direction: "desc"}},
	}
	assert.Equal(t, want, q.Clauses())
}

func TestQueryChainingReturnsSameBuilder(t *testing.T) {
	q := NewQuery()

	got, err := q.From("users")
	require.NoError(t, err)
	assert.Same(t, q, got)

	assert.Same(t, q, q.Order("name"))

	got, err = q.Declare("consistentRead", true)
	require.NoError(t, err)
	assert.Same(t, q, got)
}

func TestSelectEmptyIsNoOp(t *testing.T) {
	tests := []struct {
		name   string
		fields any
	}{
		{"empty string", ""},
		{"empty string slice", []string{}},
		{"nil string slice", []string(nil)},
		{"empty any slice", []any{}},
		{"nil", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuery()
			got, err := q.Select(tt.fields)
			require.NoError(t, err)
			assert.Same(t, q, got)
			assert.Equal(t, 0, q.Len())
		})
	}
}

func TestSelectShapes(t *testing.T) {
	q := NewQuery()

	_, err := q.Select("name, email")
	require.NoError(t, err)
	_, err = q.Select([]any{"id", "status"})
	require.NoError(t, err)

	clauses := q.Clauses()
	require.Len(t, clauses, 2)
	assert.Equal(t, "name, email", clauses[0].Payload)
	assert.Equal(t, []string{"name", "email"}, clauses[0].Fields())
	assert.Equal(t, []string{"id", "status"}, clauses[1].Payload)
}

func TestBuilderRejectsInvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		call func(q *Query) error
	}{
		{"select int", func(q *Query) error { _, err := q.Select(123); return err }},
		{"select mixed list", func(q *Query) error { _, err := q.Select([]any{"a", 1}); return err }},
		{"select map", func(q *Query) error { _, err := q.Select(map[string]any{"a": 1}); return err }},
		{"from int", func(q *Query) error { _, err := q.From(123); return err }},
		{"from nil", func(q *Query) error { _, err := q.From(nil); return err }},
		{"where int condition", func(q *Query) error { _, err := q.Where(1, nil); return err }},
		{"or where nil condition", func(q *Query) error { _, err := q.OrWhere(nil, "x"); return err }},
		{"whereid map", func(q *Query) error { _, err := q.WhereID(map[string]any{}); return err }},
		{"whereid struct", func(q *Query) error { _, err := q.WhereID(struct{}{}); return err }},
		{"whereid slice", func(q *Query) error { _, err := q.WhereID([]int{1}); return err }},
		{"whereid nil", func(q *Query) error { _, err := q.WhereID(nil); return err }},
		{"limit fraction", func(q *Query) error { _, err := q.Limit(1.5); return err }},
		{"limit word", func(q *Query) error { _, err := q.Limit("abc"); return err }},
		{"limit fractional string", func(q *Query) error { _, err := q.Limit("1.5"); return err }},
		{"limit fractional number", func(q *Query) error { _, err := q.Limit(json.Number("2.5")); return err }},
		{"limit empty string", func(q *Query) error { _, err := q.Limit(""); return err }},
		{"limit nil", func(q *Query) error { _, err := q.Limit(nil); return err }},
		{"limit NaN", func(q *Query) error { _, err := q.Limit(math.NaN()); return err }},
		{"limit overflow", func(q *Query) error { _, err := q.Limit(uint64(math.MaxUint64)); return err }},
		{"limit huge float", func(q *Query) error { _, err := q.Limit(1e300); return err }},
		{"declare empty name", func(q *Query) error { _, err := q.Declare(""); return err }},
		{"declare limit without args", func(q *Query) error { _, err := q.Declare("limit"); return err }},
		{"declare from with int", func(q *Query) error { _, err := q.Declare("FROM", 1); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQuery()
			_, err := q.From("users")
			require.NoError(t, err)

			err = tt.call(q)
			require.ErrorIs(t, err, core.ErrInvalidArgument)
			assert.Equal(t, 1, q.Len(), "failed call must not add a clause")
		})
	}
}

func TestWhereKeepsPayloadAndOperator(t *testing.T) {
	q := NewQuery()
	_, err := q.Where("age > ?", 18)
	require.NoError(t, err)
	_, err = q.WhereOp("name = ?", "x", "or")
	require.NoError(t, err)
	_, err = q.OrWhere("status = ?", "active")
	require.NoError(t, err)
	_, err = q.WhereOp("flag", nil, "xor")
	require.NoError(t, err)

	where := q.Clauses().OfKind(KindWhere)
	require.Len(t, where, 4)
	assert.Equal(t, Condition{Expr: "age > ?", Value: 18, Operator: "and"}, where[0].Payload)
	assert.Equal(t, Condition{Expr: "name = ?", Value: "x", Operator: "or"}, where[1].Payload)
	assert.Equal(t, Condition{Expr: "status = ?", Value: "active", Operator: "or"}, where[2].Payload)
	assert.Equal(t, Condition{Expr: "flag", Value: nil, Operator: "xor"}, where[3].Payload)
}

func TestWhereIDScalars(t *testing.T) {
	type customID string

	for _, v := range []any{"abc", 7, int64(7), uint8(7), 1.5, true, customID("x")} {
		q := NewQuery()
		_, err := q.WhereID(v)
		require.NoError(t, err, "%T", v)
		assert.Equal(t, Clause{Kind: KindWhereID, Payload: v}, q.Clauses()[0])
	}
}

func TestLimitAcceptsIntegralValues(t *testing.T) {
	tests := []struct {
		in   any
		want int
	}{
		{5, 5},
		{int8(3), 3},
		{uint32(9), 9},
		{float64(20), 20},
		{float32(4), 4},
		{json.Number("15"), 15},
		{json.Number("2.0"), 2},
		{"10", 10},
		{"3.0", 3},
		{"-4", -4},
		{-1, -1},
	}

	for _, tt := range tests {
		q := NewQuery()
		_, err := q.Limit(tt.in)
		require.NoError(t, err, "%v (%T)", tt.in, tt.in)
		assert.Equal(t, tt.want, q.Clauses()[0].Payload)
	}
}

func TestOrderDefaults(t *testing.T) {
	q := NewQuery()
	q.Order("name")
	q.Order([]string{"zone", "name"}, "DESC")
	q.Order(2, "sideways")

	clauses := q.Clauses()
	require.Len(t, clauses, 3)
	assert.Equal(t, Order{Key: "name", Direction: "asc"}, clauses[0].Payload)
	assert.Equal(t, Order{Key: []string{"zone", "name"}, Direction: "DESC"}, clauses[1].Payload)
	assert.Equal(t, Order{Key: 2, Direction: "sideways"}, clauses[2].Payload)
}

func TestDeclareExtensionClause(t *testing.T) {
	q := NewQuery()
	_, err := q.Declare("consistentRead", true)
	require.NoError(t, err)
	_, err = q.Declare("Offset", 20)
	require.NoError(t, err)
	_, err = q.Declare("noArgs")
	require.NoError(t, err)

	assert.Equal(t, Clauses{
		{Kind: "consistentread", Payload: []any{true}},
		{Kind: "offset", Payload: []any{20}},
		{Kind: "noargs", Payload: []any{}},
	}, q.Clauses())
	assert.False(t, Kind("consistentread").IsWellKnown())
}

func TestDeclareRoutesWellKnownKinds(t *testing.T) {
	q := NewQuery()
	_, err := q.Declare("Where", "a = ?", 1, "or")
	require.NoError(t, err)
	_, err = q.Declare("where", "b = ?")
	require.NoError(t, err)
	_, err = q.Declare("LIMIT", 5)
	require.NoError(t, err)
	_, err = q.Declare("order", "name", "desc")
	require.NoError(t, err)
	_, err = q.Declare("select", "")
	require.NoError(t, err)
	_, err = q.Declare("where", "c = ?", 2, nil)
	require.NoError(t, err)
	_, err = q.Declare("order", "age", nil)
	require.NoError(t, err)

	assert.Equal(t, Clauses{
		{Kind: KindWhere, Payload: Condition{Expr: "a = ?", Value: 1, Operator: "or"}},
		{Kind: KindWhere, Payload: Condition{Expr: "b = ?", Value: nil, Operator: "and"}},
		{Kind: KindLimit, Payload: 5},
		{Kind: KindOrder, Payload: Order{Key: "name", Direction: "desc"}},
		{Kind: KindWhere, Payload: Condition{Expr: "c = ?", Value: 2, Operator: "and"}},
		{Kind: KindOrder, Payload: Order{Key: "age", Direction: "asc"}},
	}, q.Clauses())
}

func TestAssembleMatchesClauses(t *testing.T) {
	q := NewQuery()
	_, err := q.From("users")
	require.NoError(t, err)
	_, err = q.Where("id IN ?", []any{1, 2})
	require.NoError(t, err)

	assert.Equal(t, q.Clauses(), q.Assemble())

	var a Assembler = q
	assert.IsType(t, Clauses{}, a.Assemble())
}

func TestSnapshotDoesNotAliasBuilder(t *testing.T) {
	fields := []string{"name", "age"}
	q := NewQuery()
	_, err := q.Select(fields)
	require.NoError(t, err)
	_, err = q.Where("id IN ?", []any{1, 2})
	require.NoError(t, err)
	_, err = q.Declare("tags", []string{"a"})
	require.NoError(t, err)
	q.Order([]string{"name"})

	fields[0] = "mutated-input"

	snapshot := q.Clauses()
	snapshot[0].Payload.([]string)[0] = "mutated"
	snapshot[1].Payload.(Condition).Value.([]any)[0] = 99
	snapshot[2].Payload.([]any)[0] = "mutated"
	snapshot[3].Payload.(Order).Key.([]string)[0] = "mutated"
	snapshot = append(snapshot, Clause{Kind: "extra"})

	assembled := q.Assemble().(Clauses)
	assembled[0] = Clause{Kind: "replaced"}

	fresh := q.Clauses()
	require.Len(t, fresh, 4)
	assert.Equal(t, []string{"name", "age"}, fresh[0].Payload)
	assert.Equal(t, []any{1, 2}, fresh[1].Payload.(Condition).Value)
	assert.Equal(t, []any{[]string{"a"}}, fresh[2].Payload)
	assert.Equal(t, []string{"name"}, fresh[3].Payload.(Order).Key)
	assert.Equal(t, fresh, q.Assemble())
}

func TestSnapshotDoesNotAliasNestedValues(t *testing.T) {
	q := NewQuery()
	_, err := q.Declare("in", []string{"a", "b"})
	require.NoError(t, err)
	_, err = q.Where("x IN ?", []any{[]int{1, 2}})
	require.NoError(t, err)
	q.Order([]any{[]string{"a"}})
	_, err = q.Declare("meta", map[string]any{"tags": []string{"t"}})
	require.NoError(t, err)

	snapshot := q.Clauses()
	snapshot[0].Payload.([]any)[0].([]string)[0] = "mutated"
	snapshot[1].Payload.(Condition).Value.([]any)[0].([]int)[0] = 99
	snapshot[2].Payload.(Order).Key.([]any)[0].([]string)[0] = "Z"
	snapshot[3].Payload.([]any)[0].(map[string]any)["tags"].([]string)[0] = "mutated"

	fresh := q.Clauses()
	assert.Equal(t, []any{[]string{"a", "b"}}, fresh[0].Payload)
	assert.Equal(t, []any{[]int{1, 2}}, fresh[1].Payload.(Condition).Value)
	assert.Equal(t, []any{[]string{"a"}}, fresh[2].Payload.(Order).Key)
	assert.Equal(t, []any{map[string]any{"tags": []string{"t"}}}, fresh[3].Payload)
}

func TestClausesHelpers(t *testing.T) {
	q := NewQuery()
	_, _ = q.Limit(5)
	_, _ = q.Limit(7)
	_, _ = q.Declare("offset", 3)

	cs := q.Clauses()
	last, ok := cs.Last(KindLimit)
	require.True(t, ok)
	assert.Equal(t, 7, last.Payload)

	_, ok = cs.Last(KindFrom)
	assert.False(t, ok)

	offset, ok := cs.Last("offset")
	require.True(t, ok)
	assert.Equal(t, []any{3}, offset.Args())
	assert.Nil(t, last.Fields())
}

func TestNativeQueryAssemblesToItself(t *testing.T) {
	n := NativeQuery{Statement: "SELECT 1", Args: []any{1}}
	var a Assembler = n
	assert.Equal(t, n, a.Assemble())
}
