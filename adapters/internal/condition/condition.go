// Package condition parses the simple "field op ?" conditions carried by
// where clauses for backends whose query language is not SQL.
package condition

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnparseable is returned for conditions outside the supported grammar
var ErrUnparseable = errors.New("unparseable condition")

// Op is a comparison operator
type Op string

const (
	OpEq      Op = "="
	OpNe      Op = "!="
	OpGt      Op = ">"
	OpGte     Op = ">="
	OpLt      Op = "<"
	OpLte     Op = "<="
	OpLike    Op = "like"
	OpIn      Op = "in"
	OpIsNull  Op = "is null"
	OpNotNull Op = "is not null"
)

// Predicate is a single parsed comparison
type Predicate struct {
	Field string
	Op    Op
	// Placeholder is set when the right-hand side is ? and the value
	// comes from the clause.
	Placeholder bool
	Literal     any
}

var pattern = regexp.MustCompile(`^\s*([A-Za-z_][\w.]*)\s*(==|!=|<>|>=|<=|=|>|<|\s(?i:like|in|is\s+not|is)\s)\s*(.+?)\s*$`)

// Parse parses cond
func Parse(cond string) (Predicate, error) {
	m := pattern.FindStringSubmatch(cond)
	if m == nil {
		return Predicate{}, fmt.Errorf("%w: %q", ErrUnparseable, cond)
	}

	p := Predicate{Field: m[1]}
	rhs := m[3]
	op := strings.Join(strings.Fields(strings.ToLower(m[2])), " ")

	switch op {
	case "=", "==":
		p.Op = OpEq
	case "!=", "<>":
		p.Op = OpNe
	case ">", ">=", "<", "<=", "like", "in":
		p.Op = Op(op)
	case "is", "is not":
		if !strings.EqualFold(rhs, "null") {
			return Predicate{}, fmt.Errorf("%w: %q only supports NULL", ErrUnparseable, cond)
		}
		p.Op = OpIsNull
		if op == "is not" {
			p.Op = OpNotNull
		}
		return p, nil
	}

	if rhs == "?" {
		p.Placeholder = true
		return p, nil
	}

	lit, err := parseLiteral(rhs)
	if err != nil {
		return Predicate{}, fmt.Errorf("%w: %q: %v", ErrUnparseable, cond, err)
	}
	p.Literal = lit
	return p, nil
}

// Value returns the right-hand side of p, taking bound from the clause
// when p uses a placeholder.
func (p Predicate) Value(bound any) any {
	if p.Placeholder {
		return bound
	}
	return p.Literal
}

func parseLiteral(s string) (any, error) {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1], nil
	}
	switch strings.ToLower(s) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("unsupported literal %s", s)
}

// LikePattern converts a SQL LIKE pattern to an anchored regular
// expression.
func LikePattern(like string) string {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range like {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return b.String()
}
