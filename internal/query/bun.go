package query

import (
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

var comparisonSQL = map[Op]string{
	OpEq:  "=",
	OpNe:  "<>",
	OpGt:  ">",
	OpGte: ">=",
	OpLt:  "<",
	OpLte: "<=",
}

// array columns flip the comparison: "x > ANY(col)" reads "some element < x"
var anyComparisonSQL = map[Op]string{
	OpGt:  "<",
	OpGte: "<=",
	OpLt:  ">",
	OpLte: ">=",
}

// ApplyToSelect adds the filter, ordering and window of q to sq. tiebreak
// columns are appended after the requested ordering so pages are stable.
func ApplyToSelect(sq *bun.SelectQuery, q Query, tiebreak ...string) *bun.SelectQuery {
	sq = ApplyFilter(sq, q.Filter)

	for _, s := range q.Sort {
		if s.Desc {
			sq = sq.OrderExpr("? DESC", bun.Ident(s.Field.Column))
		} else {
			sq = sq.OrderExpr("? ASC", bun.Ident(s.Field.Column))
		}
	}
	for _, col := range tiebreak {
		sq = sq.OrderExpr("? ASC", bun.Ident(col))
	}

	if q.Skip > 0 {
		sq = sq.Offset(q.Skip)
	}
	if q.Limit > 0 {
		sq = sq.Limit(q.Limit)
	}
	return sq
}

// ApplyFilter adds only the where clause of e to sq
func ApplyFilter(sq *bun.SelectQuery, e Expr) *bun.SelectQuery {
	if e == nil {
		return sq
	}
	clause, args := renderExpr(e)
	return sq.Where(clause, args...)
}

func renderExpr(e Expr) (string, []any) {
	switch x := e.(type) {
	case Const:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case And:
		return renderGroup([]Expr(x), " AND ", "TRUE")
	case Or:
		return renderGroup([]Expr(x), " OR ", "FALSE")
	case Not:
		clause, args := renderExpr(x.Expr)
		return "NOT (" + clause + ")", args
	case Condition:
		return renderCondition(x)
	}
	return "TRUE", nil
}

func renderGroup(children []Expr, sep, empty string) (string, []any) {
	if len(children) == 0 {
		return empty, nil
	}
	parts := make([]string, 0, len(children))
	var args []any
	for _, child := range children {
		clause, childArgs := renderExpr(child)
		parts = append(parts, "("+clause+")")
		args = append(args, childArgs...)
	}
	return strings.Join(parts, sep), args
}

func renderCondition(c Condition) (string, []any) {
	col := bun.Ident(c.Field.Column)

	if c.Field.Kind == KindStringArray {
		switch c.Op {
		case OpEq:
			return "? = ANY(?)", []any{c.Value, col}
		case OpNe:
			return "NOT (? = ANY(?))", []any{c.Value, col}
		case OpIn:
			return "? && ?", []any{col, pgdialect.Array(stringValues(c.Values))}
		case OpNin:
			return "NOT (? && ?)", []any{col, pgdialect.Array(stringValues(c.Values))}
		case OpAll:
			return "? @> ?", []any{col, pgdialect.Array(stringValues(c.Values))}
		case OpSize:
			return "cardinality(?) = ?", []any{col, c.Value}
		case OpRegex:
			return "EXISTS (SELECT 1 FROM unnest(?) AS elem WHERE elem ~ ?)", []any{col, c.Value}
		}
		return "? " + anyComparisonSQL[c.Op] + " ANY(?)", []any{c.Value, col}
	}

	switch c.Op {
	case OpIn:
		return "? IN (?)", []any{col, bun.In(c.Values)}
	case OpNin:
		return "? NOT IN (?)", []any{col, bun.In(c.Values)}
	case OpRegex:
		return "? ~ ?", []any{col, c.Value}
	}
	return "? " + comparisonSQL[c.Op] + " ?", []any{col, c.Value}
}

func stringValues(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
