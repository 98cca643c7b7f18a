package query

import (
	"sort"
	"strings"
	"time"
)

// Match evaluates a filter against a document. A nil filter matches everything.
func Match(doc Document, e Expr) bool {
	switch x := e.(type) {
	case nil:
		return true
	case Const:
		return bool(x)
	case And:
		for _, child := range x {
			if !Match(doc, child) {
				return false
			}
		}
		return true
	case Or:
		for _, child := range x {
			if Match(doc, child) {
				return true
			}
		}
		return false
	case Not:
		return !Match(doc, x.Expr)
	case Condition:
		return matchCondition(doc[x.Field.Name], x)
	}
	return false
}

func matchCondition(v any, c Condition) bool {
	if c.Field.Kind == KindStringArray {
		elems, _ := v.([]string)
		switch c.Op {
		case OpEq:
			return containsAny(elems, []any{c.Value})
		case OpNe:
			return !containsAny(elems, []any{c.Value})
		case OpIn:
			return containsAny(elems, c.Values)
		case OpNin:
			return !containsAny(elems, c.Values)
		case OpAll:
			for _, v := range c.Values {
				if !containsAny(elems, []any{v}) {
					return false
				}
			}
			return true
		case OpSize:
			n, _ := c.Value.(int)
			return len(elems) == n
		case OpRegex:
			for _, elem := range elems {
				if c.Pattern.MatchString(elem) {
					return true
				}
			}
			return false
		}
		for _, elem := range elems {
			if satisfies(elem, c.Value, c.Op) {
				return true
			}
		}
		return false
	}

	switch c.Op {
	case OpEq:
		return equal(v, c.Value)
	case OpNe:
		return !equal(v, c.Value)
	case OpIn:
		for _, candidate := range c.Values {
			if equal(v, candidate) {
				return true
			}
		}
		return false
	case OpNin:
		for _, candidate := range c.Values {
			if equal(v, candidate) {
				return false
			}
		}
		return true
	case OpRegex:
		s, ok := v.(string)
		return ok && c.Pattern.MatchString(s)
	}
	return satisfies(v, c.Value, c.Op)
}

func containsAny(elems []string, values []any) bool {
	for _, elem := range elems {
		for _, v := range values {
			if s, ok := v.(string); ok && s == elem {
				return true
			}
		}
	}
	return false
}

func equal(a, b any) bool {
	cmp, ok := compare(a, b)
	return ok && cmp == 0
}

func satisfies(a, b any, op Op) bool {
	cmp, ok := compare(a, b)
	if !ok {
		return false
	}
	switch op {
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	}
	return false
}

// compare orders two values of the same kind; ok is false across kinds
func compare(a, b any) (int, bool) {
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		default:
			return 1, true
		}
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case []string:
		// arrays order by their first element; empty sorts first
		y, ok := b.([]string)
		if !ok {
			return 0, false
		}
		switch {
		case len(x) == 0 && len(y) == 0:
			return 0, true
		case len(x) == 0:
			return -1, true
		case len(y) == 0:
			return 1, true
		}
		return strings.Compare(x[0], y[0]), true
	}
	return 0, false
}

// Apply filters, orders and windows items the way a store would
func Apply[T Documenter](items []T, q Query) []T {
	hits := matching(items, q.Filter)

	if len(q.Sort) > 0 {
		sort.SliceStable(hits, func(i, j int) bool {
			return less(hits[i].doc, hits[j].doc, q.Sort)
		})
	}

	start := q.Skip
	if start > len(hits) {
		start = len(hits)
	}
	end := len(hits)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}

	out := make([]T, 0, end-start)
	for _, m := range hits[start:end] {
		out = append(out, m.item)
	}
	return out
}

// CountMatches returns the windowed number of items matching q
func CountMatches[T Documenter](items []T, q Query) int {
	return q.Window(len(matching(items, q.Filter)))
}

type hit[T Documenter] struct {
	item T
	doc  Document
}

func matching[T Documenter](items []T, filter Expr) []hit[T] {
	out := make([]hit[T], 0, len(items))
	for _, item := range items {
		doc := item.Document()
		if Match(doc, filter) {
			out = append(out, hit[T]{item: item, doc: doc})
		}
	}
	return out
}

func less(a, b Document, fields []SortField) bool {
	for _, f := range fields {
		cmp, ok := compare(a[f.Field.Name], b[f.Field.Name])
		if !ok || cmp == 0 {
			continue
		}
		if f.Desc {
			return cmp > 0
		}
		return cmp < 0
	}
	return false
}
