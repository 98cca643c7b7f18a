package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Op is a comparison operator in a where document
type Op string

const (
	OpEq  Op = "$eq"
	OpNe  Op = "$ne"
	OpIn  Op = "$in"
	OpNin Op = "$nin"
	OpGt  Op = "$gt"
	OpGte Op = "$gte"
	OpLt  Op = "$lt"
	OpLte Op = "$lte"

	OpRegex Op = "$regex"
	OpAll   Op = "$all"
	OpSize  Op = "$size"

	opOptions Op = "$options"
	opExists  Op = "$exists"
	opNot     Op = "$not"
)

// errUnsupported marks a well-formed operator this package cannot evaluate.
// The field it appears on never matches.
var errUnsupported = errors.New("unsupported operator")

// Expr is a parsed filter predicate
type Expr interface {
	isExpr()
}

// And matches when every child matches
type And []Expr

// Or matches when any child matches
type Or []Expr

// Const is a predicate whose outcome is known at parse time, e.g. a
// condition on a field the resource does not have
type Const bool

// Not matches when Expr does not
type Not struct {
	Expr Expr
}

// Condition compares one field against a typed operand. Value is set for
// scalar operators and $size, Values for $in/$nin/$all. A $regex condition
// keeps its source in Value and the compiled form in Pattern.
type Condition struct {
	Field   Field
	Op      Op
	Value   any
	Values  []any
	Pattern *regexp.Regexp
}

func (And) isExpr()       {}
func (Or) isExpr()        {}
func (Not) isExpr()       {}
func (Const) isExpr()     {}
func (Condition) isExpr() {}

// ParseFilter decodes a where document against schema. Operators outside the
// supported set make their field match nothing; only malformed documents are
// errors.
func ParseFilter(raw string, schema Schema) (Expr, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("where must be a JSON object: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("where must be a JSON object")
	}
	return parseObject(obj, schema)
}

func parseObject(obj map[string]any, schema Schema) (Expr, error) {
	and := make(And, 0, len(obj))
	for _, key := range sortedKeys(obj) {
		value := obj[key]
		switch key {
		case "$and", "$or", "$nor":
			items, ok := value.([]any)
			if !ok || len(items) == 0 {
				return nil, fmt.Errorf("%s requires a non-empty array", key)
			}
			children := make([]Expr, 0, len(items))
			for _, item := range items {
				child, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("%s entries must be objects", key)
				}
				expr, err := parseObject(child, schema)
				if err != nil {
					return nil, err
				}
				children = append(children, expr)
			}
			switch key {
			case "$and":
				and = append(and, And(children))
			case "$or":
				and = append(and, Or(children))
			default:
				and = append(and, Not{Expr: Or(children)})
			}
		default:
			if strings.HasPrefix(key, "$") {
				// $where, $text, $expr and friends
				and = append(and, Const(false))
				continue
			}
			expr, err := parseField(key, value, schema)
			if err != nil {
				return nil, err
			}
			and = append(and, expr)
		}
	}
	if len(and) == 1 {
		return and[0], nil
	}
	return and, nil
}

func parseField(name string, value any, schema Schema) (Expr, error) {
	field, known := schema.Lookup(name)

	obj, isObj := value.(map[string]any)
	if !isObj {
		return newCondition(field, known, OpEq, value)
	}

	switch operators := countOperators(obj); {
	case operators == 0:
		// equality against an embedded document; no field holds one
		return Const(false), nil
	case operators != len(obj):
		return nil, fmt.Errorf("field %s mixes operators and values", name)
	}

	expr, err := parseOperators(field, known, obj)
	if errors.Is(err, errUnsupported) {
		return Const(false), nil
	}
	return expr, err
}

func parseOperators(field Field, known bool, obj map[string]any) (Expr, error) {
	conds := make(And, 0, len(obj))
	for _, key := range sortedKeys(obj) {
		operand := obj[key]

		var (
			expr Expr
			err  error
		)
		switch Op(key) {
		case opOptions:
			if _, ok := obj[string(OpRegex)]; !ok {
				return nil, fmt.Errorf("$options requires $regex")
			}
			continue
		case OpRegex:
			options, ok := obj[string(opOptions)]
			if !ok {
				options = ""
			}
			expr, err = newRegexCondition(field, known, operand, options)
		case opExists:
			expr = Const(truthy(operand) == known)
		case opNot:
			inner, ok := operand.(map[string]any)
			if !ok || len(inner) == 0 || countOperators(inner) != len(inner) {
				return nil, fmt.Errorf("$not requires an operator object")
			}
			var negated Expr
			if negated, err = parseOperators(field, known, inner); err == nil {
				expr = Not{Expr: negated}
			}
		default:
			expr, err = newCondition(field, known, Op(key), operand)
		}
		if err != nil {
			return nil, err
		}
		conds = append(conds, expr)
	}
	if len(conds) == 1 {
		return conds[0], nil
	}
	return conds, nil
}

func newCondition(field Field, known bool, op Op, operand any) (Expr, error) {
	negated := op == OpNe || op == OpNin

	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
		if _, isArray := operand.([]any); isArray || !known {
			return Const(negated), nil
		}
		value, ok := coerce(field.Kind, operand)
		if !ok {
			return Const(negated), nil
		}
		return Condition{Field: field, Op: op, Value: value}, nil

	case OpIn, OpNin:
		items, ok := operand.([]any)
		if !ok {
			return nil, fmt.Errorf("%s requires an array", op)
		}
		if !known {
			return Const(negated), nil
		}
		values := make([]any, 0, len(items))
		for _, item := range items {
			if v, ok := coerce(field.Kind, item); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return Const(negated), nil
		}
		return Condition{Field: field, Op: op, Values: values}, nil

	case OpAll:
		items, ok := operand.([]any)
		if !ok {
			return nil, fmt.Errorf("$all requires an array")
		}
		if !known || len(items) == 0 {
			return Const(false), nil
		}
		values := make([]any, 0, len(items))
		for _, item := range items {
			v, ok := coerce(field.Kind, item)
			if !ok {
				return Const(false), nil
			}
			values = append(values, v)
		}
		if field.Kind == KindStringArray {
			return Condition{Field: field, Op: OpAll, Values: values}, nil
		}
		// a scalar field holds every value only if they are all equal to it
		conds := make(And, 0, len(values))
		for _, v := range values {
			conds = append(conds, Condition{Field: field, Op: OpEq, Value: v})
		}
		return conds, nil

	case OpSize:
		n, ok := operand.(float64)
		if !ok {
			return nil, fmt.Errorf("$size requires a number")
		}
		if !known || field.Kind != KindStringArray || n < 0 || n != float64(int(n)) {
			return Const(false), nil
		}
		return Condition{Field: field, Op: OpSize, Value: int(n)}, nil
	}

	return nil, fmt.Errorf("%w %s", errUnsupported, op)
}

// newRegexCondition compiles a $regex operand. Only the "i" option is
// understood; patterns RE2 cannot compile never match.
func newRegexCondition(field Field, known bool, operand, options any) (Expr, error) {
	pattern, ok := operand.(string)
	if !ok {
		return nil, fmt.Errorf("$regex requires a string")
	}
	flags, ok := options.(string)
	if !ok {
		return nil, fmt.Errorf("$options requires a string")
	}

	if !known || (field.Kind != KindString && field.Kind != KindStringArray) {
		return Const(false), nil
	}

	source := pattern
	switch strings.TrimSpace(flags) {
	case "":
	case "i":
		source = "(?i)" + pattern
	default:
		return nil, fmt.Errorf("%w $options %q", errUnsupported, flags)
	}

	re, err := regexp.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w $regex: %v", errUnsupported, err)
	}
	return Condition{Field: field, Op: OpRegex, Value: source, Pattern: re}, nil
}

func countOperators(obj map[string]any) int {
	n := 0
	for key := range obj {
		if strings.HasPrefix(key, "$") {
			n++
		}
	}
	return n
}

// truthy follows JavaScript truthiness for decoded JSON values
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	}
	return true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
