package query

import (
	"strconv"
	"time"
)

// Kind is the storage type of a queryable field
type Kind int

const (
	KindString Kind = iota
	KindBool
	KindTime
	KindStringArray
)

// IDField is the public name of every document's identifier
const IDField = "_id"

// Field maps a public (JSON) field name to its column
type Field struct {
	Name   string
	Column string
	Kind   Kind
}

// Schema is the set of fields a resource exposes to where/sort/select
type Schema struct {
	fields map[string]Field
	order  []string
}

// NewSchema builds a schema; field order is kept for projections
func NewSchema(fields ...Field) Schema {
	s := Schema{
		fields: make(map[string]Field, len(fields)),
		order:  make([]string, 0, len(fields)),
	}
	for _, f := range fields {
		s.fields[f.Name] = f
		s.order = append(s.order, f.Name)
	}
	return s
}

// Lookup returns the field registered under name
func (s Schema) Lookup(name string) (Field, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Names returns the public field names in declaration order
func (s Schema) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Document is a record rendered by public field name. Values are string,
// bool, time.Time or []string according to the field kind.
type Document map[string]any

// Documenter is implemented by models the in-memory stores can filter
type Documenter interface {
	Document() Document
}

// coerce casts a decoded JSON value to the Go type of kind the way a schema
// typed document store does: numbers and booleans become strings, "true",
// "1", "yes" (and their false forms) become booleans. ok is false when the
// value can never equal a value of that kind.
func coerce(kind Kind, v any) (any, bool) {
	switch kind {
	case KindString, KindStringArray:
		switch x := v.(type) {
		case string:
			return x, true
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(x), true
		}
	case KindBool:
		switch x := v.(type) {
		case bool:
			return x, true
		case float64:
			switch x {
			case 1:
				return true, true
			case 0:
				return false, true
			}
		case string:
			switch x {
			case "true", "1", "yes":
				return true, true
			case "false", "0", "no":
				return false, true
			}
		}
	case KindTime:
		switch t := v.(type) {
		case string:
			parsed, err := ParseTime(t)
			if err != nil {
				return nil, false
			}
			return parsed, true
		case float64:
			return time.UnixMilli(int64(t)).UTC(), true
		}
	}
	return nil, false
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseTime accepts the date formats clients commonly send
func ParseTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
