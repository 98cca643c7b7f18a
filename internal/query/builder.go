package query

import (
	"net/url"
)

// Query is a configured read over one collection
type Query struct {
	Filter     Expr
	Sort       []SortField
	Projection *Projection
	Skip       int
	Limit      int // 0 means no cap
	Count      bool
}

// Options carries per-resource defaults
type Options struct {
	DefaultLimit int
}

// Builder assembles a Query from raw parameters. Every step is independent:
// a value that fails to parse leaves that modifier unset and never fails the
// whole query.
type Builder struct {
	schema Schema
	q      Query
}

// NewBuilder starts a query for schema with the given defaults
func NewBuilder(schema Schema, opts Options) *Builder {
	limit := opts.DefaultLimit
	if limit < 0 {
		limit = 0
	}
	return &Builder{
		schema: schema,
		q:      Query{Limit: limit},
	}
}

// Parse builds a Query from url query parameters
func Parse(values url.Values, schema Schema, opts Options) Query {
	return NewBuilder(schema, opts).
		Where(values.Get("where")).
		Sort(values.Get("sort")).
		Select(values.Get("select")).
		Skip(values.Get("skip")).
		Limit(values.Get("limit")).
		Count(values.Get("count")).
		Build()
}

func (b *Builder) Where(raw string) *Builder {
	if raw == "" {
		return b
	}
	if expr, err := ParseFilter(raw, b.schema); err == nil {
		b.q.Filter = expr
	}
	return b
}

func (b *Builder) Sort(raw string) *Builder {
	if raw == "" {
		return b
	}
	if fields, err := ParseSort(raw, b.schema); err == nil {
		b.q.Sort = fields
	}
	return b
}

func (b *Builder) Select(raw string) *Builder {
	if raw == "" {
		return b
	}
	if p, err := ParseProjection(raw, b.schema); err == nil {
		b.q.Projection = p
	}
	return b
}

func (b *Builder) Skip(raw string) *Builder {
	if n, ok := parseLeadingInt(raw); ok && n >= 0 {
		b.q.Skip = n
	}
	return b
}

func (b *Builder) Limit(raw string) *Builder {
	if n, ok := parseLeadingInt(raw); ok {
		if n < 0 {
			n = -n
		}
		b.q.Limit = n
	}
	return b
}

func (b *Builder) Count(raw string) *Builder {
	b.q.Count = raw == "true"
	return b
}

func (b *Builder) Build() Query {
	return b.q
}

// Window applies skip and limit to a total match count
func (q Query) Window(total int) int {
	n := total - q.Skip
	if n < 0 {
		n = 0
	}
	if q.Limit > 0 && n > q.Limit {
		n = q.Limit
	}
	return n
}

// MaxWindow caps skip and limit values
const MaxWindow = 1<<31 - 1

// parseLeadingInt reads an optionally signed run of digits after leading
// whitespace, ignoring anything that follows ("10abc" is 10). Magnitudes past
// MaxWindow are clamped to it.
func parseLeadingInt(raw string) (int, bool) {
	i := 0
	for i < len(raw) && (raw[i] == ' ' || raw[i] == '\t' || raw[i] == '\n') {
		i++
	}
	neg := false
	if i < len(raw) && (raw[i] == '+' || raw[i] == '-') {
		neg = raw[i] == '-'
		i++
	}
	start := i
	n := 0
	for i < len(raw) && raw[i] >= '0' && raw[i] <= '9' {
		d := int(raw[i] - '0')
		if n > (MaxWindow-d)/10 {
			n = MaxWindow
		} else {
			n = n*10 + d
		}
		i++
	}
	if i == start {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}
