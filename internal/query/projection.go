package query

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Projection selects which fields of a document are returned
type Projection struct {
	include bool
	fields  map[string]bool
	hideID  bool
}

// ParseProjection decodes a select document. An empty object yields a nil
// projection. Mixing inclusion and exclusion (other than _id) is an error.
func ParseProjection(raw string, schema Schema) (*Projection, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("select must be a JSON object: %w", err)
	}
	if len(obj) == 0 {
		return nil, nil
	}

	p := &Projection{fields: make(map[string]bool)}
	includes, excludes := 0, 0
	idOnly := true

	for name, value := range obj {
		on, err := projectionFlag(value)
		if err != nil {
			return nil, fmt.Errorf("select %s: %w", name, err)
		}
		if name == IDField {
			p.hideID = !on
			continue
		}
		idOnly = false
		if on {
			includes++
		} else {
			excludes++
		}
		if _, ok := schema.Lookup(name); ok {
			p.fields[name] = true
		}
	}

	if includes > 0 && excludes > 0 {
		return nil, errors.New("select cannot mix inclusion and exclusion")
	}
	p.include = includes > 0 || (idOnly && !p.hideID)
	return p, nil
}

func projectionFlag(v any) (bool, error) {
	switch f := v.(type) {
	case bool:
		return f, nil
	case float64:
		return f != 0, nil
	}
	return false, fmt.Errorf("invalid projection value %v", v)
}

// Apply returns the projected copy of doc
func (p *Projection) Apply(doc Document) Document {
	if p == nil {
		return doc
	}
	out := make(Document, len(doc))
	for name, value := range doc {
		if name == IDField {
			if !p.hideID {
				out[name] = value
			}
			continue
		}
		if p.fields[name] == p.include {
			out[name] = value
		}
	}
	return out
}
