package query

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// SortField orders results by one field
type SortField struct {
	Field Field
	Desc  bool
}

// ParseSort decodes a sort document, keeping key order. Fields the schema
// does not know are skipped.
func ParseSort(raw string, schema Schema) ([]SortField, error) {
	pairs, err := decodeOrderedObject(raw)
	if err != nil {
		return nil, err
	}

	fields := make([]SortField, 0, len(pairs))
	seen := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		desc, err := sortDirection(p.value)
		if err != nil {
			return nil, fmt.Errorf("sort %s: %w", p.key, err)
		}
		field, ok := schema.Lookup(p.key)
		if !ok || seen[p.key] {
			continue
		}
		seen[p.key] = true
		fields = append(fields, SortField{Field: field, Desc: desc})
	}
	return fields, nil
}

func sortDirection(v any) (bool, error) {
	switch d := v.(type) {
	case float64:
		switch d {
		case 1:
			return false, nil
		case -1:
			return true, nil
		}
	case string:
		switch strings.ToLower(d) {
		case "1", "asc", "ascending":
			return false, nil
		case "-1", "desc", "descending":
			return true, nil
		}
	}
	return false, fmt.Errorf("invalid direction %v", v)
}

type keyValue struct {
	key   string
	value any
}

// decodeOrderedObject reads a flat JSON object preserving key order, which
// encoding/json maps do not.
func decodeOrderedObject(raw string) ([]keyValue, error) {
	dec := json.NewDecoder(strings.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("expected a JSON object")
	}

	var pairs []keyValue
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, errors.New("expected an object key")
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		pairs = append(pairs, keyValue{key: key, value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after object")
	}
	return pairs, nil
}
