package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Pair is one named cell value. Pair order is significant and survives
// JSON round trips, unlike a plain map.
type Pair struct {
	Name  string
	Value string
}

// RawRow is a parsed sheet row before normalization, keyed by raw column
// name in source order.
type RawRow struct {
	Cells []Pair
}

// SourceRecord is one normalized logical row of product data.
type SourceRecord struct {
	Fields []Pair
}

// NormalizedSheet is the normalizer output: the records plus free-text
// descriptions keyed by field name, when the layout carried any.
type NormalizedSheet struct {
	Records           []SourceRecord    `json:"records"`
	FieldDescriptions map[string]string `json:"field_descriptions,omitempty"`

	// Layout names the convention the normalizer detected.
	Layout string `json:"-"`
}

// Sheet layouts the normalizer detects, in precedence order.
const (
	LayoutTransposed = "transposed"
	LayoutTemplate   = "template"
	LayoutFlat       = "flat"
)

func (r RawRow) MarshalJSON() ([]byte, error) {
	return marshalPairs(r.Cells)
}

func (r *RawRow) UnmarshalJSON(data []byte) error {
	pairs, err := unmarshalPairs(data)
	if err != nil {
		return err
	}
	r.Cells = pairs
	return nil
}

func (r SourceRecord) MarshalJSON() ([]byte, error) {
	return marshalPairs(r.Fields)
}

func (r *SourceRecord) UnmarshalJSON(data []byte) error {
	pairs, err := unmarshalPairs(data)
	if err != nil {
		return err
	}
	r.Fields = pairs
	return nil
}

// Get returns the value of the first field with the given name.
func (r SourceRecord) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

func marshalPairs(pairs []Pair) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func unmarshalPairs(data []byte) ([]Pair, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	var pairs []Pair
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		pairs = append(pairs, Pair{Name: key, Value: cellString(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// cellString renders any JSON cell value as the string the normalizer
// works with. Null becomes empty, composites keep their raw encoding.
func cellString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}
