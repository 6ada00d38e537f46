package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FieldKind tags the shape of a submitted field value.
type FieldKind uint8

const (
	FieldString FieldKind = iota + 1
	FieldStrings
	FieldJSON
)

// FieldValue is a single submitted value: a string, a list of strings, or
// any other JSON value kept verbatim.
type FieldValue struct {
	Kind FieldKind
	Str  string
	List []string
	Raw  json.RawMessage
}

func StringValue(s string) FieldValue { return FieldValue{Kind: FieldString, Str: s} }

func StringsValue(list []string) FieldValue {
	return FieldValue{Kind: FieldStrings, List: append([]string(nil), list...)}
}

func JSONValue(raw json.RawMessage) FieldValue {
	return FieldValue{Kind: FieldJSON, Raw: append(json.RawMessage(nil), raw...)}
}

// IsEmpty reports whether the value carries no data.
func (v FieldValue) IsEmpty() bool {
	switch v.Kind {
	case FieldString:
		return strings.TrimSpace(v.Str) == ""
	case FieldStrings:
		for _, s := range v.List {
			if strings.TrimSpace(s) != "" {
				return false
			}
		}
		return true
	case FieldJSON:
		raw := bytes.TrimSpace(v.Raw)
		return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
	}
	return true
}

// Display renders the value as plain text for notifications.
func (v FieldValue) Display() string {
	switch v.Kind {
	case FieldString:
		return v.Str
	case FieldStrings:
		return strings.Join(v.List, ", ")
	case FieldJSON:
		return string(v.Raw)
	}
	return ""
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case FieldString:
		return json.Marshal(v.Str)
	case FieldStrings:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	case FieldJSON:
		if len(v.Raw) == 0 {
			return []byte("null"), nil
		}
		return v.Raw, nil
	}
	return nil, fmt.Errorf("field value has unknown kind %d", v.Kind)
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	parsed, err := valueFromRaw(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func valueFromRaw(data []byte) (FieldValue, error) {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 {
		return FieldValue{}, errors.New("empty field value")
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return FieldValue{}, err
		}
		return StringValue(s), nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return FieldValue{}, err
		}
		list := make([]string, 0, len(items))
		for _, item := range items {
			item = bytes.TrimSpace(item)
			if len(item) == 0 || item[0] != '"' {
				return compactValue(raw)
			}
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				return FieldValue{}, err
			}
			list = append(list, s)
		}
		return StringsValue(list), nil
	}
	return compactValue(raw)
}

func compactValue(raw []byte) (FieldValue, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return FieldValue{}, err
	}
	return JSONValue(buf.Bytes()), nil
}

// Field is one named entry of a FieldMap.
type Field struct {
	Name  string
	Value FieldValue
}

// FieldMap is an ordered field name to value mapping. Names are unique.
type FieldMap []Field

func (m FieldMap) Len() int { return len(m) }

func (m FieldMap) index(name string) int {
	for i := range m {
		if m[i].Name == name {
			return i
		}
	}
	return -1
}

func (m FieldMap) Get(name string) (FieldValue, bool) {
	if i := m.index(name); i >= 0 {
		return m[i].Value, true
	}
	return FieldValue{}, false
}

// GetString returns the value of name when it is a plain string.
func (m FieldMap) GetString(name string) (string, bool) {
	v, ok := m.Get(name)
	if !ok || v.Kind != FieldString {
		return "", false
	}
	return v.Str, true
}

// Set replaces the value of name, or appends it when absent.
func (m *FieldMap) Set(name string, value FieldValue) {
	if i := m.index(name); i >= 0 {
		(*m)[i].Value = value
		return
	}
	*m = append(*m, Field{Name: name, Value: value})
}

// Add appends a string to name. A second value turns the field into a list.
func (m *FieldMap) Add(name, value string) {
	i := m.index(name)
	if i < 0 {
		*m = append(*m, Field{Name: name, Value: StringValue(value)})
		return
	}
	(*m)[i].Value = appendString((*m)[i].Value, value)
}

func appendString(cur FieldValue, value string) FieldValue {
	switch cur.Kind {
	case FieldString:
		return FieldValue{Kind: FieldStrings, List: []string{cur.Str, value}}
	case FieldStrings:
		cur.List = append(cur.List, value)
		return cur
	}
	return StringValue(value)
}

func (m *FieldMap) Delete(name string) {
	if i := m.index(name); i >= 0 {
		*m = append((*m)[:i], (*m)[i+1:]...)
	}
}

func (m FieldMap) Names() []string {
	names := make([]string, len(m))
	for i := range m {
		names[i] = m[i].Name
	}
	return names
}

// Reorder returns a copy sorted by order. Names missing from order keep
// their relative position after the ordered ones.
func (m FieldMap) Reorder(order []string) FieldMap {
	if len(order) == 0 {
		return m
	}
	out := make(FieldMap, 0, len(m))
	used := make(map[string]bool, len(m))
	for _, name := range order {
		if used[name] {
			continue
		}
		if v, ok := m.Get(name); ok {
			out = append(out, Field{Name: name, Value: v})
			used[name] = true
		}
	}
	for _, f := range m {
		if !used[f.Name] {
			out = append(out, f)
		}
	}
	return out
}

func (m FieldMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ErrFieldLimit reports a field map that grew past its limit.
var ErrFieldLimit = errors.New("too many fields")

// FieldBuilder collects fields in arrival order with constant-time name
// lookups. A positive limit bounds the number of distinct names.
type FieldBuilder struct {
	limit  int
	fields FieldMap
	index  map[string]int
}

func NewFieldBuilder(limit int) *FieldBuilder {
	return &FieldBuilder{limit: limit, index: make(map[string]int)}
}

func (b *FieldBuilder) slot(name string) (int, bool, error) {
	if i, ok := b.index[name]; ok {
		return i, true, nil
	}
	if b.limit > 0 && len(b.fields) >= b.limit {
		return 0, false, ErrFieldLimit
	}
	b.index[name] = len(b.fields)
	b.fields = append(b.fields, Field{Name: name})
	return len(b.fields) - 1, false, nil
}

// Set replaces the value of name, or appends it when absent.
func (b *FieldBuilder) Set(name string, value FieldValue) error {
	i, _, err := b.slot(name)
	if err != nil {
		return err
	}
	b.fields[i].Value = value
	return nil
}

// Add works like FieldMap.Add.
func (b *FieldBuilder) Add(name, value string) error {
	i, seen, err := b.slot(name)
	if err != nil {
		return err
	}
	if !seen {
		b.fields[i].Value = StringValue(value)
		return nil
	}
	b.fields[i].Value = appendString(b.fields[i].Value, value)
	return nil
}

func (b *FieldBuilder) Fields() FieldMap { return b.fields }

// DecodeFieldMap decodes a JSON object keeping key order. It stops with
// ErrFieldLimit as soon as more than limit distinct keys are seen; limit <= 0
// means no limit. A repeated key keeps its last value.
func DecodeFieldMap(data []byte, limit int) (FieldMap, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("field map must be a JSON object")
	}

	b := NewFieldBuilder(limit)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, errors.New("field map key must be a string")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		value, err := valueFromRaw(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		if err := b.Set(name, value); err != nil {
			return nil, err
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	out := b.Fields()
	if out == nil {
		out = FieldMap{}
	}
	return out, nil
}

// UnmarshalJSON decodes a JSON object keeping key order. Anything other
// than an object is rejected.
func (m *FieldMap) UnmarshalJSON(data []byte) error {
	out, err := DecodeFieldMap(data, 0)
	if err != nil {
		return err
	}
	*m = out
	return nil
}
