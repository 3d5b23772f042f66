// Package telemetry turns raw simulator snapshots into display-ready values.
//
// Everything in this package is pure: Normalize, ParseTime and FormatTime
// perform no I/O and hold no state between calls.
package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies which variant a Field holds.
type Kind uint8

const (
	KindAbsent Kind = iota
	KindNull
	KindNumber
	KindString
	KindBool
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "absent"
	}
}

// Field is one value of a snapshot. The zero value is an absent field.
type Field struct {
	kind  Kind
	num   float64
	str   string
	flag  bool
	items []Field
}

func Number(v float64) Field { return Field{kind: KindNumber, num: v} }
func String(s string) Field { return Field{kind: KindString, str: s} }
func Bool(b bool) Field { return Field{kind: KindBool, flag: b} }
func Null() Field { return Field{kind: KindNull} }
func Array(items ...Field) Field { return Field{kind: KindArray, items: items} }

func Numbers(values ...float64) Field {
	items := make([]Field, len(values))
	for i, v := range values {
		items[i] = Number(v)
	}
	return Array(items...)
}

func (f Field) Kind() Kind { return f.kind }

// Present reports whether the field carries a value other than null.
func (f Field) Present() bool {
	return f.kind != KindAbsent && f.kind != KindNull
}

// Number returns the numeric value. Booleans coerce to 1 and 0 so that
// threshold comparisons behave like the producer's loosely typed records.
func (f Field) Number() (float64, bool) {
	switch f.kind {
	case KindNumber:
		return f.num, true
	case KindBool:
		if f.flag {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func (f Field) Text() (string, bool) {
	if f.kind != KindString {
		return "", false
	}
	return f.str, true
}

// Numbers returns the array elements when every element is numeric.
func (f Field) Numbers() ([]float64, bool) {
	if f.kind != KindArray {
		return nil, false
	}
	out := make([]float64, 0, len(f.items))
	for _, item := range f.items {
		v, ok := item.Number()
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

// Display renders the field the way a loosely typed client would print it.
func (f Field) Display() string {
	switch f.kind {
	case KindNumber:
		return formatNumber(f.num)
	case KindString:
		return f.str
	case KindBool:
		return strconv.FormatBool(f.flag)
	case KindNull:
		return "null"
	default:
		return ""
	}
}

func (f *Field) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty value")
	}

	switch data[0] {
	case 'n':
		*f = Null()
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*f = Bool(b)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = String(s)
	case '[':
		var items []Field
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*f = Array(items...)
	case '{':
		*f = Field{kind: KindObject}
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = Number(n)
	}
	return nil
}

func (f Field) MarshalJSON() ([]byte, error) {
	switch f.kind {
	case KindNumber:
		return json.Marshal(f.num)
	case KindString:
		return json.Marshal(f.str)
	case KindBool:
		return json.Marshal(f.flag)
	case KindArray:
		return json.Marshal(f.items)
	case KindObject:
		return []byte("{}"), nil
	default:
		return []byte("null"), nil
	}
}

// Snapshot is one decoded telemetry record keyed by metric name.
type Snapshot struct {
	fields map[string]Field
}

// DecodeSnapshot parses a JSON object message.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var fields map[string]Field
	if err := json.Unmarshal(data, &fields); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if fields == nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: message is not an object")
	}
	return Snapshot{fields: fields}, nil
}

// NewSnapshot builds a snapshot from typed fields.
func NewSnapshot(fields map[string]Field) Snapshot {
	copied := make(map[string]Field, len(fields))
	for name, field := range fields {
		copied[name] = field
	}
	return Snapshot{fields: copied}
}

// Get returns the named field, or an absent field when it is missing.
func (s Snapshot) Get(name string) Field {
	return s.fields[name]
}

func (s Snapshot) Len() int {
	return len(s.fields)
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.fields)
}
