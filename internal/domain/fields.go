package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type FieldKind int

const (
	FieldNull FieldKind = iota
	FieldString
	FieldNumber
)

// FieldValue is a tracker field value: a string, a number or null.
type FieldValue struct {
	Kind FieldKind
	Str  string
	Num  float64
}

func StringValue(s string) FieldValue  { return FieldValue{Kind: FieldString, Str: s} }
func NumberValue(n float64) FieldValue { return FieldValue{Kind: FieldNumber, Num: n} }
func NullValue() FieldValue            { return FieldValue{Kind: FieldNull} }

// Any returns the value as it should appear in a JSON patch document.
func (v FieldValue) Any() any {
	switch v.Kind {
	case FieldString:
		return v.Str
	case FieldNumber:
		return v.Num
	default:
		return nil
	}
}

func (v FieldValue) String() string {
	switch v.Kind {
	case FieldString:
		return v.Str
	case FieldNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return "null"
	}
}

func (v FieldValue) MarshalJSON() ([]byte, error) { return json.Marshal(v.Any()) }

func (v *FieldValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*v = NullValue()
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	default:
		var n float64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("field value must be a string, number or null, got %s", b)
		}
		*v = NumberValue(n)
	}
	return nil
}

// FieldUpdates maps field reference names to new values. Insertion order, or
// document order when decoded from JSON, is the patch-operation order.
type FieldUpdates struct {
	*orderedmap.OrderedMap[string, FieldValue]
}

func NewFieldUpdates() FieldUpdates {
	return FieldUpdates{orderedmap.New[string, FieldValue]()}
}

// With appends or overwrites name and returns u for chaining.
func (u FieldUpdates) With(name string, value FieldValue) FieldUpdates {
	if u.OrderedMap == nil {
		u = NewFieldUpdates()
	}
	u.Set(name, value)
	return u
}

func (u FieldUpdates) Len() int {
	if u.OrderedMap == nil {
		return 0
	}
	return u.OrderedMap.Len()
}

// Each visits entries in order.
func (u FieldUpdates) Each(fn func(name string, value FieldValue)) {
	if u.OrderedMap == nil {
		return
	}
	for pair := u.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

func (u FieldUpdates) MarshalJSON() ([]byte, error) {
	if u.OrderedMap == nil {
		return []byte("{}"), nil
	}
	return u.OrderedMap.MarshalJSON()
}

func (u *FieldUpdates) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		u.OrderedMap = nil
		return nil
	}
	u.OrderedMap = orderedmap.New[string, FieldValue]()
	return u.OrderedMap.UnmarshalJSON(b)
}
