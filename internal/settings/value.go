package settings

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind tells how a Value was produced.
type Kind int

// Value kinds.
const (
	KindScalar Kind = iota
	KindStructured
)

// Value is a setting value resolved at the write boundary: either a plain
// string or the JSON encoding of a structured value. Both are stored as
// strings.
type Value struct {
	kind Kind
	raw  string
}

// Scalar wraps s unchanged.
func Scalar(s string) Value {
	return Value{kind: KindScalar, raw: s}
}

// Structured JSON-encodes v.
func Structured(v any) (Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Value{}, fmt.Errorf("settings: encoding structured value: %w", err)
	}

	return Value{kind: KindStructured, raw: string(b)}, nil
}

// ValueOf picks the representation for v. Strings, booleans, and numbers
// are scalars; nil is the empty scalar; everything else is structured.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Scalar(""), nil
	case Value:
		return x, nil
	case string:
		return Scalar(x), nil
	case bool:
		return Scalar(strconv.FormatBool(x)), nil
	case int:
		return Scalar(strconv.Itoa(x)), nil
	case int64:
		return Scalar(strconv.FormatInt(x, 10)), nil
	case int32:
		return Scalar(strconv.FormatInt(int64(x), 10)), nil
	case uint:
		return Scalar(strconv.FormatUint(uint64(x), 10)), nil
	case uint64:
		return Scalar(strconv.FormatUint(x, 10)), nil
	case float64:
		return Scalar(strconv.FormatFloat(x, 'f', -1, 64)), nil
	case float32:
		return Scalar(strconv.FormatFloat(float64(x), 'f', -1, 32)), nil
	case json.Number:
		return Scalar(x.String()), nil
	default:
		return Structured(v)
	}
}

// Kind reports how the value was produced.
func (v Value) Kind() Kind { return v.kind }

// String returns the stored form.
func (v Value) String() string { return v.raw }
