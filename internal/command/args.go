package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DecodePayload decodes a message payload into raw arguments. A JSON array
// yields its elements, any other JSON value a single argument, and a payload
// that is not JSON the trimmed text itself. An empty payload yields none.
func DecodePayload(payload []byte) []any {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return []any{string(trimmed)}
	}

	v = normalizeJSON(v)
	if list, ok := v.([]any); ok {
		return list
	}
	return []any{v}
}

// normalizeJSON converts json.Number to int when integral, float64
// otherwise.
func normalizeJSON(v any) any {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil && n >= math.MinInt && n <= math.MaxInt {
			return int(n)
		}
		f, err := val.Float64()
		if err != nil {
			return val.String()
		}
		return f
	case []any:
		for i := range val {
			val[i] = normalizeJSON(val[i])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = normalizeJSON(val[k])
		}
		return val
	default:
		return v
	}
}

// AsString renders an argument as text.
func AsString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// AsInt coerces an argument to an int. Floats are truncated toward zero.
func AsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		return int(val), nil
	case bool:
		if val {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(val)
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int(f), nil
		}
	}
	return 0, fmt.Errorf("%w: %v is not a number", ErrInvalidArgument, v)
}

// AsFloat coerces an argument to a float64.
func AsFloat(v any) (float64, error) {
	switch val := v.(type) {
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case float64:
		return val, nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %v is not a number", ErrInvalidArgument, v)
}

// IsTruthy reports whether an argument is one of 1, "1", true, "true" or
// "True".
func IsTruthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case int:
		return val == 1
	case float64:
		return val == 1
	case string:
		switch strings.TrimSpace(val) {
		case "1", "true", "True":
			return true
		}
	}
	return false
}
