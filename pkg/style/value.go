package style

import (
	"fmt"
	"reflect"
	"strings"
)

// PropertyValue is a property declaration: a constant or a zoom function.
type PropertyValue struct {
	Constant Value
	Function *Function
}

// Constant returns a constant declaration.
func Constant(v Value) PropertyValue {
	return PropertyValue{Constant: v}
}

// IsZero reports whether the declaration is empty.
func (p PropertyValue) IsZero() bool {
	return p.Constant == nil && p.Function == nil
}

// Evaluate returns the declaration's value at zoom z.
func (p PropertyValue) Evaluate(z float64) Value {
	if p.Function != nil {
		return p.Function.Evaluate(z)
	}
	return p.Constant
}

func (p PropertyValue) equal(o PropertyValue) bool {
	return reflect.DeepEqual(p, o)
}

// parsePropertyValue converts a decoded JSON value according to kind.
func parsePropertyValue(kind valueKind, raw any) (PropertyValue, error) {
	if obj, ok := raw.(map[string]any); ok {
		return parseFunction(kind, obj)
	}
	v, err := parseValue(kind, raw)
	if err != nil {
		return PropertyValue{}, err
	}
	return Constant(v), nil
}

func parseFunction(kind valueKind, obj map[string]any) (PropertyValue, error) {
	rawStops, ok := obj["stops"].([]any)
	if !ok || len(rawStops) == 0 {
		return PropertyValue{}, fmt.Errorf("function must have a non-empty stops array")
	}

	base := 1.0
	if b, ok := obj["base"]; ok {
		f, ok := b.(float64)
		if !ok {
			return PropertyValue{}, fmt.Errorf("function base must be a number")
		}
		base = f
	}

	stops := make([]Stop, 0, len(rawStops))
	for _, rs := range rawStops {
		pair, ok := rs.([]any)
		if !ok || len(pair) != 2 {
			return PropertyValue{}, fmt.Errorf("function stop must be a [zoom, value] pair")
		}
		z, ok := pair[0].(float64)
		if !ok {
			return PropertyValue{}, fmt.Errorf("function stop zoom must be a number")
		}
		v, err := parseValue(kind, pair[1])
		if err != nil {
			return PropertyValue{}, err
		}
		stops = append(stops, Stop{Zoom: z, Value: v})
	}
	return PropertyValue{Function: NewFunction(base, stops)}, nil
}

func parseValue(kind valueKind, raw any) (Value, error) {
	switch kind {
	case kindNumber:
		if f, ok := raw.(float64); ok {
			return f, nil
		}
	case kindColor:
		if s, ok := raw.(string); ok {
			return ParseColor(s)
		}
	case kindString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case kindBool:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	case kindArray:
		if arr, ok := raw.([]any); ok {
			out := make([]float64, len(arr))
			for i, e := range arr {
				f, ok := e.(float64)
				if !ok {
					return nil, fmt.Errorf("array element %d is not a number", i)
				}
				out[i] = f
			}
			return out, nil
		}
	case kindStringArray:
		if arr, ok := raw.([]any); ok {
			out := make([]string, len(arr))
			for i, e := range arr {
				s, ok := e.(string)
				if !ok {
					return nil, fmt.Errorf("array element %d is not a string", i)
				}
				out[i] = s
			}
			return strings.Join(out, ","), nil
		}
	case kindAny:
		if arr, ok := raw.([]any); ok {
			return parseValue(kindArray, arr)
		}
		return raw, nil
	}
	return nil, fmt.Errorf("expected %s, got %T", kind, raw)
}
