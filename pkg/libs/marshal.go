package libs

import (
	"fmt"

	"github.com/lumenlang/lumen/pkg/lumen"
)

// pushGoValue pushes a plain Go value (the shapes yaml.v3 and
// encoding/json decode into) onto the stack. Maps and slices become
// tables.
func pushGoValue(l *lumen.State, v any) error {
	switch x := v.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(x)
	case int:
		l.PushInteger(int64(x))
	case int64:
		l.PushInteger(x)
	case uint64:
		l.PushNumber(float64(x))
	case float64:
		l.PushNumber(x)
	case string:
		l.PushString(x)
	case []byte:
		l.PushString(string(x))
	case []any:
		l.CreateTable(len(x), 0)
		for i, item := range x {
			if err := pushGoValue(l, item); err != nil {
				l.Pop(1)
				return err
			}
			l.RawSetInt(-2, i+1)
		}
	case map[string]any:
		l.CreateTable(0, len(x))
		for k, item := range x {
			if err := pushGoValue(l, item); err != nil {
				l.Pop(1)
				return err
			}
			l.SetField(-2, k)
		}
	case map[any]any:
		l.CreateTable(0, len(x))
		for k, item := range x {
			if err := pushGoValue(l, item); err != nil {
				l.Pop(1)
				return err
			}
			l.SetField(-2, fmt.Sprintf("%v", k))
		}
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

// toGoValue converts the value at idx into a plain Go value. Tables with
// a contiguous 1..n integer shape become slices, everything else becomes
// a string-keyed map. Cycles are reported as errors, not followed.
func toGoValue(l *lumen.State, idx int) (any, error) {
	return toGoValueDepth(l, idx, 0)
}

const maxMarshalDepth = 64

func toGoValueDepth(l *lumen.State, idx int, depth int) (any, error) {
	if depth > maxMarshalDepth {
		return nil, fmt.Errorf("value nesting too deep (cycle?)")
	}
	switch t := l.TypeOf(idx); t {
	case lumen.TypeNil, lumen.TypeNone:
		return nil, nil
	case lumen.TypeBoolean:
		return l.ToBoolean(idx), nil
	case lumen.TypeNumber:
		n, _ := l.ToNumber(idx)
		if n == float64(int64(n)) {
			return int64(n), nil
		}
		return n, nil
	case lumen.TypeString:
		s, _ := l.ToString(idx)
		return s, nil
	case lumen.TypeTable:
		return tableToGoValue(l, idx, depth)
	default:
		return nil, fmt.Errorf("cannot convert a %s value", l.TypeName(t))
	}
}

func tableToGoValue(l *lumen.State, idx int, depth int) (any, error) {
	abs := idx
	if idx < 0 {
		abs = l.Top() + idx + 1
	}

	n := l.ObjLen(abs)
	isArray := n > 0
	count := 0

	l.PushNil()
	for l.Next(abs) {
		count++
		if l.TypeOf(-2) != lumen.TypeNumber {
			isArray = false
		}
		l.Pop(1)
	}
	if count == 0 {
		return map[string]any{}, nil
	}
	if isArray && count != n {
		isArray = false
	}

	if isArray {
		out := make([]any, 0, n)
		for i := 1; i <= n; i++ {
			l.RawGetInt(abs, i)
			item, err := toGoValueDepth(l, -1, depth+1)
			l.Pop(1)
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	}

	out := make(map[string]any, count)
	l.PushNil()
	for l.Next(abs) {
		var key string
		switch l.TypeOf(-2) {
		case lumen.TypeString, lumen.TypeNumber:
			key, _ = l.ToString(-2)
		default:
			bad := l.TypeName(l.TypeOf(-2))
			l.Pop(2)
			return nil, fmt.Errorf("cannot use a %s value as a key", bad)
		}
		item, err := toGoValueDepth(l, -1, depth+1)
		if err != nil {
			l.Pop(2)
			return nil, err
		}
		out[key] = item
		l.Pop(1)
	}
	return out, nil
}
