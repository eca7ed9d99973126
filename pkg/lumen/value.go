package lumen

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type identifies the kind of a tagged value exchanged across the
// embedding boundary. The set is closed: exactly nine kinds, plus
// TypeNone for acceptable indices that hold no element.
type Type int

const (
	TypeNone Type = iota - 1

	TypeNil
	TypeBoolean
	TypeLightUserData
	TypeNumber
	TypeString
	TypeTable
	TypeFunction
	TypeUserData
	TypeThread

	typeCount
)

var typeNames = [...]string{
	"nil", "boolean", "userdata", "number",
	"string", "table", "function", "userdata", "thread",
}

// String returns the display name of the type ("no value" for TypeNone).
func (t Type) String() string {
	if t == TypeNone {
		return "no value"
	}
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// value is a stack-allocated tagged union.
// It avoids heap allocation for small primitives (Number, Boolean, Nil).
type value struct {
	t    Type
	data uint64 // float64 bits for numbers, 0/1 for booleans
	obj  any    // string, *Table, *goFunction, *scriptClosure, *UserData, *State, light userdata payload
}

// Constructors

func nilValue() value {
	return value{t: TypeNil}
}

func numberValue(n float64) value {
	return value{t: TypeNumber, data: math.Float64bits(n)}
}

func booleanValue(b bool) value {
	var data uint64
	if b {
		data = 1
	}
	return value{t: TypeBoolean, data: data}
}

func stringValue(s string) value {
	return value{t: TypeString, obj: s}
}

func tableValue(t *Table) value {
	return value{t: TypeTable, obj: t}
}

func lightUserDataValue(p any) value {
	return value{t: TypeLightUserData, obj: p}
}

func userDataValue(u *UserData) value {
	return value{t: TypeUserData, obj: u}
}

func threadValue(co *State) value {
	return value{t: TypeThread, obj: co}
}

func goFunctionValue(f *goFunction) value {
	return value{t: TypeFunction, obj: f}
}

func closureValue(c *scriptClosure) value {
	return value{t: TypeFunction, obj: c}
}

// Accessors

func (v value) asNumber() float64 {
	return math.Float64frombits(v.data)
}

func (v value) asBoolean() bool {
	return v.data == 1
}

func (v value) asString() string {
	s, _ := v.obj.(string)
	return s
}

func (v value) asTable() *Table {
	t, _ := v.obj.(*Table)
	return t
}

// isNil reports whether the value carries the nil tag.
func (v value) isNil() bool {
	return v.t == TypeNil
}

// isFalse implements the language truth rule: nil and false are false,
// everything else is true.
func (v value) isFalse() bool {
	return v.t == TypeNil || (v.t == TypeBoolean && v.data == 0)
}

// rawEqual is identity/bit equality: no coercion, no metamethod dispatch.
func rawEqual(a, b value) bool {
	if a.t != b.t {
		return false
	}
	switch a.t {
	case TypeNil:
		return true
	case TypeBoolean:
		return a.data == b.data
	case TypeNumber:
		return a.asNumber() == b.asNumber()
	case TypeString:
		return a.asString() == b.asString()
	default:
		return a.obj == b.obj
	}
}

// toNumber attempts the documented implicit coercion: numbers pass through,
// strings parse when their entire trimmed content is numeric.
func (v value) toNumber() (float64, bool) {
	switch v.t {
	case TypeNumber:
		return v.asNumber(), true
	case TypeString:
		return parseNumber(v.asString())
	}
	return 0, false
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		u, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return 0, false
		}
		return float64(u), true
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// numberToString formats a number in the canonical decimal format.
func numberToString(n float64) string {
	if n == math.Floor(n) && math.Abs(n) < 1e15 && !math.IsInf(n, 0) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', 14, 64)
}

// displayString renders a value the way the base library's tostring does.
func (v value) displayString() string {
	switch v.t {
	case TypeNil:
		return "nil"
	case TypeBoolean:
		if v.data == 1 {
			return "true"
		}
		return "false"
	case TypeNumber:
		return numberToString(v.asNumber())
	case TypeString:
		return v.asString()
	default:
		return fmt.Sprintf("%s: %p", v.t, v.obj)
	}
}
