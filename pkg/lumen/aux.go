package lumen

import "fmt"

// Argument checking for Go functions. All checks raise a RuntimeError
// through the protected-call channel on failure, so a library function can
// validate its arguments in a straight line and leave error reporting to
// the enclosing PCall.

// ArgError raises a runtime error blaming argument arg of the running
// function.
func (l *State) ArgError(arg int, msg string) {
	name := ""
	if f := l.currentFrame(); f != nil && f.name != "" {
		name = f.name
	}
	if name == "" {
		name = "?"
	}
	l.rt("bad argument #%d to '%s' (%s)", arg, name, msg)
}

func (l *State) typeError(arg int, want string) {
	l.ArgError(arg, fmt.Sprintf("%s expected, got %s", want, l.TypeName(l.TypeOf(arg))))
}

// CheckAny verifies that an argument of any type, nil included, was passed
// at position arg.
func (l *State) CheckAny(arg int) {
	if l.TypeOf(arg) == TypeNone {
		l.ArgError(arg, "value expected")
	}
}

// CheckType verifies that the argument at arg has exactly type t.
func (l *State) CheckType(arg int, t Type) {
	if l.TypeOf(arg) != t {
		l.typeError(arg, l.TypeName(t))
	}
}

// CheckNumber returns the argument at arg as a number, accepting
// convertible strings.
func (l *State) CheckNumber(arg int) float64 {
	n, ok := l.ToNumber(arg)
	if !ok {
		l.typeError(arg, "number")
	}
	return n
}

// CheckInteger returns the argument at arg as an integer, truncating a
// fractional part.
func (l *State) CheckInteger(arg int) int64 {
	n, ok := l.ToInteger(arg)
	if !ok {
		l.typeError(arg, "number")
	}
	return n
}

// CheckString returns the argument at arg as a string, accepting numbers.
func (l *State) CheckString(arg int) string {
	if t := l.TypeOf(arg); t != TypeString && t != TypeNumber {
		l.typeError(arg, "string")
	}
	s, _ := l.ToString(arg)
	return s
}

// CheckTable verifies the argument at arg is a table.
func (l *State) CheckTable(arg int) {
	l.CheckType(arg, TypeTable)
}

// CheckUserData returns the payload of the userdata at arg.
func (l *State) CheckUserData(arg int) any {
	if t := l.TypeOf(arg); t != TypeUserData && t != TypeLightUserData {
		l.typeError(arg, "userdata")
	}
	return l.ToUserData(arg)
}

// OptNumber returns the argument at arg as a number, or def when the
// argument is absent or nil.
func (l *State) OptNumber(arg int, def float64) float64 {
	if l.IsNoneOrNil(arg) {
		return def
	}
	return l.CheckNumber(arg)
}

// OptInteger returns the argument at arg as an integer, or def when the
// argument is absent or nil.
func (l *State) OptInteger(arg int, def int64) int64 {
	if l.IsNoneOrNil(arg) {
		return def
	}
	return l.CheckInteger(arg)
}

// OptString returns the argument at arg as a string, or def when the
// argument is absent or nil.
func (l *State) OptString(arg int, def string) string {
	if l.IsNoneOrNil(arg) {
		return def
	}
	return l.CheckString(arg)
}
