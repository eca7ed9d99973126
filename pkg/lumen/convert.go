package lumen

// Type and conversion layer. Type queries never raise; unchecked
// conversions are total and return a zero/empty sentinel for incompatible
// tags, with the documented number<->string coercions as the only implicit
// ones. The checked family lives in aux.go and raises instead.

// TypeOf returns the type of the value at the given index, or TypeNone for
// an acceptable index with no element.
func (l *State) TypeOf(idx int) Type {
	v, valid := l.valueAt(idx)
	if !valid {
		return TypeNone
	}
	return v.t
}

// TypeName returns the display name of a type tag.
func (l *State) TypeName(t Type) string {
	return t.String()
}

// IsNil reports whether the value at the index is nil.
func (l *State) IsNil(idx int) bool {
	return l.TypeOf(idx) == TypeNil
}

// IsNone reports whether the index addresses no element.
func (l *State) IsNone(idx int) bool {
	return l.TypeOf(idx) == TypeNone
}

// IsNoneOrNil reports whether the index is empty or holds nil.
func (l *State) IsNoneOrNil(idx int) bool {
	t := l.TypeOf(idx)
	return t == TypeNone || t == TypeNil
}

// IsBoolean reports whether the value at the index is a boolean.
func (l *State) IsBoolean(idx int) bool {
	return l.TypeOf(idx) == TypeBoolean
}

// IsNumber reports whether the value at the index is a number or a string
// convertible to a number.
func (l *State) IsNumber(idx int) bool {
	v, valid := l.valueAt(idx)
	if !valid {
		return false
	}
	_, ok := v.toNumber()
	return ok
}

// IsString reports whether the value at the index is a string or a number
// (which is always convertible to a string).
func (l *State) IsString(idx int) bool {
	t := l.TypeOf(idx)
	return t == TypeString || t == TypeNumber
}

// IsTable reports whether the value at the index is a table.
func (l *State) IsTable(idx int) bool {
	return l.TypeOf(idx) == TypeTable
}

// IsFunction reports whether the value at the index is a function, native
// or interpreted.
func (l *State) IsFunction(idx int) bool {
	return l.TypeOf(idx) == TypeFunction
}

// IsGoFunction reports whether the value at the index is a native Go
// function.
func (l *State) IsGoFunction(idx int) bool {
	v, valid := l.valueAt(idx)
	if !valid {
		return false
	}
	_, ok := v.obj.(*goFunction)
	return v.t == TypeFunction && ok
}

// IsUserData reports whether the value at the index is a full or light
// userdata.
func (l *State) IsUserData(idx int) bool {
	t := l.TypeOf(idx)
	return t == TypeUserData || t == TypeLightUserData
}

// IsThread reports whether the value at the index is a thread.
func (l *State) IsThread(idx int) bool {
	return l.TypeOf(idx) == TypeThread
}

// ToNumber converts the value at the index to a number. Strings convert
// when their entire trimmed content is numeric; any other tag yields
// (0, false).
func (l *State) ToNumber(idx int) (float64, bool) {
	v, valid := l.valueAt(idx)
	if !valid {
		return 0, false
	}
	return v.toNumber()
}

// ToInteger converts like ToNumber and truncates toward zero.
func (l *State) ToInteger(idx int) (int64, bool) {
	n, ok := l.ToNumber(idx)
	if !ok {
		return 0, false
	}
	return int64(n), true
}

// ToBoolean converts the value at the index using the language truth rule:
// false and nil are false, everything else (zero and the empty string
// included) is true.
func (l *State) ToBoolean(idx int) bool {
	v, valid := l.valueAt(idx)
	if !valid {
		return false
	}
	return !v.isFalse()
}

// ToString converts the value at the index to a string. Numbers stringify
// in the canonical decimal format; any other non-string tag yields
// ("", false). The value on the stack is not modified.
func (l *State) ToString(idx int) (string, bool) {
	v, valid := l.valueAt(idx)
	if !valid {
		return "", false
	}
	switch v.t {
	case TypeString:
		return v.asString(), true
	case TypeNumber:
		return numberToString(v.asNumber()), true
	}
	return "", false
}

// ToUserData returns the payload of a full userdata, the raw pointer of a
// light userdata, or nil.
func (l *State) ToUserData(idx int) any {
	v, valid := l.valueAt(idx)
	if !valid {
		return nil
	}
	switch v.t {
	case TypeUserData:
		return v.obj.(*UserData).Data
	case TypeLightUserData:
		return v.obj
	}
	return nil
}

// ToThread returns the execution context at the index, or nil.
func (l *State) ToThread(idx int) *State {
	v, valid := l.valueAt(idx)
	if !valid || v.t != TypeThread {
		return nil
	}
	return v.obj.(*State)
}

// ToGoFunction returns the native function at the index, or nil for
// interpreted closures and non-functions.
func (l *State) ToGoFunction(idx int) Function {
	v, valid := l.valueAt(idx)
	if !valid {
		return nil
	}
	if gofn, ok := v.obj.(*goFunction); ok {
		return gofn.fn
	}
	return nil
}

// RawEqual compares two indices by identity/bit equality: no coercion, no
// metamethod dispatch. Empty indices are never equal to anything.
func (l *State) RawEqual(a, b int) bool {
	va, okA := l.valueAt(a)
	vb, okB := l.valueAt(b)
	if !okA || !okB {
		return false
	}
	return rawEqual(va, vb)
}

// Equal compares two indices for value equality, consulting the __eq
// metamethod for same-tag tables and userdata. The metamethod may run
// arbitrary code, so Equal is potentially reentrant and may raise.
func (l *State) Equal(a, b int) bool {
	va, okA := l.valueAt(a)
	vb, okB := l.valueAt(b)
	if !okA || !okB {
		return false
	}
	return l.equalValues(va, vb)
}

func (l *State) equalValues(va, vb value) bool {
	if rawEqual(va, vb) {
		return true
	}
	if va.t != vb.t {
		return false
	}
	var mm value
	switch va.t {
	case TypeTable:
		mm = va.asTable().metaField("__eq")
	case TypeUserData:
		mm = va.obj.(*UserData).metaField("__eq")
	default:
		return false
	}
	if mm.isNil() {
		return false
	}
	l.pushValue(mm)
	l.pushValue(va)
	l.pushValue(vb)
	l.callInternal(2, 1)
	return !l.pop().isFalse()
}

// LessThan compares two indices with ordering semantics: numbers and
// strings directly, otherwise through the __lt metamethod. Untagged or
// mixed-tag operands without a metamethod raise.
func (l *State) LessThan(a, b int) bool {
	va := l.mustValue(a)
	vb := l.mustValue(b)
	return l.lessThan(va, vb, false)
}

func (l *State) lessThan(va, vb value, orEqual bool) bool {
	if va.t == TypeNumber && vb.t == TypeNumber {
		if orEqual {
			return va.asNumber() <= vb.asNumber()
		}
		return va.asNumber() < vb.asNumber()
	}
	if va.t == TypeString && vb.t == TypeString {
		if orEqual {
			return va.asString() <= vb.asString()
		}
		return va.asString() < vb.asString()
	}
	event := "__lt"
	if orEqual {
		event = "__le"
	}
	mm := l.metaFieldOf(va, event)
	if mm.isNil() {
		mm = l.metaFieldOf(vb, event)
	}
	if mm.isNil() {
		l.rt("attempt to compare %s with %s", va.t, vb.t)
	}
	l.pushValue(mm)
	l.pushValue(va)
	l.pushValue(vb)
	l.callInternal(2, 1)
	return !l.pop().isFalse()
}

func (l *State) metaFieldOf(v value, name string) value {
	switch v.t {
	case TypeTable:
		return v.asTable().metaField(name)
	case TypeUserData:
		return v.obj.(*UserData).metaField(name)
	}
	return nilValue()
}

// metaField returns the named field of the metatable of a UserData.
func (u *UserData) metaField(name string) value {
	if u.meta == nil {
		return nilValue()
	}
	return u.meta.getRaw(stringValue(name))
}

// ObjLen returns the length of the value at the index: byte length for
// strings, border length for tables, 0 for everything else.
func (l *State) ObjLen(idx int) int {
	v, valid := l.valueAt(idx)
	if !valid {
		return 0
	}
	switch v.t {
	case TypeString:
		return len(v.asString())
	case TypeTable:
		return v.asTable().length()
	}
	return 0
}

// Concat pops n values and pushes their concatenation, coercing numbers to
// strings and consulting __concat for anything else. Concat of zero values
// pushes the empty string; of one value, leaves it unchanged.
func (l *State) Concat(n int) {
	if n == 0 {
		l.push(stringValue(""))
		return
	}
	if n == 1 {
		return
	}
	if l.Top() < n {
		l.rt("not enough elements to concatenate (%d requested)", n)
	}
	// fold right-to-left so __concat associates like the language does
	for n > 1 {
		b := l.pop()
		a := l.pop()
		l.push(l.concatPair(a, b))
		n--
	}
}

func (l *State) concatPair(a, b value) value {
	if concatable(a) && concatable(b) {
		return stringValue(a.displayString() + b.displayString())
	}
	mm := l.metaFieldOf(a, "__concat")
	if mm.isNil() {
		mm = l.metaFieldOf(b, "__concat")
	}
	if mm.isNil() {
		bad := a
		if concatable(a) {
			bad = b
		}
		l.rt("attempt to concatenate a %s value", bad.t)
	}
	l.pushValue(mm)
	l.pushValue(a)
	l.pushValue(b)
	l.callInternal(2, 1)
	return l.pop()
}

func concatable(v value) bool {
	return v.t == TypeString || v.t == TypeNumber
}

// pushValue is push for internal callers holding a raw value.
func (l *State) pushValue(v value) {
	l.push(v)
}
