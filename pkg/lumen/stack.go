package lumen

// Value stack and index resolution.
//
// Index convention: i > 0 is absolute from the current frame base;
// i <= RegistryIndex is a pseudo-index resolved outside the stack;
// any other negative i denotes top + i + 1. Index 0 and out-of-range
// negative indices are errors, never silently clamped.

// base returns the absolute stack index of slot 1 of the current frame.
func (l *State) base() int {
	return l.currentFrame().fnIndex + 1
}

// Top returns the number of elements on the stack: the index of the top
// element, 0 for an empty stack.
func (l *State) Top() int {
	return len(l.stack) - l.base()
}

func isPseudo(idx int) bool {
	return idx <= RegistryIndex
}

// slotFor resolves a non-pseudo index to an absolute stack slot.
// ok is false for positive indices beyond the top (acceptable but empty);
// invalid indices raise.
func (l *State) slotFor(idx int) (slot int, ok bool) {
	base := l.base()
	switch {
	case idx > 0:
		slot = base + idx - 1
		if slot >= l.g.limits.MaxStack {
			l.rt("unacceptable index %d", idx)
		}
		return slot, slot < len(l.stack)
	case idx == 0 || isPseudo(idx):
		l.rt("invalid index %d", idx)
		return 0, false
	default:
		slot = len(l.stack) + idx
		if slot < base {
			l.rt("invalid index %d (top is %d)", idx, l.Top())
		}
		return slot, true
	}
}

// valueAt resolves any acceptable index, pseudo-indices included.
// valid is false when the index addresses no element.
func (l *State) valueAt(idx int) (v value, valid bool) {
	switch {
	case idx == RegistryIndex:
		return tableValue(l.g.registry), true
	case idx == GlobalsIndex:
		return tableValue(l.g.globals), true
	case idx == EnvironIndex:
		return tableValue(l.currentEnv()), true
	case isPseudo(idx):
		gofn := l.currentFrame().gofn
		if gofn == nil {
			return nilValue(), false
		}
		i := GlobalsIndex - idx
		if i < 1 || i > len(gofn.upvalues) {
			return nilValue(), false
		}
		return gofn.upvalues[i-1], true
	default:
		slot, ok := l.slotFor(idx)
		if !ok {
			return nilValue(), false
		}
		return l.stack[slot], true
	}
}

// mustValue is valueAt for callers that require an element.
func (l *State) mustValue(idx int) value {
	v, valid := l.valueAt(idx)
	if !valid {
		l.rt("invalid index %d (no value)", idx)
	}
	return v
}

// setValueAt writes through any writable index, pseudo-indices included.
func (l *State) setValueAt(idx int, v value) {
	switch {
	case idx == RegistryIndex:
		t := v.asTable()
		if t == nil {
			l.rt("registry must be a table")
		}
		l.g.registry = t
	case idx == GlobalsIndex:
		t := v.asTable()
		if t == nil {
			l.rt("globals must be a table")
		}
		l.g.globals = t
	case idx == EnvironIndex:
		t := v.asTable()
		if t == nil {
			l.rt("environment must be a table")
		}
		l.setCurrentEnv(t)
	case isPseudo(idx):
		gofn := l.currentFrame().gofn
		i := GlobalsIndex - idx
		if gofn == nil || i < 1 || i > len(gofn.upvalues) {
			l.rt("invalid upvalue index %d", i)
		}
		gofn.upvalues[i-1] = v
	default:
		slot, ok := l.slotFor(idx)
		if !ok {
			l.rt("invalid index %d (no value)", idx)
		}
		l.stack[slot] = v
	}
}

// currentEnv returns the environment table of the running function,
// or the globals table at host level.
func (l *State) currentEnv() *Table {
	f := l.currentFrame()
	switch {
	case f.gofn != nil:
		if f.gofn.env != nil {
			return f.gofn.env
		}
	case f.closure != nil:
		if f.closure.env != nil {
			return f.closure.env
		}
	}
	return l.g.globals
}

func (l *State) setCurrentEnv(t *Table) {
	f := l.currentFrame()
	switch {
	case f.gofn != nil:
		f.gofn.env = t
	case f.closure != nil:
		f.closure.env = t
	default:
		l.rt("no running function")
	}
}

// push appends one value, growing the stack up to the configured ceiling.
func (l *State) push(v value) {
	if len(l.stack) == cap(l.stack) {
		if !l.growStack(len(l.stack) + 1) {
			l.rt("stack overflow")
		}
	}
	l.stack = append(l.stack, v)
}

func (l *State) pop() value {
	v := l.stack[len(l.stack)-1]
	l.stack[len(l.stack)-1] = value{}
	l.stack = l.stack[:len(l.stack)-1]
	return v
}

func (l *State) growStack(want int) bool {
	if want <= cap(l.stack) {
		return true
	}
	if want > l.g.limits.MaxStack {
		return false
	}
	grown := cap(l.stack) * 2
	if grown < want {
		grown = want
	}
	if grown > l.g.limits.MaxStack {
		grown = l.g.limits.MaxStack
	}
	next := make([]value, len(l.stack), grown)
	copy(next, l.stack)
	l.stack = next
	return true
}

// CheckStack ensures space for at least n extra elements, growing the stack
// if needed. It returns false when the request would exceed the configured
// maximum stack size; it never shrinks the stack. Callers must size the
// stack before any multi-push sequence.
func (l *State) CheckStack(n int) bool {
	if n < 0 {
		return false
	}
	return l.growStack(len(l.stack) + n)
}

// SetTop grows (filling with nil) or shrinks (discarding) the stack to
// exactly idx elements. A negative idx addresses from the top, so
// SetTop(-n-1) pops n values; SetTop(0) empties the stack.
func (l *State) SetTop(idx int) {
	base := l.base()
	var target int
	if idx >= 0 {
		target = base + idx
		if target > l.g.limits.MaxStack {
			l.rt("stack overflow")
		}
	} else {
		target = len(l.stack) + idx + 1
		if target < base {
			l.rt("invalid new top %d", idx)
		}
	}
	for len(l.stack) < target {
		l.push(nilValue())
	}
	if target < len(l.stack) {
		clearFrom(l.stack, target)
		l.stack = l.stack[:target]
	}
}

func clearFrom(s []value, i int) {
	for j := i; j < len(s); j++ {
		s[j] = value{}
	}
}

// Pop pops n elements from the stack.
func (l *State) Pop(n int) {
	l.SetTop(-n - 1)
}

// PushValue pushes a copy of the element at the given index.
func (l *State) PushValue(idx int) {
	l.push(l.mustValue(idx))
}

// Remove deletes the element at the given index, shifting everything above
// it down by one. Pseudo-indices are not stack positions and are rejected.
func (l *State) Remove(idx int) {
	if isPseudo(idx) {
		l.rt("invalid index %d", idx)
	}
	slot, ok := l.slotFor(idx)
	if !ok {
		l.rt("invalid index %d (no value)", idx)
	}
	copy(l.stack[slot:], l.stack[slot+1:])
	l.stack[len(l.stack)-1] = value{}
	l.stack = l.stack[:len(l.stack)-1]
}

// Insert moves the top element into the given index, shifting everything at
// and above that position up by one.
func (l *State) Insert(idx int) {
	if isPseudo(idx) {
		l.rt("invalid index %d", idx)
	}
	slot, ok := l.slotFor(idx)
	if !ok {
		l.rt("invalid index %d (no value)", idx)
	}
	top := l.stack[len(l.stack)-1]
	copy(l.stack[slot+1:], l.stack[slot:len(l.stack)-1])
	l.stack[slot] = top
}

// Replace overwrites the element at the given index with the top value and
// pops the top. The index may be a writable pseudo-index.
func (l *State) Replace(idx int) {
	if idx > 0 || isPseudo(idx) {
		// targets unaffected by the pop
		v := l.pop()
		l.setValueAt(idx, v)
		return
	}
	// relative indices resolve against the stack before the pop
	slot, ok := l.slotFor(idx)
	if !ok {
		l.rt("invalid index %d (no value)", idx)
	}
	v := l.pop()
	if slot < len(l.stack) {
		l.stack[slot] = v
	}
}

// Push family: one entry per value kind.

// PushNil pushes a nil value.
func (l *State) PushNil() {
	l.push(nilValue())
}

// PushBoolean pushes a boolean.
func (l *State) PushBoolean(b bool) {
	l.push(booleanValue(b))
}

// PushNumber pushes a number.
func (l *State) PushNumber(n float64) {
	l.push(numberValue(n))
}

// PushInteger pushes an integral number.
func (l *State) PushInteger(i int64) {
	l.push(numberValue(float64(i)))
}

// PushString pushes a string.
func (l *State) PushString(s string) {
	l.push(stringValue(s))
}

// PushLightUserData pushes a raw host pointer; the VM takes no ownership.
func (l *State) PushLightUserData(p any) {
	l.push(lightUserDataValue(p))
}

// PushGoFunction pushes a Go function with no upvalues.
func (l *State) PushGoFunction(f Function) {
	l.PushGoClosure(f, 0)
}

// PushGoClosure pops n values from the stack and pushes a Go closure
// capturing them as upvalues, addressable through UpvalueIndex while the
// closure runs.
func (l *State) PushGoClosure(f Function, n int) {
	if n > l.Top() {
		l.rt("not enough upvalues on the stack (%d requested)", n)
	}
	ups := make([]value, n)
	for i := n - 1; i >= 0; i-- {
		ups[i] = l.pop()
	}
	l.push(goFunctionValue(&goFunction{fn: f, upvalues: ups, env: l.currentEnv()}))
}

// PushThread pushes the execution context co as a thread value.
func (l *State) PushThread(co *State) {
	l.push(threadValue(co))
}

// XMove transfers n values from the top of one context's stack to the top
// of another's, adjusting both heights. It is the only sanctioned way to
// move values between contexts and requires both to belong to the same VM
// instance.
func XMove(from, to *State, n int) {
	if from == to || n == 0 {
		return
	}
	if from.g != to.g {
		from.rt("cannot move values between independent VM instances")
	}
	if from.Top() < n {
		from.rt("not enough elements to move (%d requested)", n)
	}
	if !to.CheckStack(n) {
		to.rt("stack overflow")
	}
	start := len(from.stack) - n
	for _, v := range from.stack[start:] {
		to.push(v)
	}
	clearFrom(from.stack, start)
	from.stack = from.stack[:start]
}
