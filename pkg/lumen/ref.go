package lumen

// freeRefSlot chains released references through integer slot 0 of the
// holding table, so reference ids are recycled before the table grows.
const freeRefSlot = 0

// Ref pops the value on top of the stack and stores it in the table at
// index t under a fresh integer key, returning that key. A popped nil is
// not stored; RefNil comes back instead and is a valid argument to Unref.
func (l *State) Ref(t int) int {
	if l.IsNil(-1) {
		l.Pop(1)
		return RefNil
	}
	tbl := l.tableAt(t)
	v := l.stack[len(l.stack)-1]
	l.Pop(1)

	var ref int
	if head := tbl.getInt(freeRefSlot); !head.isNil() {
		ref = int(head.asNumber())
		tbl.setInt(freeRefSlot, tbl.getInt(ref))
	} else {
		ref = tbl.length() + 1
	}
	tbl.setInt(ref, v)
	return ref
}

// Unref releases reference ref in the table at index t, making the id
// available for reuse. Negative ids (RefNil, NoRef) are ignored, so the
// result of any Ref call may be passed back unconditionally.
func (l *State) Unref(t, ref int) {
	if ref < 0 {
		return
	}
	tbl := l.tableAt(t)
	tbl.setInt(ref, tbl.getInt(freeRefSlot))
	tbl.setInt(freeRefSlot, numberValue(float64(ref)))
}
