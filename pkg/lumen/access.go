package lumen

// Table and field access. GetTable/SetTable dispatch through __index and
// __newindex and may therefore run arbitrary code; RawGet/RawSet are the
// only accesses guaranteed not to invoke metamethods or fail through one.

const maxIndexChain = 100 // cycle guard for chained __index/__newindex

// NewTable creates a fresh empty table and pushes it.
func (l *State) NewTable() {
	l.CreateTable(0, 0)
}

// CreateTable creates a table presized for narr array slots and nrec other
// keys, and pushes it.
func (l *State) CreateTable(narr, nrec int) {
	l.push(tableValue(newTableSize(narr, nrec)))
}

// NewUserData creates a full userdata owning the given payload, pushes it,
// and returns it. The VM instance tracks it so a __gc metafield runs at
// Close.
func (l *State) NewUserData(data any) *UserData {
	u := &UserData{Data: data}
	l.g.userdata = append(l.g.userdata, u)
	l.push(userDataValue(u))
	return u
}

// GetTable reads t[k] where t is at the given index and k is the value on
// top of the stack; the key is consumed and the result pushed. Dispatches
// through __index.
func (l *State) GetTable(idx int) {
	t := l.mustValue(idx)
	k := l.pop()
	l.push(l.indexGet(t, k))
}

// GetField reads t[name] with a string key; the result is pushed.
func (l *State) GetField(idx int, name string) {
	t := l.mustValue(idx)
	l.push(l.indexGet(t, stringValue(name)))
}

// SetTable writes t[k] = v where t is at the given index, v is on top and
// k just below it; both are consumed. Dispatches through __newindex.
func (l *State) SetTable(idx int) {
	t := l.mustValue(idx)
	v := l.pop()
	k := l.pop()
	l.indexSet(t, k, v)
}

// SetField writes t[name] = v with v on top of the stack, consumed.
func (l *State) SetField(idx int, name string) {
	t := l.mustValue(idx)
	v := l.pop()
	l.indexSet(t, stringValue(name), v)
}

// RawGet reads t[k] without metamethods; key on top, consumed, result
// pushed.
func (l *State) RawGet(idx int) {
	t := l.tableAt(idx)
	k := l.pop()
	l.push(t.getRaw(k))
}

// RawGetInt reads t[i] without metamethods and pushes the result.
func (l *State) RawGetInt(idx, i int) {
	l.push(l.tableAt(idx).getInt(i))
}

// RawSet writes t[k] = v without metamethods; value on top, key below,
// both consumed.
func (l *State) RawSet(idx int) {
	t := l.tableAt(idx)
	v := l.pop()
	k := l.pop()
	if !t.setRaw(k, v) {
		l.rt("invalid table key (%s)", k.t)
	}
}

// RawSetInt writes t[i] = v without metamethods; value on top, consumed.
func (l *State) RawSetInt(idx, i int) {
	// resolve the table before popping so relative indices stay valid
	t := l.tableAt(idx)
	v := l.pop()
	t.setInt(i, v)
}

func (l *State) tableAt(idx int) *Table {
	v := l.mustValue(idx)
	t := v.asTable()
	if t == nil {
		l.rt("table expected, got %s", v.t)
	}
	return t
}

// indexGet implements the full indexed-read protocol with __index chains.
func (l *State) indexGet(t, k value) value {
	for range maxIndexChain {
		if tbl := t.asTable(); tbl != nil {
			v := tbl.getRaw(k)
			if !v.isNil() {
				return v
			}
			mm := tbl.metaField("__index")
			if mm.isNil() {
				return nilValue()
			}
			if mm.t == TypeFunction {
				l.pushValue(mm)
				l.pushValue(t)
				l.pushValue(k)
				l.callInternal(2, 1)
				return l.pop()
			}
			t = mm
			continue
		}
		mm := l.metaFieldOf(t, "__index")
		if mm.isNil() {
			l.rt("attempt to index a %s value", t.t)
		}
		if mm.t == TypeFunction {
			l.pushValue(mm)
			l.pushValue(t)
			l.pushValue(k)
			l.callInternal(2, 1)
			return l.pop()
		}
		t = mm
	}
	l.rt("'__index' chain too long; possible loop")
	return nilValue()
}

// indexSet implements the full indexed-write protocol with __newindex
// chains.
func (l *State) indexSet(t, k, v value) {
	for range maxIndexChain {
		if tbl := t.asTable(); tbl != nil {
			if !tbl.getRaw(k).isNil() {
				tbl.setRaw(k, v)
				return
			}
			mm := tbl.metaField("__newindex")
			if mm.isNil() {
				if !tbl.setRaw(k, v) {
					l.rt("invalid table key (%s)", k.t)
				}
				return
			}
			if mm.t == TypeFunction {
				l.pushValue(mm)
				l.pushValue(t)
				l.pushValue(k)
				l.pushValue(v)
				l.callInternal(3, 0)
				return
			}
			t = mm
			continue
		}
		mm := l.metaFieldOf(t, "__newindex")
		if mm.isNil() {
			l.rt("attempt to index a %s value", t.t)
		}
		if mm.t == TypeFunction {
			l.pushValue(mm)
			l.pushValue(t)
			l.pushValue(k)
			l.pushValue(v)
			l.callInternal(3, 0)
			return
		}
		t = mm
	}
	l.rt("'__newindex' chain too long; possible loop")
}

// GetMetatable pushes the metatable of the value at the index and returns
// true, or pushes nothing and returns false when there is none.
func (l *State) GetMetatable(idx int) bool {
	v := l.mustValue(idx)
	var meta *Table
	switch v.t {
	case TypeTable:
		meta = v.asTable().meta
	case TypeUserData:
		meta = v.obj.(*UserData).meta
	}
	if meta == nil {
		return false
	}
	l.push(tableValue(meta))
	return true
}

// SetMetatable pops a table (or nil) from the top and sets it as the
// metatable of the value at the index.
func (l *State) SetMetatable(idx int) {
	v := l.mustValue(idx)
	m := l.pop()
	var meta *Table
	if !m.isNil() {
		meta = m.asTable()
		if meta == nil {
			l.rt("table or nil expected for metatable, got %s", m.t)
		}
	}
	switch v.t {
	case TypeTable:
		v.asTable().meta = meta
	case TypeUserData:
		v.obj.(*UserData).meta = meta
	default:
		l.rt("cannot set metatable on a %s value", v.t)
	}
}

// GetFEnv pushes the environment table of the function at the index
// (globals for functions without one).
func (l *State) GetFEnv(idx int) {
	v := l.mustValue(idx)
	env := l.g.globals
	switch fn := v.obj.(type) {
	case *goFunction:
		if fn.env != nil {
			env = fn.env
		}
	case *scriptClosure:
		if fn.env != nil {
			env = fn.env
		}
	}
	l.push(tableValue(env))
}

// SetFEnv pops a table from the top and installs it as the environment of
// the function at the index. Returns false when the value cannot carry an
// environment.
func (l *State) SetFEnv(idx int) bool {
	v := l.mustValue(idx)
	env := l.pop().asTable()
	if env == nil {
		l.rt("table expected for environment")
	}
	switch fn := v.obj.(type) {
	case *goFunction:
		fn.env = env
	case *scriptClosure:
		fn.env = env
	default:
		return false
	}
	return true
}

// Next pops a key from the stack and pushes the next key/value pair of the
// table at the given index, returning true; when the traversal is
// exhausted it pushes nothing and returns false. Start with a nil key.
//
// The traversal order is implementation-defined but stable while the
// table's key set is not mutated. Inserting or removing keys mid-traversal
// has undefined results; assigning to an existing key is allowed.
func (l *State) Next(idx int) bool {
	t := l.tableAt(idx)
	k := l.pop()
	nk, nv, found, ok := t.next(k)
	if !ok {
		l.rt("invalid key to 'next'")
	}
	if !found {
		return false
	}
	l.push(nk)
	l.push(nv)
	return true
}
