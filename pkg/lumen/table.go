package lumen

import (
	"math"
	"reflect"
)

// Table is the associative container of the VM. Keys are any non-nil,
// non-NaN value; numeric keys are normalized so 1 and 1.0 address the same
// slot.
//
// Iteration via next follows key insertion order. That order is stable only
// while the key set is not mutated: inserting or removing keys during a
// traversal (assigning to an existing key is fine) is a documented
// precondition violation with undefined behavior, exactly as the boundary
// contract states. Callers must not rely on insertion order being preserved
// across such mutation.
type Table struct {
	hash     map[any]value
	keys     []any // insertion order; deleted slots hold nil
	keyIndex map[any]int
	meta     *Table
}

func newTable() *Table {
	return &Table{
		hash:     make(map[any]value),
		keyIndex: make(map[any]int),
	}
}

func newTableSize(narr, nrec int) *Table {
	size := narr + nrec
	if size < 0 {
		size = 0
	}
	return &Table{
		hash:     make(map[any]value, size),
		keys:     make([]any, 0, size),
		keyIndex: make(map[any]int, size),
	}
}

// normalizeKey maps a tagged value to a Go map key, or reports failure for
// keys the contract rejects (nil, NaN, uncomparable light userdata).
func normalizeKey(k value) (any, bool) {
	switch k.t {
	case TypeNil:
		return nil, false
	case TypeBoolean:
		return k.data == 1, true
	case TypeNumber:
		n := k.asNumber()
		if math.IsNaN(n) {
			return nil, false
		}
		return n, true
	case TypeString:
		return k.asString(), true
	default:
		if k.obj == nil || !reflect.TypeOf(k.obj).Comparable() {
			return nil, false
		}
		return k.obj, true
	}
}

// getRaw reads a slot without metamethod dispatch; missing keys read nil.
func (t *Table) getRaw(k value) value {
	key, ok := normalizeKey(k)
	if !ok {
		return nilValue()
	}
	if v, ok := t.hash[key]; ok {
		return v
	}
	return nilValue()
}

func (t *Table) getInt(i int) value {
	if v, ok := t.hash[float64(i)]; ok {
		return v
	}
	return nilValue()
}

// setRaw writes a slot without metamethod dispatch. Writing nil deletes the
// key. Returns false for invalid keys.
func (t *Table) setRaw(k, v value) bool {
	key, ok := normalizeKey(k)
	if !ok {
		return false
	}
	if v.isNil() {
		if idx, present := t.keyIndex[key]; present {
			delete(t.hash, key)
			delete(t.keyIndex, key)
			t.keys[idx] = nil
		}
		return true
	}
	if _, present := t.hash[key]; !present {
		t.keyIndex[key] = len(t.keys)
		t.keys = append(t.keys, key)
	}
	t.hash[key] = v
	return true
}

func (t *Table) setInt(i int, v value) {
	t.setRaw(numberValue(float64(i)), v)
}

// length returns a border of the table's array part: the count of
// consecutive integer keys starting at 1.
func (t *Table) length() int {
	n := 0
	for {
		if _, ok := t.hash[float64(n+1)]; !ok {
			return n
		}
		n++
	}
}

// next returns the key/value pair following k in iteration order.
// A nil k starts the traversal. The third result is false when the
// traversal is exhausted; an error is returned for a key that is not
// present in the table.
func (t *Table) next(k value) (value, value, bool, bool) {
	start := 0
	if !k.isNil() {
		key, ok := normalizeKey(k)
		if !ok {
			return nilValue(), nilValue(), false, false
		}
		idx, present := t.keyIndex[key]
		if !present {
			return nilValue(), nilValue(), false, false
		}
		start = idx + 1
	}
	for i := start; i < len(t.keys); i++ {
		key := t.keys[i]
		if key == nil {
			continue
		}
		v, ok := t.hash[key]
		if !ok {
			continue
		}
		return keyToValue(key), v, true, true
	}
	return nilValue(), nilValue(), false, true
}

func keyToValue(key any) value {
	switch k := key.(type) {
	case bool:
		return booleanValue(k)
	case float64:
		return numberValue(k)
	case string:
		return stringValue(k)
	case *Table:
		return tableValue(k)
	case *UserData:
		return userDataValue(k)
	case *State:
		return threadValue(k)
	case *goFunction:
		return goFunctionValue(k)
	case *scriptClosure:
		return closureValue(k)
	default:
		return lightUserDataValue(k)
	}
}

// metaField returns the named field of the table's metatable, or nil.
func (t *Table) metaField(name string) value {
	if t.meta == nil {
		return nilValue()
	}
	return t.meta.getRaw(stringValue(name))
}
