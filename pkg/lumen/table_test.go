package lumen_test

import (
	"testing"

	"github.com/lumenlang/lumen/pkg/lumen"
)

func TestTableGetSet(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.NewTable()

	l.PushString("k")
	l.PushNumber(1)
	l.SetTable(-3)

	l.PushString("k")
	l.GetTable(-2)
	if n, _ := l.ToNumber(-1); n != 1 {
		t.Fatalf("t[k] = %v, want 1", n)
	}
	l.Pop(1)

	// field shorthand
	l.PushString("v")
	l.SetField(-2, "f")
	l.GetField(-1, "f")
	if s, _ := l.ToString(-1); s != "v" {
		t.Fatalf("t.f = %q, want %q", s, "v")
	}
	l.Pop(1)

	// missing key reads nil
	l.GetField(-1, "absent")
	if !l.IsNil(-1) {
		t.Fatal("absent key must read nil")
	}
}

func TestRawSetIntRelativeIndex(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.NewTable()
	// the table index resolves before the value is popped
	l.PushString("first")
	l.RawSetInt(-2, 1)
	l.PushString("second")
	l.RawSetInt(-2, 2)

	if l.Top() != 1 {
		t.Fatalf("top = %d, want 1 (only the table left)", l.Top())
	}
	l.RawGetInt(-1, 2)
	if s, _ := l.ToString(-1); s != "second" {
		t.Fatalf("t[2] = %q, want %q", s, "second")
	}
}

func TestTableKeyIdentity(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.NewTable()

	// 1 and 1.0 are the same key
	l.PushNumber(1)
	l.PushString("int")
	l.SetTable(-3)
	l.RawGetInt(-1, 1)
	if s, _ := l.ToString(-1); s != "int" {
		t.Fatalf("t[1] = %q, want %q", s, "int")
	}
	l.Pop(1)

	// assigning nil removes the entry
	l.PushNumber(1)
	l.PushNil()
	l.SetTable(-3)
	l.RawGetInt(-1, 1)
	if !l.IsNil(-1) {
		t.Fatal("nil assignment must delete the key")
	}
}

func TestTableNilKeyRejected(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushGoFunction(func(l *lumen.State) int {
		l.NewTable()
		l.PushNil()
		l.PushNumber(1)
		l.SetTable(-3)
		return 0
	})
	if st := l.PCall(0, 0, 0); st != lumen.RuntimeError {
		t.Fatalf("nil key store status = %d, want RuntimeError", st)
	}
}

func TestNextTraversal(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.NewTable()
	want := map[string]float64{"a": 1, "b": 2, "c": 3}
	for k, v := range want {
		l.PushNumber(v)
		l.SetField(-2, k)
	}

	got := map[string]float64{}
	l.PushNil()
	for l.Next(-2) {
		k, _ := l.ToString(-2)
		v, _ := l.ToNumber(-1)
		got[k] = v
		l.Pop(1)
	}
	if len(got) != len(want) {
		t.Fatalf("traversed %d pairs, want %d", len(got), len(want))
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("pair %q = %v, want %v", k, got[k], v)
		}
	}
	// traversal ends with the table alone on the stack
	if l.Top() != 1 {
		t.Fatalf("top = %d after traversal, want 1", l.Top())
	}
}

func TestNextEmptyTable(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.NewTable()
	l.PushNil()
	if l.Next(-2) {
		t.Fatal("Next on an empty table must report false")
	}
	if l.Top() != 1 {
		t.Fatalf("top = %d after exhausted Next, want 1 (key popped)", l.Top())
	}
}

func TestMetatableIndexChain(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	// base table with a default
	l.NewTable()
	l.PushString("inherited")
	l.SetField(-2, "d")
	base := l.Top()

	// mt = { __index = base }
	l.NewTable()
	l.PushValue(base)
	l.SetField(-2, "__index")
	mt := l.Top()

	// derived = setmetatable({}, mt)
	l.NewTable()
	l.PushValue(mt)
	l.SetMetatable(-2)

	l.GetField(-1, "d")
	if s, _ := l.ToString(-1); s != "inherited" {
		t.Fatalf("derived.d = %q, want %q through __index", s, "inherited")
	}
	l.Pop(1)

	// raw access bypasses the chain
	l.PushString("d")
	l.RawGet(-2)
	if !l.IsNil(-1) {
		t.Fatal("RawGet must not consult __index")
	}
}

func TestMetatableNewIndexFunction(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	var gotKey string
	l.NewTable()
	l.NewTable()
	l.PushGoFunction(func(l *lumen.State) int {
		gotKey = l.CheckString(2)
		return 0
	})
	l.SetField(-2, "__newindex")
	l.SetMetatable(-2)

	l.PushString("x")
	l.PushNumber(1)
	l.SetTable(-3)
	if gotKey != "x" {
		t.Fatalf("__newindex saw key %q, want %q", gotKey, "x")
	}

	// the write was intercepted, the table stays empty
	l.PushString("x")
	l.RawGet(-2)
	if !l.IsNil(-1) {
		t.Fatal("intercepted store must not land in the table")
	}
}

func TestGetSetMetatable(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.NewTable()
	if l.GetMetatable(-1) {
		t.Fatal("fresh table must have no metatable")
	}

	l.NewTable()
	l.PushString("tagged")
	l.SetField(-2, "id")
	l.SetMetatable(-2)

	if !l.GetMetatable(-1) {
		t.Fatal("metatable must be retrievable after SetMetatable")
	}
	l.GetField(-1, "id")
	if s, _ := l.ToString(-1); s != "tagged" {
		t.Fatalf("metatable id = %q, want %q", s, "tagged")
	}
}

func TestUserDataMetatable(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	type blob struct{ n int }
	l.NewUserData(&blob{n: 5})
	if !l.IsUserData(-1) {
		t.Fatal("NewUserData must leave a userdata on the stack")
	}

	l.NewTable()
	l.PushGoFunction(func(l *lumen.State) int {
		b := l.CheckUserData(1).(*blob)
		l.PushNumber(float64(b.n))
		return 1
	})
	l.SetField(-2, "__index")
	l.SetMetatable(-2)

	l.GetField(-1, "anything")
	if n, _ := l.ToNumber(-1); n != 5 {
		t.Fatalf("userdata __index result = %v, want 5", n)
	}
}
