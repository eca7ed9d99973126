package lumen_test

import (
	"testing"

	"github.com/lumenlang/lumen/pkg/lumen"
)

func TestTypeOf(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushNil()
	l.PushBoolean(false)
	l.PushNumber(1.5)
	l.PushString("s")
	l.NewTable()
	l.PushGoFunction(func(*lumen.State) int { return 0 })
	l.PushLightUserData(&struct{}{})

	want := []lumen.Type{
		lumen.TypeNil,
		lumen.TypeBoolean,
		lumen.TypeNumber,
		lumen.TypeString,
		lumen.TypeTable,
		lumen.TypeFunction,
		lumen.TypeLightUserData,
	}
	for i, w := range want {
		if got := l.TypeOf(i + 1); got != w {
			t.Errorf("slot %d: type %v, want %v", i+1, got, w)
		}
	}

	if l.TypeOf(100) != lumen.TypeNone {
		t.Error("absent slot must report TypeNone")
	}
}

func TestToNumberCoercion(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	tests := []struct {
		push func()
		want float64
		ok   bool
	}{
		{func() { l.PushNumber(3.25) }, 3.25, true},
		{func() { l.PushString("42") }, 42, true},
		{func() { l.PushString("  -7.5  ") }, -7.5, true},
		{func() { l.PushString("0x10") }, 16, true},
		{func() { l.PushString("1e3") }, 1000, true},
		{func() { l.PushString("12abc") }, 0, false},
		{func() { l.PushString("") }, 0, false},
		{func() { l.PushBoolean(true) }, 0, false},
		{func() { l.PushNil() }, 0, false},
	}
	for i, tt := range tests {
		tt.push()
		got, ok := l.ToNumber(-1)
		if ok != tt.ok || got != tt.want {
			t.Errorf("case %d: ToNumber = (%v, %v), want (%v, %v)", i, got, ok, tt.want, tt.ok)
		}
		l.Pop(1)
	}
}

func TestToBooleanTruthRule(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushNil()
	if l.ToBoolean(-1) {
		t.Error("nil must be false")
	}
	l.PushBoolean(false)
	if l.ToBoolean(-1) {
		t.Error("false must be false")
	}
	l.PushNumber(0)
	if !l.ToBoolean(-1) {
		t.Error("zero must be true")
	}
	l.PushString("")
	if !l.ToBoolean(-1) {
		t.Error("empty string must be true")
	}
}

func TestToStringDoesNotMutate(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushNumber(42)
	s, ok := l.ToString(-1)
	if !ok || s != "42" {
		t.Fatalf("ToString = (%q, %v), want (\"42\", true)", s, ok)
	}
	// the slot still holds a number afterwards
	if l.TypeOf(-1) != lumen.TypeNumber {
		t.Fatal("ToString must not rewrite the stack slot")
	}

	l.NewTable()
	if _, ok := l.ToString(-1); ok {
		t.Fatal("tables must not stringify")
	}
}

func TestNumberFormatting(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	tests := []struct {
		n    float64
		want string
	}{
		{42, "42"},
		{-7, "-7"},
		{0, "0"},
		{1.5, "1.5"},
		{1e20, "1e+20"},
	}
	for _, tt := range tests {
		l.PushNumber(tt.n)
		if s, _ := l.ToString(-1); s != tt.want {
			t.Errorf("%v stringifies to %q, want %q", tt.n, s, tt.want)
		}
		l.Pop(1)
	}
}

func TestRawEqualVsEqual(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushNumber(1)
	l.PushString("1")
	if l.RawEqual(1, 2) {
		t.Error("number and string must never be raw-equal")
	}
	if l.Equal(1, 2) {
		t.Error("number and string are not equal without a metamethod")
	}
	l.Pop(2)

	// two distinct tables compare equal through __eq
	l.NewTable() // mt
	l.PushGoFunction(func(l *lumen.State) int {
		l.PushBoolean(true)
		return 1
	})
	l.SetField(-2, "__eq")

	l.NewTable()
	l.PushValue(1)
	l.SetMetatable(-2)
	l.NewTable()
	l.PushValue(1)
	l.SetMetatable(-2)

	if l.RawEqual(2, 3) {
		t.Error("distinct tables must not be raw-equal")
	}
	if !l.Equal(2, 3) {
		t.Error("__eq metamethod must drive Equal for same-type tables")
	}
}

func TestLessThan(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushNumber(1)
	l.PushNumber(2)
	if !l.LessThan(1, 2) || l.LessThan(2, 1) {
		t.Error("numeric ordering broken")
	}
	l.Pop(2)

	l.PushString("abc")
	l.PushString("abd")
	if !l.LessThan(1, 2) {
		t.Error("string ordering broken")
	}
}

func TestConcat(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushString("n=")
	l.PushNumber(4)
	l.PushString("!")
	l.Concat(3)
	if s, _ := l.ToString(-1); s != "n=4!" {
		t.Fatalf("Concat(3) = %q, want %q", s, "n=4!")
	}
	if l.Top() != 1 {
		t.Fatalf("top = %d after Concat(3), want 1", l.Top())
	}

	// Concat(0) pushes the empty string
	l.Concat(0)
	if s, _ := l.ToString(-1); s != "" {
		t.Fatalf("Concat(0) = %q, want empty string", s)
	}
}

func TestObjLen(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushString("hello")
	if n := l.ObjLen(-1); n != 5 {
		t.Errorf("string length = %d, want 5", n)
	}
	l.Pop(1)

	l.NewTable()
	for i := 1; i <= 3; i++ {
		l.PushInteger(int64(i * 10))
		l.RawSetInt(-2, i)
	}
	if n := l.ObjLen(-1); n != 3 {
		t.Errorf("sequence length = %d, want 3", n)
	}
}
