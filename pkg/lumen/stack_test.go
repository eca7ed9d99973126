package lumen_test

import (
	"testing"

	"github.com/lumenlang/lumen/pkg/lumen"
)

func TestPushPopRoundTrip(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	if l.Top() != 0 {
		t.Fatalf("fresh context top = %d, want 0", l.Top())
	}

	l.PushNumber(42)
	l.PushString("hello")
	l.PushBoolean(true)
	l.PushNil()
	if l.Top() != 4 {
		t.Fatalf("top = %d after 4 pushes, want 4", l.Top())
	}

	l.Pop(4)
	if l.Top() != 0 {
		t.Fatalf("top = %d after popping everything, want 0", l.Top())
	}
}

func TestIndexResolution(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushString("bottom")
	l.PushString("middle")
	l.PushString("top")

	// -1 and the current top denote the same slot
	s1, _ := l.ToString(-1)
	s2, _ := l.ToString(l.Top())
	if s1 != "top" || s2 != "top" {
		t.Fatalf("index -1 = %q, index top = %q, want both %q", s1, s2, "top")
	}

	s, _ := l.ToString(1)
	if s != "bottom" {
		t.Fatalf("index 1 = %q, want %q", s, "bottom")
	}
	s, _ = l.ToString(-3)
	if s != "bottom" {
		t.Fatalf("index -3 = %q, want %q", s, "bottom")
	}

	// positive index beyond the top is acceptable and reads as absent
	if !l.IsNone(10) {
		t.Fatal("index beyond top should read as none")
	}
}

func TestSetTop(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	for i := 1; i <= 5; i++ {
		l.PushInteger(int64(i))
	}

	l.SetTop(3)
	if l.Top() != 3 {
		t.Fatalf("top = %d after SetTop(3), want 3", l.Top())
	}

	// growing the top fills with nil
	l.SetTop(6)
	if l.Top() != 6 {
		t.Fatalf("top = %d after SetTop(6), want 6", l.Top())
	}
	if !l.IsNil(6) || !l.IsNil(4) {
		t.Fatal("slots created by SetTop must hold nil")
	}

	// negative argument counts down from the top
	l.SetTop(-3)
	if l.Top() != 4 {
		t.Fatalf("top = %d after SetTop(-3), want 4", l.Top())
	}
	if !l.IsNil(-1) {
		t.Fatal("new top must still hold the nil the earlier growth created")
	}
	if n, _ := l.ToInteger(3); n != 3 {
		t.Fatalf("slot 3 holds %d, want 3", n)
	}
}

func TestPushValueRemoveInsertReplace(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushString("a")
	l.PushString("b")
	l.PushString("c")

	l.PushValue(1)
	if s, _ := l.ToString(-1); s != "a" {
		t.Fatalf("PushValue(1) pushed %q, want %q", s, "a")
	}

	l.Insert(2) // a, a, b, c
	if s, _ := l.ToString(2); s != "a" {
		t.Fatalf("Insert(2) placed %q at slot 2, want %q", s, "a")
	}
	if s, _ := l.ToString(4); s != "c" {
		t.Fatalf("slot 4 holds %q after Insert, want %q", s, "c")
	}

	l.Remove(2) // a, b, c
	if l.Top() != 3 {
		t.Fatalf("top = %d after Remove, want 3", l.Top())
	}
	if s, _ := l.ToString(2); s != "b" {
		t.Fatalf("slot 2 holds %q after Remove, want %q", s, "b")
	}

	l.PushString("z")
	l.Replace(1) // z, b, c
	if s, _ := l.ToString(1); s != "z" {
		t.Fatalf("slot 1 holds %q after Replace, want %q", s, "z")
	}
	if l.Top() != 3 {
		t.Fatalf("top = %d after Replace, want 3", l.Top())
	}
}

func TestReplaceRelativeIndex(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushString("a")
	l.PushString("b")
	l.PushString("c")

	// the target slot resolves against the stack before the pop
	l.Replace(-2)
	if l.Top() != 2 {
		t.Fatalf("top = %d after Replace(-2), want 2", l.Top())
	}
	if s, _ := l.ToString(2); s != "c" {
		t.Fatalf("slot 2 holds %q after Replace(-2), want %q", s, "c")
	}
	if s, _ := l.ToString(1); s != "a" {
		t.Fatalf("slot 1 holds %q, want %q", s, "a")
	}

	// Replace(-1) targets the popped value itself and nets a pop
	l.PushString("d")
	l.Replace(-1)
	if l.Top() != 2 {
		t.Fatalf("top = %d after Replace(-1), want 2", l.Top())
	}
	if s, _ := l.ToString(-1); s != "c" {
		t.Fatalf("top holds %q after Replace(-1), want %q", s, "c")
	}
}

func TestCheckStack(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	if !l.CheckStack(100) {
		t.Fatal("CheckStack(100) should succeed on a fresh context")
	}
	for i := 0; i < 100; i++ {
		l.PushInteger(int64(i))
	}
	if l.Top() != 100 {
		t.Fatalf("top = %d after 100 pushes, want 100", l.Top())
	}
}

func TestGlobalsPseudoIndex(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushNumber(7)
	l.SetField(lumen.GlobalsIndex, "answer")

	l.GetField(lumen.GlobalsIndex, "answer")
	if n, ok := l.ToNumber(-1); !ok || n != 7 {
		t.Fatalf("global answer = %v (ok=%v), want 7", n, ok)
	}
	l.Pop(1)

	// pseudo-indices do not disturb the stack top
	if l.Top() != 0 {
		t.Fatalf("top = %d after global round trip, want 0", l.Top())
	}
}

func TestRegistryPseudoIndex(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushString("stash")
	l.SetField(lumen.RegistryIndex, "k")

	l.GetField(lumen.RegistryIndex, "k")
	if s, _ := l.ToString(-1); s != "stash" {
		t.Fatalf("registry k = %q, want %q", s, "stash")
	}
	l.Pop(1)

	// the registry is per instance, not reachable from the globals
	l.GetField(lumen.GlobalsIndex, "k")
	if !l.IsNil(-1) {
		t.Fatal("registry entries must not leak into the globals table")
	}
	l.Pop(1)
}

func TestXMove(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()
	co := l.NewThread()
	l.Pop(1)

	l.PushString("x")
	l.PushString("y")
	lumen.XMove(l, co, 2)

	if l.Top() != 0 {
		t.Fatalf("source top = %d after XMove, want 0", l.Top())
	}
	if co.Top() != 2 {
		t.Fatalf("target top = %d after XMove, want 2", co.Top())
	}
	if s, _ := co.ToString(1); s != "x" {
		t.Fatalf("moved slot 1 = %q, want %q (order must be preserved)", s, "x")
	}
	if s, _ := co.ToString(2); s != "y" {
		t.Fatalf("moved slot 2 = %q, want %q", s, "y")
	}
}

func TestUpvalueIndex(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushNumber(10)
	l.PushNumber(32)
	l.PushGoClosure(func(l *lumen.State) int {
		a, _ := l.ToNumber(lumen.UpvalueIndex(1))
		b, _ := l.ToNumber(lumen.UpvalueIndex(2))
		l.PushNumber(a + b)
		return 1
	}, 2)

	if l.Top() != 1 {
		t.Fatalf("top = %d after PushGoClosure, want 1 (upvalues consumed)", l.Top())
	}

	l.Call(0, 1)
	if n, _ := l.ToNumber(-1); n != 42 {
		t.Fatalf("closure returned %v, want 42", n)
	}
}
