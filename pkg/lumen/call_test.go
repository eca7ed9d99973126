package lumen_test

import (
	"strings"
	"testing"

	"github.com/lumenlang/lumen/pkg/lumen"
)

func TestCallGoFunction(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushGoFunction(func(l *lumen.State) int {
		a := l.CheckNumber(1)
		b := l.CheckNumber(2)
		l.PushNumber(a + b)
		return 1
	})
	l.PushNumber(2)
	l.PushNumber(40)
	l.Call(2, 1)

	if l.Top() != 1 {
		t.Fatalf("top = %d after Call(2, 1), want 1", l.Top())
	}
	if n, _ := l.ToNumber(-1); n != 42 {
		t.Fatalf("result = %v, want 42", n)
	}
}

func TestCallResultAdjustment(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	three := func(l *lumen.State) int {
		l.PushNumber(1)
		l.PushNumber(2)
		l.PushNumber(3)
		return 3
	}

	// truncation
	l.PushGoFunction(three)
	l.Call(0, 1)
	if l.Top() != 1 {
		t.Fatalf("top = %d with nresults 1, want 1", l.Top())
	}
	if n, _ := l.ToNumber(-1); n != 1 {
		t.Fatalf("kept result = %v, want the first one", n)
	}
	l.Pop(1)

	// padding with nil
	l.PushGoFunction(three)
	l.Call(0, 5)
	if l.Top() != 5 {
		t.Fatalf("top = %d with nresults 5, want 5", l.Top())
	}
	if !l.IsNil(5) {
		t.Fatal("padded slot must hold nil")
	}
	l.Pop(5)

	// MultipleReturns keeps exactly what the callee produced
	l.PushGoFunction(three)
	l.Call(0, lumen.MultipleReturns)
	if l.Top() != 3 {
		t.Fatalf("top = %d with MultipleReturns, want 3", l.Top())
	}
}

func TestPCallSuccess(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushGoFunction(func(l *lumen.State) int {
		l.PushString("fine")
		return 1
	})
	if st := l.PCall(0, 1, 0); st != lumen.Ok {
		t.Fatalf("PCall status = %d, want Ok", st)
	}
	if s, _ := l.ToString(-1); s != "fine" {
		t.Fatalf("result = %q, want %q", s, "fine")
	}
}

func TestPCallError(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushString("sentinel")
	height := l.Top()

	l.PushGoFunction(func(l *lumen.State) int {
		l.PushString("boom")
		l.Error()
		return 0
	})
	st := l.PCall(0, lumen.MultipleReturns, 0)
	if st != lumen.RuntimeError {
		t.Fatalf("PCall status = %d, want RuntimeError", st)
	}

	// the failed call leaves the prior height plus one error value
	if l.Top() != height+1 {
		t.Fatalf("top = %d after failed PCall, want %d", l.Top(), height+1)
	}
	if s, _ := l.ToString(-1); s != "boom" {
		t.Fatalf("error value = %q, want %q", s, "boom")
	}
	l.Pop(1)
	if s, _ := l.ToString(-1); s != "sentinel" {
		t.Fatalf("slot below error = %q, want the untouched %q", s, "sentinel")
	}
}

func TestPCallNonStringError(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushGoFunction(func(l *lumen.State) int {
		l.NewTable()
		l.PushNumber(99)
		l.SetField(-2, "code")
		l.Error()
		return 0
	})
	if st := l.PCall(0, 0, 0); st != lumen.RuntimeError {
		t.Fatalf("status = %d, want RuntimeError", st)
	}

	// the error payload arrives untouched, as a table
	if !l.IsTable(-1) {
		t.Fatalf("error payload type = %v, want table", l.TypeOf(-1))
	}
	l.GetField(-1, "code")
	if n, _ := l.ToNumber(-1); n != 99 {
		t.Fatalf("payload code = %v, want 99", n)
	}
}

func TestPCallHandler(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushGoFunction(func(l *lumen.State) int {
		msg, _ := l.ToString(1)
		l.PushString("wrapped: " + msg)
		return 1
	})
	handler := l.Top()

	l.PushGoFunction(func(l *lumen.State) int {
		l.Errorf("original")
		return 0
	})
	if st := l.PCall(0, 0, handler); st != lumen.RuntimeError {
		t.Fatalf("status = %d, want RuntimeError", st)
	}
	s, _ := l.ToString(-1)
	if !strings.HasPrefix(s, "wrapped: ") {
		t.Fatalf("handler did not transform the error: %q", s)
	}
}

func TestPCallHandlerError(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushGoFunction(func(l *lumen.State) int {
		l.Errorf("handler itself failed")
		return 0
	})
	handler := l.Top()

	l.PushGoFunction(func(l *lumen.State) int {
		l.Errorf("original")
		return 0
	})
	if st := l.PCall(0, 0, handler); st != lumen.HandlerError {
		t.Fatalf("status = %d, want HandlerError", st)
	}
}

func TestCPCall(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	seen := any(nil)
	payload := &struct{ n int }{n: 7}
	st := l.CPCall(func(l *lumen.State) int {
		seen = l.ToUserData(1)
		return 0
	}, payload)
	if st != lumen.Ok {
		t.Fatalf("CPCall status = %d, want Ok", st)
	}
	if seen != payload {
		t.Fatalf("callee saw %v as argument, want the passed pointer", seen)
	}
	if l.Top() != 0 {
		t.Fatalf("top = %d after CPCall, want 0 (no results kept)", l.Top())
	}

	st = l.CPCall(func(l *lumen.State) int {
		l.Errorf("nope")
		return 0
	}, nil)
	if st != lumen.RuntimeError {
		t.Fatalf("failing CPCall status = %d, want RuntimeError", st)
	}
	l.Pop(1)
}

func TestCallMetamethod(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	// a table made callable through __call
	l.NewTable()
	l.NewTable()
	l.PushGoFunction(func(l *lumen.State) int {
		// argument 1 is the called table itself
		if !l.IsTable(1) {
			l.Errorf("self argument missing")
		}
		n := l.CheckNumber(2)
		l.PushNumber(n * 2)
		return 1
	})
	l.SetField(-2, "__call")
	l.SetMetatable(-2)

	l.PushNumber(21)
	if st := l.PCall(1, 1, 0); st != lumen.Ok {
		s, _ := l.ToString(-1)
		t.Fatalf("callable table failed: %d %q", st, s)
	}
	if n, _ := l.ToNumber(-1); n != 42 {
		t.Fatalf("__call result = %v, want 42", n)
	}
}

func TestCallDepthLimit(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	var recurse lumen.Function
	recurse = func(l *lumen.State) int {
		l.PushGoFunction(recurse)
		l.Call(0, 0)
		return 0
	}
	l.PushGoFunction(recurse)
	st := l.PCall(0, 0, 0)
	if st != lumen.RuntimeError {
		t.Fatalf("runaway recursion status = %d, want RuntimeError", st)
	}
	s, _ := l.ToString(-1)
	if !strings.Contains(s, "stack overflow") {
		t.Fatalf("error = %q, want a stack overflow report", s)
	}
}
