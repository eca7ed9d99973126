package lumen_test

import (
	"strings"
	"testing"

	"github.com/lumenlang/lumen/pkg/lumen"
)

func TestCoroutineYieldRoundTrip(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	co := l.NewThread()
	l.Pop(1)

	co.PushGoFunction(func(co *lumen.State) int {
		// yield [a, b], expect one resume argument back
		co.PushString("a")
		co.PushString("b")
		n := co.Yield(2)
		if n != 1 {
			co.Errorf("resume brought %d arguments, want 1", n)
		}
		reply, _ := co.ToString(-1)
		co.PushString("done:" + reply)
		return 1
	})

	if st := co.Resume(l, 0); st != lumen.Yield {
		t.Fatalf("first resume status = %d, want Yield", st)
	}
	if co.CoroutineStatus() != "suspended" {
		t.Fatalf("status after yield = %q, want suspended", co.CoroutineStatus())
	}
	a, _ := co.ToString(-2)
	b, _ := co.ToString(-1)
	if a != "a" || b != "b" {
		t.Fatalf("yield payload = [%q, %q], want [a, b]", a, b)
	}
	co.Pop(2)

	co.PushString("reply")
	if st := co.Resume(l, 1); st != lumen.Ok {
		s, _ := co.ToString(-1)
		t.Fatalf("second resume status = %d (%q), want Ok", st, s)
	}
	if s, _ := co.ToString(-1); s != "done:reply" {
		t.Fatalf("final result = %q, want %q", s, "done:reply")
	}
	if co.CoroutineStatus() != "dead" {
		t.Fatalf("finished coroutine status = %q, want dead", co.CoroutineStatus())
	}
}

func TestCoroutineResumeDead(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	co := l.NewThread()
	l.Pop(1)

	co.PushGoFunction(func(*lumen.State) int { return 0 })
	if st := co.Resume(l, 0); st != lumen.Ok {
		t.Fatalf("resume status = %d, want Ok", st)
	}

	if st := co.Resume(l, 0); st != lumen.RuntimeError {
		t.Fatalf("resuming a dead coroutine status = %d, want RuntimeError", st)
	}
	s, _ := co.ToString(-1)
	if !strings.Contains(s, "dead") {
		t.Fatalf("error = %q, want a dead-coroutine report", s)
	}
}

func TestResumeMainContext(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	if st := l.Resume(l, 0); st != lumen.RuntimeError {
		t.Fatalf("resuming the main context status = %d, want RuntimeError", st)
	}
	if n := l.ResumeResultCount(); n != 1 {
		t.Fatalf("result count = %d, want 1 (the error value)", n)
	}
	s, _ := l.ToString(-1)
	if !strings.Contains(s, "main context") {
		t.Fatalf("error = %q, want a main-context report", s)
	}
}

func TestResumeWithoutFunction(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	co := l.NewThread()
	l.Pop(1)

	if st := co.Resume(l, 0); st != lumen.RuntimeError {
		t.Fatalf("resume status = %d, want RuntimeError", st)
	}
	if n := co.ResumeResultCount(); n != 1 {
		t.Fatalf("result count = %d, want 1 (the error value)", n)
	}
	s, _ := co.ToString(-1)
	if !strings.Contains(s, "no function") {
		t.Fatalf("error = %q, want a missing-function report", s)
	}
}

func TestCoroutineError(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	co := l.NewThread()
	l.Pop(1)

	co.PushGoFunction(func(co *lumen.State) int {
		co.Errorf("exploded")
		return 0
	})
	st := co.Resume(l, 0)
	if st != lumen.RuntimeError {
		t.Fatalf("resume status = %d, want RuntimeError", st)
	}
	s, _ := co.ToString(-1)
	if !strings.Contains(s, "exploded") {
		t.Fatalf("error value = %q, want the raised message", s)
	}
	if co.CoroutineStatus() != "dead" {
		t.Fatalf("errored coroutine status = %q, want dead", co.CoroutineStatus())
	}
	// the terminal status is retained on the context
	if co.Status() != lumen.RuntimeError {
		t.Fatalf("retained status = %d, want RuntimeError", co.Status())
	}
}

func TestCoroutineArgumentsViaXMove(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	co := l.NewThread()
	l.Pop(1)

	co.PushGoFunction(func(co *lumen.State) int {
		x := co.CheckNumber(1)
		y := co.CheckNumber(2)
		co.PushNumber(x * y)
		return 1
	})
	l.PushNumber(6)
	l.PushNumber(7)
	lumen.XMove(l, co, 2)

	if st := co.Resume(l, 2); st != lumen.Ok {
		s, _ := co.ToString(-1)
		t.Fatalf("resume status = %d (%q), want Ok", st, s)
	}
	lumen.XMove(co, l, 1)
	if n, _ := l.ToNumber(-1); n != 42 {
		t.Fatalf("moved result = %v, want 42", n)
	}
}

func TestYieldOutsideCoroutine(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	l.PushGoFunction(func(l *lumen.State) int {
		l.Yield(0)
		return 0
	})
	if st := l.PCall(0, 0, 0); st != lumen.RuntimeError {
		t.Fatalf("yield on the main context status = %d, want RuntimeError", st)
	}
	s, _ := l.ToString(-1)
	if !strings.Contains(s, "outside a coroutine") {
		t.Fatalf("error = %q, want an outside-coroutine report", s)
	}
}

func TestMainContextStatus(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	if l.CoroutineStatus() != "running" {
		t.Fatalf("main context status = %q, want running", l.CoroutineStatus())
	}
	if l.Status() != lumen.Ok {
		t.Fatalf("main context status code = %d, want Ok", l.Status())
	}
	if l.MainThread() != l {
		t.Fatal("MainThread of the main context must be itself")
	}
}

func TestNewThreadSharesGlobals(t *testing.T) {
	l := lumen.NewState()
	defer l.Close()

	co := l.NewThread()
	if !l.IsThread(-1) {
		t.Fatal("NewThread must push the context as a thread value")
	}
	if l.ToThread(-1) != co {
		t.Fatal("pushed thread value must be the returned context")
	}
	l.Pop(1)

	l.PushString("shared")
	l.SetField(lumen.GlobalsIndex, "g")
	co.GetField(lumen.GlobalsIndex, "g")
	if s, _ := co.ToString(-1); s != "shared" {
		t.Fatalf("sibling context read global g = %q, want %q", s, "shared")
	}
	if co.InstanceID() != l.InstanceID() {
		t.Fatal("sibling contexts must report the same instance id")
	}
}
