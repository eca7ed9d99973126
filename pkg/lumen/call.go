package lumen

import (
	"fmt"
)

// Call protocol. All three call shapes consume a callable plus nargs
// arguments already on the stack (callable first, then arguments in direct
// order) and leave results in their place. Errors raised inside a callee
// unwind as panics; a protected call converts them into a status code plus
// a single error value, so nothing escapes the boundary uncaught.

// runtimeErr is the panic payload of a raised error. The carried value is
// an arbitrary tagged value, not necessarily a string.
type runtimeErr struct {
	status int
	value  value
}

func (e *runtimeErr) Error() string {
	return e.value.displayString()
}

// rt raises a RuntimeError with position information for the running
// function.
func (l *State) rt(format string, args ...any) {
	msg := l.Where(1) + fmt.Sprintf(format, args...)
	panic(&runtimeErr{status: RuntimeError, value: stringValue(msg)})
}

// Error pops the value on top of the stack and raises it as a runtime
// error. The payload may be any tagged value.
func (l *State) Error() {
	if l.Top() < 1 {
		panic(&runtimeErr{status: RuntimeError, value: nilValue()})
	}
	panic(&runtimeErr{status: RuntimeError, value: l.pop()})
}

// Errorf raises a runtime error with a formatted string message prefixed
// by the current source position.
func (l *State) Errorf(format string, args ...any) {
	l.rt(format, args...)
}

// Where returns a "source:line: " position prefix for the frame level
// frames up from the running function, or the empty string when no line
// information is available (native frames).
func (l *State) Where(level int) string {
	i := len(l.frames) - level
	if i >= 1 && i < len(l.frames) {
		f := &l.frames[i]
		if f.closure != nil {
			p := f.closure.proto
			return fmt.Sprintf("%s:%d: ", shortSource(p.Source), p.Line(f.ip-1))
		}
	}
	return ""
}

// Call performs an unprotected call: the callable and nargs arguments are
// consumed, nresults values (or all of them for MultipleReturns) are left.
// An error inside the callee unwinds through the host's own call stack and
// is fatal to the embedding unless a protected call is active further out.
func (l *State) Call(nargs, nresults int) {
	if nargs < 0 || l.Top() < nargs+1 {
		l.rt("not enough elements for call (%d arguments)", nargs)
	}
	l.callInternal(nargs, nresults)
}

func (l *State) callInternal(nargs, nresults int) {
	fnSlot := len(l.stack) - nargs - 1
	l.call(fnSlot, nargs, nresults)
}

// PCall performs a protected call. On success it returns Ok with results on
// the stack as for Call. On failure everything pushed for the call is
// popped, a single error value is pushed (or the result of the error
// handler at stack index errfunc, invoked with the error value while the
// failing frames are still intact), and the corresponding non-zero status
// is returned.
func (l *State) PCall(nargs, nresults, errfunc int) int {
	if nargs < 0 || l.Top() < nargs+1 {
		l.rt("not enough elements for call (%d arguments)", nargs)
	}
	var handler value
	if errfunc != 0 {
		handler = l.mustValue(errfunc)
		if handler.t != TypeFunction {
			l.rt("error handler must be a function")
		}
	}

	fnSlot := len(l.stack) - nargs - 1
	savedFrames := len(l.frames)

	status := Ok
	var errVal value
	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			status, errVal = unwindPayload(r)
		}()
		l.call(fnSlot, nargs, nresults)
	}()
	if status == Ok {
		return Ok
	}

	// The handler observes the failing call's frames before they are
	// discarded, so it can still build a traceback.
	if !handler.isNil() && status != HandlerError {
		func() {
			defer func() {
				if r := recover(); r != nil {
					status = HandlerError
					_, errVal = unwindPayload(r)
				}
			}()
			l.push(handler)
			l.push(errVal)
			l.call(len(l.stack)-2, 1, 1)
			errVal = l.pop()
		}()
	}

	l.frames = l.frames[:savedFrames]
	clearFrom(l.stack, fnSlot)
	l.stack = l.stack[:fnSlot]
	l.push(errVal)
	return status
}

// unwindPayload normalizes a recovered panic into a status and error value.
// Panics that are not raised errors (bugs in host callbacks, for instance)
// are converted into runtime errors carrying their text.
func unwindPayload(r any) (int, value) {
	switch e := r.(type) {
	case *runtimeErr:
		return e.status, e.value
	case error:
		return RuntimeError, stringValue(e.Error())
	default:
		return RuntimeError, stringValue(fmt.Sprint(r))
	}
}

// CPCall calls a native function in protected mode with a single opaque
// pointer argument, visible to f as a light userdata at index 1. It is the
// sanctioned way to enter the VM from a context with no prior call frame.
func (l *State) CPCall(f Function, ud any) int {
	l.PushGoFunction(f)
	l.PushLightUserData(ud)
	return l.PCall(1, 0, 0)
}

// call runs the callable at absolute slot fnSlot with nargs arguments above
// it, leaving nresults adjusted results starting at fnSlot.
func (l *State) call(fnSlot, nargs, nresults int) {
	if len(l.frames) >= l.g.limits.MaxCallDepth {
		panic(&runtimeErr{status: RuntimeError, value: stringValue("stack overflow (call depth)")})
	}

	fn := l.stack[fnSlot]
	if fn.t != TypeFunction {
		mm := l.metaFieldOf(fn, "__call")
		if mm.isNil() {
			l.rt("attempt to call a %s value", fn.t)
		}
		// shift the callable and its arguments up one slot and put the
		// metamethod in front
		l.push(nilValue())
		copy(l.stack[fnSlot+1:], l.stack[fnSlot:len(l.stack)-1])
		l.stack[fnSlot] = mm
		nargs++
		fn = mm
	}

	switch callee := fn.obj.(type) {
	case *goFunction:
		l.frames = append(l.frames, frame{fnIndex: fnSlot, gofn: callee, nresults: nresults})
		if !l.CheckStack(MinStack) {
			l.popFrame()
			panic(&runtimeErr{status: RuntimeError, value: stringValue("stack overflow")})
		}
		n := callee.fn(l)
		if n < 0 || n > l.Top() {
			n = l.Top()
		}
		l.postCall(n)
	case *scriptClosure:
		l.frames = append(l.frames, frame{fnIndex: fnSlot, closure: callee, nresults: nresults})
		proto := callee.proto
		// adjust arguments to the declared parameter count
		l.SetTop(proto.NumParams)
		if !l.CheckStack(proto.MaxStack + MinStack) {
			l.popFrame()
			panic(&runtimeErr{status: RuntimeError, value: stringValue("stack overflow")})
		}
		n := l.exec()
		l.postCall(n)
	default:
		l.rt("attempt to call a %s value", fn.t)
	}
}

// postCall moves the top n results down over the callable and its
// arguments, adjusts the count to the caller's nresults, and pops the
// frame.
func (l *State) postCall(n int) {
	f := l.currentFrame()
	fnSlot := f.fnIndex
	want := f.nresults

	copy(l.stack[fnSlot:], l.stack[len(l.stack)-n:])
	clearFrom(l.stack, fnSlot+n)
	l.stack = l.stack[:fnSlot+n]
	l.popFrame()

	if want != MultipleReturns {
		for n < want {
			l.push(nilValue())
			n++
		}
		if n > want {
			clearFrom(l.stack, fnSlot+want)
			l.stack = l.stack[:fnSlot+want]
		}
	}
}

func (l *State) popFrame() {
	l.frames[len(l.frames)-1] = frame{}
	l.frames = l.frames[:len(l.frames)-1]
}
