package lumen

// Coroutine control. Each non-main execution context is backed by a parked
// goroutine; suspension and resumption are explicit channel handoffs, so
// exactly one context of a VM instance runs at any moment and a resumed
// context runs to its next yield or return before control comes back.
// There is no preemption and no hidden parallelism.

// Status returns the context's status: Ok for a normally running or
// freshly created context, Yield for one parked on a yield, or the error
// status it died with. The terminal status is retained, so a clean
// completion (Ok) remains distinguishable from error termination.
func (l *State) Status() int {
	return l.status
}

// CoroutineStatus reports the state-machine position of the context:
// "running", "suspended", "normal" (it resumed another context and waits
// for it) or "dead". The main context always reads "running".
func (l *State) CoroutineStatus() string {
	if l.coro == nil {
		return "running"
	}
	switch l.coro.st {
	case coRunning:
		return "running"
	case coNormal:
		return "normal"
	case coDead:
		return "dead"
	default:
		return "suspended"
	}
}

// Resume starts or continues the context co with nargs argument values on
// top of co's stack (placed there beforehand, normally via XMove). It runs
// co until its next yield or termination and returns Yield, Ok, or the
// error status; on Yield the payload values sit on top of co's stack, on
// error a single error value does. Resuming a dead or non-suspended
// context is itself an error result, never a silent no-op.
//
// from is the resuming context; while co runs, a coroutine resumer is in
// the "normal" state and not independently resumable.
func (co *State) Resume(from *State, nargs int) int {
	if co.coro == nil {
		co.push(stringValue("cannot resume the main context"))
		return RuntimeError
	}
	if from.g != co.g {
		from.rt("cannot resume a context of another VM instance")
	}
	switch co.coro.st {
	case coDead:
		co.push(stringValue("cannot resume dead coroutine"))
		co.coro.nret = 1
		return RuntimeError
	case coRunning, coNormal:
		co.push(stringValue("cannot resume non-suspended coroutine"))
		co.coro.nret = 1
		return RuntimeError
	}

	if !co.coro.started {
		if co.Top() < nargs+1 {
			co.push(stringValue("no function to resume"))
			co.coro.nret = 1
			return RuntimeError
		}
	}

	if from.coro != nil {
		from.coro.st = coNormal
	}
	co.coro.st = coRunning
	co.status = Ok

	if !co.coro.started {
		co.coro.started = true
		go co.run(nargs)
	} else {
		co.coro.resumeCh <- nargs
	}
	ev := <-co.coro.yieldCh

	if from.coro != nil {
		from.coro.st = coRunning
	}
	if ev.yield {
		co.coro.st = coSuspended
		co.coro.nret = ev.n
		co.status = Yield
		return Yield
	}
	co.coro.st = coDead
	co.status = ev.status
	if ev.status == Ok {
		co.coro.nret = co.Top()
	} else {
		co.coro.nret = 1
	}
	return ev.status
}

// ResumeResultCount reports how many values the latest Resume left on top
// of the context's stack: the yield payload, the final results, or the
// single error value.
func (co *State) ResumeResultCount() int {
	if co.coro == nil {
		// a resume attempt on the main context always leaves exactly the
		// error value
		return 1
	}
	return co.coro.nret
}

// run is the goroutine body of a coroutine: one protected call of the
// function at the bottom of the context's stack, then death.
func (co *State) run(nargs int) {
	status := Ok
	func() {
		defer func() {
			if r := recover(); r != nil {
				var errVal value
				status, errVal = unwindPayload(r)
				co.frames = co.frames[:1]
				co.stack = co.stack[:0]
				co.push(errVal)
			}
		}()
		co.callInternal(nargs, MultipleReturns)
	}()
	co.coro.yieldCh <- coroEvent{status: status}
}

// Yield suspends the current context, handing the top nresults values to
// the resumer as the payload. It returns only when the context is resumed
// again, and reports the number of resume arguments then sitting on top of
// the stack. Yielding outside a coroutine is an error.
func (l *State) Yield(nresults int) int {
	if l.coro == nil {
		l.rt("attempt to yield from outside a coroutine")
	}
	if l.coro.st != coRunning {
		l.rt("attempt to yield a non-running coroutine")
	}
	if nresults > l.Top() {
		l.rt("not enough values to yield (%d requested)", nresults)
	}
	l.coro.yieldCh <- coroEvent{yield: true, n: nresults}
	return <-l.coro.resumeCh
}
