// Package lumen implements the embedding boundary of the Lumen virtual
// machine: the contract by which a host process exchanges tagged values with
// the interpreter through a per-context value stack, invokes and resumes
// callable units, retains values past the call that produced them, and
// inspects execution state.
//
// The API follows the classic stack-indexing model: positive indices are
// absolute positions from the current frame base, negative indices count
// down from the top, and a small set of pseudo-indices address persistent
// tables (registry, globals, environment, upvalues) that live outside the
// stack.
package lumen

import (
	"github.com/google/uuid"

	"github.com/lumenlang/lumen/internal/code"
	"github.com/lumenlang/lumen/internal/config"
)

// MultipleReturns is the nresults sentinel meaning "push however many
// values the callee actually returned".
const MultipleReturns = -1

// Status codes returned by load, call and resume operations.
// The set is closed and part of the binary contract.
const (
	Ok           = 0
	Yield        = 1
	RuntimeError = 2
	SyntaxError  = 3
	MemoryError  = 4
	HandlerError = 5 // the error handler itself faulted
	FileError    = 6
)

// Pseudo-indices. They resolve to persistent tables independent of stack
// position and are never shifted by stack mutation. Their relative ordering
// and the UpvalueIndex arithmetic are part of the binary contract.
const (
	RegistryIndex = -10000
	EnvironIndex  = -10001
	GlobalsIndex  = -10002
)

// UpvalueIndex returns the pseudo-index of the i-th upvalue of the running
// Go function (1-based).
func UpvalueIndex(i int) int {
	return GlobalsIndex - i
}

// Reference sentinels for Ref and Unref.
const (
	NoRef  = -2
	RefNil = -1
)

// MinStack is the stack space guaranteed to a Go function on entry;
// CheckStack must be called before pushing more.
const MinStack = config.MinStack

// Function is a callback implemented in Go and callable from the VM.
// It receives its arguments on the stack in direct order (the first argument
// at index 1), pushes its results in direct order, and returns the result
// count. Errors are raised with State.Errorf or State.Error.
type Function func(l *State) int

// goFunction is a native closure: a Go callback plus its upvalues and
// environment table.
type goFunction struct {
	fn       Function
	upvalues []value
	env      *Table
	name     string
}

// scriptClosure is an interpreted closure: a compiled prototype plus its
// environment table.
type scriptClosure struct {
	proto *code.Prototype
	env   *Table
}

// UserData is a host-owned opaque block with an optional metatable.
// Its finalizer, if any, is the __gc field of the metatable and runs when
// the owning VM instance is closed.
type UserData struct {
	Data any
	meta *Table
}

// globalState is the state shared by every execution context of one VM
// instance: registry, globals and limits. It is owned by the instance,
// never process-wide, so multiple independent VMs can coexist.
type globalState struct {
	id         string
	registry   *Table
	globals    *Table
	mainThread *State
	limits     config.Limits
	userdata   []*UserData // creation order, for finalizers at Close
	closed     bool
}

// frame is one link of the call-frame chain.
type frame struct {
	// fnIndex is the absolute stack index of the callable; locals and
	// arguments start at fnIndex+1.
	fnIndex int

	// exactly one of gofn / closure is set for real frames; both nil for
	// the synthetic base frame
	gofn    *goFunction
	closure *scriptClosure

	ip       int // next instruction offset, bytecode frames only
	nresults int

	// how the callee was found, for debug introspection
	name     string
	nameWhat string
}

// coroutine holds the suspension machinery of a non-main execution context.
type coroutine struct {
	resumeCh chan int       // resumer -> context: number of resume arguments
	yieldCh  chan coroEvent // context -> resumer
	st       coroStatus
	started  bool
	nret     int // payload size of the latest yield or termination
}

type coroEvent struct {
	yield  bool // true: yielded; false: finished
	n      int  // yield payload count
	status int  // termination status when finished
}

type coroStatus int

const (
	coSuspended coroStatus = iota // initial, or parked on a yield
	coRunning
	coNormal // resumed another context; not independently resumable
	coDead
)

// State is one execution context: an independent value stack and call-frame
// chain sharing global state with sibling contexts. The main context is
// created by NewState; coroutines add further contexts via NewThread.
//
// A State and everything reachable from it is confined to one host thread
// of control at a time; the package defines no thread-safety of its own.
type State struct {
	g      *globalState
	stack  []value
	frames []frame
	coro   *coroutine // nil for the main context
	status int        // Ok, Yield, or the retained termination status
}

// NewState creates a fresh VM instance with default limits and returns its
// main execution context.
func NewState() *State {
	return NewStateWithLimits(config.DefaultLimits())
}

// NewStateWithLimits creates a fresh VM instance with explicit runtime
// ceilings.
func NewStateWithLimits(limits config.Limits) *State {
	if limits.MaxStack <= 0 {
		limits.MaxStack = config.DefaultMaxStack
	}
	if limits.MaxCallDepth <= 0 {
		limits.MaxCallDepth = config.DefaultMaxCallDepth
	}
	g := &globalState{
		id:       uuid.NewString(),
		registry: newTable(),
		globals:  newTable(),
		limits:   limits,
	}
	l := &State{
		g:      g,
		stack:  make([]value, 0, config.InitialStackSize),
		frames: make([]frame, 1, 16), // frames[0]: synthetic host-level frame
	}
	// the synthetic frame has no callable, so slot 1 is absolute slot 0
	l.frames[0].fnIndex = -1
	g.mainThread = l
	g.globals.setRaw(stringValue("_G"), tableValue(g.globals))
	return l
}

// InstanceID returns the unique identifier of the owning VM instance.
func (l *State) InstanceID() string {
	return l.g.id
}

// MainThread returns the main execution context of the owning VM instance.
func (l *State) MainThread() *State {
	return l.g.mainThread
}

// Close shuts the VM instance down: userdata finalizers (__gc metafields)
// run in reverse creation order, then every context belonging to the
// instance becomes unusable. Close must be called on the main context.
func (l *State) Close() {
	if l.g.closed || l != l.g.mainThread {
		return
	}
	for i := len(l.g.userdata) - 1; i >= 0; i-- {
		u := l.g.userdata[i]
		if u.meta == nil {
			continue
		}
		gc := u.meta.getRaw(stringValue("__gc"))
		if gc.t != TypeFunction {
			continue
		}
		l.pushValue(gc)
		l.pushValue(userDataValue(u))
		if l.PCall(1, 0, 0) != Ok {
			l.Pop(1) // a failing finalizer must not abort the rest
		}
	}
	l.g.closed = true
	l.stack = l.stack[:0]
	l.frames = l.frames[:1]
}

// NewThread creates a new execution context sharing the instance's global
// state, pushes it on the stack as a thread value, and returns it. The new
// context starts suspended with an empty stack; push a function and
// arguments onto it, then Resume it.
func (l *State) NewThread() *State {
	co := &State{
		g:      l.g,
		stack:  make([]value, 0, config.InitialStackSize),
		frames: make([]frame, 1, 8),
		coro: &coroutine{
			resumeCh: make(chan int),
			yieldCh:  make(chan coroEvent),
			st:       coSuspended,
		},
	}
	co.frames[0].fnIndex = -1
	l.push(threadValue(co))
	return co
}

// currentFrame returns the innermost call frame.
func (l *State) currentFrame() *frame {
	return &l.frames[len(l.frames)-1]
}
