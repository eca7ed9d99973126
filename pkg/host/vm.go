// Package host provides a high-level embedding API over the Lumen VM: a
// reflect-based marshaller plus Bind/Set/Get/Call/Eval/RunFile, so a Go
// program can script itself without touching the stack protocol directly.
package host

import (
	"fmt"

	"github.com/lumenlang/lumen/pkg/libs"
	"github.com/lumenlang/lumen/pkg/lumen"
)

// VM wraps a Lumen instance and its marshaller.
type VM struct {
	state      *lumen.State
	marshaller *Marshaller
}

// New creates a VM with the standard libraries opened.
func New() (*VM, error) {
	l := lumen.NewState()
	if err := libs.OpenLibs(l); err != nil {
		l.Close()
		return nil, err
	}
	return &VM{state: l, marshaller: NewMarshaller()}, nil
}

// State exposes the underlying instance for callers that need the low-level
// stack API alongside the high-level one.
func (v *VM) State() *lumen.State {
	return v.state
}

// ID returns the instance identifier of the underlying VM.
func (v *VM) ID() string {
	return v.state.InstanceID()
}

// Close releases the underlying instance.
func (v *VM) Close() {
	v.state.Close()
}

// Bind registers a Go value under a global name. Functions become callable
// from scripts; pointers to structs expose their fields and methods.
func (v *VM) Bind(name string, val any) error {
	if err := v.marshaller.Push(v.state, val); err != nil {
		return err
	}
	v.state.SetField(lumen.GlobalsIndex, name)
	return nil
}

// Set sets a global variable. Identical to Bind; kept as the data-value
// counterpart in the API.
func (v *VM) Set(name string, val any) error {
	return v.Bind(name, val)
}

// Get retrieves a global variable as a Go value.
func (v *VM) Get(name string) (any, error) {
	v.state.GetField(lumen.GlobalsIndex, name)
	if v.state.IsNil(-1) {
		v.state.Pop(1)
		return nil, fmt.Errorf("variable %q not found", name)
	}
	val, err := v.marshaller.ToGo(v.state, -1, nil)
	v.state.Pop(1)
	return val, err
}

// Call calls a global function by name. A single script result comes back
// as a Go value, several as []any, none as nil.
func (v *VM) Call(funcName string, args ...any) (any, error) {
	base := v.state.Top()
	v.state.GetField(lumen.GlobalsIndex, funcName)
	if !v.state.IsFunction(-1) {
		v.state.Pop(1)
		return nil, fmt.Errorf("function %q not found", funcName)
	}
	for _, arg := range args {
		if err := v.marshaller.Push(v.state, arg); err != nil {
			v.state.SetTop(base)
			return nil, err
		}
	}
	if st := v.state.PCall(len(args), lumen.MultipleReturns, 0); st != lumen.Ok {
		msg, _ := v.state.ToString(-1)
		v.state.SetTop(base)
		return nil, fmt.Errorf("call %q failed: %s", funcName, msg)
	}
	return v.collectResults(base)
}

// Eval compiles and runs a chunk of source, returning its results like Call.
func (v *VM) Eval(code string) (any, error) {
	base := v.state.Top()
	if st := v.state.LoadBuffer(code, "=eval"); st != lumen.Ok {
		msg, _ := v.state.ToString(-1)
		v.state.SetTop(base)
		return nil, fmt.Errorf("compile failed: %s", msg)
	}
	if st := v.state.PCall(0, lumen.MultipleReturns, 0); st != lumen.Ok {
		msg, _ := v.state.ToString(-1)
		v.state.SetTop(base)
		return nil, fmt.Errorf("eval failed: %s", msg)
	}
	return v.collectResults(base)
}

// RunFile loads and runs a script file.
func (v *VM) RunFile(path string) error {
	base := v.state.Top()
	defer v.state.SetTop(base)
	if st := v.state.LoadFile(path); st != lumen.Ok {
		msg, _ := v.state.ToString(-1)
		return fmt.Errorf("load %s failed: %s", path, msg)
	}
	if st := v.state.PCall(0, lumen.MultipleReturns, 0); st != lumen.Ok {
		msg, _ := v.state.ToString(-1)
		return fmt.Errorf("run %s failed: %s", path, msg)
	}
	return nil
}

func (v *VM) collectResults(base int) (any, error) {
	n := v.state.Top() - base
	defer v.state.SetTop(base)
	switch n {
	case 0:
		return nil, nil
	case 1:
		return v.marshaller.ToGo(v.state, -1, nil)
	}
	out := make([]any, n)
	for i := 0; i < n; i++ {
		val, err := v.marshaller.ToGo(v.state, base+i+1, nil)
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}
