package lumen

import (
	"fmt"
	"os"

	"github.com/lumenlang/lumen/internal/code"
)

// Source loading. Each loader either pushes a callable unit (a closure
// over the instance globals) and returns Ok, or pushes a single error
// string and returns the matching non-zero status. Running the result is
// the caller's business, typically via PCall.

// LoadBuffer compiles a chunk of source text under the given chunk name.
func (l *State) LoadBuffer(data, chunkName string) int {
	proto, err := code.Compile(data, chunkName)
	if err != nil {
		l.push(stringValue(err.Error()))
		return SyntaxError
	}
	l.push(closureValue(&scriptClosure{proto: proto, env: l.g.globals}))
	return Ok
}

// LoadString compiles source text, using the text itself as the chunk
// name.
func (l *State) LoadString(source string) int {
	return l.LoadBuffer(source, source)
}

// LoadFile reads and compiles a source file. The chunk name is "@" plus
// the path, marking it as a file source for debug introspection. An
// unreadable file pushes an error string and returns FileError.
func (l *State) LoadFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		l.push(stringValue(fmt.Sprintf("cannot open %s", path)))
		return FileError
	}
	return l.LoadBuffer(string(data), "@"+path)
}

// DoString loads and runs source text in protected mode, leaving all
// results on the stack on success.
func (l *State) DoString(source string) int {
	if status := l.LoadString(source); status != Ok {
		return status
	}
	return l.PCall(0, MultipleReturns, 0)
}

// DoFile loads and runs a source file in protected mode.
func (l *State) DoFile(path string) int {
	if status := l.LoadFile(path); status != Ok {
		return status
	}
	return l.PCall(0, MultipleReturns, 0)
}
