// Package libs provides the Lumen standard libraries: the base globals and
// the yaml, sql and rpc tables. Libraries are opened onto a VM instance
// explicitly; a fresh State has none of them.
package libs

import (
	"fmt"

	"github.com/lumenlang/lumen/pkg/lumen"
)

var libraries = []struct {
	name string
	open func(*lumen.State)
}{
	{"base", openBase},
	{"yaml", openYAML},
	{"sql", openSQL},
	{"rpc", openRPC},
}

// Open registers a single library by name.
func Open(l *lumen.State, name string) error {
	for _, lib := range libraries {
		if lib.name == name {
			lib.open(l)
			return nil
		}
	}
	return fmt.Errorf("unknown library %q", name)
}

// OpenLibs registers the named libraries, or all of them when names is
// empty.
func OpenLibs(l *lumen.State, names ...string) error {
	if len(names) == 0 {
		for _, lib := range libraries {
			lib.open(l)
		}
		return nil
	}
	for _, name := range names {
		if err := Open(l, name); err != nil {
			return err
		}
	}
	return nil
}

// register installs a table of functions as the named global.
func register(l *lumen.State, name string, fns map[string]lumen.Function) {
	l.NewTable()
	for fname, fn := range fns {
		l.PushGoFunction(fn)
		l.SetField(-2, fname)
	}
	l.SetField(lumen.GlobalsIndex, name)
}
