package lumen

import "strings"

// shortSourceSize caps the display form of a chunk name used in error
// prefixes and debug records.
const shortSourceSize = 128

// Debug describes one activation record of a context's call chain, filled
// in piecewise by GetInfo.
type Debug struct {
	// Event is unused for now; reserved for hook support.
	Event int

	// Name is a reasonable callee name when one is known ("" otherwise),
	// NameWhat how it was found: "global", "local", "method", "field" or "".
	Name     string
	NameWhat string

	// What is "main" for a main chunk, "Lumen" for a script function,
	// "Go" for a host function.
	What string

	// Source is the chunk name the function came from; ShortSource its
	// bounded display form. Go functions report "=[Go]".
	Source      string
	ShortSource string

	// CurrentLine is the line being executed, -1 when no line information
	// applies (Go functions).
	CurrentLine int

	// LineDefined and LastLineDefined delimit the function definition,
	// both -1 for Go functions.
	LineDefined     int
	LastLineDefined int

	// UpValueCount is the number of upvalues bound to the function.
	UpValueCount int

	fr *frame
}

// GetStack fills ar with the identification of the activation record at
// the given call-chain level. Level 0 is the function currently running,
// level 1 its caller, and so on. It reports false when the level exceeds
// the chain depth.
func (l *State) GetStack(level int, ar *Debug) bool {
	// frames[0] is the synthetic base and never an activation record
	top := len(l.frames) - 1
	if level < 0 || level > top-1 {
		return false
	}
	ar.fr = &l.frames[top-level]
	return true
}

// GetInfo completes the record ar identified by a previous GetStack call,
// or, when what carries the ">" prefix, describes the function popped from
// the top of the stack instead. Selector characters choose the fields:
// 'n' name and name context, 'S' source and definition lines, 'l' current
// line, 'u' upvalue count. Unknown selectors are ignored.
func (l *State) GetInfo(what string, ar *Debug) bool {
	var fn value
	fr := ar.fr
	if strings.HasPrefix(what, ">") {
		what = what[1:]
		fn = l.stack[len(l.stack)-1]
		l.Pop(1)
		if fn.t != TypeFunction {
			return false
		}
		fr = nil
	} else if fr == nil {
		return false
	}

	var gofn *goFunction
	var cl *scriptClosure
	if fr != nil {
		gofn, cl = fr.gofn, fr.closure
	} else {
		switch o := fn.obj.(type) {
		case *goFunction:
			gofn = o
		case *scriptClosure:
			cl = o
		}
	}

	for _, c := range what {
		switch c {
		case 'n':
			if fr != nil {
				ar.Name, ar.NameWhat = fr.name, fr.nameWhat
			} else if gofn != nil {
				ar.Name, ar.NameWhat = gofn.name, ""
			}
		case 'S':
			if cl != nil {
				ar.Source = cl.proto.Source
				ar.LineDefined = cl.proto.LineDefined
				ar.LastLineDefined = cl.proto.LastLineDefined
				if cl.proto.IsMain {
					ar.What = "main"
				} else {
					ar.What = "Lumen"
				}
			} else {
				ar.Source = "=[Go]"
				ar.LineDefined = -1
				ar.LastLineDefined = -1
				ar.What = "Go"
			}
			ar.ShortSource = shortSource(ar.Source)
		case 'l':
			if cl != nil && fr != nil {
				ar.CurrentLine = cl.proto.Line(fr.ip - 1)
			} else {
				ar.CurrentLine = -1
			}
		case 'u':
			switch {
			case gofn != nil:
				ar.UpValueCount = len(gofn.upvalues)
			default:
				ar.UpValueCount = 0
			}
		}
	}
	return true
}

// shortSource renders a chunk name for messages, bounded to
// shortSourceSize bytes. "@file" names keep the tail of the path behind a
// "..." marker, "=name" names are used verbatim, and anything else is
// treated as literal source and shown as its first line in quotes.
func shortSource(source string) string {
	const ellipsis = "..."
	switch {
	case strings.HasPrefix(source, "="):
		s := source[1:]
		if len(s) > shortSourceSize-1 {
			s = s[:shortSourceSize-1]
		}
		return s
	case strings.HasPrefix(source, "@"):
		s := source[1:]
		if len(s) <= shortSourceSize-1 {
			return s
		}
		return ellipsis + s[len(s)-(shortSourceSize-1-len(ellipsis)):]
	default:
		const decor = len(`[string "..."]`) + len(ellipsis)
		s := source
		truncated := false
		if i := strings.IndexAny(s, "\r\n"); i >= 0 {
			s = s[:i]
			truncated = true
		}
		if len(s) > shortSourceSize-decor {
			s = s[:shortSourceSize-decor]
			truncated = true
		}
		if truncated {
			return `[string "` + s + ellipsis + `"]`
		}
		return `[string "` + s + `"]`
	}
}
