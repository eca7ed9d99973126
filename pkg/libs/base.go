package libs

import (
	"fmt"
	"os"
	"strings"

	"github.com/lumenlang/lumen/pkg/lumen"
)

// openBase installs the base globals and the coroutine table.
func openBase(l *lumen.State) {
	fns := map[string]lumen.Function{
		"print":        basePrint,
		"type":         baseType,
		"tostring":     baseToString,
		"tonumber":     baseToNumber,
		"assert":       baseAssert,
		"error":        baseError,
		"pcall":        basePCall,
		"select":       baseSelect,
		"rawget":       baseRawGet,
		"rawset":       baseRawSet,
		"rawequal":     baseRawEqual,
		"next":         baseNext,
		"pairs":        basePairs,
		"ipairs":       baseIPairs,
		"unpack":       baseUnpack,
		"setmetatable": baseSetMetatable,
		"getmetatable": baseGetMetatable,
	}
	for name, fn := range fns {
		l.PushGoFunction(fn)
		l.SetField(lumen.GlobalsIndex, name)
	}

	register(l, "coroutine", map[string]lumen.Function{
		"create":  coroCreate,
		"resume":  coroResume,
		"yield":   coroYield,
		"status":  coroStatus,
		"wrap":    coroWrap,
		"running": coroRunning,
	})
}

// displayString renders any value the way print and tostring do,
// consulting a __tostring metamethod first.
func displayString(l *lumen.State, idx int) string {
	if l.GetMetatable(idx) {
		l.GetField(-1, "__tostring")
		if l.IsFunction(-1) {
			l.PushValue(idx)
			l.Call(1, 1)
			s, _ := l.ToString(-1)
			l.Pop(2)
			return s
		}
		l.Pop(2)
	}
	switch t := l.TypeOf(idx); t {
	case lumen.TypeNil:
		return "nil"
	case lumen.TypeBoolean:
		if l.ToBoolean(idx) {
			return "true"
		}
		return "false"
	case lumen.TypeNumber, lumen.TypeString:
		s, _ := l.ToString(idx)
		return s
	default:
		return l.TypeName(t)
	}
}

func basePrint(l *lumen.State) int {
	n := l.Top()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, displayString(l, i))
	}
	fmt.Fprintln(os.Stdout, strings.Join(parts, "\t"))
	return 0
}

func baseType(l *lumen.State) int {
	l.CheckAny(1)
	l.PushString(l.TypeName(l.TypeOf(1)))
	return 1
}

func baseToString(l *lumen.State) int {
	l.CheckAny(1)
	l.PushString(displayString(l, 1))
	return 1
}

func baseToNumber(l *lumen.State) int {
	l.CheckAny(1)
	if n, ok := l.ToNumber(1); ok {
		l.PushNumber(n)
	} else {
		l.PushNil()
	}
	return 1
}

func baseAssert(l *lumen.State) int {
	l.CheckAny(1)
	if !l.ToBoolean(1) {
		if l.IsNoneOrNil(2) {
			l.PushString("assertion failed!")
		} else {
			l.PushValue(2)
		}
		l.Error()
	}
	return l.Top()
}

func baseError(l *lumen.State) int {
	level := l.OptInteger(2, 1)
	if l.IsString(1) && level > 0 {
		l.PushString(l.Where(int(level)+1) + l.CheckString(1))
	} else {
		l.PushValue(1)
	}
	l.Error()
	return 0
}

func basePCall(l *lumen.State) int {
	l.CheckAny(1)
	status := l.PCall(l.Top()-1, lumen.MultipleReturns, 0)
	l.PushBoolean(status == lumen.Ok)
	l.Insert(1)
	return l.Top()
}

func baseSelect(l *lumen.State) int {
	n := l.Top()
	if l.IsString(1) {
		if s, _ := l.ToString(1); s == "#" {
			l.PushInteger(int64(n - 1))
			return 1
		}
	}
	i := int(l.CheckInteger(1))
	if i < 0 {
		i = n + i
	}
	if i < 1 {
		l.ArgError(1, "index out of range")
	}
	if i >= n {
		return 0
	}
	return n - i
}

func baseRawGet(l *lumen.State) int {
	l.CheckTable(1)
	l.CheckAny(2)
	l.SetTop(2)
	l.RawGet(1)
	return 1
}

func baseRawSet(l *lumen.State) int {
	l.CheckTable(1)
	l.CheckAny(2)
	l.CheckAny(3)
	l.SetTop(3)
	l.RawSet(1)
	return 1
}

func baseRawEqual(l *lumen.State) int {
	l.CheckAny(1)
	l.CheckAny(2)
	l.PushBoolean(l.RawEqual(1, 2))
	return 1
}

func baseNext(l *lumen.State) int {
	l.CheckTable(1)
	l.SetTop(2)
	if l.Next(1) {
		return 2
	}
	l.PushNil()
	return 1
}

func basePairs(l *lumen.State) int {
	l.CheckTable(1)
	l.PushGoFunction(baseNext)
	l.PushValue(1)
	l.PushNil()
	return 3
}

func baseIPairs(l *lumen.State) int {
	l.CheckTable(1)
	l.PushGoFunction(func(l *lumen.State) int {
		i := int(l.CheckInteger(2)) + 1
		l.RawGetInt(1, i)
		if l.IsNil(-1) {
			return 1
		}
		l.PushInteger(int64(i))
		l.Insert(-2)
		return 2
	})
	l.PushValue(1)
	l.PushInteger(0)
	return 3
}

func baseUnpack(l *lumen.State) int {
	l.CheckTable(1)
	i := int(l.OptInteger(2, 1))
	j := int(l.OptInteger(3, int64(l.ObjLen(1))))
	if i > j {
		return 0
	}
	n := j - i + 1
	if !l.CheckStack(n) {
		l.ArgError(3, "too many results to unpack")
	}
	for k := i; k <= j; k++ {
		l.RawGetInt(1, k)
	}
	return n
}

func baseSetMetatable(l *lumen.State) int {
	l.CheckTable(1)
	if t := l.TypeOf(2); t != lumen.TypeNil && t != lumen.TypeTable {
		l.ArgError(2, "nil or table expected")
	}
	l.SetTop(2)
	l.SetMetatable(1)
	return 1
}

func baseGetMetatable(l *lumen.State) int {
	l.CheckAny(1)
	if !l.GetMetatable(1) {
		l.PushNil()
	}
	return 1
}

func coroCreate(l *lumen.State) int {
	l.CheckType(1, lumen.TypeFunction)
	co := l.NewThread()
	l.PushValue(1)
	lumen.XMove(l, co, 1)
	return 1
}

// resumeInto drives co and translates the outcome into pcall-style
// results on l's stack: true plus payload, or false plus the error value.
func resumeInto(l, co *lumen.State, nargs int) int {
	lumen.XMove(l, co, nargs)
	status := co.Resume(l, nargs)
	nret := co.ResumeResultCount()
	switch status {
	case lumen.Ok, lumen.Yield:
		l.PushBoolean(true)
		if !l.CheckStack(nret) {
			l.Errorf("too many results to resume")
		}
		lumen.XMove(co, l, nret)
		return nret + 1
	default:
		l.PushBoolean(false)
		lumen.XMove(co, l, nret)
		return nret + 1
	}
}

func coroResume(l *lumen.State) int {
	co := l.ToThread(1)
	if co == nil {
		l.ArgError(1, "coroutine expected")
	}
	return resumeInto(l, co, l.Top()-1)
}

func coroYield(l *lumen.State) int {
	return l.Yield(l.Top())
}

func coroStatus(l *lumen.State) int {
	co := l.ToThread(1)
	if co == nil {
		l.ArgError(1, "coroutine expected")
	}
	l.PushString(co.CoroutineStatus())
	return 1
}

func coroWrap(l *lumen.State) int {
	l.CheckType(1, lumen.TypeFunction)
	co := l.NewThread()
	l.PushValue(1)
	lumen.XMove(l, co, 1)
	l.Pop(1)
	l.PushGoFunction(func(l *lumen.State) int {
		n := resumeInto(l, co, l.Top())
		// drop the success flag; a failure re-raises in the caller
		okIdx := l.Top() - n + 1
		if !l.ToBoolean(okIdx) {
			l.Error()
		}
		l.Remove(okIdx)
		return n - 1
	})
	return 1
}

func coroRunning(l *lumen.State) int {
	if l == l.MainThread() {
		l.PushNil()
	} else {
		l.PushThread(l)
	}
	return 1
}
