package lumen

import (
	"math"

	"github.com/lumenlang/lumen/internal/code"
)

// exec interprets the bytecode of the current frame's closure until it
// returns, and reports how many result values it left on top of the stack.
// Nested calls recurse through the ordinary call protocol, so interpreted
// and native frames interleave freely.
func (l *State) exec() int {
	fi := len(l.frames) - 1
	for {
		f := &l.frames[fi]
		proto := f.closure.proto
		op := code.Opcode(proto.Code[f.ip])
		f.ip++

		switch op {
		case code.OP_CONST:
			idx := proto.ReadU16(f.ip)
			f.ip += 2
			l.push(boxConstant(proto.Constants[idx]))
		case code.OP_NIL:
			l.push(nilValue())
		case code.OP_TRUE:
			l.push(booleanValue(true))
		case code.OP_FALSE:
			l.push(booleanValue(false))
		case code.OP_POP:
			l.pop()

		case code.OP_ADD, code.OP_SUB, code.OP_MUL, code.OP_DIV, code.OP_MOD:
			b := l.pop()
			a := l.pop()
			l.push(l.arith(op, a, b))
		case code.OP_NEG:
			v := l.pop()
			n, ok := v.toNumber()
			if !ok {
				l.rt("attempt to perform arithmetic on a %s value", v.t)
			}
			l.push(numberValue(-n))

		case code.OP_CONCAT:
			b := l.pop()
			a := l.pop()
			l.push(l.concatPair(a, b))
		case code.OP_LEN:
			v := l.pop()
			switch v.t {
			case TypeString:
				l.push(numberValue(float64(len(v.asString()))))
			case TypeTable:
				l.push(numberValue(float64(v.asTable().length())))
			default:
				l.rt("attempt to get length of a %s value", v.t)
			}

		case code.OP_EQ:
			b := l.pop()
			a := l.pop()
			l.push(booleanValue(l.equalValues(a, b)))
		case code.OP_NE:
			b := l.pop()
			a := l.pop()
			l.push(booleanValue(!l.equalValues(a, b)))
		case code.OP_LT:
			b := l.pop()
			a := l.pop()
			l.push(booleanValue(l.lessThan(a, b, false)))
		case code.OP_LE:
			b := l.pop()
			a := l.pop()
			l.push(booleanValue(l.lessThan(a, b, true)))
		case code.OP_GT:
			b := l.pop()
			a := l.pop()
			l.push(booleanValue(l.lessThan(b, a, false)))
		case code.OP_GE:
			b := l.pop()
			a := l.pop()
			l.push(booleanValue(l.lessThan(b, a, true)))
		case code.OP_NOT:
			l.push(booleanValue(l.pop().isFalse()))

		case code.OP_GET_LOCAL:
			slot := proto.ReadU16(f.ip)
			f.ip += 2
			l.push(l.stack[f.fnIndex+slot])
		case code.OP_SET_LOCAL:
			slot := proto.ReadU16(f.ip)
			f.ip += 2
			l.stack[f.fnIndex+slot] = l.pop()
		case code.OP_GET_GLOBAL:
			name := proto.Constants[proto.ReadU16(f.ip)].(string)
			f.ip += 2
			l.push(l.indexGet(tableValue(f.closure.envTable(l)), stringValue(name)))
		case code.OP_SET_GLOBAL:
			name := proto.Constants[proto.ReadU16(f.ip)].(string)
			f.ip += 2
			v := l.pop()
			l.indexSet(tableValue(l.frames[fi].closure.envTable(l)), stringValue(name), v)

		case code.OP_NEW_TABLE:
			l.push(tableValue(newTable()))
		case code.OP_GET_INDEX:
			k := l.pop()
			t := l.pop()
			l.push(l.indexGet(t, k))
		case code.OP_SET_INDEX:
			v := l.pop()
			k := l.pop()
			t := l.pop()
			l.indexSet(t, k, v)
		case code.OP_TABLE_APPEND:
			idx := proto.ReadU16(f.ip)
			f.ip += 2
			v := l.pop()
			l.stack[len(l.stack)-1].asTable().setInt(idx, v)
		case code.OP_TABLE_SET:
			v := l.pop()
			k := l.pop()
			if !l.stack[len(l.stack)-1].asTable().setRaw(k, v) {
				l.rt("invalid table key (%s)", k.t)
			}

		case code.OP_JUMP:
			off := proto.ReadU16(f.ip)
			f.ip += 2 + off
		case code.OP_JUMP_IF_FALSE:
			off := proto.ReadU16(f.ip)
			f.ip += 2
			if l.pop().isFalse() {
				f.ip += off
			}
		case code.OP_AND_JUMP:
			off := proto.ReadU16(f.ip)
			f.ip += 2
			if l.stack[len(l.stack)-1].isFalse() {
				f.ip += off
			} else {
				l.pop()
			}
		case code.OP_OR_JUMP:
			off := proto.ReadU16(f.ip)
			f.ip += 2
			if !l.stack[len(l.stack)-1].isFalse() {
				f.ip += off
			} else {
				l.pop()
			}
		case code.OP_LOOP:
			off := proto.ReadU16(f.ip)
			f.ip += 2
			f.ip -= off

		case code.OP_CLOSURE:
			idx := proto.ReadU16(f.ip)
			f.ip += 2
			sub := proto.Protos[idx]
			l.push(closureValue(&scriptClosure{proto: sub, env: f.closure.env}))
		case code.OP_CALL:
			nargs := int(proto.Code[f.ip])
			nres := int(proto.Code[f.ip+1])
			f.ip += 2
			if nres == code.MultRet {
				nres = MultipleReturns
			}
			l.call(len(l.stack)-nargs-1, nargs, nres)
		case code.OP_RETURN:
			n := int(proto.Code[f.ip])
			f.ip++
			return n
		case code.OP_RETURN_MULTI:
			// everything above the frame's locals is the result list
			floor := proto.ReadU16(f.ip)
			f.ip += 2
			return len(l.stack) - (l.frames[fi].fnIndex + floor)

		default:
			l.rt("corrupt bytecode (opcode %d)", op)
		}
	}
}

// arith evaluates a binary arithmetic opcode with the documented implicit
// string->number coercion; anything else raises.
func (l *State) arith(op code.Opcode, a, b value) value {
	x, okA := a.toNumber()
	y, okB := b.toNumber()
	if !okA || !okB {
		bad := a
		if okA {
			bad = b
		}
		l.rt("attempt to perform arithmetic on a %s value", bad.t)
	}
	switch op {
	case code.OP_ADD:
		return numberValue(x + y)
	case code.OP_SUB:
		return numberValue(x - y)
	case code.OP_MUL:
		return numberValue(x * y)
	case code.OP_DIV:
		return numberValue(x / y)
	default: // OP_MOD, with the sign-of-divisor rule
		return numberValue(x - math.Floor(x/y)*y)
	}
}

// envTable resolves a closure's environment, defaulting to the instance
// globals.
func (c *scriptClosure) envTable(l *State) *Table {
	if c.env != nil {
		return c.env
	}
	return l.g.globals
}

// boxConstant lifts a loader constant into a tagged value.
func boxConstant(c any) value {
	switch v := c.(type) {
	case nil:
		return nilValue()
	case bool:
		return booleanValue(v)
	case float64:
		return numberValue(v)
	case string:
		return stringValue(v)
	default:
		return nilValue()
	}
}
