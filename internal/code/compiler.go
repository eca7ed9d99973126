package code

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError is a loader failure with source position attached.
type SyntaxError struct {
	Source string
	Line   int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Msg)
}

const (
	maxConstants = 0xFFFF
	maxLocals    = 200
	maxJump      = 0xFFFF
	maxReturns   = 255
	maxArgs      = 255
)

// Operator precedence levels, lowest first.
const (
	precNone   = iota
	precOr     // or
	precAnd    // and
	precCmp    // == ~= < <= > >=
	precConcat // .. (right associative)
	precTerm   // + -
	precFactor // * / %
	precUnary  // not # - (unary)
)

type local struct {
	name  string
	depth int
}

type loopCtx struct {
	breakJumps []int
	localCount int
}

// funcState is the per-function compilation state.
type funcState struct {
	proto     *Prototype
	enclosing *funcState

	locals     []local
	scopeDepth int

	// simulated operand stack height, locals included
	stackSize int

	loops []loopCtx
}

// Compiler is a single-pass compiler from source text to a Prototype.
type Compiler struct {
	lex       *Lexer
	cur, next Token
	chunkName string
	fn        *funcState
}

// Compile compiles source into a main-chunk prototype. The chunkName is
// recorded verbatim as the prototype source identifier.
func Compile(source, chunkName string) (proto *Prototype, err error) {
	c := &Compiler{
		lex:       NewLexer(source),
		chunkName: chunkName,
	}
	defer func() {
		if r := recover(); r != nil {
			se, ok := r.(*SyntaxError)
			if !ok {
				panic(r)
			}
			proto, err = nil, se
		}
	}()

	c.fn = &funcState{proto: newPrototype(chunkName)}
	c.fn.proto.IsMain = true
	c.fn.locals = append(c.fn.locals, local{name: "", depth: 0}) // slot 0: the chunk itself
	c.fn.stackSize = 1
	c.advance()
	c.advance()

	for !c.checkCur(TOKEN_EOF) {
		c.statement()
	}
	c.emitOp(OP_RETURN)
	c.emitByte(0)
	return c.fn.proto, nil
}

func (c *Compiler) fail(format string, args ...any) {
	panic(&SyntaxError{
		Source: c.chunkName,
		Line:   c.cur.Line,
		Msg:    fmt.Sprintf(format, args...),
	})
}

func (c *Compiler) failNear(msg string) {
	near := c.cur.Literal
	if c.cur.Type == TOKEN_EOF {
		near = "<eof>"
	}
	c.fail("%s near '%s'", msg, near)
}

// Token plumbing

func (c *Compiler) advance() {
	c.cur = c.next
	c.next = c.lex.NextToken()
	if c.next.Type == TOKEN_ERROR {
		c.cur = c.next
		c.fail("%s", c.next.Literal)
	}
}

func (c *Compiler) checkCur(t TokenType) bool {
	return c.cur.Type == t
}

func (c *Compiler) accept(t TokenType) bool {
	if c.cur.Type != t {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) expect(t TokenType, what string) Token {
	if c.cur.Type != t {
		c.failNear("'" + what + "' expected")
	}
	tok := c.cur
	c.advance()
	return tok
}

// Emission helpers

func (c *Compiler) emitOp(op Opcode) {
	c.fn.proto.writeOp(op, c.cur.Line)
}

func (c *Compiler) emitByte(b byte) {
	c.fn.proto.write(b, c.cur.Line)
}

func (c *Compiler) emitU16(v int) {
	c.fn.proto.writeU16(v, c.cur.Line)
}

func (c *Compiler) constant(v any) int {
	idx := c.fn.proto.addConstant(v)
	if idx > maxConstants {
		c.fail("too many constants in one chunk")
	}
	return idx
}

// adjust records a change of the simulated operand stack height.
func (c *Compiler) adjust(n int) {
	c.fn.stackSize += n
	if c.fn.stackSize > c.fn.proto.MaxStack {
		c.fn.proto.MaxStack = c.fn.stackSize
	}
}

// emitJump emits a forward jump and returns the operand offset to patch.
func (c *Compiler) emitJump(op Opcode) int {
	c.emitOp(op)
	c.emitU16(0)
	return len(c.fn.proto.Code) - 2
}

func (c *Compiler) patchJump(operandAt int) {
	jump := len(c.fn.proto.Code) - operandAt - 2
	if jump > maxJump {
		c.fail("control structure too long")
	}
	c.fn.proto.Code[operandAt] = byte(jump >> 8)
	c.fn.proto.Code[operandAt+1] = byte(jump)
}

// emitLoop emits a backward jump to loopStart.
func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(OP_LOOP)
	offset := len(c.fn.proto.Code) - loopStart + 2
	if offset > maxJump {
		c.fail("loop body too long")
	}
	c.emitU16(offset)
}

// Scopes and locals

func (c *Compiler) beginScope() {
	c.fn.scopeDepth++
}

func (c *Compiler) endScope() {
	c.fn.scopeDepth--
	for len(c.fn.locals) > 0 && c.fn.locals[len(c.fn.locals)-1].depth > c.fn.scopeDepth {
		c.emitOp(OP_POP)
		c.adjust(-1)
		c.fn.locals = c.fn.locals[:len(c.fn.locals)-1]
	}
}

func (c *Compiler) declareLocal(name string) {
	if len(c.fn.locals) >= maxLocals {
		c.fail("too many local variables")
	}
	c.fn.locals = append(c.fn.locals, local{name: name, depth: c.fn.scopeDepth})
}

// resolveLocal returns the frame slot of a local, or -1.
func (c *Compiler) resolveLocal(name string) int {
	for i := len(c.fn.locals) - 1; i >= 0; i-- {
		if c.fn.locals[i].name == name {
			return i
		}
	}
	return -1
}

// Statements

func (c *Compiler) statement() {
	switch c.cur.Type {
	case TOKEN_SEMI:
		c.advance()
	case TOKEN_LOCAL:
		c.localStatement()
	case TOKEN_IF:
		c.ifStatement()
	case TOKEN_WHILE:
		c.whileStatement()
	case TOKEN_FOR:
		c.forInStatement()
	case TOKEN_DO:
		c.advance()
		c.beginScope()
		c.block(TOKEN_END)
		c.expect(TOKEN_END, "end")
		c.endScope()
	case TOKEN_BREAK:
		c.breakStatement()
	case TOKEN_RETURN:
		c.returnStatement()
	case TOKEN_FUNCTION:
		c.functionStatement()
	default:
		c.exprStatement()
	}
}

// block compiles statements until one of the terminating tokens.
func (c *Compiler) block(terminators ...TokenType) {
	for {
		if c.checkCur(TOKEN_EOF) {
			return
		}
		for _, t := range terminators {
			if c.checkCur(t) {
				return
			}
		}
		c.statement()
	}
}

func (c *Compiler) localStatement() {
	c.advance() // local
	names := []string{c.expect(TOKEN_NAME, "<name>").Literal}
	for c.accept(TOKEN_COMMA) {
		names = append(names, c.expect(TOKEN_NAME, "<name>").Literal)
	}
	if c.accept(TOKEN_ASSIGN) {
		c.explist(len(names))
	} else {
		for range names {
			c.emitOp(OP_NIL)
			c.adjust(1)
		}
	}
	// the initializer values stay in place and become the locals' slots;
	// the names enter scope only after their initializers
	for _, name := range names {
		c.declareLocal(name)
	}
}

func (c *Compiler) ifStatement() {
	c.advance() // if
	c.expression()
	c.expect(TOKEN_THEN, "then")
	c.adjust(-1)
	elseJump := c.emitJump(OP_JUMP_IF_FALSE)

	c.beginScope()
	c.block(TOKEN_END, TOKEN_ELSE, TOKEN_ELSEIF)
	c.endScope()

	switch c.cur.Type {
	case TOKEN_ELSEIF:
		endJump := c.emitJump(OP_JUMP)
		c.patchJump(elseJump)
		c.ifStatement() // reuses the elseif token as a fresh 'if'
		c.patchJump(endJump)
		return
	case TOKEN_ELSE:
		endJump := c.emitJump(OP_JUMP)
		c.patchJump(elseJump)
		c.advance()
		c.beginScope()
		c.block(TOKEN_END)
		c.endScope()
		c.expect(TOKEN_END, "end")
		c.patchJump(endJump)
	default:
		c.expect(TOKEN_END, "end")
		c.patchJump(elseJump)
	}
}

func (c *Compiler) whileStatement() {
	c.advance() // while
	loopStart := len(c.fn.proto.Code)
	c.expression()
	c.expect(TOKEN_DO, "do")
	c.adjust(-1)
	exitJump := c.emitJump(OP_JUMP_IF_FALSE)

	c.fn.loops = append(c.fn.loops, loopCtx{localCount: len(c.fn.locals)})
	c.beginScope()
	c.block(TOKEN_END)
	c.expect(TOKEN_END, "end")
	c.endScope()
	c.emitLoop(loopStart)
	c.patchJump(exitJump)

	loop := c.fn.loops[len(c.fn.loops)-1]
	c.fn.loops = c.fn.loops[:len(c.fn.loops)-1]
	for _, j := range loop.breakJumps {
		c.patchJump(j)
	}
}

// forInStatement compiles "for v1, v2, ... in explist do block end". The
// iterator protocol uses three hidden locals (iterator function, state,
// control value); each round calls the iterator and stops when the first
// result is nil.
func (c *Compiler) forInStatement() {
	c.advance() // for
	names := []string{c.expect(TOKEN_NAME, "<name>").Literal}
	for c.accept(TOKEN_COMMA) {
		names = append(names, c.expect(TOKEN_NAME, "<name>").Literal)
	}
	c.expect(TOKEN_IN, "in")

	c.beginScope()
	c.explist(3)
	c.declareLocal("(for iterator)")
	c.declareLocal("(for state)")
	c.declareLocal("(for control)")
	iterSlot := len(c.fn.locals) - 3
	c.expect(TOKEN_DO, "do")

	loopStart := len(c.fn.proto.Code)

	// var1, ... = iterator(state, control)
	for i := range 3 {
		c.emitOp(OP_GET_LOCAL)
		c.emitU16(iterSlot + i)
		c.adjust(1)
	}
	c.emitOp(OP_CALL)
	c.emitByte(2)
	c.emitByte(byte(len(names)))
	c.adjust(len(names) - 3)
	for _, name := range names {
		c.declareLocal(name)
	}
	varSlot := len(c.fn.locals) - len(names)

	// stop when the first variable comes back nil
	c.emitOp(OP_GET_LOCAL)
	c.emitU16(varSlot)
	c.adjust(1)
	c.emitOp(OP_NIL)
	c.adjust(1)
	c.emitOp(OP_NE)
	c.adjust(-1)
	exitJump := c.emitJump(OP_JUMP_IF_FALSE)
	c.adjust(-1)

	// control = var1
	c.emitOp(OP_GET_LOCAL)
	c.emitU16(varSlot)
	c.adjust(1)
	c.emitOp(OP_SET_LOCAL)
	c.emitU16(iterSlot + 2)
	c.adjust(-1)

	c.fn.loops = append(c.fn.loops, loopCtx{localCount: len(c.fn.locals)})
	c.beginScope()
	c.block(TOKEN_END)
	c.expect(TOKEN_END, "end")
	c.endScope()

	// discard this round's loop variables before calling the iterator again
	for range names {
		c.emitOp(OP_POP)
		c.adjust(-1)
	}
	c.fn.locals = c.fn.locals[:len(c.fn.locals)-len(names)]
	c.emitLoop(loopStart)

	loop := c.fn.loops[len(c.fn.loops)-1]
	c.fn.loops = c.fn.loops[:len(c.fn.loops)-1]
	c.patchJump(exitJump)
	for _, j := range loop.breakJumps {
		c.patchJump(j)
	}
	// the exit path arrives with the loop variables still on the stack
	for range names {
		c.emitOp(OP_POP)
	}
	c.endScope()
}

// explist compiles a comma-separated expression list adjusted to exactly
// want values: a trailing call spreads to fill, otherwise nils pad and
// extras pop.
func (c *Compiler) explist(want int) {
	n := 0
	for {
		isCall := c.expressionMulti()
		n++
		if c.accept(TOKEN_COMMA) {
			continue
		}
		if isCall && n < want {
			// widen the final call to produce the remaining values
			c.fn.proto.Code[len(c.fn.proto.Code)-1] = byte(want - n + 1)
			c.adjust(want - n)
			n = want
		}
		break
	}
	for ; n < want; n++ {
		c.emitOp(OP_NIL)
		c.adjust(1)
	}
	for ; n > want; n-- {
		c.emitOp(OP_POP)
		c.adjust(-1)
	}
}

// expressionMulti compiles one expression and reports whether it ended as
// a bare call whose result-count operand is the last emitted byte.
func (c *Compiler) expressionMulti() bool {
	if c.cur.Type != TOKEN_NAME && c.cur.Type != TOKEN_LPAREN {
		c.expression()
		return false
	}
	d := c.suffixedExpr()
	if p, _ := binaryPrecedence(c.cur.Type); p != precNone {
		c.discharge(d)
		c.continueBinary(precOr)
		return false
	}
	if d.kind == eCall {
		return true
	}
	c.discharge(d)
	return false
}

func (c *Compiler) breakStatement() {
	if len(c.fn.loops) == 0 {
		c.failNear("'break' outside a loop")
	}
	loop := &c.fn.loops[len(c.fn.loops)-1]
	// discard locals declared inside the loop body before leaving it
	for i := len(c.fn.locals); i > loop.localCount; i-- {
		c.emitOp(OP_POP)
	}
	loop.breakJumps = append(loop.breakJumps, c.emitJump(OP_JUMP))
	c.advance()
}

func (c *Compiler) returnStatement() {
	line := c.cur.Line
	floor := c.fn.stackSize // locals in scope, the frame slot included
	c.advance()             // return
	n := 0
	spread := false
	if !c.blockEnds() {
		for {
			spread = c.expressionMulti()
			n++
			if n > maxReturns {
				c.fail("too many return values")
			}
			if !c.accept(TOKEN_COMMA) {
				break
			}
		}
	}
	if spread {
		// a trailing call forwards however many values it produced
		c.fn.proto.Code[len(c.fn.proto.Code)-1] = MultRet
		c.fn.proto.writeOp(OP_RETURN_MULTI, line)
		c.fn.proto.writeU16(floor, line)
	} else {
		c.fn.proto.writeOp(OP_RETURN, line)
		c.fn.proto.write(byte(n), line)
	}
	c.adjust(-n)
	c.accept(TOKEN_SEMI)
	if !c.blockEnds() {
		c.failNear("'end' expected after return")
	}
}

func (c *Compiler) blockEnds() bool {
	switch c.cur.Type {
	case TOKEN_EOF, TOKEN_END, TOKEN_ELSE, TOKEN_ELSEIF:
		return true
	}
	return false
}

func (c *Compiler) functionStatement() {
	c.advance() // function
	name := c.expect(TOKEN_NAME, "<name>").Literal
	c.functionBody(name)
	idx := c.constant(name)
	c.emitOp(OP_SET_GLOBAL)
	c.emitU16(idx)
	c.adjust(-1)
}

// functionBody compiles "( params ) block end" into a nested prototype and
// emits the closure push.
func (c *Compiler) functionBody(name string) {
	lineDefined := c.cur.Line
	sub := &funcState{
		proto:     newPrototype(c.chunkName),
		enclosing: c.fn,
	}
	sub.proto.Name = name
	sub.proto.LineDefined = lineDefined
	sub.locals = append(sub.locals, local{name: "", depth: 0}) // slot 0: the closure
	sub.stackSize = 1
	c.fn = sub

	c.expect(TOKEN_LPAREN, "(")
	if !c.checkCur(TOKEN_RPAREN) {
		for {
			param := c.expect(TOKEN_NAME, "<name>").Literal
			c.declareLocal(param)
			sub.proto.NumParams++
			sub.stackSize++
			if !c.accept(TOKEN_COMMA) {
				break
			}
		}
	}
	if sub.stackSize > sub.proto.MaxStack {
		sub.proto.MaxStack = sub.stackSize
	}
	c.expect(TOKEN_RPAREN, ")")
	c.block(TOKEN_END)
	sub.proto.LastLineDefined = c.cur.Line
	c.expect(TOKEN_END, "end")
	c.emitOp(OP_RETURN)
	c.emitByte(0)

	c.fn = sub.enclosing
	if len(c.fn.proto.Protos) > maxConstants {
		c.fail("too many nested functions")
	}
	c.fn.proto.Protos = append(c.fn.proto.Protos, sub.proto)
	c.emitOp(OP_CLOSURE)
	c.emitU16(len(c.fn.proto.Protos) - 1)
	c.adjust(1)
}

// Expression statements and assignment targets.
//
// A statement that starts with an expression must be either a call or an
// assignment; suffixedExpr leaves the final dereference pending so that
// assignment targets do not emit a read.

type exprKind int

const (
	eValue  exprKind = iota // value already on the operand stack
	eLocal                  // pending local read (slot)
	eGlobal                 // pending global read (name constant index)
	eIndex                  // pending indexed read: table and key on the stack
	eCall                   // a completed call with one pending result
)

type exprDesc struct {
	kind exprKind
	slot int // eLocal: frame slot; eGlobal: constant index
}

func (c *Compiler) exprStatement() {
	d := c.suffixedExpr()
	if c.checkCur(TOKEN_ASSIGN) {
		c.advance()
		switch d.kind {
		case eLocal:
			c.expression()
			c.emitOp(OP_SET_LOCAL)
			c.emitU16(d.slot)
			c.adjust(-1)
		case eGlobal:
			c.expression()
			c.emitOp(OP_SET_GLOBAL)
			c.emitU16(d.slot)
			c.adjust(-1)
		case eIndex:
			c.expression()
			c.emitOp(OP_SET_INDEX)
			c.adjust(-3)
		default:
			c.failNear("cannot assign to this expression")
		}
		return
	}
	if d.kind != eCall {
		c.failNear("syntax error")
	}
	// discard the single pending call result: rewrite nresults to zero
	c.fn.proto.Code[len(c.fn.proto.Code)-1] = 0
	c.adjust(-1)
}

// discharge materializes a pending read as a pushed value.
func (c *Compiler) discharge(d exprDesc) {
	switch d.kind {
	case eLocal:
		c.emitOp(OP_GET_LOCAL)
		c.emitU16(d.slot)
		c.adjust(1)
	case eGlobal:
		c.emitOp(OP_GET_GLOBAL)
		c.emitU16(d.slot)
		c.adjust(1)
	case eIndex:
		c.emitOp(OP_GET_INDEX)
		c.adjust(-1)
	}
}

// suffixedExpr parses NAME / (exp) followed by .name, [exp] and (args)
// suffixes, leaving the last dereference pending.
func (c *Compiler) suffixedExpr() exprDesc {
	var d exprDesc
	switch c.cur.Type {
	case TOKEN_NAME:
		name := c.cur.Literal
		c.advance()
		if slot := c.resolveLocal(name); slot >= 0 {
			d = exprDesc{kind: eLocal, slot: slot}
		} else {
			d = exprDesc{kind: eGlobal, slot: c.constant(name)}
		}
	case TOKEN_LPAREN:
		c.advance()
		c.expression()
		c.expect(TOKEN_RPAREN, ")")
		d = exprDesc{kind: eValue}
	default:
		c.failNear("unexpected symbol")
	}

	for {
		switch c.cur.Type {
		case TOKEN_DOT:
			c.discharge(d)
			c.advance()
			name := c.expect(TOKEN_NAME, "<name>").Literal
			c.emitOp(OP_CONST)
			c.emitU16(c.constant(name))
			c.adjust(1)
			d = exprDesc{kind: eIndex}
		case TOKEN_LBRACKET:
			c.discharge(d)
			c.advance()
			c.expression()
			c.expect(TOKEN_RBRACKET, "]")
			d = exprDesc{kind: eIndex}
		case TOKEN_LPAREN:
			c.discharge(d)
			callLine := c.cur.Line // the call reports the '(' line
			c.advance()
			nargs := 0
			if !c.checkCur(TOKEN_RPAREN) {
				for {
					c.expression()
					nargs++
					if nargs > maxArgs {
						c.fail("too many arguments")
					}
					if !c.accept(TOKEN_COMMA) {
						break
					}
				}
			}
			c.expect(TOKEN_RPAREN, ")")
			c.fn.proto.writeOp(OP_CALL, callLine)
			c.fn.proto.write(byte(nargs), callLine)
			c.fn.proto.write(1, callLine)
			c.adjust(-nargs) // fn + args replaced by one result
			d = exprDesc{kind: eCall}
		default:
			return d
		}
	}
}

// Expressions

func (c *Compiler) expression() {
	c.parsePrecedence(precOr)
}

func (c *Compiler) parsePrecedence(prec int) {
	c.prefixExpr()
	c.continueBinary(prec)
}

// continueBinary parses trailing binary operators with the left operand
// already on the stack.
func (c *Compiler) continueBinary(prec int) {
	for {
		opPrec, rightAssoc := binaryPrecedence(c.cur.Type)
		if opPrec < prec {
			return
		}
		op := c.cur.Type
		switch op {
		case TOKEN_AND:
			c.advance()
			j := c.emitJump(OP_AND_JUMP)
			c.adjust(-1)
			c.parsePrecedence(precAnd + 1)
			c.patchJump(j)
		case TOKEN_OR:
			c.advance()
			j := c.emitJump(OP_OR_JUMP)
			c.adjust(-1)
			c.parsePrecedence(precOr + 1)
			c.patchJump(j)
		default:
			c.advance()
			next := opPrec + 1
			if rightAssoc {
				next = opPrec
			}
			c.parsePrecedence(next)
			c.emitBinary(op)
			c.adjust(-1)
		}
	}
}

func binaryPrecedence(t TokenType) (prec int, rightAssoc bool) {
	switch t {
	case TOKEN_OR:
		return precOr, false
	case TOKEN_AND:
		return precAnd, false
	case TOKEN_EQ, TOKEN_NE, TOKEN_LT, TOKEN_LE, TOKEN_GT, TOKEN_GE:
		return precCmp, false
	case TOKEN_CONCAT:
		return precConcat, true
	case TOKEN_PLUS, TOKEN_MINUS:
		return precTerm, false
	case TOKEN_STAR, TOKEN_SLASH, TOKEN_PERCENT:
		return precFactor, false
	}
	return precNone, false
}

func (c *Compiler) emitBinary(t TokenType) {
	switch t {
	case TOKEN_PLUS:
		c.emitOp(OP_ADD)
	case TOKEN_MINUS:
		c.emitOp(OP_SUB)
	case TOKEN_STAR:
		c.emitOp(OP_MUL)
	case TOKEN_SLASH:
		c.emitOp(OP_DIV)
	case TOKEN_PERCENT:
		c.emitOp(OP_MOD)
	case TOKEN_CONCAT:
		c.emitOp(OP_CONCAT)
	case TOKEN_EQ:
		c.emitOp(OP_EQ)
	case TOKEN_NE:
		c.emitOp(OP_NE)
	case TOKEN_LT:
		c.emitOp(OP_LT)
	case TOKEN_LE:
		c.emitOp(OP_LE)
	case TOKEN_GT:
		c.emitOp(OP_GT)
	case TOKEN_GE:
		c.emitOp(OP_GE)
	}
}

func (c *Compiler) prefixExpr() {
	switch c.cur.Type {
	case TOKEN_NIL:
		c.emitOp(OP_NIL)
		c.adjust(1)
		c.advance()
	case TOKEN_TRUE:
		c.emitOp(OP_TRUE)
		c.adjust(1)
		c.advance()
	case TOKEN_FALSE:
		c.emitOp(OP_FALSE)
		c.adjust(1)
		c.advance()
	case TOKEN_NUMBER:
		n, err := parseNumber(c.cur.Literal)
		if err != nil {
			c.failNear("malformed number")
		}
		c.emitOp(OP_CONST)
		c.emitU16(c.constant(n))
		c.adjust(1)
		c.advance()
	case TOKEN_STRING:
		c.emitOp(OP_CONST)
		c.emitU16(c.constant(c.cur.Literal))
		c.adjust(1)
		c.advance()
	case TOKEN_MINUS:
		c.advance()
		c.parsePrecedence(precUnary)
		c.emitOp(OP_NEG)
	case TOKEN_NOT:
		c.advance()
		c.parsePrecedence(precUnary)
		c.emitOp(OP_NOT)
	case TOKEN_HASH:
		c.advance()
		c.parsePrecedence(precUnary)
		c.emitOp(OP_LEN)
	case TOKEN_FUNCTION:
		c.advance()
		c.functionBody("")
	case TOKEN_LBRACE:
		c.tableConstructor()
	case TOKEN_NAME, TOKEN_LPAREN:
		d := c.suffixedExpr()
		c.discharge(d)
	default:
		c.failNear("unexpected symbol")
	}
}

func (c *Compiler) tableConstructor() {
	c.expect(TOKEN_LBRACE, "{")
	c.emitOp(OP_NEW_TABLE)
	c.adjust(1)
	arrayIndex := 0
	for !c.checkCur(TOKEN_RBRACE) {
		switch {
		case c.cur.Type == TOKEN_NAME && c.next.Type == TOKEN_ASSIGN:
			name := c.cur.Literal
			c.advance()
			c.advance()
			c.emitOp(OP_CONST)
			c.emitU16(c.constant(name))
			c.adjust(1)
			c.expression()
			c.emitOp(OP_TABLE_SET)
			c.adjust(-2)
		case c.cur.Type == TOKEN_LBRACKET:
			c.advance()
			c.expression()
			c.expect(TOKEN_RBRACKET, "]")
			c.expect(TOKEN_ASSIGN, "=")
			c.expression()
			c.emitOp(OP_TABLE_SET)
			c.adjust(-2)
		default:
			c.expression()
			arrayIndex++
			if arrayIndex > maxConstants {
				c.fail("table constructor too large")
			}
			c.emitOp(OP_TABLE_APPEND)
			c.emitU16(arrayIndex)
			c.adjust(-1)
		}
		if !c.accept(TOKEN_COMMA) && !c.accept(TOKEN_SEMI) {
			break
		}
	}
	c.expect(TOKEN_RBRACE, "}")
}

// parseNumber parses a Lumen numeric literal (decimal, decimal float with
// exponent, or 0x hex) into a float64.
func parseNumber(lit string) (float64, error) {
	if strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X") {
		u, err := strconv.ParseUint(lit[2:], 16, 64)
		if err != nil {
			return 0, err
		}
		return float64(u), nil
	}
	return strconv.ParseFloat(lit, 64)
}
