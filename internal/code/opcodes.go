// Package code implements the Lumen source loader: lexer, single-pass
// compiler, and the bytecode container executed by the VM core.
//
// The package is a collaborator of the embedding boundary, not part of it:
// the boundary consumes it only through Compile ("load buffer/string/file
// returns a callable unit"). Nothing here is host-visible.
package code

// Opcode represents a single VM instruction.
type Opcode byte

const (
	// Stack manipulation
	OP_CONST Opcode = iota // Push constant from pool (u16 index)
	OP_NIL                 // Push nil
	OP_TRUE                // Push true
	OP_FALSE               // Push false
	OP_POP                 // Discard top of stack

	// Arithmetic
	OP_ADD // +
	OP_SUB // -
	OP_MUL // *
	OP_DIV // /
	OP_MOD // %
	OP_NEG // Unary minus

	// Strings
	OP_CONCAT // ..
	OP_LEN    // # (unary)

	// Comparison
	OP_EQ // ==
	OP_NE // ~=
	OP_LT // <
	OP_LE // <=
	OP_GT // >
	OP_GE // >=

	// Logic
	OP_NOT // not

	// Variables
	OP_GET_LOCAL  // Get local variable by frame slot (u16)
	OP_SET_LOCAL  // Set local variable by frame slot (u16)
	OP_GET_GLOBAL // Get global variable by name constant (u16)
	OP_SET_GLOBAL // Set global variable by name constant (u16)

	// Tables
	OP_NEW_TABLE    // Push a fresh empty table
	OP_GET_INDEX    // t, k -> t[k]   (metamethod-aware)
	OP_SET_INDEX    // t, k, v ->     (metamethod-aware)
	OP_TABLE_APPEND // t, v -> t      (raw set at u16 array index)
	OP_TABLE_SET    // t, k, v -> t   (raw set, table kept for constructors)

	// Control flow
	OP_JUMP          // Unconditional forward jump (u16 offset)
	OP_JUMP_IF_FALSE // Pop condition, jump forward if falsy (u16 offset)
	OP_AND_JUMP      // Peek condition, jump forward if falsy, else pop (u16)
	OP_OR_JUMP       // Peek condition, jump forward if truthy, else pop (u16)
	OP_LOOP          // Unconditional backward jump (u16 offset)

	// Functions
	OP_CLOSURE      // Push closure for nested prototype (u16 index)
	OP_CALL         // Call with u8 nargs, u8 nresults (MultRet: keep all)
	OP_RETURN       // Return u8 values from the current frame
	OP_RETURN_MULTI // Return everything above the u16 local floor
)

// MultRet is the OP_CALL nresults operand meaning "keep every result the
// callee produced". Fixed result counts are bounded below it.
const MultRet = 255

// operandBytes maps an opcode to the number of operand bytes following it.
var operandBytes = [...]int{
	OP_CONST:         2,
	OP_GET_LOCAL:     2,
	OP_SET_LOCAL:     2,
	OP_GET_GLOBAL:    2,
	OP_SET_GLOBAL:    2,
	OP_TABLE_APPEND:  2,
	OP_JUMP:          2,
	OP_JUMP_IF_FALSE: 2,
	OP_AND_JUMP:      2,
	OP_OR_JUMP:       2,
	OP_LOOP:          2,
	OP_CLOSURE:       2,
	OP_CALL:          2,
	OP_RETURN:        1,
	OP_RETURN_MULTI:  2,
}

// OperandBytes returns the operand width of op in bytes.
func OperandBytes(op Opcode) int {
	if int(op) < len(operandBytes) {
		return operandBytes[op]
	}
	return 0
}
