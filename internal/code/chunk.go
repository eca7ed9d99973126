package code

// Prototype is a compiled function body: a sequence of bytecode instructions
// plus the constant pool and debug metadata the VM core needs to execute it
// and to answer introspection queries about it.
//
// Constants hold only loader-level Go values: nil, bool, float64 and string.
// The VM core boxes them into tagged values when pushing.
type Prototype struct {
	// Code is the bytecode instructions
	Code []byte

	// Constants pool - literals and global names
	Constants []any

	// Lines maps bytecode offset to source line number (for errors and
	// debug introspection)
	Lines []int

	// Protos are the prototypes of nested function literals
	Protos []*Prototype

	// NumParams is the declared parameter count
	NumParams int

	// MaxStack is the worst-case operand stack use of this body,
	// locals included; computed by the compiler
	MaxStack int

	// Source is the chunk name the prototype was loaded from
	// ("@file", "=name" or literal source text)
	Source string

	// Name is the function name when statically known, "" otherwise
	Name string

	// LineDefined and LastLineDefined delimit the function body;
	// both 0 for a main chunk
	LineDefined     int
	LastLineDefined int

	// IsMain marks the top-level chunk prototype
	IsMain bool
}

func newPrototype(source string) *Prototype {
	return &Prototype{
		Code:      make([]byte, 0, 256),
		Constants: make([]any, 0, 16),
		Lines:     make([]int, 0, 256),
		Source:    source,
	}
}

// write adds a byte to the chunk with line info.
func (p *Prototype) write(b byte, line int) {
	p.Code = append(p.Code, b)
	p.Lines = append(p.Lines, line)
}

// writeOp writes an opcode to the chunk.
func (p *Prototype) writeOp(op Opcode, line int) {
	p.write(byte(op), line)
}

// writeU16 writes a 2-byte big-endian operand.
func (p *Prototype) writeU16(v int, line int) {
	p.write(byte(v>>8), line)
	p.write(byte(v), line)
}

// addConstant adds a constant to the pool and returns its index,
// reusing an existing slot for repeated scalars.
func (p *Prototype) addConstant(value any) int {
	for i, c := range p.Constants {
		if c == value {
			return i
		}
	}
	p.Constants = append(p.Constants, value)
	return len(p.Constants) - 1
}

// ReadU16 reads a 2-byte big-endian operand at offset.
func (p *Prototype) ReadU16(offset int) int {
	return int(p.Code[offset])<<8 | int(p.Code[offset+1])
}

// Line returns the source line for the instruction at offset,
// or -1 when the offset is out of range.
func (p *Prototype) Line(offset int) int {
	if offset < 0 || offset >= len(p.Lines) {
		return -1
	}
	return p.Lines[offset]
}
