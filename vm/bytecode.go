package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single bytecode instruction.
type Opcode byte

// Constants and literals
const (
	OpConstant Opcode = 0x01 // push constant (8-bit pool index)
	OpNil      Opcode = 0x02 // push nil
	OpTrue     Opcode = 0x03 // push true
	OpFalse    Opcode = 0x04 // push false
)

// Stack operations
const (
	OpPop Opcode = 0x10 // discard top of stack
)

// Global variables
const (
	OpGetGlobal    Opcode = 0x20 // push global by name (8-bit pool index of name)
	OpDefineGlobal Opcode = 0x21 // define global from top of stack (8-bit pool index of name)
	OpSetGlobal    Opcode = 0x22 // assign existing global, value stays on stack (8-bit pool index of name)
)

// Operators
const (
	OpEqual    Opcode = 0x30 // pop b, pop a, push a == b
	OpGreater  Opcode = 0x31 // pop b, pop a, push a > b
	OpLess     Opcode = 0x32 // pop b, pop a, push a < b
	OpAdd      Opcode = 0x33 // pop b, pop a, push a + b (numbers or strings)
	OpSubtract Opcode = 0x34 // pop b, pop a, push a - b
	OpMultiply Opcode = 0x35 // pop b, pop a, push a * b
	OpDivide   Opcode = 0x36 // pop b, pop a, push a / b
	OpNot      Opcode = 0x37 // pop, push logical negation
	OpNegate   Opcode = 0x38 // pop, push arithmetic negation
)

// Statements and control
const (
	OpPrint  Opcode = 0x40 // pop, write display form + newline
	OpReturn Opcode = 0x41 // end of top-level script
)

// ---------------------------------------------------------------------------
// Opcode metadata
// ---------------------------------------------------------------------------

// OpcodeInfo holds metadata about an opcode.
type OpcodeInfo struct {
	Name         string // human-readable name
	OperandBytes int    // number of operand bytes
	StackEffect  int    // net effect on stack depth
}

// opcodeTable maps opcodes to their metadata.
var opcodeTable = map[Opcode]OpcodeInfo{
	OpConstant: {"CONSTANT", 1, 1},
	OpNil:      {"NIL", 0, 1},
	OpTrue:     {"TRUE", 0, 1},
	OpFalse:    {"FALSE", 0, 1},

	OpPop: {"POP", 0, -1},

	OpGetGlobal:    {"GET_GLOBAL", 1, 1},
	OpDefineGlobal: {"DEFINE_GLOBAL", 1, -1},
	OpSetGlobal:    {"SET_GLOBAL", 1, 0},

	OpEqual:    {"EQUAL", 0, -1},
	OpGreater:  {"GREATER", 0, -1},
	OpLess:     {"LESS", 0, -1},
	OpAdd:      {"ADD", 0, -1},
	OpSubtract: {"SUBTRACT", 0, -1},
	OpMultiply: {"MULTIPLY", 0, -1},
	OpDivide:   {"DIVIDE", 0, -1},
	OpNot:      {"NOT", 0, 0},
	OpNegate:   {"NEGATE", 0, 0},

	OpPrint:  {"PRINT", 0, -1},
	OpReturn: {"RETURN", 0, 0},
}

// Info returns the metadata for an opcode.
func (op Opcode) Info() OpcodeInfo {
	if info, ok := opcodeTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN_%02X", byte(op)), OperandBytes: 0, StackEffect: 0}
}

// Name returns the human-readable name for an opcode.
func (op Opcode) Name() string {
	return op.Info().Name
}

// OperandBytes returns the number of operand bytes for an opcode.
func (op Opcode) OperandBytes() int {
	return op.Info().OperandBytes
}

// String implements the Stringer interface.
func (op Opcode) String() string {
	return op.Name()
}

// ---------------------------------------------------------------------------
// Disassembly
// ---------------------------------------------------------------------------

// DisassembleInstruction renders the instruction at offset as a
// human-readable line and returns it together with the instruction's byte
// width. Unknown opcodes render with width 1 so a dump can resynchronize.
func DisassembleInstruction(c *Chunk, table *StringTable, offset int) (string, int) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%04d ", offset)

	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		sb.WriteString("   | ")
	} else {
		fmt.Fprintf(&sb, "%4d ", c.Lines[offset])
	}

	op := Opcode(c.Code[offset])
	info := op.Info()

	switch op {
	case OpConstant, OpGetGlobal, OpDefineGlobal, OpSetGlobal:
		if offset+1 >= len(c.Code) {
			fmt.Fprintf(&sb, "%-16s (truncated)", info.Name)
			return sb.String(), 1
		}
		idx := c.Code[offset+1]
		fmt.Fprintf(&sb, "%-16s %4d ", info.Name, idx)
		if int(idx) < len(c.Constants) {
			fmt.Fprintf(&sb, "'%s'", c.Constants[idx].Format(table))
		} else {
			sb.WriteString("'<bad index>'")
		}
		return sb.String(), 2

	default:
		sb.WriteString(info.Name)
		return sb.String(), 1
	}
}

// DisassembleChunk returns a full disassembly of a chunk under a header.
func DisassembleChunk(c *Chunk, table *StringTable, name string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "== %s ==\n", name)

	for offset := 0; offset < len(c.Code); {
		line, width := DisassembleInstruction(c, table, offset)
		sb.WriteString(line)
		sb.WriteByte('\n')
		offset += width
	}
	return sb.String()
}
