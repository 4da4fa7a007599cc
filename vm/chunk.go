package vm

// ---------------------------------------------------------------------------
// Chunk: A compiled unit of bytecode
// ---------------------------------------------------------------------------

// MaxConstants is the size limit of a chunk's constant pool. Constant-pool
// index operands are a single byte, so a chunk can address at most 256
// constants; the compiler reports overflow as a compile error.
const MaxConstants = 256

// Chunk holds a compiled sequence of instructions, the source line that
// produced each code byte, and the constant pool the instructions index.
//
// Invariants: len(Lines) == len(Code), and every instruction's operand
// bytes immediately follow its opcode byte.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []Value
}

// NewChunk creates an empty chunk.
func NewChunk() *Chunk {
	return &Chunk{
		Code:  make([]byte, 0, 64),
		Lines: make([]int, 0, 64),
	}
}

// Write appends a raw byte (opcode or operand) attributed to a source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode byte attributed to a source line.
func (c *Chunk) WriteOp(op Opcode, line int) {
	c.Write(byte(op), line)
}

// AddConstant appends a value to the constant pool and returns its index.
// The caller is responsible for checking the index against MaxConstants.
func (c *Chunk) AddConstant(v Value) int {
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// Len returns the number of code bytes in the chunk.
func (c *Chunk) Len() int {
	return len(c.Code)
}
