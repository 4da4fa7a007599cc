package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// VM: Bytecode execution engine
// ---------------------------------------------------------------------------

// CompileFunc compiles source text into a chunk, interning string and
// identifier constants through the given table.
//
// The compile function is injected to avoid the vm package depending on
// the compiler package.
type CompileFunc func(table *StringTable, source string) (*Chunk, error)

// stackMax is the fixed operand-stack depth. Top-level scripts without
// call frames cannot legitimately nest deeper than this.
const stackMax = 256

// VM executes compiled Lox chunks.
//
// The globals map and string table persist for the lifetime of the VM
// (across successive Interpret calls in a REPL); the chunk and instruction
// pointer are replaced on every call. A VM is not safe for concurrent use.
type VM struct {
	chunk *Chunk
	ip    int

	stack [stackMax]Value
	sp    int // stack pointer (points to next free slot)

	globals map[StringID]Value
	strings *StringTable

	compile CompileFunc
	out     io.Writer
	trace   bool
	log     commonlog.Logger
}

// New creates a VM with a fresh global map and string table, writing
// program output to stdout.
func New(compile CompileFunc) *VM {
	return &VM{
		globals: make(map[StringID]Value),
		strings: NewStringTable(),
		compile: compile,
		out:     os.Stdout,
		log:     commonlog.GetLogger("glox.vm"),
	}
}

// SetOutput redirects program output (the print statement).
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// SetTrace enables per-instruction execution tracing through the logger.
func (vm *VM) SetTrace(on bool) {
	vm.trace = on
}

// Strings returns the VM's interning table.
func (vm *VM) Strings() *StringTable {
	return vm.strings
}

// Global returns the current value of a global by name, if defined.
func (vm *VM) Global(name string) (Value, bool) {
	id, ok := vm.strings.Lookup(name)
	if !ok {
		return Nil, false
	}
	v, ok := vm.globals[id]
	return v, ok
}

// StackDepth returns the current operand stack depth. After a completed
// run (successful or not) it is zero.
func (vm *VM) StackDepth() int {
	return vm.sp
}

// Interpret compiles and executes source text. It returns the compiler's
// error unchanged on compile failure, or a *RuntimeError if execution
// aborts. Each call rebuilds the chunk; globals and interned strings
// carry over.
func (vm *VM) Interpret(source string) error {
	chunk, err := vm.compile(vm.strings, source)
	if err != nil {
		return err
	}
	return vm.RunChunk(chunk)
}

// RunChunk executes an already compiled chunk from its first instruction.
func (vm *VM) RunChunk(c *Chunk) error {
	vm.chunk = c
	vm.ip = 0
	vm.resetStack()
	return vm.run()
}

// ---------------------------------------------------------------------------
// Stack operations
// ---------------------------------------------------------------------------

func (vm *VM) resetStack() {
	vm.sp = 0
}

func (vm *VM) push(v Value) bool {
	if vm.sp >= stackMax {
		return false
	}
	vm.stack[vm.sp] = v
	vm.sp++
	return true
}

func (vm *VM) pop() (Value, bool) {
	if vm.sp <= 0 {
		return Nil, false
	}
	vm.sp--
	return vm.stack[vm.sp], true
}

func (vm *VM) peek(distance int) (Value, bool) {
	if vm.sp <= distance {
		return Nil, false
	}
	return vm.stack[vm.sp-1-distance], true
}

// ---------------------------------------------------------------------------
// Error reporting
// ---------------------------------------------------------------------------

// runtimeError builds a line-numbered runtime error and clears the operand
// stack. Runtime errors abort the current run; they are never resumed.
func (vm *VM) runtimeError(format string, args ...interface{}) *RuntimeError {
	line := 0
	if vm.ip > 0 && vm.ip-1 < len(vm.chunk.Lines) {
		line = vm.chunk.Lines[vm.ip-1]
	}
	vm.resetStack()
	return &RuntimeError{Line: line, Message: fmt.Sprintf(format, args...)}
}

func (vm *VM) underflow() *RuntimeError {
	return vm.runtimeError("Stack underflow.")
}

func (vm *VM) overflow() *RuntimeError {
	return vm.runtimeError("Stack overflow.")
}

// ---------------------------------------------------------------------------
// Main dispatch loop
// ---------------------------------------------------------------------------

// readByte fetches the byte at ip and advances. The false return means the
// chunk ended mid-instruction (malformed bytecode).
func (vm *VM) readByte() (byte, bool) {
	if vm.ip >= len(vm.chunk.Code) {
		return 0, false
	}
	b := vm.chunk.Code[vm.ip]
	vm.ip++
	return b, true
}

// readConstant reads a one-byte pool index operand and resolves it.
func (vm *VM) readConstant() (Value, *RuntimeError) {
	idx, ok := vm.readByte()
	if !ok {
		return Nil, vm.runtimeError("Truncated instruction.")
	}
	if int(idx) >= len(vm.chunk.Constants) {
		return Nil, vm.runtimeError("Constant index %d out of range.", idx)
	}
	return vm.chunk.Constants[idx], nil
}

// readGlobalName reads a pool index operand that must name a global.
func (vm *VM) readGlobalName() (StringID, *RuntimeError) {
	name, rerr := vm.readConstant()
	if rerr != nil {
		return 0, rerr
	}
	if !name.IsString() {
		return 0, vm.runtimeError("Global name constant is not a string.")
	}
	return name.StringID(), nil
}

func (vm *VM) run() error {
	for {
		if vm.trace {
			vm.traceInstruction()
		}

		instr, ok := vm.readByte()
		if !ok {
			return vm.runtimeError("Ran off the end of the chunk.")
		}

		switch Opcode(instr) {
		case OpConstant:
			v, rerr := vm.readConstant()
			if rerr != nil {
				return rerr
			}
			if !vm.push(v) {
				return vm.overflow()
			}

		case OpNil:
			if !vm.push(Nil) {
				return vm.overflow()
			}

		case OpTrue:
			if !vm.push(True) {
				return vm.overflow()
			}

		case OpFalse:
			if !vm.push(False) {
				return vm.overflow()
			}

		case OpPop:
			if _, ok := vm.pop(); !ok {
				return vm.underflow()
			}

		case OpGetGlobal:
			id, rerr := vm.readGlobalName()
			if rerr != nil {
				return rerr
			}
			v, defined := vm.globals[id]
			if !defined {
				return vm.runtimeError("Undefined variable '%s'.", vm.strings.Contents(id))
			}
			if !vm.push(v) {
				return vm.overflow()
			}

		case OpDefineGlobal:
			id, rerr := vm.readGlobalName()
			if rerr != nil {
				return rerr
			}
			// Peek before popping so the value stays reachable until the
			// store completes. Moot without a collector, but it is the
			// discipline a future one will rely on.
			v, ok := vm.peek(0)
			if !ok {
				return vm.underflow()
			}
			vm.globals[id] = v
			vm.pop()

		case OpSetGlobal:
			id, rerr := vm.readGlobalName()
			if rerr != nil {
				return rerr
			}
			if _, defined := vm.globals[id]; !defined {
				return vm.runtimeError("Undefined variable '%s'.", vm.strings.Contents(id))
			}
			// Assignment is an expression: the value stays on the stack.
			v, ok := vm.peek(0)
			if !ok {
				return vm.underflow()
			}
			vm.globals[id] = v

		case OpEqual:
			right, ok := vm.pop()
			if !ok {
				return vm.underflow()
			}
			left, ok := vm.pop()
			if !ok {
				return vm.underflow()
			}
			vm.push(FromBool(ValuesEqual(left, right)))

		case OpGreater, OpLess, OpSubtract, OpMultiply, OpDivide:
			if rerr := vm.binaryNumberOp(Opcode(instr)); rerr != nil {
				return rerr
			}

		case OpAdd:
			if rerr := vm.addOp(); rerr != nil {
				return rerr
			}

		case OpNot:
			v, ok := vm.pop()
			if !ok {
				return vm.underflow()
			}
			vm.push(FromBool(v.IsFalsy()))

		case OpNegate:
			v, ok := vm.pop()
			if !ok {
				return vm.underflow()
			}
			if !v.IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(FromNumber(-v.Number()))

		case OpPrint:
			v, ok := vm.pop()
			if !ok {
				return vm.underflow()
			}
			fmt.Fprintln(vm.out, v.Format(vm.strings))

		case OpReturn:
			// End of top-level script; no call frames exist yet.
			return nil

		default:
			return vm.runtimeError("Unknown opcode 0x%02X.", instr)
		}
	}
}

// binaryNumberOp handles the operators whose operands must both be
// numbers. Operands are popped directly; nothing can reclaim them
// mid-operation while there is no collector.
func (vm *VM) binaryNumberOp(op Opcode) *RuntimeError {
	right, ok := vm.pop()
	if !ok {
		return vm.underflow()
	}
	left, ok := vm.pop()
	if !ok {
		return vm.underflow()
	}
	if !left.IsNumber() || !right.IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}

	x, y := left.Number(), right.Number()
	switch op {
	case OpGreater:
		vm.push(FromBool(x > y))
	case OpLess:
		vm.push(FromBool(x < y))
	case OpSubtract:
		vm.push(FromNumber(x - y))
	case OpMultiply:
		vm.push(FromNumber(x * y))
	case OpDivide:
		vm.push(FromNumber(x / y))
	}
	return nil
}

// addOp handles OpAdd: numeric addition or interned string concatenation.
func (vm *VM) addOp() *RuntimeError {
	right, ok := vm.pop()
	if !ok {
		return vm.underflow()
	}
	left, ok := vm.pop()
	if !ok {
		return vm.underflow()
	}

	switch {
	case left.IsNumber() && right.IsNumber():
		vm.push(FromNumber(left.Number() + right.Number()))
	case left.IsString() && right.IsString():
		id := vm.strings.Concat(left.StringID(), right.StringID())
		vm.push(FromStringID(id))
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
	return nil
}

// traceInstruction logs the operand stack and the next instruction.
func (vm *VM) traceInstruction() {
	var stack string
	for i := 0; i < vm.sp; i++ {
		stack += fmt.Sprintf("[ %s ]", vm.stack[i].Format(vm.strings))
	}
	if vm.ip < len(vm.chunk.Code) {
		line, _ := DisassembleInstruction(vm.chunk, vm.strings, vm.ip)
		vm.log.Debugf("%-40s %s", stack, line)
	}
}
