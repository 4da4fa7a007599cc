package compiler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/chris-oo/glox/vm"
)

func compileOK(t *testing.T, source string) *vm.Chunk {
	t.Helper()
	chunk, err := Compile(vm.NewStringTable(), source)
	if err != nil {
		t.Fatalf("compile %q failed: %v", source, err)
	}
	return chunk
}

func compileFail(t *testing.T, source string) *CompileError {
	t.Helper()
	_, err := Compile(vm.NewStringTable(), source)
	if err == nil {
		t.Fatalf("compile %q unexpectedly succeeded", source)
	}
	cerr, ok := err.(*CompileError)
	if !ok {
		t.Fatalf("error is %T, want *CompileError", err)
	}
	return cerr
}

// ops extracts just the opcode sequence, skipping operand bytes.
func ops(c *vm.Chunk) []vm.Opcode {
	var out []vm.Opcode
	for i := 0; i < len(c.Code); {
		op := vm.Opcode(c.Code[i])
		out = append(out, op)
		i += 1 + op.OperandBytes()
	}
	return out
}

func expectOps(t *testing.T, source string, want ...vm.Opcode) {
	t.Helper()
	got := ops(compileOK(t, source))
	if len(got) != len(want) {
		t.Fatalf("%q compiled to %v, want %v", source, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%q compiled to %v, want %v", source, got, want)
		}
	}
}

// ---------------------------------------------------------------------------
// Emitted bytecode shapes
// ---------------------------------------------------------------------------

func TestCompileLiteralStatements(t *testing.T) {
	expectOps(t, "nil;", vm.OpNil, vm.OpPop, vm.OpReturn)
	expectOps(t, "true;", vm.OpTrue, vm.OpPop, vm.OpReturn)
	expectOps(t, "false;", vm.OpFalse, vm.OpPop, vm.OpReturn)
	expectOps(t, "1;", vm.OpConstant, vm.OpPop, vm.OpReturn)
	expectOps(t, `"s";`, vm.OpConstant, vm.OpPop, vm.OpReturn)
}

func TestCompileUnary(t *testing.T) {
	expectOps(t, "-1;", vm.OpConstant, vm.OpNegate, vm.OpPop, vm.OpReturn)
	expectOps(t, "!true;", vm.OpTrue, vm.OpNot, vm.OpPop, vm.OpReturn)
	expectOps(t, "--1;", vm.OpConstant, vm.OpNegate, vm.OpNegate, vm.OpPop, vm.OpReturn)
}

func TestCompileBinaryOperators(t *testing.T) {
	tests := []struct {
		op   string
		want []vm.Opcode
	}{
		{"+", []vm.Opcode{vm.OpAdd}},
		{"-", []vm.Opcode{vm.OpSubtract}},
		{"*", []vm.Opcode{vm.OpMultiply}},
		{"/", []vm.Opcode{vm.OpDivide}},
		{"==", []vm.Opcode{vm.OpEqual}},
		{"!=", []vm.Opcode{vm.OpEqual, vm.OpNot}},
		{">", []vm.Opcode{vm.OpGreater}},
		{">=", []vm.Opcode{vm.OpLess, vm.OpNot}},
		{"<", []vm.Opcode{vm.OpLess}},
		{"<=", []vm.Opcode{vm.OpGreater, vm.OpNot}},
	}

	for _, tt := range tests {
		want := append([]vm.Opcode{vm.OpConstant, vm.OpConstant}, tt.want...)
		want = append(want, vm.OpPop, vm.OpReturn)
		expectOps(t, fmt.Sprintf("1 %s 2;", tt.op), want...)
	}
}

func TestCompilePrecedence(t *testing.T) {
	// Multiplication binds tighter: 1 2 3 * +
	expectOps(t, "1 + 2 * 3;",
		vm.OpConstant, vm.OpConstant, vm.OpConstant,
		vm.OpMultiply, vm.OpAdd, vm.OpPop, vm.OpReturn)

	// Grouping overrides: 1 2 + 3 *
	expectOps(t, "(1 + 2) * 3;",
		vm.OpConstant, vm.OpConstant, vm.OpAdd,
		vm.OpConstant, vm.OpMultiply, vm.OpPop, vm.OpReturn)

	// Left associativity: 1 2 - 3 -
	expectOps(t, "1 - 2 - 3;",
		vm.OpConstant, vm.OpConstant, vm.OpSubtract,
		vm.OpConstant, vm.OpSubtract, vm.OpPop, vm.OpReturn)
}

func TestCompilePrintStatement(t *testing.T) {
	expectOps(t, "print 1;", vm.OpConstant, vm.OpPrint, vm.OpReturn)
}

func TestCompileVarDeclaration(t *testing.T) {
	expectOps(t, "var x = 1;", vm.OpConstant, vm.OpDefineGlobal, vm.OpReturn)
	// No initializer defaults to nil.
	expectOps(t, "var x;", vm.OpNil, vm.OpDefineGlobal, vm.OpReturn)
}

func TestCompileVariableAccessAndAssignment(t *testing.T) {
	expectOps(t, "x;", vm.OpGetGlobal, vm.OpPop, vm.OpReturn)
	expectOps(t, "x = 1;", vm.OpConstant, vm.OpSetGlobal, vm.OpPop, vm.OpReturn)
	// Assignment is right-associative through nested sets.
	expectOps(t, "x = y = 1;",
		vm.OpConstant, vm.OpSetGlobal, vm.OpSetGlobal, vm.OpPop, vm.OpReturn)
}

func TestCompileInternsIdentifiers(t *testing.T) {
	table := vm.NewStringTable()
	chunk, err := Compile(table, `var greeting = "hi"; print greeting;`)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	if _, ok := table.Lookup("greeting"); !ok {
		t.Error("identifier not interned")
	}
	if _, ok := table.Lookup("hi"); !ok {
		t.Error("string literal not interned")
	}

	// The two uses of the name produce two name constants, each holding
	// the same handle.
	id, _ := table.Lookup("greeting")
	count := 0
	for _, v := range chunk.Constants {
		if v.IsString() && v.StringID() == id {
			count++
		}
	}
	if count != 2 {
		t.Errorf("name constant appears %d times, want 2", count)
	}
}

// ---------------------------------------------------------------------------
// Compile errors
// ---------------------------------------------------------------------------

func TestCompileErrorMessages(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"1 +;", "Expect expression."},
		{"(1;", "Expect ')' after expression."},
		{"print 1", "Expect ';' after value."},
		{"1", "Expect ';' after expression."},
		{"var 1 = 2;", "Expect variable name."},
		{"var x = 1", "Expect ';' after variable declaration."},
		{"1 + 2 = 3;", "Invalid assignment target."},
		{"(x) = 3;", "Invalid assignment target."},
		{"@;", "Unexpected character."},
		{`"abc;`, "Unterminated string."},
	}

	for _, tt := range tests {
		cerr := compileFail(t, tt.source)
		found := false
		for _, d := range cerr.Diagnostics {
			if d.Message == tt.want {
				found = true
			}
		}
		if !found {
			t.Errorf("%q: diagnostics %v missing %q", tt.source, cerr.Diagnostics, tt.want)
		}
	}
}

func TestCompileErrorFormatting(t *testing.T) {
	cerr := compileFail(t, "1 +;")
	msg := cerr.Error()
	if !strings.Contains(msg, "[line 1] Error at ';': Expect expression.") {
		t.Errorf("error text = %q", msg)
	}
}

func TestCompileErrorAtEnd(t *testing.T) {
	cerr := compileFail(t, "print 1")
	if !strings.Contains(cerr.Error(), "Error at end") {
		t.Errorf("error text = %q", cerr.Error())
	}
}

func TestPanicModeResynchronizes(t *testing.T) {
	// Two broken statements report two diagnostics, not a cascade.
	cerr := compileFail(t, "1 +; 2 *;")
	if len(cerr.Diagnostics) != 2 {
		t.Errorf("got %d diagnostics, want 2: %v", len(cerr.Diagnostics), cerr.Diagnostics)
	}
}

func TestResyncAtStatementKeyword(t *testing.T) {
	cerr := compileFail(t, "1 + print 2;")
	if len(cerr.Diagnostics) != 1 {
		t.Errorf("got %d diagnostics, want 1: %v", len(cerr.Diagnostics), cerr.Diagnostics)
	}
}

func TestTooManyConstants(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 300; i++ {
		fmt.Fprintf(&b, "%d;", i)
	}

	cerr := compileFail(t, b.String())
	found := false
	for _, d := range cerr.Diagnostics {
		if d.Message == "Too many constants in one chunk." {
			found = true
		}
	}
	if !found {
		t.Errorf("missing overflow diagnostic: %v", cerr.Diagnostics)
	}
}

func TestEmptySourceCompilesToReturn(t *testing.T) {
	expectOps(t, "", vm.OpReturn)
	expectOps(t, "// only a comment", vm.OpReturn)
}
