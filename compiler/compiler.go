package compiler

import (
	"math"
	"strconv"

	"github.com/chris-oo/glox/vm"
)

// ---------------------------------------------------------------------------
// Single-pass compiler: tokens straight to bytecode, no AST
// ---------------------------------------------------------------------------

// Precedence is an expression binding power, lowest to highest.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecPrimary
)

// next returns the next-higher binding power. Infix handlers parse their
// right operand one level up, which makes binary chains left-associative.
func (p Precedence) next() Precedence {
	if p >= PrecPrimary {
		// Nothing in the rules table carries PrecPrimary as an infix
		// precedence, so this cannot be reached from input.
		panic("no precedence above primary")
	}
	return p + 1
}

// parseFn is a prefix or infix handler. canAssign is true only when the
// expression is being parsed at assignment precedence or looser.
type parseFn func(p *Parser, canAssign bool)

// parseRule supplies a token's prefix handler, infix handler, and infix
// precedence. The zero value (no handlers, PrecNone) covers every token
// kind absent from the table.
type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules map[TokenType]parseRule

func init() {
	rules = map[TokenType]parseRule{
		TokenLeftParen:    {(*Parser).grouping, nil, PrecNone},
		TokenMinus:        {(*Parser).unary, (*Parser).binary, PrecTerm},
		TokenPlus:         {nil, (*Parser).binary, PrecTerm},
		TokenSlash:        {nil, (*Parser).binary, PrecFactor},
		TokenStar:         {nil, (*Parser).binary, PrecFactor},
		TokenBang:         {(*Parser).unary, nil, PrecNone},
		TokenBangEqual:    {nil, (*Parser).binary, PrecEquality},
		TokenEqualEqual:   {nil, (*Parser).binary, PrecEquality},
		TokenGreater:      {nil, (*Parser).binary, PrecComparison},
		TokenGreaterEqual: {nil, (*Parser).binary, PrecComparison},
		TokenLess:         {nil, (*Parser).binary, PrecComparison},
		TokenLessEqual:    {nil, (*Parser).binary, PrecComparison},
		TokenIdentifier:   {(*Parser).variable, nil, PrecNone},
		TokenString:       {(*Parser).stringLiteral, nil, PrecNone},
		TokenNumber:       {(*Parser).number, nil, PrecNone},
		TokenFalse:        {(*Parser).literal, nil, PrecNone},
		TokenNil:          {(*Parser).literal, nil, PrecNone},
		TokenTrue:         {(*Parser).literal, nil, PrecNone},
	}
}

func getRule(t TokenType) parseRule {
	return rules[t]
}

// Parser holds the compilation state: the token window (current/previous
// are the only tokens alive at once), error flags, and the chunk being
// emitted. Created fresh per compilation; no state persists outside it.
type Parser struct {
	scanner *Scanner
	table   *vm.StringTable

	current  Token
	previous Token

	hadError  bool
	panicMode bool
	diags     []Diagnostic

	chunk *vm.Chunk
}

// Compile scans and compiles source in a single pass, emitting bytecode
// into a fresh chunk. String and identifier constants are interned through
// the given table. On failure it returns a *CompileError aggregating every
// diagnostic reported before and between resynchronization points.
func Compile(table *vm.StringTable, source string) (*vm.Chunk, error) {
	p := &Parser{
		scanner: NewScanner(source),
		table:   table,
		chunk:   vm.NewChunk(),
	}

	p.advance()
	for !p.match(TokenEOF) {
		p.declaration()
	}
	p.endCompiler()

	if p.hadError {
		return nil, &CompileError{Diagnostics: p.diags}
	}
	return p.chunk, nil
}

// ---------------------------------------------------------------------------
// Token consumption
// ---------------------------------------------------------------------------

// advance shifts the token window, reporting and skipping error tokens so
// the rest of the parser only ever sees well-formed ones.
func (p *Parser) advance() {
	p.previous = p.current

	for {
		p.current = p.scanner.ScanToken()
		if p.current.Type != TokenError {
			break
		}
		p.errorAtCurrent(p.current.Literal)
	}
}

// consume advances over a token of the expected type or reports message.
func (p *Parser) consume(t TokenType, message string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(message)
}

func (p *Parser) check(t TokenType) bool {
	return p.current.Type == t
}

func (p *Parser) match(t TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

// ---------------------------------------------------------------------------
// Error reporting and panic-mode recovery
// ---------------------------------------------------------------------------

func (p *Parser) errorAt(token Token, message string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	var where string
	switch token.Type {
	case TokenEOF:
		where = " at end"
	case TokenError:
		// The lexeme is the scanner's message, not source text.
	default:
		where = " at '" + token.Literal + "'"
	}

	p.diags = append(p.diags, Diagnostic{Line: token.Line, Where: where, Message: message})
}

func (p *Parser) errorAtCurrent(message string) {
	p.errorAt(p.current, message)
}

func (p *Parser) error(message string) {
	p.errorAt(p.previous, message)
}

// synchronize skips tokens until just past a ';' or just before a token
// that starts a declaration or statement, then resumes normal reporting.
func (p *Parser) synchronize() {
	p.panicMode = false

	for p.current.Type != TokenEOF {
		if p.previous.Type == TokenSemicolon {
			return
		}

		switch p.current.Type {
		case TokenClass, TokenFun, TokenVar, TokenFor,
			TokenIf, TokenWhile, TokenPrint, TokenReturn:
			return
		}

		p.advance()
	}
}

// ---------------------------------------------------------------------------
// Bytecode emission
// ---------------------------------------------------------------------------

func (p *Parser) emitByte(b byte) {
	p.chunk.Write(b, p.previous.Line)
}

func (p *Parser) emitOp(op vm.Opcode) {
	p.emitByte(byte(op))
}

func (p *Parser) emitOps(op1, op2 vm.Opcode) {
	p.emitOp(op1)
	p.emitOp(op2)
}

func (p *Parser) emitReturn() {
	p.emitOp(vm.OpReturn)
}

func (p *Parser) endCompiler() {
	p.emitReturn()
}

// makeConstant adds a value to the pool, degrading to index 0 (with a
// diagnostic) when the one-byte operand space is exhausted.
func (p *Parser) makeConstant(v vm.Value) byte {
	idx := p.chunk.AddConstant(v)
	if idx > math.MaxUint8 {
		p.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (p *Parser) emitConstant(v vm.Value) {
	idx := p.makeConstant(v)
	p.emitOp(vm.OpConstant)
	p.emitByte(idx)
}

// identifierConstant interns an identifier's text and stores it as a
// string constant: the variable's name for runtime lookup. There is no
// compile-time slot resolution for globals.
func (p *Parser) identifierConstant(name Token) byte {
	id := p.table.Intern(name.Literal)
	return p.makeConstant(vm.FromStringID(id))
}

// ---------------------------------------------------------------------------
// Declarations and statements
// ---------------------------------------------------------------------------

func (p *Parser) declaration() {
	if p.match(TokenVar) {
		p.varDeclaration()
	} else {
		p.statement()
	}

	if p.panicMode {
		p.synchronize()
	}
}

func (p *Parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")

	if p.match(TokenEqual) {
		p.expression()
	} else {
		// An uninitialized variable defaults to nil.
		p.emitOp(vm.OpNil)
	}
	p.consume(TokenSemicolon, "Expect ';' after variable declaration.")

	p.emitOp(vm.OpDefineGlobal)
	p.emitByte(global)
}

func (p *Parser) parseVariable(message string) byte {
	p.consume(TokenIdentifier, message)
	return p.identifierConstant(p.previous)
}

func (p *Parser) statement() {
	if p.match(TokenPrint) {
		p.printStatement()
	} else {
		p.expressionStatement()
	}
}

func (p *Parser) printStatement() {
	p.expression()
	p.consume(TokenSemicolon, "Expect ';' after value.")
	p.emitOp(vm.OpPrint)
}

// expressionStatement evaluates an expression and discards its value.
func (p *Parser) expressionStatement() {
	p.expression()
	p.consume(TokenSemicolon, "Expect ';' after expression.")
	p.emitOp(vm.OpPop)
}

// ---------------------------------------------------------------------------
// Expressions (precedence climbing)
// ---------------------------------------------------------------------------

func (p *Parser) expression() {
	p.parsePrecedence(PrecAssignment)
}

// parsePrecedence compiles one expression whose operators all bind at
// least as tightly as minPrec. It consumes one token for its prefix
// handler, then folds in infix operators while they bind tightly enough.
func (p *Parser) parsePrecedence(minPrec Precedence) {
	p.advance()

	prefix := getRule(p.previous.Type).prefix
	if prefix == nil {
		p.error("Expect expression.")
		return
	}

	canAssign := minPrec <= PrecAssignment
	prefix(p, canAssign)

	for minPrec <= getRule(p.current.Type).precedence {
		p.advance()
		infix := getRule(p.previous.Type).infix
		infix(p, canAssign)
	}

	// A '=' still sitting here means no handler could claim it as an
	// assignment: the target was not a plain variable reference.
	if canAssign && p.match(TokenEqual) {
		p.error("Invalid assignment target.")
	}
}

func (p *Parser) grouping(canAssign bool) {
	p.expression()
	p.consume(TokenRightParen, "Expect ')' after expression.")
}

func (p *Parser) unary(canAssign bool) {
	operator := p.previous.Type

	// Compile the operand first; the instruction follows it.
	p.parsePrecedence(PrecUnary)

	switch operator {
	case TokenBang:
		p.emitOp(vm.OpNot)
	case TokenMinus:
		p.emitOp(vm.OpNegate)
	}
}

// binary compiles the right operand at one level above the operator's own
// precedence, then emits the operator. The three "not" forms have no
// dedicated opcodes; each is synthesized from its complement.
func (p *Parser) binary(canAssign bool) {
	operator := p.previous.Type

	rule := getRule(operator)
	p.parsePrecedence(rule.precedence.next())

	switch operator {
	case TokenBangEqual:
		p.emitOps(vm.OpEqual, vm.OpNot)
	case TokenEqualEqual:
		p.emitOp(vm.OpEqual)
	case TokenGreater:
		p.emitOp(vm.OpGreater)
	case TokenGreaterEqual:
		p.emitOps(vm.OpLess, vm.OpNot)
	case TokenLess:
		p.emitOp(vm.OpLess)
	case TokenLessEqual:
		p.emitOps(vm.OpGreater, vm.OpNot)
	case TokenPlus:
		p.emitOp(vm.OpAdd)
	case TokenMinus:
		p.emitOp(vm.OpSubtract)
	case TokenStar:
		p.emitOp(vm.OpMultiply)
	case TokenSlash:
		p.emitOp(vm.OpDivide)
	}
}

func (p *Parser) literal(canAssign bool) {
	switch p.previous.Type {
	case TokenFalse:
		p.emitOp(vm.OpFalse)
	case TokenNil:
		p.emitOp(vm.OpNil)
	case TokenTrue:
		p.emitOp(vm.OpTrue)
	}
}

func (p *Parser) number(canAssign bool) {
	value, err := strconv.ParseFloat(p.previous.Literal, 64)
	if err != nil {
		// The scanner only produces digit runs, so this is unreachable
		// for real tokens.
		p.error("Invalid number literal.")
		return
	}
	p.emitConstant(vm.FromNumber(value))
}

// stringLiteral interns the literal's content (delimiter quotes stripped)
// and stores it as a string constant.
func (p *Parser) stringLiteral(canAssign bool) {
	lexeme := p.previous.Literal
	content := lexeme[1 : len(lexeme)-1]
	id := p.table.Intern(content)
	p.emitConstant(vm.FromStringID(id))
}

// variable compiles a bare identifier as a global read, or as a global
// write when a '=' follows in an assignment-eligible context.
func (p *Parser) variable(canAssign bool) {
	p.namedVariable(p.previous, canAssign)
}

func (p *Parser) namedVariable(name Token, canAssign bool) {
	arg := p.identifierConstant(name)

	if canAssign && p.match(TokenEqual) {
		p.expression()
		p.emitOp(vm.OpSetGlobal)
		p.emitByte(arg)
	} else {
		p.emitOp(vm.OpGetGlobal)
		p.emitByte(arg)
	}
}
