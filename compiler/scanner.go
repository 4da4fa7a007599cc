package compiler

// ---------------------------------------------------------------------------
// Scanner: Tokenizer for Lox syntax
// ---------------------------------------------------------------------------

// Scanner tokenizes Lox source code. Tokens are produced one at a time and
// borrow their lexemes from the source buffer. A scanner is not restartable
// mid-stream; construct a new one per compilation.
type Scanner struct {
	source  string
	start   int // start of the lexeme being scanned
	current int // current position in source
	line    int // current line (1-based)
}

// NewScanner creates a new scanner for the given source text.
func NewScanner(source string) *Scanner {
	return &Scanner{
		source: source,
		line:   1,
	}
}

// ScanToken returns the next token. Once it returns TokenEOF it keeps
// returning TokenEOF on every subsequent call.
func (s *Scanner) ScanToken() Token {
	s.skipWhitespace()
	s.start = s.current

	if s.isAtEnd() {
		return s.makeToken(TokenEOF)
	}

	c := s.advance()

	switch {
	case isAlpha(c):
		return s.identifier()
	case isDigit(c):
		return s.number()
	}

	switch c {
	case '(':
		return s.makeToken(TokenLeftParen)
	case ')':
		return s.makeToken(TokenRightParen)
	case '{':
		return s.makeToken(TokenLeftBrace)
	case '}':
		return s.makeToken(TokenRightBrace)
	case ';':
		return s.makeToken(TokenSemicolon)
	case ',':
		return s.makeToken(TokenComma)
	case '.':
		return s.makeToken(TokenDot)
	case '-':
		return s.makeToken(TokenMinus)
	case '+':
		return s.makeToken(TokenPlus)
	case '/':
		return s.makeToken(TokenSlash)
	case '*':
		return s.makeToken(TokenStar)
	case '!':
		if s.match('=') {
			return s.makeToken(TokenBangEqual)
		}
		return s.makeToken(TokenBang)
	case '=':
		if s.match('=') {
			return s.makeToken(TokenEqualEqual)
		}
		return s.makeToken(TokenEqual)
	case '<':
		if s.match('=') {
			return s.makeToken(TokenLessEqual)
		}
		return s.makeToken(TokenLess)
	case '>':
		if s.match('=') {
			return s.makeToken(TokenGreaterEqual)
		}
		return s.makeToken(TokenGreater)
	case '"':
		return s.stringLiteral()
	}

	return s.errorToken("Unexpected character.")
}

// ---------------------------------------------------------------------------
// Character helpers
// ---------------------------------------------------------------------------

func (s *Scanner) isAtEnd() bool {
	return s.current >= len(s.source)
}

func (s *Scanner) advance() byte {
	c := s.source[s.current]
	s.current++
	return c
}

func (s *Scanner) peek() byte {
	if s.isAtEnd() {
		return 0
	}
	return s.source[s.current]
}

func (s *Scanner) peekNext() byte {
	if s.current+1 >= len(s.source) {
		return 0
	}
	return s.source[s.current+1]
}

// match consumes the next character only if it equals expected.
func (s *Scanner) match(expected byte) bool {
	if s.isAtEnd() || s.source[s.current] != expected {
		return false
	}
	s.current++
	return true
}

func (s *Scanner) makeToken(t TokenType) Token {
	return Token{
		Type:    t,
		Literal: s.source[s.start:s.current],
		Line:    s.line,
	}
}

// errorToken carries the diagnostic message instead of a lexeme.
func (s *Scanner) errorToken(message string) Token {
	return Token{
		Type:    TokenError,
		Literal: message,
		Line:    s.line,
	}
}

// ---------------------------------------------------------------------------
// Lexeme scanners
// ---------------------------------------------------------------------------

// skipWhitespace consumes spaces, tabs, newlines and // line comments
// before each token, tracking line numbers.
func (s *Scanner) skipWhitespace() {
	for {
		switch s.peek() {
		case ' ', '\r', '\t':
			s.advance()
		case '\n':
			s.line++
			s.advance()
		case '/':
			if s.peekNext() == '/' {
				// Line comment: consume to the next newline, exclusive
				for s.peek() != '\n' && !s.isAtEnd() {
					s.advance()
				}
			} else {
				return
			}
		default:
			return
		}
	}
}

// stringLiteral scans to the closing quote, tracking embedded newlines.
func (s *Scanner) stringLiteral() Token {
	for s.peek() != '"' && !s.isAtEnd() {
		if s.peek() == '\n' {
			s.line++
		}
		s.advance()
	}

	if s.isAtEnd() {
		return s.errorToken("Unterminated string.")
	}

	s.advance() // closing quote
	return s.makeToken(TokenString)
}

// number scans a maximal digit run with an optional fractional part. A
// trailing '.' not followed by a digit is not part of the number.
func (s *Scanner) number() Token {
	for isDigit(s.peek()) {
		s.advance()
	}

	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.advance() // consume the '.'
		for isDigit(s.peek()) {
			s.advance()
		}
	}

	return s.makeToken(TokenNumber)
}

// identifier scans an identifier or keyword.
func (s *Scanner) identifier() Token {
	for isAlpha(s.peek()) || isDigit(s.peek()) {
		s.advance()
	}

	lexeme := s.source[s.start:s.current]
	if t, ok := reservedWords[lexeme]; ok {
		return s.makeToken(t)
	}
	return s.makeToken(TokenIdentifier)
}

// Helper functions

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Tokenize returns all tokens from the input, including the final EOF.
func Tokenize(input string) []Token {
	s := NewScanner(input)
	var tokens []Token
	for {
		tok := s.ScanToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return tokens
}
