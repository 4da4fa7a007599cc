package compiler

import (
	"testing"
)

func scanTypes(t *testing.T, source string) []TokenType {
	t.Helper()
	var types []TokenType
	for _, tok := range Tokenize(source) {
		types = append(types, tok.Type)
	}
	return types
}

func TestScanSingleCharTokens(t *testing.T) {
	got := scanTypes(t, "(){};,.-+/*")
	want := []TokenType{
		TokenLeftParen, TokenRightParen, TokenLeftBrace, TokenRightBrace,
		TokenSemicolon, TokenComma, TokenDot, TokenMinus, TokenPlus,
		TokenSlash, TokenStar, TokenEOF,
	}
	if len(got) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestScanTwoCharOperators(t *testing.T) {
	tests := []struct {
		source string
		want   []TokenType
	}{
		{"!=", []TokenType{TokenBangEqual, TokenEOF}},
		{"! =", []TokenType{TokenBang, TokenEqual, TokenEOF}},
		{"==", []TokenType{TokenEqualEqual, TokenEOF}},
		{"===", []TokenType{TokenEqualEqual, TokenEqual, TokenEOF}},
		{"<=", []TokenType{TokenLessEqual, TokenEOF}},
		{">=", []TokenType{TokenGreaterEqual, TokenEOF}},
		{"<", []TokenType{TokenLess, TokenEOF}},
		{">", []TokenType{TokenGreater, TokenEOF}},
	}

	for _, tt := range tests {
		got := scanTypes(t, tt.source)
		if len(got) != len(tt.want) {
			t.Errorf("%q: got %d tokens, want %d", tt.source, len(got), len(tt.want))
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("%q token %d = %v, want %v", tt.source, i, got[i], tt.want[i])
			}
		}
	}
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	tests := []struct {
		source string
		want   TokenType
	}{
		{"and", TokenAnd},
		{"class", TokenClass},
		{"else", TokenElse},
		{"false", TokenFalse},
		{"for", TokenFor},
		{"fun", TokenFun},
		{"if", TokenIf},
		{"nil", TokenNil},
		{"or", TokenOr},
		{"print", TokenPrint},
		{"return", TokenReturn},
		{"super", TokenSuper},
		{"this", TokenThis},
		{"true", TokenTrue},
		{"var", TokenVar},
		{"while", TokenWhile},
		{"variable", TokenIdentifier},
		{"printer", TokenIdentifier},
		{"_under", TokenIdentifier},
		{"x1", TokenIdentifier},
	}

	for _, tt := range tests {
		toks := Tokenize(tt.source)
		if toks[0].Type != tt.want {
			t.Errorf("%q scanned as %v, want %v", tt.source, toks[0].Type, tt.want)
		}
		if toks[0].Literal != tt.source {
			t.Errorf("%q lexeme = %q", tt.source, toks[0].Literal)
		}
	}
}

func TestScanNumbers(t *testing.T) {
	tests := []struct {
		source string
		lexeme string
	}{
		{"123", "123"},
		{"123.456", "123.456"},
		{"0.5", "0.5"},
	}

	for _, tt := range tests {
		toks := Tokenize(tt.source)
		if toks[0].Type != TokenNumber || toks[0].Literal != tt.lexeme {
			t.Errorf("%q scanned as %v", tt.source, toks[0])
		}
	}
}

func TestScanTrailingDotNotPartOfNumber(t *testing.T) {
	got := scanTypes(t, "123.")
	want := []TokenType{TokenNumber, TokenDot, TokenEOF}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestScanStringLiteral(t *testing.T) {
	toks := Tokenize(`"hello world"`)
	if toks[0].Type != TokenString {
		t.Fatalf("scanned as %v", toks[0])
	}
	// The lexeme includes the quotes.
	if toks[0].Literal != `"hello world"` {
		t.Errorf("lexeme = %q", toks[0].Literal)
	}
}

func TestScanUnterminatedString(t *testing.T) {
	toks := Tokenize(`"abc`)
	if toks[0].Type != TokenError {
		t.Fatalf("scanned as %v, want error", toks[0])
	}
	if toks[0].Literal != "Unterminated string." {
		t.Errorf("message = %q", toks[0].Literal)
	}
}

func TestScanUnexpectedCharacter(t *testing.T) {
	toks := Tokenize("@")
	if toks[0].Type != TokenError || toks[0].Literal != "Unexpected character." {
		t.Errorf("scanned as %v", toks[0])
	}
}

func TestScanLineTracking(t *testing.T) {
	source := "one\ntwo // comment\nthree \"multi\nline\" four"
	toks := Tokenize(source)

	wantLines := map[string]int{
		"one":   1,
		"two":   2,
		"three": 3,
		"four":  4,
	}
	for _, tok := range toks {
		if want, ok := wantLines[tok.Literal]; ok && tok.Line != want {
			t.Errorf("%q on line %d, want %d", tok.Literal, tok.Line, want)
		}
	}
}

func TestScanCommentsIgnored(t *testing.T) {
	got := scanTypes(t, "// just a comment\n1 // trailing\n// last")
	want := []TokenType{TokenNumber, TokenEOF}
	if len(got) != len(want) || got[0] != want[0] {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestScanTokenEOFIdempotent(t *testing.T) {
	s := NewScanner("1")
	if tok := s.ScanToken(); tok.Type != TokenNumber {
		t.Fatalf("first token = %v", tok)
	}
	for i := 0; i < 3; i++ {
		if tok := s.ScanToken(); tok.Type != TokenEOF {
			t.Errorf("call %d after end = %v, want EOF", i, tok)
		}
	}
}
