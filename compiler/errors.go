package compiler

import (
	"fmt"
	"strings"
)

// Diagnostic is a single compile-time error with its source position.
type Diagnostic struct {
	Line    int
	Where   string // " at 'lexeme'", " at end", or "" for scanner errors
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[line %d] Error%s: %s", d.Line, d.Where, d.Message)
}

// CompileError aggregates the diagnostics of a failed compilation. Panic
// mode bounds the count to roughly one per syntax error.
type CompileError struct {
	Diagnostics []Diagnostic
}

func (e *CompileError) Error() string {
	lines := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}
