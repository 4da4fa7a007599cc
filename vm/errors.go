package vm

import "fmt"

// RuntimeError is a fatal error raised during bytecode execution: a type
// mismatch, an undefined variable, or malformed bytecode. It aborts the
// current run; the VM's stack has already been cleared when it is returned.
type RuntimeError struct {
	Line    int
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s\n[line %d] in script", e.Message, e.Line)
}
