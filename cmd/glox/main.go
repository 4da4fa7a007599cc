// Glox CLI - the main entry point for running Lox programs
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/tliron/commonlog"

	"github.com/chris-oo/glox/compiler"
	"github.com/chris-oo/glox/config"
	"github.com/chris-oo/glox/server"
	"github.com/chris-oo/glox/vm"

	_ "github.com/tliron/commonlog/simple"
)

// Exit codes follow the sysexits convention.
const (
	exitOK           = 0
	exitUsage        = 64
	exitCompileError = 65
	exitRuntimeError = 70
)

const (
	promptMain = "> "
	banner     = "glox REPL - Ctrl+D to exit. Type :help for commands."
	helpText   = `REPL commands:
  :help            Show this help
  :quit / :exit    Exit the REPL
  :trace on|off    Toggle instruction tracing
`
)

func main() {
	trace := flag.Bool("trace", false, "Trace each instruction as it executes")
	printCode := flag.Bool("print-code", false, "Disassemble chunks after compilation")
	lspMode := flag.Bool("lsp", false, "Start language server on stdio")
	verbosity := flag.Int("verbose", 0, "Log verbosity (higher is chattier)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: glox [options] [script]\n")
		fmt.Fprintf(os.Stderr, "       glox [options] compile <script> <output>\n")
		fmt.Fprintf(os.Stderr, "       glox [options] exec <chunkfile>\n")
		fmt.Fprintf(os.Stderr, "       glox [options] disasm <chunkfile>\n\n")
		fmt.Fprintf(os.Stderr, "With no script, starts an interactive REPL.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	commonlog.Configure(*verbosity, nil)

	cfg, err := config.FindAndLoad(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		cfg = config.Default()
	}
	if cfg.Debug.TraceExecution {
		*trace = true
	}
	if cfg.Debug.PrintCode {
		*printCode = true
	}

	if *lspMode {
		if err := server.NewLSP().Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	v := vm.New(compiler.Compile)
	v.SetTrace(*trace)

	args := flag.Args()
	switch {
	case len(args) == 0:
		runREPL(v, cfg, *printCode)
	case args[0] == "compile":
		os.Exit(runCompile(v, args[1:]))
	case args[0] == "exec":
		os.Exit(runExec(v, args[1:]))
	case args[0] == "disasm":
		os.Exit(runDisasm(v, args[1:]))
	case len(args) == 1:
		os.Exit(runFile(v, args[0], *printCode))
	default:
		flag.Usage()
		os.Exit(exitUsage)
	}
}

// ---- Script execution ------------------------------------------------------

// runFile compiles and runs a script file. The whole file is one chunk.
func runFile(v *vm.VM, path string, printCode bool) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not read %q: %v\n", path, err)
		return exitUsage
	}

	return interpret(v, string(source), printCode)
}

// interpret compiles source, optionally disassembles it, runs it, and maps
// errors to exit codes.
func interpret(v *vm.VM, source string, printCode bool) int {
	chunk, err := compiler.Compile(v.Strings(), source)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCompileError
	}

	if printCode {
		fmt.Fprint(os.Stderr, vm.DisassembleChunk(chunk, v.Strings(), "script"))
	}

	if err := v.RunChunk(chunk); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitRuntimeError
	}
	return exitOK
}

// ---- Chunk snapshot subcommands --------------------------------------------

func runCompile(v *vm.VM, args []string) int {
	if len(args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: glox compile <script> <output>\n")
		return exitUsage
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not read %q: %v\n", args[0], err)
		return exitUsage
	}

	chunk, err := compiler.Compile(v.Strings(), string(source))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCompileError
	}

	data, err := vm.MarshalChunk(chunk, v.Strings())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding chunk: %v\n", err)
		return 1
	}

	if err := os.WriteFile(args[1], data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Could not write %q: %v\n", args[1], err)
		return 1
	}
	return exitOK
}

func readChunk(v *vm.VM, path string) (*vm.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read %q: %w", path, err)
	}
	chunk, err := vm.UnmarshalChunk(data, v.Strings())
	if err != nil {
		return nil, fmt.Errorf("could not decode %q: %w", path, err)
	}
	return chunk, nil
}

func runExec(v *vm.VM, args []string) int {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: glox exec <chunkfile>\n")
		return exitUsage
	}

	chunk, err := readChunk(v, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	if err := v.RunChunk(chunk); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitRuntimeError
	}
	return exitOK
}

// runDisasm dumps the bytecode of a source file (compiling it first) or of
// an already compiled .gloxc snapshot.
func runDisasm(v *vm.VM, args []string) int {
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: glox disasm <script|chunkfile>\n")
		return exitUsage
	}

	var chunk *vm.Chunk
	if filepath.Ext(args[0]) == ".gloxc" {
		var err error
		chunk, err = readChunk(v, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitUsage
		}
	} else {
		source, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not read %q: %v\n", args[0], err)
			return exitUsage
		}
		chunk, err = compiler.Compile(v.Strings(), string(source))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitCompileError
		}
	}

	name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	fmt.Print(vm.DisassembleChunk(chunk, v.Strings(), name))
	return exitOK
}

// ---- REPL ------------------------------------------------------------------

// runREPL starts an interactive read-eval-print loop. Globals and interned
// strings persist across lines; a compile or runtime error does not end the
// session.
func runREPL(v *vm.VM, cfg *config.Config, printCode bool) {
	fmt.Println(banner)

	histPath := cfg.HistoryPath()

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	// Load history (best-effort)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	for {
		line, err := ln.Prompt(promptMain)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Println()
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading line: %v\n", err)
			break
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			if handleReplCommand(v, line) {
				break
			}
			ln.AppendHistory(line)
			continue
		}

		interpret(v, line, printCode)
		ln.AppendHistory(line)
	}

	// Persist history (best-effort)
	if f, err := os.Create(histPath); err == nil {
		_, _ = ln.WriteHistory(f)
		_ = f.Close()
	}
}

// handleReplCommand handles REPL meta-commands. Returns true to exit.
func handleReplCommand(v *vm.VM, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case ":help", ":h", ":?":
		fmt.Print(helpText)
	case ":quit", ":exit":
		return true
	case ":trace":
		if len(fields) == 2 && (fields[1] == "on" || fields[1] == "off") {
			v.SetTrace(fields[1] == "on")
			fmt.Printf("Tracing %s\n", fields[1])
		} else {
			fmt.Println("Usage: :trace on|off")
		}
	default:
		fmt.Printf("Unknown command: %s (type :help for commands)\n", fields[0])
	}
	return false
}
