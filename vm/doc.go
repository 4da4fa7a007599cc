// Package vm implements the glox virtual machine.
//
// This package contains:
//   - NaN-boxed value representation
//   - Refcounted string interning table
//   - Bytecode chunks, their disassembler, and a CBOR wire encoding
//   - Stack-based bytecode interpreter
package vm
