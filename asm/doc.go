// Package asm implements Mandarine's 16-bit assembly backend (spec.md §4.6):
// it walks the same flat []ir.Op the vm package interprets and emits
// MASM-syntax text targeting DOS .MODEL SMALL.
//
// Emission keeps a symbolic stack parallel to the interpreter's value stack
// (asmData, §3.1) and a small tracked register file (§3.1, §4.6). Arithmetic
// ops are dispatched through genAsm, an opcode switch mirroring the
// interpreter's own but trading runtime values for register/memory operands;
// operand kinds are rendered by operand(), not by a table keyed on
// (destination kind × source kind). Comparison ops are emitted directly by
// emitOp as a `mov bx` / `cmp ax, bx` pair.
package asm
