package asm

import "github.com/MPPL/mandarine-lang/ir"

// asmKind tags one entry of the emitter's symbolic stack (spec.md §3.1).
type asmKind int

const (
	kindImmediate asmKind = iota
	kindMemory    // a named .DATA symbol
	kindRegister
	kindRegisterMemory // [reg], a dereferenced register
)

// asmData is one symbolic-stack entry: a pushed value that has not yet been
// materialised into a register, paired with enough type information for
// genAsm to pick the right MASM form when it is finally consumed.
type asmData struct {
	kind      asmKind
	lit       ir.Cell
	name      string
	isAddress bool // true when `name` should be read as `offset name`
	reg       regID
	typ       ir.DataType
	width     int
	refCount  int
}

func immediate(v ir.Cell) asmData {
	return asmData{kind: kindImmediate, lit: v, typ: ir.U16, width: 2}
}

func memory(name string, typ ir.DataType, width int) asmData {
	return asmData{kind: kindMemory, name: name, typ: typ, width: width}
}

// address is a memory operand representing the location's own offset rather
// than the word stored there — what pushing a string literal or taking `&x`
// produces (spec.md: `offset <symbol>` addressing, §6.4).
func address(name string, typ ir.DataType) asmData {
	return asmData{kind: kindMemory, name: name, isAddress: true, typ: typ, width: 2}
}

func inRegister(r regID, typ ir.DataType, refCount int) asmData {
	return asmData{kind: kindRegister, reg: r, typ: typ, width: typ.Width(), refCount: refCount}
}

// operand renders d as a MASM-syntax operand, resolving any outstanding
// pointer-dereference levels through SI first (spec.md §4.6: "any operand
// with non-zero ref-count expands into a sequence of mov si, <operand> /
// mov si, [si] / ... until the ref-count reaches zero").
func (e *Emitter) operand(d asmData) string {
	switch d.kind {
	case kindImmediate:
		return itoa(d.lit)
	case kindMemory:
		if d.refCount < 0 {
			return e.derefChain(d.name, -d.refCount)
		}
		if d.refCount > 0 || d.isAddress {
			return "offset " + d.name
		}
		return d.name
	case kindRegister:
		if d.refCount == 0 {
			return d.reg.String()
		}
		return e.derefChainReg(d.reg, d.refCount)
	case kindRegisterMemory:
		return "[" + d.reg.String() + "]"
	default:
		return ""
	}
}

// derefChain walks `levels` pointer indirections starting from a named
// memory operand, leaving the final address in SI and returning "[si]".
func (e *Emitter) derefChain(name string, levels int) string {
	e.emitf("\tmov si, %s", name)
	for n := 1; n < levels; n++ {
		e.emitf("\tmov si, [si]")
	}
	e.regs.set(SI, ir.U16Ptr, 0)
	return "[si]"
}

func (e *Emitter) derefChainReg(r regID, levels int) string {
	e.emitf("\tmov si, %s", r)
	for n := 1; n < levels; n++ {
		e.emitf("\tmov si, [si]")
	}
	e.regs.set(SI, ir.U16Ptr, 0)
	return "[si]"
}
