package asm

import "github.com/MPPL/mandarine-lang/ir"

// regID names one of the eight tracked general registers (spec.md §3.1).
type regID int

const (
	AX regID = iota
	BX
	CX
	DX
	DI
	SI
	BP
	SP
	numRegs
)

func (r regID) String() string {
	return [numRegs]string{"ax", "bx", "cx", "dx", "di", "si", "bp", "sp"}[r]
}

// register tracks one general register's occupancy (spec.md §3.1): whether
// it currently holds a live value, what data type it holds, and how many
// pointer-dereference levels remain to resolve through it.
type register struct {
	used     bool
	typ      ir.DataType
	refCount int
}

// registerFile is the emitter's pool of eight tracked registers. SI is
// reserved for pointer dereference chains, BX for comparison right-hand
// sides, DX for DOS int 21h arguments, AX for the expression accumulator
// (spec.md §4.6); BP and SP are never allocated.
type registerFile struct {
	regs [numRegs]register
}

func (rf *registerFile) set(r regID, typ ir.DataType, refCount int) {
	rf.regs[r] = register{used: true, typ: typ, refCount: refCount}
}

func (rf *registerFile) clear(r regID) { rf.regs[r] = register{} }

// reset marks every register free. Called after every CONJUMP/JUMP (§4.6
// ¶"After every CONJUMP or JUMP the register tracker is reset").
func (rf *registerFile) reset() {
	for r := range rf.regs {
		rf.regs[r] = register{}
	}
}

func (rf *registerFile) dirty(r regID) bool { return rf.regs[r].used }
