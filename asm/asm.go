package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MPPL/mandarine-lang/ir"
	"github.com/MPPL/mandarine-lang/lexer"
	"github.com/pkg/errors"
)

func itoa(v ir.Cell) string { return strconv.FormatInt(v, 10) }

// Emitter walks a flattened op list once and accumulates MASM-syntax text
// (spec.md §4.6). Use Emit for a one-shot translation.
type Emitter struct {
	vars map[string]*ir.Variable
	mode lexer.Mode

	data strings.Builder
	code strings.Builder

	declared map[string]bool
	stack    []asmData
	regs     registerFile

	shortJumpN        int
	lastVar           string
	pendingAssignName string
	pendingCompare    ir.Opcode
	usedPrintDec      bool
	usedPrintNL       bool
}

// Emit translates ops (spec.md pass-3 output) plus their resolved variable
// table into a complete MASM source listing.
func Emit(ops []ir.Op, vars map[string]*ir.Variable, mode lexer.Mode) (string, error) {
	e := &Emitter{vars: vars, mode: mode, declared: make(map[string]bool)}
	for _, op := range ops {
		if err := e.emitOp(op); err != nil {
			return "", errors.Wrapf(err, "asm: @%d op=%s", op.Index, op.Opcode)
		}
	}
	var out strings.Builder
	out.WriteString(".MODEL SMALL\n.STACK 100h\n.DATA\n")
	out.WriteString(e.data.String())
	out.WriteString(".CODE\nstart:\n\tmov ax, @data\n\tmov ds, ax\n")
	out.WriteString(e.code.String())
	out.WriteString("\tmov ah, 4Ch\n\tint 21h\n")
	out.WriteString(e.printHelpers())
	out.WriteString("END start\n")
	return out.String(), nil
}

// printHelpers emits the binary-to-decimal-ASCII routine backing PRINT and
// PRINT_AND_NL, and the bare newline routine backing PRINT_NL, only when
// used (SPEC_FULL.md §13: the Python original leaves these as no-ops on the
// assembly backend; this supplies a real DOS implementation instead).
func (e *Emitter) printHelpers() string {
	var b strings.Builder
	if e.usedPrintDec {
		b.WriteString(
			"print_dec proc\n" +
				"\tpush ax\n\tpush bx\n\tpush cx\n\tpush dx\n" +
				"\tmov bx, 10\n\txor cx, cx\n" +
				"pd_divide:\n" +
				"\txor dx, dx\n\tdiv bx\n\tpush dx\n\tinc cx\n" +
				"\tcmp ax, 0\n\tjne pd_divide\n" +
				"pd_print:\n" +
				"\tpop dx\n\tadd dl, '0'\n\tmov ah, 2\n\tint 21h\n" +
				"\tloop pd_print\n" +
				"\tpop dx\n\tpop cx\n\tpop bx\n\tpop ax\n\tret\n" +
				"print_dec endp\n")
	}
	if e.usedPrintNL {
		b.WriteString(
			"print_nl proc\n" +
				"\tpush ax\n\tpush dx\n" +
				"\tmov dl, 13\n\tmov ah, 2\n\tint 21h\n" +
				"\tmov dl, 10\n\tmov ah, 2\n\tint 21h\n" +
				"\tpop dx\n\tpop ax\n\tret\n" +
				"print_nl endp\n")
	}
	return b.String()
}

func (e *Emitter) emitf(format string, args ...interface{}) {
	fmt.Fprintf(&e.code, format+"\n", args...)
}

func (e *Emitter) push(d asmData) { e.stack = append(e.stack, d) }

func (e *Emitter) pop() asmData {
	n := len(e.stack)
	d := e.stack[n-1]
	e.stack = e.stack[:n-1]
	return d
}

// declare emits the .DATA directive for a variable the first time it is
// seen (spec.md §4.6: `name db ?` / `name dw ?`).
func (e *Emitter) declare(name string, v *ir.Variable) {
	if e.declared[name] {
		return
	}
	e.declared[name] = true
	if v.Type == ir.U8 {
		fmt.Fprintf(&e.data, "%s db ?\n", name)
	} else {
		fmt.Fprintf(&e.data, "%s dw ?\n", name)
	}
}

func (e *Emitter) emitOp(op ir.Op) error {
	switch op.Opcode {
	case ir.OpNum:
		e.push(immediate(op.Num))

	case ir.OpString:
		e.emitString(op)

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod, ir.OpShl, ir.OpShr:
		// pop order matches vm.Run: first pop is the top-of-stack operand,
		// second is the one below it; genAsm computes below-op-top, same
		// as the interpreter's `push(b <op> a)`.
		top := e.pop()
		below := e.pop()
		e.genAsm(op.Opcode, below, top)

	case ir.OpCopy:
		top := e.pop()
		e.ensureInAX(top)
		e.push(inRegister(AX, top.typ, 0))
		e.push(inRegister(AX, top.typ, 0))

	case ir.OpPrint, ir.OpPrintNL, ir.OpPrintAndNL, ir.OpPrintChar:
		e.emitPrint(op.Opcode)

	case ir.OpIf, ir.OpWhile:
		// nothing to emit directly; lowering already produced the
		// condition/body/label sequence this op used to wrap.

	case ir.OpEqual, ir.OpGreater, ir.OpLess, ir.OpGE, ir.OpLE:
		top := e.pop()
		below := e.pop()
		e.ensureInAX(below)
		e.emitf("\tmov bx, %s", e.operand(top))
		e.emitf("\tcmp ax, bx")
		e.pendingCompare = op.Opcode

	case ir.OpConJump:
		e.emitConJump(op.Label)
		e.regs.reset()

	case ir.OpJump:
		e.emitJump(op.Label)
		e.regs.reset()

	case ir.OpLabel:
		e.emitf("%s:", op.Label)

	case ir.OpVar:
		e.emitVar(op)

	case ir.OpType:
		// consumed by pass 2

	case ir.OpBuf:
		e.emitBuf()

	case ir.OpSet:
		e.pop()
		e.pendingAssignName = e.lastVar

	case ir.OpColon:
		e.emitColon()

	case ir.OpMemWrite:
		e.emitMemWrite()
	case ir.OpMemRead:
		e.emitMemRead()

	case ir.OpDOS:
		e.emitDOS()
	case ir.OpLinux:
		return errors.Errorf("linux syscalls have no 16-bit DOS lowering")

	default:
		return errors.Errorf("unhandled opcode %s", op.Opcode)
	}
	return nil
}

// ensureInAX materialises d into AX if it is not already a bare AX operand,
// clearing AX first when it held something else (spec.md §4.6: "AX ...
// cleared (xor ax, ax) before a u8 load if it was previously dirty").
func (e *Emitter) ensureInAX(d asmData) {
	if d.kind == kindRegister && d.reg == AX && d.refCount == 0 {
		return
	}
	if e.regs.dirty(AX) {
		e.emitf("\txor ax, ax")
	}
	e.emitf("\tmov ax, %s", e.operand(d))
	e.regs.set(AX, d.typ, 0)
}

var arithMnemonic = map[ir.Opcode]string{
	ir.OpAdd: "add",
	ir.OpSub: "sub",
	ir.OpMul: "imul",
	ir.OpDiv: "idiv",
	ir.OpMod: "idiv",
	ir.OpShl: "shl",
	ir.OpShr: "shr",
}

// genAsm emits binary arithmetic (spec.md §4.6). It switches on the opcode
// only: the left operand is loaded into AX, and the right operand's kind
// (immediate, memory, register, dereference) is handled by operand() rather
// than by a per-(destination-kind × source-kind) table. It always lands the
// result in AX.
func (e *Emitter) genAsm(op ir.Opcode, a, b asmData) {
	e.ensureInAX(a)
	mnem := arithMnemonic[op]
	switch op {
	case ir.OpMul, ir.OpDiv, ir.OpMod:
		e.emitf("\tmov bx, %s", e.operand(b))
		e.emitf("\t%s bx", mnem)
		if op == ir.OpMod {
			e.emitf("\tmov ax, dx")
		}
	case ir.OpShl, ir.OpShr:
		e.emitf("\tmov cl, %s", e.operand(b))
		e.emitf("\t%s ax, cl", mnem)
	default:
		e.emitf("\t%s ax, %s", mnem, e.operand(b))
	}
	e.regs.set(AX, a.typ, 0)
	e.push(inRegister(AX, a.typ, 0))
}

func (e *Emitter) emitPrint(op ir.Opcode) {
	switch op {
	case ir.OpPrintNL:
		e.usedPrintNL = true
		e.emitf("\tcall print_nl")
		return
	case ir.OpPrintChar:
		v := e.pop()
		e.ensureInAX(v)
		e.emitf("\tmov dl, al\n\tmov ah, 2\n\tint 21h")
		return
	}
	v := e.pop()
	e.ensureInAX(v)
	e.usedPrintDec = true
	e.emitf("\tcall print_dec")
	if op == ir.OpPrintAndNL {
		e.usedPrintNL = true
		e.emitf("\tcall print_nl")
	}
}

func (e *Emitter) emitString(op ir.Op) {
	label := fmt.Sprintf("str%d", e.shortJumpN)
	e.shortJumpN++
	fmt.Fprintf(&e.data, "%s db %s\n", label, masmStringLiteral(op.Str+"$"))
	e.push(address(label, ir.U8Ptr))
}

// masmStringLiteral renders s as a MASM db byte-literal list, splitting out
// any control byte (the lexer has already decoded escapes like `\n` into raw
// bytes, e.g. 0x0A) as a bare numeric operand between quoted runs of
// printable text — an embedded control byte inside MASM quotes is invalid
// (mandarine.py's DOS string lowering does the same split on raw `\n`,
// yielding `"HI", 10,"$"` for `"HI\n"`).
func masmStringLiteral(s string) string {
	var segs []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			segs = append(segs, `"`+cur.String()+`"`)
			cur.Reset()
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 {
			flush()
			segs = append(segs, strconv.Itoa(int(c)))
		} else {
			cur.WriteByte(c)
		}
	}
	flush()
	return strings.Join(segs, ",")
}

func (e *Emitter) emitVar(op ir.Op) {
	v := e.vars[op.Name]
	e.declare(op.Name, v)
	e.push(memory(op.Name, v.Type, v.Type.Width()).withRef(op.RefCount))
	e.lastVar = op.Name
}

// emitBuf declares a BUF-backed buffer. Its leading byte holds n-2 (matching
// vm/interp.go's execBuf, which stores byte(n-2) as the capacity prefix so
// the interpreter and compiler agree on heap layout, §8), followed by n-2
// bytes of storage.
func (e *Emitter) emitBuf() {
	n := e.pop()
	name := e.lastVar
	count := itoa(n.lit - 2)
	fmt.Fprintf(&e.data, "%s db %s, %s dup (?)\n", name, count, count)
	e.declared[name] = true
}

func (e *Emitter) emitColon() {
	if e.pendingAssignName == "" {
		return
	}
	v := e.pop()
	e.ensureInAX(v)
	e.emitf("\tmov %s, ax", e.pendingAssignName)
	e.pendingAssignName = ""
}

func (e *Emitter) emitMemWrite() {
	addr := e.pop()
	val := e.pop()
	e.ensureInAX(val)
	e.emitf("\tmov si, %s", e.operand(addr))
	e.emitf("\tmov [si], al")
}

func (e *Emitter) emitMemRead() {
	addr := e.pop()
	e.emitf("\tmov si, %s", e.operand(addr))
	e.emitf("\tmov al, [si]")
	e.regs.set(AX, ir.U8, 0)
	e.push(inRegister(AX, ir.U8, 0))
}

func (e *Emitter) emitDOS() {
	fnVal := e.pop()
	addr := e.pop()
	e.emitf("\tmov dx, %s", e.operand(addr))
	e.ensureInAX(fnVal)
	e.emitf("\tmov ah, al")
	e.emitf("\tint 21h")
}

// skipJump holds the non-negated mnemonic: the condition under which
// CONJUMP's `bar` label (the "don't jump" fallthrough) should be taken, i.e.
// the true sense of the comparison. CONJUMP only jumps to label when the
// comparison is FALSE, so the two-step form must skip past the jump (via
// `bar`) exactly when the comparison holds.
var skipJump = map[ir.Opcode]string{
	ir.OpEqual:   "je",
	ir.OpGreater: "jg",
	ir.OpLess:    "jl",
	ir.OpGE:      "jge",
	ir.OpLE:      "jle",
}

// emitConJump always emits the two-step bar_k/jmp workaround described in
// spec.md §4.6 for any CONJUMP target more than 30 ops away, rather than a
// direct short conditional jump used only for nearby targets. A CONJUMP's
// target is always a forward label not yet emitted at this point in a
// single linear pass, so the distance cannot be measured in advance; always
// taking the two-step form is unconditionally correct (it just forgoes the
// short-jump encoding when the target happens to be close).
func (e *Emitter) emitConJump(label string) {
	mnem, ok := skipJump[e.pendingCompare]
	if !ok {
		mnem = "je"
	}
	bar := fmt.Sprintf("bar_%d", e.shortJumpN)
	e.shortJumpN++
	e.emitf("\t%s %s", mnem, bar)
	e.emitf("\tjmp %s", label)
	e.emitf("%s:", bar)
}

func (e *Emitter) emitJump(label string) {
	e.emitf("\tjmp %s", label)
}

func (d asmData) withRef(n int) asmData { d.refCount = n; return d }
