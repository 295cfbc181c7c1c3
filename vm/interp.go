package vm

import (
	"fmt"

	"github.com/MPPL/mandarine-lang/ir"
	"github.com/pkg/errors"
)

// Run dispatches i.Ops starting at i.PC until the op list is exhausted or a
// fatal condition is hit. On a fatal condition, PC points at the
// instruction that triggered it (mirrors the reference VM's Run contract).
func (i *Instance) Run() (err error) {
	defer func() {
		if e := recover(); e != nil {
			switch e := e.(type) {
			case error:
				err = errors.Wrapf(e, "simulate: @pc=%d/%d op=%s", i.PC, len(i.Ops), i.currentOp())
			default:
				panic(e)
			}
		}
	}()

	i.insCount = 0
	for i.PC < len(i.Ops) {
		op := i.Ops[i.PC]
		advance := true

		switch op.Opcode {
		case ir.OpNum:
			i.push(op.Num)

		case ir.OpString:
			i.execString(op)

		case ir.OpAdd:
			a, b := i.pop(), i.pop()
			i.push(b + a)
		case ir.OpSub:
			a, b := i.pop(), i.pop()
			i.push(b - a)
		case ir.OpMul:
			a, b := i.pop(), i.pop()
			i.push(b * a)
		case ir.OpDiv:
			a, b := i.pop(), i.pop()
			i.push(b / a)
		case ir.OpMod:
			a, b := i.pop(), i.pop()
			i.push(b % a)
		case ir.OpShl:
			a, b := i.pop(), i.pop()
			i.push(b << uint(a))
		case ir.OpShr:
			a, b := i.pop(), i.pop()
			i.push(b >> uint(a))

		case ir.OpCopy:
			a := i.pop()
			i.push(a)
			i.push(a)

		case ir.OpPrint:
			fmt.Fprintf(i.output, "%d", i.pop())
		case ir.OpPrintNL:
			fmt.Fprint(i.output, "\n")
		case ir.OpPrintAndNL:
			fmt.Fprintf(i.output, "%d\n", i.pop())
		case ir.OpPrintChar:
			fmt.Fprintf(i.output, "%c", rune(i.pop()))

		case ir.OpIf, ir.OpWhile:
			i.state = StateCondition

		case ir.OpEqual, ir.OpGreater, ir.OpLess, ir.OpGE, ir.OpLE:
			i.condition = op.Opcode

		case ir.OpConJump:
			a, b := i.pop(), i.pop()
			i.state = StateNone
			if !i.compare(b, a) {
				i.PC = i.mustFindLabel(op.Label)
				advance = false
			}

		case ir.OpJump:
			i.state = StateNone
			i.PC = i.mustFindLabel(op.Label)
			advance = false

		case ir.OpLabel:
			// no-op marker

		case ir.OpVar:
			i.execVar(op)

		case ir.OpType:
			// consumed by pass 2; nothing to do at run time

		case ir.OpBuf:
			i.execBuf()

		case ir.OpSet:
			i.state = StateVarDef | StateArithmetic
			i.pop()

		case ir.OpColon:
			if i.state.has(StateVarDef) {
				i.Vars[i.temp1].Value = bfromNum(i.Vars[i.temp1].Type, i.pop())
				i.Vars[i.temp1].Defined = true
			}
			i.state = StateNone

		case ir.OpMemWrite:
			i.execMemWrite()
		case ir.OpMemRead:
			i.execMemRead()

		case ir.OpDOS:
			if err := i.execDOS(); err != nil {
				return err
			}
		case ir.OpLinux:
			if err := i.execLinux(); err != nil {
				return err
			}

		default:
			panic(errors.Errorf("unhandled opcode %s", op.Opcode))
		}

		if advance {
			i.PC++
		}
		i.insCount++
	}
	return nil
}

func (i *Instance) currentOp() string {
	if i.PC < 0 || i.PC >= len(i.Ops) {
		return "<eof>"
	}
	return i.Ops[i.PC].Opcode.String()
}

func (i *Instance) push(v ir.Cell) { i.stack = append(i.stack, v) }

func (i *Instance) pop() ir.Cell {
	n := len(i.stack)
	v := i.stack[n-1]
	i.stack = i.stack[:n-1]
	return v
}

// compare evaluates b <cond> a using the most recently stored comparison
// opcode (spec.md §4.5's CONJUMP row).
func (i *Instance) compare(b, a ir.Cell) bool {
	switch i.condition {
	case ir.OpEqual:
		return b == a
	case ir.OpGreater:
		return b > a
	case ir.OpLess:
		return b < a
	case ir.OpGE:
		return b >= a
	case ir.OpLE:
		return b <= a
	default:
		panic(errors.Errorf("CONJUMP with no comparison recorded"))
	}
}

// mustFindLabel scans the whole op list for a LABEL with the given name.
// Both forward skips (if/else, loop exit) and the backward jump closing a
// while loop resolve through this single search.
func (i *Instance) mustFindLabel(label string) int {
	for idx, op := range i.Ops {
		if op.Opcode == ir.OpLabel && op.Label == label {
			return idx
		}
	}
	panic(errors.Errorf("undefined label %q", label))
}

func (i *Instance) execString(op ir.Op) {
	s := op.Str
	if i.state.has(StateVarDef) {
		v := i.Vars[i.temp1]
		switch v.Type {
		case ir.U8Ptr:
			for y := 0; y < len(s); y++ {
				i.heap[i.heapEnd+y] = s[y]
			}
			i.heap[i.heapEnd+len(s)] = '$'
			v.Value = bfromNum(v.Type, ir.Cell(i.heapEnd))
			v.Defined = true
			i.heapEnd += len(s) + 1
		case ir.U16Ptr:
			for y := 0; y < len(s); y++ {
				i.heap[i.heapEnd+y*2] = s[y]
			}
			i.heap[i.heapEnd+len(s)*2] = '$'
			v.Value = bfromNum(v.Type, ir.Cell(i.heapEnd))
			v.Defined = true
			i.heapEnd += (len(s) + 1) * 2
		default:
			panic(errors.Errorf("string literal assigned to non-pointer variable %q", v.Name))
		}
		i.state = StateNone
		return
	}

	for y := 0; y < len(s); y++ {
		i.heap[i.heapEnd+y] = s[y]
	}
	i.heap[i.heapEnd+len(s)] = '$'
	addr := ir.Cell(i.heapEnd)
	i.heapEnd += len(s) + 1
	i.push(addr)
}

func (i *Instance) execVar(op ir.Op) {
	v, ok := i.Vars[op.Name]
	if !ok {
		panic(errors.Errorf("reference to undeclared variable %q", op.Name))
	}
	if op.RefCount != 0 {
		i.execRef(op, v)
		return
	}
	if i.state.has(StateArithmetic) || i.state.has(StateCondition) {
		i.push(bvalue(v.Value))
	} else {
		i.temp1 = op.Name
		i.push(bvalue(v.Value))
	}
	i.lastType = v.Type
}

func (i *Instance) execBuf() {
	if !i.state.has(StateVarDef) {
		panic(errors.Errorf("`buf` used outside a variable declaration"))
	}
	v := i.Vars[i.temp1]
	n := int(i.pop()) * elemWidth(v.Type)
	v.Value = bfromNum(v.Type, ir.Cell(i.heapEnd))
	v.Defined = true
	i.heap[i.heapEnd] = byte(n - 2)
	i.heapEnd += n
	i.state = StateNone
}

func (i *Instance) execMemWrite() {
	addr := i.pop()
	val := i.pop()
	v := i.Vars[i.temp1]
	switch v.Type {
	case ir.U8, ir.U8Ptr:
		i.heap[addr] = byte(val % 256)
	case ir.U16, ir.U16Ptr:
		b := bfromNum(ir.U16, val)
		i.heap[addr], i.heap[addr+1] = b[0], b[1]
	}
}

func (i *Instance) execMemRead() {
	addr := i.pop()
	switch i.lastType {
	case ir.U8, ir.U8Ptr:
		i.push(ir.Cell(i.heap[addr]))
	case ir.U16, ir.U16Ptr:
		i.push(bvalue(i.heap[addr : addr+2]))
	default:
		panic(errors.Errorf("MEMREAD with no preceding typed variable reference"))
	}
}
