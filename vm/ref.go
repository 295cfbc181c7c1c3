package vm

import "github.com/MPPL/mandarine-lang/ir"

// addrOf returns the heap address mirroring v's current value, allocating
// one on first use. The mirror is refreshed on every call so that `&x`
// always yields an address holding x's latest committed value. Width
// follows ir.DataType.Width (the variable's own storage width), not
// elemWidth (which instead answers "how wide is the thing a u8p/u16p
// points to" — what a dereference through it later needs).
func (i *Instance) addrOf(name string, v *ir.Variable) ir.Cell {
	if i.shadow == nil {
		i.shadow = make(map[string]int)
	}
	addr, ok := i.shadow[name]
	if !ok {
		addr = i.heapEnd
		i.heapEnd += v.Type.Width()
		i.shadow[name] = addr
	}
	w := v.Type.Width()
	copy(i.heap[addr:addr+w], bfromNum(v.Type, bvalue(v.Value)))
	return ir.Cell(addr)
}

// execRef handles a VAR op whose ref-count is non-zero: op.RefCount > 0 is
// an address-of chain, < 0 a dereference chain (spec.md §3.2, §9). A
// dereference reads through a pointer-typed variable, so it uses
// elemWidth (the pointee's width), not the pointer's own storage width.
func (i *Instance) execRef(op ir.Op, v *ir.Variable) {
	if op.RefCount > 0 {
		i.push(i.addrOf(op.Name, v))
		i.lastType = v.Type
		return
	}
	width := elemWidth(v.Type)
	addr := int(bvalue(v.Value))
	for d := -op.RefCount; d > 1; d-- {
		addr = int(bvalue(i.heap[addr : addr+width]))
	}
	i.push(bvalue(i.heap[addr : addr+width]))
	i.lastType = v.Type
}
