package parser

import (
	"fmt"

	"github.com/MPPL/mandarine-lang/diag"
	"github.com/MPPL/mandarine-lang/ir"
)

// isValueOp reports whether op leaves exactly one value on the stack inside a
// condition block's operand expressions (§4.4.1).
func isValueOp(op ir.Opcode) bool {
	return op == ir.OpNum || op == ir.OpVar || op == ir.OpMemRead
}

// Lower runs pass 3 (§4.4): it walks the root block's op sequence, replacing
// every IF/WHILE plus its attached condition/code block(s) with a flat run
// of CONJUMP/JUMP/LABEL ops, and returns the single flattened instruction
// list. Labels stay symbolic ("labelN" strings); nothing downstream needs
// them renumbered to a flat index, so — unlike the splice-and-reindex the
// reference compiler performs in place — this builds the flat list bottom
// up via plain recursion and never has to rewrite a jump target.
func Lower(root *ir.Block, log *diag.Log) ([]ir.Op, error) {
	labelN := 0
	ops, err := lowerNodes(root.Nodes, &labelN, log)
	if err != nil {
		return nil, err
	}
	for i := range ops {
		ops[i].Index = i
	}
	return ops, nil
}

func newLabel(n *int) string {
	l := fmt.Sprintf("label%d", *n)
	*n++
	return l
}

func lowerNodes(nodes []ir.Node, labelN *int, log *diag.Log) ([]ir.Op, error) {
	var out []ir.Op
	for i := 0; i < len(nodes); i++ {
		op, isOp := nodes[i].(ir.Op)
		if !isOp {
			blk := nodes[i].(*ir.Block)
			return nil, log.Fail(diag.Parse, ir.Pos{}, "%s block not attached to an `if`/`while`", blk.Kind)
		}

		switch op.Opcode {
		case ir.OpIf:
			i++
			cond, err := takeBlock(nodes, &i, ir.Condition, op.Pos, log)
			if err != nil {
				return nil, err
			}
			then, err := takeBlock(nodes, &i, ir.Code, op.Pos, log)
			if err != nil {
				return nil, err
			}

			var elseBlock *ir.Block
			if i < len(nodes) {
				if next, ok := nodes[i].(ir.Op); ok && next.Opcode == ir.OpElse {
					i++
					elseBlock, err = takeBlock(nodes, &i, ir.Code, next.Pos, log)
					if err != nil {
						return nil, err
					}
				}
			}

			endThen := newLabel(labelN)
			condOps, _, err := lowerCondition(cond, ir.OpIf, endThen, labelN, log)
			if err != nil {
				return nil, err
			}
			thenOps, err := lowerNodes(then.Nodes, labelN, log)
			if err != nil {
				return nil, err
			}

			out = append(out, condOps...)
			out = append(out, thenOps...)

			if elseBlock != nil {
				endAll := newLabel(labelN)
				elseOps, err := lowerNodes(elseBlock.Nodes, labelN, log)
				if err != nil {
					return nil, err
				}
				out = append(out, ir.Op{Opcode: ir.OpJump, Label: endAll})
				out = append(out, ir.Op{Opcode: ir.OpLabel, Label: endThen})
				out = append(out, elseOps...)
				out = append(out, ir.Op{Opcode: ir.OpLabel, Label: endAll})
			} else {
				out = append(out, ir.Op{Opcode: ir.OpLabel, Label: endThen})
			}
			i-- // compensate for the loop's trailing i++

		case ir.OpWhile:
			i++
			cond, err := takeBlock(nodes, &i, ir.Condition, op.Pos, log)
			if err != nil {
				return nil, err
			}
			body, err := takeBlock(nodes, &i, ir.Code, op.Pos, log)
			if err != nil {
				return nil, err
			}

			after := newLabel(labelN)
			condOps, top, err := lowerCondition(cond, ir.OpWhile, after, labelN, log)
			if err != nil {
				return nil, err
			}
			bodyOps, err := lowerNodes(body.Nodes, labelN, log)
			if err != nil {
				return nil, err
			}

			out = append(out, condOps...)
			out = append(out, bodyOps...)
			out = append(out, ir.Op{Opcode: ir.OpJump, Label: top})
			out = append(out, ir.Op{Opcode: ir.OpLabel, Label: after})
			i-- // compensate for the loop's trailing i++

		case ir.OpElse:
			return nil, log.Fail(diag.Parse, op.Pos, "`else` with no preceding `if`")

		default:
			out = append(out, op)
		}
	}
	return out, nil
}

// takeBlock fetches nodes[*i] as a Block of the expected kind and advances
// *i past it.
func takeBlock(nodes []ir.Node, i *int, kind ir.BlockKind, pos ir.Pos, log *diag.Log) (*ir.Block, error) {
	if *i >= len(nodes) {
		return nil, log.Fail(diag.Parse, pos, "expected a %s block, found end of block", kind)
	}
	b, ok := nodes[*i].(*ir.Block)
	if !ok || b.Kind != kind {
		return nil, log.Fail(diag.Parse, pos, "expected a %s block here", kind)
	}
	*i++
	return b, nil
}

// lowerCondition implements Parse_condition_block (§4.4.1): it splits the
// block's ops on the single comparison they must contain, validates each
// side is a balanced operand expression, and emits
// left ++ [cmp] ++ right ++ [CONJUMP(target)], prepending a fresh LABEL
// when kind is WHILE (the returned topLabel is "" for IF).
func lowerCondition(block *ir.Block, kind ir.Opcode, target string, labelN *int, log *diag.Log) ([]ir.Op, string, error) {
	var ops []ir.Op
	for _, n := range block.Nodes {
		op, ok := n.(ir.Op)
		if !ok {
			return nil, "", log.Fail(diag.Parse, ir.Pos{}, "nested block inside a condition block")
		}
		ops = append(ops, op)
	}

	cmpIdx := -1
	for i, op := range ops {
		if op.Opcode.Comparison() {
			if cmpIdx != -1 {
				return nil, "", log.Fail(diag.Parse, op.Pos, "multiple comparisons in one condition block")
			}
			cmpIdx = i
		}
	}
	if cmpIdx == -1 {
		pos := ir.Pos{}
		if len(ops) > 0 {
			pos = ops[0].Pos
		}
		return nil, "", log.Fail(diag.Parse, pos, "condition block has no comparison operator")
	}

	left := ops[:cmpIdx]
	cmp := ops[cmpIdx]
	right := ops[cmpIdx+1:]

	for _, side := range [][]ir.Op{left, right} {
		for _, op := range side {
			if !isValueOp(op.Opcode) && !op.Opcode.Arithmetic() {
				return nil, "", log.Fail(diag.Parse, op.Pos, "`%s` is not allowed inside a condition block", op.Opcode)
			}
		}
		if !balanced(side) {
			pos := cmp.Pos
			if len(side) > 0 {
				pos = side[0].Pos
			}
			return nil, "", log.Fail(diag.Parse, pos, "unbalanced operand expression in condition block")
		}
	}

	var out []ir.Op
	var top string
	if kind == ir.OpWhile {
		top = newLabel(labelN)
		out = append(out, ir.Op{Opcode: ir.OpLabel, Label: top})
	}
	out = append(out, left...)
	out = append(out, cmp)
	out = append(out, right...)
	out = append(out, ir.Op{Opcode: ir.OpConJump, Label: target})
	return out, top, nil
}

// balanced reports whether side has exactly one more value-producing op
// than arithmetic op, i.e. it reduces to a single RPN-style value (§4.4.1).
func balanced(side []ir.Op) bool {
	values, arith := 0, 0
	for _, op := range side {
		if isValueOp(op.Opcode) {
			values++
		}
		if op.Opcode.Arithmetic() {
			arith++
		}
	}
	return values == arith+1
}
