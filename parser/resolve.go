package parser

import (
	"strings"

	"github.com/MPPL/mandarine-lang/diag"
	"github.com/MPPL/mandarine-lang/ir"
)

// Resolve runs pass 2 (§4.3): it walks the tree in pre-order, turning
// TYPE+VAR adjacency into variable declarations and checking every other VAR
// use against the enclosing block's table.
func Resolve(root *ir.Block, log *diag.Log) error {
	return resolveBlock(root, root.Vars, log)
}

// resolveBlock resolves b, declaring new variables into both b's own table
// (so Lookup's copy-based scoping keeps working, see ir.Block.Lookup) and
// rootVars (so every declaration, however deeply nested, is still reachable
// from Parse's returned Program.Vars — §4.3: nested blocks share the same
// symbols, and vm.New is only ever handed the root table).
func resolveBlock(b *ir.Block, rootVars map[string]*ir.Variable, log *diag.Log) error {
	nodes := make([]ir.Node, 0, len(b.Nodes))

	for i := 0; i < len(b.Nodes); i++ {
		op, isOp := b.Nodes[i].(ir.Op)
		if !isOp {
			nodes = append(nodes, b.Nodes[i])
			continue
		}

		if op.Opcode == ir.OpType {
			var varOp ir.Op
			if i+1 < len(b.Nodes) {
				varOp, isOp = b.Nodes[i+1].(ir.Op)
			}
			if !isOp || varOp.Opcode != ir.OpVar || varOp.RefCount != 0 {
				return log.Fail(diag.Parse, op.Pos, "`%s` type not followed by a declarable variable name", op.Type)
			}
			if _, exists := b.Vars[varOp.Name]; exists {
				return log.Fail(diag.Parse, varOp.Pos, "redeclaration of variable `%s`", displayName(varOp.Name))
			}
			decl := &ir.Variable{
				Type:  op.Type,
				Name:  varOp.Name,
				Value: make([]byte, op.Type.Width()),
			}
			b.Vars[varOp.Name] = decl
			rootVars[varOp.Name] = decl
			// Drop the TYPE op; the VAR op that follows is appended on the
			// next loop iteration, now reinterpreted as the declaration site.
			continue
		}

		if op.Opcode == ir.OpVar {
			if _, exists := b.Vars[op.Name]; !exists {
				return log.Fail(diag.Parse, op.Pos, "use of undeclared variable `%s`", displayName(op.Name))
			}
		}
		nodes = append(nodes, op)
	}
	b.Nodes = nodes

	for _, n := range b.Nodes {
		child, ok := n.(*ir.Block)
		if !ok {
			continue
		}
		child.Vars = copyVars(b.Vars)
		if err := resolveBlock(child, rootVars, log); err != nil {
			return err
		}
	}
	return nil
}

func copyVars(src map[string]*ir.Variable) map[string]*ir.Variable {
	dst := make(map[string]*ir.Variable, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func displayName(internal string) string {
	return strings.TrimPrefix(internal, "v")
}
