package parser_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/MPPL/mandarine-lang/diag"
	"github.com/MPPL/mandarine-lang/ir"
	"github.com/MPPL/mandarine-lang/lexer"
	"github.com/MPPL/mandarine-lang/parser"
)

func build(t *testing.T, src string) *ir.Block {
	t.Helper()
	res, err := lexer.Scan("test", []byte(src))
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	log := &diag.Log{}
	root, err := parser.Build(res.Tokens, log)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return root
}

func TestBuild_simpleOps(t *testing.T) {
	root := build(t, "1 2 +")
	want := []ir.Node{
		ir.Op{Opcode: ir.OpNum, Num: 1},
		ir.Op{Opcode: ir.OpNum, Num: 2},
		ir.Op{Opcode: ir.OpAdd},
	}
	opts := cmp.Options{cmp.Comparer(func(a, b ir.Pos) bool { return true })}
	if diff := cmp.Diff(want, root.Nodes, opts); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_varRef(t *testing.T) {
	root := build(t, "**x &y")
	if len(root.Nodes) != 2 {
		t.Fatalf("expected 2 ops, got %d", len(root.Nodes))
	}
	a := root.Nodes[0].(ir.Op)
	if a.Opcode != ir.OpVar || a.RefCount != -2 || a.Name != "vx" {
		t.Errorf("Got: %+v", a)
	}
	b := root.Nodes[1].(ir.Op)
	if b.Opcode != ir.OpVar || b.RefCount != 1 || b.Name != "vy" {
		t.Errorf("Got: %+v", b)
	}
}

func TestBuild_danglingRef(t *testing.T) {
	res, err := lexer.Scan("test", []byte("*5"))
	if err != nil {
		t.Fatal(err)
	}
	log := &diag.Log{}
	if _, err := parser.Build(res.Tokens, log); err == nil {
		t.Fatal("expected a dangling ref error")
	}
}

func TestBuild_mismatchedBrace(t *testing.T) {
	res, err := lexer.Scan("test", []byte("if ( 1 ) }"))
	if err != nil {
		t.Fatal(err)
	}
	log := &diag.Log{}
	if _, err := parser.Build(res.Tokens, log); err == nil {
		t.Fatal("expected a mismatched-brace error")
	}
}

func TestBuild_blocks(t *testing.T) {
	root := build(t, "if ( x == 1 ) { . }")
	if len(root.Nodes) != 3 {
		t.Fatalf("expected if + condition + code, got %d nodes", len(root.Nodes))
	}
	if _, ok := root.Nodes[0].(ir.Op); !ok {
		t.Fatalf("expected first node to be the IF op")
	}
	cond, ok := root.Nodes[1].(*ir.Block)
	if !ok || cond.Kind != ir.Condition {
		t.Fatalf("expected a condition block, got %T", root.Nodes[1])
	}
	code, ok := root.Nodes[2].(*ir.Block)
	if !ok || code.Kind != ir.Code {
		t.Fatalf("expected a code block, got %T", root.Nodes[2])
	}
}

func TestResolve_declAndUse(t *testing.T) {
	root := build(t, "u16 x = 5 ; x .")
	log := &diag.Log{}
	if err := parser.Resolve(root, log); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	v, ok := root.Vars["vx"]
	if !ok || v.Type != ir.U16 {
		t.Fatalf("expected vx: u16 in variable table, got %+v", root.Vars)
	}
	// the TYPE op must have been dropped, leaving VAR = NUM ; VAR .
	for _, n := range root.Nodes {
		if op, ok := n.(ir.Op); ok && op.Opcode == ir.OpType {
			t.Fatalf("TYPE op should have been consumed by resolve, found %+v", op)
		}
	}
}

func TestResolve_undeclaredUse(t *testing.T) {
	root := build(t, "x .")
	log := &diag.Log{}
	if err := parser.Resolve(root, log); err == nil {
		t.Fatal("expected undeclared-variable error")
	}
}

func TestResolve_redeclaration(t *testing.T) {
	root := build(t, "u8 x u16 x")
	log := &diag.Log{}
	if err := parser.Resolve(root, log); err == nil {
		t.Fatal("expected redeclaration error")
	}
}

func TestResolve_nestedBlockSeesParentVars(t *testing.T) {
	root := build(t, "u16 x if ( x == 1 ) { x . }")
	log := &diag.Log{}
	if err := parser.Resolve(root, log); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	code := root.Nodes[len(root.Nodes)-1].(*ir.Block)
	if _, ok := code.Vars["vx"]; !ok {
		t.Fatalf("expected nested code block to see parent's `x`")
	}
}

func TestLower_ifNoElse(t *testing.T) {
	root := build(t, "if ( 1 == 1 ) { . }")
	log := &diag.Log{}
	if err := parser.Resolve(root, log); err != nil {
		t.Fatal(err)
	}
	ops, err := parser.Lower(root, log)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	var sawConJump, sawLabel, sawPrint bool
	for _, op := range ops {
		switch op.Opcode {
		case ir.OpConJump:
			sawConJump = true
		case ir.OpLabel:
			sawLabel = true
		case ir.OpPrint:
			sawPrint = true
		case ir.OpIf, ir.OpElse, ir.OpWhile:
			t.Fatalf("control op %s should not survive lowering", op.Opcode)
		}
	}
	if !sawConJump || !sawLabel || !sawPrint {
		t.Fatalf("missing expected ops in %+v", ops)
	}
	for i, op := range ops {
		if op.Index != i {
			t.Fatalf("op %d has Index %d", i, op.Index)
		}
	}
}

func TestLower_while(t *testing.T) {
	root := build(t, "u16 x = 0 ; while ( x < 3 ) { x . }")
	log := &diag.Log{}
	if err := parser.Resolve(root, log); err != nil {
		t.Fatal(err)
	}
	ops, err := parser.Lower(root, log)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	jumps := 0
	for _, op := range ops {
		if op.Opcode == ir.OpJump {
			jumps++
		}
	}
	if jumps != 1 {
		t.Fatalf("expected exactly one unconditional JUMP closing the loop, got %d", jumps)
	}
}

func TestLower_unbalancedCondition(t *testing.T) {
	root := build(t, "if ( 1 + == 1 ) { . }")
	log := &diag.Log{}
	if err := parser.Resolve(root, log); err != nil {
		t.Fatal(err)
	}
	if _, err := parser.Lower(root, log); err == nil {
		t.Fatal("expected unbalanced-operand error")
	}
}

func TestParse_endToEnd(t *testing.T) {
	prog, _, err := parser.Parse("test", []byte("u16 x = 0 ; while ( x < 3 ) { x . x = x + 1 ; }"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Ops) == 0 {
		t.Fatal("expected a non-empty flattened program")
	}
	if _, ok := prog.Vars["vx"]; !ok {
		t.Fatalf("expected vx in the resolved variable table")
	}
}
