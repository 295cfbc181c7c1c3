package parser

import (
	"strconv"

	"github.com/MPPL/mandarine-lang/diag"
	"github.com/MPPL/mandarine-lang/ir"
	"github.com/MPPL/mandarine-lang/lexer"
)

// wordOps maps a WORD/OPERAND lexeme to the opcode it produces (§4.2).
var wordOps = map[string]ir.Opcode{
	"while": ir.OpWhile,
	"copy":  ir.OpCopy,
	"else":  ir.OpElse,
	"if":    ir.OpIf,
	"dos":   ir.OpDOS,
	"linux": ir.OpLinux,
	"buf":   ir.OpBuf,

	".":    ir.OpPrint,
	".n":   ir.OpPrintNL,
	"..n":  ir.OpPrintAndNL,
	".c":   ir.OpPrintChar,
	".mem": ir.OpMemWrite,
	",mem": ir.OpMemRead,

	"==": ir.OpEqual,
	"<<": ir.OpShl,
	">>": ir.OpShr,
	"<=": ir.OpLE,
	">=": ir.OpGE,
	"<":  ir.OpLess,
	">":  ir.OpGreater,

	"=": ir.OpSet,
	"+": ir.OpAdd,
	"-": ir.OpSub,
	"/": ir.OpDiv,
	"%": ir.OpMod,
	"*": ir.OpMul,
	";": ir.OpColon,
}

var typeOps = map[string]ir.DataType{
	"u8":   ir.U8,
	"u16":  ir.U16,
	"u8p":  ir.U8Ptr,
	"u16p": ir.U16Ptr,
}

// Build runs pass 1 (§4.2): tokens to a tree of ir.Block/ir.Op rooted at a
// single compile-time block.
func Build(toks []lexer.Token, log *diag.Log) (*ir.Block, error) {
	root := ir.NewBlock(0, ir.Compiletime)
	stack := []*ir.Block{root}
	nextID := 1

	top := func() *ir.Block { return stack[len(stack)-1] }

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch t.Kind {
		case lexer.NoToken:
			continue

		case lexer.BraceOpen:
			kind := ir.Condition
			if t.Lexeme == "{" {
				kind = ir.Code
			}
			child := ir.NewBlock(nextID, kind)
			nextID++
			top().Nodes = append(top().Nodes, child)
			stack = append(stack, child)

		case lexer.BraceClose:
			wantKind := ir.Condition
			if t.Lexeme == "}" {
				wantKind = ir.Code
			}
			if len(stack) < 2 || top().Kind != wantKind {
				return nil, log.Fail(diag.Parse, t.Pos, "mismatched closing brace `%s`", t.Lexeme)
			}
			stack = stack[:len(stack)-1]

		case lexer.Name:
			top().Nodes = append(top().Nodes, ir.Op{Opcode: ir.OpVar, Pos: t.Pos, Name: t.Lexeme})

		case lexer.Num:
			n, err := strconv.ParseInt(t.Lexeme, 10, 64)
			if err != nil {
				return nil, log.Fail(diag.Parse, t.Pos, "malformed integer literal `%s`", t.Lexeme)
			}
			top().Nodes = append(top().Nodes, ir.Op{Opcode: ir.OpNum, Pos: t.Pos, Num: n})

		case lexer.String:
			top().Nodes = append(top().Nodes, ir.Op{Opcode: ir.OpString, Pos: t.Pos, Str: t.Lexeme})

		case lexer.Type:
			top().Nodes = append(top().Nodes, ir.Op{Opcode: ir.OpType, Pos: t.Pos, Type: typeOps[t.Lexeme]})

		case lexer.Word, lexer.Operand:
			if t.Lexeme == "*" || t.Lexeme == "&" {
				if !t.StickyLeft && t.StickyRight {
					node, consumed, err := parseVarRef(toks, i, log)
					if err != nil {
						return nil, err
					}
					top().Nodes = append(top().Nodes, node)
					i += consumed - 1
					continue
				}
				if t.Lexeme == "&" {
					return nil, log.Fail(diag.Parse, t.Pos, "dangling `&` with no following variable name")
				}
			}
			op, ok := wordOps[t.Lexeme]
			if !ok {
				return nil, log.Fail(diag.Parse, t.Pos, "unrecognised token `%s`", t.Lexeme)
			}
			top().Nodes = append(top().Nodes, ir.Op{Opcode: op, Pos: t.Pos})
		}
	}

	if len(stack) != 1 {
		return nil, log.Fail(diag.Parse, ir.Pos{}, "unclosed block(s) at end of file")
	}
	return root, nil
}

// parseVarRef greedily consumes a run of "*"/"&" tokens followed by a NAME,
// starting at toks[start], and returns the resulting VAR op plus the number
// of tokens consumed (§4.2 ¶3).
func parseVarRef(toks []lexer.Token, start int, log *diag.Log) (ir.Op, int, error) {
	pos := toks[start].Pos
	refCount := 0
	i := start
	for i < len(toks) && toks[i].Kind == lexer.Operand && (toks[i].Lexeme == "*" || toks[i].Lexeme == "&") {
		if toks[i].Lexeme == "&" {
			refCount++
		} else {
			refCount--
		}
		glued := toks[i].StickyRight
		i++
		if !glued {
			break
		}
	}
	if i >= len(toks) || toks[i].Kind != lexer.Name || !toks[i].StickyLeft {
		return ir.Op{}, 0, log.Fail(diag.Parse, pos, "dangling `*`/`&` with no following variable name")
	}
	name := toks[i].Lexeme
	return ir.Op{Opcode: ir.OpVar, Pos: pos, Name: name, RefCount: refCount}, i - start + 1, nil
}
