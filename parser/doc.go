// Package parser turns a lexer.Token sequence into a flat []ir.Op ready for
// either backend. It runs three passes in order:
//
//	Build   pass 1: tokens -> tree of ir.Block/ir.Op (§4.2)
//	Resolve pass 2: name/type resolution over the tree (§4.3)
//	Lower   pass 3: control-flow flattening into a single []ir.Op (§4.4)
//
// Parse drives all three and is the only entry point most callers need.
package parser
