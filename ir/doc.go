// Package ir defines the intermediate representation shared by every pass of
// the Mandarine compiler and by both backends (vm, asm).
//
// A program begins life as a tree: a root Block of kind Compiletime holding
// an ordered sequence of Nodes, where a Node is either an Op (a single
// instruction) or a nested Block (delimited by "(" ... ")" for Condition
// blocks, "{" ... "}" for Code blocks). The control lowerer (package parser)
// flattens this tree into a single []Op slice; from that point on no Block
// survives and every Op's Index is its position in the flat slice.
package ir
