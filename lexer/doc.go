// Package lexer scans Mandarine source text into a flat, ordered sequence of
// Tokens (spec.md §4.1). It does not look at block structure at all — that
// is pass 1's job, in package parser — it only classifies raw words.
package lexer
