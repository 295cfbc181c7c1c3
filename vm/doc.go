// Package vm implements Mandarine's interpreter backend (spec.md §4.5): a
// dispatch loop over a flattened []ir.Op that owns a value stack, a 64 KiB
// heap with a monotonically advancing high-water mark, and the ComState
// flag set governing variable declarations (§4.7).
package vm
