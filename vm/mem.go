package vm

import "github.com/MPPL/mandarine-lang/ir"

// bfromNum encodes v into the on-disk byte representation for t (spec.md
// §4.5.1). u8 is one byte; u16 and both pointer types are two bytes,
// big-endian — this is the interpreter's own convention and does not match
// the DOS target's little-endian word layout.
func bfromNum(t ir.DataType, v ir.Cell) []byte {
	if t == ir.U8 {
		return []byte{byte(v % 256)}
	}
	return []byte{byte((v / 256) % 256), byte(v % 256)}
}

// bvalue decodes b using the same big-endian convention as bfromNum.
func bvalue(b []byte) ir.Cell {
	if len(b) == 1 {
		return ir.Cell(b[0])
	}
	var v ir.Cell
	for _, c := range b {
		v = v<<8 | ir.Cell(c)
	}
	return v
}

// elemWidth is the per-element byte width a BUF declaration reserves: one
// byte for u8p, two for u16p (mirrors the reference's UINT8MEM/UINT16MEM
// handling of OP.BUF).
func elemWidth(t ir.DataType) int {
	if t == ir.U16Ptr {
		return 2
	}
	return 1
}
