package vm

import (
	"bufio"
	"io"

	"github.com/MPPL/mandarine-lang/diag"
	"github.com/MPPL/mandarine-lang/ir"
)

// HeapSize is the fixed heap capacity (spec.md §4.5, §6.5).
const HeapSize = 64 * 1024

// ComState mirrors the reference interpreter's flag set (spec.md §4.7).
// Unlike a plain enum, it is a bitmask because SET enters VARDEF and
// ARITHMETIC simultaneously.
type ComState int

const (
	StateNone       ComState = 0
	StateCondition  ComState = 1 << 0
	StateArithmetic ComState = 1 << 1
	StateVarDef     ComState = 1 << 2
)

func (s ComState) has(f ComState) bool { return s&f != 0 }

// Option configures an Instance at construction time.
type Option func(*Instance) error

// Output sets the sink for PRINT/PRINT_NL/PRINT_AND_NL/PRINT_CHAR and LINUX
// write syscalls targeting fd 1. Defaults to io.Discard.
func Output(w io.Writer) Option {
	return func(i *Instance) error { i.output = w; return nil }
}

// ErrOutput sets the sink for LINUX write syscalls targeting fd 2. Defaults
// to io.Discard.
func ErrOutput(w io.Writer) Option {
	return func(i *Instance) error { i.errOutput = w; return nil }
}

// Input sets the line reader backing DOS function 10. Defaults to an empty
// reader (every read returns io.EOF).
func Input(r io.Reader) Option {
	return func(i *Instance) error { i.input = bufio.NewReader(r); return nil }
}

// StackCapacity preallocates the value stack. Mandarine programs rarely nest
// deep, so the default of 256 is ample; this Option only avoids a handful of
// early reallocations.
func StackCapacity(n int) Option {
	return func(i *Instance) error { i.stack = make([]ir.Cell, 0, n); return nil }
}

// Instance is one interpreter run. Instances are not safe for concurrent use
// and must not be reused across two separate Run calls (spec.md §5).
type Instance struct {
	Ops  []ir.Op
	Vars map[string]*ir.Variable

	PC int

	stack []ir.Cell
	heap  []byte

	heapEnd   int
	state     ComState
	temp1     string
	lastType  ir.DataType
	condition ir.Opcode

	// shadow maps a scalar variable's name to a heap address mirroring its
	// value, lazily allocated the first time its address is taken with `&`
	// (spec.md §9's ref-count design note has no Python original to ground
	// on; this is the chosen realisation: taking a variable's address gives
	// it a home in the same heap `*`/MEMREAD chains already read from).
	shadow map[string]int

	output    io.Writer
	errOutput io.Writer
	input     *bufio.Reader
	warn      *diag.Log

	insCount int64
}

// New builds an Instance ready to Run ops against vars (the program's
// resolved variable table, as returned by parser.Parse).
func New(ops []ir.Op, vars map[string]*ir.Variable, opts ...Option) (*Instance, error) {
	i := &Instance{
		Ops:       ops,
		Vars:      vars,
		heap:      make([]byte, HeapSize),
		output:    io.Discard,
		errOutput: io.Discard,
		input:     bufio.NewReader(io.MultiReader()),
	}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}
	if i.stack == nil {
		i.stack = make([]ir.Cell, 0, 256)
	}
	return i, nil
}

// Stack returns the current value stack, top last. The returned slice
// aliases the instance's internal storage and is only valid until the next
// Run.
func (i *Instance) Stack() []ir.Cell { return i.stack }

// Heap returns the instance's 64 KiB heap.
func (i *Instance) Heap() []byte { return i.heap }

// HeapEnd returns the current high-water mark of heap allocation.
func (i *Instance) HeapEnd() int { return i.heapEnd }

// InstructionCount returns the number of ops dispatched so far.
func (i *Instance) InstructionCount() int64 { return i.insCount }
