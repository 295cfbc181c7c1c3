package parser

import (
	"github.com/MPPL/mandarine-lang/diag"
	"github.com/MPPL/mandarine-lang/ir"
	"github.com/MPPL/mandarine-lang/lexer"
)

// Program is the fully-resolved, fully-flattened output of Parse: a flat op
// list ready for either backend, the root block's variable table (shared by
// every nested block, per §4.3), and the compilation mode selected by an
// optional "#mode" directive.
type Program struct {
	Ops  []ir.Op
	Vars map[string]*ir.Variable
	Mode lexer.Mode
}

// Parse runs the full front end — lexer.Scan, Build, Resolve, Lower — over
// src and returns the flattened program. The returned *diag.Log carries any
// Warning-severity diagnostics collected along the way even on success.
func Parse(name string, src []byte) (Program, *diag.Log, error) {
	log := &diag.Log{}

	scanned, err := lexer.Scan(name, src)
	if err != nil {
		return Program{}, log, err
	}

	root, err := Build(scanned.Tokens, log)
	if err != nil {
		return Program{}, log, err
	}

	if err := Resolve(root, log); err != nil {
		return Program{}, log, err
	}

	ops, err := Lower(root, log)
	if err != nil {
		return Program{}, log, err
	}

	return Program{Ops: ops, Vars: root.Vars, Mode: scanned.Mode}, log, nil
}
