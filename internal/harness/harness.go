// Package harness implements the record/compare test driver described in
// spec.md §6.3: every ./tests/*.mand file is run through the interpreter
// and its stdout is either saved as a golden file or diffed against one.
package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MPPL/mandarine-lang/parser"
	"github.com/MPPL/mandarine-lang/vm"
	"github.com/pkg/errors"
)

// Mode selects record or compare behavior.
type Mode int

const (
	Compare Mode = iota
	Record
)

// Result is the outcome of running one test case.
type Result struct {
	Name string
	Pass bool
	Diff string
}

// Run executes every *.mand file directly inside dir in the given mode and
// returns one Result per case, in file order.
func Run(dir string, mode Mode) ([]Result, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.mand"))
	if err != nil {
		return nil, errors.Wrap(err, "glob tests")
	}
	results := make([]Result, 0, len(matches))
	for _, path := range matches {
		r, err := runOne(path, mode)
		if err != nil {
			return nil, errors.Wrapf(err, "test %s", path)
		}
		results = append(results, r)
	}
	return results, nil
}

func runOne(path string, mode Mode) (Result, error) {
	name := strings.TrimSuffix(filepath.Base(path), ".mand")
	src, err := os.ReadFile(path)
	if err != nil {
		return Result{}, errors.Wrap(err, "read source")
	}
	prog, _, err := parser.Parse(path, src)
	if err != nil {
		return Result{}, errors.Wrap(err, "parse")
	}
	var out bytes.Buffer
	inst, err := vm.New(prog.Ops, prog.Vars, vm.Output(&out))
	if err != nil {
		return Result{}, errors.Wrap(err, "construct interpreter")
	}
	if err := inst.Run(); err != nil {
		return Result{}, errors.Wrap(err, "simulate")
	}

	goldenPath := filepath.Join(filepath.Dir(path), name+".txt")
	if mode == Record {
		if err := os.WriteFile(goldenPath, out.Bytes(), 0o644); err != nil {
			return Result{}, errors.Wrap(err, "write golden file")
		}
		return Result{Name: name, Pass: true}, nil
	}

	want, err := os.ReadFile(goldenPath)
	if err != nil {
		return Result{}, errors.Wrap(err, "read golden file")
	}
	if bytes.Equal(want, out.Bytes()) {
		return Result{Name: name, Pass: true}, nil
	}
	return Result{
		Name: name,
		Pass: false,
		Diff: fmt.Sprintf("want %q, got %q", want, out.Bytes()),
	}, nil
}
