// Command mand is the Mandarine driver: compile to 16-bit MASM, simulate
// with the tree-walking interpreter, or run the golden-file test harness
// (spec.md §6.1).
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/MPPL/mandarine-lang/asm"
	"github.com/MPPL/mandarine-lang/internal/harness"
	"github.com/MPPL/mandarine-lang/internal/mio"
	"github.com/MPPL/mandarine-lang/parser"
	"github.com/MPPL/mandarine-lang/vm"
	"github.com/pkg/errors"
)

var debug bool

func atExit(err error) {
	if err == nil {
		return
	}
	if !debug {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%+v\n", err)
	os.Exit(1)
}

func main() {
	var err error
	defer func() { atExit(err) }()

	compileFile := flag.String("c", "", "compile `file` to 16-bit MASM assembly")
	outFile := flag.String("o", "", "assembly output `file` (defaults to input with .asm extension)")
	simFile := flag.String("s", "", "simulate `file` with the interpreter")
	runTests := flag.Bool("t", false, "run the test harness against -testdir")
	testMode := flag.String("mode", "compare", "test harness mode when -t is given: record|compare")
	testDir := flag.String("testdir", "tests", "`directory` the test harness scans for *.mand files")

	flag.Parse()

	switch {
	case *compileFile != "":
		err = compile(*compileFile, *outFile)
	case *simFile != "":
		err = simulate(*simFile)
	case *runTests:
		err = test(*testDir, *testMode)
	default:
		flag.Usage()
		os.Exit(1)
	}
}

func compile(inFile, outFile string) error {
	src, err := os.ReadFile(inFile)
	if err != nil {
		return errors.Wrap(err, "read source")
	}
	prog, _, err := parser.Parse(inFile, src)
	if err != nil {
		return errors.Wrap(err, "parse")
	}
	text, err := asm.Emit(prog.Ops, prog.Vars, prog.Mode)
	if err != nil {
		return errors.Wrap(err, "emit assembly")
	}
	if outFile == "" {
		outFile = strings.TrimSuffix(inFile, ".mand") + ".asm"
	}
	if err := os.WriteFile(outFile, []byte(text), 0o644); err != nil {
		return errors.Wrap(err, "write assembly")
	}
	return nil
}

func simulate(inFile string) error {
	src, err := os.ReadFile(inFile)
	if err != nil {
		return errors.Wrap(err, "read source")
	}
	prog, _, err := parser.Parse(inFile, src)
	if err != nil {
		return errors.Wrap(err, "parse")
	}
	out := mio.NewErrWriter(os.Stdout)
	inst, err := vm.New(prog.Ops, prog.Vars, vm.Output(out), vm.Input(os.Stdin))
	if err != nil {
		return errors.Wrap(err, "construct interpreter")
	}
	if err := inst.Run(); err != nil {
		return errors.Wrap(err, "simulate")
	}
	return out.Err
}

func test(dir, mode string) error {
	m := harness.Compare
	if mode == "record" {
		m = harness.Record
	}
	results, err := harness.Run(dir, m)
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if r.Pass {
			fmt.Printf("PASS %s\n", r.Name)
			continue
		}
		failed++
		fmt.Printf("FAIL %s: %s\n", r.Name, r.Diff)
	}
	if failed > 0 {
		return errors.Errorf("%d/%d tests failed", failed, len(results))
	}
	return nil
}
