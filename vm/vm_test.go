package vm_test

import (
	"strings"
	"testing"

	"github.com/MPPL/mandarine-lang/parser"
	"github.com/MPPL/mandarine-lang/vm"
)

func run(t *testing.T, src string) string {
	t.Helper()
	prog, _, err := parser.Parse("test", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var out strings.Builder
	inst, err := vm.New(prog.Ops, prog.Vars, vm.Output(&out))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := inst.Run(); err != nil {
		t.Fatalf("run: %v", err)
	}
	return out.String()
}

func TestRun_arithmetic(t *testing.T) {
	if got := run(t, "2 3 + ."); got != "5" {
		t.Errorf("Got %q", got)
	}
}

func TestRun_variableDeclAndUse(t *testing.T) {
	if got := run(t, "u16 x = 5 ; x ."); got != "5" {
		t.Errorf("Got %q", got)
	}
}

func TestRun_ifTaken(t *testing.T) {
	if got := run(t, "if ( 1 == 1 ) { 42 . } else { 0 . }"); got != "42" {
		t.Errorf("Got %q", got)
	}
}

func TestRun_ifNotTaken(t *testing.T) {
	if got := run(t, "if ( 1 == 2 ) { 42 . } else { 0 . }"); got != "0" {
		t.Errorf("Got %q", got)
	}
}

func TestRun_while(t *testing.T) {
	got := run(t, "u16 x = 0 ; while ( x < 3 ) { x . x = x 1 + ; }")
	if got != "012" {
		t.Errorf("Got %q", got)
	}
}

func TestRun_printNewlineVariants(t *testing.T) {
	if got := run(t, "1 .n 2 ..n 65 .c"); got != "\n2\nA" {
		t.Errorf("Got %q", got)
	}
}

func TestRun_copy(t *testing.T) {
	if got := run(t, "7 copy + ."); got != "14" {
		t.Errorf("Got %q", got)
	}
}

func TestRun_memWriteRead(t *testing.T) {
	got := run(t, "u8p p = 4 buf ; 65 p .mem p ,mem .c")
	if got != "A" {
		t.Errorf("Got %q", got)
	}
}

func TestRun_stringLiteral(t *testing.T) {
	got := run(t, `u8p s = "hi" ; s ,mem`)
	// a declared string variable just stores its heap address; nothing is
	// printed without an explicit DOS/LINUX call, so this only checks that
	// declaring it and reading through it runs without error.
	_ = got
}

func TestRun_pointerDeref(t *testing.T) {
	got := run(t, "u16 x = 9 ; u16p p = &x ; *p .")
	if got != "9" {
		t.Errorf("Got %q", got)
	}
}
