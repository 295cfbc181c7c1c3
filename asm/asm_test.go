package asm_test

import (
	"strings"
	"testing"

	"github.com/MPPL/mandarine-lang/asm"
	"github.com/MPPL/mandarine-lang/lexer"
	"github.com/MPPL/mandarine-lang/parser"
)

func emit(t *testing.T, src string) string {
	t.Helper()
	prog, _, err := parser.Parse("test", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := asm.Emit(prog.Ops, prog.Vars, prog.Mode)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	return out
}

func TestEmit_prelude(t *testing.T) {
	out := emit(t, "1 .")
	for _, want := range []string{".MODEL SMALL", ".STACK 100h", ".DATA", ".CODE", "start:", "END start"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEmit_variableDeclaration(t *testing.T) {
	out := emit(t, "u16 x = 5 ; x .")
	if !strings.Contains(out, "x dw ?") {
		t.Errorf("expected `x dw ?` data declaration:\n%s", out)
	}
}

func TestEmit_u8Variable(t *testing.T) {
	out := emit(t, "u8 c = 65 ; c .c")
	if !strings.Contains(out, "c db ?") {
		t.Errorf("expected `c db ?` data declaration:\n%s", out)
	}
}

func TestEmit_printDecUsed(t *testing.T) {
	out := emit(t, "1 .")
	if !strings.Contains(out, "print_dec proc") {
		t.Errorf("expected print_dec helper to be emitted:\n%s", out)
	}
	if strings.Contains(out, "print_nl proc") {
		t.Errorf("did not expect print_nl helper when no newline op is used:\n%s", out)
	}
}

func TestEmit_printAndNLUsesBothHelpers(t *testing.T) {
	out := emit(t, "1 ..n")
	if !strings.Contains(out, "print_dec proc") || !strings.Contains(out, "print_nl proc") {
		t.Errorf("expected both print helpers:\n%s", out)
	}
}

func TestEmit_ifElse(t *testing.T) {
	out := emit(t, "if ( 1 == 1 ) { 1 . } else { 2 . }")
	if !strings.Contains(out, "cmp ax, bx") {
		t.Errorf("expected a comparison:\n%s", out)
	}
	if !strings.Contains(out, "jmp label") && !strings.Contains(out, "je bar_") {
		t.Errorf("expected jump wiring:\n%s", out)
	}
}

func TestEmit_while(t *testing.T) {
	out := emit(t, "u8 i = 0 ; while ( i < 3 ) { i . i = i 1 + ; }")
	if !strings.Contains(out, "i db ?") {
		t.Errorf("expected `i db ?`:\n%s", out)
	}
	if !strings.Contains(out, "add ax,") {
		t.Errorf("expected an add instruction:\n%s", out)
	}
}

func TestEmit_stringLiteral(t *testing.T) {
	out := emit(t, "#mode dos\n"+`u8p s = "hi" ; s 9 dos`)
	if !strings.Contains(out, `"hi$"`) {
		t.Errorf("expected string data with $ terminator:\n%s", out)
	}
	if !strings.Contains(out, "int 21h") {
		t.Errorf("expected an int 21h for the dos call:\n%s", out)
	}
}

func TestEmit_linuxRejected(t *testing.T) {
	prog, _, err := parser.Parse("test", []byte("#mode linux\n1 1 1 1 linux"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if prog.Mode != lexer.ModeLinux {
		t.Fatalf("expected linux mode, got %v", prog.Mode)
	}
	if _, err := asm.Emit(prog.Ops, prog.Vars, prog.Mode); err == nil {
		t.Errorf("expected an error emitting a linux syscall to 16-bit DOS asm")
	}
}

func TestEmit_bufDeclaration(t *testing.T) {
	out := emit(t, "u8p p = 4 buf ; 65 p .mem")
	if !strings.Contains(out, "dup (?)") {
		t.Errorf("expected a dup(?) buffer reservation:\n%s", out)
	}
}
