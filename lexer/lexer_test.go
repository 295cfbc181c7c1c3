package lexer_test

import (
	"testing"

	"github.com/MPPL/mandarine-lang/lexer"
)

func kinds(toks []lexer.Token) []lexer.Kind {
	ks := make([]lexer.Kind, len(toks))
	for i, t := range toks {
		ks[i] = t.Kind
	}
	return ks
}

func lexemes(toks []lexer.Token) []string {
	ls := make([]string, len(toks))
	for i, t := range toks {
		ls[i] = t.Lexeme
	}
	return ls
}

func eqKinds(a, b []lexer.Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func eqStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestScan_basic(t *testing.T) {
	data := []struct {
		name string
		src  string
		kind []lexer.Kind
		lex  []string
	}{
		{"num", "123", []lexer.Kind{lexer.Num}, []string{"123"}},
		{"name", "foo", []lexer.Kind{lexer.Name}, []string{"vfoo"}},
		{"word_dot", ".", []lexer.Kind{lexer.Word}, []string{"."}},
		{"type_decl", "u16 x", []lexer.Kind{lexer.Type, lexer.Name}, []string{"u16", "vx"}},
		{"braces", "( a )", []lexer.Kind{lexer.BraceOpen, lexer.Name, lexer.BraceClose}, []string{"(", "va", ")"}},
		{"glued_paren", "if(", []lexer.Kind{lexer.Word, lexer.BraceOpen}, []string{"if", "("}},
		{"compare", "a==b", []lexer.Kind{lexer.Name, lexer.Operand, lexer.Name}, []string{"va", "==", "vb"}},
		{"ref", "*x", []lexer.Kind{lexer.Operand, lexer.Name}, []string{"*", "vx"}},
	}
	for _, d := range data {
		res, err := lexer.Scan(d.name, []byte(d.src))
		if err != nil {
			t.Errorf("%s: unexpected error: %v", d.name, err)
			continue
		}
		if !eqKinds(kinds(res.Tokens), d.kind) {
			t.Errorf("%s: kinds\nExpected: %v\n     Got: %v", d.name, d.kind, kinds(res.Tokens))
		}
		if !eqStrings(lexemes(res.Tokens), d.lex) {
			t.Errorf("%s: lexemes\nExpected: %v\n     Got: %v", d.name, d.lex, lexemes(res.Tokens))
		}
	}
}

func TestScan_comment(t *testing.T) {
	res, err := lexer.Scan("comment", []byte("a \\\\ this is dropped\nb"))
	if err != nil {
		t.Fatal(err)
	}
	if !eqStrings(lexemes(res.Tokens), []string{"va", "vb"}) {
		t.Errorf("Got: %v", lexemes(res.Tokens))
	}
}

func TestScan_string(t *testing.T) {
	res, err := lexer.Scan("str", []byte(`"hello, world"`))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tokens) != 1 || res.Tokens[0].Kind != lexer.String || res.Tokens[0].Lexeme != "hello, world" {
		t.Errorf("Got: %+v", res.Tokens)
	}
}

func TestScan_modeDirective(t *testing.T) {
	res, err := lexer.Scan("mode", []byte("#mode dos\ndos 10"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Mode != lexer.ModeDOS {
		t.Errorf("Expected dos mode, got %v", res.Mode)
	}
	if !eqStrings(lexemes(res.Tokens), []string{"dos", "10"}) {
		t.Errorf("Got: %v", lexemes(res.Tokens))
	}
}

func TestScan_modeDirective_mustBeFirst(t *testing.T) {
	_, err := lexer.Scan("late_mode", []byte("a #mode dos"))
	if err == nil {
		t.Fatal("expected error for late #mode directive")
	}
}

func TestScan_disallowedPrefixSuffix(t *testing.T) {
	_, err := lexer.Scan("bad", []byte(".memx"))
	if err == nil {
		t.Fatal("expected error for word starting with disallowed token")
	}
}

func TestScan_badName(t *testing.T) {
	_, err := lexer.Scan("bad_name", []byte("1foo"))
	if err == nil {
		t.Fatal("expected error for name starting with a digit")
	}
}

func TestScan_linuxOutsideMode(t *testing.T) {
	_, err := lexer.Scan("bad_linux", []byte("linux 10"))
	if err == nil {
		t.Fatal("expected error: linux keyword used outside linux mode")
	}
}
