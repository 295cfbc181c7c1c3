package diag

import (
	"fmt"
	"strings"

	"github.com/MPPL/mandarine-lang/ir"
	"github.com/pkg/errors"
)

// Kind categorizes a Diagnostic (spec.md §7).
type Kind int

const (
	CMD Kind = iota
	Tokenize
	Parse
	Enum
	Compile
	Simulate
	Test
	Self
)

func (k Kind) String() string {
	switch k {
	case CMD:
		return "CMD"
	case Tokenize:
		return "TOKENIZE"
	case Parse:
		return "PARSE"
	case Enum:
		return "ENUM"
	case Compile:
		return "COMPILE"
	case Simulate:
		return "SIMULATE"
	case Test:
		return "TEST"
	case Self:
		return "SELF"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Severity controls whether a Diagnostic aborts the pipeline and which
// stream it is written to.
type Severity int

const (
	Fail Severity = iota
	Warning
	Info
	Good
)

func (s Severity) String() string {
	switch s {
	case Fail:
		return "fail"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Good:
		return "good"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Pair is an "expected/got" annotation rendered as "Expected `X` found `Y`".
type Pair struct {
	Expected interface{}
	Got      interface{}
}

// Diagnostic is a single reported condition.
type Diagnostic struct {
	Kind     Kind
	Severity Severity
	Pos      ir.Pos
	Message  string
	Pair     *Pair
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error.%s", d.Kind)
	if d.Pos.Line != 0 || d.Pos.File != "" {
		fmt.Fprintf(&b, " %s:", d.Pos)
	}
	fmt.Fprintf(&b, " %s", d.Message)
	if d.Pair != nil {
		fmt.Fprintf(&b, " >>> Expected `%v` found `%v`", d.Pair.Expected, d.Pair.Got)
	}
	return b.String()
}

func (d Diagnostic) Error() string { return d.String() }

// maxBatched caps how many non-fatal entries a Log accumulates before a
// caller should stop feeding it and bail out, mirroring the reference
// assembler's maxErrors = 10 batching cap (see SPEC_FULL.md §13).
const maxBatched = 10

// Log accumulates Warning/Info/Good and Fail diagnostics. The lexer keeps
// scanning after a Fail until the log is Full, so it can report several
// independent mistakes from one run; the parser passes return at their first
// Fail.
type Log struct {
	entries []Diagnostic
}

// Add appends d to the log.
func (l *Log) Add(d Diagnostic) { l.entries = append(l.entries, d) }

// Fail builds and appends a Fail-severity diagnostic, returning it as an
// error for the caller to propagate.
func (l *Log) Fail(kind Kind, pos ir.Pos, format string, args ...interface{}) error {
	d := Diagnostic{Kind: kind, Severity: Fail, Pos: pos, Message: fmt.Sprintf(format, args...)}
	l.Add(d)
	return errors.WithStack(d)
}

// FailExpected is Fail plus an expected/got pair.
func (l *Log) FailExpected(kind Kind, pos ir.Pos, expected, got interface{}, format string, args ...interface{}) error {
	d := Diagnostic{Kind: kind, Severity: Fail, Pos: pos, Message: fmt.Sprintf(format, args...), Pair: &Pair{expected, got}}
	l.Add(d)
	return errors.WithStack(d)
}

// Warn appends a Warning-severity diagnostic. It never returns an error:
// warnings never abort the pipeline.
func (l *Log) Warn(kind Kind, pos ir.Pos, format string, args ...interface{}) {
	l.Add(Diagnostic{Kind: kind, Severity: Warning, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// Full reports whether the log has reached the batching cap and the caller
// should stop accumulating and abort instead.
func (l *Log) Full() bool { return len(l.entries) >= maxBatched }

// Entries returns the accumulated diagnostics in report order.
func (l *Log) Entries() []Diagnostic { return l.entries }

// Err returns a combined error for every entry at Fail severity, or nil if
// none were recorded.
func (l *Log) Err() error {
	var fails []string
	for _, d := range l.entries {
		if d.Severity == Fail {
			fails = append(fails, d.String())
		}
	}
	if len(fails) == 0 {
		return nil
	}
	return errors.New(strings.Join(fails, "\n"))
}
