// Package diag implements Mandarine's diagnostic reporting (spec.md §7):
// tagged error kinds, severities, and single-line formatted reports with an
// optional "expected/got" pair. It plays the same role the reference
// implementation's error()/LogFlag combination plays, but replaces ANSI
// colour codes and process-wide exit() with typed values: a Fail-severity
// Diagnostic is returned as an error for the caller to propagate and abort
// on, while Warning/Info/Good diagnostics are appended to a Log and printed
// by the CLI without aborting.
package diag
