package vm

import (
	"github.com/MPPL/mandarine-lang/diag"
	"github.com/MPPL/mandarine-lang/ir"
	"github.com/pkg/errors"
)

// WarnLog attaches a diag.Log that non-fatal conditions (an unsupported
// LINUX syscall or file descriptor) are reported to instead of being
// silently dropped.
func WarnLog(l *diag.Log) Option {
	return func(i *Instance) error { i.warn = l; return nil }
}

func (i *Instance) warnf(format string, args ...interface{}) {
	if i.warn == nil {
		return
	}
	pos := ir.Pos{}
	if i.PC < len(i.Ops) {
		pos = i.Ops[i.PC].Pos
	}
	i.warn.Warn(diag.Simulate, pos, format, args...)
}

// execDOS implements the DOS op (spec.md §4.5): function 9 prints a
// "$"-terminated string, function 10 reads a line into a length-prefixed
// buffer.
func (i *Instance) execDOS() error {
	fn := i.pop()
	switch fn {
	case 9:
		addr := i.pop()
		for x := 0; x < 256; x++ {
			c := i.heap[int(addr)+x]
			if c == '$' {
				break
			}
			i.output.Write([]byte{c})
		}
	case 10:
		addr := int(i.pop())
		line, _ := i.input.ReadString('\n')
		line = trimNewline(line)
		if len(line) > 256 {
			line = line[:256]
		}
		capacity := int(i.heap[addr])
		n := len(line)
		if n > capacity {
			n = capacity
		}
		for x := 0; x < n; x++ {
			i.heap[addr+2+x] = line[x]
		}
		i.heap[addr+1] = byte(len(line))
	default:
		return errors.Errorf("unsupported DOS function %d", fn)
	}
	return nil
}

// execLinux implements the LINUX op (spec.md §4.5): syscall 1 is write,
// fd 1 or 2 only; anything else is a non-fatal warning.
func (i *Instance) execLinux() error {
	sys := i.pop()
	switch sys {
	case 1:
		fd := i.pop()
		addr := i.pop()
		n := i.pop()
		var w = i.output
		switch fd {
		case 1:
			w = i.output
		case 2:
			w = i.errOutput
		default:
			i.warnf("unsupported file descriptor %d in LINUX write, skipping", fd)
			return nil
		}
		for x := ir.Cell(0); x < n; x++ {
			w.Write([]byte{i.heap[int(addr+x)]})
		}
	default:
		i.warnf("unsupported LINUX syscall %d, skipping", sys)
	}
	return nil
}

func trimNewline(s string) string {
	n := len(s)
	if n > 0 && s[n-1] == '\n' {
		n--
	}
	if n > 0 && s[n-1] == '\r' {
		n--
	}
	return s[:n]
}
