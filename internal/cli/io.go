package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
)

var errNoStdin = errors.New("stdin is not available")

// defectColor highlights findings. fatih/color turns itself off when
// stdout is not a terminal or NO_COLOR is set.
var defectColor = color.New(color.FgRed, color.Bold)

// IO handles command output. Warnings are collected and shown on stderr
// both before the first stdout line and at the end, so they survive
// truncated or piped output.
type IO struct {
	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	warnings []string
	started  bool
}

// NewIO creates a new IO instance.
func NewIO(in io.Reader, out, errOut io.Writer) *IO {
	return &IO{in: in, out: out, errOut: errOut}
}

// Warn records a non-fatal problem and what to do about it. Any warning
// makes [IO.Finish] return 1.
func (o *IO) Warn(issue string, action string) {
	o.warnings = append(o.warnings, fmt.Sprintf("%s: %s", issue, action))
}

// Println writes to stdout. On first call, any collected warnings
// are printed to stderr first.
func (o *IO) Println(a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout. On first call, any collected
// warnings are printed to stderr first.
func (o *IO) Printf(format string, a ...any) {
	o.flushWarningsStart()
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// Defectf writes a highlighted finding line to stdout.
func (o *IO) Defectf(format string, a ...any) {
	o.flushWarningsStart()
	_, _ = defectColor.Fprintf(o.out, format, a...)
	_, _ = fmt.Fprintln(o.out)
}

// ReadStdin reads all of stdin.
func (o *IO) ReadStdin() ([]byte, error) {
	if o.in == nil {
		return nil, errNoStdin
	}

	return io.ReadAll(o.in)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Finish prints warnings to stderr and returns exit code.
// Returns 1 if any warnings, 0 otherwise.
func (o *IO) Finish() int {
	// If no output happened but we have warnings, print them at "start" position
	o.flushWarningsStart()

	// Always print at end
	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}

	if len(o.warnings) > 0 {
		return 1
	}

	return 0
}

func (o *IO) flushWarningsStart() {
	if !o.started && len(o.warnings) > 0 {
		for _, w := range o.warnings {
			_, _ = fmt.Fprintln(o.errOut, "warning:", w)
		}

		o.started = true
	}
}
