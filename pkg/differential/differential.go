// Package differential runs one decoded input through several independent
// implementations and reports when the ones that succeed disagree.
//
// Target failure alone is never a finding: an implementation may reject
// inputs another accepts. Only disagreement between successful outputs is a
// [Divergence].
package differential

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/calvinalkan/harnesskit/pkg/datasource"
	"github.com/calvinalkan/harnesskit/pkg/fault"
)

// Target is one implementation under test.
//
// Start resets per-iteration state. Run returns the output and true on
// success, or false when the implementation rejects the input.
type Target[In, Out any] interface {
	Name() string
	Start()
	Run(in In) (Out, bool)
}

// Func adapts a stateless function into a [Target].
type Func[In, Out any] struct {
	Label string
	Fn    func(in In) (Out, bool)
}

// Name implements [Target].
func (f Func[In, Out]) Name() string { return f.Label }

// Start implements [Target]. It does nothing.
func (f Func[In, Out]) Start() {}

// Run implements [Target].
func (f Func[In, Out]) Run(in In) (Out, bool) { return f.Fn(in) }

// Options configures a [Tester].
type Options[Out any] struct {
	// Multi runs repeated rounds against persistent target state. Targets
	// are started once; after each round a decoded flag decides whether
	// another round follows.
	Multi bool

	// Equal compares two outputs. Defaults to cmp.Equal with CmpOptions.
	Equal func(a, b Out) bool

	// CmpOptions are passed to cmp.Equal and cmp.Diff.
	CmpOptions []cmp.Option

	// Logger receives debug events. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Tester drives a fixed, ordered list of targets.
type Tester[In, Out any] struct {
	targets []Target[In, Out]
	decode  func(c *datasource.Cursor) (In, error)
	opts    Options[Out]
	log     *zap.Logger
}

// New creates a tester. decode turns the cursor into one universal input.
// The target order is significant: divergences are reported between
// adjacent successful targets.
func New[In, Out any](decode func(c *datasource.Cursor) (In, error), opts Options[Out], targets ...Target[In, Out]) *Tester[In, Out] {
	if decode == nil {
		panic("differential: decode is nil")
	}

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Tester[In, Out]{
		targets: append([]Target[In, Out](nil), targets...),
		decode:  decode,
		opts:    opts,
		log:     log,
	}
}

// Run executes one fuzz iteration.
//
// Returns a [*Divergence] (a structural defect) on disagreement, a cursor
// error if the input ran out, and nil otherwise.
func (t *Tester[In, Out]) Run(c *datasource.Cursor) error {
	for _, target := range t.targets {
		target.Start()
	}

	for round := 0; ; round++ {
		in, err := t.decode(c)
		if err != nil {
			return err
		}

		err = t.round(round, in)
		if err != nil {
			return err
		}

		if !t.opts.Multi {
			return nil
		}

		more, err := c.Bool()
		if err != nil {
			return err
		}

		if !more {
			return nil
		}
	}
}

type result[Out any] struct {
	index int
	out   Out
}

func (t *Tester[In, Out]) round(round int, in In) error {
	ok := make([]result[Out], 0, len(t.targets))

	for i, target := range t.targets {
		out, success := target.Run(in)
		if success {
			ok = append(ok, result[Out]{index: i, out: out})
		}
	}

	if len(ok) < 2 {
		t.log.Debug("differential round vacuous",
			zap.Int("round", round),
			zap.Int("succeeded", len(ok)))

		return nil
	}

	// Adjacent comparison is full pairwise agreement by transitivity.
	for i := 0; i+1 < len(ok); i++ {
		a, b := ok[i], ok[i+1]
		if t.equal(a.out, b.out) {
			continue
		}

		return &Divergence{
			Round: round,
			Input: fmt.Sprintf("%#v", in),
			Left:  t.targets[a.index].Name(),
			Right: t.targets[b.index].Name(),
			Diff:  cmp.Diff(a.out, b.out, t.opts.CmpOptions...),
		}
	}

	return nil
}

func (t *Tester[In, Out]) equal(a, b Out) bool {
	if t.opts.Equal != nil {
		return t.opts.Equal(a, b)
	}

	return cmp.Equal(a, b, t.opts.CmpOptions...)
}

// Divergence reports two successful targets producing different outputs for
// the same input.
type Divergence struct {
	Round int
	Input string
	Left  string
	Right string
	Diff  string
}

func (d *Divergence) Error() string {
	return fmt.Sprintf("%v: divergence in round %d between %q and %q for input %s (-%s +%s):\n%s",
		fault.ErrStructuralDefect, d.Round, d.Left, d.Right, d.Input, d.Left, d.Right, d.Diff)
}

// Unwrap makes a Divergence match [fault.ErrStructuralDefect].
func (d *Divergence) Unwrap() error {
	return fault.ErrStructuralDefect
}
