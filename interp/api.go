package interp

import (
	"context"
	"os"

	"github.com/nimble-norg/nash/ast"
	"github.com/nimble-norg/nash/parser"
	"github.com/nimble-norg/nash/unwind"
)

// Run parses and evaluates a complete script, ash's cmdloop reduced to
// a single call: the whole of stdin (or a -c string) run top to bottom.
// It returns the script's exit status; a KindExec unwind at the top
// level (an `exit` or the script simply finishing) is the normal,
// successful return path, not an error.
func (r *Runner) Run(ctx context.Context, src string) (uint8, error) {
	return r.EvalString(ctx, src)
}

// EvalString implements ash's evalstring: parse src directly and
// evaluate it — the operation the `eval` builtin performs on its
// concatenated arguments.
func (r *Runner) EvalString(ctx context.Context, src string) (uint8, error) {
	n, err := parser.Parse(src)
	if err != nil {
		return 2, err
	}
	return r.runNode(ctx, n)
}

func (r *Runner) runNode(ctx context.Context, n ast.Node) (uint8, error) {
	res, exit := r.Eval(ctx, n, flagExit)
	if exit == nil {
		return res.Status, nil
	}
	switch exit.Kind {
	case unwind.KindExec:
		return exit.Status, nil
	case unwind.KindInterrupt:
		return exit.Status, nil
	default:
		return exit.Status, exit
	}
}

// Exited reports whether err (as returned by Run) is an *unwind.Exit,
// a shell-level unwind whose status Run has already returned. Other
// errors, such as a parse error, are not; cmd/nash prints a diagnostic
// only for those.
func Exited(err error) (*unwind.Exit, bool) {
	ue, ok := err.(*unwind.Exit)
	return ue, ok
}

// SetParams replaces the positional parameters, the `set` builtin's
// non-option argument handling (builtin.Env.SetParams's host side).
func (r *Runner) SetParams(args []string) { r.params = args }

// Trap installs or clears a trap for the given signal number, the
// `trap` builtin's host-side hook into the C6 liaison.
func (r *Runner) Trap(signal int, command string) { r.trap.SetTrap(signal, command) }

// WatchSignals starts forwarding OS signal delivery into the Runner's
// trap liaison; cmd/nash calls this once at startup.
func (r *Runner) WatchSignals(sigs ...os.Signal) { r.trap.Watch(sigs...) }

// RaiseSignal marks signal n pending against the Runner's trap liaison,
// the same bookkeeping a real OS-delivered signal performs via
// WatchSignals. Exposed so a caller that already has a signal number in
// hand (or a test simulating Ctrl-C) can drive the same statement-
// boundary dispatch path without installing a real OS handler.
func (r *Runner) RaiseSignal(n int) { r.trap.Mark(n) }
