// Package interp implements the Tree Evaluator (C1): walking an
// ast.Node tree and producing exit statuses, dispatching through the
// command cache (C2), process launcher (C3), non-local exit manager
// (C4), input stack (C5), and trap liaison (C6). The dispatch switch and
// per-kind semantics are ported from _examples/original_source/eval.c's
// evaltree/evalloop/evalfor/evalcase/evalcommand; the Runner's shape —
// functional options, a context-carried handler contract, struct-copy
// subshells — is ported from mvdan-sh/interp/{api,runner}.go.
package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/nimble-norg/nash/ast"
	"github.com/nimble-norg/nash/builtin"
	"github.com/nimble-norg/nash/cache"
	"github.com/nimble-norg/nash/expand"
	"github.com/nimble-norg/nash/pattern"
	"github.com/nimble-norg/nash/process"
	"github.com/nimble-norg/nash/trap"
	"github.com/nimble-norg/nash/unwind"
	"github.com/nimble-norg/nash/vars"
)

// Runner is the evaluator's state, ash's global interpreter state
// gathered into a value. It is built via New and a chain of Options,
// mirroring the teacher's RunnerOption/New pattern, and is not safe for
// concurrent use — background jobs run against a Subshell copy instead.
type Runner struct {
	vars   *vars.Store
	cache  *cache.Cache
	trap   *trap.Liaison
	table  *builtin.Table
	dir    string
	params []string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	execHandler func(ctx context.Context, e process.Exec) error

	// errExit mirrors ash's `-e`; flagged via the `set` builtin.
	errExit bool
	// xTrace mirrors ash's `-x`.
	xTrace bool
	// noUnset mirrors ash's `-u`.
	noUnset bool

	loopDepth int
	funcDepth int
	lastExit  uint8
	inTrap    bool
}

// Option configures a Runner at construction time, mirroring
// mvdan.cc/sh/v3/interp.RunnerOption.
type Option func(*Runner) error

// New builds a Runner with defaults matching a freshly started
// non-interactive shell: the real process environment, the current
// working directory, and stdio wired to the host's.
func New(opts ...Option) (*Runner, error) {
	r := &Runner{
		vars:       vars.New(os.Environ()),
		table:      builtin.New(),
		trap:       trap.New(),
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		execHandler: process.Run,
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	r.dir = wd
	r.cache = cache.New(r.getenv("PATH"), r.table.Lookup)
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Env overrides the interpreter's starting environment.
func Env(environ []string) Option {
	return func(r *Runner) error {
		r.vars = vars.New(environ)
		r.cache = cache.New(r.getenv("PATH"), r.table.Lookup)
		return nil
	}
}

// Dir overrides the interpreter's working directory.
func Dir(path string) Option {
	return func(r *Runner) error {
		abs, err := filepathAbs(path)
		if err != nil {
			return err
		}
		r.dir = abs
		return nil
	}
}

// Params sets the positional parameters ($1, $2, ... / $@).
func Params(args ...string) Option {
	return func(r *Runner) error {
		r.params = args
		return nil
	}
}

// StdIO overrides the interpreter's standard streams.
func StdIO(in io.Reader, out, err io.Writer) Option {
	return func(r *Runner) error {
		if in != nil {
			r.stdin = in
		}
		if out != nil {
			r.stdout = out
		}
		if err != nil {
			r.stderr = err
		}
		return nil
	}
}

// ErrExit turns on `-e` (errexit) semantics from the start.
func ErrExit(on bool) Option {
	return func(r *Runner) error { r.errExit = on; return nil }
}

// XTrace turns on `-x` (command tracing) semantics from the start.
func XTrace(on bool) Option {
	return func(r *Runner) error { r.xTrace = on; return nil }
}

// NoUnset turns on `-u` (error on unset variable reference) semantics
// from the start.
func NoUnset(on bool) Option {
	return func(r *Runner) error { r.noUnset = on; return nil }
}

func (r *Runner) getenv(name string) string {
	v, _ := r.vars.Get(name)
	return v.Str
}

// evalFlags mirrors ash's EV_EXIT/EV_TESTED/EV_BACKCMD (§4.1's dispatch
// table operates on this bitset).
type evalFlags int

const (
	flagExit evalFlags = 1 << iota
	flagTested
	flagBackCmd
)

// Eval is the tree-walk entry point, ash's evaltree. It returns the
// command's exit status and any pending break/continue/return skip
// marker, plus a non-nil *unwind.Exit if evaluation must unwind past
// the caller (§4.4, §7).
func (r *Runner) Eval(ctx context.Context, n ast.Node, flags evalFlags) (unwind.Result, *unwind.Exit) {
	if n == nil {
		return unwind.Result{Status: r.lastExit}, nil
	}

	res, exit := r.dispatch(ctx, n, flags)
	if exit != nil {
		return res, exit
	}
	r.lastExit = res.Status

	if r.trap.Pending() {
		untrapped, err := r.trap.Poll(r.runTrap(ctx))
		if err != nil {
			if ue, ok := err.(*unwind.Exit); ok {
				return res, ue
			}
			return res, unwind.NewFatal(err)
		}
		if untrapped >= 0 {
			return res, unwind.NewInterrupt(untrapped)
		}
	}

	if flags&flagExit != 0 {
		return res, &unwind.Exit{Kind: unwind.KindExec, Status: res.Status}
	}
	if r.errExit && res.Status != 0 && flags&flagTested == 0 && res.Skip.None() {
		return res, &unwind.Exit{
			Kind:   unwind.KindError,
			Status: res.Status,
			Err:    fmt.Errorf("command exited %d with errexit set", res.Status),
		}
	}
	return res, nil
}

func (r *Runner) runTrap(ctx context.Context) trap.Handler {
	return func(sig int) error {
		cmd, ok := r.trap.TrapCommand(sig)
		if !ok {
			return nil
		}
		wasInTrap := r.inTrap
		r.inTrap = true
		defer func() { r.inTrap = wasInTrap }()
		status, err := r.EvalString(ctx, cmd)
		r.lastExit = status
		return err
	}
}

func (r *Runner) dispatch(ctx context.Context, n ast.Node, flags evalFlags) (unwind.Result, *unwind.Exit) {
	switch x := n.(type) {
	case *ast.Cmd:
		return r.evalCommand(ctx, x, flags)
	case *ast.Seq:
		res, exit := r.Eval(ctx, x.A, flags&^flagExit)
		if exit != nil {
			return res, exit
		}
		if !res.Skip.None() {
			return res, nil
		}
		return r.Eval(ctx, x.B, flags)
	case *ast.And:
		res, exit := r.Eval(ctx, x.A, flags&^flagExit|flagTested)
		if exit != nil || !res.Skip.None() {
			return res, exit
		}
		if res.Status != 0 {
			return res, nil
		}
		return r.Eval(ctx, x.B, flags)
	case *ast.Or:
		res, exit := r.Eval(ctx, x.A, flags&^flagExit|flagTested)
		if exit != nil || !res.Skip.None() {
			return res, exit
		}
		if res.Status == 0 {
			return res, nil
		}
		return r.Eval(ctx, x.B, flags)
	case *ast.If:
		cond, exit := r.Eval(ctx, x.Cond, flagTested)
		if exit != nil || !cond.Skip.None() {
			return cond, exit
		}
		if cond.Status == 0 {
			return r.Eval(ctx, x.Then, flags)
		}
		if x.Else != nil {
			return r.Eval(ctx, x.Else, flags)
		}
		return unwind.Result{Status: 0}, nil
	case *ast.While:
		return r.evalLoop(ctx, x.Cond, x.Body, false, flags)
	case *ast.Until:
		return r.evalLoop(ctx, x.Cond, x.Body, true, flags)
	case *ast.For:
		return r.evalFor(ctx, x, flags)
	case *ast.Case:
		return r.evalCase(ctx, x, flags)
	case *ast.Pipe:
		return r.evalPipe(ctx, x, flags)
	case *ast.Subshell:
		return r.evalSubshell(ctx, x.Body, flags)
	case *ast.Background:
		return r.evalBackground(ctx, x.Body)
	case *ast.Redir:
		return r.evalRedir(ctx, x, flags)
	case *ast.Defun:
		r.cache.InstallFunction(x.Name, x.Body)
		return unwind.Result{Status: 0}, nil
	default:
		return unwind.Result{Status: 0}, unwind.NewFatal(fmt.Errorf("interp: unhandled node %T", n))
	}
}

// evalLoop implements ash's evalloop: loopnest tracks nesting so
// break/continue levels resolve correctly, and the SKIPBREAK/SKIPCONT
// decrement-and-clear protocol from §4.4 governs whether this loop
// consumes the pending skip or passes a decremented one up.
func (r *Runner) evalLoop(ctx context.Context, cond, body ast.Node, until bool, flags evalFlags) (unwind.Result, *unwind.Exit) {
	r.loopDepth++
	defer func() { r.loopDepth-- }()

	var status uint8
	for {
		condRes, exit := r.Eval(ctx, cond, flagTested)
		if exit != nil {
			return unwind.Result{Status: status}, exit
		}
		if !condRes.Skip.None() {
			break
		}
		stop := condRes.Status == 0
		if until {
			stop = !stop
		}
		if stop {
			break
		}

		bodyRes, exit := r.Eval(ctx, body, flags&^flagExit)
		status = bodyRes.Status
		if exit != nil {
			return unwind.Result{Status: status}, exit
		}
		if consumed, rest := bodyRes.Skip.Decrement(); !bodyRes.Skip.None() {
			if bodyRes.Skip.Kind == unwind.SkipReturn {
				return unwind.Result{Status: status, Skip: bodyRes.Skip}, nil
			}
			if !consumed {
				return unwind.Result{Status: status, Skip: rest}, nil
			}
			if bodyRes.Skip.Kind == unwind.SkipBreak {
				break
			}
			// SkipContinue consumed at this loop: fall through to
			// re-test the condition, ash's "clear skip, continue loop".
		}
	}
	return unwind.Result{Status: status}, nil
}

// evalFor implements ash's evalfor: expand the word list once, then
// run the body once per word with Name bound, honoring the same
// skip-decrement protocol as evalLoop.
func (r *Runner) evalFor(ctx context.Context, x *ast.For, flags evalFlags) (unwind.Result, *unwind.Exit) {
	words := x.Words
	var items []string
	if words == nil {
		items = r.params
	} else {
		fs, err := expand.FieldsList(r.expandConfig(ctx), words)
		if err != nil {
			return unwind.Result{}, unwind.NewError("%v", err)
		}
		items = fs
	}

	r.loopDepth++
	defer func() { r.loopDepth-- }()

	var status uint8
	for _, item := range items {
		r.vars.Set(x.Name, item)
		bodyRes, exit := r.Eval(ctx, x.Body, flags&^flagExit)
		status = bodyRes.Status
		if exit != nil {
			return unwind.Result{Status: status}, exit
		}
		if !bodyRes.Skip.None() {
			if bodyRes.Skip.Kind == unwind.SkipReturn {
				return unwind.Result{Status: status, Skip: bodyRes.Skip}, nil
			}
			consumed, rest := bodyRes.Skip.Decrement()
			if !consumed {
				return unwind.Result{Status: status, Skip: rest}, nil
			}
			if bodyRes.Skip.Kind == unwind.SkipBreak {
				break
			}
		}
	}
	return unwind.Result{Status: status}, nil
}

// evalCase implements ash's evalcase: expand the subject word once,
// then test each clause's patterns in order, first match wins, no
// fallthrough (§4.1).
func (r *Runner) evalCase(ctx context.Context, x *ast.Case, flags evalFlags) (unwind.Result, *unwind.Exit) {
	subject, err := expand.Literal(r.expandConfig(ctx), x.Word)
	if err != nil {
		return unwind.Result{}, unwind.NewError("%v", err)
	}
	for _, item := range x.Items {
		for _, pw := range item.Patterns {
			pat, err := expand.Literal(r.expandConfig(ctx), pw)
			if err != nil {
				return unwind.Result{}, unwind.NewError("%v", err)
			}
			ok, err := pattern.Match(pat, subject)
			if err != nil {
				return unwind.Result{}, unwind.NewError("%v", err)
			}
			if ok {
				if item.Body == nil {
					return unwind.Result{Status: 0}, nil
				}
				return r.Eval(ctx, item.Body, flags)
			}
		}
	}
	return unwind.Result{Status: 0}, nil
}

func filepathAbs(path string) (string, error) {
	if path == "" {
		return os.Getwd()
	}
	if strings.HasPrefix(path, "/") {
		return path, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return wd + "/" + path, nil
}

// trace writes the `-x` diagnostic line for a simple command, quoting
// its words with go-shellquote the way ash's trargs/trputs quote theirs
// for the trace stream, per SPEC_FULL.md's Ambient Stack/Logging section.
func (r *Runner) trace(args []string) {
	if !r.xTrace {
		return
	}
	fmt.Fprintln(r.stderr, "+ "+shellquote.Join(args...))
}
