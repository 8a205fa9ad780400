// Package builtin is the built-in command table (§6, "consumed"),
// populated with the set _examples/original_source/eval.c treats as
// core to the evaluator itself (bltincmd, breakcmd, returncmd, truecmd,
// execcmd) plus the rest named in SPEC_FULL.md's Domain Stack, using
// the teacher's interp/builtin.go table-of-funcs idiom: a name-keyed map
// of Func rather than ash's switch-on-integer-code dispatch, since Go
// has no equivalent to C's cheap integer jump table and a map read is
// the idiomatic replacement.
package builtin

import (
	"context"
	"fmt"

	"github.com/nimble-norg/nash/unwind"
)

// Code distinguishes the built-ins the Non-local Exit Manager and the
// Tree Evaluator must special-case rather than treat uniformly (the
// fork-decision guard in §4.3 singles out exactly these), mirroring
// ash's DOTCMD/EVALCMD/EXECCMD/BLTINCMD constants.
type Code int

const (
	Other Code = iota
	Dot        // `.`
	Eval
	Exec
	Colon // `:`, the implicit no-op command
)

// Env is the evaluator state a builtin needs, kept narrow and
// interface-shaped so builtin does not import interp (which imports
// builtin to populate its table) — the same inversion the teacher's
// interp/builtin.go avoids by putting builtins in the same package as
// the Runner. Here the two stay separate packages per the spec's
// component boundary, so Env is the seam.
type Env interface {
	Arg(i int) string
	Argc() int
	Stdout() Writer
	Stderr() Writer
	Getenv(name string) (string, bool)
	Setenv(name, value string)
	Unsetenv(name string)
	Export(name string)
	SetLocal(name, value string)
	Chdir(path string) error
	Dir() string
	LoopDepth() int
	FuncDepth() int
	SourceFile(path string) error // `.`/source a file through the input stack
	EvalString(s string) (uint8, error)
	Exec(args []string) error // `exec`: pass the replacement command to the host
	Shift(n int) error
	SetParams(args []string)
	Rehash() // `hash -r`: drop all cached command resolutions
	// SetOption toggles a shell option by its ash letter ('e', 'x',
	// 'u', ...), the runtime counterpart of `set -e`/`set +e`.
	SetOption(flag byte, on bool) bool
}

// Writer is the minimal io.Writer-shaped sink builtins print to; kept
// as its own type so this file doesn't need to import io just for this.
type Writer interface {
	Write(p []byte) (int, error)
}

// Result is a builtin invocation's outcome: an exit status, an optional
// pending break/continue/return skip marker (§4.4 — never an error),
// and an optional error that should unwind as a shell error (§7's
// KindError), e.g. a bad option to `cd`.
type Result struct {
	Status uint8
	Skip   unwind.Skip
	Err    error
}

// Func is one builtin's implementation.
type Func func(ctx context.Context, env Env) Result

// Entry is one row of the built-in table.
type Entry struct {
	Name string
	Code Code
	Func Func
}

// Table is the ordered/indexed built-in set; At exposes array-style
// lookup the way cache.Entry.Builtin expects, and Lookup supports the
// name-keyed existence check cache.BuiltinLookup performs.
type Table struct {
	entries []Entry
	byName  map[string]int
}

// New returns the standard built-in table named in SPEC_FULL.md's
// Domain Stack section.
func New() *Table {
	t := &Table{byName: map[string]int{}}
	t.add("true", Other, builtinTrue)
	t.add(":", Colon, builtinColon)
	t.add("false", Other, builtinFalse)
	t.add("exit", Other, builtinExit)
	t.add("return", Other, builtinReturn)
	t.add("break", Other, builtinBreak)
	t.add("continue", Other, builtinContinue)
	t.add("cd", Other, builtinCd)
	t.add("exec", Exec, builtinExec)
	t.add("eval", Eval, builtinEval)
	t.add(".", Dot, builtinDot)
	t.add("hash", Other, builtinHash)
	t.add("export", Other, builtinExport)
	t.add("unset", Other, builtinUnset)
	t.add("shift", Other, builtinShift)
	t.add("set", Other, builtinSet)
	t.add("local", Other, builtinLocal)
	t.add("test", Other, builtinTest)
	t.add("[", Other, builtinTest)
	return t
}

func (t *Table) add(name string, code Code, fn Func) {
	t.byName[name] = len(t.entries)
	t.entries = append(t.entries, Entry{Name: name, Code: code, Func: fn})
}

// Lookup satisfies cache.BuiltinLookup.
func (t *Table) Lookup(name string) (int, bool) {
	i, ok := t.byName[name]
	return i, ok
}

// At returns the entry at index i, as resolved via cache.Entry.Builtin.
func (t *Table) At(i int) Entry { return t.entries[i] }

func builtinTrue(ctx context.Context, env Env) Result  { return Result{Status: 0} }
func builtinColon(ctx context.Context, env Env) Result { return Result{Status: 0} }
func builtinFalse(ctx context.Context, env Env) Result { return Result{Status: 1} }

func builtinExit(ctx context.Context, env Env) Result {
	status := uint8(0)
	if env.Argc() > 1 {
		status = parseStatus(env.Arg(1))
	}
	return Result{Status: status}
}

func builtinReturn(ctx context.Context, env Env) Result {
	status := uint8(0)
	if env.Argc() > 1 {
		status = parseStatus(env.Arg(1))
	}
	if env.FuncDepth() == 0 {
		// `return` outside a function behaves like `exit`, ash's
		// returncmd falling through to exitcmd when funcnest == 0.
		return Result{Status: status}
	}
	return Result{Status: status, Skip: unwind.Skip{Kind: unwind.SkipReturn}}
}

// clampLevel applies ash's breakcmd/continuecmd clamp: a level beyond
// the number of enclosing loops is silently capped to that number,
// never an error.
func clampLevel(env Env, requested int) int {
	if requested < 1 {
		requested = 1
	}
	if max := env.LoopDepth(); max > 0 && requested > max {
		requested = max
	}
	return requested
}

func builtinBreak(ctx context.Context, env Env) Result {
	n := 1
	if env.Argc() > 1 {
		n = int(parseStatus(env.Arg(1)))
	}
	return Result{Skip: unwind.Skip{Kind: unwind.SkipBreak, Level: clampLevel(env, n)}}
}

func builtinContinue(ctx context.Context, env Env) Result {
	n := 1
	if env.Argc() > 1 {
		n = int(parseStatus(env.Arg(1)))
	}
	return Result{Skip: unwind.Skip{Kind: unwind.SkipContinue, Level: clampLevel(env, n)}}
}

func builtinCd(ctx context.Context, env Env) Result {
	target := ""
	if env.Argc() > 1 {
		target = env.Arg(1)
	} else if home, ok := env.Getenv("HOME"); ok {
		target = home
	}
	if target == "" {
		return Result{Status: 1, Err: errNoHome}
	}
	if err := env.Chdir(target); err != nil {
		return Result{Status: 1, Err: err}
	}
	env.Setenv("OLDPWD", env.Dir())
	env.Setenv("PWD", target)
	return Result{Status: 0}
}

func builtinExec(ctx context.Context, env Env) Result {
	if env.Argc() <= 1 {
		return Result{Status: 0}
	}
	if err := env.Exec(argsFrom(env, 1)); err != nil {
		return Result{Status: 126, Err: err}
	}
	return Result{Status: 0}
}

func builtinEval(ctx context.Context, env Env) Result {
	if env.Argc() <= 1 {
		return Result{Status: 0}
	}
	text := joinArgs(env, 1)
	status, err := env.EvalString(text)
	return Result{Status: status, Err: err}
}

func builtinDot(ctx context.Context, env Env) Result {
	if env.Argc() <= 1 {
		return Result{Status: 2, Err: errDotArg}
	}
	if err := env.SourceFile(env.Arg(1)); err != nil {
		return Result{Status: 1, Err: err}
	}
	return Result{Status: 0}
}

// builtinHash implements the `-r` flag of ash's hashcmd: without it this
// built-in is otherwise a no-op here, since the printing/verbose forms
// need a Cache listing this Env seam deliberately doesn't expose.
func builtinHash(ctx context.Context, env Env) Result {
	for i := 1; i < env.Argc(); i++ {
		if env.Arg(i) == "-r" {
			env.Rehash()
		}
	}
	return Result{Status: 0}
}

func builtinExport(ctx context.Context, env Env) Result {
	for i := 1; i < env.Argc(); i++ {
		name, value, has := splitAssign(env.Arg(i))
		if has {
			env.Setenv(name, value)
		}
		env.Export(name)
	}
	return Result{Status: 0}
}

func builtinUnset(ctx context.Context, env Env) Result {
	for i := 1; i < env.Argc(); i++ {
		env.Unsetenv(env.Arg(i))
	}
	return Result{Status: 0}
}

func builtinShift(ctx context.Context, env Env) Result {
	n := 1
	if env.Argc() > 1 {
		n = int(parseStatus(env.Arg(1)))
	}
	if err := env.Shift(n); err != nil {
		return Result{Status: 1, Err: err}
	}
	return Result{Status: 0}
}

// builtinSet implements ash's setcmd far enough to cover the `-e`/`-x`/
// `-u` runtime toggles (`set -e`, `set +x`, ...) before falling through
// to positional-parameter assignment, matching the POSIX rule that a
// bare run of options with no "--" and no further operands leaves the
// positional parameters untouched.
func builtinSet(ctx context.Context, env Env) Result {
	i := 1
	sawDashDash := false
	for ; i < env.Argc(); i++ {
		arg := env.Arg(i)
		if arg == "--" {
			i++
			sawDashDash = true
			break
		}
		if len(arg) != 2 || (arg[0] != '-' && arg[0] != '+') {
			break
		}
		if !env.SetOption(arg[1], arg[0] == '-') {
			return Result{Status: 2, Err: fmt.Errorf("set: %s: unknown option", arg)}
		}
	}
	if sawDashDash || i < env.Argc() {
		env.SetParams(argsFrom(env, i))
	}
	return Result{Status: 0}
}

func builtinLocal(ctx context.Context, env Env) Result {
	for i := 1; i < env.Argc(); i++ {
		name, value, _ := splitAssign(env.Arg(i))
		env.SetLocal(name, value)
	}
	return Result{Status: 0}
}

func argsFrom(env Env, start int) []string {
	out := make([]string, 0, env.Argc()-start)
	for i := start; i < env.Argc(); i++ {
		out = append(out, env.Arg(i))
	}
	return out
}

func joinArgs(env Env, start int) string {
	s := ""
	for i := start; i < env.Argc(); i++ {
		if i > start {
			s += " "
		}
		s += env.Arg(i)
	}
	return s
}

func splitAssign(s string) (name, value string, hasValue bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

func parseStatus(s string) uint8 {
	var n int
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return uint8(n)
}
