package interp

import (
	"context"
	"os"

	"github.com/nimble-norg/nash/builtin"
	"github.com/nimble-norg/nash/input"
)

// builtinEnv adapts a Runner to the builtin.Env interface for the
// duration of a single builtin call, keeping the builtin package
// decoupled from interp's concrete type (see builtin.go's package doc).
type builtinEnv struct {
	r             *Runner
	ctx           context.Context
	args          []string
	execRequested bool
}

func (e *builtinEnv) Arg(i int) string         { return e.args[i] }
func (e *builtinEnv) Argc() int                { return len(e.args) }
func (e *builtinEnv) Stdout() builtin.Writer    { return e.r.stdout }
func (e *builtinEnv) Stderr() builtin.Writer    { return e.r.stderr }

func (e *builtinEnv) Getenv(name string) (string, bool) {
	v, ok := e.r.vars.Get(name)
	return v.Str, ok
}

func (e *builtinEnv) Setenv(name, value string) { e.r.vars.Set(name, value) }
func (e *builtinEnv) Unsetenv(name string) {
	e.r.vars.Unset(name)
	e.r.cache.UnsetFunction(name)
}
func (e *builtinEnv) Export(name string)               { e.r.vars.Export(name) }
func (e *builtinEnv) SetLocal(name, value string)       { e.r.vars.SetLocal(name, value) }
func (e *builtinEnv) Dir() string                       { return e.r.dir }
func (e *builtinEnv) LoopDepth() int                    { return e.r.loopDepth }
func (e *builtinEnv) FuncDepth() int                    { return e.r.funcDepth }

func (e *builtinEnv) Chdir(path string) error {
	if !isAbs(path) {
		path = e.r.dir + "/" + path
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	e.r.dir = path
	e.r.cache.HashCD()
	return nil
}

func (e *builtinEnv) SourceFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	stack := input.New()
	stack.PushFile(f)
	text, err := readAll(stack)
	if err != nil {
		return err
	}
	_, err = e.r.EvalString(e.ctx, text)
	return err
}

func (e *builtinEnv) EvalString(s string) (uint8, error) {
	status, err := e.r.EvalString(e.ctx, s)
	return status, err
}

// Exec records args; callBuiltin then raises a KindExec unwind without
// running them.
func (e *builtinEnv) Exec(args []string) error {
	e.execRequested = true
	e.args = args
	return nil
}

func (e *builtinEnv) Shift(n int) error {
	if n > len(e.r.params) {
		return errShiftTooFar
	}
	e.r.params = e.r.params[n:]
	return nil
}

func (e *builtinEnv) SetParams(args []string) { e.r.params = args }

func (e *builtinEnv) Rehash() { e.r.cache.Rehash() }

// SetOption implements the `set -e`/`set -x`/`set -u` runtime toggle,
// wiring the `set` builtin to the Runner fields `-e`/`-x`/`-u` flag at
// startup via the ErrExit/XTrace/NoUnset Options already set.
func (e *builtinEnv) SetOption(flag byte, on bool) bool {
	switch flag {
	case 'e':
		e.r.errExit = on
	case 'x':
		e.r.xTrace = on
	case 'u':
		e.r.noUnset = on
	default:
		return false
	}
	return true
}

func isAbs(p string) bool { return len(p) > 0 && p[0] == '/' }

func readAll(stack *input.Stack) (string, error) {
	var b []byte
	for {
		c, err := stack.Getc()
		if err != nil {
			break
		}
		b = append(b, c)
	}
	return string(b), nil
}
