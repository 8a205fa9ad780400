// Package process implements the Process Launcher (C3): starting
// external commands (with ash's #!/ENOEXEC interpreter fallback),
// building pipelines, and running subshells/command substitutions,
// grounded on _examples/original_source/exec.c (shellexec, tryexec,
// execinterp) for the exec/shebang algorithm and on eval.c's
// evalpipe/evalsubshell/evalbackcmd for orchestration. Since Go cannot
// fork() a running runtime, external commands map onto os/exec and
// subshells map onto goroutines running a struct-copy of the Runner's
// state, the same substitution the teacher's interp/handler.go and
// interp/runner.go make.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// IO is the standard stream triple a launched process or pipeline stage
// reads/writes, mirroring the teacher's HandlerContext.Std{in,out,err}.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Exec describes one external command invocation, assembled by interp
// from a resolved cache.Entry plus expanded argv/env/dir.
type Exec struct {
	Path string
	Args []string
	Env  []string
	Dir  string
	IO   IO
}

// ExitCode reports the process's wait status translated to the shell
// exit-status convention of §6: normal exit preserves the code, and
// termination by signal N maps to 128+N.
func ExitCode(err error) uint8 {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if !asExitError(err, &exitErr) {
		return 127
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return uint8(128 + ws.Signal())
	}
	return uint8(exitErr.ExitCode())
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}

// Run launches one external command and waits for it, applying the
// ash shellexec/tryexec/execinterp #!/ENOEXEC fallback: if the kernel
// refuses to exec the target directly (ENOEXEC, the "not a recognized
// binary" case covering scripts with a #! line that exceeds the
// kernel's own direct support, or none at all), retry by invoking the
// file as input to the interpreter named on its first line, or /bin/sh
// if it has none.
func Run(ctx context.Context, e Exec) error {
	cmd := exec.CommandContext(ctx, e.Path, e.Args[1:]...)
	cmd.Args = e.Args
	cmd.Env = e.Env
	cmd.Dir = e.Dir
	cmd.Stdin = e.IO.Stdin
	cmd.Stdout = e.IO.Stdout
	cmd.Stderr = e.IO.Stderr

	err := cmd.Run()
	if isENOEXEC(err) {
		interp, args, ferr := shebangFallback(e.Path)
		if ferr != nil {
			return err
		}
		e2 := e
		e2.Path = interp
		e2.Args = append(args, e.Args[1:]...)
		return Run(ctx, e2)
	}
	return err
}

func isENOEXEC(err error) bool {
	if errors.Is(err, syscall.ENOEXEC) {
		return true
	}
	var exitErr *exec.Error
	if ee, ok := err.(*exec.Error); ok {
		exitErr = ee
		return exitErr.Err == exec.ErrNotFound || strings.Contains(exitErr.Err.Error(), "exec format error")
	}
	return false
}

// shebangFallback reads a file's first line and, if it starts with
// "#!", returns the interpreter path and its leading args, ash's
// execinterp. A file with no #! line falls back to /bin/sh, matching
// ash's historical behavior for scripts the kernel itself can't exec.
func shebangFallback(path string) (string, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	buf := make([]byte, 128)
	n, _ := f.Read(buf)
	line := string(buf[:n])
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	if strings.HasPrefix(line, "#!") {
		fields := strings.Fields(strings.TrimPrefix(line, "#!"))
		if len(fields) == 0 {
			return "", nil, fmt.Errorf("%s: malformed #! line", path)
		}
		return fields[0], append(append([]string{}, fields...), path), nil
	}
	return "/bin/sh", []string{"/bin/sh", path}, nil
}

// CaptureOutput runs run with stdout captured in memory and trailing
// newlines left intact (the caller, expand.Config.Run, strips them),
// ash's evalbackcmd used for command substitution.
func CaptureOutput(run func(stdout io.Writer) error) (string, error) {
	var buf bytes.Buffer
	err := run(&buf)
	return buf.String(), err
}

// Pipeline runs stages left to right, wiring each stage's stdout to the
// next one's stdin, and waits for all of them; the exit status is the
// last stage's, matching §4.3's "the pipeline's status is the last
// command's status"; there is no pipefail option. Modeled on ash's evalpipe job-handle
// wait, realized with errgroup instead of a hand-rolled WaitGroup.
func Pipeline(ctx context.Context, stages []func(io IO) error, first IO) ([]error, error) {
	n := len(stages)
	if n == 0 {
		return nil, nil
	}
	ios := make([]IO, n)
	readers := make([]*os.File, n)
	writers := make([]*os.File, n)
	ios[0] = IO{Stdin: first.Stdin, Stderr: first.Stderr}
	for i := 0; i < n-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			for j := 0; j < i; j++ {
				readers[j].Close()
				writers[j].Close()
			}
			return nil, err
		}
		readers[i+1], writers[i] = r, w
		ios[i].Stdout = w
		ios[i+1].Stdin = r
		ios[i+1].Stderr = first.Stderr
	}
	ios[n-1].Stdout = first.Stdout

	results := make([]error, n)
	g, _ := errgroup.WithContext(ctx)
	for i := range stages {
		i := i
		g.Go(func() error {
			results[i] = stages[i](ios[i])
			if writers[i] != nil {
				writers[i].Close()
			}
			if readers[i] != nil {
				readers[i].Close()
			}
			return results[i]
		})
	}
	err := g.Wait()
	return results, err
}
