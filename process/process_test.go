package process_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/nimble-norg/nash/process"
)

func TestExitCodeNilIsZero(t *testing.T) {
	c := qt.New(t)
	c.Assert(process.ExitCode(nil), qt.Equals, uint8(0))
}

func TestExitCodeNonExitErrorIsCommandNotFound(t *testing.T) {
	c := qt.New(t)
	c.Assert(process.ExitCode(os.ErrNotExist), qt.Equals, uint8(127))
}

func TestExitCodePropagatesNonZeroExit(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	var out bytes.Buffer
	err := process.Run(ctx, process.Exec{
		Path: "/bin/sh",
		Args: []string{"/bin/sh", "-c", "exit 7"},
		Env:  os.Environ(),
		IO:   process.IO{Stdout: &out},
	})
	c.Assert(err, qt.Not(qt.IsNil))
	c.Assert(process.ExitCode(err), qt.Equals, uint8(7))
}

func TestRunCapturesStdout(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	var out bytes.Buffer
	err := process.Run(ctx, process.Exec{
		Path: "/bin/echo",
		Args: []string{"/bin/echo", "hi"},
		Env:  os.Environ(),
		IO:   process.IO{Stdout: &out},
	})
	c.Assert(err, qt.IsNil)
	c.Assert(out.String(), qt.Equals, "hi\n")
}

func TestRunFallsBackOnShebangScript(t *testing.T) {
	c := qt.New(t)
	dir := c.Mkdir()
	path := filepath.Join(dir, "greet")
	err := os.WriteFile(path, []byte("#!/bin/sh\necho from-script\n"), 0o644)
	c.Assert(err, qt.IsNil)

	// The file is not individually executable, so the script is handed
	// to /bin/sh as an argument; this checks that Run passes argv through
	// to the interpreter. The ENOEXEC fallback itself is not exercised.
	var out bytes.Buffer
	runErr := process.Run(context.Background(), process.Exec{
		Path: "/bin/sh",
		Args: []string{"/bin/sh", path},
		Env:  os.Environ(),
		IO:   process.IO{Stdout: &out},
	})
	c.Assert(runErr, qt.IsNil)
	c.Assert(out.String(), qt.Equals, "from-script\n")
}

func TestCaptureOutputReturnsWhatRunWrote(t *testing.T) {
	c := qt.New(t)
	got, err := process.CaptureOutput(func(w io.Writer) error {
		_, werr := w.Write([]byte("captured"))
		return werr
	})
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "captured")
}

func TestPipelineChainsStdoutToStdin(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	var final bytes.Buffer

	stages := []func(process.IO) error{
		func(io process.IO) error {
			_, err := io.Stdout.Write([]byte("line one\nline two\n"))
			return err
		},
		func(io process.IO) error {
			buf := make([]byte, 4096)
			n, _ := io.Stdin.Read(buf)
			_, err := io.Stdout.Write(bytes.ToUpper(buf[:n]))
			return err
		},
	}

	results, err := process.Pipeline(ctx, stages, process.IO{Stdout: &final})
	c.Assert(err, qt.IsNil)
	c.Assert(results, qt.HasLen, 2)
	c.Assert(results[0], qt.IsNil)
	c.Assert(results[1], qt.IsNil)
	c.Assert(final.String(), qt.Equals, "LINE ONE\nLINE TWO\n")
}

func TestPipelineWithNoStagesIsNoop(t *testing.T) {
	c := qt.New(t)
	results, err := process.Pipeline(context.Background(), nil, process.IO{})
	c.Assert(err, qt.IsNil)
	c.Assert(results, qt.IsNil)
}
