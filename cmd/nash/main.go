// Command nash is the CLI entrypoint for the evaluation core: enough of
// a front end (-c, a script file argument, --dir) to exercise the
// Runner from a terminal or a test harness, wired with
// github.com/spf13/cobra the way aledsdavies-opal and canonical-lxd
// wire their own command-line entrypoints, per SPEC_FULL.md's Domain
// Stack section.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nimble-norg/nash/interp"
)

func main() {
	os.Exit(main1())
}

// main1 runs the CLI and returns the process exit status instead of
// calling os.Exit directly, so it can also be driven in-process by
// testscript.RunMain the way mvdan-sh/cmd/shfmt's main_test.go drives
// shfmt's own main1.
func main1() int {
	var status int
	cmd := newRootCmd(&status)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return status
}

func newRootCmd(status *int) *cobra.Command {
	var (
		command string
		dir     string
		errexit bool
		xtrace  bool
		nounset bool
	)

	cmd := &cobra.Command{
		Use:   "nash [script]",
		Short: "a minimal POSIX-style command evaluation core",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []interp.Option{
				interp.ErrExit(errexit),
				interp.XTrace(xtrace),
				interp.NoUnset(nounset),
			}
			if dir != "" {
				opts = append(opts, interp.Dir(dir))
			}
			r, err := interp.New(opts...)
			if err != nil {
				return err
			}
			r.WatchSignals(os.Interrupt)

			src, err := scriptSource(command, args)
			if err != nil {
				return err
			}

			exit, runErr := r.Run(context.Background(), src)
			if runErr != nil {
				if _, ok := interp.Exited(runErr); !ok {
					fmt.Fprintln(os.Stderr, runErr)
				}
			}
			*status = int(exit)
			return nil
		},
	}

	cmd.Flags().StringVarP(&command, "command", "c", "", "run the given command string instead of a script file")
	cmd.Flags().StringVar(&dir, "dir", "", "working directory for the interpreter")
	cmd.Flags().BoolVarP(&errexit, "errexit", "e", false, "exit immediately if any command exits non-zero")
	cmd.Flags().BoolVarP(&xtrace, "xtrace", "x", false, "print each simple command before executing it")
	cmd.Flags().BoolVarP(&nounset, "nounset", "u", false, "treat unset variable references as an error")

	return cmd
}

func scriptSource(command string, args []string) (string, error) {
	if command != "" {
		return command, nil
	}
	if len(args) == 1 {
		b, err := os.ReadFile(args[0])
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	b, err := os.ReadFile("/dev/stdin")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
