// Package trap implements the Trap/Signal Liaison (C6): recording which
// signals are pending and which have handlers installed, and running
// those handlers when the evaluator polls at a statement boundary,
// grounded on spec §4.6 and ash's pendingsig/dotrap (eval.c's
// post-statement check, main.c's cmdloop poll) translated from a single
// global flag into a liaison value the Runner holds and polls
// explicitly — no hidden signal-handler-driven control flow.
package trap

import (
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
)

// Handler is trap body execution, supplied by interp: given a signal
// number, re-enter the evaluator on the trap's registered command
// string and return any error that evaluation produced.
type Handler func(sig int) error

// Liaison owns the pending-signal bitset and the trap table. The host
// process's signal.Notify delivery (started by Watch) or a direct Mark
// call feeds the pending set; interp
// polls Poll() at each statement boundary, exactly where ash's evaltree
// calls dotrap().
type Liaison struct {
	mu      sync.Mutex
	pending map[int]bool
	traps   map[int]string // signal -> trap command text; SetTrap(n, "") deletes the entry
	onEntry bool           // true while a trap handler is itself running, to suppress re-entrant dispatch
	ch      chan os.Signal
}

// New returns a Liaison with no traps installed.
func New() *Liaison {
	return &Liaison{
		pending: map[int]bool{},
		traps:   map[int]string{},
	}
}

// Watch starts forwarding the given signals from the OS into the
// Liaison's pending set. Call once at shell startup; sig is typically
// os.Interrupt plus whatever else trap commands name.
func (l *Liaison) Watch(sigs ...os.Signal) {
	l.ch = make(chan os.Signal, 16)
	signal.Notify(l.ch, sigs...)
	go func() {
		for s := range l.ch {
			l.mark(signalNumber(s))
		}
	}()
}

func (l *Liaison) mark(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending[n] = true
}

// Mark injects signal n into the pending set directly, the same
// bookkeeping Watch's goroutine performs for a real OS-delivered
// signal. Exported so callers (and tests) that already have a signal
// number in hand can drive Poll without going through signal.Notify.
func (l *Liaison) Mark(n int) { l.mark(n) }

// SetTrap installs or clears (command == "") a trap for signal n,
// ash's trapcmd.
func (l *Liaison) SetTrap(n int, command string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if command == "" {
		delete(l.traps, n)
		return
	}
	l.traps[n] = command
}

// Pending reports whether any signal is waiting to be dispatched,
// letting interp's statement-boundary check stay a cheap boolean test
// on the common path, mirroring ash's single `pendingsig` flag.
func (l *Liaison) Pending() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending) > 0
}

// Poll dispatches every pending signal that has a trap, clearing it from
// the pending set either way, ash's dotrap. Traps run with re-entrant
// dispatch suppressed: a signal delivered while a trap body is running
// stays queued rather than interrupting it, matching ash's "traps are
// not reentrant" rule.
//
// A pending signal with no registered trap is never silently dropped:
// Poll reports the first one it finds as untrapped (-1 if none), and
// the caller is responsible for escalating it — ash's default action
// for an untrapped SIGINT is to abort the running command, which
// interp.Runner.Eval does by raising unwind.NewInterrupt(untrapped).
func (l *Liaison) Poll(run Handler) (untrapped int, err error) {
	untrapped = -1
	l.mu.Lock()
	if l.onEntry || len(l.pending) == 0 {
		l.mu.Unlock()
		return untrapped, nil
	}
	due := make([]int, 0, len(l.pending))
	for n := range l.pending {
		due = append(due, n)
		delete(l.pending, n)
	}
	l.onEntry = true
	l.mu.Unlock()
	sort.Ints(due)

	defer func() {
		l.mu.Lock()
		l.onEntry = false
		l.mu.Unlock()
	}()

	for _, n := range due {
		if _, has := l.TrapCommand(n); !has {
			if untrapped < 0 {
				untrapped = n
			}
			continue
		}
		if err := run(n); err != nil {
			return untrapped, err
		}
	}
	return untrapped, nil
}

// TrapCommand returns the trap body registered for signal n, if any;
// interp's Handler uses this to resolve what to re-evaluate.
func (l *Liaison) TrapCommand(n int) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cmd, ok := l.traps[n]
	return cmd, ok
}

// InterruptStatus returns the §6 exit-status convention for termination
// by signal n: 128+n.
func InterruptStatus(n int) uint8 { return uint8(128 + n) }

// signalNumber extracts the numeric signal value signal.Notify
// delivers, which on unix is always a syscall.Signal.
func signalNumber(s os.Signal) int {
	if sn, ok := s.(syscall.Signal); ok {
		return int(sn)
	}
	return 0
}
