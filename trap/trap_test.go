package trap_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/nimble-norg/nash/trap"
)

func TestNewLiaisonHasNothingPending(t *testing.T) {
	c := qt.New(t)
	l := trap.New()
	c.Assert(l.Pending(), qt.IsFalse)
}

func TestSetTrapThenTrapCommandReturnsIt(t *testing.T) {
	c := qt.New(t)
	l := trap.New()
	l.SetTrap(2, "echo caught")

	// No Watch() call and no Poll in this test: it only checks that
	// SetTrap records the command and TrapCommand returns it.
	cmd, ok := l.TrapCommand(2)
	c.Assert(ok, qt.IsTrue)
	c.Assert(cmd, qt.Equals, "echo caught")
}

func TestSetTrapWithEmptyCommandClears(t *testing.T) {
	c := qt.New(t)
	l := trap.New()
	l.SetTrap(2, "echo caught")
	l.SetTrap(2, "")
	_, ok := l.TrapCommand(2)
	c.Assert(ok, qt.IsFalse)
}

func TestPollWithNoPendingSignalsIsNoop(t *testing.T) {
	c := qt.New(t)
	l := trap.New()
	calls := 0
	untrapped, err := l.Poll(func(sig int) error {
		calls++
		return nil
	})
	c.Assert(err, qt.IsNil)
	c.Assert(calls, qt.Equals, 0)
	c.Assert(untrapped, qt.Equals, -1)
}

func TestPollRunsTrapForPendingSignal(t *testing.T) {
	c := qt.New(t)
	l := trap.New()
	l.SetTrap(2, "echo caught")
	l.Mark(2)

	var ran []int
	untrapped, err := l.Poll(func(sig int) error {
		ran = append(ran, sig)
		return nil
	})
	c.Assert(err, qt.IsNil)
	c.Assert(ran, qt.DeepEquals, []int{2})
	c.Assert(untrapped, qt.Equals, -1)
	c.Assert(l.Pending(), qt.IsFalse)
}

// TestPollReportsUntrappedSignal drives the fix for an untrapped pending
// signal (e.g. SIGINT with no `trap` installed): Poll must surface it
// instead of silently clearing it with nothing to show for it.
func TestPollReportsUntrappedSignal(t *testing.T) {
	c := qt.New(t)
	l := trap.New()
	l.Mark(2)

	calls := 0
	untrapped, err := l.Poll(func(sig int) error {
		calls++
		return nil
	})
	c.Assert(err, qt.IsNil)
	c.Assert(calls, qt.Equals, 0)
	c.Assert(untrapped, qt.Equals, 2)
	c.Assert(l.Pending(), qt.IsFalse)
}

// TestPollReportsUntrappedAlongsideTrapped mixes a trapped and an
// untrapped signal in the same poll: the trapped one still runs, and
// the untrapped one is still reported, not masked by the other.
func TestPollReportsUntrappedAlongsideTrapped(t *testing.T) {
	c := qt.New(t)
	l := trap.New()
	l.SetTrap(1, "echo hup")
	l.Mark(1)
	l.Mark(2)

	var ran []int
	untrapped, err := l.Poll(func(sig int) error {
		ran = append(ran, sig)
		return nil
	})
	c.Assert(err, qt.IsNil)
	c.Assert(ran, qt.DeepEquals, []int{1})
	c.Assert(untrapped, qt.Equals, 2)
}

func TestInterruptStatusConvention(t *testing.T) {
	c := qt.New(t)
	c.Assert(trap.InterruptStatus(2), qt.Equals, uint8(130))
	c.Assert(trap.InterruptStatus(15), qt.Equals, uint8(143))
}
