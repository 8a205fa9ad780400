package vars_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/nimble-norg/nash/vars"
)

func TestGetSet(t *testing.T) {
	c := qt.New(t)
	s := vars.New(nil)
	s.Set("X", "1")
	v, ok := s.Get("X")
	c.Assert(ok, qt.IsTrue)
	c.Assert(v.Str, qt.Equals, "1")

	_, ok = s.Get("Y")
	c.Assert(ok, qt.IsFalse)
}

func TestScopingShadowsGlobal(t *testing.T) {
	c := qt.New(t)
	s := vars.New(nil)
	s.Set("X", "global")
	s.PushScope()
	s.SetLocal("X", "local")

	v, _ := s.Get("X")
	c.Assert(v.Str, qt.Equals, "local")

	s.PopScope()
	v, _ = s.Get("X")
	c.Assert(v.Str, qt.Equals, "global")
}

func TestExportEnviron(t *testing.T) {
	c := qt.New(t)
	s := vars.New(nil)
	s.Set("SECRET", "hide")
	s.Set("PUBLIC", "show")
	s.Export("PUBLIC")

	env := s.Environ()
	c.Assert(env, qt.Contains, "PUBLIC=show")
	c.Assert(env, qt.Not(qt.Contains), "SECRET=hide")
}

func TestSnapshotIsolatesWrites(t *testing.T) {
	c := qt.New(t)
	s := vars.New(nil)
	s.Set("X", "1")
	snap := s.Snapshot()
	snap.Set("X", "2")

	v, _ := s.Get("X")
	c.Assert(v.Str, qt.Equals, "1")
	v, _ = snap.Get("X")
	c.Assert(v.Str, qt.Equals, "2")
}
