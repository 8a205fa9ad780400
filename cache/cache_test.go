package cache_test

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/nimble-norg/nash/cache"
)

func writeExecutable(c *qt.C, dir, name string) string {
	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte("#!/bin/sh\necho hi\n"), 0o755)
	c.Assert(err, qt.IsNil)
	return path
}

func noBuiltins(string) (int, bool) { return 0, false }

func TestResolveExternalOnPath(t *testing.T) {
	c := qt.New(t)
	dir := c.Mkdir()
	writeExecutable(c, dir, "greet")

	ch := cache.New(dir, noBuiltins)
	e := ch.Resolve("greet")
	c.Assert(e.Kind, qt.Equals, cache.KindExternal)
	c.Assert(e.Path, qt.Equals, filepath.Join(dir, "greet"))
}

func TestResolveCachesUntilRehash(t *testing.T) {
	c := qt.New(t)
	dir := c.Mkdir()
	writeExecutable(c, dir, "greet")

	ch := cache.New(dir, noBuiltins)
	first := ch.Resolve("greet")
	c.Assert(first.Kind, qt.Equals, cache.KindExternal)

	// Removing the file doesn't change the cached resolution: it's only
	// invalidated by a PATH change or an explicit rehash trigger, the
	// ash cmdtable contract §4.2 requires.
	os.Remove(filepath.Join(dir, "greet"))
	second := ch.Resolve("greet")
	c.Assert(second.Kind, qt.Equals, cache.KindExternal)
}

func TestChangePathInvalidatesExternalEntries(t *testing.T) {
	c := qt.New(t)
	dir1 := c.Mkdir()
	dir2 := c.Mkdir()
	writeExecutable(c, dir1, "tool")
	writeExecutable(c, dir2, "tool")

	ch := cache.New(dir1, noBuiltins)
	first := ch.Resolve("tool")
	c.Assert(first.Path, qt.Equals, filepath.Join(dir1, "tool"))

	ch.ChangePath(dir2)
	second := ch.Resolve("tool")
	c.Assert(second.Path, qt.Equals, filepath.Join(dir2, "tool"))
}

// TestChangePathSparesUnaffectedPrefix drives changepath's firstchange
// computation on a prefix-preserving PATH edit: appending a new
// directory after dirA must leave dirA's cached resolution untouched,
// since firstchange lands at the appended element, not at index 0.
func TestChangePathSparesUnaffectedPrefix(t *testing.T) {
	c := qt.New(t)
	dirA := c.Mkdir()
	dirB := c.Mkdir()
	writeExecutable(c, dirA, "tool")

	ch := cache.New(dirA, noBuiltins)
	first := ch.Resolve("tool")
	c.Assert(first.Kind, qt.Equals, cache.KindExternal)
	c.Assert(first.PathIdx, qt.Equals, 0)

	ch.ChangePath(dirA + ":" + dirB)
	second := ch.Resolve("tool")
	c.Assert(second.Kind, qt.Equals, cache.KindExternal)
	c.Assert(second.Path, qt.Equals, filepath.Join(dirA, "tool"))
	c.Assert(second.PathIdx, qt.Equals, 0)
}

// TestChangePathInvalidatesBuiltinsWhenMarkerMoves drives clearcmdentry's
// builtinLoc branch: once %builtin's own position shifts, every cached
// Builtin entry is dropped, even with no PATH-list edit before it, so a
// now-earlier external "cd" shadows the builtin on the very next
// resolution instead of the stale cached Builtin entry winning.
func TestChangePathInvalidatesBuiltinsWhenMarkerMoves(t *testing.T) {
	c := qt.New(t)
	dirA := c.Mkdir()
	dirB := c.Mkdir()
	writeExecutable(c, dirB, "cd")

	lookup := func(name string) (int, bool) {
		if name == "cd" {
			return 0, true
		}
		return 0, false
	}

	ch := cache.New("%builtin:"+dirA, lookup)
	e := ch.Resolve("cd")
	c.Assert(e.Kind, qt.Equals, cache.KindBuiltin)

	ch.ChangePath(dirB + ":%builtin:" + dirA)
	e = ch.Resolve("cd")
	c.Assert(e.Kind, qt.Equals, cache.KindExternal)
	c.Assert(e.Path, qt.Equals, filepath.Join(dirB, "cd"))
}

func TestBuiltinLoc(t *testing.T) {
	c := qt.New(t)
	dir := c.Mkdir()
	writeExecutable(c, dir, "cd")

	lookup := func(name string) (int, bool) {
		if name == "cd" {
			return 0, true
		}
		return 0, false
	}

	// %builtin before dir: cd resolves to the builtin, not the file.
	ch := cache.New("%builtin:"+dir, lookup)
	e := ch.Resolve("cd")
	c.Assert(e.Kind, qt.Equals, cache.KindBuiltin)
}

func TestInstallAndUnsetFunction(t *testing.T) {
	c := qt.New(t)
	ch := cache.New("", noBuiltins)
	ch.InstallFunction("greet", "body-placeholder")

	e := ch.Resolve("greet")
	c.Assert(e.Kind, qt.Equals, cache.KindFunction)
	c.Assert(e.Func, qt.Equals, "body-placeholder")

	ch.UnsetFunction("greet")
	e = ch.Resolve("greet")
	c.Assert(e.Kind, qt.Equals, cache.KindUnknown)
}

func TestHashCDInvalidatesExternalEntries(t *testing.T) {
	c := qt.New(t)
	dir := c.Mkdir()
	writeExecutable(c, dir, "tool")

	ch := cache.New(dir, noBuiltins)
	e := ch.Resolve("tool")
	c.Assert(e.Kind, qt.Equals, cache.KindExternal)

	ch.HashCD()
	// still resolvable (the file hasn't moved); HashCD only marks for
	// re-walk, it doesn't itself invalidate resolution outcomes.
	e = ch.Resolve("tool")
	c.Assert(e.Kind, qt.Equals, cache.KindExternal)
}

func TestUnknownStaysUnknownUntilRehash(t *testing.T) {
	c := qt.New(t)
	dir := c.Mkdir()

	ch := cache.New(dir, noBuiltins)
	e := ch.Resolve("nope")
	c.Assert(e.Kind, qt.Equals, cache.KindUnknown)

	writeExecutable(c, dir, "nope")
	// PATH hasn't changed, so the cached Unknown entry still applies.
	e = ch.Resolve("nope")
	c.Assert(e.Kind, qt.Equals, cache.KindUnknown)

	ch.ChangePath(dir)
	e = ch.Resolve("nope")
	c.Assert(e.Kind, qt.Equals, cache.KindExternal)
}

// TestRehashPicksUpLaterPathEntryAfterRemoval drives spec.md scenario 8
// exactly: PATH=/a:/b, foo exists in both, the first resolution caches
// index 0; foo is then removed from /a, and only an explicit `hash -r`
// (cache.Rehash) makes the next resolution fall through to index 1.
func TestRehashPicksUpLaterPathEntryAfterRemoval(t *testing.T) {
	c := qt.New(t)
	dirA := c.Mkdir()
	dirB := c.Mkdir()
	writeExecutable(c, dirA, "foo")
	writeExecutable(c, dirB, "foo")

	ch := cache.New(dirA+":"+dirB, noBuiltins)
	first := ch.Resolve("foo")
	c.Assert(first.Kind, qt.Equals, cache.KindExternal)
	c.Assert(first.PathIdx, qt.Equals, 0)
	c.Assert(first.Path, qt.Equals, filepath.Join(dirA, "foo"))

	os.Remove(filepath.Join(dirA, "foo"))

	// Without a rehash the stale cached entry still wins.
	stillCached := ch.Resolve("foo")
	c.Assert(stillCached.PathIdx, qt.Equals, 0)

	ch.Rehash()
	second := ch.Resolve("foo")
	c.Assert(second.Kind, qt.Equals, cache.KindExternal)
	c.Assert(second.PathIdx, qt.Equals, 1)
	c.Assert(second.Path, qt.Equals, filepath.Join(dirB, "foo"))
}
