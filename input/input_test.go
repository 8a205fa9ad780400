package input_test

import (
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/nimble-norg/nash/input"
)

func readAll(c *qt.C, s *input.Stack) string {
	var sb strings.Builder
	for {
		b, err := s.Getc()
		if err != nil {
			c.Assert(err, qt.Equals, input.ErrEOF)
			return sb.String()
		}
		sb.WriteByte(b)
	}
}

func TestEmptyStackIsImmediateEOF(t *testing.T) {
	c := qt.New(t)
	s := input.New()
	_, err := s.Getc()
	c.Assert(err, qt.Equals, input.ErrEOF)
}

func TestPushStringReadsBackVerbatim(t *testing.T) {
	c := qt.New(t)
	s := input.New()
	s.PushString("echo hi\n")
	c.Assert(readAll(c, s), qt.Equals, "echo hi\n")
}

func TestNulBytesAreElided(t *testing.T) {
	c := qt.New(t)
	s := input.New()
	s.PushString("a\x00b\x00c")
	c.Assert(readAll(c, s), qt.Equals, "abc")
}

func TestPopFallsBackToOuterFrame(t *testing.T) {
	c := qt.New(t)
	s := input.New()
	s.PushString("outer")
	s.PushString("inner")
	b, err := s.Getc()
	c.Assert(err, qt.IsNil)
	c.Assert(b, qt.Equals, byte('i'))
	s.Pop()
	c.Assert(readAll(c, s), qt.Equals, "outer")
}

func TestUngetcReplaysTheSameByte(t *testing.T) {
	c := qt.New(t)
	s := input.New()
	s.PushString("ab")
	b, err := s.Getc()
	c.Assert(err, qt.IsNil)
	c.Assert(b, qt.Equals, byte('a'))
	s.Ungetc(b)
	c.Assert(readAll(c, s), qt.Equals, "ab")
}

func TestPushBackStringSplicesAheadOfRemainingInput(t *testing.T) {
	c := qt.New(t)
	s := input.New()
	s.PushString("world")
	s.PushBackString("hello ")
	c.Assert(readAll(c, s), qt.Equals, "hello world")
}

func TestPushFileReader(t *testing.T) {
	c := qt.New(t)
	s := input.New()
	s.PushFile(strings.NewReader("from a reader\n"))
	c.Assert(readAll(c, s), qt.Equals, "from a reader\n")
	c.Assert(s.IsTTY(), qt.IsFalse)
}

func TestLineTracksNewlines(t *testing.T) {
	c := qt.New(t)
	s := input.New()
	s.PushString("a\nb\nc")
	c.Assert(s.Line(), qt.Equals, 1)
	for i := 0; i < 2; i++ {
		_, err := s.Getc()
		c.Assert(err, qt.IsNil)
	}
	c.Assert(s.Line(), qt.Equals, 2)
}

func TestEmptyReportsStackExhaustion(t *testing.T) {
	c := qt.New(t)
	s := input.New()
	c.Assert(s.Empty(), qt.IsTrue)
	s.PushString("x")
	c.Assert(s.Empty(), qt.IsFalse)
}
