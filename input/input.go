// Package input implements the Input Stack (C5): a stack of file,
// string, and here-doc sources feeding the parser a byte at a time,
// ported from _examples/original_source/input.c's parsefile linked
// stack (pushfile/popfile/preadbuffer/ppushback), excluding its
// input_readline/tab_completion/history machinery, which spec.md names
// as out of scope (interactive line editing is a Non-goal, §1).
package input

import (
	"errors"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrEOF is returned by Getc when every frame on the stack is exhausted,
// ash's PEOF sentinel.
var ErrEOF = errors.New("input: end of file")

// frame is one source on the stack, ash's struct parsefile.
type frame struct {
	reader   io.Reader
	buf      []byte
	pos      int
	pushback []byte // outstanding ppushback string, consumed before reader
	isTTY    bool
	lineno   int
}

// Stack is the input source stack; the zero value has no frames and
// Getc immediately reports ErrEOF.
type Stack struct {
	frames []*frame
}

// New returns an empty Stack.
func New() *Stack { return &Stack{} }

// PushFile pushes r as the new top-of-stack source, ash's setinputfile.
// The frame is marked as a tty when r is an *os.File on a terminal;
// no line editor is invoked here.
func (s *Stack) PushFile(r io.Reader) {
	isTTY := false
	if f, ok := r.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	s.frames = append(s.frames, &frame{reader: r, isTTY: isTTY, lineno: 1})
}

// PushString pushes a literal string as a source, ash's setinputstring,
// used for `eval` and here-doc bodies.
func (s *Stack) PushString(text string) {
	s.frames = append(s.frames, &frame{buf: []byte(text), lineno: 1})
}

// Pop discards the top-of-stack source, ash's popfile. Closing any
// underlying *os.File is the caller's responsibility, matching ash
// leaving fd lifetime to its callers (dotcmd closes explicitly).
func (s *Stack) Pop() {
	if len(s.frames) > 0 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

// Empty reports whether the stack has no sources left.
func (s *Stack) Empty() bool { return len(s.frames) == 0 }

// Getc returns the next byte from the top-of-stack source, refilling
// its buffer from the underlying reader as needed and eliding embedded
// NUL bytes the way ash's preadbuffer does (a NUL is never meaningful
// shell input and silently indicates a damaged or binary source).
func (s *Stack) Getc() (byte, error) {
	for {
		if len(s.frames) == 0 {
			return 0, ErrEOF
		}
		top := s.frames[len(s.frames)-1]
		if len(top.pushback) > 0 {
			b := top.pushback[0]
			top.pushback = top.pushback[1:]
			return b, nil
		}
		if top.pos < len(top.buf) {
			b := top.buf[top.pos]
			top.pos++
			if b == 0 {
				continue
			}
			if b == '\n' {
				top.lineno++
			}
			return b, nil
		}
		if top.reader == nil {
			s.Pop()
			continue
		}
		if !s.refill(top) {
			s.Pop()
			continue
		}
	}
}

// refill reads one buffer's worth from top's reader, retrying reads
// that fail with os.ErrDeadlineExceeded. Returns false on EOF or any
// other error.
func (s *Stack) refill(top *frame) bool {
	buf := make([]byte, 4096)
	for {
		n, err := top.reader.Read(buf)
		if n > 0 {
			top.buf = buf[:n]
			top.pos = 0
			return true
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			continue
		}
		return false
	}
}

// Ungetc pushes a single byte back onto the current top-of-stack
// source, ash's pungetc. It is only valid for the byte most recently
// returned by Getc.
func (s *Stack) Ungetc(b byte) {
	if len(s.frames) == 0 {
		return
	}
	top := s.frames[len(s.frames)-1]
	top.pushback = append([]byte{b}, top.pushback...)
}

// PushBackString pushes a whole string back onto the current
// top-of-stack source ahead of whatever it would read next, ash's
// ppushback (used to splice an alias or parameter expansion back into
// the input stream).
func (s *Stack) PushBackString(text string) {
	if len(s.frames) == 0 {
		s.PushString(text)
		return
	}
	top := s.frames[len(s.frames)-1]
	top.pushback = append([]byte(text), top.pushback...)
}

// IsTTY reports whether the current top-of-stack source is an
// interactive terminal, the signal C5's caller uses to decide whether a
// refill should defer to the (externally supplied) line editor instead
// of a plain buffered read.
func (s *Stack) IsTTY() bool {
	if len(s.frames) == 0 {
		return false
	}
	return s.frames[len(s.frames)-1].isTTY
}

// Line reports the current source's line number, used in diagnostics.
func (s *Stack) Line() int {
	if len(s.frames) == 0 {
		return 0
	}
	return s.frames[len(s.frames)-1].lineno
}
