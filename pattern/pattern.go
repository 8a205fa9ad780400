// Package pattern implements the non-locale-aware glob matching `case`
// needs: `*`, `?`, and `[...]` classes, translated to a regexp exactly
// the way the teacher's pattern package does it, reduced to the POSIX
// subset (no extended globs, no brace expansion — bash extensions this
// ash-dialect core excludes).
package pattern

import (
	"regexp"
	"strings"
)

// Match reports whether s matches the shell pattern expr in its
// entirety, the semantics `case` needs (first matching pattern wins, no
// partial match).
func Match(expr, s string) (bool, error) {
	re, err := compile(expr)
	if err != nil {
		return false, err
	}
	return re.MatchString(s), nil
}

func compile(expr string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	runes := []rune(expr)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			j := i + 1
			neg := false
			if j < len(runes) && (runes[j] == '!' || runes[j] == '^') {
				neg = true
				j++
			}
			start := j
			for j < len(runes) && runes[j] != ']' {
				j++
			}
			if j >= len(runes) {
				// no closing bracket: literal '['
				b.WriteString(regexp.QuoteMeta("["))
				continue
			}
			class := string(runes[start:j])
			b.WriteString("[")
			if neg {
				b.WriteString("^")
			}
			b.WriteString(regexp.QuoteMeta(class))
			b.WriteString("]")
			i = j
		case '\\':
			if i+1 < len(runes) {
				i++
				b.WriteString(regexp.QuoteMeta(string(runes[i])))
			} else {
				b.WriteString(regexp.QuoteMeta(string(r)))
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
