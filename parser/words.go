package parser

import (
	"fmt"
	"strings"

	"github.com/nimble-norg/nash/ast"
)

// buildWord turns one lexer token's raw text into an ast.Word, resolving
// $name/${name}/${name:-default}/$(...)/$((...)) against quote context:
// single-quoted spans stay literal, double-quoted and bare spans carry
// live expansions through, ash's parser.c qflag/varname state machine
// collapsed into a single scan since this front-end has no need to keep
// the quoting decision around past word-building.
func (p *parser) buildWord(raw string) (ast.Word, error) {
	parts, err := parseWordParts(raw)
	if err != nil {
		return ast.Word{}, err
	}
	return ast.Word{Parts: parts}, nil
}

func parseWordParts(raw string) ([]ast.WordPart, error) {
	var parts []ast.WordPart
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, ast.Lit(lit.String()))
			lit.Reset()
		}
	}

	i := 0
	for i < len(raw) {
		c := raw[i]
		switch c {
		case '\'':
			j := strings.IndexByte(raw[i+1:], '\'')
			if j < 0 {
				lit.WriteString(raw[i+1:])
				i = len(raw)
				continue
			}
			lit.WriteString(raw[i+1 : i+1+j])
			i = i + 1 + j + 1
		case '"':
			i++
			for i < len(raw) && raw[i] != '"' {
				if raw[i] == '\\' && i+1 < len(raw) {
					lit.WriteByte(raw[i+1])
					i += 2
					continue
				}
				if raw[i] == '$' {
					flush()
					part, ni, err := scanDollar(raw, i)
					if err != nil {
						return nil, err
					}
					if part != nil {
						parts = append(parts, part)
					}
					i = ni
					continue
				}
				lit.WriteByte(raw[i])
				i++
			}
			if i < len(raw) {
				i++
			}
		case '\\':
			if i+1 < len(raw) {
				lit.WriteByte(raw[i+1])
				i += 2
			} else {
				i++
			}
		case '$':
			flush()
			part, ni, err := scanDollar(raw, i)
			if err != nil {
				return nil, err
			}
			if part != nil {
				parts = append(parts, part)
			}
			i = ni
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()
	return parts, nil
}

// scanDollar parses one $-introduced expansion starting at raw[i] (which
// must be '$') and returns the resulting WordPart (Lit("$") for a bare
// '$' with nothing to expand) plus the index just past it.
func scanDollar(raw string, i int) (ast.WordPart, int, error) {
	if i+1 >= len(raw) {
		return ast.Lit("$"), i + 1, nil
	}
	switch {
	case raw[i+1] == '(':
		end, err := scanBalanced(raw, i+2, '(', ')')
		if err != nil {
			return nil, 0, fmt.Errorf("parser: unterminated command or arithmetic substitution")
		}
		content := raw[i+2 : end-1]
		if strings.HasPrefix(content, "(") && strings.HasSuffix(content, ")") {
			return &ast.Arith{Expr: content[1 : len(content)-1]}, end, nil
		}
		n, err := Parse(content)
		if err != nil {
			return nil, 0, err
		}
		return &ast.CmdSubst{Body: n}, end, nil
	case raw[i+1] == '{':
		end, err := scanBalanced(raw, i+2, '{', '}')
		if err != nil {
			return nil, 0, fmt.Errorf("parser: unterminated parameter expansion")
		}
		return paramFromInner(raw[i+2 : end-1]), end, nil
	case isParamNameStart(raw[i+1]):
		j := i + 1
		for j < len(raw) && isParamNameByte(raw[j]) {
			j++
		}
		return &ast.Param{Name: raw[i+1 : j]}, j, nil
	case isSpecialParam(raw[i+1]):
		return &ast.Param{Name: string(raw[i+1])}, i + 2, nil
	default:
		return ast.Lit("$"), i + 1, nil
	}
}

// scanBalanced scans a balanced open/close span starting at raw[start],
// treating the already-consumed opening delimiter as depth 1, and
// returns the index just past the matching close.
func scanBalanced(raw string, start int, open, close byte) (int, error) {
	depth := 1
	j := start
	for j < len(raw) && depth > 0 {
		switch raw[j] {
		case open:
			depth++
		case close:
			depth--
		}
		j++
	}
	if depth != 0 {
		return 0, fmt.Errorf("parser: unterminated expansion")
	}
	return j, nil
}

// paramFromInner splits "${name}" / "${name:-default}" inner text, the
// one expansion operator this front-end supports beyond bare $name.
func paramFromInner(inner string) *ast.Param {
	if idx := strings.Index(inner, ":-"); idx >= 0 {
		name := inner[:idx]
		def, _ := parseWordParts(inner[idx+2:])
		return &ast.Param{Name: name, Default: &ast.Word{Parts: def}}
	}
	return &ast.Param{Name: inner}
}

func isParamNameStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isParamNameByte(b byte) bool {
	return isParamNameStart(b) || (b >= '0' && b <= '9')
}

// isSpecialParam reports the single-character parameter names this
// front-end recognizes: $?, $#, $@, $* and the single-digit
// positionals $0..$9.
func isSpecialParam(b byte) bool {
	return b == '?' || b == '#' || b == '@' || b == '*' || (b >= '0' && b <= '9')
}
