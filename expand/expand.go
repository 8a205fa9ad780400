// Package expand is the word/redirect expansion collaborator (§6,
// "consumed"): turning an ast.Word into the argv strings and redirect
// targets the evaluator acts on. It implements the minimal real subset
// spec.md's scenarios exercise: parameter substitution with the ":-"
// default operator, command substitution via a caller-supplied runner
// hook, and IFS field splitting — modeled on mvdan-sh/expand's Config
// and Environ shapes, reduced to what this core actually needs.
package expand

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nimble-norg/nash/ast"
)

// Environ is the read-only variable view expansion needs; vars.Store
// satisfies it via the small adapter in interp.
type Environ interface {
	Get(name string) (value string, set bool)
}

// CmdRunner invokes a command-substitution body and returns its
// captured, trailing-newline-stripped stdout. interp supplies this by
// closing over a subshell Runner and process.CaptureOutput.
type CmdRunner func(body ast.Node) (string, error)

// Config bundles the collaborators a single expansion pass needs.
type Config struct {
	Env Environ
	IFS string // defaults to " \t\n" when empty
	Run CmdRunner
	// NoUnset mirrors ash's `-u`: referencing a variable that has never
	// been set (not merely empty) is an error instead of expanding to
	// the empty string, unless a Default operand covers it.
	NoUnset bool
}

func (c *Config) ifs() string {
	if c.IFS == "" {
		return " \t\n"
	}
	return c.IFS
}

// Literal expands a Word to a single string with no field splitting,
// the rule for assignment right-hand sides, case patterns, and
// here-doc delimiters.
func Literal(cfg *Config, w ast.Word) (string, error) {
	var b strings.Builder
	for _, part := range w.Parts {
		s, err := expandPart(cfg, part)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// Fields expands a Word into the (possibly several) argv fields it
// produces after IFS splitting, the rule for simple-command arguments.
// A Word with no parameter or command-substitution parts never splits,
// matching the "splitting only applies to expansion results" rule.
func Fields(cfg *Config, w ast.Word) ([]string, error) {
	var b strings.Builder
	splittable := false
	for _, part := range w.Parts {
		s, err := expandPart(cfg, part)
		if err != nil {
			return nil, err
		}
		if _, lit := part.(ast.Lit); !lit {
			splittable = true
		}
		b.WriteString(s)
	}
	joined := b.String()
	if !splittable {
		if joined == "" {
			return nil, nil
		}
		return []string{joined}, nil
	}
	return splitFields(joined, cfg.ifs()), nil
}

// FieldsList expands and concatenates the field lists of several words
// in order, the rule for a simple command's whole argv tail.
func FieldsList(cfg *Config, ws []ast.Word) ([]string, error) {
	var out []string
	for _, w := range ws {
		fs, err := Fields(cfg, w)
		if err != nil {
			return nil, err
		}
		out = append(out, fs...)
	}
	return out, nil
}

func expandPart(cfg *Config, part ast.WordPart) (string, error) {
	switch p := part.(type) {
	case ast.Lit:
		return string(p), nil
	case *ast.Param:
		v, ok := cfg.Env.Get(p.Name)
		if ok && v != "" {
			return v, nil
		}
		if p.Default != nil {
			return Literal(cfg, *p.Default)
		}
		if !ok && cfg.NoUnset {
			return "", fmt.Errorf("%s: unbound variable", p.Name)
		}
		return "", nil
	case *ast.CmdSubst:
		if cfg.Run == nil {
			return "", nil
		}
		out, err := cfg.Run(p.Body)
		if err != nil {
			return "", err
		}
		return strings.TrimRight(out, "\n"), nil
	case *ast.Arith:
		n, err := evalArith(cfg, p.Expr)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(n), nil
	default:
		return "", nil
	}
}

func splitFields(s, ifs string) []string {
	var fields []string
	var cur strings.Builder
	inField := false
	for _, r := range s {
		if strings.ContainsRune(ifs, r) {
			if inField {
				fields = append(fields, cur.String())
				cur.Reset()
				inField = false
			}
			continue
		}
		cur.WriteRune(r)
		inField = true
	}
	if inField {
		fields = append(fields, cur.String())
	}
	return fields
}
