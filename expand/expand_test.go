package expand_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/nimble-norg/nash/ast"
	"github.com/nimble-norg/nash/expand"
)

type mapEnviron map[string]string

func (m mapEnviron) Get(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

func word(parts ...ast.WordPart) ast.Word { return ast.Word{Parts: parts} }

func TestLiteralParamDefault(t *testing.T) {
	c := qt.New(t)
	cfg := &expand.Config{Env: mapEnviron{}}

	w := word(&ast.Param{Name: "MISSING", Default: &ast.Word{Parts: []ast.WordPart{ast.Lit("fallback")}}})
	got, err := expand.Literal(cfg, w)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "fallback")
}

func TestLiteralParamSet(t *testing.T) {
	c := qt.New(t)
	cfg := &expand.Config{Env: mapEnviron{"NAME": "world"}}

	w := word(ast.Lit("hello, "), &ast.Param{Name: "NAME"})
	got, err := expand.Literal(cfg, w)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "hello, world")
}

func TestFieldsSplitsExpansionResult(t *testing.T) {
	c := qt.New(t)
	cfg := &expand.Config{Env: mapEnviron{"LIST": "a b  c"}}

	w := word(&ast.Param{Name: "LIST"})
	got, err := expand.Fields(cfg, w)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []string{"a", "b", "c"})
}

func TestFieldsLiteralWordNeverSplits(t *testing.T) {
	c := qt.New(t)
	cfg := &expand.Config{Env: mapEnviron{}}

	w := word(ast.Lit("a b c"))
	got, err := expand.Fields(cfg, w)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []string{"a b c"})
}

func TestCmdSubstTrimsTrailingNewlines(t *testing.T) {
	c := qt.New(t)
	cfg := &expand.Config{
		Env: mapEnviron{},
		Run: func(body ast.Node) (string, error) { return "output\n\n", nil },
	}
	w := word(&ast.CmdSubst{})
	got, err := expand.Literal(cfg, w)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "output")
}

func TestArithBasicOperatorsAndPrecedence(t *testing.T) {
	c := qt.New(t)
	cfg := &expand.Config{Env: mapEnviron{}}

	w := word(&ast.Arith{Expr: "2+3*4"})
	got, err := expand.Literal(cfg, w)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "14")
}

func TestArithParensOverridePrecedence(t *testing.T) {
	c := qt.New(t)
	cfg := &expand.Config{Env: mapEnviron{}}

	w := word(&ast.Arith{Expr: "(2+3)*4"})
	got, err := expand.Literal(cfg, w)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "20")
}

func TestArithUnaryMinus(t *testing.T) {
	c := qt.New(t)
	cfg := &expand.Config{Env: mapEnviron{}}

	w := word(&ast.Arith{Expr: "-5+2"})
	got, err := expand.Literal(cfg, w)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "-3")
}

func TestArithResolvesVariables(t *testing.T) {
	c := qt.New(t)
	cfg := &expand.Config{Env: mapEnviron{"i": "4"}}

	w := word(&ast.Arith{Expr: "i+1"})
	got, err := expand.Literal(cfg, w)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "5")
}

func TestArithUnsetVariableIsZero(t *testing.T) {
	c := qt.New(t)
	cfg := &expand.Config{Env: mapEnviron{}}

	w := word(&ast.Arith{Expr: "missing+1"})
	got, err := expand.Literal(cfg, w)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "1")
}

func TestArithDivisionByZeroErrors(t *testing.T) {
	c := qt.New(t)
	cfg := &expand.Config{Env: mapEnviron{}}

	w := word(&ast.Arith{Expr: "1/0"})
	_, err := expand.Literal(cfg, w)
	c.Assert(err, qt.ErrorMatches, ".*division by zero.*")
}

func TestArithModulo(t *testing.T) {
	c := qt.New(t)
	cfg := &expand.Config{Env: mapEnviron{}}

	w := word(&ast.Arith{Expr: "7%3"})
	got, err := expand.Literal(cfg, w)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "1")
}
