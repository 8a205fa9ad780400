// Package parser is the supplemental front-end named in SPEC_FULL.md's
// Domain Stack section: spec.md treats the parser as wholly external,
// so this is not part of the specified core, but a small harness parser
// built only so cmd/nash and the integration tests have real script
// text to drive the evaluator with. It is intentionally not a
// POSIX-conformant parser; it covers sequences, &&/||, pipelines,
// if/while/until/for/case, function definitions, simple commands with
// assignments and redirections, background, and subshells — modeled on
// the recursive-descent, one-token-lookahead shape of
// mvdan-sh/syntax.Parser, without its extent.
package parser

import (
	"fmt"

	"github.com/nimble-norg/nash/ast"
)

// Parse parses a complete script into a single ast.Node.
func Parse(src string) (ast.Node, error) {
	p := &parser{lex: newLexer(src)}
	p.advance()
	n, err := p.parseList()
	if err != nil {
		return nil, err
	}
	p.skipTerminators()
	if p.tok.kind != tokEOF {
		return nil, fmt.Errorf("parser: unexpected token %q", p.tok.val)
	}
	return n, nil
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() { p.tok = p.lex.next() }

func (p *parser) skipTerminators() {
	for p.tok.kind == tokSemi || p.tok.kind == tokNewline {
		p.advance()
	}
}

// parseList handles top-level and compound-body sequencing: `;`-
// and newline-separated, `&`-suffixed for background.
func (p *parser) parseList() (ast.Node, error) {
	p.skipTerminators()
	if p.atListEnd() {
		return nil, nil
	}
	left, err := p.parseAndOr()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok.kind {
		case tokAmp:
			p.advance()
			left = &ast.Background{Body: left}
			p.skipTerminators()
			if p.atListEnd() {
				return left, nil
			}
		case tokSemi, tokNewline:
			p.skipTerminators()
			if p.atListEnd() {
				return left, nil
			}
			right, err := p.parseAndOr()
			if err != nil {
				return nil, err
			}
			left = &ast.Seq{A: left, B: right}
			continue
		default:
			return left, nil
		}
	}
}

func (p *parser) atListEnd() bool {
	switch p.tok.kind {
	case tokEOF, tokThen, tokElse, tokElif, tokFi, tokDo, tokDone, tokEsac, tokRParen, tokRBrace:
		return true
	default:
		return false
	}
}

func (p *parser) parseAndOr() (ast.Node, error) {
	left, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok.kind {
		case tokAndIf:
			p.advance()
			p.skipTerminators()
			right, err := p.parsePipe()
			if err != nil {
				return nil, err
			}
			left = &ast.And{A: left, B: right}
		case tokOrIf:
			p.advance()
			p.skipTerminators()
			right, err := p.parsePipe()
			if err != nil {
				return nil, err
			}
			left = &ast.Or{A: left, B: right}
		default:
			return left, nil
		}
	}
}

func (p *parser) parsePipe() (ast.Node, error) {
	negate := false
	if p.tok.kind == tokBang {
		negate = true
		p.advance()
	}
	first, err := p.parseCompound()
	if err != nil {
		return nil, err
	}
	stages := []ast.Node{first}
	for p.tok.kind == tokPipe {
		p.advance()
		p.skipTerminators()
		next, err := p.parseCompound()
		if err != nil {
			return nil, err
		}
		stages = append(stages, next)
	}
	if len(stages) == 1 && !negate {
		return first, nil
	}
	return &ast.Pipe{Stages: stages, Negate: negate}, nil
}

func (p *parser) parseCompound() (ast.Node, error) {
	switch p.tok.kind {
	case tokIf:
		return p.parseIf()
	case tokWhile:
		return p.parseWhileUntil(false)
	case tokUntil:
		return p.parseWhileUntil(true)
	case tokFor:
		return p.parseFor()
	case tokCase:
		return p.parseCase()
	case tokLParen:
		p.advance()
		body, err := p.parseList()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRParen {
			return nil, fmt.Errorf("parser: expected ')'")
		}
		p.advance()
		return p.maybeRedir(&ast.Subshell{Body: body})
	case tokLBrace:
		p.advance()
		body, err := p.parseList()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRBrace {
			return nil, fmt.Errorf("parser: expected '}'")
		}
		p.advance()
		return p.maybeRedir(body)
	default:
		return p.parseSimpleOrFunc()
	}
}

func (p *parser) parseIf() (ast.Node, error) {
	p.advance()
	cond, err := p.parseList()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokThen {
		return nil, fmt.Errorf("parser: expected 'then'")
	}
	p.advance()
	then, err := p.parseList()
	if err != nil {
		return nil, err
	}
	var elseNode ast.Node
	switch p.tok.kind {
	case tokElif:
		elseNode, err = p.parseIf()
		if err != nil {
			return nil, err
		}
		return &ast.If{Cond: cond, Then: then, Else: elseNode}, nil
	case tokElse:
		p.advance()
		elseNode, err = p.parseList()
		if err != nil {
			return nil, err
		}
	}
	if p.tok.kind != tokFi {
		return nil, fmt.Errorf("parser: expected 'fi'")
	}
	p.advance()
	return &ast.If{Cond: cond, Then: then, Else: elseNode}, nil
}

func (p *parser) parseWhileUntil(until bool) (ast.Node, error) {
	p.advance()
	cond, err := p.parseList()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokDo {
		return nil, fmt.Errorf("parser: expected 'do'")
	}
	p.advance()
	body, err := p.parseList()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokDone {
		return nil, fmt.Errorf("parser: expected 'done'")
	}
	p.advance()
	if until {
		return &ast.Until{Cond: cond, Body: body}, nil
	}
	return &ast.While{Cond: cond, Body: body}, nil
}

func (p *parser) parseFor() (ast.Node, error) {
	p.advance()
	if p.tok.kind != tokWord {
		return nil, fmt.Errorf("parser: expected name after 'for'")
	}
	name := p.tok.val
	p.advance()
	p.skipTerminators()

	var words []ast.Word
	if p.tok.kind == tokIn {
		p.advance()
		for p.tok.kind == tokWord {
			w, err := p.buildWord(p.tok.raw)
			if err != nil {
				return nil, err
			}
			words = append(words, w)
			p.advance()
		}
	}
	p.skipTerminators()
	if p.tok.kind != tokDo {
		return nil, fmt.Errorf("parser: expected 'do'")
	}
	p.advance()
	body, err := p.parseList()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokDone {
		return nil, fmt.Errorf("parser: expected 'done'")
	}
	p.advance()
	return &ast.For{Name: name, Words: words, Body: body}, nil
}

func (p *parser) parseCase() (ast.Node, error) {
	p.advance()
	if p.tok.kind != tokWord {
		return nil, fmt.Errorf("parser: expected word after 'case'")
	}
	subject, err := p.buildWord(p.tok.raw)
	if err != nil {
		return nil, err
	}
	p.advance()
	p.skipTerminators()
	if p.tok.kind != tokIn {
		return nil, fmt.Errorf("parser: expected 'in'")
	}
	p.advance()
	p.skipTerminators()

	var items []ast.CaseItem
	for p.tok.kind != tokEsac {
		var pats []ast.Word
		for {
			if p.tok.kind != tokWord {
				return nil, fmt.Errorf("parser: expected case pattern")
			}
			pat, err := p.buildWord(p.tok.raw)
			if err != nil {
				return nil, err
			}
			pats = append(pats, pat)
			p.advance()
			if p.tok.kind == tokPipe {
				p.advance()
				continue
			}
			break
		}
		if p.tok.kind != tokRParen {
			return nil, fmt.Errorf("parser: expected ')' in case pattern")
		}
		p.advance()
		p.skipTerminators()
		body, err := p.parseList()
		if err != nil {
			return nil, err
		}
		items = append(items, ast.CaseItem{Patterns: pats, Body: body})
		if p.tok.kind == tokDSemi {
			p.advance()
			p.skipTerminators()
		}
	}
	p.advance()
	return &ast.Case{Word: subject, Items: items}, nil
}

func (p *parser) maybeRedir(body ast.Node) (ast.Node, error) {
	redirs, err := p.parseRedirs()
	if err != nil {
		return nil, err
	}
	if len(redirs) == 0 {
		return body, nil
	}
	return &ast.Redir{Body: body, Redirs: redirs}, nil
}

func (p *parser) parseRedirs() ([]ast.Redirect, error) {
	var out []ast.Redirect
	for {
		var op ast.RedirOp
		switch p.tok.kind {
		case tokLess:
			op = ast.RedirInput
		case tokGreat:
			op = ast.RedirOutput
		case tokDGreat:
			op = ast.RedirAppend
		case tokDLess:
			op = ast.RedirHeredoc
		default:
			return out, nil
		}
		p.advance()
		if p.tok.kind != tokWord {
			return nil, fmt.Errorf("parser: expected word after redirection operator")
		}
		arg, err := p.buildWord(p.tok.raw)
		if err != nil {
			return nil, err
		}
		out = append(out, ast.Redirect{
			FD:  -1,
			Op:  op,
			Arg: arg,
		})
		p.advance()
	}
}

// parseSimpleOrFunc parses either `name() { ... }` or an ordinary
// simple command with leading assignments and trailing redirections.
func (p *parser) parseSimpleOrFunc() (ast.Node, error) {
	if p.tok.kind == tokWord && p.lex.peekIsFuncParen() {
		name := p.tok.val
		p.advance() // name
		p.advance() // (
		p.advance() // )
		p.skipTerminators()
		if p.tok.kind != tokLBrace {
			return nil, fmt.Errorf("parser: expected '{' in function definition")
		}
		p.advance()
		body, err := p.parseList()
		if err != nil {
			return nil, err
		}
		if p.tok.kind != tokRBrace {
			return nil, fmt.Errorf("parser: expected '}'")
		}
		p.advance()
		return &ast.Defun{Name: name, Body: body}, nil
	}

	var assigns []ast.Assign
	var args []ast.Word
	var redirs []ast.Redirect

	for {
		switch p.tok.kind {
		case tokAssign:
			if len(args) > 0 {
				w, err := p.buildWord(p.tok.raw)
				if err != nil {
					return nil, err
				}
				args = append(args, w)
				p.advance()
				continue
			}
			name, rawVal := splitAssignRaw(p.tok.raw)
			val, err := p.buildWord(rawVal)
			if err != nil {
				return nil, err
			}
			assigns = append(assigns, ast.Assign{Name: name, Value: val})
			p.advance()
			continue
		case tokWord:
			w, err := p.buildWord(p.tok.raw)
			if err != nil {
				return nil, err
			}
			args = append(args, w)
			p.advance()
			continue
		case tokLess, tokGreat, tokDGreat, tokDLess:
			rs, err := p.parseRedirs()
			if err != nil {
				return nil, err
			}
			redirs = append(redirs, rs...)
			continue
		}
		break
	}

	if len(args) == 0 && len(assigns) == 0 {
		return nil, fmt.Errorf("parser: unexpected token %q", p.tok.val)
	}
	return &ast.Cmd{Assigns: assigns, Args: args, Redirs: redirs}, nil
}

// splitAssignRaw splits a raw NAME=value token at its first '=', scanned
// byte-for-byte rather than quote-aware: an assignment's name never
// legitimately contains a quote before the real '=', matching the same
// simplification isAssignLike already makes on the unquoted form.
func splitAssignRaw(raw string) (name, rawVal string) {
	for i := 0; i < len(raw); i++ {
		if raw[i] == '=' {
			return raw[:i], raw[i+1:]
		}
	}
	return raw, ""
}
