package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sophia-cli/sop/term"
)

// Compile parses a SPARQL-subset expression string into an Expr tree,
// ready for repeated evaluation. Compile errors are ExpressionError:
// they are reported once, at stage construction, not per quad.
func Compile(src string) (Expr, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, fmt.Errorf("expression %q: %w", src, err)
	}
	p := &parser{toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("expression %q: %w", src, err)
	}
	if p.cur().kind != tokEOF {
		return nil, fmt.Errorf("expression %q: unexpected trailing input at token %d", src, p.pos)
	}
	return e, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokenKind) (token, error) {
	if p.cur().kind != k {
		return token{}, fmt.Errorf("unexpected token %q at position %d", p.cur().text, p.pos)
	}
	return p.advance(), nil
}

// parseOr -> parseAnd ("||" parseAnd)*
func (p *parser) parseOr() (Expr, error) {
	l, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokOp && p.cur().text == "||" {
		p.advance()
		r, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l = &Binary{Op: "||", L: l, R: r}
	}
	return l, nil
}

// parseAnd -> parseCompare ("&&" parseCompare)*
func (p *parser) parseAnd() (Expr, error) {
	l, err := p.parseCompare()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokOp && p.cur().text == "&&" {
		p.advance()
		r, err := p.parseCompare()
		if err != nil {
			return nil, err
		}
		l = &Binary{Op: "&&", L: l, R: r}
	}
	return l, nil
}

var compareOps = map[string]bool{"=": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

// parseCompare -> parseAdditive (COMPARE_OP parseAdditive)?
func (p *parser) parseCompare() (Expr, error) {
	l, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.cur().kind == tokOp && compareOps[p.cur().text] {
		op := p.advance().text
		r, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &Binary{Op: op, L: l, R: r}, nil
	}
	return l, nil
}

// parseAdditive -> parseMultiplicative (("+"|"-") parseMultiplicative)*
func (p *parser) parseAdditive() (Expr, error) {
	l, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokOp && (p.cur().text == "+" || p.cur().text == "-") {
		op := p.advance().text
		r, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		l = &Binary{Op: op, L: l, R: r}
	}
	return l, nil
}

// parseMultiplicative -> parseUnary (("*"|"/") parseUnary)*
func (p *parser) parseMultiplicative() (Expr, error) {
	l, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokOp && (p.cur().text == "*" || p.cur().text == "/") {
		op := p.advance().text
		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l = &Binary{Op: op, L: l, R: r}
	}
	return l, nil
}

// parseUnary -> ("!"|"-") parseUnary | parsePrimary
func (p *parser) parseUnary() (Expr, error) {
	if p.cur().kind == tokOp && (p.cur().text == "!" || p.cur().text == "-") {
		op := p.advance().text
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, X: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.cur()
	switch t.kind {
	case tokLParen:
		p.advance()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return e, nil
	case tokNumber:
		p.advance()
		return &Literal{Term: numberLiteral(t.text)}, nil
	case tokString:
		p.advance()
		return &Literal{Term: stringLiteral(t.text)}, nil
	case tokBool:
		p.advance()
		return &Literal{Term: boolTerm(t.text == "true")}, nil
	case tokVar:
		p.advance()
		return &VarRef{Name: t.text}, nil
	case tokIRI:
		p.advance()
		return &Literal{Term: term.IRI{Value: t.text}}, nil
	case tokIdent:
		return p.parseCall()
	default:
		return nil, fmt.Errorf("unexpected token %q", t.text)
	}
}

func (p *parser) parseCall() (Expr, error) {
	name := p.advance().text
	if _, err := p.expect(tokLParen); err != nil {
		return nil, fmt.Errorf("expected '(' after function name %q", name)
	}
	var args []Expr
	if p.cur().kind != tokRParen {
		for {
			a, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.cur().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, fmt.Errorf("expected ')' closing call to %q", name)
	}
	return &Call{Name: name, Args: args}, nil
}

func numberLiteral(text string) term.Term {
	dt := "http://www.w3.org/2001/XMLSchema#integer"
	switch {
	case strings.ContainsAny(text, "eE"):
		dt = "http://www.w3.org/2001/XMLSchema#double"
	case strings.Contains(text, "."):
		dt = "http://www.w3.org/2001/XMLSchema#decimal"
	}
	if dt != "http://www.w3.org/2001/XMLSchema#integer" {
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			text = strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return term.Literal{Lexical: text, Datatype: dt}
}

func stringLiteral(encoded string) term.Term {
	if idx := strings.Index(encoded, "\x00lang\x00"); idx >= 0 {
		return term.Literal{Lexical: encoded[:idx], Lang: encoded[idx+len("\x00lang\x00"):]}
	}
	if idx := strings.Index(encoded, "\x00dtype\x00"); idx >= 0 {
		return term.Literal{Lexical: encoded[:idx], Datatype: encoded[idx+len("\x00dtype\x00"):]}
	}
	return term.Literal{Lexical: encoded}
}
