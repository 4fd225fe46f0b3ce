package expr

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/sophia-cli/sop/term"
)

func (u *Unary) eval(env *Env) Result {
	x := u.X.eval(env)
	switch u.Op {
	case "!":
		b, err := ebv(x)
		if err != nil {
			return TypeError(err)
		}
		return Bound(boolTerm(!b))
	case "-":
		n, err := asNumber(x)
		if err != nil {
			return TypeError(err)
		}
		return Bound(numberTerm(-n.f, n.kind))
	default:
		return TypeError(fmt.Errorf("unknown unary operator %q", u.Op))
	}
}

func (b *Binary) eval(env *Env) Result {
	switch b.Op {
	case "&&":
		l, err := ebv(b.L.eval(env))
		if err != nil || !l {
			if err != nil {
				// a false right-hand side still short-circuits an error left
				if r, rerr := ebv(b.R.eval(env)); rerr == nil && !r {
					return Bound(boolTerm(false))
				}
				return TypeError(err)
			}
			return Bound(boolTerm(false))
		}
		r, err := ebv(b.R.eval(env))
		if err != nil {
			return TypeError(err)
		}
		return Bound(boolTerm(r))
	case "||":
		l, lerr := ebv(b.L.eval(env))
		if lerr == nil && l {
			return Bound(boolTerm(true))
		}
		r, rerr := ebv(b.R.eval(env))
		if rerr == nil && r {
			return Bound(boolTerm(true))
		}
		if lerr != nil {
			return TypeError(lerr)
		}
		if rerr != nil {
			return TypeError(rerr)
		}
		return Bound(boolTerm(false))
	case "=", "!=", "<", "<=", ">", ">=":
		return evalCompare(b.Op, b.L.eval(env), b.R.eval(env))
	case "+", "-", "*", "/":
		return evalArith(b.Op, b.L.eval(env), b.R.eval(env))
	default:
		return TypeError(fmt.Errorf("unknown binary operator %q", b.Op))
	}
}

// EBV computes SPARQL's effective boolean value of an already-evaluated
// Result, exported for callers outside the package (the `filter` stage:
// an error or an unbound variable surfacing at the top level of a filter
// predicate means reject, never a stage-level failure).
func EBV(r Result) (bool, error) { return ebv(r) }

// ebv computes SPARQL's effective boolean value. An error or unbound
// operand is propagated as an error: errors at the top level of a
// filter predicate mean "reject."
func ebv(r Result) (bool, error) {
	if r.IsError() {
		return false, r.Err
	}
	if r.IsUnbound() {
		return false, ErrUnbound{}
	}
	switch t := r.Term.(type) {
	case term.Literal:
		switch t.EffectiveDatatype() {
		case "http://www.w3.org/2001/XMLSchema#boolean":
			return t.Lexical == "true" || t.Lexical == "1", nil
		case "http://www.w3.org/2001/XMLSchema#integer",
			"http://www.w3.org/2001/XMLSchema#decimal",
			"http://www.w3.org/2001/XMLSchema#double":
			f, err := strconv.ParseFloat(t.Lexical, 64)
			if err != nil {
				return false, fmt.Errorf("not numeric: %q", t.Lexical)
			}
			return f != 0, nil
		case term.XSDString, term.LangString:
			return t.Lexical != "", nil
		default:
			return false, fmt.Errorf("no effective boolean value for datatype %s", t.Datatype)
		}
	default:
		return false, errors.New("no effective boolean value for non-literal term")
	}
}

func boolTerm(b bool) term.Term {
	lex := "false"
	if b {
		lex = "true"
	}
	return term.Literal{Lexical: lex, Datatype: "http://www.w3.org/2001/XMLSchema#boolean"}
}

type numKind int

const (
	numInteger numKind = iota
	numDecimal
	numDouble
)

type number struct {
	f    float64
	kind numKind
}

// asNumber extracts a numeric value, applying SPARQL's integer -> decimal
// -> double promotion ladder.
func asNumber(r Result) (number, error) {
	if r.IsError() {
		return number{}, r.Err
	}
	if r.IsUnbound() {
		return number{}, ErrUnbound{}
	}
	lit, ok := r.Term.(term.Literal)
	if !ok {
		return number{}, errors.New("not a numeric literal")
	}
	f, err := strconv.ParseFloat(lit.Lexical, 64)
	if err != nil {
		return number{}, fmt.Errorf("not numeric: %q", lit.Lexical)
	}
	switch lit.EffectiveDatatype() {
	case "http://www.w3.org/2001/XMLSchema#integer":
		return number{f: f, kind: numInteger}, nil
	case "http://www.w3.org/2001/XMLSchema#decimal":
		return number{f: f, kind: numDecimal}, nil
	case "http://www.w3.org/2001/XMLSchema#double":
		return number{f: f, kind: numDouble}, nil
	default:
		return number{}, fmt.Errorf("not a numeric datatype: %s", lit.Datatype)
	}
}

func promote(a, b numKind) numKind {
	if a > b {
		return a
	}
	return b
}

func numberTerm(f float64, kind numKind) term.Term {
	var dt, lex string
	switch kind {
	case numInteger:
		dt = "http://www.w3.org/2001/XMLSchema#integer"
		lex = strconv.FormatInt(int64(f), 10)
	case numDecimal:
		dt = "http://www.w3.org/2001/XMLSchema#decimal"
		lex = strconv.FormatFloat(f, 'f', -1, 64)
	default:
		dt = "http://www.w3.org/2001/XMLSchema#double"
		lex = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return term.Literal{Lexical: lex, Datatype: dt}
}

func evalArith(op string, lr, rr Result) Result {
	l, err := asNumber(lr)
	if err != nil {
		return TypeError(err)
	}
	r, err := asNumber(rr)
	if err != nil {
		return TypeError(err)
	}
	kind := promote(l.kind, r.kind)
	var f float64
	switch op {
	case "+":
		f = l.f + r.f
	case "-":
		f = l.f - r.f
	case "*":
		f = l.f * r.f
	case "/":
		if r.f == 0 {
			return TypeError(errors.New("division by zero"))
		}
		f = l.f / r.f
		if kind == numInteger {
			kind = numDecimal // SPARQL: integer / integer is a decimal
		}
	}
	return Bound(numberTerm(f, kind))
}

// evalCompare implements SPARQL ordering: IRIs < blank nodes < literals;
// numeric literals compare by value across numeric datatypes, other
// literals by (effective) datatype then lexical form. When two terms
// cannot be ordered, "=" yields false and "!=" true instead of an error.
func evalCompare(op string, lr, rr Result) Result {
	if lr.IsError() {
		return TypeError(lr.Err)
	}
	if rr.IsError() {
		return TypeError(rr.Err)
	}
	if lr.IsUnbound() || rr.IsUnbound() {
		return TypeError(ErrUnbound{})
	}
	c, err := compareTerms(lr.Term, rr.Term)
	if err != nil {
		if op == "=" {
			return Bound(boolTerm(false))
		}
		if op == "!=" {
			return Bound(boolTerm(true))
		}
		return TypeError(err)
	}
	var b bool
	switch op {
	case "=":
		b = c == 0
	case "!=":
		b = c != 0
	case "<":
		b = c < 0
	case "<=":
		b = c <= 0
	case ">":
		b = c > 0
	case ">=":
		b = c >= 0
	}
	return Bound(boolTerm(b))
}

func rank(t term.Term) int {
	switch t.Kind() {
	case term.KindIRI:
		return 0
	case term.KindBlank:
		return 1
	case term.KindLiteral:
		return 2
	default:
		return 3
	}
}

func compareTerms(a, b term.Term) (int, error) {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb, nil
	}
	switch ra {
	case 0:
		av, bv := a.(term.IRI).Value, b.(term.IRI).Value
		return stringCompare(av, bv), nil
	case 1:
		av, bv := a.(term.Blank).Local, b.(term.Blank).Local
		return stringCompare(av, bv), nil
	case 2:
		return compareLiterals(a.(term.Literal), b.(term.Literal))
	default:
		return 0, errors.New("terms of this kind are not ordered")
	}
}

func compareLiterals(a, b term.Literal) (int, error) {
	an, aerr := asNumber(Bound(a))
	bn, berr := asNumber(Bound(b))
	if aerr == nil && berr == nil {
		switch {
		case an.f < bn.f:
			return -1, nil
		case an.f > bn.f:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if a.EffectiveDatatype() != b.EffectiveDatatype() {
		return stringCompare(a.EffectiveDatatype(), b.EffectiveDatatype()), nil
	}
	return stringCompare(a.Lexical, b.Lexical), nil
}

func stringCompare(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
