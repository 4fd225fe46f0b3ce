// Package expr implements the SPARQL 1.1 expression subset used by
// `filter`, `map`, and (for ASK predicates) `query`.
//
// An expression string is compiled once, at stage construction, into an
// Expr tree, then evaluated against each quad's binding environment: a
// small expression language compiled once and re-evaluated per quad
// rather than re-parsed on every call.
package expr

import "github.com/sophia-cli/sop/term"

// Expr is a compiled expression node.
type Expr interface {
	eval(env *Env) Result
}

// Literal is a constant term: a number, string, typed/language-tagged
// string, or boolean.
type Literal struct {
	Term term.Term
}

// VarRef is a reference to ?s, ?p, ?o, ?g, or any other variable name
//.
type VarRef struct {
	Name string
}

// Unary is a prefix operator: "!" or "-".
type Unary struct {
	Op string
	X  Expr
}

// Binary is an infix operator.
type Binary struct {
	Op   string
	L, R Expr
}

// Call is a builtin function invocation.
type Call struct {
	Name string
	Args []Expr
}
