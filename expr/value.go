package expr

import "github.com/sophia-cli/sop/term"

// Result is the outcome of evaluating an expression node: a bound term, an
// explicitly unbound variable, or a type error — SPARQL's three-valued
// logic made concrete.
type Result struct {
	Term    term.Term
	Unbound bool
	Err     error
}

// Bound wraps t as a successful Result.
func Bound(t term.Term) Result { return Result{Term: t} }

// IsError reports whether r is a type/runtime error.
func (r Result) IsError() bool { return r.Err != nil }

// IsUnbound reports whether r is the unbound marker.
func (r Result) IsUnbound() bool { return r.Unbound && r.Err == nil }

// ErrUnbound is a sentinel so operators can distinguish "coalesce must
// treat this as an error" from an ordinary evaluation failure; SPARQL
// treats an unbound variable surfacing at top level as an error too.
type ErrUnbound struct{ Name string }

func (e ErrUnbound) Error() string { return "unbound variable ?" + e.Name }

// TypeError reports r as a type error.
func TypeError(err error) Result { return Result{Err: err} }

// Unbound is the unbound-value Result.
func Unbound() Result { return Result{Unbound: true} }
