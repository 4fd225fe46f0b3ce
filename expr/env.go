package expr

import "github.com/sophia-cli/sop/term"

// Env is the evaluation environment for one quad: the bound variables
// are restricted to ?s, ?p, ?o, ?g; any other variable name evaluates to
// Unbound. The default-graph marker binds ?g to Unbound too, so
// bound(?g) is false for default-graph quads.
type Env struct {
	S, P, O, G term.Term
	GIsDefault bool
}

// NewEnv builds the binding environment for a quad's four positions.
func NewEnv(q term.Quad) *Env {
	return &Env{
		S:          q.Subject,
		P:          q.Predicate,
		O:          q.Object,
		G:          q.Graph,
		GIsDefault: term.IsDefaultGraph(q.Graph),
	}
}

func (e *Env) lookup(name string) Result {
	switch name {
	case "s":
		return Bound(e.S)
	case "p":
		return Bound(e.P)
	case "o":
		return Bound(e.O)
	case "g":
		if e.GIsDefault {
			return Unbound()
		}
		return Bound(e.G)
	default:
		return Unbound()
	}
}

// Eval compiles-and-evaluates convenience used by filter/map: evaluate e
// in the environment bound to quad q. An unbound result surfacing at the
// top level is reported as an ErrUnbound error, as SPARQL treats it.
func Eval(e Expr, q term.Quad) Result {
	r := e.eval(NewEnv(q))
	if r.IsUnbound() {
		name := ""
		if v, ok := e.(*VarRef); ok {
			name = v.Name
		}
		return TypeError(ErrUnbound{Name: name})
	}
	return r
}

func (l *Literal) eval(*Env) Result    { return Bound(l.Term) }
func (v *VarRef) eval(env *Env) Result { return env.lookup(v.Name) }
