package stages

import (
	"net/url"

	"github.com/sophia-cli/sop/errs"
	"github.com/sophia-cli/sop/qstream"
	"github.com/sophia-cli/sop/stage"
	"github.com/sophia-cli/sop/term"
)

func init() {
	stage.Register(&stage.Entry{
		Canonical: "relativize",
		Aliases:   []string{"r"},
		Role:      stage.RoleTransformer,
		Schema: stage.Schema{
			Flags: []stage.FlagSchema{{Long: "base", Arity: stage.AritySingle}},
		},
		New: newRelativize,
	})
}

func newRelativize(spec stage.Spec, deps stage.Deps) (stage.Instance, error) {
	baseStr, ok := spec.Option("base")
	if !ok {
		return stage.Instance{}, errs.Usagef("relativize", "--base is required")
	}
	base, err := url.Parse(baseStr)
	if err != nil {
		return stage.Instance{}, errs.Usagef("relativize", "invalid --base %q: %v", baseStr, err)
	}
	return stage.Instance{
		Role: stage.RoleTransformer,
		Transform: func(upstream qstream.Stream) (qstream.Stream, error) {
			return &qstream.Func{
				Hdr: upstream.Header(),
				NextFn: func() qstream.Result {
					r := upstream.Next()
					if r.Err != nil || r.Eof {
						return r
					}
					mapped := mapQuadIRIs(r.Quad, func(iri term.IRI) term.IRI {
						if rel, ok := relativizeIRI(base, iri.Value); ok {
							return term.IRI{Value: rel}
						}
						return iri
					})
					observe(deps, "relativize", "out", 1)
					return qstream.Result{Quad: mapped}
				},
				CloseFn: upstream.Close,
			}, nil
		},
	}, nil
}

// mapQuadIRIs applies f to every term.IRI occupying a quad position,
// leaving blank nodes, literals, variables, and the default-graph marker
// untouched.
func mapQuadIRIs(q term.Quad, f func(term.IRI) term.IRI) term.Quad {
	out := q
	if iri, ok := q.Subject.(term.IRI); ok {
		out.Subject = f(iri)
	}
	if iri, ok := q.Predicate.(term.IRI); ok {
		out.Predicate = f(iri)
	}
	if iri, ok := q.Object.(term.IRI); ok {
		out.Object = f(iri)
	}
	if iri, ok := q.Graph.(term.IRI); ok {
		out.Graph = f(iri)
	}
	return out
}
