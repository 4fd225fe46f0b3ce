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
		Canonical: "absolutize",
		Aliases:   []string{"a"},
		Role:      stage.RoleTransformer,
		Schema: stage.Schema{
			Flags: []stage.FlagSchema{{Long: "base", Arity: stage.AritySingle}},
		},
		New: newAbsolutize,
	})
}

func newAbsolutize(spec stage.Spec, deps stage.Deps) (stage.Instance, error) {
	baseStr, ok := spec.Option("base")
	if !ok {
		return stage.Instance{}, errs.Usagef("absolutize", "--base is required")
	}
	base, err := url.Parse(baseStr)
	if err != nil {
		return stage.Instance{}, errs.Usagef("absolutize", "invalid --base %q: %v", baseStr, err)
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
					var resolveErr error
					mapped := mapQuadIRIs(r.Quad, func(iri term.IRI) term.IRI {
						abs, err := absolutizeIRI(base, iri.Value)
						if err != nil {
							resolveErr = err
							return iri
						}
						return term.IRI{Value: abs}
					})
					if resolveErr != nil {
						return qstream.Result{Err: errs.New(errs.KindParse, "absolutize", resolveErr)}
					}
					observe(deps, "absolutize", "out", 1)
					return qstream.Result{Quad: mapped}
				},
				CloseFn: upstream.Close,
			}, nil
		},
	}, nil
}
