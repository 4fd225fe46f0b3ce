// Package stages is the concrete library of stage implementations: parse,
// serialize, filter, map, merge, query, relativize, absolutize,
// canonicalize, null, and dispatch. Each file registers its stage with
// package stage in an init().
package stages

import (
	"github.com/sophia-cli/sop/errs"
	"github.com/sophia-cli/sop/expr"
	"github.com/sophia-cli/sop/qstream"
	"github.com/sophia-cli/sop/stage"
)

func init() {
	stage.Register(&stage.Entry{
		Canonical: "filter",
		Aliases:   []string{"f"},
		Role:      stage.RoleTransformer,
		Schema:    stage.Schema{MinPositionals: 1, MaxPositionals: 1},
		New:       newFilter,
	})
}

func newFilter(spec stage.Spec, deps stage.Deps) (stage.Instance, error) {
	if len(spec.Positional) != 1 {
		return stage.Instance{}, errs.Usagef("filter", "expects exactly one expression, got %d", len(spec.Positional))
	}
	predicate, err := expr.Compile(spec.Positional[0])
	if err != nil {
		return stage.Instance{}, errs.New(errs.KindExpression, "filter", err)
	}
	return stage.Instance{
		Role: stage.RoleTransformer,
		Transform: func(upstream qstream.Stream) (qstream.Stream, error) {
			return &qstream.Func{
				Hdr: upstream.Header(),
				NextFn: func() qstream.Result {
					for {
						r := upstream.Next()
						if r.Err != nil || r.Eof {
							return r
						}
						kept, err := expr.EBV(expr.Eval(predicate, r.Quad))
						if err != nil || !kept {
							// Three-valued: an error and an unbound result
							// both reject the quad, same as a
							// plain false — neither aborts the stage.
							continue
						}
						observe(deps, "filter", "out", 1)
						return r
					}
				},
				CloseFn: upstream.Close,
			}, nil
		},
	}, nil
}
