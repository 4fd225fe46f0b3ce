package stages

import (
	"github.com/sophia-cli/sop/qstream"
	"github.com/sophia-cli/sop/stage"
	"github.com/sophia-cli/sop/term"
)

func init() {
	stage.Register(&stage.Entry{
		Canonical: "merge",
		Aliases:   []string{"me"},
		Role:      stage.RoleTransformer,
		Schema: stage.Schema{
			Flags: []stage.FlagSchema{{Long: "drop", Arity: stage.AritySwitch}},
		},
		New: newMerge,
	})
}

func newMerge(spec stage.Spec, deps stage.Deps) (stage.Instance, error) {
	drop := spec.Switch("drop")
	return stage.Instance{
		Role: stage.RoleTransformer,
		Transform: func(upstream qstream.Stream) (qstream.Stream, error) {
			// Without --drop, every upstream quad produces two downstream
			// quads (the original, then its default-graph rewrite), so a
			// pending rewrite is buffered across Next calls.
			var pending *term.Quad
			return &qstream.Func{
				Hdr: upstream.Header(),
				NextFn: func() qstream.Result {
					if pending != nil {
						q := *pending
						pending = nil
						observe(deps, "merge", "out", 1)
						return qstream.Result{Quad: q}
					}
					r := upstream.Next()
					if r.Err != nil || r.Eof {
						return r
					}
					rewritten := r.Quad
					rewritten.Graph = term.DefaultGraph{}
					if drop {
						observe(deps, "merge", "out", 1)
						return qstream.Result{Quad: rewritten}
					}
					pending = &rewritten
					observe(deps, "merge", "out", 1)
					return qstream.Result{Quad: r.Quad}
				},
				CloseFn: upstream.Close,
			}, nil
		},
	}, nil
}
