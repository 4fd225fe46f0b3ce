package stages

import (
	"fmt"

	"github.com/sophia-cli/sop/errs"
	"github.com/sophia-cli/sop/expr"
	"github.com/sophia-cli/sop/qstream"
	"github.com/sophia-cli/sop/stage"
	"github.com/sophia-cli/sop/term"
)

func init() {
	stage.Register(&stage.Entry{
		Canonical: "map",
		Aliases:   []string{"ma"},
		Role:      stage.RoleTransformer,
		Schema: stage.Schema{
			Flags: []stage.FlagSchema{
				{Long: "subject", Short: "s", Arity: stage.AritySingle},
				{Long: "predicate", Short: "p", Arity: stage.AritySingle},
				{Long: "object", Short: "o", Arity: stage.AritySingle},
				{Long: "graph", Short: "g", Arity: stage.AritySingle},
			},
		},
		New: newMap,
	})
}

func newMap(spec stage.Spec, deps stage.Deps) (stage.Instance, error) {
	positions := make(map[string]expr.Expr)
	for _, slot := range []string{"s", "p", "o", "g"} {
		src, ok := spec.Option(slotFlag(slot))
		if !ok {
			continue
		}
		compiled, err := expr.Compile(src)
		if err != nil {
			return stage.Instance{}, errs.New(errs.KindExpression, "map", fmt.Errorf("-%s: %w", slot, err))
		}
		positions[slot] = compiled
	}

	return stage.Instance{
		Role: stage.RoleTransformer,
		Transform: func(upstream qstream.Stream) (qstream.Stream, error) {
			hdr := upstream.Header()
			return &qstream.Func{
				Hdr: hdr,
				NextFn: func() qstream.Result {
					r := upstream.Next()
					if r.Err != nil || r.Eof {
						return r
					}
					q := r.Quad
					mapped, err := applyMap(q, positions)
					if err != nil {
						return qstream.Result{Err: errs.New(errs.KindExpression, "map", err)}
					}
					if mapped.Generalized() && hdr != nil {
						hdr.MarkGeneralized()
					}
					observe(deps, "map", "out", 1)
					return qstream.Result{Quad: mapped}
				},
				CloseFn: upstream.Close,
			}, nil
		},
	}, nil
}

func slotFlag(slot string) string {
	switch slot {
	case "s":
		return "subject"
	case "p":
		return "predicate"
	case "o":
		return "object"
	case "g":
		return "graph"
	default:
		return slot
	}
}

// applyMap evaluates each configured position's expression against q's own
// bindings and substitutes the result; an unbound or errored evaluation at
// a configured position is a stage-level failure, unlike
// filter where the same outcome just rejects the quad.
func applyMap(q term.Quad, positions map[string]expr.Expr) (term.Quad, error) {
	out := q
	for slot, e := range positions {
		r := expr.Eval(e, q)
		if r.IsError() {
			return term.Quad{}, fmt.Errorf("-%s: %w", slot, r.Err)
		}
		if r.IsUnbound() {
			return term.Quad{}, fmt.Errorf("-%s: result is unbound", slot)
		}
		switch slot {
		case "s":
			out.Subject = r.Term
		case "p":
			out.Predicate = r.Term
		case "o":
			out.Object = r.Term
		case "g":
			out.Graph = r.Term
		}
	}
	return out, nil
}
