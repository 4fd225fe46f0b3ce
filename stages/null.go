package stages

import (
	"github.com/sophia-cli/sop/qstream"
	"github.com/sophia-cli/sop/stage"
)

func init() {
	stage.Register(&stage.Entry{
		Canonical: "null",
		Aliases:   []string{"Z"},
		Role:      stage.RoleSink,
		New:       newNull,
	})
}

func newNull(spec stage.Spec, deps stage.Deps) (stage.Instance, error) {
	return stage.Instance{
		Role: stage.RoleSink,
		Sink: func(upstream qstream.Stream) error {
			n := 0
			for {
				r := upstream.Next()
				if r.Err != nil {
					observe(deps, "null", "in", n)
					return r.Err
				}
				if r.Eof {
					observe(deps, "null", "in", n)
					return nil
				}
				n++
			}
		},
	}, nil
}
