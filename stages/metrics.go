package stages

import "github.com/sophia-cli/sop/stage"

// observe records n quads crossing name's boundary in direction ("in" or
// "out"), a no-op when no metrics.Registry was wired in at startup.
func observe(deps stage.Deps, name, direction string, n int) {
	if deps.Metrics != nil && n > 0 {
		deps.Metrics.ObserveQuads(name, direction, n)
	}
}
