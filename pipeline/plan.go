// Package pipeline typechecks a sequence of stage specs into an
// executable Plan and runs it.
//
// The validation rules mirror a fixed subcommand split — a source stage
// that may only appear first, and a sink enum for everything else —
// generalized to sop's richer role lattice (producer / transformer / sink
// / sink-or-transformer) since Go's stage registry is a runtime table, not
// a compile-time enum.
package pipeline

import (
	"fmt"

	"github.com/sophia-cli/sop/errs"
	"github.com/sophia-cli/sop/qstream"
	"github.com/sophia-cli/sop/stage"
	"github.com/sophia-cli/sop/term"
)

// Plan is the validated, instantiated, linear stage chain ready to run.
type Plan struct {
	Entries   []*stage.Entry
	Instances []stage.Instance
	deps      stage.Deps
}

// Compile validates specs against entries and constructs each
// stage instance. When the chain ends in a transformer rather than a
// sink, Run appends an implicit default serializer at execution time (the
// format decision needs to observe the first quad, see defaultSerialize).
func Compile(specs []stage.Spec, entries []*stage.Entry, deps stage.Deps) (*Plan, error) {
	if len(specs) != len(entries) {
		return nil, errs.Usagef("compile", "stage specs and entries length mismatch")
	}
	if len(specs) == 0 {
		return nil, errs.Usagef("compile", "empty pipeline")
	}
	if entries[0].Role != stage.RoleProducer {
		return nil, errs.Usagef("compile", "stage %q must be the first stage in a pipeline (it is not a producer)", entries[0].Canonical)
	}
	for i := 1; i < len(entries)-1; i++ {
		role := entries[i].Role
		if role != stage.RoleTransformer && role != stage.RoleSinkOrTransformer {
			return nil, errs.Usagef("compile", "stage %q (role %s) cannot appear in the middle of a pipeline", entries[i].Canonical, role)
		}
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Role == stage.RoleProducer {
			return nil, errs.Usagef("compile", "stage %q is a producer and cannot appear after the first stage", entries[i].Canonical)
		}
	}

	instances := make([]stage.Instance, len(specs))
	for i := range specs {
		inst, err := entries[i].New(specs[i], deps)
		if err != nil {
			return nil, fmt.Errorf("construct stage %q: %w", entries[i].Canonical, err)
		}
		if i < len(specs)-1 && inst.Role == stage.RoleSink {
			return nil, errs.Usagef("compile", "stage %q resolved to a sink but is not the last stage", entries[i].Canonical)
		}
		instances[i] = inst
	}
	return &Plan{Entries: entries, Instances: instances, deps: deps}, nil
}

// Run executes the plan: the producer's stream is threaded through each
// transformer in order, strict FIFO, single-threaded cooperative
// streaming, and the terminal stage either drains as a sink or, if it
// resolved to a transformer, has an implicit default serializer appended
// and drained.
func (p *Plan) Run() error {
	if len(p.Instances) == 0 {
		return errs.Usagef("run", "empty plan")
	}
	producer := p.Instances[0]
	stream, err := producer.Producer()
	if err != nil {
		return fmt.Errorf("start producer %q: %w", p.Entries[0].Canonical, err)
	}
	defer stream.Close()

	last := len(p.Instances) - 1
	for i := 1; i <= last; i++ {
		inst := p.Instances[i]
		switch inst.Role {
		case stage.RoleSink:
			if i != last {
				return errs.Usagef("run", "stage %q resolved to a sink mid-pipeline", p.Entries[i].Canonical)
			}
			return inst.Sink(stream)
		case stage.RoleTransformer, stage.RoleSinkOrTransformer:
			if inst.Transform == nil {
				return errs.Usagef("run", "stage %q has no transform implementation", p.Entries[i].Canonical)
			}
			stream, err = inst.Transform(stream)
			if err != nil {
				return fmt.Errorf("wrap stage %q: %w", p.Entries[i].Canonical, err)
			}
		default:
			return errs.Usagef("run", "stage %q has an unexpected role %s mid-pipeline", p.Entries[i].Canonical, inst.Role)
		}
	}
	// The chain ended in a transformer (or a single bare producer): append
	// the implicit default serializer and drain it.
	return defaultSerialize(stream, p.deps)
}

// defaultSerialize appends the implicit terminator the compiler owes a
// pipeline whose last stage is a transformer: format = N-Quads
// if the stream may be generalized or carries a non-default graph on its
// first quad, Turtle otherwise. The choice is made from the first
// observed quad, since the header's generalized flag and any quad's
// graph are only knowable once the producer has emitted something.
func defaultSerialize(stream qstream.Stream, deps stage.Deps) error {
	first, replay := qstream.Peek(stream)
	format := "turtle"
	if replay.Header() != nil && replay.Header().Generalized {
		format = "nq"
	} else if first.Err == nil && !first.Eof && !term.IsDefaultGraph(first.Quad.Graph) {
		format = "nq"
	}

	entry, ok := stage.Lookup("serialize")
	if !ok {
		return errs.Usagef("run", "no serialize stage registered for the implicit default terminator")
	}
	inst, err := entry.New(stage.Spec{
		Kind:    "serialize",
		Options: map[string][]string{"format": {format}},
	}, deps)
	if err != nil {
		return fmt.Errorf("construct implicit serializer: %w", err)
	}
	out, err := inst.Transform(replay)
	if err != nil {
		return fmt.Errorf("run implicit serializer: %w", err)
	}
	return qstream.Drain(out)
}
