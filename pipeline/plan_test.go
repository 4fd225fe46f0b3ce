package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sophia-cli/sop/pipeline"
	"github.com/sophia-cli/sop/qstream"
	"github.com/sophia-cli/sop/stage"
	"github.com/sophia-cli/sop/term"
)

func quad(s string) term.Quad {
	return term.Quad{
		Subject:   term.IRI{Value: "urn:" + s},
		Predicate: term.IRI{Value: "urn:p"},
		Object:    term.IRI{Value: "urn:o"},
		Graph:     term.DefaultGraph{},
	}
}

func producerEntry(name string, quads ...term.Quad) *stage.Entry {
	return &stage.Entry{
		Canonical: name,
		Role:      stage.RoleProducer,
		New: func(stage.Spec, stage.Deps) (stage.Instance, error) {
			return stage.Instance{
				Role: stage.RoleProducer,
				Producer: func() (qstream.Stream, error) {
					return qstream.FromSlice(term.NewHeader(""), quads), nil
				},
			}, nil
		},
	}
}

func passthroughEntry(name string) *stage.Entry {
	return &stage.Entry{
		Canonical: name,
		Role:      stage.RoleTransformer,
		New: func(stage.Spec, stage.Deps) (stage.Instance, error) {
			return stage.Instance{
				Role: stage.RoleTransformer,
				Transform: func(upstream qstream.Stream) (qstream.Stream, error) {
					return upstream, nil
				},
			}, nil
		},
	}
}

func sinkEntry(name string, onDrain func([]term.Quad)) *stage.Entry {
	return &stage.Entry{
		Canonical: name,
		Role:      stage.RoleSink,
		New: func(stage.Spec, stage.Deps) (stage.Instance, error) {
			return stage.Instance{
				Role: stage.RoleSink,
				Sink: func(upstream qstream.Stream) error {
					got, err := qstream.Collect(upstream)
					if err != nil {
						return err
					}
					if onDrain != nil {
						onDrain(got)
					}
					return nil
				},
			}, nil
		},
	}
}

func init() {
	// A minimal "serialize" entry standing in for the real implementation,
	// needed because Run's implicit-terminator path looks it up by name.
	stage.Register(&stage.Entry{
		Canonical: "serialize",
		Role:      stage.RoleTransformer,
		New: func(stage.Spec, stage.Deps) (stage.Instance, error) {
			return stage.Instance{
				Role: stage.RoleTransformer,
				Transform: func(upstream qstream.Stream) (qstream.Stream, error) {
					return upstream, nil
				},
			}, nil
		},
	})
}

func TestCompileRejectsEmptyPipeline(t *testing.T) {
	_, err := pipeline.Compile(nil, nil, stage.Deps{})
	assert.Error(t, err)
}

func TestCompileRejectsNonProducerFirst(t *testing.T) {
	entries := []*stage.Entry{passthroughEntry("plantest-pt1")}
	specs := []stage.Spec{{Kind: "plantest-pt1"}}
	_, err := pipeline.Compile(specs, entries, stage.Deps{})
	assert.Error(t, err)
}

func TestCompileRejectsSinkMidPipeline(t *testing.T) {
	sinkMid := sinkEntry("plantest-sinkmid", nil)
	entries := []*stage.Entry{producerEntry("plantest-prod1", quad("a")), sinkMid, passthroughEntry("plantest-pt2")}
	specs := []stage.Spec{{Kind: "plantest-prod1"}, {Kind: "plantest-sinkmid"}, {Kind: "plantest-pt2"}}
	_, err := pipeline.Compile(specs, entries, stage.Deps{})
	assert.Error(t, err)
}

func TestPlanRunDrainsThroughSink(t *testing.T) {
	var collected []term.Quad
	entries := []*stage.Entry{
		producerEntry("plantest-prod2", quad("a"), quad("b")),
		passthroughEntry("plantest-pt3"),
		sinkEntry("plantest-sink2", func(qs []term.Quad) { collected = qs }),
	}
	specs := []stage.Spec{{Kind: "plantest-prod2"}, {Kind: "plantest-pt3"}, {Kind: "plantest-sink2"}}
	plan, err := pipeline.Compile(specs, entries, stage.Deps{})
	require.NoError(t, err)
	require.NoError(t, plan.Run())
	assert.Len(t, collected, 2)
}

func TestPlanRunAppendsImplicitSerializerWhenChainEndsInTransformer(t *testing.T) {
	entries := []*stage.Entry{
		producerEntry("plantest-prod3", quad("a")),
		passthroughEntry("plantest-pt4"),
	}
	specs := []stage.Spec{{Kind: "plantest-prod3"}, {Kind: "plantest-pt4"}}
	plan, err := pipeline.Compile(specs, entries, stage.Deps{})
	require.NoError(t, err)
	assert.NoError(t, plan.Run())
}
