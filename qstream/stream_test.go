package qstream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sophia-cli/sop/term"
)

func quad(s string) term.Quad {
	return term.Quad{
		Subject:   term.IRI{Value: s},
		Predicate: term.IRI{Value: "http://example.org/p"},
		Object:    term.Literal{Lexical: "x"},
		Graph:     term.DefaultGraph{},
	}
}

func TestFromSliceYieldsInOrderThenEOF(t *testing.T) {
	quads := []term.Quad{quad("a"), quad("b"), quad("c")}
	s := FromSlice(term.NewHeader(""), quads)

	for _, want := range quads {
		r := s.Next()
		require.NoError(t, r.Err)
		require.False(t, r.Eof)
		assert.True(t, want.Equal(r.Quad))
	}
	r := s.Next()
	assert.True(t, r.Eof)
}

func TestDrainStopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	s := &Func{
		Hdr: term.NewHeader(""),
		NextFn: func() Result {
			calls++
			if calls == 2 {
				return Result{Err: boom}
			}
			return Result{Quad: quad("a")}
		},
	}
	err := Drain(s)
	assert.Equal(t, boom, err)
	assert.Equal(t, 2, calls)
}

func TestCollectReturnsAllQuadsOnCleanEOF(t *testing.T) {
	want := []term.Quad{quad("a"), quad("b")}
	s := FromSlice(term.NewHeader(""), want)
	got, err := Collect(s)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range want {
		assert.True(t, want[i].Equal(got[i]))
	}
}

func TestPeekReplaysFirstResultThenDelegates(t *testing.T) {
	want := []term.Quad{quad("a"), quad("b")}
	s := FromSlice(term.NewHeader(""), want)

	first, replacement := Peek(s)
	require.False(t, first.Eof)
	assert.True(t, want[0].Equal(first.Quad))

	r1 := replacement.Next()
	require.False(t, r1.Eof)
	assert.True(t, want[0].Equal(r1.Quad))

	r2 := replacement.Next()
	require.False(t, r2.Eof)
	assert.True(t, want[1].Equal(r2.Quad))

	r3 := replacement.Next()
	assert.True(t, r3.Eof)
}

func TestErrorStreamYieldsErrorThenEOF(t *testing.T) {
	boom := errors.New("boom")
	s := ErrorStream(term.NewHeader(""), boom)

	r1 := s.Next()
	assert.Equal(t, boom, r1.Err)
	assert.False(t, r1.Eof)

	r2 := s.Next()
	assert.True(t, r2.Eof)
	assert.NoError(t, r2.Err)
}

func TestDoneStreamIsImmediatelyAtEOF(t *testing.T) {
	h := term.NewHeader("http://example.org/")
	s := Done(h)
	assert.Same(t, h, s.Header())
	r := s.Next()
	assert.True(t, r.Eof)
	assert.NoError(t, s.Close())
}
