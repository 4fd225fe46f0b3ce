// Package qstream implements the lazy, single-pass, fallible quad stream
// abstraction that is the contract between every pair of pipeline stages.
//
// The shape generalizes a one-message-in, maybe-one-message-out
// processing pipeline into a pull-based iterator, so that transformers
// never need to materialize an intermediate slice.
package qstream

import (
	"github.com/sophia-cli/sop/term"
)

// Result is what Next returns: either a quad, an error, or end-of-stream.
// After Err != nil or Eof == true, further calls to Next must return Eof.
type Result struct {
	Quad term.Quad
	Err  error
	Eof  bool
}

// Stream is a lazy, single-pass, fallible producer of quads. A stream owns
// its upstream: calling Close releases whatever resources (file handles,
// network connections) the producer end of the chain is holding, and
// cancels the pipeline.
type Stream interface {
	// Next advances the stream by one quad. Implementations must not be
	// called concurrently from multiple goroutines: the execution model is
	// single-threaded cooperative streaming.
	Next() Result

	// Header exposes stream metadata. It is only meaningful to read after
	// the first Next() call has returned: a stage's header is visible to
	// downstream stages only after the first quad (or EOF) has been
	// observed.
	Header() *term.Header

	// Close releases upstream resources. Safe to call more than once.
	Close() error
}

// done is a trivial Stream that always reports EOF; used by sinks to
// represent "nothing more to produce."
type done struct{ h *term.Header }

func (d done) Next() Result       { return Result{Eof: true} }
func (d done) Header() *term.Header { return d.h }
func (d done) Close() error       { return nil }

// Done returns a stream already at EOF, carrying header h.
func Done(h *term.Header) Stream { return done{h: h} }

// FromSlice returns a stream over an in-memory slice of quads, useful for
// tests and for stages that inherently buffer (canonicalize, dispatch).
func FromSlice(h *term.Header, quads []term.Quad) Stream {
	return &sliceStream{h: h, quads: quads}
}

type sliceStream struct {
	h     *term.Header
	quads []term.Quad
	pos   int
	eof   bool
}

func (s *sliceStream) Next() Result {
	if s.eof {
		return Result{Eof: true}
	}
	if s.pos >= len(s.quads) {
		s.eof = true
		return Result{Eof: true}
	}
	q := s.quads[s.pos]
	s.pos++
	return Result{Quad: q}
}

func (s *sliceStream) Header() *term.Header { return s.h }
func (s *sliceStream) Close() error         { s.eof = true; return nil }

// Drain exhausts a stream, discarding quads, and returns the first error
// encountered (if any). Used by sinks such as `null` and by the implicit
// terminator the compiler appends to a bare transformer chain.
func Drain(s Stream) error {
	for {
		r := s.Next()
		if r.Err != nil {
			return r.Err
		}
		if r.Eof {
			return nil
		}
	}
}

// Collect buffers the entire stream into memory. Only stages whose
// algorithm inherently requires the whole dataset (canonicalize, dispatch,
// and the non-streaming query forms) may call this — they must document
// that they hold O(dataset) memory.
func Collect(s Stream) ([]term.Quad, error) {
	var out []term.Quad
	for {
		r := s.Next()
		if r.Err != nil {
			return out, r.Err
		}
		if r.Eof {
			return out, nil
		}
		out = append(out, r.Quad)
	}
}

// Func adapts a plain next-function plus header into a Stream, the
// idiomatic way most transformers in package stages construct their
// output stream: wrap the upstream Stream in a closure and return it
// unboxed.
type Func struct {
	NextFn  func() Result
	Hdr     *term.Header
	CloseFn func() error
}

func (f *Func) Next() Result { return f.NextFn() }
func (f *Func) Header() *term.Header { return f.Hdr }
func (f *Func) Close() error {
	if f.CloseFn != nil {
		return f.CloseFn()
	}
	return nil
}

// Peek consumes s's first Result and returns it alongside a replacement
// stream that yields that same Result on its own first Next() call before
// delegating to s for everything after. Used by the pipeline compiler to
// decide the implicit default serializer's format: the
// header's generalized flag and the first quad's graph are only knowable
// once one quad (or EOF) has actually been observed.
func Peek(s Stream) (Result, Stream) {
	first := s.Next()
	returned := false
	return first, &Func{
		Hdr: s.Header(),
		NextFn: func() Result {
			if !returned {
				returned = true
				return first
			}
			return s.Next()
		},
		CloseFn: s.Close,
	}
}

// ErrorStream returns a one-shot stream that yields err then EOF; used by
// stages that fail before producing anything (e.g. a bad --format flag).
func ErrorStream(h *term.Header, err error) Stream {
	returned := false
	return &Func{
		Hdr: h,
		NextFn: func() Result {
			if returned {
				return Result{Eof: true}
			}
			returned = true
			return Result{Err: err}
		},
	}
}
