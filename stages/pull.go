package stages

import (
	"sync"

	"github.com/sophia-cli/sop/qstream"
	"github.com/sophia-cli/sop/term"
)

// pullFromPush adapts a push-style producer (run calls emit once per quad,
// in order, and returns when done or on error) into a qstream.Stream, the
// way a synchronous callback-based library is always bridged into sop's
// pull-based stream contract. run executes on its own goroutine; Close
// lets the consumer abandon it early without leaking that goroutine.
func pullFromPush(hdr *term.Header, run func(emit func(term.Quad) error) error) qstream.Stream {
	results := make(chan qstream.Result, 16)
	stop := make(chan struct{})
	var closeOnce sync.Once

	go func() {
		defer close(results)
		err := run(func(q term.Quad) error {
			select {
			case results <- qstream.Result{Quad: q}:
				return nil
			case <-stop:
				return errAbandoned
			}
		})
		if err != nil && err != errAbandoned {
			select {
			case results <- qstream.Result{Err: err}:
			case <-stop:
			}
		}
	}()

	return &qstream.Func{
		Hdr: hdr,
		NextFn: func() qstream.Result {
			r, ok := <-results
			if !ok {
				return qstream.Result{Eof: true}
			}
			if r.Err == nil && hdr != nil && r.Quad.Generalized() {
				hdr.MarkGeneralized()
			}
			return r
		},
		CloseFn: func() error {
			closeOnce.Do(func() { close(stop) })
			return nil
		},
	}
}

// errAbandoned signals a push producer to stop early because the consumer
// closed the stream; it never reaches the consumer as a Result.
var errAbandoned = errAbandonedType{}

type errAbandonedType struct{}

func (errAbandonedType) Error() string { return "stream closed by consumer" }
