package stages

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	rdfgo "github.com/geoknoesis/rdf-go/rdf"

	"github.com/sophia-cli/sop/errs"
	"github.com/sophia-cli/sop/format"
	"github.com/sophia-cli/sop/qstream"
	"github.com/sophia-cli/sop/stage"
	"github.com/sophia-cli/sop/term"
)

func init() {
	stage.Register(&stage.Entry{
		Canonical: "serialize",
		Aliases:   []string{"s"},
		Role:      stage.RoleTransformer,
		Schema: stage.Schema{
			Flags: []stage.FlagSchema{
				{Long: "format", Short: "f", Arity: stage.AritySingle},
				{Long: "output", Short: "o", Arity: stage.AritySingle},
			},
		},
		New: newSerialize,
	})
}

func newSerialize(spec stage.Spec, deps stage.Deps) (stage.Instance, error) {
	explicitFormat, _ := spec.Option("format")
	outputPath, hasOutput := spec.Option("output")

	return stage.Instance{
		Role: stage.RoleTransformer,
		Transform: func(upstream qstream.Stream) (qstream.Stream, error) {
			var w io.Writer = os.Stdout
			var closer io.Closer
			if hasOutput {
				f, err := os.Create(outputPath)
				if err != nil {
					return nil, errs.New(errs.KindIO, "serialize", err)
				}
				w, closer = f, f
			}

			fm, err := format.Resolve(explicitFormat, "", filepath.Ext(outputPath))
			if err != nil {
				if closer != nil {
					closer.Close()
				}
				return nil, err
			}
			rdfFmt, ok := fm.RDFGo()
			if !ok {
				if closer != nil {
					closer.Close()
				}
				return nil, errs.New(errs.KindSerialize, "serialize", fmt.Errorf("format %s has no writer implementation", fm))
			}
			writer, err := rdfgo.NewWriter(w, rdfFmt)
			if err != nil {
				if closer != nil {
					closer.Close()
				}
				return nil, errs.New(errs.KindSerialize, "serialize", err)
			}

			hdr := upstream.Header()
			warnedMultiGraph := false
			return &qstream.Func{
				Hdr: hdr,
				NextFn: func() qstream.Result {
					r := upstream.Next()
					if r.Err != nil {
						return r
					}
					if r.Eof {
						if err := writer.Flush(); err != nil {
							return qstream.Result{Err: errs.New(errs.KindSerialize, "serialize", err)}
						}
						if closer != nil {
							closer.Close()
						}
						return r
					}
					q := r.Quad
					if !term.IsDefaultGraph(q.Graph) && !fm.CanRepresentMultiGraph() {
						if !warnedMultiGraph {
							fmt.Fprintf(os.Stderr, "serialize: format %s cannot represent named graphs; dropping non-default-graph quads\n", fm)
							warnedMultiGraph = true
						}
						return r // re-emit unwritten
					}
					if q.Generalized() && !fm.CanRepresentGeneralized() {
						return qstream.Result{Err: errs.New(errs.KindSerialize, "serialize",
							fmt.Errorf("format %s cannot represent a generalized quad: %s %s %s %s", fm, q.Subject, q.Predicate, q.Object, q.Graph))}
					}
					stmt, err := toRDFGoStatement(q)
					if err != nil {
						return qstream.Result{Err: errs.New(errs.KindSerialize, "serialize", err)}
					}
					if err := writer.Write(stmt); err != nil {
						return qstream.Result{Err: errs.New(errs.KindSerialize, "serialize", err)}
					}
					observe(deps, "serialize", "in", 1)
					return r
				},
				CloseFn: func() error {
					if closer != nil {
						return closer.Close()
					}
					return nil
				},
			}, nil
		},
	}, nil
}
