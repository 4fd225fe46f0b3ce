package stages

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	rdfgo "github.com/geoknoesis/rdf-go/rdf"

	"github.com/sophia-cli/sop/errs"
	"github.com/sophia-cli/sop/format"
	"github.com/sophia-cli/sop/qstream"
	"github.com/sophia-cli/sop/stage"
	"github.com/sophia-cli/sop/term"
)

func init() {
	stage.Register(&stage.Entry{
		Canonical: "dispatch",
		Aliases:   []string{"d", "di", "dis"},
		Role:      stage.RoleTransformer,
		Schema: stage.Schema{
			Flags: []stage.FlagSchema{
				{Long: "destination", Short: "d", Arity: stage.AritySingle},
				{Long: "overwrite", Short: "o", Arity: stage.AritySwitch},
				{Long: "format", Short: "f", Arity: stage.AritySingle},
				{Long: "relativize", Short: "r", Arity: stage.AritySwitch},
			},
			MinPositionals: 1,
			MaxPositionals: 1,
		},
		New: newDispatch,
	})
}

// newDispatch splits a dataset by named graph against a root IRI, writing
// each matching graph out to its own file and passing every other quad
// through unchanged.
func newDispatch(spec stage.Spec, deps stage.Deps) (stage.Instance, error) {
	root := spec.Positional[0]
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	destination, hasDestination := spec.Option("destination")
	if !hasDestination {
		destination = "."
	}
	explicitFormat, _ := spec.Option("format")
	overwrite := spec.Switch("overwrite")
	relativize := spec.Switch("relativize")

	return stage.Instance{
		Role: stage.RoleTransformer,
		Transform: func(upstream qstream.Stream) (qstream.Stream, error) {
			hdr := upstream.Header()
			quads, err := qstream.Collect(upstream)
			if err != nil {
				return nil, err
			}
			observe(deps, "dispatch", "in", len(quads))

			groups := map[string][]term.Quad{}
			graphIRIs := map[string]string{}
			var passthrough []term.Quad
			for _, q := range quads {
				graphIRI, path, ok := dispatchPath(q.Graph, root)
				if !ok {
					passthrough = append(passthrough, q)
					continue
				}
				groups[path] = append(groups[path], stripGraph(q))
				graphIRIs[path] = graphIRI
			}

			paths := make([]string, 0, len(groups))
			for p := range groups {
				paths = append(paths, p)
			}
			sort.Strings(paths)

			for _, path := range paths {
				if err := dispatchOne(destination, path, graphIRIs[path], groups[path], explicitFormat, relativize, overwrite); err != nil {
					if deps.Logger != nil {
						deps.Logger.Error("dispatch: cannot write graph", "path", path, "error", err)
					}
				}
			}

			observe(deps, "dispatch", "out", len(passthrough))
			return qstream.FromSlice(hdr, passthrough), nil
		},
	}, nil
}

// dispatchPath reports the destination-relative path for a quad's graph,
// and whether that graph falls under root at all.
func dispatchPath(graph term.Term, root string) (graphIRI string, path string, ok bool) {
	iri, isIRI := graph.(term.IRI)
	if !isIRI {
		return "", "", false
	}
	path, ok = pathUnderRoot(iri.Value, root)
	return iri.Value, path, ok
}

func pathUnderRoot(graphIRI, root string) (string, bool) {
	if !strings.HasPrefix(graphIRI, root) {
		return "", false
	}
	return graphIRI[len(root):], true
}

func stripGraph(q term.Quad) term.Quad {
	return term.Quad{Subject: q.Subject, Predicate: q.Predicate, Object: q.Object, Graph: term.DefaultGraph{}}
}

func dispatchOne(destination, path, graphIRI string, quads []term.Quad, explicitFormat string, relativize, overwrite bool) error {
	if relativize {
		base, err := url.Parse(graphIRI)
		if err != nil {
			return fmt.Errorf("parse graph IRI %q: %w", graphIRI, err)
		}
		for i, q := range quads {
			quads[i] = mapQuadIRIs(q, func(iri term.IRI) term.IRI {
				if rel, ok := relativizeIRI(base, iri.Value); ok {
					return term.IRI{Value: rel}
				}
				return iri
			})
		}
	}

	dest := filepath.Join(destination, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", dest, err)
	}

	var f *os.File
	if overwrite {
		var err error
		f, err = os.Create(dest)
		if err != nil {
			return fmt.Errorf("create %s: %w", dest, err)
		}
	} else {
		var err error
		f, err = os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if os.IsExist(err) {
				return fmt.Errorf("%s already exists, skipping (pass --overwrite to replace)", dest)
			}
			return fmt.Errorf("create %s: %w", dest, err)
		}
	}
	defer f.Close()

	fm := resolveDispatchFormat(path, explicitFormat)
	rdfFmt, ok := fm.RDFGo()
	if !ok {
		return errs.New(errs.KindSerialize, "dispatch", fmt.Errorf("format %s has no writer implementation", fm))
	}
	writer, err := rdfgo.NewWriter(f, rdfFmt)
	if err != nil {
		return err
	}
	for _, q := range quads {
		stmt, err := toRDFGoStatement(q)
		if err != nil {
			return err
		}
		if err := writer.Write(stmt); err != nil {
			return err
		}
	}
	return writer.Flush()
}

// resolveDispatchFormat uses a different order for this one stage
// (extension first, then --format, then N-Triples, never an error), the
// reverse of the ordinary --format-first resolution: a dispatched
// path's extension is sop's own choice (derived from the graph IRI), so
// it is trusted over a single blanket --format covering every dispatched
// file.
func resolveDispatchFormat(path, explicitFormat string) format.Format {
	if f, ok := format.FromExtension(filepath.Ext(path)); ok {
		return f
	}
	if explicitFormat != "" {
		if f, ok := format.Lookup(explicitFormat); ok {
			return f
		}
	}
	return format.NTriples
}
