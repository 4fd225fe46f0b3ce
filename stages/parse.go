package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	rdfgo "github.com/geoknoesis/rdf-go/rdf"

	"github.com/sophia-cli/sop/cli"
	"github.com/sophia-cli/sop/errs"
	"github.com/sophia-cli/sop/format"
	"github.com/sophia-cli/sop/qstream"
	"github.com/sophia-cli/sop/stage"
	"github.com/sophia-cli/sop/term"
)

func init() {
	stage.Register(&stage.Entry{
		Canonical: "parse",
		Aliases:   []string{"p"},
		Role:      stage.RoleProducer,
		Schema: stage.Schema{
			Flags: []stage.FlagSchema{
				{Long: "format", Short: "f", Arity: stage.AritySingle},
				{Long: "base", Arity: stage.AritySingle},
				{Long: "m", Short: "m", Arity: stage.AritySentinel, Terminator: "m-"},
			},
			MaxPositionals: -1,
		},
		New: newParse,
	})
}

var urlPattern = regexp.MustCompile(`^https?://`)

// source is one already-resolved input to parse: a readable byte stream,
// a location string for error reporting and as the default base IRI, and
// any HTTP Content-Type observed on open (only a URL source ever sets it).
type source struct {
	open     func() (io.ReadCloser, string, error)
	location string
}

func newParse(spec stage.Spec, deps stage.Deps) (stage.Instance, error) {
	explicitFormat, _ := spec.Option("format")
	baseOverride, _ := spec.Option("base")

	sources, err := resolveSources(spec)
	if err != nil {
		return stage.Instance{}, err
	}

	hdr := term.NewHeader(baseOverride)

	return stage.Instance{
		Role: stage.RoleProducer,
		Producer: func() (qstream.Stream, error) {
			return pullFromPush(hdr, func(emit func(term.Quad) error) error {
				for _, src := range sources {
					counted := func(q term.Quad) error {
						observe(deps, "parse", "out", 1)
						return emit(q)
					}
					if err := parseOneSource(src, explicitFormat, baseOverride, deps, counted); err != nil {
						return errs.ParseErr(src.location, 0, err)
					}
				}
				return nil
			}), nil
		},
	}, nil
}

// resolveSources turns a parsed stage's positionals and `-m` glob patterns
// into an ordered source list: bare positionals first (file path or http(s)
// URL, in the order given), then every `-m` pattern's matches (expanded
// by cli.ExpandGlobs one pattern after another), or a single stdin source
// when neither is present.
func resolveSources(spec stage.Spec) ([]source, error) {
	var out []source
	for _, p := range spec.Positional {
		out = append(out, sourceFor(p))
	}
	if globs := spec.OptionValues("m"); len(globs) > 0 {
		paths, err := cli.ExpandGlobs(globs)
		if err != nil {
			return nil, errs.Usage("parse", err)
		}
		for _, p := range paths {
			out = append(out, sourceFor(p))
		}
	}
	if len(out) == 0 {
		out = append(out, source{
			open:     func() (io.ReadCloser, string, error) { return io.NopCloser(os.Stdin), "", nil },
			location: "<stdin>",
		})
	}
	return out, nil
}

func sourceFor(location string) source {
	if urlPattern.MatchString(location) {
		return source{
			location: location,
			open: func() (io.ReadCloser, string, error) {
				resp, err := http.Get(location)
				if err != nil {
					return nil, "", err
				}
				if resp.StatusCode >= 400 {
					resp.Body.Close()
					return nil, "", fmt.Errorf("fetching %s: HTTP %d", location, resp.StatusCode)
				}
				return resp.Body, resp.Header.Get("Content-Type"), nil
			},
		}
	}
	return source{
		location: location,
		open: func() (io.ReadCloser, string, error) {
			f, err := os.Open(location)
			if err != nil {
				return nil, "", err
			}
			return f, "", nil
		},
	}
}

func parseOneSource(src source, explicitFormat, baseOverride string, deps stage.Deps, emit func(term.Quad) error) error {
	r, contentType, err := src.open()
	if err != nil {
		return err
	}
	defer r.Close()

	fm, err := format.Resolve(explicitFormat, contentType, filepath.Ext(src.location))
	if err != nil {
		return err
	}

	base := baseOverride
	if base == "" {
		base = src.location
	}

	if fm == format.JSONLD {
		return parseJSONLD(r, base, deps, emit)
	}

	rdfFmt, ok := fm.RDFGo()
	if !ok {
		return fmt.Errorf("format %s has no reader implementation", fm)
	}
	return rdfgo.Parse(context.Background(), r, rdfFmt, func(stmt rdfgo.Statement) error {
		return emit(fromRDFGoStatement(stmt))
	})
}

// parseJSONLD routes through rdf-go's dedicated JSON-LD quad API instead
// of the generic Reader, because only that entry point accepts a
// DocumentLoader — the hook the local-then-remote context loader
// composition needs to reach JSON-LD's @context resolution.
func parseJSONLD(r io.Reader, base string, deps stage.Deps, emit func(term.Quad) error) error {
	opts := rdfgo.JSONLDOptions{BaseIRI: base}
	if deps.JSONLD != nil {
		opts.DocumentLoader = contextLoaderAdapter{deps.JSONLD}
	}

	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return err
	}

	quads, err := rdfgo.NewJSONLDProcessor().ToRDF(context.Background(), doc, opts)
	if err != nil {
		return err
	}
	for _, q := range quads {
		if err := emit(fromRDFGoStatement(rdfgo.Statement{S: q.S, P: q.P, O: q.O, G: q.G})); err != nil {
			return err
		}
	}
	return nil
}

// contextLoaderAdapter bridges stage.ContextLoader (load context bytes
// by IRI) to rdf-go's DocumentLoader (load and JSON-decode a whole
// remote document, context or otherwise).
type contextLoaderAdapter struct {
	loader stage.ContextLoader
}

func (a contextLoaderAdapter) LoadDocument(ctx context.Context, iri string) (rdfgo.RemoteDocument, error) {
	body, err := a.loader.Load(iri)
	if err != nil {
		return rdfgo.RemoteDocument{}, err
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return rdfgo.RemoteDocument{}, fmt.Errorf("decode JSON-LD document %s: %w", iri, err)
	}
	return rdfgo.RemoteDocument{DocumentURL: iri, Document: doc}, nil
}
