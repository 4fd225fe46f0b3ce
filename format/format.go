// Package format resolves a concrete RDF syntax from a CLI override, an
// HTTP Content-Type, or a file extension, and bridges the result to
// github.com/geoknoesis/rdf-go's own Format type, the library
// `parse`/`serialize` use to actually read and write bytes.
//
// The alias table recognizes a wider set of syntax names (generalized
// variants, HDT, YAML-LD) than rdf-go implements; aliases that rdf-go
// cannot back are still recognized here (so `--format` never rejects a
// documented name) but fail with a clear error at the point they would
// actually be used to read or write bytes.
package format

import (
	"strings"

	rdfgo "github.com/geoknoesis/rdf-go/rdf"

	"github.com/sophia-cli/sop/errs"
)

// Format identifies a concrete RDF/Linked-Data syntax.
type Format int

const (
	Turtle Format = iota
	TriG
	NTriples
	NQuads
	RDFXML
	JSONLD
	GeneralizedNQuads
	GeneralizedTriG
	HDT
	YAMLLD
)

func (f Format) String() string {
	switch f {
	case Turtle:
		return "turtle"
	case TriG:
		return "trig"
	case NTriples:
		return "ntriples"
	case NQuads:
		return "nquads"
	case RDFXML:
		return "rdfxml"
	case JSONLD:
		return "jsonld"
	case GeneralizedNQuads:
		return "generalized-nquads"
	case GeneralizedTriG:
		return "generalized-trig"
	case HDT:
		return "hdt"
	case YAMLLD:
		return "yamlld"
	default:
		return "unknown"
	}
}

// aliases maps every recognized spelling (already lower-cased) to its
// Format, case-insensitive matching being the one normalization applied
// before lookup.
var aliases = map[string]Format{
	"generalized-nquads": GeneralizedNQuads, "generalized-n-quads": GeneralizedNQuads,
	"gnquads": GeneralizedNQuads, "gn-quads": GeneralizedNQuads, "gnq": GeneralizedNQuads,

	"generalized-trig": GeneralizedTriG, "gtrig": GeneralizedTriG, "text/rdf+n3": GeneralizedTriG,

	"application/ld+json": JSONLD, "json-ld": JSONLD, "jsonld": JSONLD,
	"application/json": JSONLD, "json": JSONLD,

	"application/ld+yaml": YAMLLD, "yaml-ld": YAMLLD, "yamlld": YAMLLD, "ymlld": YAMLLD,
	"application/yaml": YAMLLD, "yaml": YAMLLD, "yml": YAMLLD,

	"application/n-quads": NQuads, "n-quads": NQuads, "nquads": NQuads, "nq": NQuads,

	"application/n-triples": NTriples, "n-triples": NTriples, "ntriples": NTriples,
	"nt": NTriples, "text/plain": NTriples,

	"application/rdf+xml": RDFXML, "rdf": RDFXML, "rdf/xml": RDFXML, "rdfxml": RDFXML,
	"application/xml": RDFXML, "xml": RDFXML,

	"application/trig": TriG, "trig": TriG,

	"application/vnd.hdt": HDT, "hdt": HDT,

	"text/turtle": Turtle, "turtle": Turtle, "ttl": Turtle, "application/turtle": Turtle,
}

// extensions maps a (lower-cased, dot-stripped) file extension to its
// default Format, consulted only after --format and Content-Type have
// both come up empty.
var extensions = map[string]Format{
	"ttl":   Turtle,
	"trig":  TriG,
	"nt":    NTriples,
	"nq":    NQuads,
	"rdf":   RDFXML,
	"xml":   RDFXML,
	"jsonld": JSONLD,
	"json":  JSONLD,
	"yamlld": YAMLLD,
	"yaml":  YAMLLD,
	"yml":   YAMLLD,
	"hdt":   HDT,
}

// Lookup resolves an alias (case-insensitive) to a Format.
func Lookup(alias string) (Format, bool) {
	f, ok := aliases[strings.ToLower(strings.TrimSpace(alias))]
	return f, ok
}

// RegisterAlias adds extra (alias -> canonical format name) spellings to
// the lookup table, canonical being one of the names Format.String()
// returns. Used to apply config's FormatAliases at startup; returns an
// error for an unrecognized canonical name so a typo in a config file
// fails at load time rather than silently never matching.
func RegisterAlias(alias, canonical string) error {
	for f := Turtle; f <= YAMLLD; f++ {
		if f.String() == strings.ToLower(strings.TrimSpace(canonical)) {
			aliases[strings.ToLower(strings.TrimSpace(alias))] = f
			return nil
		}
	}
	return errs.Usagef("format", "unrecognized canonical format %q for alias %q", canonical, alias)
}

// FromExtension resolves a bare file extension (with or without a leading
// dot) to its default Format.
func FromExtension(ext string) (Format, bool) {
	f, ok := extensions[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return f, ok
}

// Resolve implements the format resolution order: explicit --format, then
// HTTP Content-Type, then file extension, then error. Any of explicit,
// contentType, or ext may be empty to skip that step.
func Resolve(explicit, contentType, ext string) (Format, error) {
	if explicit != "" {
		f, ok := Lookup(explicit)
		if !ok {
			return 0, errs.Usagef("format", "unrecognized --format %q", explicit)
		}
		return f, nil
	}
	if contentType != "" {
		// A Content-Type header may carry parameters ("; charset=...");
		// only the media type itself is looked up.
		media, _, _ := strings.Cut(contentType, ";")
		if f, ok := Lookup(strings.TrimSpace(media)); ok {
			return f, nil
		}
	}
	if ext != "" {
		if f, ok := FromExtension(ext); ok {
			return f, nil
		}
	}
	return 0, errs.Usagef("format", "cannot determine format: no --format given, Content-Type %q and extension %q unrecognized", contentType, ext)
}

// RDFGo maps f to the rdf-go library's own Format, when rdf-go has a
// reader/writer for it. Generalized N-Quads/TriG ride on rdf-go's ordinary
// N-Quads/TriG codec (rdf-go has no separate generalized mode; the
// generalized flag is tracked alongside the stream by sop itself, not by
// the underlying library), ok is false for HDT and YAML-LD, which rdf-go
// does not implement.
func (f Format) RDFGo() (rdfgo.Format, bool) {
	switch f {
	case Turtle:
		return rdfgo.FormatTurtle, true
	case TriG, GeneralizedTriG:
		return rdfgo.FormatTriG, true
	case NTriples:
		return rdfgo.FormatNTriples, true
	case NQuads, GeneralizedNQuads:
		return rdfgo.FormatNQuads, true
	case RDFXML:
		return rdfgo.FormatRDFXML, true
	case JSONLD:
		return rdfgo.FormatJSONLD, true
	default:
		return "", false
	}
}

// CanRepresentMultiGraph reports whether f's grammar can name a graph
// other than the default graph.
func (f Format) CanRepresentMultiGraph() bool {
	switch f {
	case TriG, NQuads, GeneralizedTriG, GeneralizedNQuads, JSONLD:
		return true
	default:
		return false
	}
}

// CanRepresentGeneralized reports whether f's grammar allows terms outside
// the standard RDF position restrictions.
func (f Format) CanRepresentGeneralized() bool {
	return f == GeneralizedNQuads || f == GeneralizedTriG
}
