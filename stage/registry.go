// Package stage is the fixed registry of stage kinds:
// canonical names, their aliases, role, option schema, and constructor.
//
// The registry itself knows nothing about quad streams or RDF; it only
// describes shapes. Package stages populates it via Register in its
// own init() functions, one per stage kind.
package stage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sophia-cli/sop/qstream"
)

// Role classifies how a stage participates in a pipeline.
type Role int

const (
	RoleProducer Role = iota
	RoleTransformer
	RoleSink
	RoleSinkOrTransformer
)

func (r Role) String() string {
	switch r {
	case RoleProducer:
		return "producer"
	case RoleTransformer:
		return "transformer"
	case RoleSink:
		return "sink"
	case RoleSinkOrTransformer:
		return "sink-or-transformer"
	default:
		return "unknown"
	}
}

// Arity describes how many argv values a flag consumes.
type Arity int

const (
	// AritySwitch is a boolean flag with no value.
	AritySwitch Arity = iota
	// AritySingle consumes exactly one value.
	AritySingle
	// AritySentinel consumes one or more values up to a mandatory
	// terminator token.
	AritySentinel
)

// FlagSchema describes one flag a stage accepts.
type FlagSchema struct {
	Long       string // e.g. "format"
	Short      string // e.g. "f"; empty if there is no short form
	Arity      Arity
	Terminator string // required, non-empty, when Arity == AritySentinel
}

// Schema is the full option/positional shape of a stage, consulted by
// package cli when parsing a shard of argv.
type Schema struct {
	Flags          []FlagSchema
	MinPositionals int
	MaxPositionals int // -1 means unbounded
}

// Spec is the immutable, parsed representation of one pipeline shard:
// the stage kind it resolved to, its flag values, and its positional
// arguments, in the order they appeared.
type Spec struct {
	Kind       string
	Options    map[string][]string
	Positional []string
}

// Option returns the single value of a single-valued flag, and whether it
// was given at all.
func (s Spec) Option(name string) (string, bool) {
	vs, ok := s.Options[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// OptionValues returns every value collected for a (possibly
// multi-valued/sentinel-terminated) flag.
func (s Spec) OptionValues(name string) []string { return s.Options[name] }

// Switch reports whether a boolean flag was given.
func (s Spec) Switch(name string) bool {
	_, ok := s.Options[name]
	return ok
}

// Deps carries the process-level collaborators a stage constructor may
// need but that the registry itself has no opinion about: logging, a place
// to record metrics, and the JSON-LD context loader composition (spec
// §4.I). Stage implementations depend on these interfaces, not on the
// concrete metrics/jsonld packages, so the registry never needs to import
// them.
type Deps struct {
	Logger  *slog.Logger
	Metrics MetricsRecorder
	JSONLD  ContextLoader

	// QueryEndpoint, when non-empty, is the NATS subject the `query` stage
	// requests against for external SPARQL evaluation. Empty means query
	// falls back to the in-core evaluator built on the expr package.
	QueryEndpoint string

	// QueryConn performs the actual NATS request/reply call; nil whenever
	// QueryEndpoint is empty. Kept as an interface, not *nats.Conn, so the
	// registry package never needs to import nats.go itself.
	QueryConn QueryRequester
}

// QueryRequester is the NATS request/reply call the `query` stage needs,
// satisfied at wiring time by a thin wrapper around *nats.Conn.
type QueryRequester interface {
	Request(subject string, data []byte, timeout time.Duration) ([]byte, error)
}

// MetricsRecorder is the subset of metrics.Registry a stage needs: counts
// of quads crossing its boundary. Implemented by package metrics;
// accepting the interface here keeps this package independent of it.
type MetricsRecorder interface {
	ObserveQuads(stage string, direction string, n int)
}

// ContextLoader resolves a JSON-LD context IRI to its document bytes,
// implemented by package jsonld's local-then-remote composition (spec
// §4.I).
type ContextLoader interface {
	Load(contextIRI string) ([]byte, error)
}

// ProducerFunc starts a producer stage's output stream.
type ProducerFunc func() (qstream.Stream, error)

// TransformFunc wraps an upstream stream into a new one.
type TransformFunc func(upstream qstream.Stream) (qstream.Stream, error)

// SinkFunc drains an upstream stream to completion.
type SinkFunc func(upstream qstream.Stream) error

// Constructor builds a stage instance from a parsed Spec.
type Constructor func(Spec, Deps) (Instance, error)

// Instance is the constructed, ready-to-run form of a stage. Exactly one
// of Producer, Transform, or Sink is set, matching Role (a
// sink-or-transformer constructor picks one of Transform/Sink depending on
// the parsed spec, e.g. the query form).
type Instance struct {
	Role      Role
	Producer  ProducerFunc
	Transform TransformFunc
	Sink      SinkFunc
}

// Entry is one row of the registry.
type Entry struct {
	Canonical string
	Aliases   []string
	Role      Role
	Schema    Schema
	New       Constructor
}

var (
	byCanonical = map[string]*Entry{}
	byAlias     = map[string]*Entry{}
)

// Register adds e to the registry. It panics on a duplicate canonical name
// or alias collision: alias ambiguity is a hard error, and a fixed table
// known entirely at init time makes that error a program bug, not a
// runtime condition to recover from.
func Register(e *Entry) {
	if _, exists := byCanonical[e.Canonical]; exists {
		panic(fmt.Sprintf("stage: duplicate canonical name %q", e.Canonical))
	}
	byCanonical[e.Canonical] = e
	for _, alias := range e.Aliases {
		if other, exists := byAlias[alias]; exists {
			panic(fmt.Sprintf("stage: alias %q claimed by both %q and %q", alias, other.Canonical, e.Canonical))
		}
		byAlias[alias] = e
	}
}

// Lookup resolves a stage name or alias to its registry entry.
func Lookup(nameOrAlias string) (*Entry, bool) {
	if e, ok := byCanonical[nameOrAlias]; ok {
		return e, true
	}
	e, ok := byAlias[nameOrAlias]
	return e, ok
}

// Names returns every canonical stage name, for usage/help text.
func Names() []string {
	out := make([]string, 0, len(byCanonical))
	for name := range byCanonical {
		out = append(out, name)
	}
	return out
}
