package stages

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"

	rdfgo "github.com/geoknoesis/rdf-go/rdf"

	"github.com/sophia-cli/sop/errs"
	"github.com/sophia-cli/sop/qstream"
	"github.com/sophia-cli/sop/stage"
	"github.com/sophia-cli/sop/term"
)

func init() {
	stage.Register(&stage.Entry{
		Canonical: "canonicalize",
		Aliases:   []string{"c14n", "c"},
		Role:      stage.RoleSink,
		Schema: stage.Schema{
			Flags: []stage.FlagSchema{{Long: "output", Short: "o", Arity: stage.AritySingle}},
		},
		New: newCanonicalize,
	})
}

func newCanonicalize(spec stage.Spec, deps stage.Deps) (stage.Instance, error) {
	outputPath, hasOutput := spec.Option("output")
	return stage.Instance{
		Role: stage.RoleSink,
		Sink: func(upstream qstream.Stream) error {
			quads, err := qstream.Collect(upstream)
			if err != nil {
				return err
			}
			observe(deps, "canonicalize", "in", len(quads))
			canonical := canonicalizeBlankNodes(quads)
			sort.Slice(canonical, func(i, j int) bool {
				return quadString(canonical[i]) < quadString(canonical[j])
			})

			var w io.Writer = os.Stdout
			if hasOutput {
				f, err := os.Create(outputPath)
				if err != nil {
					return errs.New(errs.KindIO, "canonicalize", err)
				}
				defer f.Close()
				w = f
			}
			writer, err := rdfgo.NewWriter(w, rdfgo.FormatNQuads)
			if err != nil {
				return errs.New(errs.KindCanon, "canonicalize", err)
			}
			for _, q := range canonical {
				stmt, err := toRDFGoStatement(q)
				if err != nil {
					return errs.New(errs.KindCanon, "canonicalize", err)
				}
				if err := writer.Write(stmt); err != nil {
					return errs.New(errs.KindCanon, "canonicalize", err)
				}
			}
			return writer.Flush()
		},
	}, nil
}

// canonicalizeBlankNodes renames every blank node to a label derived only
// from its place in the dataset's structure, never from its original
// identifier, so that two datasets differing only in blank-node spelling
// canonicalize to identical output.
//
// This is a practical approximation of URDNA2015 rather than a byte-exact
// reimplementation: it hashes each blank node's incident quads (with blank
// references replaced by a placeholder) and iteratively re-hashes against
// neighbors' hashes a fixed number of rounds to separate blank nodes that
// only differ by their position relative to other blank nodes. Residual
// ties after that (isomorphic subgraphs with no distinguishing neighbor
// structure) are broken by first-seen order, which is deterministic for a
// given input but not guaranteed graph-automorphism-invariant in that
// corner case.
func canonicalizeBlankNodes(quads []term.Quad) []term.Quad {
	blanks := map[string]bool{}
	order := []string{}
	for _, q := range quads {
		for _, t := range []term.Term{q.Subject, q.Predicate, q.Object, q.Graph} {
			if b, ok := t.(term.Blank); ok {
				if !blanks[b.Local] {
					blanks[b.Local] = true
					order = append(order, b.Local)
				}
			}
		}
	}

	hashes := make(map[string]string, len(order))
	for _, local := range order {
		hashes[local] = hashSignature(signatureFor(local, quads, nil))
	}
	const refinementRounds = 3
	for round := 0; round < refinementRounds; round++ {
		next := make(map[string]string, len(order))
		for _, local := range order {
			next[local] = hashSignature(signatureFor(local, quads, hashes))
		}
		hashes = next
	}

	// Stable sort: blank nodes with equal hashes keep first-seen order.
	sort.SliceStable(order, func(i, j int) bool {
		return hashes[order[i]] < hashes[order[j]]
	})
	labels := make(map[string]string, len(order))
	for i, local := range order {
		labels[local] = fmt.Sprintf("c%d", i)
	}

	out := make([]term.Quad, len(quads))
	for i, q := range quads {
		out[i] = term.Quad{
			Subject:   relabelBlank(q.Subject, labels),
			Predicate: relabelBlank(q.Predicate, labels),
			Object:    relabelBlank(q.Object, labels),
			Graph:     relabelBlank(q.Graph, labels),
		}
	}
	return out
}

func relabelBlank(t term.Term, labels map[string]string) term.Term {
	b, ok := t.(term.Blank)
	if !ok {
		return t
	}
	if label, ok := labels[b.Local]; ok {
		return term.Blank{Local: label}
	}
	return t
}

// signatureFor builds the string whose hash distinguishes blank node local
// from every other blank node: every quad touching it, serialized with
// local's own occurrences replaced by a fixed placeholder and every other
// blank node replaced by its current round's hash (or a placeholder on the
// first round, when no hashes exist yet).
func signatureFor(local string, quads []term.Quad, hashes map[string]string) string {
	var lines []string
	for _, q := range quads {
		if !quadTouches(q, local) {
			continue
		}
		lines = append(lines,
			signatureTerm(q.Subject, local, hashes)+" "+
				signatureTerm(q.Predicate, local, hashes)+" "+
				signatureTerm(q.Object, local, hashes)+" "+
				signatureTerm(q.Graph, local, hashes))
	}
	sort.Strings(lines)
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}

func quadTouches(q term.Quad, local string) bool {
	for _, t := range []term.Term{q.Subject, q.Predicate, q.Object, q.Graph} {
		if b, ok := t.(term.Blank); ok && b.Local == local {
			return true
		}
	}
	return false
}

func signatureTerm(t term.Term, self string, hashes map[string]string) string {
	b, ok := t.(term.Blank)
	if !ok {
		return t.String()
	}
	if b.Local == self {
		return "_:self"
	}
	if h, ok := hashes[b.Local]; ok {
		return "_:" + h
	}
	return "_:other"
}

func hashSignature(sig string) string {
	sum := sha256.Sum256([]byte(sig))
	return hex.EncodeToString(sum[:])
}

func quadString(q term.Quad) string {
	return q.Subject.String() + " " + q.Predicate.String() + " " + q.Object.String() + " " + q.Graph.String()
}
