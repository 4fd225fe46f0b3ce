package stages

import (
	"fmt"

	rdfgo "github.com/geoknoesis/rdf-go/rdf"

	"github.com/sophia-cli/sop/term"
)

// fromRDFGoTerm converts one of rdf-go's concrete term types into sop's
// own term.Term, the shape every stage downstream of `parse` actually
// operates on.
func fromRDFGoTerm(t rdfgo.Term) term.Term {
	if t == nil {
		return nil
	}
	switch v := t.(type) {
	case rdfgo.IRI:
		return term.IRI{Value: v.Value}
	case rdfgo.BlankNode:
		return term.Blank{Local: v.ID}
	case rdfgo.Literal:
		return term.Literal{Lexical: v.Lexical, Datatype: v.Datatype.Value, Lang: v.Lang}
	case rdfgo.TripleTerm:
		return term.Triple{S: fromRDFGoTerm(v.S), P: term.IRI{Value: v.P.Value}, O: fromRDFGoTerm(v.O)}
	default:
		return term.IRI{Value: t.String()}
	}
}

// fromRDFGoStatement converts a Statement read by an rdf-go Reader into a
// sop quad; a nil G (triple-only formats) becomes the default graph.
func fromRDFGoStatement(s rdfgo.Statement) term.Quad {
	q := term.Quad{
		Subject:   fromRDFGoTerm(s.S),
		Predicate: term.IRI{Value: s.P.Value},
		Object:    fromRDFGoTerm(s.O),
		Graph:     term.DefaultGraph{},
	}
	if s.G != nil {
		q.Graph = fromRDFGoTerm(s.G)
	}
	return q
}

// toRDFGoTerm converts a sop term into rdf-go's term model for writing.
// Variables never reach a Statement (package expr confines them to
// expression evaluation); encountering one here is a stage bug, not a
// data error, so it is reported through the normal error return rather
// than silently coerced.
func toRDFGoTerm(t term.Term) (rdfgo.Term, error) {
	switch v := t.(type) {
	case term.IRI:
		return rdfgo.IRI{Value: v.Value}, nil
	case term.Blank:
		return rdfgo.BlankNode{ID: v.Local}, nil
	case term.Literal:
		return rdfgo.Literal{Lexical: v.Lexical, Datatype: rdfgo.IRI{Value: v.Datatype}, Lang: v.Lang}, nil
	case term.Triple:
		s, err := toRDFGoTerm(v.S)
		if err != nil {
			return nil, err
		}
		o, err := toRDFGoTerm(v.O)
		if err != nil {
			return nil, err
		}
		p, ok := v.P.(term.IRI)
		if !ok {
			return nil, fmt.Errorf("quoted triple predicate is not an IRI: %s", v.P)
		}
		return rdfgo.TripleTerm{S: s, P: rdfgo.IRI{Value: p.Value}, O: o}, nil
	case term.DefaultGraph:
		return nil, nil
	default:
		return nil, fmt.Errorf("term %s (%s) cannot be serialized", t, t.Kind())
	}
}

// toRDFGoStatement converts a sop quad into the Statement shape an rdf-go
// Writer expects; G is left nil for a default-graph quad so triple-only
// writers see exactly what they expect.
func toRDFGoStatement(q term.Quad) (rdfgo.Statement, error) {
	s, err := toRDFGoTerm(q.Subject)
	if err != nil {
		return rdfgo.Statement{}, fmt.Errorf("subject: %w", err)
	}
	p, ok := q.Predicate.(term.IRI)
	if !ok {
		return rdfgo.Statement{}, fmt.Errorf("predicate %s is not an IRI (generalized quad)", q.Predicate)
	}
	o, err := toRDFGoTerm(q.Object)
	if err != nil {
		return rdfgo.Statement{}, fmt.Errorf("object: %w", err)
	}
	stmt := rdfgo.Statement{S: s, P: rdfgo.IRI{Value: p.Value}, O: o}
	if !term.IsDefaultGraph(q.Graph) {
		g, err := toRDFGoTerm(q.Graph)
		if err != nil {
			return rdfgo.Statement{}, fmt.Errorf("graph: %w", err)
		}
		stmt.G = g
	}
	return stmt, nil
}
