package term

import "testing"

func TestLiteralEqualLangCaseInsensitive(t *testing.T) {
	a := Literal{Lexical: "hello", Lang: "en"}
	b := Literal{Lexical: "hello", Lang: "EN"}
	if !a.Equal(b) {
		t.Fatalf("expected language tags to compare case-insensitively")
	}
}

func TestLiteralEqualDatatypeDefault(t *testing.T) {
	a := Literal{Lexical: "hello"}
	b := Literal{Lexical: "hello", Datatype: XSDString}
	if !a.Equal(b) {
		t.Fatalf("expected implicit xsd:string to equal explicit xsd:string")
	}
}

func TestQuadGeneralized(t *testing.T) {
	q := Quad{
		Subject:   Literal{Lexical: "not a legal subject"},
		Predicate: IRI{Value: "http://example.org/p"},
		Object:    IRI{Value: "http://example.org/o"},
		Graph:     DefaultGraph{},
	}
	if !q.Generalized() {
		t.Fatalf("expected literal-subject quad to be generalized")
	}
}

func TestHeaderMarkGeneralizedSticky(t *testing.T) {
	h := NewHeader("http://example.org/")
	h.MarkGeneralized()
	clone := h.Clone()
	if !clone.Generalized {
		t.Fatalf("expected generalized flag to survive Clone")
	}
}

func TestIRIEqualIdenticalPunycode(t *testing.T) {
	a := IRI{Value: "https://xn--nxasmq6b.example/x"}
	b := IRI{Value: "https://xn--nxasmq6b.example/x"}
	if !a.Equal(b) {
		t.Fatalf("expected identical ASCII IRIs to compare equal")
	}
}
