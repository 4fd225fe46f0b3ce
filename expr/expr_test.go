package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sophia-cli/sop/expr"
	"github.com/sophia-cli/sop/term"
)

func quad(s, p, o, g term.Term) term.Quad {
	return term.Quad{Subject: s, Predicate: p, Object: o, Graph: g}
}

func mustCompile(t *testing.T, src string) expr.Expr {
	t.Helper()
	e, err := expr.Compile(src)
	require.NoError(t, err, "compiling %q", src)
	return e
}

func evalBool(t *testing.T, src string, q term.Quad) (bool, error) {
	t.Helper()
	e := mustCompile(t, src)
	r := expr.Eval(e, q)
	if r.IsError() {
		return false, r.Err
	}
	lit, ok := r.Term.(term.Literal)
	require.True(t, ok, "expected a literal result, got %T", r.Term)
	return lit.Lexical == "true", nil
}

func TestCompileRejectsGarbage(t *testing.T) {
	_, err := expr.Compile("?s ==")
	assert.Error(t, err)
}

func TestVariableBindingFromQuad(t *testing.T) {
	q := quad(
		term.IRI{Value: "http://example.org/a"},
		term.IRI{Value: "http://example.org/p"},
		term.Literal{Lexical: "42", Datatype: "http://www.w3.org/2001/XMLSchema#integer"},
		term.DefaultGraph{},
	)
	ok, err := evalBool(t, `?o = 42`, q)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBoundOfDefaultGraphIsFalse(t *testing.T) {
	q := quad(term.IRI{Value: "urn:s"}, term.IRI{Value: "urn:p"}, term.IRI{Value: "urn:o"}, term.DefaultGraph{})
	ok, err := evalBool(t, `!bound(?g)`, q)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBoundOfNamedGraphIsTrue(t *testing.T) {
	q := quad(term.IRI{Value: "urn:s"}, term.IRI{Value: "urn:p"}, term.IRI{Value: "urn:o"}, term.IRI{Value: "urn:g"})
	ok, err := evalBool(t, `bound(?g)`, q)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnboundVariableAtTopLevelIsError(t *testing.T) {
	q := quad(term.IRI{Value: "urn:s"}, term.IRI{Value: "urn:p"}, term.IRI{Value: "urn:o"}, term.DefaultGraph{})
	_, err := evalBool(t, `?nosuch`, q)
	assert.Error(t, err)
}

func TestCoalesceSkipsUnboundAndErrors(t *testing.T) {
	q := quad(term.IRI{Value: "urn:s"}, term.IRI{Value: "urn:p"},
		term.Literal{Lexical: "hi"}, term.DefaultGraph{})
	e := mustCompile(t, `coalesce(?g, ?o)`)
	r := expr.Eval(e, q)
	require.False(t, r.IsError())
	lit, ok := r.Term.(term.Literal)
	require.True(t, ok)
	assert.Equal(t, "hi", lit.Lexical)
}

func TestIfSelectsBranch(t *testing.T) {
	q := quad(term.IRI{Value: "urn:s"}, term.IRI{Value: "urn:p"},
		term.Literal{Lexical: "5", Datatype: "http://www.w3.org/2001/XMLSchema#integer"},
		term.DefaultGraph{})
	e := mustCompile(t, `if(?o > 3, "big", "small")`)
	r := expr.Eval(e, q)
	require.False(t, r.IsError())
	lit := r.Term.(term.Literal)
	assert.Equal(t, "big", lit.Lexical)
}

func TestNumericPromotionIntegerPlusDoubleIsDouble(t *testing.T) {
	e := mustCompile(t, `1 + 2.5e0`)
	r := expr.Eval(e, term.Quad{Subject: term.Blank{}, Predicate: term.Blank{}, Object: term.Blank{}, Graph: term.DefaultGraph{}})
	require.False(t, r.IsError())
	lit := r.Term.(term.Literal)
	assert.Equal(t, "http://www.w3.org/2001/XMLSchema#double", lit.Datatype)
	assert.Equal(t, "3.5", lit.Lexical)
}

func TestDivisionByIntegersYieldsDecimal(t *testing.T) {
	e := mustCompile(t, `6 / 3`)
	r := expr.Eval(e, term.Quad{Subject: term.Blank{}, Predicate: term.Blank{}, Object: term.Blank{}, Graph: term.DefaultGraph{}})
	require.False(t, r.IsError())
	lit := r.Term.(term.Literal)
	assert.Equal(t, "http://www.w3.org/2001/XMLSchema#decimal", lit.Datatype)
}

func TestComparisonIRIBeforeLiteral(t *testing.T) {
	e := mustCompile(t, `?s < ?o`)
	q := quad(term.IRI{Value: "urn:s"}, term.Blank{}, term.Literal{Lexical: "x"}, term.DefaultGraph{})
	r := expr.Eval(e, q)
	require.False(t, r.IsError())
	assert.Equal(t, "true", r.Term.(term.Literal).Lexical)
}

func TestStringBuiltinsConcatAndCase(t *testing.T) {
	e := mustCompile(t, `concat(ucase("ab"), lcase("CD"))`)
	r := expr.Eval(e, term.Quad{Subject: term.Blank{}, Predicate: term.Blank{}, Object: term.Blank{}, Graph: term.DefaultGraph{}})
	require.False(t, r.IsError())
	assert.Equal(t, "ABcd", r.Term.(term.Literal).Lexical)
}

func TestRegexBuiltin(t *testing.T) {
	e := mustCompile(t, `regex("hello world", "^hello")`)
	r := expr.Eval(e, term.Quad{Subject: term.Blank{}, Predicate: term.Blank{}, Object: term.Blank{}, Graph: term.DefaultGraph{}})
	require.False(t, r.IsError())
	assert.Equal(t, "true", r.Term.(term.Literal).Lexical)
}

func TestBnodeIsImpureAcrossCalls(t *testing.T) {
	e := mustCompile(t, `bnode()`)
	q := term.Quad{Subject: term.Blank{}, Predicate: term.Blank{}, Object: term.Blank{}, Graph: term.DefaultGraph{}}
	r1 := expr.Eval(e, q)
	r2 := expr.Eval(e, q)
	require.False(t, r1.IsError())
	require.False(t, r2.IsError())
	assert.NotEqual(t, r1.Term.String(), r2.Term.String())
}

func TestLangTaggedStringLiteral(t *testing.T) {
	e := mustCompile(t, `lang("bonjour"@fr)`)
	r := expr.Eval(e, term.Quad{Subject: term.Blank{}, Predicate: term.Blank{}, Object: term.Blank{}, Graph: term.DefaultGraph{}})
	require.False(t, r.IsError())
	assert.Equal(t, "fr", r.Term.(term.Literal).Lexical)
}

func TestAndShortCircuitsOnFalseLeftEvenWithErroringRight(t *testing.T) {
	q := quad(term.IRI{Value: "urn:s"}, term.IRI{Value: "urn:p"}, term.IRI{Value: "urn:o"}, term.DefaultGraph{})
	ok, err := evalBool(t, `false && ?nosuch`, q)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrShortCircuitsOnTrueLeft(t *testing.T) {
	q := quad(term.IRI{Value: "urn:s"}, term.IRI{Value: "urn:p"}, term.IRI{Value: "urn:o"}, term.DefaultGraph{})
	ok, err := evalBool(t, `true || ?nosuch`, q)
	require.NoError(t, err)
	assert.True(t, ok)
}
