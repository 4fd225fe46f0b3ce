package expr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/sophia-cli/sop/term"
)

func (c *Call) eval(env *Env) Result {
	switch c.Name {
	case "bound":
		if len(c.Args) != 1 {
			return TypeError(fmt.Errorf("bound() takes 1 argument"))
		}
		r := c.Args[0].eval(env)
		return Bound(boolTerm(!r.IsUnbound() && !r.IsError()))
	case "coalesce":
		for _, a := range c.Args {
			r := a.eval(env)
			if !r.IsError() && !r.IsUnbound() {
				return r
			}
		}
		return TypeError(fmt.Errorf("coalesce: all arguments errored or were unbound"))
	case "if":
		if len(c.Args) != 3 {
			return TypeError(fmt.Errorf("if() takes 3 arguments"))
		}
		b, err := ebv(c.Args[0].eval(env))
		if err != nil {
			return TypeError(err)
		}
		if b {
			return c.Args[1].eval(env)
		}
		return c.Args[2].eval(env)
	}

	args := make([]Result, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.eval(env)
	}
	for _, a := range args {
		if a.IsError() {
			return a
		}
		if a.IsUnbound() {
			return TypeError(ErrUnbound{})
		}
	}

	switch c.Name {
	case "str":
		return builtinStr(args)
	case "lang":
		return builtinLang(args)
	case "datatype":
		return builtinDatatype(args)
	case "iri", "uri":
		return builtinIRI(args)
	case "bnode":
		return builtinBnode(args)
	case "isIRI", "isURI":
		return builtinKindCheck(args, term.KindIRI)
	case "isBlank":
		return builtinKindCheck(args, term.KindBlank)
	case "isLiteral":
		return builtinKindCheck(args, term.KindLiteral)
	case "isNumeric":
		return builtinIsNumeric(args)
	case "lcase":
		return builtinCase(args, strings.ToLower)
	case "ucase":
		return builtinCase(args, strings.ToUpper)
	case "strlen":
		return builtinStrlen(args)
	case "substr":
		return builtinSubstr(args)
	case "contains":
		return builtinStrPredicate(args, strings.Contains)
	case "strstarts":
		return builtinStrPredicate(args, strings.HasPrefix)
	case "strends":
		return builtinStrPredicate(args, strings.HasSuffix)
	case "concat":
		return builtinConcat(args)
	case "langMatches":
		return builtinLangMatches(args)
	case "regex":
		return builtinRegex(args)
	default:
		return TypeError(fmt.Errorf("unknown function %q", c.Name))
	}
}

func asString(r Result) (string, bool, error) {
	lit, ok := r.Term.(term.Literal)
	if !ok {
		return "", false, fmt.Errorf("expected a string literal, got %s", r.Term.Kind())
	}
	if lit.Datatype != "" && lit.Datatype != term.XSDString && lit.Lang == "" {
		return "", false, fmt.Errorf("expected a simple or language-tagged string, got datatype %s", lit.Datatype)
	}
	return lit.Lexical, lit.Lang != "", nil
}

func builtinStr(args []Result) Result {
	if len(args) != 1 {
		return TypeError(fmt.Errorf("str() takes 1 argument"))
	}
	switch t := args[0].Term.(type) {
	case term.IRI:
		return Bound(term.Literal{Lexical: t.Value})
	case term.Literal:
		return Bound(term.Literal{Lexical: t.Lexical})
	case term.Blank:
		return Bound(term.Literal{Lexical: t.String()})
	default:
		return TypeError(fmt.Errorf("str() does not apply to %s", t.Kind()))
	}
}

func builtinLang(args []Result) Result {
	if len(args) != 1 {
		return TypeError(fmt.Errorf("lang() takes 1 argument"))
	}
	lit, ok := args[0].Term.(term.Literal)
	if !ok {
		return TypeError(fmt.Errorf("lang() requires a literal"))
	}
	return Bound(term.Literal{Lexical: lit.Lang})
}

func builtinDatatype(args []Result) Result {
	if len(args) != 1 {
		return TypeError(fmt.Errorf("datatype() takes 1 argument"))
	}
	lit, ok := args[0].Term.(term.Literal)
	if !ok {
		return TypeError(fmt.Errorf("datatype() requires a literal"))
	}
	return Bound(term.IRI{Value: lit.EffectiveDatatype()})
}

func builtinIRI(args []Result) Result {
	if len(args) != 1 {
		return TypeError(fmt.Errorf("iri() takes 1 argument"))
	}
	s, _, err := asString(args[0])
	if err != nil {
		if iriTerm, ok := args[0].Term.(term.IRI); ok {
			return Bound(iriTerm)
		}
		return TypeError(err)
	}
	return Bound(term.IRI{Value: s})
}

func builtinBnode(args []Result) Result {
	if len(args) > 1 {
		return TypeError(fmt.Errorf("bnode() takes 0 or 1 arguments"))
	}
	// bnode() is impure: every call mints a fresh identifier, the one
	// function for which filter/map determinism
	// does not hold.
	return Bound(term.Blank{Local: "b" + uuid.NewString()})
}

func builtinKindCheck(args []Result, k term.Kind) Result {
	if len(args) != 1 {
		return TypeError(fmt.Errorf("expected 1 argument"))
	}
	return Bound(boolTerm(args[0].Term.Kind() == k))
}

func builtinIsNumeric(args []Result) Result {
	if len(args) != 1 {
		return TypeError(fmt.Errorf("isNumeric() takes 1 argument"))
	}
	_, err := asNumber(args[0])
	return Bound(boolTerm(err == nil))
}

func builtinCase(args []Result, f func(string) string) Result {
	if len(args) != 1 {
		return TypeError(fmt.Errorf("expected 1 argument"))
	}
	lit, ok := args[0].Term.(term.Literal)
	if !ok {
		return TypeError(fmt.Errorf("expected a string literal"))
	}
	lit.Lexical = f(lit.Lexical)
	return Bound(lit)
}

func builtinStrlen(args []Result) Result {
	if len(args) != 1 {
		return TypeError(fmt.Errorf("strlen() takes 1 argument"))
	}
	s, _, err := asString(args[0])
	if err != nil {
		return TypeError(err)
	}
	return Bound(term.Literal{
		Lexical:  strconv.Itoa(len([]rune(s))),
		Datatype: "http://www.w3.org/2001/XMLSchema#integer",
	})
}

func builtinSubstr(args []Result) Result {
	if len(args) != 2 && len(args) != 3 {
		return TypeError(fmt.Errorf("substr() takes 2 or 3 arguments"))
	}
	s, hasLang, err := asString(args[0])
	if err != nil {
		return TypeError(err)
	}
	start, err := asNumber(args[1])
	if err != nil {
		return TypeError(err)
	}
	runes := []rune(s)
	from := int(start.f) - 1 // SPARQL substr is 1-indexed
	if from < 0 {
		from = 0
	}
	length := len(runes) - from
	if len(args) == 3 {
		ln, err := asNumber(args[2])
		if err != nil {
			return TypeError(err)
		}
		length = int(ln.f)
	}
	if from > len(runes) {
		from = len(runes)
	}
	to := from + length
	if to > len(runes) || to < from {
		to = len(runes)
	}
	result := string(runes[from:to])
	if hasLang {
		lit := args[0].Term.(term.Literal)
		return Bound(term.Literal{Lexical: result, Lang: lit.Lang})
	}
	return Bound(term.Literal{Lexical: result})
}

func builtinStrPredicate(args []Result, f func(s, sub string) bool) Result {
	if len(args) != 2 {
		return TypeError(fmt.Errorf("expected 2 arguments"))
	}
	a, _, err := asString(args[0])
	if err != nil {
		return TypeError(err)
	}
	b, _, err := asString(args[1])
	if err != nil {
		return TypeError(err)
	}
	return Bound(boolTerm(f(a, b)))
}

func builtinConcat(args []Result) Result {
	var sb strings.Builder
	for _, a := range args {
		s, _, err := asString(a)
		if err != nil {
			return TypeError(err)
		}
		sb.WriteString(s)
	}
	return Bound(term.Literal{Lexical: sb.String()})
}

func builtinLangMatches(args []Result) Result {
	if len(args) != 2 {
		return TypeError(fmt.Errorf("langMatches() takes 2 arguments"))
	}
	lang, _, err := asString(args[0])
	if err != nil {
		return TypeError(err)
	}
	pattern, _, err := asString(args[1])
	if err != nil {
		return TypeError(err)
	}
	if pattern == "*" {
		return Bound(boolTerm(lang != ""))
	}
	return Bound(boolTerm(strings.EqualFold(lang, pattern) ||
		strings.HasPrefix(strings.ToLower(lang), strings.ToLower(pattern)+"-")))
}

func builtinRegex(args []Result) Result {
	if len(args) != 2 && len(args) != 3 {
		return TypeError(fmt.Errorf("regex() takes 2 or 3 arguments"))
	}
	s, _, err := asString(args[0])
	if err != nil {
		return TypeError(err)
	}
	pattern, _, err := asString(args[1])
	if err != nil {
		return TypeError(err)
	}
	if len(args) == 3 {
		flags, _, err := asString(args[2])
		if err != nil {
			return TypeError(err)
		}
		if strings.Contains(flags, "i") {
			pattern = "(?i)" + pattern
		}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return TypeError(fmt.Errorf("invalid regex %q: %w", pattern, err))
	}
	return Bound(boolTerm(re.MatchString(s)))
}
