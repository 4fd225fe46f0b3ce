package stages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	rdfgo "github.com/geoknoesis/rdf-go/rdf"

	"github.com/sophia-cli/sop/errs"
	"github.com/sophia-cli/sop/expr"
	"github.com/sophia-cli/sop/qstream"
	"github.com/sophia-cli/sop/stage"
	"github.com/sophia-cli/sop/term"
)

func init() {
	stage.Register(&stage.Entry{
		Canonical: "query",
		Aliases:   []string{"q"},
		Role:      stage.RoleSinkOrTransformer,
		Schema: stage.Schema{
			MinPositionals: 1,
			MaxPositionals: 1,
		},
		New: newQuery,
	})
}

// queryForm is the SPARQL query form driving query's sink-or-transformer
// duality: ASK and SELECT only ever produce a result (a
// boolean, a row table), so they are sinks; CONSTRUCT and DESCRIBE produce
// a quad stream, so they are transformers.
type queryForm string

const (
	formASK       queryForm = "ASK"
	formSELECT    queryForm = "SELECT"
	formCONSTRUCT queryForm = "CONSTRUCT"
	formDESCRIBE  queryForm = "DESCRIBE"
)

const natsRequestTimeout = 30 * time.Second

func newQuery(spec stage.Spec, deps stage.Deps) (stage.Instance, error) {
	raw := spec.Positional[0]
	form, body, err := splitQueryForm(raw)
	if err != nil {
		return stage.Instance{}, errs.Usage("query", err)
	}

	// The in-core fallback only understands a boolean filter expression as
	// the query body, enough to exercise form dispatch and the NATS wire
	// when no external engine is configured. A real grammar is only
	// needed when delegating is unavailable, so the compile happens
	// lazily inside the evaluator, not here, to avoid rejecting queries
	// the external engine would have understood fine.

	switch form {
	case formASK, formSELECT:
		return stage.Instance{
			Role: stage.RoleSink,
			Sink: func(upstream qstream.Stream) error {
				quads, err := qstream.Collect(upstream)
				if err != nil {
					return err
				}
				observe(deps, "query", "in", len(quads))
				return runQuerySink(form, raw, body, quads, deps)
			},
		}, nil
	case formCONSTRUCT, formDESCRIBE:
		return stage.Instance{
			Role: stage.RoleTransformer,
			Transform: func(upstream qstream.Stream) (qstream.Stream, error) {
				hdr := upstream.Header()
				quads, err := qstream.Collect(upstream)
				if err != nil {
					return nil, err
				}
				observe(deps, "query", "in", len(quads))
				result, err := runQueryConstruct(raw, body, quads, deps)
				if err != nil {
					return nil, err
				}
				observe(deps, "query", "out", len(result))
				// CONSTRUCT/DESCRIBE inherit the input stream's base IRI,
				// not the query string's own BASE prologue.
				return qstream.FromSlice(hdr, result), nil
			},
		}, nil
	default:
		return stage.Instance{}, errs.Usagef("query", "unsupported query form %q", form)
	}
}

// splitQueryForm extracts the leading SPARQL form keyword and the
// remainder of the query string.
func splitQueryForm(raw string) (queryForm, string, error) {
	trimmed := strings.TrimSpace(raw)
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return "", "", fmt.Errorf("empty query")
	}
	switch strings.ToUpper(fields[0]) {
	case "ASK":
		return formASK, strings.TrimSpace(trimmed[len(fields[0]):]), nil
	case "SELECT":
		return formSELECT, strings.TrimSpace(trimmed[len(fields[0]):]), nil
	case "CONSTRUCT":
		return formCONSTRUCT, strings.TrimSpace(trimmed[len(fields[0]):]), nil
	case "DESCRIBE":
		return formDESCRIBE, strings.TrimSpace(trimmed[len(fields[0]):]), nil
	default:
		return "", "", fmt.Errorf("query must start with ASK, SELECT, CONSTRUCT, or DESCRIBE, got %q", fields[0])
	}
}

// queryWireRequest/queryWireResponse are the NATS request/reply envelope:
// the whole query string plus the dataset it runs over (serialized as
// N-Quads), and either a boolean, a row table, or a constructed quad set
// back.
type queryWireRequest struct {
	Query string `json:"query"`
	Quads string `json:"quads"`
}

type queryWireResponse struct {
	Bool  *bool      `json:"bool,omitempty"`
	Rows  [][]string `json:"rows,omitempty"`
	Quads string     `json:"quads,omitempty"`
	Error string     `json:"error,omitempty"`
}

func runQuerySink(form queryForm, raw, body string, quads []term.Quad, deps stage.Deps) error {
	if deps.QueryConn != nil && deps.QueryEndpoint != "" {
		resp, err := delegateQuery(raw, quads, deps)
		if err != nil {
			return errs.New(errs.KindQuery, "query", err)
		}
		if resp.Error != "" {
			return errs.New(errs.KindQuery, "query", fmt.Errorf("%s", resp.Error))
		}
		switch form {
		case formASK:
			if resp.Bool == nil {
				return errs.New(errs.KindQuery, "query", fmt.Errorf("engine returned no boolean for ASK"))
			}
			fmt.Println(*resp.Bool)
		case formSELECT:
			printRows(resp.Rows)
		}
		return nil
	}
	return evalInCoreSink(form, body, quads)
}

func runQueryConstruct(raw, body string, quads []term.Quad, deps stage.Deps) ([]term.Quad, error) {
	if deps.QueryConn != nil && deps.QueryEndpoint != "" {
		resp, err := delegateQuery(raw, quads, deps)
		if err != nil {
			return nil, errs.New(errs.KindQuery, "query", err)
		}
		if resp.Error != "" {
			return nil, errs.New(errs.KindQuery, "query", fmt.Errorf("%s", resp.Error))
		}
		return parseNQuads(resp.Quads)
	}
	return evalInCoreConstruct(body, quads)
}

func delegateQuery(raw string, quads []term.Quad, deps stage.Deps) (queryWireResponse, error) {
	nquads, err := encodeNQuads(quads)
	if err != nil {
		return queryWireResponse{}, err
	}
	reqBody, err := json.Marshal(queryWireRequest{Query: raw, Quads: nquads})
	if err != nil {
		return queryWireResponse{}, err
	}
	replyBody, err := deps.QueryConn.Request(deps.QueryEndpoint, reqBody, natsRequestTimeout)
	if err != nil {
		return queryWireResponse{}, fmt.Errorf("query engine request: %w", err)
	}
	var resp queryWireResponse
	if err := json.Unmarshal(replyBody, &resp); err != nil {
		return queryWireResponse{}, fmt.Errorf("decode query engine reply: %w", err)
	}
	return resp, nil
}

// evalInCoreSink and evalInCoreConstruct are the fallback evaluator used
// when no external SPARQL engine is configured: the query body is a
// filter expression in package expr's grammar, ASK reports whether any
// quad satisfies it, SELECT prints every quad that does as a four-column
// table, and CONSTRUCT/DESCRIBE pass through the quads that satisfy it.
// This is a deliberately partial substitute for real SPARQL, only enough
// to exercise the form dispatch and stream plumbing around the real
// engine.
func evalInCoreSink(form queryForm, body string, quads []term.Quad) error {
	pred, err := expr.Compile(body)
	if err != nil {
		return errs.New(errs.KindQuery, "query", fmt.Errorf("in-core evaluator: %w", err))
	}
	switch form {
	case formASK:
		matched := false
		for _, q := range quads {
			ok, err := expr.EBV(expr.Eval(pred, q))
			if err == nil && ok {
				matched = true
				break
			}
		}
		fmt.Println(matched)
	case formSELECT:
		var rows [][]string
		for _, q := range quads {
			ok, err := expr.EBV(expr.Eval(pred, q))
			if err != nil || !ok {
				continue
			}
			rows = append(rows, []string{q.Subject.String(), q.Predicate.String(), q.Object.String(), q.Graph.String()})
		}
		printRows(rows)
	}
	return nil
}

func evalInCoreConstruct(body string, quads []term.Quad) ([]term.Quad, error) {
	pred, err := expr.Compile(body)
	if err != nil {
		return nil, errs.New(errs.KindQuery, "query", fmt.Errorf("in-core evaluator: %w", err))
	}
	var out []term.Quad
	for _, q := range quads {
		ok, err := expr.EBV(expr.Eval(pred, q))
		if err != nil || !ok {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func printRows(rows [][]string) {
	for _, row := range rows {
		fmt.Println(strings.Join(row, "\t"))
	}
}

func encodeNQuads(quads []term.Quad) (string, error) {
	var buf bytes.Buffer
	writer, err := rdfgo.NewWriter(&buf, rdfgo.FormatNQuads)
	if err != nil {
		return "", err
	}
	for _, q := range quads {
		stmt, err := toRDFGoStatement(q)
		if err != nil {
			return "", err
		}
		if err := writer.Write(stmt); err != nil {
			return "", err
		}
	}
	if err := writer.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func parseNQuads(nquads string) ([]term.Quad, error) {
	var out []term.Quad
	err := rdfgo.Parse(context.Background(), strings.NewReader(nquads), rdfgo.FormatNQuads, func(stmt rdfgo.Statement) error {
		out = append(out, fromRDFGoStatement(stmt))
		return nil
	})
	return out, err
}
