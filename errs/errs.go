// Package errs defines the error taxonomy shared by every sop package.
//
// Every error that can reach the CLI driver is tagged with a Kind so that
// main can map it to the right process exit code without string-sniffing
// messages.
package errs

import "fmt"

// Kind classifies an error for exit-code mapping and reporting.
type Kind int

const (
	// KindUsage covers bad flags, missing terminators, unknown stage names,
	// and a sink placed mid-pipeline.
	KindUsage Kind = iota
	// KindParse covers bad RDF syntax in input; carries a source location.
	KindParse
	// KindSerialize covers a target syntax unable to represent a quad.
	KindSerialize
	// KindExpression covers expression compile or runtime errors.
	KindExpression
	// KindIO covers file/network failures.
	KindIO
	// KindQuery covers SPARQL engine failures.
	KindQuery
	// KindCanon covers dataset canonicalization failures.
	KindCanon
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindParse:
		return "parse"
	case KindSerialize:
		return "serialize"
	case KindExpression:
		return "expression"
	case KindIO:
		return "io"
	case KindQuery:
		return "query"
	case KindCanon:
		return "canon"
	default:
		return "unknown"
	}
}

// Error is a taxonomy-tagged error, wrapping an underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a taxonomy Kind and an operation label.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Usage wraps err as a KindUsage error.
func Usage(op string, err error) error { return New(KindUsage, op, err) }

// Usagef builds a KindUsage error from a format string.
func Usagef(op, format string, a ...any) error {
	return New(KindUsage, op, fmt.Errorf(format, a...))
}

// ParseErr wraps err as a KindParse error, naming the offending source.
func ParseErr(source string, offset int64, err error) error {
	return New(KindParse, fmt.Sprintf("%s@%d", source, offset), err)
}

// ExitCode maps an error to its process exit code:
// 0 success, 1 stage failure, 2 CLI-usage error.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if as(err, &e) && e.Kind == KindUsage {
		return 2
	}
	return 1
}

func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
