// Package cli implements the argv splitter and per-stage flag parser:
// splitting a flat argv tail at the literal `!` token, then parsing each
// shard against its stage's declared Schema to produce an immutable
// stage.Spec.
//
// The grammar defers parsing of everything after a bare `!` to a fresh
// parse pass; this package does the equivalent split-then-parse in one
// place rather than recursively invoking a CLI parser.
package cli

import "github.com/sophia-cli/sop/errs"

// pipelineToken is the literal argv element that separates pipeline
// stages. It must appear as its own argument; it is never looked for
// inside a larger string (the shell has already tokenized argv by the
// time this package sees it).
const pipelineToken = "!"

// Split divides argv into ordered shards, one per stage, at occurrences of
// the literal "!" token. A leading, trailing, or doubled "!" (producing an
// empty shard) is a usage error.
func Split(argv []string) ([][]string, error) {
	var shards [][]string
	var cur []string
	for _, a := range argv {
		if a == pipelineToken {
			if len(cur) == 0 {
				return nil, errs.Usagef("split", "empty stage before '!'")
			}
			shards = append(shards, cur)
			cur = nil
			continue
		}
		cur = append(cur, a)
	}
	if len(cur) == 0 {
		if len(shards) == 0 {
			return nil, errs.Usagef("split", "no stages given")
		}
		return nil, errs.Usagef("split", "empty stage after trailing '!'")
	}
	shards = append(shards, cur)
	return shards, nil
}
