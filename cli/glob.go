package cli

import (
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/sophia-cli/sop/errs"
)

// ExpandGlobs resolves a list of glob patterns against the filesystem:
// POSIX-like globs plus `**` matching across directory separators, plus
// `[!...]` as a negated character class (the POSIX spelling; doublestar
// only recognizes `[^...]`, so patterns are rewritten before matching).
// Each pattern's matches are returned in lexicographic order, one
// pattern fully expanded before the next is considered, per pattern, in
// positional order. A pattern with zero matches is a hard error: an
// unreadable or non-matching source fails the run rather than being
// silently skipped.
func ExpandGlobs(patterns []string) ([]string, error) {
	var out []string
	for _, pattern := range patterns {
		rewritten := negatePOSIXBrackets(pattern)
		matches, err := doublestar.FilepathGlob(rewritten)
		if err != nil {
			return nil, errs.Usagef("glob", "invalid pattern %q: %v", pattern, err)
		}
		if len(matches) == 0 {
			return nil, errs.Usagef("glob", "pattern %q matched no files", pattern)
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out, nil
}

// negatePOSIXBrackets rewrites "[!...]" bracket-class negation (the
// POSIX spelling) to "[^...]" (doublestar's spelling), leaving "[^...]"
// and ordinary classes untouched.
func negatePOSIXBrackets(pattern string) string {
	var sb strings.Builder
	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '[' && !inClass:
			inClass = true
			sb.WriteByte(c)
			if i+1 < len(pattern) && pattern[i+1] == '!' {
				sb.WriteByte('^')
				i++
			}
		case c == ']' && inClass:
			inClass = false
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
