package stages

import (
	"net/url"
	"strings"

	"github.com/sophia-cli/sop/term"
)

// relativizeIRI returns the shortest relative reference for target against
// base (RFC 3986 §5.3), or target unchanged with ok=false when no relative
// form re-resolves to the original byte-exactly.
func relativizeIRI(base *url.URL, target string) (string, bool) {
	u, err := url.Parse(target)
	if err != nil {
		return target, false
	}
	if u.Scheme != base.Scheme || !strings.EqualFold(u.Host, base.Host) || u.User != nil || base.User != nil {
		return target, false
	}

	rel := &url.URL{
		Path:     relativePath(base.Path, u.Path),
		RawQuery: u.RawQuery,
		Fragment: u.Fragment,
	}
	candidate := rel.String()
	if candidate == "" {
		candidate = "."
	}

	resolved, err := base.Parse(candidate)
	if err != nil {
		return target, false
	}
	got := term.IRI{Value: resolved.String()}
	want := term.IRI{Value: u.String()}
	if !got.Equal(want) {
		return target, false
	}
	return candidate, true
}

// relativePath computes target's path relative to base's directory,
// climbing with ".." for each base segment not shared with target.
func relativePath(basePath, targetPath string) string {
	baseDir := basePath
	if idx := strings.LastIndex(baseDir, "/"); idx >= 0 {
		baseDir = baseDir[:idx+1]
	} else {
		baseDir = ""
	}
	baseSegs := splitDir(baseDir)
	targetSegs := strings.Split(strings.TrimPrefix(targetPath, "/"), "/")

	i := 0
	for i < len(baseSegs) && i < len(targetSegs)-1 && baseSegs[i] == targetSegs[i] {
		i++
	}
	ups := len(baseSegs) - i
	rel := strings.Repeat("../", ups) + strings.Join(targetSegs[i:], "/")
	if rel == "" {
		rel = targetSegs[len(targetSegs)-1]
	}
	return rel
}

func splitDir(dir string) []string {
	trimmed := strings.Trim(dir, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// absolutizeIRI resolves a (possibly relative) reference against base.
func absolutizeIRI(base *url.URL, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}
