// Package pattern compiles the configured tag and commit regular
// expressions and extracts their named captures. Patterns are written using
// the Conventional-Commits-friendly `(?<name>...)` named-group syntax; they
// are translated to Go's `(?P<name>...)` RE2 syntax before compilation.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultTagPattern is used when the configuration omits tag_pattern.
const DefaultTagPattern = `(?<version>.*)`

// DefaultCommitPattern is used when the configuration omits commit_pattern.
const DefaultCommitPattern = `^(?<type>[a-zA-Z]*)(?<scope>\(.*\))?(?<breaking>!)?:(?<description>[\s\S]*)$`

// TagMatch is the result of matching a tag name against the tag pattern.
type TagMatch struct {
	Scope         string // empty if the pattern has no scope capture or it matched empty
	VersionString string
}

// TagPattern matches tag names and extracts scope/version captures.
type TagPattern struct {
	re     *regexp.Regexp
	source string
}

// CompileTagPattern compiles expr, requiring a "version" named capture. It
// may optionally carry a "scope" capture.
func CompileTagPattern(expr string) (*TagPattern, error) {
	if expr == "" {
		expr = DefaultTagPattern
	}

	re, err := compile(expr)
	if err != nil {
		return nil, fmt.Errorf("pattern: invalid tag_pattern: %w", err)
	}

	if !hasGroup(re, "version") {
		return nil, fmt.Errorf("pattern: tag_pattern %q is missing the required \"version\" named capture", expr)
	}

	return &TagPattern{re: re, source: expr}, nil
}

// Match reports whether name matches the pattern and, if so, its captures.
func (p *TagPattern) Match(name string) (TagMatch, bool) {
	groups := findNamedMatches(p.re, name)
	if groups == nil {
		return TagMatch{}, false
	}
	return TagMatch{Scope: groups["scope"], VersionString: groups["version"]}, true
}

// Render attempts to mechanically invert the pattern to produce a tag name
// that will re-match to the given (scope, version) pair. If the pattern
// cannot be inverted it falls back to the documented template:
// "{scope}/{version}" when scope is non-empty, else "{version}".
func (p *TagPattern) Render(scope, versionStr string) string {
	if rendered, ok := invert(p.source, map[string]string{"scope": scope, "version": versionStr}); ok {
		return rendered
	}
	if scope != "" {
		return scope + "/" + versionStr
	}
	return versionStr
}

// CommitMatch is the result of matching a commit message against the commit pattern.
type CommitMatch struct {
	Type        string
	Scope       string // parens stripped
	Breaking    bool   // presence-only: non-empty "breaking" capture means true
	Description string
}

// CommitPattern matches commit message headers.
type CommitPattern struct {
	re *regexp.Regexp
}

// CompileCommitPattern compiles expr, requiring "type" and "description"
// named captures. It may optionally carry "scope" and "breaking" captures.
func CompileCommitPattern(expr string) (*CommitPattern, error) {
	if expr == "" {
		expr = DefaultCommitPattern
	}

	re, err := compile(expr)
	if err != nil {
		return nil, fmt.Errorf("pattern: invalid commit_pattern: %w", err)
	}

	if !hasGroup(re, "type") {
		return nil, fmt.Errorf("pattern: commit_pattern %q is missing the required \"type\" named capture", expr)
	}
	if !hasGroup(re, "description") {
		return nil, fmt.Errorf("pattern: commit_pattern %q is missing the required \"description\" named capture", expr)
	}

	return &CommitPattern{re: re}, nil
}

// Match reports whether msg matches the pattern and, if so, its captures.
func (p *CommitPattern) Match(msg string) (CommitMatch, bool) {
	groups := findNamedMatches(p.re, msg)
	if groups == nil {
		return CommitMatch{}, false
	}

	scope := strings.TrimSuffix(strings.TrimPrefix(groups["scope"], "("), ")")

	return CommitMatch{
		Type:        groups["type"],
		Scope:       scope,
		Breaking:    groups["breaking"] != "",
		Description: groups["description"],
	}, true
}

// compile translates PCRE-style `(?<name>...)` captures to Go's
// `(?P<name>...)` and compiles the result.
func compile(expr string) (*regexp.Regexp, error) {
	return regexp.Compile(translateNamedGroups(expr))
}

func translateNamedGroups(expr string) string {
	return strings.ReplaceAll(expr, "(?<", "(?P<")
}

func hasGroup(re *regexp.Regexp, name string) bool {
	for _, n := range re.SubexpNames() {
		if n == name {
			return true
		}
	}
	return false
}

// findNamedMatches returns nil if msg does not match re, otherwise a map
// from capture name to matched text (empty string for unmatched optional
// groups). Mirrors the teacher's findNamedMatches helper.
func findNamedMatches(re *regexp.Regexp, msg string) map[string]string {
	match := re.FindStringSubmatch(msg)
	if match == nil {
		return nil
	}

	results := make(map[string]string, len(match))
	for i, name := range re.SubexpNames() {
		if name == "" {
			continue
		}
		results[name] = match[i]
	}
	return results
}
