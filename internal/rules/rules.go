// Package rules evaluates bump rules against a parsed commit. A rule passes
// iff every condition it declares passes (logical AND over present fields);
// absent conditions are vacuously true. The one exception: a rule declaring
// both if_breaking_type and if_breaking_description as true passes when
// either breaking signal is present (see breakingConditionPasses).
package rules

import (
	"fmt"
	"strings"

	"github.com/dloez/tag-track/internal/pattern"
	"github.com/dloez/tag-track/internal/version"
)

// breakingChangeMarkers are the two footer spellings recognized by
// if_breaking_description, per the Conventional Commits convention.
var breakingChangeMarkers = []string{"BREAKING CHANGE", "BREAKING-CHANGE"}

// Rule is one bump rule: a bump kind plus a conjunction of optional conditions.
type Rule struct {
	Bump                  version.BumpKind
	Types                 []string
	Scopes                []string
	IfBreakingType        *bool
	IfBreakingDescription *bool
}

// DefaultRules is the bump_rules default from the configuration schema.
func DefaultRules() []Rule {
	breakingTrue := true
	return []Rule{
		{Bump: version.Patch, Types: []string{"fix", "style"}},
		{Bump: version.Minor, Types: []string{"feat", "refactor", "perf"}},
		{Bump: version.Major, IfBreakingType: &breakingTrue, IfBreakingDescription: &breakingTrue},
	}
}

// Passes reports whether commit satisfies every condition r declares, with
// the two breaking flags combined as breakingConditionPasses describes.
func (r Rule) Passes(commit pattern.CommitMatch) bool {
	if len(r.Types) > 0 && !contains(r.Types, commit.Type) {
		return false
	}

	if len(r.Scopes) > 0 && !contains(r.Scopes, commit.Scope) {
		return false
	}

	if r.IfBreakingType != nil || r.IfBreakingDescription != nil {
		return r.breakingConditionPasses(commit)
	}

	return true
}

// breakingConditionPasses evaluates if_breaking_type/if_breaking_description.
// Declared alone, each is its own condition. Declared together asking for
// true, they read as alternate signals of the same event (conventional
// commits exposes "breaking" through either a `!` marker or a footer) and
// are OR'd rather than AND'ed, matching the documented default major rule.
func (r Rule) breakingConditionPasses(commit pattern.CommitMatch) bool {
	hasMarker := hasBreakingChangeMarker(commit.Description)

	switch {
	case r.IfBreakingType != nil && r.IfBreakingDescription != nil:
		if *r.IfBreakingType && *r.IfBreakingDescription {
			return commit.Breaking || hasMarker
		}
		return commit.Breaking == *r.IfBreakingType && hasMarker == *r.IfBreakingDescription
	case r.IfBreakingType != nil:
		return commit.Breaking == *r.IfBreakingType
	default:
		return hasMarker == *r.IfBreakingDescription
	}
}

// Strongest returns the strongest bump kind across every rule that passes
// for commit, or version.None if no rule passes.
func Strongest(rules []Rule, commit pattern.CommitMatch) version.BumpKind {
	strongest := version.None
	for _, r := range rules {
		if r.Passes(commit) {
			strongest = version.Max(strongest, r.Bump)
		}
	}
	return strongest
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func hasBreakingChangeMarker(description string) bool {
	for _, marker := range breakingChangeMarkers {
		if strings.Contains(description, marker) {
			return true
		}
	}
	return false
}

// ValidateRule checks a rule's bump kind is well-formed; called at
// configuration load time, before any commit is evaluated.
func ValidateRule(r Rule) error {
	switch r.Bump {
	case version.Major, version.Minor, version.Patch:
		return nil
	default:
		return fmt.Errorf("rules: rule has an invalid bump kind %q", r.Bump)
	}
}
