// Package engine implements the bump engine orchestrator: it fuses pattern
// matching, rule evaluation, and a Source's tag/commit streams into a
// deterministic, per-scope set of version bumps.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/dloez/tag-track/internal/pattern"
	"github.com/dloez/tag-track/internal/rules"
	"github.com/dloez/tag-track/internal/source"
	"github.com/dloez/tag-track/internal/version"
)

// Config is the engine's immutable input, mirroring the configuration
// schema in full (tag_pattern, commit_pattern, bump_rules, version_scopes,
// new_tag_message).
type Config struct {
	TagPattern    string
	CommitPattern string
	Rules         []rules.Rule
	Scopes        []string
	NewTagMessage string
}

// DefaultConfig returns the schema's documented defaults.
func DefaultConfig() Config {
	return Config{
		TagPattern:    pattern.DefaultTagPattern,
		CommitPattern: pattern.DefaultCommitPattern,
		Rules:         rules.DefaultRules(),
		Scopes:        []string{""},
		NewTagMessage: "Version {version}",
	}
}

// Engine holds everything compiled/validated once at construction time: an
// invalid configuration (bad regex, missing capture, bad bump kind) fails
// here rather than mid-run.
type Engine struct {
	tagPattern    *pattern.TagPattern
	commitPattern *pattern.CommitPattern
	rules         []rules.Rule
	scopes        []string
	tagMessage    string
}

// New compiles and validates cfg, failing fast on configuration errors (§7).
func New(cfg Config) (*Engine, error) {
	tagPattern, err := pattern.CompileTagPattern(cfg.TagPattern)
	if err != nil {
		return nil, err
	}

	commitPattern, err := pattern.CompileCommitPattern(cfg.CommitPattern)
	if err != nil {
		return nil, err
	}

	ruleSet := cfg.Rules
	if ruleSet == nil {
		ruleSet = rules.DefaultRules()
	}
	for i, r := range ruleSet {
		if err := rules.ValidateRule(r); err != nil {
			return nil, fmt.Errorf("engine: bump_rules[%d]: %w", i, err)
		}
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{""}
	}

	msgTemplate := cfg.NewTagMessage
	if msgTemplate == "" {
		msgTemplate = "Version {version}"
	}

	return &Engine{
		tagPattern:    tagPattern,
		commitPattern: commitPattern,
		rules:         ruleSet,
		scopes:        scopes,
		tagMessage:    msgTemplate,
	}, nil
}

// RunOptions configures a single Run call.
type RunOptions struct {
	// TargetCommit is the commit to compute bumps up to. Empty resolves the
	// Source's head.
	TargetCommit string
	// CreateTags requests that PendingTags be persisted through the Source.
	CreateTags bool
}

// scopeState is the engine's mutable per-scope accumulator (§3 ScopeState).
type scopeState struct {
	scope              string
	baseline           version.Version
	baselineCommitID   string
	accumulated        version.BumpKind
	contributingCommit []string
}

// Run executes the algorithm in spec §4.5 against src and returns a Report.
// Run never panics across its contract: every failure mode is reported via
// Report.Error.
func (e *Engine) Run(ctx context.Context, src source.Source, opts RunOptions) Report {
	target := opts.TargetCommit
	if target == "" {
		resolved, err := src.ResolveHead(ctx)
		if err != nil {
			return errorReport(fmt.Errorf("engine: resolving head: %w", err))
		}
		target = resolved
	}

	states := make(map[string]*scopeState, len(e.scopes))
	for _, scope := range e.scopes {
		states[scope] = &scopeState{scope: scope}
	}

	if err := e.discoverBaselines(ctx, src, target, states); err != nil {
		return errorReport(err)
	}

	skipped := newSkippedSet()
	for _, scope := range e.scopes {
		if err := e.traverseScope(ctx, src, target, states[scope], skipped); err != nil {
			return errorReport(err)
		}
	}

	pending := e.materialize(target, states)

	report := Report{
		VersionBumps:   toVersionBumps(pending),
		SkippedCommits: skipped.ordered,
	}

	if opts.CreateTags && len(pending) > 0 {
		created, err := createTags(ctx, src, pending)
		report.NewTags = created
		report.TagCreated = len(created) > 0
		if err != nil {
			report.Error = err.Error()
		}
	}

	return report
}

// discoverBaselines implements §4.5 step 2: consume ClosestTags until every
// scope has a baseline or the stream is exhausted.
func (e *Engine) discoverBaselines(ctx context.Context, src source.Source, target string, states map[string]*scopeState) error {
	remaining := make(map[string]bool, len(states))
	for scope := range states {
		remaining[scope] = true
	}

	for ref, err := range src.ClosestTags(ctx, target) {
		if err != nil {
			return fmt.Errorf("engine: discovering baseline tags: %w", err)
		}

		m, ok := e.tagPattern.Match(ref.Name)
		if !ok {
			continue
		}
		if !remaining[m.Scope] {
			// either not a configured scope, or that scope already has a baseline.
			continue
		}

		v, err := version.Parse(m.VersionString)
		if err != nil {
			log.Debug().Str("tag", ref.Name).Err(err).Msg("ignoring tag with unparseable version")
			continue
		}

		st := states[m.Scope]
		st.baseline = v
		st.baselineCommitID = ref.CommitID
		delete(remaining, m.Scope)

		if len(remaining) == 0 {
			break
		}
	}

	if len(remaining) > 0 {
		missing := make([]string, 0, len(remaining))
		for scope := range remaining {
			missing = append(missing, scopeLabel(scope))
		}
		return fmt.Errorf("engine: no reachable tag found for scope(s): %s", strings.Join(missing, ", "))
	}

	return nil
}

// traverseScope implements §4.5 step 3 for a single scope.
func (e *Engine) traverseScope(ctx context.Context, src source.Source, target string, st *scopeState, skipped *skippedSet) error {
	if st.baselineCommitID == target {
		// the target commit is itself the baseline: empty range, no bump.
		return nil
	}

	for c, err := range src.CommitsBetween(ctx, st.baselineCommitID, target) {
		if err != nil {
			return fmt.Errorf("engine: walking commits for scope %s: %w", scopeLabel(st.scope), err)
		}

		m, ok := e.commitPattern.Match(c.Message)
		if !ok {
			skipped.add(c.ID)
			continue
		}

		kind := rules.Strongest(e.rules, m)
		if kind == version.None {
			continue
		}

		// scope routing (§3): a scoped commit only updates its own scope's
		// state; an unscoped commit broadcasts (each scope's own traversal
		// applies it independently).
		if m.Scope != "" && m.Scope != st.scope {
			continue
		}

		st.accumulated = version.Max(st.accumulated, kind)
		st.contributingCommit = append(st.contributingCommit, c.ID)
	}

	return nil
}

// materialize implements §4.5 step 4, in configured scope order.
func (e *Engine) materialize(target string, states map[string]*scopeState) []PendingTag {
	var pending []PendingTag
	for _, scope := range e.scopes {
		st := states[scope]
		if st.accumulated == version.None {
			continue
		}

		newVersion := st.baseline.Bump(st.accumulated)
		pending = append(pending, PendingTag{
			Scope:      scope,
			OldVersion: st.baseline,
			NewVersion: newVersion,
			CommitID:   target,
			Name:       e.tagPattern.Render(scope, newVersion.String()),
			Message:    renderMessage(e.tagMessage, scope, newVersion.String()),
			Kind:       st.accumulated,
		})
	}
	return pending
}

func renderMessage(template, scope, versionStr string) string {
	msg := strings.ReplaceAll(template, "{version}", versionStr)
	msg = strings.ReplaceAll(msg, "{scope}", scope)
	return msg
}

func scopeLabel(scope string) string {
	if scope == "" {
		return "(unscoped)"
	}
	return scope
}

type skippedSet struct {
	seen    map[string]bool
	ordered []string
}

func newSkippedSet() *skippedSet {
	return &skippedSet{seen: make(map[string]bool)}
}

func (s *skippedSet) add(commitID string) {
	if s.seen[commitID] {
		return
	}
	s.seen[commitID] = true
	s.ordered = append(s.ordered, commitID)
}
