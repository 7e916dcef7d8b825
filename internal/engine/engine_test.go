package engine

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/dloez/tag-track/internal/rules"
	"github.com/dloez/tag-track/internal/source"
	"github.com/dloez/tag-track/internal/version"
)

// fakeSource is a deterministic, in-memory Source over a single linear
// commit history, sufficient to drive every scenario in spec.md §8.
type fakeSource struct {
	commits []source.Commit   // oldest first
	tags    []source.TagRef   // tag name -> commit id, any order
	created []string          // tag names created, in call order
	failAt  string            // tag name whose CreateTag call should fail
	failErr error
}

func newFakeSource(messages []string, tagsAt map[int]string) *fakeSource {
	fs := &fakeSource{}
	for i, msg := range messages {
		fs.commits = append(fs.commits, source.Commit{ID: commitID(i), Message: msg})
	}
	for idx, name := range tagsAt {
		fs.tags = append(fs.tags, source.TagRef{Name: name, CommitID: commitID(idx)})
	}
	return fs
}

func commitID(i int) string { return "c" + string(rune('0'+i)) }

func (fs *fakeSource) indexOf(id string) int {
	for i, c := range fs.commits {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (fs *fakeSource) ResolveHead(context.Context) (string, error) {
	return fs.commits[len(fs.commits)-1].ID, nil
}

func (fs *fakeSource) ClosestTags(_ context.Context, commitID string) iter.Seq2[source.TagRef, error] {
	target := fs.indexOf(commitID)
	return func(yield func(source.TagRef, error) bool) {
		for dist := 0; target-dist >= 0; dist++ {
			id := fs.commits[target-dist].ID
			for _, t := range fs.tags {
				if t.CommitID == id {
					if !yield(t, nil) {
						return
					}
				}
			}
		}
	}
}

func (fs *fakeSource) CommitsBetween(_ context.Context, baselineCommitID, headCommitID string) iter.Seq2[source.Commit, error] {
	from := fs.indexOf(baselineCommitID)
	to := fs.indexOf(headCommitID)
	return func(yield func(source.Commit, error) bool) {
		for i := from + 1; i <= to; i++ {
			if !yield(fs.commits[i], nil) {
				return
			}
		}
	}
}

func (fs *fakeSource) CreateTag(_ context.Context, _, name, _ string) error {
	if fs.failAt == name {
		return fs.failErr
	}
	fs.created = append(fs.created, name)
	return nil
}

func mustEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg)
	assert.NoError(t, err)
	return e
}

// S1 — default config, single scope, one feat commit.
func TestScenarioS1(t *testing.T) {
	fs := newFakeSource([]string{"root", "feat: add thing"}, map[int]string{0: "1.2.3"})
	e := mustEngine(t, DefaultConfig())

	report := e.Run(context.Background(), fs, RunOptions{})

	assert.Equal(t, "", report.Error)
	assert.Equal(t, []VersionBump{{Scope: "", OldVersion: "1.2.3", NewVersion: "1.3.0", IncrementKind: "minor"}}, report.VersionBumps)
}

// S2 — breaking change by marker.
func TestScenarioS2(t *testing.T) {
	fs := newFakeSource([]string{"root", "fix: small", "feat!: rewrite"}, map[int]string{0: "0.4.0"})
	e := mustEngine(t, DefaultConfig())

	report := e.Run(context.Background(), fs, RunOptions{})

	assert.Equal(t, 1, len(report.VersionBumps))
	assert.Equal(t, "0.4.0", report.VersionBumps[0].OldVersion)
	assert.Equal(t, "1.0.0", report.VersionBumps[0].NewVersion)
	assert.Equal(t, "major", report.VersionBumps[0].IncrementKind)
}

// S3 — breaking change in description.
func TestScenarioS3(t *testing.T) {
	fs := newFakeSource([]string{"root", "chore: x\n\nBREAKING CHANGE: api"}, map[int]string{0: "2.0.0"})
	e := mustEngine(t, DefaultConfig())

	report := e.Run(context.Background(), fs, RunOptions{})

	assert.Equal(t, 1, len(report.VersionBumps))
	assert.Equal(t, "3.0.0", report.VersionBumps[0].NewVersion)
	assert.Equal(t, "major", report.VersionBumps[0].IncrementKind)
}

// S4 — skipped commit.
func TestScenarioS4(t *testing.T) {
	fs := newFakeSource([]string{"root", "malformed message", "fix: bug"}, map[int]string{0: "1.0.0"})
	e := mustEngine(t, DefaultConfig())

	report := e.Run(context.Background(), fs, RunOptions{})

	assert.Equal(t, "1.0.1", report.VersionBumps[0].NewVersion)
	assert.Equal(t, []string{"c1"}, report.SkippedCommits)
}

// S5 — monorepo with two scopes.
func TestScenarioS5(t *testing.T) {
	fs := newFakeSource(
		[]string{"root-api", "root-cli", "feat(api): x", "fix(cli): y", "chore: shared"},
		map[int]string{0: "api/1.0.0", 1: "cli/0.2.0"},
	)

	cfg := DefaultConfig()
	cfg.TagPattern = `(?<scope>.*)/(?<version>.*)`
	cfg.Scopes = []string{"api", "cli"}
	e := mustEngine(t, cfg)

	report := e.Run(context.Background(), fs, RunOptions{})

	assert.Equal(t, "", report.Error)
	assert.Equal(t, 2, len(report.VersionBumps))

	byScope := map[string]VersionBump{}
	for _, b := range report.VersionBumps {
		byScope[b.Scope] = b
	}

	assert.Equal(t, VersionBump{Scope: "api", OldVersion: "1.0.0", NewVersion: "1.1.0", IncrementKind: "minor"}, byScope["api"])
	assert.Equal(t, VersionBump{Scope: "cli", OldVersion: "0.2.0", NewVersion: "0.2.1", IncrementKind: "patch"}, byScope["cli"])
}

// S6 — no bump.
func TestScenarioS6(t *testing.T) {
	fs := newFakeSource([]string{"root", "docs: readme"}, map[int]string{0: "1.0.0"})
	e := mustEngine(t, DefaultConfig())

	report := e.Run(context.Background(), fs, RunOptions{})

	assert.Equal(t, 0, len(report.VersionBumps))
	assert.Equal(t, 0, len(report.NewTags))
	assert.False(t, report.TagCreated)
}

func TestMissingBaselineIsFatal(t *testing.T) {
	fs := newFakeSource([]string{"root", "feat: x"}, map[int]string{})
	e := mustEngine(t, DefaultConfig())

	report := e.Run(context.Background(), fs, RunOptions{})
	assert.NotEqual(t, "", report.Error)
}

func TestCreateTagsDeterministicOrderAndAbort(t *testing.T) {
	fs := newFakeSource(
		[]string{"root-api", "root-cli", "feat(api): x", "feat(cli): y"},
		map[int]string{0: "api/1.0.0", 1: "cli/1.0.0"},
	)
	fs.failAt = "cli/1.1.0"
	fs.failErr = errors.New("simulated create tag failure")

	cfg := DefaultConfig()
	cfg.TagPattern = `(?<scope>.*)/(?<version>.*)`
	cfg.Scopes = []string{"api", "cli"}
	e := mustEngine(t, cfg)

	report := e.Run(context.Background(), fs, RunOptions{CreateTags: true})

	assert.Equal(t, []string{"api/1.1.0"}, report.NewTags)
	assert.True(t, report.TagCreated)
	assert.NotEqual(t, "", report.Error)
}

// Property: order independence — permuting bump_rules never changes a ScopeState.
func TestOrderIndependenceOfRules(t *testing.T) {
	fs := newFakeSource([]string{"root", "feat!: rewrite"}, map[int]string{0: "1.0.0"})

	cfg := DefaultConfig()
	forward := mustEngine(t, cfg)

	reversedRules := make([]rules.Rule, len(cfg.Rules))
	for i, r := range cfg.Rules {
		reversedRules[len(cfg.Rules)-1-i] = r
	}
	cfg.Rules = reversedRules
	reversed := mustEngine(t, cfg)

	r1 := forward.Run(context.Background(), fs, RunOptions{})
	r2 := reversed.Run(context.Background(), fs, RunOptions{})
	assert.Equal(t, r1.VersionBumps, r2.VersionBumps)
}

// Property: idempotence — running twice against the same snapshot yields
// byte-identical reports (prior to tag creation).
func TestIdempotence(t *testing.T) {
	fs := newFakeSource([]string{"root", "feat: x", "fix: y"}, map[int]string{0: "1.0.0"})
	e := mustEngine(t, DefaultConfig())

	r1 := e.Run(context.Background(), fs, RunOptions{})
	r2 := e.Run(context.Background(), fs, RunOptions{})
	assert.Equal(t, r1, r2)
}

// Property: new Version is always strictly greater than baseline.
func TestNewVersionStrictlyGreater(t *testing.T) {
	fs := newFakeSource([]string{"root", "fix: a"}, map[int]string{0: "5.5.5"})
	e := mustEngine(t, DefaultConfig())

	report := e.Run(context.Background(), fs, RunOptions{})
	baseline, err := version.Parse(report.VersionBumps[0].OldVersion)
	assert.NoError(t, err)
	newVer, err := version.Parse(report.VersionBumps[0].NewVersion)
	assert.NoError(t, err)
	assert.True(t, newVer.GreaterThan(baseline))
}

func TestTargetIsBaselineNoBump(t *testing.T) {
	fs := newFakeSource([]string{"root"}, map[int]string{0: "1.0.0"})
	e := mustEngine(t, DefaultConfig())

	report := e.Run(context.Background(), fs, RunOptions{TargetCommit: "c0"})
	assert.Equal(t, 0, len(report.VersionBumps))
}
