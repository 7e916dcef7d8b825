package engine

import "github.com/dloez/tag-track/internal/version"

// PendingTag is a tag the engine has decided to create (§3); only
// materialized on disk when tag creation is requested.
type PendingTag struct {
	Scope      string
	OldVersion version.Version
	NewVersion version.Version
	CommitID   string
	Name       string
	Message    string
	Kind       version.BumpKind
}

// VersionBump is the JSON-facing shape of a single scope's bump, matching
// §6's report schema exactly.
type VersionBump struct {
	Scope         string `json:"scope"`
	OldVersion    string `json:"old_version"`
	NewVersion    string `json:"new_version"`
	IncrementKind string `json:"increment_kind"`
}

// Report is the engine's sole output, matching §6's JSON shape. The engine
// never throws across its public contract: errors are reported here.
type Report struct {
	TagCreated     bool          `json:"tag_created"`
	NewTags        []string      `json:"new_tags"`
	VersionBumps   []VersionBump `json:"version_bumps"`
	SkippedCommits []string      `json:"skipped_commits"`
	Error          string        `json:"error,omitempty"`
}

func errorReport(err error) Report {
	return Report{Error: err.Error()}
}

func toVersionBumps(pending []PendingTag) []VersionBump {
	bumps := make([]VersionBump, 0, len(pending))
	for _, p := range pending {
		bumps = append(bumps, VersionBump{
			Scope:         p.Scope,
			OldVersion:    p.OldVersion.String(),
			NewVersion:    p.NewVersion.String(),
			IncrementKind: p.Kind.String(),
		})
	}
	return bumps
}
