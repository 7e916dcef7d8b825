package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFixtureGitHub points a GitHub source at an httptest server standing in
// for the real REST API, following the handler-map fixture style used by
// this pack's other GitHub-API-backed tools.
func newFixtureGitHub(t *testing.T, handlers map[string]http.HandlerFunc) *GitHub {
	t.Helper()

	mux := http.NewServeMux()
	for pattern, h := range handlers {
		mux.HandleFunc(pattern, h)
	}
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := github.NewClient(nil)
	baseURL, err := client.BaseURL.Parse(server.URL + "/")
	require.NoError(t, err)
	client.BaseURL = baseURL

	return &GitHub{client: client, owner: "acme", repo: "widgets"}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestGitHubResolveHead(t *testing.T) {
	gh := newFixtureGitHub(t, map[string]http.HandlerFunc{
		"/repos/acme/widgets": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, &github.Repository{DefaultBranch: github.String("main")})
		},
		"/repos/acme/widgets/branches/main": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, &github.Branch{
				Commit: &github.RepositoryCommit{SHA: github.String("headsha")},
			})
		},
	})

	head, err := gh.ResolveHead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "headsha", head)
}

func TestGitHubCommitsBetween(t *testing.T) {
	gh := newFixtureGitHub(t, map[string]http.HandlerFunc{
		"/repos/acme/widgets/compare/base...head": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, &github.CommitsComparison{
				TotalCommits: github.Int(2),
				Commits: []*github.RepositoryCommit{
					{SHA: github.String("c1"), Commit: &github.Commit{Message: github.String("feat: a")}},
					{SHA: github.String("c2"), Commit: &github.Commit{Message: github.String("fix: b")}},
				},
			})
		},
	})

	var commits []Commit
	for c, err := range gh.CommitsBetween(context.Background(), "base", "head") {
		require.NoError(t, err)
		commits = append(commits, c)
	}

	require.Len(t, commits, 2)
	assert.Equal(t, "c1", commits[0].ID)
	assert.Equal(t, "feat: a", commits[0].Message)
	assert.Equal(t, "c2", commits[1].ID)
}

func TestGitHubClosestTagsOrdersByDistance(t *testing.T) {
	gh := newFixtureGitHub(t, map[string]http.HandlerFunc{
		"/repos/acme/widgets/tags": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, []*github.RepositoryTag{
				{Name: github.String("1.0.0"), Commit: &github.Commit{SHA: github.String("t1")}},
				{Name: github.String("1.1.0"), Commit: &github.Commit{SHA: github.String("t2")}},
			})
		},
		"/repos/acme/widgets/compare/t1...target": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, &github.CommitsComparison{AheadBy: github.Int(5), BehindBy: github.Int(0)})
		},
		"/repos/acme/widgets/compare/t2...target": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, &github.CommitsComparison{AheadBy: github.Int(1), BehindBy: github.Int(0)})
		},
	})

	var tags []TagRef
	for ref, err := range gh.ClosestTags(context.Background(), "target") {
		require.NoError(t, err)
		tags = append(tags, ref)
	}

	require.Len(t, tags, 2)
	assert.Equal(t, "1.1.0", tags[0].Name) // fewer commits ahead => nearer
	assert.Equal(t, "1.0.0", tags[1].Name)
}

func TestGitHubClosestTagsSkipsNonAncestors(t *testing.T) {
	gh := newFixtureGitHub(t, map[string]http.HandlerFunc{
		"/repos/acme/widgets/tags": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, []*github.RepositoryTag{
				{Name: github.String("1.0.0"), Commit: &github.Commit{SHA: github.String("t1")}},
			})
		},
		"/repos/acme/widgets/compare/t1...target": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, &github.CommitsComparison{AheadBy: github.Int(0), BehindBy: github.Int(3)})
		},
	})

	var tags []TagRef
	for ref, err := range gh.ClosestTags(context.Background(), "target") {
		require.NoError(t, err)
		tags = append(tags, ref)
	}
	assert.Empty(t, tags)
}

func TestGitHubClassifyRateLimit(t *testing.T) {
	gh := newFixtureGitHub(t, map[string]http.HandlerFunc{
		"/repos/acme/widgets/tags": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", 0))
			w.WriteHeader(http.StatusForbidden)
			writeJSON(t, w, &github.ErrorResponse{Message: "API rate limit exceeded"})
		},
	})

	_, err := gh.listAllTags(context.Background())
	require.Error(t, err)

	var sourceErr *Error
	require.ErrorAs(t, err, &sourceErr)
	assert.Equal(t, ErrTransient, sourceErr.Kind)
}
