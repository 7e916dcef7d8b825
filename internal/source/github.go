package source

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"sort"
	"strings"

	"github.com/google/go-github/v68/github"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// GitHub is a Source backed by the paginated GitHub REST API, for commits
// tracked remotely rather than cloned locally.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHub builds a token-authenticated client for ownerRepo (e.g.
// "acme/widgets"). An empty token falls back to unauthenticated, rate-limited
// access.
func NewGitHub(ctx context.Context, ownerRepo, token string) (*GitHub, error) {
	owner, repo, ok := strings.Cut(ownerRepo, "/")
	if !ok {
		return nil, &Error{Kind: ErrFatal, Op: "open", Err: fmt.Errorf("%q is not in owner/repo form", ownerRepo)}
	}

	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	}

	return &GitHub{client: github.NewClient(httpClient), owner: owner, repo: repo}, nil
}

func (g *GitHub) ResolveHead(ctx context.Context) (string, error) {
	repo, _, err := g.client.Repositories.Get(ctx, g.owner, g.repo)
	if err != nil {
		return "", classify(err, "resolve_head")
	}

	branch, _, err := g.client.Repositories.GetBranch(ctx, g.owner, g.repo, repo.GetDefaultBranch(), 0)
	if err != nil {
		return "", classify(err, "resolve_head")
	}

	return branch.GetCommit().GetSHA(), nil
}

// ClosestTags lists every tag in the repository, measures its distance from
// commitID via the compare API, and yields them nearest-first. GitHub's API
// has no native "tags reachable from a commit, ordered by distance"
// endpoint, so this backend approximates it: a repository's full tag set is
// small relative to its commit history, and ahead-by is a faithful distance
// proxy for a linear/topological history.
func (g *GitHub) ClosestTags(ctx context.Context, commitID string) iter.Seq2[TagRef, error] {
	return func(yield func(TagRef, error) bool) {
		tags, err := g.listAllTags(ctx)
		if err != nil {
			yield(TagRef{}, err)
			return
		}

		type ranked struct {
			ref      TagRef
			distance int
		}
		rankedTags := make([]ranked, 0, len(tags))

		for _, tag := range tags {
			select {
			case <-ctx.Done():
				yield(TagRef{}, ctx.Err())
				return
			default:
			}

			sha := tag.GetCommit().GetSHA()
			cmp, _, err := g.client.Repositories.CompareCommits(ctx, g.owner, g.repo, sha, commitID, nil)
			if err != nil {
				yield(TagRef{}, classify(err, "closest_tag"))
				return
			}
			if cmp.GetBehindBy() > 0 {
				// the tag is not an ancestor of commitID.
				continue
			}

			rankedTags = append(rankedTags, ranked{
				ref:      TagRef{Name: tag.GetName(), CommitID: sha},
				distance: cmp.GetAheadBy(),
			})
		}

		sort.SliceStable(rankedTags, func(i, j int) bool { return rankedTags[i].distance < rankedTags[j].distance })

		for _, rt := range rankedTags {
			if !yield(rt.ref, nil) {
				return
			}
		}
	}
}

func (g *GitHub) listAllTags(ctx context.Context) ([]*github.RepositoryTag, error) {
	var all []*github.RepositoryTag
	opts := &github.ListOptions{PerPage: 100}

	for {
		page, resp, err := g.client.Repositories.ListTags(ctx, g.owner, g.repo, opts)
		if err != nil {
			return nil, classify(err, "closest_tag")
		}
		all = append(all, page...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// CommitsBetween uses the compare-commits endpoint, which already returns
// commits in (base, head] order, parent-first — exactly the contract the
// engine requires.
func (g *GitHub) CommitsBetween(ctx context.Context, baselineCommitID, headCommitID string) iter.Seq2[Commit, error] {
	return func(yield func(Commit, error) bool) {
		cmp, _, err := g.client.Repositories.CompareCommits(ctx, g.owner, g.repo, baselineCommitID, headCommitID, nil)
		if err != nil {
			yield(Commit{}, classify(err, "commits_between"))
			return
		}

		if cmp.GetTotalCommits() != len(cmp.Commits) {
			// CompareCommits truncates past 250 files/commits in a single
			// response; a truncated page is an incomplete history, not zero bumps.
			log.Warn().Int("reported", cmp.GetTotalCommits()).Int("received", len(cmp.Commits)).
				Msg("github compare response looks truncated")
			yield(Commit{}, &Error{Kind: ErrIncompleteHistory, Op: "commits_between",
				Err: fmt.Errorf("compare %s...%s returned %d of %d commits", baselineCommitID, headCommitID, len(cmp.Commits), cmp.GetTotalCommits())})
			return
		}

		for _, rc := range cmp.Commits {
			select {
			case <-ctx.Done():
				yield(Commit{}, ctx.Err())
				return
			default:
			}

			if !yield(Commit{ID: rc.GetSHA(), Message: rc.GetCommit().GetMessage()}, nil) {
				return
			}
		}
	}
}

func (g *GitHub) CreateTag(ctx context.Context, commitID, name, message string) error {
	tagObj, _, err := g.client.Git.CreateTag(ctx, g.owner, g.repo, &github.Tag{
		Tag:     github.String(name),
		Message: github.String(message),
		Object:  &github.GitObject{SHA: github.String(commitID), Type: github.String("commit")},
	})
	if err != nil {
		return classify(err, "create_tag")
	}

	ref := "refs/tags/" + name
	_, _, err = g.client.Git.CreateRef(ctx, g.owner, g.repo, &github.Reference{
		Ref:    &ref,
		Object: &github.GitObject{SHA: tagObj.SHA},
	})
	if err != nil {
		return classify(err, "create_tag")
	}

	return nil
}

// classify maps a go-github error into the §7 taxonomy: rate limits and
// abuse-rate errors are transient, already-exists is a tag conflict,
// everything else (auth, not-found, a source that refuses mutation) is fatal.
func classify(err error, op string) error {
	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	switch {
	case errors.As(err, &rateErr), errors.As(err, &abuseErr):
		return &Error{Kind: ErrTransient, Op: op, Err: err}
	case strings.Contains(err.Error(), "already exists"):
		return &Error{Kind: ErrTagConflict, Op: op, Err: err}
	default:
		return &Error{Kind: ErrFatal, Op: op, Err: err}
	}
}
