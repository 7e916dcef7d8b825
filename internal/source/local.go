package source

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"strings"

	git "github.com/gogs/git-module"
	"github.com/rs/zerolog/log"
)

// Local is a Source backed by a local git object store, opened the same way
// the teacher's GitRepo does: resolve RepoPath/.git and git.Open it.
type Local struct {
	repo   *git.Repository
	branch string
}

// NewLocal opens the git repository rooted at repoPath and tracks branch for
// ResolveHead.
func NewLocal(repoPath, branch string) (*Local, error) {
	gitDir := filepath.Join(repoPath, ".git")
	if _, err := os.Stat(gitDir); os.IsNotExist(err) {
		return nil, &Error{Kind: ErrFatal, Op: "open", Err: fmt.Errorf("no .git directory at %s", repoPath)}
	}

	repo, err := git.Open(gitDir)
	if err != nil {
		return nil, &Error{Kind: ErrFatal, Op: "open", Err: err}
	}

	return &Local{repo: repo, branch: branch}, nil
}

func (l *Local) ResolveHead(_ context.Context) (string, error) {
	id, err := l.repo.BranchCommitID(l.branch)
	if err != nil {
		return "", &Error{Kind: ErrFatal, Op: "resolve_head", Err: err}
	}
	return id, nil
}

// ClosestTags performs a breadth-first walk of commit ancestry from
// commitID, yielding a TagRef for every tag found on a visited commit, in
// the order commits are visited (nearest first). The caller (the engine)
// stops pulling once every configured scope has a baseline.
func (l *Local) ClosestTags(ctx context.Context, commitID string) iter.Seq2[TagRef, error] {
	return func(yield func(TagRef, error) bool) {
		tagsByCommit, err := l.tagsByCommit()
		if err != nil {
			yield(TagRef{}, err)
			return
		}

		start, err := l.repo.CommitByRevision(commitID)
		if err != nil {
			yield(TagRef{}, &Error{Kind: ErrFatal, Op: "closest_tag", Err: err})
			return
		}

		visited := map[string]bool{start.ID.String(): true}
		queue := []*git.Commit{start}

		for len(queue) > 0 {
			select {
			case <-ctx.Done():
				yield(TagRef{}, ctx.Err())
				return
			default:
			}

			c := queue[0]
			queue = queue[1:]
			id := c.ID.String()

			for _, name := range tagsByCommit[id] {
				if !yield(TagRef{Name: name, CommitID: id}, nil) {
					return
				}
			}

			for i := 0; i < c.ParentsCount(); i++ {
				parent, err := c.Parent(i)
				if err != nil {
					yield(TagRef{}, &Error{Kind: ErrTransient, Op: "closest_tag", Err: err})
					return
				}
				if pid := parent.ID.String(); !visited[pid] {
					visited[pid] = true
					queue = append(queue, parent)
				}
			}
		}
	}
}

// CommitsBetween streams baselineCommitID..headCommitID via a single
// RevList call, then replays it in chronological (parent-first) order: the
// teacher's RevList returns reverse-chronological, oldest-excluded,
// newest-included.
func (l *Local) CommitsBetween(ctx context.Context, baselineCommitID, headCommitID string) iter.Seq2[Commit, error] {
	return func(yield func(Commit, error) bool) {
		revRange := fmt.Sprintf("%s..%s", baselineCommitID, headCommitID)
		commits, err := l.repo.RevList([]string{revRange})
		if err != nil {
			yield(Commit{}, &Error{Kind: ErrTransient, Op: "commits_between", Err: err})
			return
		}

		for i := len(commits) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				yield(Commit{}, ctx.Err())
				return
			default:
			}

			c := commits[i]
			if c == nil {
				yield(Commit{}, &Error{Kind: ErrIncompleteHistory, Op: "commits_between", Err: fmt.Errorf("nil commit in rev-list %s", revRange)})
				return
			}

			if !yield(Commit{ID: c.ID.String(), Message: c.Message}, nil) {
				return
			}
		}
	}
}

func (l *Local) CreateTag(_ context.Context, commitID, name, message string) error {
	log.Debug().Str("tag", name).Str("commit", commitID).Msg("creating local tag")

	err := l.repo.CreateTag(name, commitID, git.CreateTagOptions{Annotated: true, Message: message})
	if err == nil {
		return nil
	}

	if strings.Contains(err.Error(), "already exists") {
		return &Error{Kind: ErrTagConflict, Op: "create_tag", Err: err}
	}
	return &Error{Kind: ErrFatal, Op: "create_tag", Err: err}
}

// tagsByCommit maps a commit id to every tag name pointing at it.
func (l *Local) tagsByCommit() (map[string][]string, error) {
	names, err := l.repo.Tags()
	if err != nil {
		return nil, &Error{Kind: ErrTransient, Op: "closest_tag", Err: fmt.Errorf("failed to fetch tags: %w", err)}
	}

	byCommit := make(map[string][]string, len(names))
	for _, name := range names {
		commit, err := l.repo.CommitByRevision(name)
		if err != nil {
			log.Warn().Str("tag", name).Err(err).Msg("skipping tag that does not resolve to a commit")
			continue
		}
		id := commit.ID.String()
		byCommit[id] = append(byCommit[id], name)
	}
	return byCommit, nil
}
