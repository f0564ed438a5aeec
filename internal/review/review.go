// Package review posts and rewrites progressive status panels on a pull
// request's conversation (C5). There is no threading and no reactions:
// the orchestrator owns one comment id per panel and replaces its whole
// body on each update.
package review

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"
)

// Surface creates and rewrites issue comments on a pull request.
type Surface struct {
	client *github.Client
	owner  string
	repo   string
}

// NewSurface wraps an already-authenticated go-github client.
func NewSurface(client *github.Client, owner, repo string) *Surface {
	return &Surface{client: client, owner: owner, repo: repo}
}

// CreateComment posts body as a new comment on pr and returns its id.
func (s *Surface) CreateComment(ctx context.Context, pr int, body string) (int64, error) {
	comment, _, err := s.client.Issues.CreateComment(ctx, s.owner, s.repo, pr, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return 0, fmt.Errorf("create comment on PR #%d: %w", pr, err)
	}
	return comment.GetID(), nil
}

// UpdateComment rewrites the comment identified by id with body.
func (s *Surface) UpdateComment(ctx context.Context, id int64, body string) error {
	_, _, err := s.client.Issues.EditComment(ctx, s.owner, s.repo, id, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return fmt.Errorf("update comment %d: %w", id, err)
	}
	return nil
}
