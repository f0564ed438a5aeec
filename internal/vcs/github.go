package vcs

import (
	"context"
	"fmt"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// NewGitHubClient authenticates an oauth2 HTTP client with token and
// returns a go-github client. Shared by PRClient and review.Surface so
// the process holds a single underlying HTTP transport.
func NewGitHubClient(token string) *github.Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(context.Background(), ts)
	return github.NewClient(tc)
}

// PRClient creates or reuses a pull request for a branch.
type PRClient struct {
	client *github.Client
	owner  string
	repo   string
}

// NewPRClient wraps an already-authenticated go-github client scoped to
// owner/repo.
func NewPRClient(client *github.Client, owner, repo string) *PRClient {
	return &PRClient{client: client, owner: owner, repo: repo}
}

// PRResult describes the pull request backing a run's branch.
type PRResult struct {
	Number int
	URL    string
	Exists bool
}

// EnsurePullRequest returns the existing open PR for head (if any),
// otherwise opens a new one against base (§4.4: PR creation is deferred
// until after the first commit, and subsequent commits must not create
// duplicates).
func (c *PRClient) EnsurePullRequest(ctx context.Context, head, base, title, body string) (*PRResult, error) {
	existing, err := c.findOpenPR(ctx, head)
	if err != nil {
		return nil, fmt.Errorf("search existing PRs: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	pr, _, err := c.client.PullRequests.Create(ctx, c.owner, c.repo, &github.NewPullRequest{
		Title: github.Ptr(title),
		Head:  github.Ptr(head),
		Base:  github.Ptr(base),
		Body:  github.Ptr(body),
	})
	if err != nil {
		return nil, fmt.Errorf("create pull request: %w", err)
	}
	return &PRResult{Number: pr.GetNumber(), URL: pr.GetHTMLURL(), Exists: false}, nil
}

// UpdatePullRequestBody overwrites the PR description, used for the final
// "ready for review" update (§6).
func (c *PRClient) UpdatePullRequestBody(ctx context.Context, number int, body string) error {
	_, _, err := c.client.PullRequests.Edit(ctx, c.owner, c.repo, number, &github.PullRequest{
		Body: github.Ptr(body),
	})
	if err != nil {
		return fmt.Errorf("update pull request #%d body: %w", number, err)
	}
	return nil
}

func (c *PRClient) findOpenPR(ctx context.Context, head string) (*PRResult, error) {
	prs, _, err := c.client.PullRequests.List(ctx, c.owner, c.repo, &github.PullRequestListOptions{
		State: "open",
		Head:  c.owner + ":" + head,
	})
	if err != nil {
		return nil, err
	}
	if len(prs) == 0 {
		return nil, nil
	}
	pr := prs[0]
	return &PRResult{Number: pr.GetNumber(), URL: pr.GetHTMLURL(), Exists: true}, nil
}
