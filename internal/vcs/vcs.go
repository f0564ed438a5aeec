// Package vcs switches branches, commits, pushes, and ensures a pull
// request exists for a run's branch (C4). Local git plumbing shells out
// through a small GitRunner seam; the GitHub half goes through
// go-github/v68 over an oauth2-authenticated HTTP client.
package vcs

import (
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/nvael/codechange-agent/internal/config"
)

// GitRunner is the seam ExecGit implements; tests supply a fake.
type GitRunner interface {
	Run(dir string, args ...string) (string, error)
}

// ExecGit shells out to the git CLI.
type ExecGit struct{}

func (ExecGit) Run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Repo performs local git operations against one working tree.
type Repo struct {
	Git GitRunner
	Dir string
}

// NewRepo returns a Repo backed by the real git CLI.
func NewRepo(dir string) *Repo {
	return &Repo{Git: ExecGit{}, Dir: dir}
}

// SwitchToBranch checks out base and fast-forwards it from origin, then
// probes the remote for branch: if it already exists there, checks it out
// (creating a local tracking branch if needed) and rebases onto the
// remote tip; otherwise creates branch fresh from base (§4.4).
func (r *Repo) SwitchToBranch(branch, base string) error {
	if _, err := r.Git.Run(r.Dir, "checkout", base); err != nil {
		return fmt.Errorf("checkout base %s: %w", base, err)
	}
	if _, err := r.Git.Run(r.Dir, "pull", "--ff-only", "origin", base); err != nil {
		return fmt.Errorf("fast-forward base %s: %w", base, err)
	}

	remoteRef := "origin/" + branch
	if _, err := r.Git.Run(r.Dir, "ls-remote", "--exit-code", "--heads", "origin", branch); err != nil {
		_, err := r.Git.Run(r.Dir, "checkout", "-b", branch, base)
		if err != nil {
			return fmt.Errorf("create branch %s from %s: %w", branch, base, err)
		}
		return nil
	}

	if _, err := r.Git.Run(r.Dir, "rev-parse", "--verify", branch); err == nil {
		if _, err := r.Git.Run(r.Dir, "checkout", branch); err != nil {
			return fmt.Errorf("checkout existing local branch %s: %w", branch, err)
		}
	} else {
		if _, err := r.Git.Run(r.Dir, "checkout", "-b", branch, "--track", remoteRef); err != nil {
			return fmt.Errorf("create tracking branch %s: %w", branch, err)
		}
	}
	_, err := r.Git.Run(r.Dir, "rebase", remoteRef)
	if err != nil {
		return fmt.Errorf("rebase %s onto %s: %w", branch, remoteRef, err)
	}
	return nil
}

// Commit stages everything in the working tree and commits with message.
// Returns (false, nil) if there was nothing to commit.
func (r *Repo) Commit(message string) (bool, error) {
	if _, err := r.Git.Run(r.Dir, "add", "-A"); err != nil {
		return false, fmt.Errorf("git add: %w", err)
	}
	out, err := r.Git.Run(r.Dir, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return false, nil
	}
	if _, err := r.Git.Run(r.Dir, "commit", "-m", message); err != nil {
		return false, fmt.Errorf("git commit: %w", err)
	}
	return true, nil
}

// Push probes the remote for branch: if present, fetches, rebases onto
// it, and pushes; if absent, pushes with upstream set (§4.4). Both paths
// leave the local branch's tip visible on the remote.
func (r *Repo) Push(branch string) error {
	if _, err := r.Git.Run(r.Dir, "ls-remote", "--exit-code", "--heads", "origin", branch); err != nil {
		_, err := r.Git.Run(r.Dir, "push", "-u", "origin", branch)
		return err
	}
	if _, err := r.Git.Run(r.Dir, "fetch", "origin", branch); err != nil {
		return fmt.Errorf("fetch %s: %w", branch, err)
	}
	if _, err := r.Git.Run(r.Dir, "rebase", "origin/"+branch); err != nil {
		return fmt.Errorf("rebase onto origin/%s: %w", branch, err)
	}
	_, err := r.Git.Run(r.Dir, "push", "origin", branch)
	return err
}

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9-]+`)

// SlugBranchName slugifies featureRequest, truncated to 50 characters
// (§4.4, §9 Open Question: slug policy).
func SlugBranchName(featureRequest string) string {
	slug := strings.ToLower(strings.TrimSpace(featureRequest))
	slug = nonAlphaNum.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "change"
	}
	if len(slug) > 50 {
		slug = strings.Trim(slug[:50], "-")
	}
	return "agent/" + slug
}

// TimestampBranchName produces agent/YYYYMMDD_HHMM, the recommended
// default policy (§4.4): stable length regardless of user input.
func TimestampBranchName(now time.Time) string {
	return "agent/" + now.Format("20060102_1504")
}

// BranchName selects a branch name per the configured policy.
func BranchName(cfg *config.Config, now time.Time) string {
	if cfg.BranchPolicy == config.BranchPolicySlug {
		return SlugBranchName(cfg.FeatureRequest)
	}
	return TimestampBranchName(now)
}
