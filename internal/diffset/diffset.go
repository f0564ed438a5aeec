// Package diffset extracts per-file patches and commit-message lists for
// two ranges: the latest commit (partial) and base..head (full), and
// parses the result into FileDiff records (C2).
package diffset

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/nvael/codechange-agent/internal/pipeline"
)

// GitRunner is the seam ExecGit implements; kept small and package-local
// so tests can supply a fake.
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
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, out)
	}
	return string(out), nil
}

// NoParentSentinel is the commit message used when HEAD has no parent
// (first commit on an empty branch).
const NoParentSentinel = "(initial commit, no prior history)"

// Extractor produces PRContext values from a git repository.
type Extractor struct {
	Git GitRunner
}

// New returns an Extractor backed by the real git CLI.
func New() *Extractor {
	return &Extractor{Git: ExecGit{}}
}

// Partial obtains the patch for HEAD~1..HEAD with full-file context and
// the single last commit message. If HEAD has no parent, returns an empty
// patch with the sentinel message (§4.2).
func (e *Extractor) Partial(dir string) (*pipeline.PRContext, error) {
	if _, err := e.Git.Run(dir, "rev-parse", "--verify", "HEAD~1"); err != nil {
		return &pipeline.PRContext{
			ChangedFiles:   nil,
			CommitMessages: []string{NoParentSentinel},
		}, nil
	}

	patch, err := e.Git.Run(dir, "diff", "-U1000000", "HEAD~1", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("diff HEAD~1..HEAD: %w", err)
	}
	msg, err := e.Git.Run(dir, "log", "-1", "--pretty=%s")
	if err != nil {
		return nil, fmt.Errorf("log HEAD: %w", err)
	}

	return &pipeline.PRContext{
		ChangedFiles:   parseUnifiedDiff(patch),
		CommitMessages: []string{strings.TrimSpace(msg)},
	}, nil
}

// Full resolves the merge-base of HEAD and base; if that fails, falls back
// to HEAD itself (empty diff). Obtains the patch merge_base..HEAD and the
// commit subjects+bodies in that range (§4.2).
func (e *Extractor) Full(dir, base string) (*pipeline.PRContext, error) {
	mergeBase, err := e.resolveMergeBase(dir, base)
	if err != nil {
		return &pipeline.PRContext{BaseRef: base}, nil
	}

	patch, err := e.Git.Run(dir, "diff", "-U1000000", mergeBase, "HEAD")
	if err != nil {
		return nil, fmt.Errorf("diff %s..HEAD: %w", mergeBase, err)
	}
	log, err := e.Git.Run(dir, "log", "--pretty=%s%n%b%n---", mergeBase+"..HEAD")
	if err != nil {
		return nil, fmt.Errorf("log %s..HEAD: %w", mergeBase, err)
	}

	return &pipeline.PRContext{
		BaseRef:        base,
		ChangedFiles:   parseUnifiedDiff(patch),
		CommitMessages: splitCommitMessages(log),
	}, nil
}

func (e *Extractor) resolveMergeBase(dir, base string) (string, error) {
	out, err := e.Git.Run(dir, "merge-base", base, "HEAD")
	return strings.TrimSpace(out), err
}

func splitCommitMessages(log string) []string {
	var out []string
	for _, part := range strings.Split(log, "\n---\n") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseUnifiedDiff splits a unified diff on "diff --git a/... b/..."
// headers and extracts the post-image path from the "+++ b/<path>"
// marker. Patch text (including both headers) is preserved verbatim per
// file.
func parseUnifiedDiff(patch string) []pipeline.FileDiff {
	if strings.TrimSpace(patch) == "" {
		return nil
	}

	var diffs []pipeline.FileDiff
	lines := strings.Split(patch, "\n")
	var current []string
	flush := func() {
		if len(current) == 0 {
			return
		}
		block := strings.Join(current, "\n")
		path := extractPostImagePath(current)
		if path != "" {
			diffs = append(diffs, pipeline.FileDiff{Path: path, RawPatch: block})
		}
		current = nil
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "diff --git ") {
			flush()
		}
		current = append(current, line)
	}
	flush()
	return diffs
}

func extractPostImagePath(blockLines []string) string {
	for _, line := range blockLines {
		if strings.HasPrefix(line, "+++ b/") {
			return strings.TrimPrefix(line, "+++ b/")
		}
		if strings.HasPrefix(line, "+++ ") {
			p := strings.TrimPrefix(line, "+++ ")
			if p == "/dev/null" {
				continue
			}
			return strings.TrimPrefix(p, "b/")
		}
	}
	// Deleted files have no post-image; fall back to the diff --git header.
	for _, line := range blockLines {
		if strings.HasPrefix(line, "diff --git a/") {
			fields := strings.Fields(line)
			if len(fields) >= 3 {
				return strings.TrimPrefix(fields[2], "b/")
			}
		}
	}
	return ""
}
