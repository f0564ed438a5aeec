// Package snapshot produces a deterministic textual snapshot of a working
// tree for LLM context (C1). The same Options must be used for every
// snapshot taken within one run so that Planner and Generator prompts
// cross-reference the same view of the repository.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// OversizeMode decides what happens to a file larger than MaxFileBytes.
type OversizeMode int

const (
	// Truncate keeps the first MaxFileBytes of the file and appends a
	// marker.
	Truncate OversizeMode = iota
	// Skip omits the file from the snapshot entirely.
	Skip
)

const truncateMarker = "\n...[truncated]\n"

// DefaultIgnoreDirs is the ignore set named in §6: version control,
// dependency cache, build output, hosting-platform cache directories.
var DefaultIgnoreDirs = []string{".git", "node_modules", "dist", "build", ".next", ".vercel", "vendor"}

// DefaultIgnoreFiles is the lockfile ignore set named in §6.
var DefaultIgnoreFiles = []string{"package-lock.json", "yarn.lock", "pnpm-lock.yaml", "go.sum"}

// DefaultMaxFileBytes is the byte cap named in §6.
const DefaultMaxFileBytes = 20000

// Options controls what Snapshot includes and how it handles oversized
// files.
type Options struct {
	IgnoreDirs   []string
	IgnoreFiles  []string
	MaxFileBytes int
	OnOversize   OversizeMode
}

// DefaultOptions returns the snapshot conventions from §6.
func DefaultOptions() Options {
	return Options{
		IgnoreDirs:   DefaultIgnoreDirs,
		IgnoreFiles:  DefaultIgnoreFiles,
		MaxFileBytes: DefaultMaxFileBytes,
		OnOversize:   Truncate,
	}
}

// Snapshot walks root in sorted order and returns a single textual blob:
// each included file rendered as "path\n---\ncontent\n", concatenated.
// Deterministic given the same working tree and Options.
func Snapshot(root string, opts Options) (string, error) {
	ignoreDirs := toSet(opts.IgnoreDirs)
	ignoreFiles := toSet(opts.IgnoreFiles)
	maxBytes := opts.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if ignoreDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if ignoreFiles[d.Name()] {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)

	var sb strings.Builder
	for _, rel := range paths {
		content, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			return "", fmt.Errorf("read %s: %w", rel, err)
		}
		if len(content) > maxBytes {
			if opts.OnOversize == Skip {
				continue
			}
			content = append(content[:maxBytes:maxBytes], []byte(truncateMarker)...)
		}
		sb.WriteString(filepath.ToSlash(rel))
		sb.WriteString("\n---\n")
		sb.Write(content)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}
