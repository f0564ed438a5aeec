package testgen

import (
	"path"
	"regexp"
	"strings"

	"github.com/nvael/codechange-agent/internal/pipeline"
)

const (
	plainTestExt  = ".test.ts"
	markupTestExt = ".test.tsx"
)

var markupSourceExt = map[string]bool{
	".tsx": true,
	".jsx": true,
}

var markupImportRe = regexp.MustCompile(`(?m)^\s*import\s.*\bfrom\s+["'](react|react-dom|next/)`)

// isMarkupBearing reports whether a changed file is itself markup (.tsx,
// .jsx) or imports a markup-rendering library, per the teacher's
// named-parser-registry style: each predicate here plays the role one of
// the teacher's checks.Parser implementations played for a file kind.
func isMarkupBearing(diff pipeline.FileDiff) bool {
	if markupSourceExt[path.Ext(diff.Path)] {
		return true
	}
	return markupImportRe.MatchString(diff.Content) || markupImportRe.MatchString(diff.RawPatch)
}

// basename returns path without its directory and without a trailing
// test extension, so ".../Foo.test.tsx" and ".../Foo.test.ts" collide on
// the same key "Foo".
func basename(p string) string {
	name := path.Base(p)
	name = strings.TrimSuffix(name, markupTestExt)
	name = strings.TrimSuffix(name, plainTestExt)
	return name
}

// PostProcess enforces the two laws shared by the Test Generator and the
// Test Repairer: extension correctness relative to the diff's
// markup-bearing files, and dedup-by-basename with the markup variant
// winning ties.
func PostProcess(proposals []pipeline.TestProposal, diffs []pipeline.FileDiff, testRoot string) []pipeline.TestProposal {
	markupBasenames := make(map[string]bool)
	for _, d := range diffs {
		if isMarkupBearing(d) {
			name := basename(d.Path)
			markupBasenames[strings.TrimSuffix(name, path.Ext(name))] = true
		}
	}

	corrected := make([]pipeline.TestProposal, 0, len(proposals))
	for _, p := range proposals {
		name := basename(p.Path)
		dir := testRoot
		if dir == "" {
			dir = path.Dir(p.Path)
		}
		ext := plainTestExt
		if markupBasenames[name] {
			ext = markupTestExt
		}
		p.Path = path.Join(dir, name+ext)
		corrected = append(corrected, p)
	}

	return dedupeByBasename(corrected)
}

// dedupeByBasename keeps exactly one proposal per basename, preferring
// the markup extension when both appear for the same name.
func dedupeByBasename(proposals []pipeline.TestProposal) []pipeline.TestProposal {
	best := make(map[string]pipeline.TestProposal)
	order := make([]string, 0, len(proposals))
	for _, p := range proposals {
		name := basename(p.Path)
		existing, ok := best[name]
		if !ok {
			best[name] = p
			order = append(order, name)
			continue
		}
		if strings.HasSuffix(p.Path, markupTestExt) && !strings.HasSuffix(existing.Path, markupTestExt) {
			best[name] = p
		}
	}

	out := make([]pipeline.TestProposal, 0, len(order))
	for _, name := range order {
		out = append(out, best[name])
	}
	return out
}
