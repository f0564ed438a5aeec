package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// codeRulesFrontMatter is the shape of the optional rules file: YAML
// front-matter (delimited by --- lines) followed by free-text Markdown
// that is passed through verbatim into Planner/Generator prompts.
type codeRulesFrontMatter struct {
	Rules []string `yaml:"rules"`
}

// LoadCodeRules reads a code-rules file (YAML front-matter + Markdown body)
// and renders it into the single text blob threaded through C7/C8 prompts.
// A missing path is not an error: it simply yields no extra rules.
func LoadCodeRules(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read code rules %s: %w", path, err)
	}

	front, body := splitFrontMatter(string(data))
	var rules string
	if front != "" {
		var fm codeRulesFrontMatter
		if err := yaml.Unmarshal([]byte(front), &fm); err != nil {
			return "", fmt.Errorf("parse code rules front matter: %w", err)
		}
		if len(fm.Rules) > 0 {
			rules = "- " + strings.Join(fm.Rules, "\n- ") + "\n\n"
		}
	}
	return rules + strings.TrimSpace(body), nil
}

// splitFrontMatter separates a leading "---\n...\n---\n" YAML block from
// the remaining Markdown body. Returns ("", content) when no front matter
// is present.
func splitFrontMatter(content string) (front, body string) {
	const delim = "---"
	if !strings.HasPrefix(content, delim) {
		return "", content
	}
	rest := content[len(delim):]
	idx := strings.Index(rest, "\n"+delim)
	if idx == -1 {
		return "", content
	}
	return strings.TrimPrefix(rest[:idx], "\n"), rest[idx+len(delim)+1:]
}
