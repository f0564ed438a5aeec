package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileOverrides is the optional factory.yaml shape: every field mirrors a
// non-secret Config field. Tokens and API keys are never read from disk,
// only from the environment.
type fileOverrides struct {
	Owner                 string `yaml:"owner"`
	Repo                  string `yaml:"repo"`
	Provider              string `yaml:"provider"`
	Model                 string `yaml:"model"`
	BaseBranch            string `yaml:"base_branch"`
	WorkDir               string `yaml:"workdir"`
	FrontendRoot          string `yaml:"frontend_root"`
	TestRoot              string `yaml:"test_root"`
	TestCommand           string `yaml:"test_command"`
	MaxFixRounds          int    `yaml:"max_fix_rounds"`
	PartialTestingEnabled bool   `yaml:"partial_testing_enabled"`
	ReasoningEffort       string `yaml:"reasoning_effort"`
}

// loadFileOverrides reads and parses one factory.yaml file. It applies no
// defaults: unset fields stay empty and Load supplies the fallbacks.
func loadFileOverrides(path string) (*fileOverrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var ov fileOverrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return &ov, nil
}

// loadDefaultFileOverrides searches standard locations and loads the first
// factory.yaml found. Search order: ./factory.yaml, ~/.factory/config.yaml.
// Finding nothing is not an error: the override layer is optional and env
// vars are the source of truth.
func loadDefaultFileOverrides() *fileOverrides {
	candidates := []string{"factory.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".factory", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if ov, err := loadFileOverrides(path); err == nil {
			return ov
		}
	}
	return nil
}
