package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"FEATURE_REQUEST", "GITHUB_TOKEN", "GH_TOKEN", "GITHUB_REPOSITORY",
		"LLM_PROVIDER", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "LLM_MODEL",
		"MAX_FIX_ROUNDS", "PARTIAL_TESTING_ENABLED", "FRONTEND_ROOT",
		"TEST_ROOT", "BASE_BRANCH", "WORKDIR", "FACTORY_VERBOSE",
	} {
		orig, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, orig)
			}
		})
	}
}

func TestLoadRequiresFeatureRequest(t *testing.T) {
	clearEnv(t)
	os.Setenv("GITHUB_TOKEN", "tok")
	os.Setenv("GITHUB_REPOSITORY", "owner/repo")
	os.Setenv("OPENAI_API_KEY", "key")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing FEATURE_REQUEST")
	}
}

func TestLoadDefaultsProviderOpenAI(t *testing.T) {
	clearEnv(t)
	os.Setenv("FEATURE_REQUEST", "add a page")
	os.Setenv("GITHUB_TOKEN", "tok")
	os.Setenv("GITHUB_REPOSITORY", "owner/repo")
	os.Setenv("OPENAI_API_KEY", "key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("Provider = %q, want %q", cfg.Provider, ProviderOpenAI)
	}
	if cfg.Owner != "owner" || cfg.Repo != "repo" {
		t.Errorf("Owner/Repo = %q/%q, want owner/repo", cfg.Owner, cfg.Repo)
	}
	if cfg.BranchPolicy != BranchPolicyTimestamp {
		t.Errorf("BranchPolicy = %q, want timestamp default", cfg.BranchPolicy)
	}
	if cfg.MaxFixRounds != 3 {
		t.Errorf("MaxFixRounds = %d, want 3", cfg.MaxFixRounds)
	}
	if cfg.PartialTestingEnabled {
		t.Errorf("PartialTestingEnabled should default to false")
	}
}

func TestLoadAnthropicRequiresItsKey(t *testing.T) {
	clearEnv(t)
	os.Setenv("FEATURE_REQUEST", "add a page")
	os.Setenv("GITHUB_TOKEN", "tok")
	os.Setenv("GITHUB_REPOSITORY", "owner/repo")
	os.Setenv("LLM_PROVIDER", "anthropic")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing ANTHROPIC_API_KEY")
	}

	os.Setenv("ANTHROPIC_API_KEY", "key")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIKey != "key" {
		t.Errorf("APIKey = %q, want key", cfg.APIKey)
	}
}

func TestLoadRejectsMalformedRepository(t *testing.T) {
	clearEnv(t)
	os.Setenv("FEATURE_REQUEST", "add a page")
	os.Setenv("GITHUB_TOKEN", "tok")
	os.Setenv("GITHUB_REPOSITORY", "not-a-slash-pair")
	os.Setenv("OPENAI_API_KEY", "key")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for malformed GITHUB_REPOSITORY")
	}
}

func TestLoadAppliesFactoryYAMLOverridesBeforeEnv(t *testing.T) {
	clearEnv(t)
	os.Setenv("FEATURE_REQUEST", "add a page")
	os.Setenv("GITHUB_TOKEN", "tok")
	os.Setenv("GITHUB_REPOSITORY", "owner/repo")
	os.Setenv("OPENAI_API_KEY", "key")

	dir := t.TempDir()
	yaml := "base_branch: develop\ntest_root: tests/unit\nmax_fix_rounds: 5\n"
	if err := os.WriteFile(filepath.Join(dir, "factory.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.BaseBranch != "develop" {
		t.Errorf("BaseBranch = %q, want develop (from factory.yaml)", cfg.BaseBranch)
	}
	if cfg.TestRoot != "tests/unit" {
		t.Errorf("TestRoot = %q, want tests/unit (from factory.yaml)", cfg.TestRoot)
	}
	if cfg.MaxFixRounds != 5 {
		t.Errorf("MaxFixRounds = %d, want 5 (from factory.yaml)", cfg.MaxFixRounds)
	}

	os.Setenv("BASE_BRANCH", "release")
	os.Setenv("MAX_FIX_ROUNDS", "1")
	t.Cleanup(func() { os.Unsetenv("BASE_BRANCH"); os.Unsetenv("MAX_FIX_ROUNDS") })

	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.BaseBranch != "release" {
		t.Errorf("BaseBranch = %q, want env override release", cfg.BaseBranch)
	}
	if cfg.MaxFixRounds != 1 {
		t.Errorf("MaxFixRounds = %d, want env override 1", cfg.MaxFixRounds)
	}
}

func TestLoadCodeRulesMissingFileIsNotAnError(t *testing.T) {
	rules, err := LoadCodeRules(filepath.Join(t.TempDir(), "nope.md"))
	if err != nil {
		t.Fatalf("LoadCodeRules() error: %v", err)
	}
	if rules != "" {
		t.Errorf("rules = %q, want empty", rules)
	}
}

func TestLoadCodeRulesFrontMatter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.md")
	content := "---\nrules:\n  - never touch vendor/\n  - prefer functional components\n---\nUse the project's existing style.\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadCodeRules(path)
	if err != nil {
		t.Fatalf("LoadCodeRules() error: %v", err)
	}
	if rules == "" {
		t.Fatal("expected non-empty rules text")
	}
	if !strings.Contains(rules, "never touch vendor/") || !strings.Contains(rules, "existing style") {
		t.Errorf("rules = %q, missing expected content", rules)
	}
}
