// Package config assembles a single Config value object from environment
// variables at process startup and passes it by parameter to every
// component — there is no global configuration state.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// BranchPolicy selects how the Orchestrator derives a branch name.
type BranchPolicy string

const (
	// BranchPolicyTimestamp produces agent/YYYYMMDD_HHMM. Recommended: it
	// avoids filename-length failures on arbitrary user input.
	BranchPolicyTimestamp BranchPolicy = "timestamp"
	// BranchPolicySlug produces a slugified feature request truncated to
	// 50 characters.
	BranchPolicySlug BranchPolicy = "slug"
)

// Provider selects the LLM backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Config is the environment-driven configuration for one run, plus the
// handful of overridable policy knobs the orchestrator needs (§6, §9).
type Config struct {
	FeatureRequest string
	GitHubToken    string
	Owner          string
	Repo           string

	Provider Provider
	APIKey   string
	Model    string

	BaseBranch string
	WorkDir    string

	BranchPolicy BranchPolicy

	// PartialTestingEnabled toggles the review-plus-tests partial-step
	// flow variant (§4.13, §9 Open Question). Default false: tests run
	// only at the final flow, recommended for cost reasons.
	PartialTestingEnabled bool

	// MaxFixRounds bounds the test-repair loop (k in §4.13/§4.14).
	MaxFixRounds int

	// FrontendRoot is the path prefix the Planner's prompt restricts
	// itself to and the Generator (C8) enforces defensively (§9 Open
	// Question resolution, DESIGN.md).
	FrontendRoot string

	// TestRoot is the designated root for unit tests (§6: __tests__/unit).
	TestRoot string

	// Verbose gates logging of raw LLM prompts/responses.
	Verbose bool

	// CodeRules is free-text guidance injected into Planner/Generator
	// prompts, optionally loaded from a YAML/Markdown front-matter file.
	CodeRules string

	// ReasoningEffort is an optional hint ("low", "medium", "high")
	// forwarded to providers that support it. Empty means provider
	// default.
	ReasoningEffort string

	// TestCommand is the shell command the final flow and partial-testing
	// variant run from WorkDir to check whether the suite is green (§4.14).
	TestCommand string

	// DatabaseURL is an optional Postgres DSN for the run-event log
	// (internal/db). Empty disables event logging.
	DatabaseURL string
}

// Load assembles a Config from the process environment, with an optional
// factory.yaml override layer read first to supply defaults env vars can
// still win over (§6). Missing required variables are a config error
// (§7): fatal, reported before any side effect.
func Load() (*Config, error) {
	ov := loadDefaultFileOverrides()
	if ov == nil {
		ov = &fileOverrides{}
	}

	cfg := &Config{
		FeatureRequest:  os.Getenv("FEATURE_REQUEST"),
		GitHubToken:     firstNonEmpty(os.Getenv("GITHUB_TOKEN"), os.Getenv("GH_TOKEN")),
		Provider:        Provider(firstNonEmpty(os.Getenv("LLM_PROVIDER"), ov.Provider, string(ProviderOpenAI))),
		Model:           firstNonEmpty(os.Getenv("LLM_MODEL"), ov.Model),
		BaseBranch:      firstNonEmpty(os.Getenv("BASE_BRANCH"), ov.BaseBranch, "main"),
		WorkDir:         firstNonEmpty(os.Getenv("WORKDIR"), ov.WorkDir, "."),
		BranchPolicy:    BranchPolicyTimestamp,
		MaxFixRounds:    3,
		FrontendRoot:    firstNonEmpty(os.Getenv("FRONTEND_ROOT"), ov.FrontendRoot),
		TestRoot:        firstNonEmpty(os.Getenv("TEST_ROOT"), ov.TestRoot, "__tests__/unit"),
		Verbose:         os.Getenv("FACTORY_VERBOSE") != "",
		ReasoningEffort: firstNonEmpty(os.Getenv("LLM_REASONING_EFFORT"), ov.ReasoningEffort),
		TestCommand:     firstNonEmpty(os.Getenv("TEST_COMMAND"), ov.TestCommand, "npm test"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
	}
	if ov.PartialTestingEnabled {
		cfg.PartialTestingEnabled = true
	}

	repository := os.Getenv("GITHUB_REPOSITORY")
	owner, repo, err := splitRepository(repository)
	if err != nil {
		return nil, err
	}
	cfg.Owner, cfg.Repo = firstNonEmpty(owner, ov.Owner), firstNonEmpty(repo, ov.Repo)

	switch cfg.Provider {
	case ProviderAnthropic:
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case ProviderOpenAI:
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q (want %q or %q)", cfg.Provider, ProviderOpenAI, ProviderAnthropic)
	}

	var missing []string
	if cfg.FeatureRequest == "" {
		missing = append(missing, "FEATURE_REQUEST")
	}
	if cfg.GitHubToken == "" {
		missing = append(missing, "GITHUB_TOKEN")
	}
	if cfg.Owner == "" || cfg.Repo == "" {
		missing = append(missing, "GITHUB_REPOSITORY")
	}
	if cfg.APIKey == "" {
		missing = append(missing, apiKeyVarName(cfg.Provider))
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	if ov.MaxFixRounds > 0 {
		cfg.MaxFixRounds = ov.MaxFixRounds
	}
	if v := os.Getenv("MAX_FIX_ROUNDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_FIX_ROUNDS %q: %w", v, err)
		}
		cfg.MaxFixRounds = n
	}
	if os.Getenv("PARTIAL_TESTING_ENABLED") != "" {
		cfg.PartialTestingEnabled = true
	}

	return cfg, nil
}

func apiKeyVarName(p Provider) string {
	if p == ProviderAnthropic {
		return "ANTHROPIC_API_KEY"
	}
	return "OPENAI_API_KEY"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func splitRepository(repository string) (owner, repo string, err error) {
	if repository == "" {
		return "", "", nil
	}
	for i := 0; i < len(repository); i++ {
		if repository[i] == '/' {
			return repository[:i], repository[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("GITHUB_REPOSITORY %q is not in owner/repo form", repository)
}
