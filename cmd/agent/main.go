// Command agent is the process entrypoint for one autonomous run: it
// reads configuration from the environment, wires every component
// together, runs the orchestrator once, and exits with the resulting
// code (§6). It takes no subcommands and no positional arguments.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nvael/codechange-agent/internal/codereview"
	"github.com/nvael/codechange-agent/internal/config"
	"github.com/nvael/codechange-agent/internal/db"
	"github.com/nvael/codechange-agent/internal/diffset"
	"github.com/nvael/codechange-agent/internal/filegen"
	"github.com/nvael/codechange-agent/internal/flow"
	"github.com/nvael/codechange-agent/internal/llm"
	"github.com/nvael/codechange-agent/internal/orchestrator"
	"github.com/nvael/codechange-agent/internal/planner"
	"github.com/nvael/codechange-agent/internal/review"
	"github.com/nvael/codechange-agent/internal/testgate"
	"github.com/nvael/codechange-agent/internal/testgen"
	"github.com/nvael/codechange-agent/internal/testrepair"
	"github.com/nvael/codechange-agent/internal/testrun"
	"github.com/nvael/codechange-agent/internal/vcs"
)

var rootCmd = &cobra.Command{
	Use:   "agent",
	Short: "agent drives one autonomous code-change run",
	Long: `agent reads FEATURE_REQUEST and the surrounding repository configuration
from the environment, plans a sequence of steps against the working
tree, generates and commits each step's file changes, opens or updates
a pull request, runs the project's review and test-gating stages, and
repairs failing tests up to a bounded number of rounds.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
	SilenceUsage: true,
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if path := os.Getenv("CODE_RULES_FILE"); path != "" {
		rules, err := config.LoadCodeRules(path)
		if err != nil {
			return fmt.Errorf("load code rules: %w", err)
		}
		cfg.CodeRules = rules
	}

	client, err := llm.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("build LLM client: %w", err)
	}

	ghClient := vcs.NewGitHubClient(cfg.GitHubToken)
	repo := vcs.NewRepo(cfg.WorkDir)

	plannerStage, err := planner.New(client)
	if err != nil {
		return fmt.Errorf("build planner: %w", err)
	}
	fileGen, err := filegen.New(client, cfg.FrontendRoot)
	if err != nil {
		return fmt.Errorf("build file generator: %w", err)
	}
	reviewer, err := codereview.New(client)
	if err != nil {
		return fmt.Errorf("build reviewer: %w", err)
	}
	reviewer.Logger = logger
	gate, err := testgate.New(client)
	if err != nil {
		return fmt.Errorf("build test gate: %w", err)
	}
	gate.Logger = logger
	testGen, err := testgen.New(client, cfg.TestRoot)
	if err != nil {
		return fmt.Errorf("build test generator: %w", err)
	}
	testRepair, err := testrepair.New(client, cfg.TestRoot)
	if err != nil {
		return fmt.Errorf("build test repairer: %w", err)
	}

	f := &flow.Flow{
		Cfg:        cfg,
		Repo:       repo,
		PRs:        vcs.NewPRClient(ghClient, cfg.Owner, cfg.Repo),
		Review:     review.NewSurface(ghClient, cfg.Owner, cfg.Repo),
		Diffs:      diffset.New(),
		FileGen:    fileGen,
		Reviewer:   reviewer,
		Gate:       gate,
		TestGen:    testGen,
		TestRepair: testRepair,
		TestRunner: testrun.NewRunner(cfg.TestCommand),
		Progress:   os.Stderr,
	}

	var database *db.DB
	if cfg.DatabaseURL != "" {
		database, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open event log: %w", err)
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate event log: %w", err)
		}
	}

	o := orchestrator.New(cfg, repo, plannerStage, f, database)
	o.Logger = logger
	result := o.Run(ctx)

	exitCode := result.ExitCode()
	if exitCode != 0 {
		logger.Error("run ended", "state", result.State, "branch", result.BranchName, "pr", result.PRNumber, "error", result.Err)
	} else {
		logger.Info("run ended", "state", result.State, "branch", result.BranchName, "pr", result.PRNumber)
	}

	os.Exit(exitCode)
	return nil
}
