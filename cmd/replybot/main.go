package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/STRATINT/replybot/internal/bot"
	"github.com/STRATINT/replybot/internal/config"
	"github.com/STRATINT/replybot/internal/database"
	"github.com/STRATINT/replybot/internal/dispatch"
	"github.com/STRATINT/replybot/internal/fetch"
	"github.com/STRATINT/replybot/internal/generation"
	"github.com/STRATINT/replybot/internal/logging"
	"github.com/STRATINT/replybot/internal/reply"
	"github.com/STRATINT/replybot/internal/social"
	"github.com/STRATINT/replybot/internal/state"
	"github.com/STRATINT/replybot/internal/targets"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dryRun, seed bool

	cmd := &cobra.Command{
		Use:           "replybot",
		Short:         "Reply to fresh original posts of configured X accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				fatal(config.LoggingConfig{Level: slog.LevelInfo, Format: "json"}, "failed to load config", err)
				return err
			}
			if cmd.Flags().Changed("dry-run") {
				cfg.Bot.DryRun = dryRun
			}
			if cmd.Flags().Changed("seed") {
				cfg.Bot.SeedMode = seed
			}

			if err := run(cmd.Context(), cfg); err != nil {
				fatal(cfg.Logging, "run failed", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log replies instead of posting them (overrides DRY_RUN)")
	cmd.Flags().BoolVar(&seed, "seed", false, "only record each target's newest post as seen (overrides SEED_MODE)")
	return cmd
}

// fatal writes err to stderr in the configured log format.
func fatal(cfg config.LoggingConfig, msg string, err error) {
	logger, lerr := logging.NewWithWriter(cfg, os.Stderr)
	if lerr != nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	logger.Error(msg, "error", err)
}

func run(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	baseLogger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	logger := baseLogger.With("run_id", uuid.NewString())

	if len(cfg.Bot.Handles) == 0 {
		logger.Info("no targets configured, nothing to do", "event", "skip")
		return nil
	}
	if err := checkCredentials(cfg); err != nil {
		return err
	}

	logger.Info("starting replybot",
		"targets", len(cfg.Bot.Handles),
		"dry_run", cfg.Bot.DryRun,
		"seed_mode", cfg.Bot.SeedMode,
		"fresh_window", cfg.Bot.FreshWindow.String(),
		"max_replies_per_target", cfg.Bot.MaxRepliesPerTarget,
		"state_backend", cfg.State.Backend)

	backend, closeBackend, err := openBackend(ctx, cfg.State, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	progress, err := state.OpenProgress(ctx, backend)
	if err != nil {
		return err
	}
	identities, err := state.OpenIdentityCache(ctx, backend)
	if err != nil {
		return err
	}

	client := social.NewTwitterClient(cfg.Twitter, logger)

	resolver := targets.NewResolver(identities, client, logger)
	resolved, err := resolver.Resolve(ctx, cfg.Bot.Handles, cfg.Bot.ExplicitIDs())
	if err != nil {
		return err
	}

	gate := fetch.NewCooldownGate(progress, cfg.Bot.ReadCooldown, time.Now)
	engine := fetch.NewEngine(client, gate, time.Now, logger)

	var composer bot.Composer
	if !cfg.Bot.SeedMode {
		generator := generation.NewOpenAIClient(cfg.OpenAI, logger)
		composer = reply.NewPipeline(generator, reply.OptionsFromConfig(cfg.Bot), logger)
	}
	sender := dispatch.NewDispatcher(client, cfg.Bot.DryRun, cfg.Bot.PostDelay, dispatch.Sleep, logger)

	runner := bot.NewRunner(progress, engine, composer, sender, bot.Options{
		FreshWindow:         cfg.Bot.FreshWindow,
		MaxRepliesPerTarget: cfg.Bot.MaxRepliesPerTarget,
	}, logger)

	if cfg.Bot.SeedMode {
		_, err = runner.Seed(ctx, resolved)
	} else {
		_, err = runner.Run(ctx, resolved)
	}
	return err
}

// checkCredentials fails early when the selected mode needs a credential
// that is not configured.
func checkCredentials(cfg config.Config) error {
	var missing []error
	if cfg.Twitter.BearerToken == "" {
		missing = append(missing, errors.New("X_BEARER_TOKEN is required to read posts"))
	}
	if !cfg.Bot.SeedMode {
		if cfg.OpenAI.APIKey == "" {
			missing = append(missing, errors.New("OPENAI_API_KEY is required to generate replies"))
		}
		if !cfg.Bot.DryRun && !cfg.Twitter.CanPost() {
			missing = append(missing, errors.New("X_API_KEY, X_API_SECRET, X_ACCESS_TOKEN and X_ACCESS_TOKEN_SECRET are required to post"))
		}
	}
	return errors.Join(missing...)
}

func openBackend(ctx context.Context, cfg config.StateConfig, logger *slog.Logger) (state.Backend, func(), error) {
	switch cfg.Backend {
	case "postgres":
		dbURL, err := database.BuildURL(cfg)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("database configuration", "config", database.Describe(cfg))

		db, err := database.Connect(ctx, database.DefaultConfig(dbURL))
		if err != nil {
			return nil, nil, err
		}
		if err := database.RunMigrations(ctx, db, logger); err != nil {
			db.Close()
			return nil, nil, err
		}
		return state.NewPostgresBackend(db), func() { db.Close() }, nil
	default:
		backend, err := state.NewFileBackend(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("using file state backend", "dir", cfg.Dir)
		return backend, func() {}, nil
	}
}
