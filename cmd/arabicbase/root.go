package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arabicbase/arabicbase/internal/cache"
	"github.com/arabicbase/arabicbase/internal/config"
	"github.com/arabicbase/arabicbase/internal/di"
	"github.com/arabicbase/arabicbase/internal/di/providers"
	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/logger"
)

// globalFlags maps persistent flag names onto config keys.
var globalFlags = map[string]string{
	"data-dir":    "app.data_dir",
	"env":         "app.environment",
	"log-level":   "log.level",
	"log-format":  "log.format",
	"sqlite-path": "store.sqlite_path",
	"remote-url":  "store.remote_url",
	"token":       "store.token",
	"user":        "store.user_id",
}

// app holds state shared by every command of one invocation.
type app struct {
	v        *viper.Viper
	out      io.Writer
	cfgFile  string
	asJSON   bool
	cfg      *config.Config
	injector *do.RootScope
}

func newApp(out io.Writer) *app {
	return &app{v: config.New(), out: out}
}

// rootCommand builds the command tree.
func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "arabicbase",
		Short:         "ArabicBase vocabulary engine",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default ./config.yaml or ~/.arabicbase/config.yaml)")
	flags.BoolVar(&a.asJSON, "json", false, "print results as JSON")
	flags.String("data-dir", "", "directory for the database, keys and snapshots")
	flags.String("env", "", "environment: development, staging or production")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: pretty or json")
	flags.String("sqlite-path", "", "local SQLite database path")
	flags.String("remote-url", "", "base URL of a remote ArabicBase API")
	flags.String("token", "", "bearer token for the remote API")
	flags.String("user", "", "user id for the local store")

	root.AddCommand(
		a.serveCommand(),
		a.tokenCommand(),
		a.entriesCommand(),
		a.voteCommand(),
		a.catalogCommand("dialects", domain.CatalogDialect),
		a.catalogCommand("categories", domain.CatalogCategory),
	)
	return root
}

// init loads configuration and builds the container. Commands bind their
// own flags before calling it through the persistent hook.
func (a *app) init(cmd *cobra.Command) error {
	if err := config.BindFlags(a.v, cmd.Flags(), globalFlags); err != nil {
		return err
	}
	if err := config.BindFlags(a.v, cmd.Flags(), commandFlags); err != nil {
		return err
	}

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.injector = di.NewContainer(cfg)
	return nil
}

// shutdown stops every service the command started.
func (a *app) shutdown() error {
	if a.injector == nil {
		return nil
	}
	if errs := a.injector.Shutdown(); errs != nil {
		return errs
	}
	return nil
}

func (a *app) logger() *slog.Logger {
	log, err := do.Invoke[*slog.Logger](a.injector)
	if err != nil {
		return logger.Discard()
	}
	return log
}

// engine returns a signed-in cache, warmed from the local snapshot first.
func (a *app) engine(ctx context.Context) (*cache.Cache, error) {
	h, err := do.Invoke[*providers.CacheHandle](a.injector)
	if err != nil {
		return nil, err
	}

	if restored, err := h.Restore(ctx); err != nil {
		a.logger().Warn("snapshot restore failed", logger.Err(err))
	} else if restored {
		a.logger().Debug("library restored from snapshot")
	}

	if err := h.SignIn(ctx); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	return h.Cache, nil
}

// waitForEnrichment blocks until the pipeline has no pending work or the
// enrichment timeout passes twice over.
func (a *app) waitForEnrichment(ctx context.Context) error {
	p, err := do.Invoke[*providers.PipelineHandle](a.injector)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*a.cfg.Enrichment.Timeout)
	defer cancel()
	return p.WaitIdle(ctx)
}
