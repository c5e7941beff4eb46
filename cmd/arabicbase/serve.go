package main

import (
	"log/slog"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/arabicbase/arabicbase/internal/config"
	"github.com/arabicbase/arabicbase/internal/di/providers"
	"github.com/arabicbase/arabicbase/internal/logger"
)

// commandFlags maps command-local flag names onto config keys.
var commandFlags = map[string]string{
	"port":       "server.port",
	"rate-limit": "server.rate_limit",
}

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the persistence API over the local database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := do.Invoke[*providers.HTTPServerHandle](a.injector); err != nil {
				return err
			}
			a.watchLogLevel()
			<-cmd.Context().Done()
			a.logger().Info("shutting down server gracefully")
			return nil
		},
	}
	cmd.Flags().String("port", "", "HTTP listen port")
	cmd.Flags().Float64("rate-limit", 0, "requests per second per client, 0 disables limiting")
	return cmd
}

// watchLogLevel applies log level edits in the config file without a
// restart. Other settings take effect on the next start.
func (a *app) watchLogLevel() {
	level := do.MustInvoke[*slog.LevelVar](a.injector)
	log := a.logger()

	watching := config.Watch(a.v, func(cfg *config.Config) {
		next := logger.ParseLevel(cfg.Log.Level)
		if next == level.Level() {
			return
		}
		level.Set(next)
		log.Info("log level changed", slog.String("level", next.String()))
	}, func(err error) {
		log.Warn("config reload rejected", logger.Err(err))
	})
	if watching {
		log.Debug("watching config file", slog.String("file", a.v.ConfigFileUsed()))
	}
}
