package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-fed-dashboard/internal/config"
	httpapi "go-fed-dashboard/internal/http"
	"go-fed-dashboard/internal/logging"
)

var version = "dev"

// cfg is loaded once the root command has parsed its flags.
var cfg config.Config

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:          "fedboard",
		Short:        "Data federation dashboard API",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configFile != "" {
				if err := os.Setenv(config.EnvConfigFile, configFile); err != nil {
					return errors.Wrap(err, "failed to set config file")
				}
			}
			cfg = config.FromEnv()
			return logging.Setup(cfg.LogLevel, cfg.LogFormat)
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "env-style config file (overrides "+config.EnvConfigFile+")")

	root.AddCommand(newServeCommand())
	root.AddCommand(newServersCommand())
	root.AddCommand(newDowntimeCommand())
	root.AddCommand(newPagesCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv, err := httpapi.NewServer(cfg)
			if err != nil {
				return errors.Wrap(err, "failed to initialize server")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.WithField("version", version).Infof("Starting API server on %s", cfg.ListenAddr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			log.Info("Shutting down API server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
