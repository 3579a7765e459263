// Package cli wires configuration, logging and signal handling around the
// entry point of each command.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/inertial_i2c/internal/config"
)

// RunFunc is the body of a command. It returns when ctx is done.
type RunFunc func(ctx context.Context, cfg *config.Config) error

// NewCommand returns a command that loads the configuration, sets the log
// level and calls run with a context cancelled on SIGINT or SIGTERM.
func NewCommand(use, short string, run RunFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: short + `.

Configuration is read from a KEY=VALUE file (--config). Every key can be
overridden by an environment variable with the ` + config.EnvPrefix + `_ prefix,
e.g. ` + config.EnvPrefix + `_IMU_GYRO_RANGE=1. An empty --config uses defaults and
environment only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			if err := config.InitGlobal(path); err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg := config.Get()

			level := cfg.LogLevel
			if cmd.Flags().Changed("log-level") {
				s, _ := cmd.Flags().GetString("log-level")
				l, err := log.ParseLevel(s)
				if err != nil {
					return err
				}
				level = l
			}
			log.SetLevel(level)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().String("config", config.DefaultPath, "path to configuration file")
	cmd.Flags().String("log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	return cmd
}

// Execute runs cmd and exits non-zero on error.
func Execute(cmd *cobra.Command) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if err := cmd.Execute(); err != nil {
		log.WithError(err).Fatal("fatal")
	}
}
