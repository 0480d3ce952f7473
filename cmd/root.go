package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/Potenup-community/backend-sub002/internal/bootstrap"
	"github.com/Potenup-community/backend-sub002/internal/config"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "community-backend",
	Short: "Resume review API with a transactional outbox",
	Long: `community-backend serves the resume review API and delivers its domain
events to RabbitMQ or NATS through a transactional outbox.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	},
}

// Execute runs the root command with a context cancelled on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
}

// loadRuntime reads the config and builds the logger shared by every command.
func loadRuntime() (config.Config, *logrus.Logger, func()) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	log, flush, err := bootstrap.BuildLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "log error:", err)
		os.Exit(1)
	}
	return cfg, log, flush
}
