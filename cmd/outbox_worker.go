package cmd

import (
	"github.com/Potenup-community/backend-sub002/internal/bootstrap"
	"github.com/spf13/cobra"
)

var outboxCmd = &cobra.Command{
	Use:   "outbox-worker",
	Short: "Publish pending outbox events to the configured broker",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, flush := loadRuntime()
		defer flush()

		log.Infof("outbox-worker: broker=%s batch=%d interval=%s", cfg.Broker.Driver, cfg.Outbox.BatchSize, cfg.Outbox.PollInterval)
		if err := bootstrap.RunWorker(cmd.Context(), cfg, log); err != nil {
			log.WithError(err).Error("outbox-worker stopped with error")
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(outboxCmd)
}
