package cmd

import (
	"github.com/Potenup-community/backend-sub002/internal/bootstrap"
	"github.com/spf13/cobra"
)

var consumerCmd = &cobra.Command{
	Use:   "consumer",
	Short: "Consume resume review events into the inbox table",
	Long: `Consume resume review events from the configured broker. Each delivery is
recorded once per dedup key, so redeliveries and republished outbox records are
acknowledged without being processed again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, flush := loadRuntime()
		defer flush()

		if err := bootstrap.RunConsumer(cmd.Context(), cfg, log); err != nil {
			log.WithError(err).Error("consumer stopped with error")
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(consumerCmd)
}
