package cmd

import (
	"github.com/Potenup-community/backend-sub002/internal/bootstrap"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve the HTTP API",
	Long: `Serve the resume review HTTP API. With outbox.embedded_worker enabled the
outbox publisher runs in the same process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, flush := loadRuntime()
		defer flush()

		if err := bootstrap.Run(cmd.Context(), cfg, log); err != nil {
			log.WithError(err).Error("server stopped with error")
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
