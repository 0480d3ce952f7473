package cmd

import (
	"github.com/Potenup-community/backend-sub002/internal/bootstrap"
	"github.com/spf13/cobra"
)

var seedCount int
var seedBatchSize int

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with fake resume review requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, flush := loadRuntime()
		defer flush()

		return bootstrap.Seed(cmd.Context(), cfg, log, seedCount, seedBatchSize)
	},
}

func init() {
	seedCmd.Flags().IntVar(&seedCount, "count", 10, "number of reviews to seed")
	seedCmd.Flags().IntVar(&seedBatchSize, "batch-size", 100, "reviews per transaction")
	rootCmd.AddCommand(seedCmd)
}
