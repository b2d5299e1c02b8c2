package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tract-equity/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "tract-equity",
	Short: "Census tract transportation and demographics analysis",
	Long: `Fetches ACS tract tables for a set of counties, merges and projects them,
aggregates county totals, and renders bar charts, choropleth maps, a summary
workbook and an optional PostGIS export.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
