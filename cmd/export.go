package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tract-equity/internal/db"
	"github.com/sells-group/tract-equity/internal/export"
)

var (
	exportStudy   string
	exportMigrate bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run the study and load tracts and county totals into PostGIS",
	Long: `Runs the fetch, merge and projection stages and writes the result to
tract_equity.tracts (upserted on group and GEOID, geometry as EWKB) and
tract_equity.county_summaries (appended per run).`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("export"); err != nil {
			return err
		}

		pool, err := db.Connect(ctx, cfg.Postgres.DatabaseURL, cfg.Postgres.MaxConns)
		if err != nil {
			return err
		}
		defer pool.Close()

		return runExport(ctx, cmd.OutOrStdout(), pool)
	},
}

// runExport runs the pipeline and writes its result through pool.
func runExport(ctx context.Context, w io.Writer, pool db.Pool) error {
	log := zap.L().With(zap.String("command", "export"))

	exp := export.New(pool)
	if exportMigrate {
		if err := exp.Migrate(ctx); err != nil {
			return err
		}
		log.Info("export schema ready")
	}

	env, err := initEnv(ctx, "export", exportStudy)
	if err != nil {
		return err
	}
	defer env.Close()

	res, err := env.Pipeline.Run(ctx)
	if err != nil {
		logStageError(log, err)
		return err
	}

	st, err := exp.Run(ctx, env.Study, res)
	if err != nil {
		return eris.Wrapf(err, "export run %s", res.RunID)
	}

	_, err = fmt.Fprintf(w, "run %s: %d tracts, %d county totals exported\n", res.RunID, st.Tracts, st.Summaries)
	return err
}

func init() {
	exportCmd.Flags().StringVar(&exportStudy, "study", "", "study definition YAML (default from config, else built-in)")
	exportCmd.Flags().BoolVar(&exportMigrate, "migrate", true, "create the export schema before loading")
	rootCmd.AddCommand(exportCmd)
}
