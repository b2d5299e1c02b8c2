package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tract-equity/internal/analysis"
	"github.com/sells-group/tract-equity/internal/report"
)

var (
	analyzeStudy  string
	analyzeOut    string
	analyzeSample int
	analyzeSeed   uint64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Fetch, merge and summarize the study, then render charts and maps",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if analyzeOut != "" {
			cfg.Output.Dir = analyzeOut
		}
		_, err := runAnalyze(ctx, cmd.OutOrStdout())
		return err
	},
}

// runAnalyze runs the pipeline, prints the county summaries and renders every
// artifact into the output directory.
func runAnalyze(ctx context.Context, w io.Writer) (*report.Manifest, error) {
	env, err := initEnv(ctx, "analyze", analyzeStudy)
	if err != nil {
		return nil, err
	}
	defer env.Close()

	log := zap.L().With(zap.String("command", "analyze"))

	res, err := env.Pipeline.Run(ctx)
	if err != nil {
		logStageError(log, err)
		return nil, err
	}

	if err := report.WriteSummaries(w, env.Study, res.Groups); err != nil {
		return nil, err
	}
	if analyzeSample > 0 {
		if err := writeSamples(w, env.Study, res); err != nil {
			return nil, err
		}
	}

	presenter, err := report.NewPresenter(report.Options{
		Dir:         cfg.Output.Dir,
		Concurrency: cfg.Output.Concurrency,
		MapStyle:    cfg.Output.MapStyle,
		MapZoom:     cfg.Output.MapZoom,
	})
	if err != nil {
		return nil, err
	}

	m, err := presenter.Render(ctx, env.Study, res)
	if err != nil {
		return nil, eris.Wrap(err, "analyze: render")
	}

	log.Info("analysis complete",
		zap.String("run_id", res.RunID),
		zap.Int("artifacts", len(m.Artifacts)),
		zap.Int("anomalies", len(res.Anomalies)),
		zap.String("dir", presenter.Dir()),
	)
	return m, nil
}

// writeSamples prints up to analyzeSample random tracts of the first group
// for each county.
func writeSamples(w io.Writer, study *analysis.Study, res *analysis.Result) error {
	if len(res.Groups) == 0 {
		return nil
	}
	gr := res.Groups[0]
	seed := analyzeSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	for _, c := range study.Counties {
		sub, err := gr.Tracts.Where(study.LabelColumn, c.Label)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "\n%s sample (%s)\n", gr.Group.Title, c.Name); err != nil {
			return eris.Wrap(err, "write sample header")
		}
		if err := report.WriteSample(w, sub.Sample(analyzeSample, rng)); err != nil {
			return err
		}
	}
	return nil
}

func logStageError(log *zap.Logger, err error) {
	var stageErr *analysis.Error
	if errors.As(err, &stageErr) {
		log.Error("pipeline failed",
			zap.String("stage", stageErr.Stage),
			zap.String("kind", stageErr.Kind.String()),
			zap.Error(stageErr.Err),
		)
		return
	}
	log.Error("pipeline failed", zap.Error(err))
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeStudy, "study", "", "study definition YAML (default from config, else built-in)")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "", "output directory (default from config)")
	analyzeCmd.Flags().IntVar(&analyzeSample, "sample", 0, "print N random tracts per county")
	analyzeCmd.Flags().Uint64Var(&analyzeSeed, "seed", 0, "sample seed (0 picks one from the clock)")
	rootCmd.AddCommand(analyzeCmd)
}
