package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tract-equity/internal/analysis"
	"github.com/sells-group/tract-equity/internal/census"
	"github.com/sells-group/tract-equity/internal/fetcher"
	"github.com/sells-group/tract-equity/internal/store"
	"github.com/sells-group/tract-equity/internal/tiger"
)

// runEnv holds the clients and study shared by analyze and export.
type runEnv struct {
	Study    *analysis.Study
	Pipeline *analysis.Pipeline
	Cache    *store.SQLiteCache // nil unless cache.enabled
}

// Close releases resources held by the environment.
func (e *runEnv) Close() {
	if e.Cache != nil {
		_ = e.Cache.Close()
	}
}

// initEnv builds the fetcher stack, Census client and pipeline for mode.
// studyPath overrides study.path when non-empty. Callers should defer
// env.Close().
func initEnv(ctx context.Context, mode, studyPath string) (*runEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	policy, err := analysis.ParsePolicy(cfg.Validation.Policy)
	if err != nil {
		return nil, err
	}

	study, err := loadStudy(studyPath)
	if err != nil {
		return nil, err
	}

	env := &runEnv{Study: study}

	var f fetcher.Fetcher = fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    cfg.Census.UserAgent,
		Timeout:      cfg.Census.Timeout(),
		MaxAttempts:  cfg.Census.MaxAttempts,
		RateLimiters: fetcher.DefaultRateLimiters(),
	})

	if cfg.Cache.Enabled {
		cache, err := openCache(ctx)
		if err != nil {
			return nil, err
		}
		env.Cache = cache
		f = fetcher.NewCached(f, cache, cfg.Cache.TTL())
		zap.L().Info("response cache enabled", zap.String("path", cfg.Cache.Path))
	}

	var boundaries census.Boundaries
	if cfg.Tiger.Enabled {
		boundaries = tiger.NewLoader(f, tiger.LoaderOptions{
			BaseURL: cfg.Tiger.BaseURL,
			Year:    cfg.Tiger.Year,
			Dir:     cfg.Tiger.Dir,
		})
	} else {
		zap.L().Warn("tiger boundaries disabled, maps will have no tracts")
	}

	client := census.NewClient(f, boundaries, census.Options{
		BaseURL: cfg.Census.BaseURL,
		APIKey:  cfg.Census.APIKey,
	})

	env.Pipeline = analysis.NewPipeline(client, study, analysis.Options{
		MetadataURL: cfg.Census.MetadataURL,
		Policy:      policy,
	})
	return env, nil
}

func loadStudy(path string) (*analysis.Study, error) {
	if path == "" {
		path = cfg.Study.Path
	}
	if path == "" {
		return analysis.DefaultStudy()
	}
	s, err := analysis.LoadStudy(path)
	if err != nil {
		return nil, eris.Wrap(err, "load study")
	}
	return s, nil
}

func openCache(ctx context.Context) (*store.SQLiteCache, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Cache.Path), 0o755); err != nil {
		return nil, eris.Wrap(err, "create cache dir")
	}
	cache, err := store.NewSQLite(cfg.Cache.Path)
	if err != nil {
		return nil, err
	}
	if err := cache.Migrate(ctx); err != nil {
		_ = cache.Close()
		return nil, eris.Wrap(err, "migrate cache")
	}
	return cache, nil
}
