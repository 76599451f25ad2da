package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/movielens-insights/internal/clients/redis"
	"github.com/yungbote/movielens-insights/internal/db"
	"github.com/yungbote/movielens-insights/internal/jobs/pipeline"
	"github.com/yungbote/movielens-insights/internal/observability"
	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
	"github.com/yungbote/movielens-insights/internal/platform/gcp"
	"github.com/yungbote/movielens-insights/internal/platform/logger"
)

const serviceVersion = "0.1.0"

type App struct {
	Log    *logger.Logger
	Config *Config

	session      *pipeline.Session
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Environment: cfg.Env,
		Version:     serviceVersion,
	})

	deps, err := wireDeps(ctx, log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	session, err := pipeline.NewSession(log, cfg.PipelineOptions(), deps)
	if err != nil {
		closeDeps(deps)
		log.Sync()
		return nil, err
	}

	return &App{
		Log:          log,
		Config:       cfg,
		session:      session,
		otelShutdown: otelShutdown,
	}, nil
}

// wireDeps connects every optional sink that is configured.
func wireDeps(ctx context.Context, log *logger.Logger, cfg *Config) (pipeline.Deps, error) {
	var deps pipeline.Deps

	if storeCfg := cfg.StoreConfig(); storeCfg.Enabled() {
		store, err := db.Open(log, storeCfg)
		if err != nil {
			return deps, fmt.Errorf("init result store: %w", err)
		}
		if err := store.AutoMigrateAll(); err != nil {
			_ = store.Close()
			return deps, fmt.Errorf("result store automigrate: %w", err)
		}
		deps.Store = store
		log.Info("Result store ready", "driver", store.Driver())
	}

	if strings.TrimSpace(cfg.Cache.RedisAddr) != "" {
		pub, err := redis.NewPublisher(log, cfg.PublisherConfig())
		if err != nil {
			closeDeps(deps)
			return deps, fmt.Errorf("init redis publisher: %w", err)
		}
		deps.Publisher = pub
	}

	if upCfg := cfg.UploaderConfig(); upCfg.Enabled() {
		up, err := gcp.NewUploader(ctx, log, upCfg)
		if err != nil {
			closeDeps(deps)
			return deps, fmt.Errorf("init artifact uploader: %w", err)
		}
		deps.Uploader = up
	}

	log.Info("Sinks configured",
		"store", deps.Store != nil,
		"redis", deps.Publisher != nil,
		"gcs", deps.Uploader != nil,
	)
	return deps, nil
}

func closeDeps(deps pipeline.Deps) {
	if deps.Publisher != nil {
		_ = deps.Publisher.Close()
	}
	if deps.Uploader != nil {
		_ = deps.Uploader.Close()
	}
	if deps.Store != nil {
		_ = deps.Store.Close()
	}
}

// Run executes the named pipelines in order, all of them when names is empty.
// Every pipeline runs even if an earlier one fails; the failures are joined.
func (a *App) Run(ctx context.Context, names []string) error {
	if len(names) == 0 {
		names = pipeline.Names()
	}
	known := map[string]bool{}
	for _, n := range pipeline.Names() {
		known[n] = true
	}
	for _, n := range names {
		if !known[n] {
			return apperr.Invalid("unknown pipeline %q (want one of %s)", n, strings.Join(pipeline.Names(), ", "))
		}
	}

	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := a.session.Run(ctx, name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		a.Log.Info("Run complete", "pipeline", name, "run_id", res.RunID.String(), "artifacts", res.Artifacts)
	}
	return errors.Join(errs...)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if err := a.session.Close(); err != nil {
		a.Log.Warn("Failed to close sinks", "error", err)
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
