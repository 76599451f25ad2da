package pipeline

import (
	"errors"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/movielens-insights/internal/aggregate"
	"github.com/yungbote/movielens-insights/internal/clients/redis"
	"github.com/yungbote/movielens-insights/internal/clustering"
	"github.com/yungbote/movielens-insights/internal/db"
	"github.com/yungbote/movielens-insights/internal/observability"
	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
	"github.com/yungbote/movielens-insights/internal/platform/gcp"
	"github.com/yungbote/movielens-insights/internal/platform/logger"
	"github.com/yungbote/movielens-insights/internal/report"
	"github.com/yungbote/movielens-insights/internal/repos"
)

const (
	PipelineUserSegments  = "user_segments"
	PipelineGenreAffinity = "genre_affinity"
)

// Names lists the runnable pipelines in their default run order.
func Names() []string {
	return []string{PipelineUserSegments, PipelineGenreAffinity}
}

// Options are the run parameters shared by every pipeline of a session. They
// are also snapshotted into the run record.
type Options struct {
	DataDir   string `json:"data_dir"`
	OutputDir string `json:"output_dir"`

	Sweep clustering.SweepOptions `json:"sweep"`
	// K is the operator's cluster count for the final clustering; 0 stops
	// user_segments after the sweep.
	K int `json:"k"`

	Genres aggregate.Options `json:"genres"`

	ChartEnabled bool                `json:"chart_enabled"`
	Chart        report.ChartOptions `json:"chart"`
}

func (o Options) Validate() error {
	if strings.TrimSpace(o.DataDir) == "" {
		return apperr.Invalid("data_dir is required")
	}
	if strings.TrimSpace(o.OutputDir) == "" {
		return apperr.Invalid("output_dir is required")
	}
	if o.K != 0 && o.K < 2 {
		return apperr.Invalid("k must be 0 or >= 2, got %d", o.K)
	}
	return nil
}

// Deps are the optional sinks of a session. Nil members disable the stages
// that need them.
type Deps struct {
	Store     *db.Service
	Publisher redis.Publisher
	Uploader  gcp.Uploader
	Tracer    trace.Tracer
}

// Session is the explicit context every pipeline run receives: parameters,
// logger, tracer and whichever sinks are configured.
type Session struct {
	Options Options

	log    *logger.Logger
	tracer trace.Tracer

	store       *db.Service
	runs        repos.PipelineRunRepo
	scores      repos.ClusterScoreRepo
	assignments repos.ClusterAssignmentRepo
	rankings    repos.GenreRankingRepo

	publisher redis.Publisher
	uploader  gcp.Uploader
}

func NewSession(log *logger.Logger, opts Options, deps Deps) (*Session, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	s := &Session{
		Options:   opts,
		log:       log.With("service", "PipelineSession"),
		tracer:    deps.Tracer,
		store:     deps.Store,
		publisher: deps.Publisher,
		uploader:  deps.Uploader,
	}
	if s.tracer == nil {
		s.tracer = observability.Tracer()
	}
	if deps.Store != nil {
		gdb := deps.Store.DB()
		s.runs = repos.NewPipelineRunRepo(gdb, log)
		s.scores = repos.NewClusterScoreRepo(gdb, log)
		s.assignments = repos.NewClusterAssignmentRepo(gdb, log)
		s.rankings = repos.NewGenreRankingRepo(gdb, log)
	}
	return s, nil
}

// Close releases every sink the session was given.
func (s *Session) Close() error {
	var errs []error
	if s.publisher != nil {
		errs = append(errs, s.publisher.Close())
	}
	if s.uploader != nil {
		errs = append(errs, s.uploader.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}
