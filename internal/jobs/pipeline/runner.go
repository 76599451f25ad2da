package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
	"github.com/yungbote/movielens-insights/internal/platform/logger"
	"github.com/yungbote/movielens-insights/internal/types"
)

const finishTimeout = 10 * time.Second

// Result summarises a finished run, successful or not.
type Result struct {
	RunID     uuid.UUID
	Pipeline  string
	Status    string
	Artifacts []string
	Stages    []StageReport
}

// Stage reports the named stage, if it ran.
func (r *Result) Stage(name string) (StageReport, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageReport{}, false
}

type stageFunc func(ctx context.Context, rc *runContext) error

type runContext struct {
	s     *Session
	log   *logger.Logger
	runID uuid.UUID
	st    *state
}

type skipError struct {
	reason string
}

func (e *skipError) Error() string { return "skipped: " + e.reason }

// skip ends a stage without failing the run; stages depending on it are skipped too.
func skip(format string, args ...any) error {
	return &skipError{reason: fmt.Sprintf(format, args...)}
}

// Run executes every enabled stage of the named pipeline in order under a fresh run id.
func (s *Session) Run(ctx context.Context, pipeline string) (*Result, error) {
	stages, ok := pipelineStages(s.log, pipeline)
	if !ok {
		return nil, apperr.Invalid("unknown pipeline %q", pipeline)
	}
	funcs := stageRegistry[pipeline]

	runID := uuid.New()
	log := s.log.With("run_id", runID.String(), "pipeline", pipeline)
	res := &Result{RunID: runID, Pipeline: pipeline, Status: types.PipelineRunStatusRunning}

	ctx, span := s.tracer.Start(ctx, "pipeline."+pipeline, trace.WithAttributes(
		attribute.String("run_id", runID.String()),
		attribute.String("pipeline", pipeline),
	))
	defer span.End()

	if s.runs != nil {
		params, err := runParams(s.Options)
		if err != nil {
			return nil, err
		}
		run := &types.PipelineRun{
			ID:        runID,
			Pipeline:  pipeline,
			Status:    types.PipelineRunStatusRunning,
			Params:    params,
			StartedAt: time.Now().UTC(),
		}
		if err := s.runs.Create(ctx, nil, run); err != nil {
			return nil, fmt.Errorf("record pipeline run: %w", err)
		}
	}

	log.Info("Pipeline started", "stages", len(stages))
	started := time.Now()
	rc := &runContext{s: s, log: log, runID: runID, st: &state{}}
	runErr := s.runStages(ctx, rc, stages, funcs, res)
	res.Artifacts = rc.st.artifacts

	res.Status = types.PipelineRunStatusSucceeded
	if runErr != nil {
		res.Status = types.PipelineRunStatusFailed
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		log.Error("Pipeline failed", "error", runErr, "duration_ms", time.Since(started).Milliseconds())
	} else {
		log.Info("Pipeline finished", "artifacts", len(res.Artifacts), "duration_ms", time.Since(started).Milliseconds())
	}

	if err := s.finishRun(ctx, res, runErr); err != nil {
		log.Warn("Failed to record pipeline outcome", "error", err)
	}
	if runErr != nil {
		return res, fmt.Errorf("%s: %w", pipeline, runErr)
	}
	return res, nil
}

func (s *Session) runStages(ctx context.Context, rc *runContext, stages []stageSpec, funcs map[string]stageFunc, res *Result) error {
	skipped := map[string]bool{}
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		report := StageReport{Name: stage.Name, StartedAt: time.Now().UTC()}
		stageLog := rc.log.With("stage", stage.Name)

		if dep, ok := firstSkipped(stage.DependsOn, skipped); ok {
			skipped[stage.Name] = true
			report.Status = StageStatusSkipped
			report.Reason = "dependency " + dep + " skipped"
			res.Stages = append(res.Stages, report)
			stageLog.Debug("Stage skipped", "reason", report.Reason)
			continue
		}

		fn, ok := funcs[stage.Name]
		if !ok {
			return fmt.Errorf("stage %s is not implemented", stage.Name)
		}

		stageCtx, span := s.tracer.Start(ctx, "stage."+stage.Name)
		stageLog.Debug("Stage started")
		err := fn(stageCtx, &runContext{s: rc.s, log: stageLog, runID: rc.runID, st: rc.st})
		report.DurationMS = time.Since(report.StartedAt).Milliseconds()

		var se *skipError
		switch {
		case err == nil:
			report.Status = StageStatusSucceeded
			stageLog.Info("Stage finished", "duration_ms", report.DurationMS)
		case errors.As(err, &se):
			skipped[stage.Name] = true
			report.Status = StageStatusSkipped
			report.Reason = se.reason
			span.SetAttributes(attribute.String("skip_reason", se.reason))
			stageLog.Info("Stage skipped", "reason", se.reason)
		default:
			report.Status = StageStatusFailed
			report.Reason = err.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			res.Stages = append(res.Stages, report)
			stageLog.Error("Stage failed", "error", err, "duration_ms", report.DurationMS)
			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}
		span.End()
		res.Stages = append(res.Stages, report)
	}
	return nil
}

func firstSkipped(deps []string, skipped map[string]bool) (string, bool) {
	for _, dep := range deps {
		if skipped[dep] {
			return dep, true
		}
	}
	return "", false
}

// finishRun records the outcome even when ctx was cancelled mid-run.
func (s *Session) finishRun(ctx context.Context, res *Result, runErr error) error {
	if s.runs == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()

	stages, err := json.Marshal(res.Stages)
	if err != nil {
		return err
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}
	return s.runs.Finish(ctx, nil, res.RunID, res.Status, msg, datatypes.JSON(stages), time.Now().UTC())
}

// runParams is the options snapshot stored on the run record.
func runParams(opts Options) (datatypes.JSON, error) {
	b, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("encode run params: %w", err)
	}
	return datatypes.JSON(b), nil
}
