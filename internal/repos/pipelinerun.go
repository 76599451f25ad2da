package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/movielens-insights/internal/platform/logger"
	"github.com/yungbote/movielens-insights/internal/types"
)

type PipelineRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, run *types.PipelineRun) error
	Finish(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string, errMsg string, stages datatypes.JSON, finishedAt time.Time) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PipelineRun, error)
	GetLatest(ctx context.Context, tx *gorm.DB, pipeline string, status string) (*types.PipelineRun, error)
}

type pipelineRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPipelineRunRepo(db *gorm.DB, baseLog *logger.Logger) PipelineRunRepo {
	return &pipelineRunRepo{
		db:  db,
		log: baseLog.With("repo", "PipelineRunRepo"),
	}
}

func (r *pipelineRunRepo) Create(ctx context.Context, tx *gorm.DB, run *types.PipelineRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = types.PipelineRunStatusRunning
	}
	return pick(r.db, tx).WithContext(ctx).Create(run).Error
}

func (r *pipelineRunRepo) Finish(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string, errMsg string, stages datatypes.JSON, finishedAt time.Time) error {
	res := pick(r.db, tx).WithContext(ctx).
		Model(&types.PipelineRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"error":       errMsg,
			"stages":      stages,
			"finished_at": finishedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		r.log.Warn("Finish matched no pipeline run", "run_id", id.String())
	}
	return nil
}

func (r *pipelineRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PipelineRun, error) {
	var run types.PipelineRun
	err := pick(r.db, tx).WithContext(ctx).Where("id = ?", id).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetLatest returns the most recently started run of pipeline, optionally
// filtered by status. nil when there is none.
func (r *pipelineRunRepo) GetLatest(ctx context.Context, tx *gorm.DB, pipeline string, status string) (*types.PipelineRun, error) {
	q := pick(r.db, tx).WithContext(ctx).Where("pipeline = ?", pipeline)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var runs []types.PipelineRun
	if err := q.Order("started_at DESC").Limit(1).Find(&runs).Error; err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}
