package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/movielens-insights/internal/platform/logger"
	"github.com/yungbote/movielens-insights/internal/types"
)

type ClusterAssignmentRepo interface {
	ReplaceForRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID, assignments []types.ClusterAssignment) error
	ListByRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID) ([]types.ClusterAssignment, error)
	GetByUser(ctx context.Context, tx *gorm.DB, runID uuid.UUID, userID int) (*types.ClusterAssignment, error)
}

type clusterAssignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClusterAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) ClusterAssignmentRepo {
	return &clusterAssignmentRepo{db: db, log: baseLog.With("repo", "ClusterAssignmentRepo")}
}

func (r *clusterAssignmentRepo) ReplaceForRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID, assignments []types.ClusterAssignment) error {
	rows := make([]types.ClusterAssignment, len(assignments))
	for i, a := range assignments {
		a.RunID = runID
		rows[i] = a
	}
	return replaceRunRows(ctx, pick(r.db, tx), runID, rows)
}

func (r *clusterAssignmentRepo) ListByRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID) ([]types.ClusterAssignment, error) {
	var out []types.ClusterAssignment
	if err := pick(r.db, tx).WithContext(ctx).
		Where("run_id = ?", runID).
		Order("user_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *clusterAssignmentRepo) GetByUser(ctx context.Context, tx *gorm.DB, runID uuid.UUID, userID int) (*types.ClusterAssignment, error) {
	var out []types.ClusterAssignment
	if err := pick(r.db, tx).WithContext(ctx).
		Where("run_id = ? AND user_id = ?", runID, userID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}
