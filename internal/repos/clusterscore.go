package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/movielens-insights/internal/platform/logger"
	"github.com/yungbote/movielens-insights/internal/types"
)

type ClusterScoreRepo interface {
	ReplaceForRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID, scores []types.ClusterScore) error
	ListByRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID) ([]types.ClusterScore, error)
}

type clusterScoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClusterScoreRepo(db *gorm.DB, baseLog *logger.Logger) ClusterScoreRepo {
	return &clusterScoreRepo{db: db, log: baseLog.With("repo", "ClusterScoreRepo")}
}

func (r *clusterScoreRepo) ReplaceForRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID, scores []types.ClusterScore) error {
	rows := make([]types.ClusterScore, len(scores))
	for i, s := range scores {
		s.RunID = runID
		rows[i] = s
	}
	return replaceRunRows(ctx, pick(r.db, tx), runID, rows)
}

func (r *clusterScoreRepo) ListByRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID) ([]types.ClusterScore, error) {
	var out []types.ClusterScore
	if err := pick(r.db, tx).WithContext(ctx).
		Where("run_id = ?", runID).
		Order("k ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
