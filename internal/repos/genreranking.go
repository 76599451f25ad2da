package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/movielens-insights/internal/platform/logger"
	"github.com/yungbote/movielens-insights/internal/types"
)

type GenreRankingRepo interface {
	ReplaceForRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID, rankings []types.GenreRanking) error
	ListByRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID) ([]types.GenreRanking, error)
	ListByUser(ctx context.Context, tx *gorm.DB, runID uuid.UUID, userID int) ([]types.GenreRanking, error)
}

type genreRankingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenreRankingRepo(db *gorm.DB, baseLog *logger.Logger) GenreRankingRepo {
	return &genreRankingRepo{db: db, log: baseLog.With("repo", "GenreRankingRepo")}
}

func (r *genreRankingRepo) ReplaceForRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID, rankings []types.GenreRanking) error {
	rows := make([]types.GenreRanking, len(rankings))
	for i, g := range rankings {
		g.RunID = runID
		rows[i] = g
	}
	return replaceRunRows(ctx, pick(r.db, tx), runID, rows)
}

func (r *genreRankingRepo) ListByRun(ctx context.Context, tx *gorm.DB, runID uuid.UUID) ([]types.GenreRanking, error) {
	var out []types.GenreRanking
	if err := pick(r.db, tx).WithContext(ctx).
		Where("run_id = ?", runID).
		Order("user_id ASC").
		Order("rank ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *genreRankingRepo) ListByUser(ctx context.Context, tx *gorm.DB, runID uuid.UUID, userID int) ([]types.GenreRanking, error) {
	var out []types.GenreRanking
	if err := pick(r.db, tx).WithContext(ctx).
		Where("run_id = ? AND user_id = ?", runID, userID).
		Order("rank ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
