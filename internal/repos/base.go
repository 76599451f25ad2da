package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const insertBatchSize = 500

func pick(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

// replaceRunRows deletes every row of model's table for runID and inserts rows.
func replaceRunRows[T any](ctx context.Context, transaction *gorm.DB, runID uuid.UUID, rows []T) error {
	var model T
	if err := transaction.WithContext(ctx).Where("run_id = ?", runID).Delete(&model).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).CreateInBatches(rows, insertBatchSize).Error
}
