package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	PipelineRunStatusRunning   = "running"
	PipelineRunStatusSucceeded = "succeeded"
	PipelineRunStatusFailed    = "failed"
)

type PipelineRun struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Pipeline   string         `gorm:"column:pipeline;not null;index" json:"pipeline"`
	Status     string         `gorm:"column:status;not null;index" json:"status"`
	Error      string         `gorm:"column:error" json:"error,omitempty"`
	Params     datatypes.JSON `gorm:"column:params" json:"params"`
	Stages     datatypes.JSON `gorm:"column:stages" json:"stages,omitempty"`
	StartedAt  time.Time      `gorm:"column:started_at;not null" json:"started_at"`
	FinishedAt *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
}

func (PipelineRun) TableName() string { return "pipeline_run" }
