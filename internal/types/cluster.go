package types

import "github.com/google/uuid"

type ClusterAssignment struct {
	RunID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	UserID  int       `gorm:"column:user_id;primaryKey;autoIncrement:false" json:"user_id"`
	Cluster int       `gorm:"column:cluster;not null;index" json:"cluster"`
}

func (ClusterAssignment) TableName() string { return "cluster_assignment" }

const (
	ClusterScoreStatusOK = "ok"
)

// ClusterScore is the silhouette of one candidate cluster count. Status is
// ClusterScoreStatusOK or the reason the candidate could not be scored.
type ClusterScore struct {
	RunID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	K          int       `gorm:"column:k;primaryKey;autoIncrement:false" json:"k"`
	Silhouette float64   `gorm:"column:silhouette" json:"silhouette"`
	Status     string    `gorm:"column:status;not null" json:"status"`
}

func (ClusterScore) TableName() string { return "cluster_score" }

func (s ClusterScore) OK() bool { return s.Status == ClusterScoreStatusOK }
