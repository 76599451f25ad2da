package pipeline

import (
	"time"

	"github.com/yungbote/movielens-insights/internal/clustering"
	"github.com/yungbote/movielens-insights/internal/features"
	"github.com/yungbote/movielens-insights/internal/types"
)

const (
	StageStatusSucceeded = "succeeded"
	StageStatusSkipped   = "skipped"
	StageStatusFailed    = "failed"
)

// StageReport is the outcome of one stage of a run.
type StageReport struct {
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// state carries intermediate results between the stages of one run.
type state struct {
	users      []types.User
	encoder    *features.Encoder
	vectors    []types.FeatureVector
	candidates []clustering.Candidate
	scores     []types.ClusterScore

	assignments []types.ClusterAssignment
	model       *clustering.Model

	movies      []types.Movie
	ratings     []types.Rating
	movieGenres []types.MovieGenre
	rankings    []types.GenreRanking

	artifacts []string
}

func (st *state) addArtifact(path string) {
	st.artifacts = append(st.artifacts, path)
}
