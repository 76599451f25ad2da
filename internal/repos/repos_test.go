package repos

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/movielens-insights/internal/db"
	"github.com/yungbote/movielens-insights/internal/platform/logger"
	"github.com/yungbote/movielens-insights/internal/types"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	svc, err := db.Open(logger.Nop(), db.Config{Driver: db.DriverSQLite, DSN: filepath.Join(t.TempDir(), "results.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	if err := svc.AutoMigrateAll(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return svc.DB()
}

func TestPipelineRunLifecycle(t *testing.T) {
	ctx := context.Background()
	gdb := openTestDB(t)
	repo := NewPipelineRunRepo(gdb, logger.Nop())

	run := &types.PipelineRun{Pipeline: "user_segments"}
	if err := repo.Create(ctx, nil, run); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if run.ID == uuid.Nil || run.Status != types.PipelineRunStatusRunning {
		t.Fatalf("Create defaults: got id=%s status=%q", run.ID, run.Status)
	}

	finished := time.Now().UTC()
	if err := repo.Finish(ctx, nil, run.ID, types.PipelineRunStatusSucceeded, "", datatypes.JSON(`{"load_users":"succeeded"}`), finished); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	got, err := repo.GetByID(ctx, nil, run.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: run=%v err=%v", got, err)
	}
	if got.Status != types.PipelineRunStatusSucceeded || got.FinishedAt == nil {
		t.Fatalf("GetByID: want status=%q with finished_at got status=%q finished_at=%v", types.PipelineRunStatusSucceeded, got.Status, got.FinishedAt)
	}

	if string(got.Stages) != `{"load_users":"succeeded"}` {
		t.Fatalf("stages: got=%s", string(got.Stages))
	}

	missing, err := repo.GetByID(ctx, nil, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID missing: want nil,nil got %v,%v", missing, err)
	}
}

func TestPipelineRunGetLatest(t *testing.T) {
	ctx := context.Background()
	gdb := openTestDB(t)
	repo := NewPipelineRunRepo(gdb, logger.Nop())

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older := &types.PipelineRun{Pipeline: "genre_affinity", Status: types.PipelineRunStatusSucceeded, StartedAt: base}
	newer := &types.PipelineRun{Pipeline: "genre_affinity", Status: types.PipelineRunStatusFailed, StartedAt: base.Add(time.Hour)}
	for _, r := range []*types.PipelineRun{older, newer} {
		if err := repo.Create(ctx, nil, r); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	latest, err := repo.GetLatest(ctx, nil, "genre_affinity", "")
	if err != nil || latest == nil || latest.ID != newer.ID {
		t.Fatalf("GetLatest any: want=%s got=%v err=%v", newer.ID, latest, err)
	}
	ok, err := repo.GetLatest(ctx, nil, "genre_affinity", types.PipelineRunStatusSucceeded)
	if err != nil || ok == nil || ok.ID != older.ID {
		t.Fatalf("GetLatest succeeded: want=%s got=%v err=%v", older.ID, ok, err)
	}
	none, err := repo.GetLatest(ctx, nil, "user_segments", "")
	if err != nil || none != nil {
		t.Fatalf("GetLatest none: want nil got %v err=%v", none, err)
	}
}

func TestReplaceForRunIsScopedToRun(t *testing.T) {
	ctx := context.Background()
	gdb := openTestDB(t)
	repo := NewClusterAssignmentRepo(gdb, logger.Nop())

	runA, runB := uuid.New(), uuid.New()
	if err := repo.ReplaceForRun(ctx, nil, runA, []types.ClusterAssignment{{UserID: 2, Cluster: 1}, {UserID: 1, Cluster: 0}}); err != nil {
		t.Fatalf("ReplaceForRun A: %v", err)
	}
	if err := repo.ReplaceForRun(ctx, nil, runB, []types.ClusterAssignment{{UserID: 1, Cluster: 3}}); err != nil {
		t.Fatalf("ReplaceForRun B: %v", err)
	}
	// A second write for the same run replaces, not appends.
	if err := repo.ReplaceForRun(ctx, nil, runA, []types.ClusterAssignment{{UserID: 5, Cluster: 2}}); err != nil {
		t.Fatalf("ReplaceForRun A again: %v", err)
	}

	gotA, err := repo.ListByRun(ctx, nil, runA)
	if err != nil {
		t.Fatalf("ListByRun A: %v", err)
	}
	if len(gotA) != 1 || gotA[0].UserID != 5 || gotA[0].Cluster != 2 {
		t.Fatalf("ListByRun A: want=[{5 2}] got=%+v", gotA)
	}
	one, err := repo.GetByUser(ctx, nil, runB, 1)
	if err != nil || one == nil || one.Cluster != 3 {
		t.Fatalf("GetByUser B: want cluster 3 got=%+v err=%v", one, err)
	}
}

func TestClusterScoresOrderedByK(t *testing.T) {
	ctx := context.Background()
	gdb := openTestDB(t)
	repo := NewClusterScoreRepo(gdb, logger.Nop())
	runID := uuid.New()

	in := []types.ClusterScore{
		{K: 4, Silhouette: 0.21, Status: types.ClusterScoreStatusOK},
		{K: 2, Silhouette: 0.4, Status: types.ClusterScoreStatusOK},
		{K: 3, Status: "degenerate input: too few points"},
	}
	if err := repo.ReplaceForRun(ctx, nil, runID, in); err != nil {
		t.Fatalf("ReplaceForRun: %v", err)
	}
	got, err := repo.ListByRun(ctx, nil, runID)
	if err != nil {
		t.Fatalf("ListByRun: %v", err)
	}
	if len(got) != 3 || got[0].K != 2 || got[1].K != 3 || got[2].K != 4 {
		t.Fatalf("ListByRun: want k=2,3,4 got=%+v", got)
	}
	if got[1].OK() {
		t.Fatalf("k=3 should carry its failure status")
	}
	if in[0].RunID != uuid.Nil {
		t.Fatalf("ReplaceForRun must not mutate caller rows")
	}
}

func TestGenreRankingsInsideTransaction(t *testing.T) {
	ctx := context.Background()
	gdb := openTestDB(t)
	repo := NewGenreRankingRepo(gdb, logger.Nop())
	runID := uuid.New()

	rows := []types.GenreRanking{
		{UserID: 7, Genre: "Drama", Rank: 2, TotalRatings: 12, AverageRating: 3.5},
		{UserID: 7, Genre: "Comedy", Rank: 1, TotalRatings: 10, AverageRating: 4.2},
		{UserID: 3, Genre: "Action", Rank: 1, TotalRatings: 11, AverageRating: 3.0},
	}
	err := gdb.Transaction(func(tx *gorm.DB) error {
		return repo.ReplaceForRun(ctx, tx, runID, rows)
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	all, err := repo.ListByRun(ctx, nil, runID)
	if err != nil {
		t.Fatalf("ListByRun: %v", err)
	}
	if len(all) != 3 || all[0].UserID != 3 || all[1].Genre != "Comedy" || all[2].Genre != "Drama" {
		t.Fatalf("ListByRun order: got=%+v", all)
	}
	user7, err := repo.ListByUser(ctx, nil, runID, 7)
	if err != nil || len(user7) != 2 || user7[0].Rank != 1 {
		t.Fatalf("ListByUser: got=%+v err=%v", user7, err)
	}
}
