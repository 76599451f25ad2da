package pipeline

import (
	"context"
	"errors"
	"path/filepath"

	"gorm.io/gorm"

	"github.com/yungbote/movielens-insights/internal/aggregate"
	"github.com/yungbote/movielens-insights/internal/clustering"
	"github.com/yungbote/movielens-insights/internal/export"
	"github.com/yungbote/movielens-insights/internal/features"
	"github.com/yungbote/movielens-insights/internal/genres"
	"github.com/yungbote/movielens-insights/internal/movielens"
	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
	"github.com/yungbote/movielens-insights/internal/report"
)

var stageRegistry = map[string]map[string]stageFunc{
	PipelineUserSegments: {
		"load_users":      loadUsers,
		"encode_features": encodeFeatures,
		"cluster_sweep":   clusterSweep,
		"export_scores":   exportScores,
		"render_chart":    renderChart,
		"cluster_assign":  clusterAssign,
		"export_clusters": exportClusters,
		"persist":         persistSegments,
		"publish":         publishSegments,
		"upload":          uploadArtifacts,
	},
	PipelineGenreAffinity: {
		"load_movies":    loadMovies,
		"load_ratings":   loadRatings,
		"unpivot_genres": unpivotGenres,
		"rank_genres":    rankGenres,
		"export_genres":  exportGenres,
		"persist":        persistGenres,
		"publish":        publishGenres,
		"upload":         uploadArtifacts,
	},
}

func (rc *runContext) outputPath(file string) string {
	return filepath.Join(rc.s.Options.OutputDir, file)
}

// ---------- user_segments ----------

func loadUsers(ctx context.Context, rc *runContext) error {
	users, err := movielens.LoadUsers(rc.s.Options.DataDir)
	if err != nil {
		return err
	}
	rc.st.users = users
	rc.log.Info("Loaded users", "users", len(users))
	return nil
}

func encodeFeatures(ctx context.Context, rc *runContext) error {
	vectors, enc, err := features.EncodeUsers(rc.st.users)
	if err != nil {
		return err
	}
	rc.st.vectors = vectors
	rc.st.encoder = enc
	rc.log.Debug("Encoded features",
		"dim", enc.Dim(),
		"genders", enc.Gender.Len(),
		"occupations", enc.Occupation.Len(),
		"features", enc.FeatureNames(),
	)
	return nil
}

func clusterSweep(ctx context.Context, rc *runContext) error {
	candidates, err := clustering.Sweep(ctx, rc.st.vectors, rc.s.Options.Sweep)
	if err != nil {
		return err
	}
	rc.st.candidates = candidates
	rc.st.scores = clustering.Scores(candidates)

	for _, c := range candidates {
		if !c.OK() {
			rc.log.Warn("Cluster count could not be scored", "k", c.K, "error", c.Err)
		}
	}
	if best, ok := clustering.Highest(candidates); ok {
		rc.log.Info("Sweep complete",
			"candidates", len(candidates),
			"best_k", best.K,
			"best_silhouette", best.Silhouette,
		)
	} else {
		rc.log.Warn("Sweep produced no scored candidates", "candidates", len(candidates))
	}
	return nil
}

func exportScores(ctx context.Context, rc *runContext) error {
	path := rc.outputPath(export.ClusterScoresFile)
	if err := export.WriteClusterScores(path, rc.st.scores); err != nil {
		return err
	}
	rc.st.addArtifact(path)
	rc.log.Info("Wrote cluster scores", "path", path, "rows", len(rc.st.scores))
	return nil
}

func renderChart(ctx context.Context, rc *runContext) error {
	if !rc.s.Options.ChartEnabled {
		return skip("chart disabled")
	}
	path := rc.outputPath(report.ClusterScoresChartFile)
	err := report.WriteSilhouetteChart(path, rc.st.scores, rc.s.Options.Chart)
	if errors.Is(err, apperr.ErrDegenerateInput) {
		return skip("no scored cluster counts to plot")
	}
	if err != nil {
		return err
	}
	rc.st.addArtifact(path)
	return nil
}

func clusterAssign(ctx context.Context, rc *runContext) error {
	k := rc.s.Options.K
	if k == 0 {
		rc.log.Info("No cluster count chosen; inspect the sweep and rerun with segments.k set",
			"scores", rc.outputPath(export.ClusterScoresFile),
		)
		return skip("segments.k not set")
	}
	sweep := rc.s.Options.Sweep
	assignments, model, err := clustering.Assign(ctx, rc.st.vectors, clustering.Options{
		K:             k,
		Seed:          sweep.Seed,
		MaxIterations: sweep.MaxIterations,
		Tolerance:     sweep.Tolerance,
	})
	if err != nil {
		return err
	}
	rc.st.assignments = assignments
	rc.st.model = model

	kvs := []interface{}{
		"k", k,
		"iterations", model.Iterations,
		"converged", model.Converged,
		"sizes", clustering.Sizes(assignments, k),
	}
	for _, c := range rc.st.candidates {
		if c.K == k && c.OK() {
			kvs = append(kvs, "silhouette", c.Silhouette)
		}
	}
	rc.log.Info("Assigned clusters", kvs...)
	return nil
}

func exportClusters(ctx context.Context, rc *runContext) error {
	path := rc.outputPath(export.UsersClusteredFile)
	if err := export.WriteClusterAssignments(path, rc.st.assignments); err != nil {
		return err
	}
	rc.st.addArtifact(path)
	rc.log.Info("Wrote cluster assignments", "path", path, "rows", len(rc.st.assignments))
	return nil
}

func persistSegments(ctx context.Context, rc *runContext) error {
	if rc.s.store == nil {
		return skip("no result store configured")
	}
	return rc.s.store.Transaction(ctx, func(tx *gorm.DB) error {
		if err := rc.s.scores.ReplaceForRun(ctx, tx, rc.runID, rc.st.scores); err != nil {
			return err
		}
		if rc.st.assignments == nil {
			return nil
		}
		return rc.s.assignments.ReplaceForRun(ctx, tx, rc.runID, rc.st.assignments)
	})
}

func publishSegments(ctx context.Context, rc *runContext) error {
	if rc.s.publisher == nil {
		return skip("no redis publisher configured")
	}
	return rc.s.publisher.PublishSegments(ctx, rc.st.assignments)
}

// ---------- genre_affinity ----------

func loadMovies(ctx context.Context, rc *runContext) error {
	movies, err := movielens.LoadMovies(rc.s.Options.DataDir)
	if err != nil {
		return err
	}
	rc.st.movies = movies
	rc.log.Info("Loaded movies", "movies", len(movies))
	return nil
}

func loadRatings(ctx context.Context, rc *runContext) error {
	ratings, err := movielens.LoadRatings(rc.s.Options.DataDir)
	if err != nil {
		return err
	}
	rc.st.ratings = ratings
	rc.log.Info("Loaded ratings", "ratings", len(ratings))
	return nil
}

func unpivotGenres(ctx context.Context, rc *runContext) error {
	rc.st.movieGenres = genres.Unpivot(rc.st.movies)
	rc.log.Debug("Unpivoted genres", "movie_genres", len(rc.st.movieGenres))
	return nil
}

func rankGenres(ctx context.Context, rc *runContext) error {
	rankings, err := aggregate.RankGenres(rc.st.ratings, rc.st.movieGenres, rc.s.Options.Genres)
	if err != nil {
		return err
	}
	rc.st.rankings = rankings
	users := map[int]struct{}{}
	for _, r := range rankings {
		users[r.UserID] = struct{}{}
	}
	rc.log.Info("Ranked genres", "rows", len(rankings), "users", len(users))
	return nil
}

func exportGenres(ctx context.Context, rc *runContext) error {
	path := rc.outputPath(export.UserGenresFile)
	if err := export.WriteGenreRankings(path, rc.st.rankings); err != nil {
		return err
	}
	rc.st.addArtifact(path)
	rc.log.Info("Wrote genre rankings", "path", path, "rows", len(rc.st.rankings))
	return nil
}

func persistGenres(ctx context.Context, rc *runContext) error {
	if rc.s.store == nil {
		return skip("no result store configured")
	}
	return rc.s.store.Transaction(ctx, func(tx *gorm.DB) error {
		return rc.s.rankings.ReplaceForRun(ctx, tx, rc.runID, rc.st.rankings)
	})
}

func publishGenres(ctx context.Context, rc *runContext) error {
	if rc.s.publisher == nil {
		return skip("no redis publisher configured")
	}
	return rc.s.publisher.PublishTopGenres(ctx, rc.st.rankings)
}

// ---------- shared ----------

func uploadArtifacts(ctx context.Context, rc *runContext) error {
	if rc.s.uploader == nil {
		return skip("no artifact bucket configured")
	}
	for _, path := range rc.st.artifacts {
		uri, err := rc.s.uploader.Upload(ctx, rc.runID.String(), path)
		if err != nil {
			return err
		}
		rc.log.Info("Uploaded artifact", "path", path, "object", uri)
	}
	return nil
}
