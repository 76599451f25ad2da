package clustering

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"

	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
	"github.com/yungbote/movielens-insights/internal/types"
)

const DefaultSweepConcurrency = 4

type SweepOptions struct {
	KMin          int
	KMax          int
	Seed          int64
	MaxIterations int
	Tolerance     float64
	Concurrency   int
}

// Candidate is the outcome of fitting and scoring one k. Err is a
// *errors.CandidateError when the candidate could not be scored.
type Candidate struct {
	K          int
	Silhouette float64
	Iterations int
	Err        error
}

func (c Candidate) OK() bool { return c.Err == nil }

// Sweep fits and scores every k in [KMin, KMax] with the same seed. Candidates
// run concurrently over the shared read-only vectors and are returned in
// ascending k. A candidate that cannot be fitted or scored is recorded with its
// error and does not affect the others; only cancellation or invalid options
// fail the sweep itself.
func Sweep(ctx context.Context, vectors []types.FeatureVector, opts SweepOptions) ([]Candidate, error) {
	if opts.KMin < 2 {
		return nil, apperr.Invalid("k_min must be >= 2, got %d", opts.KMin)
	}
	if opts.KMax < opts.KMin {
		return nil, apperr.Invalid("k_max %d < k_min %d", opts.KMax, opts.KMin)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultSweepConcurrency
	}
	points := Points(vectors)
	results := make([]Candidate, opts.KMax-opts.KMin+1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i := range results {
		k := opts.KMin + i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = scoreCandidate(gctx, points, Options{
				K:             k,
				Seed:          opts.Seed,
				MaxIterations: opts.MaxIterations,
				Tolerance:     opts.Tolerance,
			})
			if errors.Is(results[i].Err, context.Canceled) || errors.Is(results[i].Err, context.DeadlineExceeded) {
				return results[i].Err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func scoreCandidate(ctx context.Context, points [][]float64, opts Options) Candidate {
	c := Candidate{K: opts.K}
	model, labels, err := Fit(ctx, points, opts)
	if err != nil {
		if ctx.Err() != nil {
			c.Err = ctx.Err()
			return c
		}
		c.Err = &apperr.CandidateError{K: opts.K, Cause: err}
		return c
	}
	c.Iterations = model.Iterations
	s, err := Silhouette(points, labels, opts.K)
	if err != nil {
		c.Err = &apperr.CandidateError{K: opts.K, Cause: err}
		return c
	}
	c.Silhouette = s
	return c
}

// Highest returns the scored candidate with the largest silhouette, lowest k on
// ties. It is a hint for the operator choosing k, never applied automatically.
func Highest(candidates []Candidate) (Candidate, bool) {
	var best Candidate
	found := false
	for _, c := range candidates {
		if !c.OK() {
			continue
		}
		if !found || c.Silhouette > best.Silhouette {
			best = c
			found = true
		}
	}
	return best, found
}

// Scores converts candidates into the exported/persisted form, ascending k.
func Scores(candidates []Candidate) []types.ClusterScore {
	out := make([]types.ClusterScore, 0, len(candidates))
	for _, c := range candidates {
		s := types.ClusterScore{K: c.K, Silhouette: c.Silhouette, Status: types.ClusterScoreStatusOK}
		if c.Err != nil {
			s.Silhouette = 0
			s.Status = c.Err.Error()
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].K < out[j].K })
	return out
}

// Points extracts the raw vectors in input order.
func Points(vectors []types.FeatureVector) [][]float64 {
	points := make([][]float64, len(vectors))
	for i, v := range vectors {
		points[i] = v.Vector
	}
	return points
}
