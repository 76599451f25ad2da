package clustering

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
	"github.com/yungbote/movielens-insights/internal/types"
)

func blobs() [][]float64 {
	return [][]float64{
		{0, 0}, {0.5, 0.2}, {0.1, 0.4}, {0.3, 0.3},
		{10, 10}, {10.4, 9.8}, {9.7, 10.2}, {10.1, 10.1},
		{20, 0}, {20.3, 0.4}, {19.8, 0.1},
	}
}

func vectorsFrom(points [][]float64) []types.FeatureVector {
	out := make([]types.FeatureVector, len(points))
	for i, p := range points {
		out[i] = types.FeatureVector{UserID: i + 1, Vector: p}
	}
	return out
}

func TestFitSeparatesBlobs(t *testing.T) {
	model, labels, err := Fit(context.Background(), blobs(), Options{K: 3, Seed: 42})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if len(model.Centroids) != 3 {
		t.Fatalf("centroids: want=3 got=%d", len(model.Centroids))
	}
	groups := [][]int{{0, 1, 2, 3}, {4, 5, 6, 7}, {8, 9, 10}}
	seen := map[int]bool{}
	for _, g := range groups {
		l := labels[g[0]]
		for _, i := range g {
			if labels[i] != l {
				t.Fatalf("point %d: want label %d got %d", i, l, labels[i])
			}
		}
		if seen[l] {
			t.Fatalf("label %d shared by two blobs", l)
		}
		seen[l] = true
	}
}

func TestFitLabelsPartitionAllPoints(t *testing.T) {
	points := blobs()
	for k := 2; k <= 6; k++ {
		_, labels, err := Fit(context.Background(), points, Options{K: k, Seed: 7})
		if err != nil {
			t.Fatalf("Fit k=%d: %v", k, err)
		}
		if len(labels) != len(points) {
			t.Fatalf("k=%d: labels=%d points=%d", k, len(labels), len(points))
		}
		for i, l := range labels {
			if l < 0 || l >= k {
				t.Fatalf("k=%d point %d: label %d outside [0,%d)", k, i, l, k)
			}
		}
	}
}

func TestFitIsDeterministicForSeed(t *testing.T) {
	_, a, err := Fit(context.Background(), blobs(), Options{K: 4, Seed: 99})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	_, b, err := Fit(context.Background(), blobs(), Options{K: 4, Seed: 99})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different labels: %v vs %v", a, b)
	}
}

func TestFitRejectsTooFewDistinctPoints(t *testing.T) {
	points := [][]float64{{1, 1}, {1, 1}, {2, 2}}
	_, _, err := Fit(context.Background(), points, Options{K: 3, Seed: 1})
	if !errors.Is(err, apperr.ErrDegenerateInput) {
		t.Fatalf("expected ErrDegenerateInput, got %v", err)
	}
	if _, _, err := Fit(context.Background(), nil, Options{K: 2}); !errors.Is(err, apperr.ErrDegenerateInput) {
		t.Fatalf("expected ErrDegenerateInput for no points, got %v", err)
	}
}

func TestFitHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Fit(ctx, blobs(), Options{K: 2, Seed: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSilhouetteKnownValues(t *testing.T) {
	s, err := Silhouette([][]float64{{0}, {0}, {10}, {10}}, []int{0, 0, 1, 1}, 2)
	if err != nil {
		t.Fatalf("Silhouette: %v", err)
	}
	if math.Abs(s-1) > 1e-12 {
		t.Fatalf("perfect split: want=1 got=%v", s)
	}

	// a0=4 b0=100, a1=4 b1=64, singleton scores 0.
	s, err = Silhouette([][]float64{{0}, {2}, {10}}, []int{0, 0, 1}, 2)
	if err != nil {
		t.Fatalf("Silhouette: %v", err)
	}
	want := (0.96 + 60.0/64.0) / 3
	if math.Abs(s-want) > 1e-12 {
		t.Fatalf("want=%v got=%v", want, s)
	}
}

func TestSilhouetteSingleClusterIsDegenerate(t *testing.T) {
	_, err := Silhouette([][]float64{{0}, {1}}, []int{1, 1}, 2)
	if !errors.Is(err, apperr.ErrDegenerateInput) {
		t.Fatalf("expected ErrDegenerateInput, got %v", err)
	}
}

func TestSweepAscendingAndIsolatesFailures(t *testing.T) {
	points := [][]float64{{0, 0}, {0, 0}, {5, 5}, {5, 5}, {9, 0}}
	got, err := Sweep(context.Background(), vectorsFrom(points), SweepOptions{KMin: 2, KMax: 5, Seed: 3, Concurrency: 2})
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("candidates: want=4 got=%d", len(got))
	}
	for i, c := range got {
		if c.K != 2+i {
			t.Fatalf("candidate %d: want k=%d got k=%d", i, 2+i, c.K)
		}
	}
	for _, c := range got[:2] {
		if !c.OK() {
			t.Fatalf("k=%d should score, got %v", c.K, c.Err)
		}
	}
	for _, c := range got[2:] {
		if !errors.Is(c.Err, apperr.ErrDegenerateInput) {
			t.Fatalf("k=%d: expected ErrDegenerateInput, got %v", c.K, c.Err)
		}
		var ce *apperr.CandidateError
		if !errors.As(c.Err, &ce) || ce.K != c.K {
			t.Fatalf("k=%d: expected *CandidateError, got %T", c.K, c.Err)
		}
	}
	if best, ok := Highest(got); !ok || best.K != 3 {
		t.Fatalf("Highest: want k=3 got k=%d (%v)", best.K, ok)
	}
	scores := Scores(got)
	if scores[0].Status != types.ClusterScoreStatusOK || scores[3].OK() {
		t.Fatalf("Scores status mismatch: %+v", scores)
	}
}

func TestSweepRejectsBadRange(t *testing.T) {
	if _, err := Sweep(context.Background(), vectorsFrom(blobs()), SweepOptions{KMin: 1, KMax: 3}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("k_min=1: expected ErrInvalidArgument, got %v", err)
	}
	if _, err := Sweep(context.Background(), vectorsFrom(blobs()), SweepOptions{KMin: 4, KMax: 3}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("k_max<k_min: expected ErrInvalidArgument, got %v", err)
	}
}

func TestAssignIsIdempotent(t *testing.T) {
	vecs := vectorsFrom(blobs())
	a, _, err := Assign(context.Background(), vecs, Options{K: 3, Seed: 11})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	b, _, err := Assign(context.Background(), vecs, Options{K: 3, Seed: 11})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("assignments differ across identical runs")
	}
	members := map[int]bool{}
	for _, as := range a {
		if members[as.UserID] {
			t.Fatalf("user %d assigned twice", as.UserID)
		}
		members[as.UserID] = true
	}
	if len(members) != len(vecs) {
		t.Fatalf("assigned users: want=%d got=%d", len(vecs), len(members))
	}
	total := 0
	for _, n := range Sizes(a, 3) {
		total += n
	}
	if total != len(vecs) {
		t.Fatalf("Sizes total: want=%d got=%d", len(vecs), total)
	}
}
