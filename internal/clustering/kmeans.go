package clustering

import (
	"context"
	"math"
	"math/rand"

	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
)

const (
	DefaultMaxIterations = 20
	DefaultTolerance     = 1e-4
)

type Options struct {
	K             int
	Seed          int64
	MaxIterations int
	// Tolerance is the squared centroid shift under which every centroid
	// counts as converged.
	Tolerance float64
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	return o
}

type Model struct {
	K          int
	Centroids  [][]float64
	Iterations int
	Converged  bool
}

// Predict returns the index of the nearest centroid; ties go to the lower index.
func (m *Model) Predict(p []float64) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range m.Centroids {
		d := squaredDistance(p, centroid)
		if d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

// Fit runs k-means++ seeded from opts.Seed followed by Lloyd iterations and
// returns the model and the label of every point. The same points, k and seed
// always produce the same labels.
func Fit(ctx context.Context, points [][]float64, opts Options) (*Model, []int, error) {
	opts = opts.withDefaults()
	if opts.K < 1 {
		return nil, nil, apperr.Invalid("k must be >= 1, got %d", opts.K)
	}
	if len(points) == 0 {
		return nil, nil, apperr.Degenerate("no points to cluster")
	}
	dim := len(points[0])
	for _, p := range points {
		if len(p) != dim {
			return nil, nil, apperr.Invalid("points have mixed dimensions %d and %d", dim, len(p))
		}
	}
	if distinct := countDistinct(points); distinct < opts.K {
		return nil, nil, apperr.Degenerate("k=%d exceeds %d distinct points", opts.K, distinct)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	centroids := initPlusPlus(points, opts.K, rng)
	labels := make([]int, len(points))
	model := &Model{K: opts.K, Centroids: centroids}

	for iter := 0; iter < opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		model.Iterations = iter + 1
		for i, p := range points {
			labels[i] = model.Predict(p)
		}
		next := recomputeCentroids(points, labels, centroids)
		converged := true
		for c := range centroids {
			if squaredDistance(centroids[c], next[c]) > opts.Tolerance {
				converged = false
			}
		}
		centroids = next
		model.Centroids = centroids
		if converged {
			model.Converged = true
			break
		}
	}
	for i, p := range points {
		labels[i] = model.Predict(p)
	}
	return model, labels, nil
}

// initPlusPlus picks the first centroid uniformly and each following one with
// probability proportional to its squared distance from the nearest chosen centroid.
func initPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.Intn(len(points))]))
	nearest := make([]float64, len(points))
	for i, p := range points {
		nearest[i] = squaredDistance(p, centroids[0])
	}
	for len(centroids) < k {
		var total float64
		for _, d := range nearest {
			total += d
		}
		pick := -1
		if total > 0 {
			target := rng.Float64() * total
			var acc float64
			for i, d := range nearest {
				if d == 0 {
					continue
				}
				acc += d
				if acc >= target {
					pick = i
					break
				}
			}
		}
		if pick < 0 {
			// Rounding left target past the last positive weight.
			for i := len(nearest) - 1; i >= 0; i-- {
				if nearest[i] > 0 {
					pick = i
					break
				}
			}
		}
		c := clone(points[pick])
		centroids = append(centroids, c)
		for i, p := range points {
			if d := squaredDistance(p, c); d < nearest[i] {
				nearest[i] = d
			}
		}
	}
	return centroids
}

// An emptied cluster keeps its previous centroid.
func recomputeCentroids(points [][]float64, labels []int, prev [][]float64) [][]float64 {
	k := len(prev)
	dim := len(points[0])
	sums := make([][]float64, k)
	counts := make([]int, k)
	for c := range sums {
		sums[c] = make([]float64, dim)
	}
	for i, p := range points {
		c := labels[i]
		counts[c]++
		for j, x := range p {
			sums[c][j] += x
		}
	}
	out := make([][]float64, k)
	for c := range sums {
		if counts[c] == 0 {
			out[c] = clone(prev[c])
			continue
		}
		inv := 1.0 / float64(counts[c])
		for j := range sums[c] {
			sums[c][j] *= inv
		}
		out[c] = sums[c]
	}
	return out
}

func squaredDistance(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func countDistinct(points [][]float64) int {
	seen := make(map[string]struct{}, len(points))
	buf := make([]byte, 0, 8*len(points[0]))
	for _, p := range points {
		buf = buf[:0]
		for _, x := range p {
			bits := math.Float64bits(x)
			for s := 0; s < 64; s += 8 {
				buf = append(buf, byte(bits>>s))
			}
		}
		seen[string(buf)] = struct{}{}
	}
	return len(seen)
}
