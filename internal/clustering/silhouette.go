package clustering

import (
	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
)

// Silhouette returns the mean silhouette over all points using squared
// Euclidean distance. Points in singleton clusters score 0.
//
// Per-cluster sums of vectors and squared norms give the summed distance from
// a point to a whole cluster in O(dim):
// sum_j |x-y_j|^2 = n|x|^2 - 2 x.S + Q.
func Silhouette(points [][]float64, labels []int, k int) (float64, error) {
	if len(points) == 0 {
		return 0, apperr.Degenerate("no points to score")
	}
	if len(labels) != len(points) {
		return 0, apperr.Invalid("labels length %d does not match points %d", len(labels), len(points))
	}
	dim := len(points[0])
	counts := make([]int, k)
	sums := make([][]float64, k)
	sq := make([]float64, k)
	for c := range sums {
		sums[c] = make([]float64, dim)
	}
	for i, p := range points {
		c := labels[i]
		if c < 0 || c >= k {
			return 0, apperr.Invalid("label %d outside [0,%d)", c, k)
		}
		counts[c]++
		sq[c] += dot(p, p)
		for j, x := range p {
			sums[c][j] += x
		}
	}
	nonEmpty := 0
	for _, n := range counts {
		if n > 0 {
			nonEmpty++
		}
	}
	if nonEmpty < 2 {
		return 0, apperr.Degenerate("silhouette needs at least 2 non-empty clusters, got %d", nonEmpty)
	}

	var total float64
	for i, p := range points {
		own := labels[i]
		if counts[own] <= 1 {
			continue
		}
		pp := dot(p, p)
		a := clusterDistanceSum(pp, p, counts[own], sums[own], sq[own]) / float64(counts[own]-1)
		b := -1.0
		for c := 0; c < k; c++ {
			if c == own || counts[c] == 0 {
				continue
			}
			d := clusterDistanceSum(pp, p, counts[c], sums[c], sq[c]) / float64(counts[c])
			if b < 0 || d < b {
				b = d
			}
		}
		den := a
		if b > den {
			den = b
		}
		if den > 0 {
			total += (b - a) / den
		}
	}
	return total / float64(len(points)), nil
}

func clusterDistanceSum(pp float64, p []float64, n int, sum []float64, sq float64) float64 {
	d := float64(n)*pp - 2*dot(p, sum) + sq
	if d < 0 {
		return 0
	}
	return d
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
