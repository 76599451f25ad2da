package clustering

import (
	"context"
	"fmt"

	"github.com/yungbote/movielens-insights/internal/types"
)

// Assign fits the chosen k once more and labels every user with a cluster in [0,k).
func Assign(ctx context.Context, vectors []types.FeatureVector, opts Options) ([]types.ClusterAssignment, *Model, error) {
	model, labels, err := Fit(ctx, Points(vectors), opts)
	if err != nil {
		return nil, nil, fmt.Errorf("final clustering k=%d: %w", opts.K, err)
	}
	out := make([]types.ClusterAssignment, len(vectors))
	for i, v := range vectors {
		out[i] = types.ClusterAssignment{UserID: v.UserID, Cluster: labels[i]}
	}
	return out, model, nil
}

// Sizes counts members per cluster.
func Sizes(assignments []types.ClusterAssignment, k int) []int {
	sizes := make([]int, k)
	for _, a := range assignments {
		if a.Cluster >= 0 && a.Cluster < k {
			sizes[a.Cluster]++
		}
	}
	return sizes
}
