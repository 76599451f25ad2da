package export

import (
	"fmt"
	"io"
	"strconv"

	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
	"github.com/yungbote/movielens-insights/internal/types"
)

const (
	UsersClusteredFile = "users_clustered.csv"
	UserGenresFile     = "user_genres.csv"
	ClusterScoresFile  = "cluster_scores.csv"
)

var (
	ClusterAssignmentHeader = []string{"UserId", "Cluster"}
	GenreRankingHeader      = []string{"UserId", "Genre", "Rank", "TotalRatings", "AverageRating"}
	ClusterScoreHeader      = []string{"K", "Silhouette", "Status"}
)

func ClusterAssignmentRows(rows []types.ClusterAssignment) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{strconv.Itoa(r.UserID), strconv.Itoa(r.Cluster)}
	}
	return out
}

func GenreRankingRows(rows []types.GenreRanking) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{
			strconv.Itoa(r.UserID),
			r.Genre,
			strconv.Itoa(r.Rank),
			strconv.Itoa(r.TotalRatings),
			formatAverage(r.AverageRating),
		}
	}
	return out
}

func ClusterScoreRows(rows []types.ClusterScore) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		score := ""
		if r.OK() {
			score = formatFloat(r.Silhouette)
		}
		out[i] = []string{strconv.Itoa(r.K), score, r.Status}
	}
	return out
}

func WriteClusterAssignments(path string, rows []types.ClusterAssignment) error {
	return WriteFile(path, ClusterAssignmentHeader, ClusterAssignmentRows(rows))
}

func WriteGenreRankings(path string, rows []types.GenreRanking) error {
	return WriteFile(path, GenreRankingHeader, GenreRankingRows(rows))
}

func WriteClusterScores(path string, rows []types.ClusterScore) error {
	return WriteFile(path, ClusterScoreHeader, ClusterScoreRows(rows))
}

func ReadClusterAssignments(r io.Reader) ([]types.ClusterAssignment, error) {
	rows, err := Read(r, ClusterAssignmentHeader)
	if err != nil {
		return nil, err
	}
	out := make([]types.ClusterAssignment, len(rows))
	for i, row := range rows {
		uid, err := atoi(i, "UserId", row[0])
		if err != nil {
			return nil, err
		}
		c, err := atoi(i, "Cluster", row[1])
		if err != nil {
			return nil, err
		}
		out[i] = types.ClusterAssignment{UserID: uid, Cluster: c}
	}
	return out, nil
}

func ReadGenreRankings(r io.Reader) ([]types.GenreRanking, error) {
	rows, err := Read(r, GenreRankingHeader)
	if err != nil {
		return nil, err
	}
	out := make([]types.GenreRanking, len(rows))
	for i, row := range rows {
		uid, err := atoi(i, "UserId", row[0])
		if err != nil {
			return nil, err
		}
		rank, err := atoi(i, "Rank", row[2])
		if err != nil {
			return nil, err
		}
		total, err := atoi(i, "TotalRatings", row[3])
		if err != nil {
			return nil, err
		}
		avg, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: AverageRating: %v", apperr.ErrInputFormat, i+1, err)
		}
		out[i] = types.GenreRanking{UserID: uid, Genre: row[1], Rank: rank, TotalRatings: total, AverageRating: avg}
	}
	return out, nil
}

func ReadClusterScores(r io.Reader) ([]types.ClusterScore, error) {
	rows, err := Read(r, ClusterScoreHeader)
	if err != nil {
		return nil, err
	}
	out := make([]types.ClusterScore, len(rows))
	for i, row := range rows {
		k, err := atoi(i, "K", row[0])
		if err != nil {
			return nil, err
		}
		s := types.ClusterScore{K: k, Status: row[2]}
		if row[1] != "" {
			if s.Silhouette, err = strconv.ParseFloat(row[1], 64); err != nil {
				return nil, fmt.Errorf("%w: row %d: Silhouette: %v", apperr.ErrInputFormat, i+1, err)
			}
		}
		out[i] = s
	}
	return out, nil
}

func atoi(row int, field, raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: row %d: %s: %v", apperr.ErrInputFormat, row+1, field, err)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// AverageRating is always written with three decimals, e.g. 4.000.
func formatAverage(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
