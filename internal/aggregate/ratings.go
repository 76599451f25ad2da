package aggregate

import (
	"math"
	"sort"

	"github.com/yungbote/movielens-insights/internal/genres"
	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
	"github.com/yungbote/movielens-insights/internal/types"
)

const (
	DefaultMinRatings = 10
	DefaultTopN       = 5
	averageDecimals   = 3
)

type Options struct {
	// MinRatings is inclusive: a (user, genre) group with exactly MinRatings ratings is kept.
	MinRatings int
	TopN       int
}

type groupKey struct {
	userID int
	genre  string
}

type groupStat struct {
	count int
	sum   int
}

// RankGenres inner-joins ratings with movie genres, averages rating per
// (user, genre), drops groups under MinRatings and keeps each user's TopN
// genres by average descending. Equal averages are ordered by genre name.
// Output is ordered by user id, then rank.
func RankGenres(ratings []types.Rating, movieGenres []types.MovieGenre, opts Options) ([]types.GenreRanking, error) {
	if opts.MinRatings < 1 {
		return nil, apperr.Invalid("min_ratings must be >= 1, got %d", opts.MinRatings)
	}
	if opts.TopN < 1 {
		return nil, apperr.Invalid("top_n must be >= 1, got %d", opts.TopN)
	}

	byMovie := genres.ByMovie(movieGenres)

	stats := make(map[groupKey]*groupStat)
	for _, r := range ratings {
		for _, g := range byMovie[r.MovieID] {
			k := groupKey{userID: r.UserID, genre: g}
			s, ok := stats[k]
			if !ok {
				s = &groupStat{}
				stats[k] = s
			}
			s.count++
			s.sum += r.Rating
		}
	}

	perUser := make(map[int][]types.GenreRanking)
	for k, s := range stats {
		if s.count < opts.MinRatings {
			continue
		}
		perUser[k.userID] = append(perUser[k.userID], types.GenreRanking{
			UserID:        k.userID,
			Genre:         k.genre,
			TotalRatings:  s.count,
			AverageRating: RoundAverage(float64(s.sum) / float64(s.count)),
		})
	}

	users := make([]int, 0, len(perUser))
	for u := range perUser {
		users = append(users, u)
	}
	sort.Ints(users)

	out := make([]types.GenreRanking, 0, len(users)*opts.TopN)
	for _, u := range users {
		rows := perUser[u]
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].AverageRating != rows[j].AverageRating {
				return rows[i].AverageRating > rows[j].AverageRating
			}
			return rows[i].Genre < rows[j].Genre
		})
		if len(rows) > opts.TopN {
			rows = rows[:opts.TopN]
		}
		for i := range rows {
			rows[i].Rank = i + 1
		}
		out = append(out, rows...)
	}
	return out, nil
}

// RoundAverage rounds to three decimals, halves away from zero.
func RoundAverage(v float64) float64 {
	p := math.Pow(10, averageDecimals)
	return math.Round(v*p) / p
}
