package aggregate

import (
	"errors"
	"testing"

	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
	"github.com/yungbote/movielens-insights/internal/types"
)

func rate(user, movie, n, value int, out []types.Rating) []types.Rating {
	for i := 0; i < n; i++ {
		out = append(out, types.Rating{UserID: user, MovieID: movie + i, Rating: value})
	}
	return out
}

func tag(genre string, first, n int, out []types.MovieGenre) []types.MovieGenre {
	for i := 0; i < n; i++ {
		out = append(out, types.MovieGenre{MovieID: first + i, Genre: genre})
	}
	return out
}

func TestRankGenresThresholdIsInclusive(t *testing.T) {
	var mg []types.MovieGenre
	mg = tag("Drama", 100, 10, mg)
	mg = tag("Comedy", 200, 9, mg)
	var rs []types.Rating
	rs = rate(1, 100, 10, 4, rs)
	rs = rate(1, 200, 9, 5, rs)

	got, err := RankGenres(rs, mg, Options{MinRatings: 10, TopN: 5})
	if err != nil {
		t.Fatalf("RankGenres: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("rows: want=1 got=%d (%+v)", len(got), got)
	}
	r := got[0]
	if r.Genre != "Drama" || r.TotalRatings != 10 || r.AverageRating != 4.0 || r.Rank != 1 {
		t.Fatalf("unexpected row %+v", r)
	}
}

func TestRankGenresTopNOrderAndTies(t *testing.T) {
	genres := []struct {
		name  string
		value int
	}{
		{"Action", 3}, {"Comedy", 5}, {"Drama", 4}, {"Crime", 4}, {"War", 2}, {"Western", 1}, {"Horror", 5},
	}
	var mg []types.MovieGenre
	var rs []types.Rating
	for i, g := range genres {
		first := (i + 1) * 100
		mg = tag(g.name, first, 12, mg)
		rs = rate(7, first, 12, g.value, rs)
	}
	got, err := RankGenres(rs, mg, Options{MinRatings: 10, TopN: 5})
	if err != nil {
		t.Fatalf("RankGenres: %v", err)
	}
	want := []string{"Comedy", "Horror", "Crime", "Drama", "Action"}
	if len(got) != len(want) {
		t.Fatalf("rows: want=%d got=%d", len(want), len(got))
	}
	for i, r := range got {
		if r.Genre != want[i] || r.Rank != i+1 {
			t.Fatalf("row %d: want %s rank %d, got %s rank %d", i, want[i], i+1, r.Genre, r.Rank)
		}
		if i > 0 && got[i-1].AverageRating < r.AverageRating {
			t.Fatalf("averages not non-increasing at %d", i)
		}
		if r.TotalRatings < 10 {
			t.Fatalf("row %d below threshold", i)
		}
	}
}

func TestRankGenresDropsUnjoinedRatings(t *testing.T) {
	var mg []types.MovieGenre
	mg = tag("Drama", 1, 10, mg)
	var rs []types.Rating
	rs = rate(1, 1, 10, 3, rs)
	rs = rate(1, 500, 20, 5, rs)
	got, err := RankGenres(rs, mg, Options{MinRatings: 10, TopN: 5})
	if err != nil {
		t.Fatalf("RankGenres: %v", err)
	}
	if len(got) != 1 || got[0].TotalRatings != 10 || got[0].AverageRating != 3 {
		t.Fatalf("unexpected rows %+v", got)
	}
}

func TestRankGenresMultiGenreMovieCountsOncePerGenre(t *testing.T) {
	var mg []types.MovieGenre
	for m := 1; m <= 10; m++ {
		mg = append(mg, types.MovieGenre{MovieID: m, Genre: "Comedy"}, types.MovieGenre{MovieID: m, Genre: "Romance"})
	}
	var rs []types.Rating
	rs = rate(2, 1, 10, 4, rs)
	rs = rate(3, 1, 10, 2, rs)
	got, err := RankGenres(rs, mg, Options{MinRatings: 10, TopN: 5})
	if err != nil {
		t.Fatalf("RankGenres: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("rows: want=4 got=%d", len(got))
	}
	if got[0].UserID != 2 || got[2].UserID != 3 {
		t.Fatalf("output must be ordered by user id: %+v", got)
	}
	if got[0].Genre != "Comedy" || got[1].Genre != "Romance" {
		t.Fatalf("tie order by genre name: %+v", got[:2])
	}
}

func TestRoundAverage(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{10.0 / 3.0, 3.333},
		{11.0 / 3.0, 3.667},
		{4.0, 4.0},
		{4.12345, 4.123},
	}
	for _, tc := range cases {
		if got := RoundAverage(tc.in); got != tc.want {
			t.Fatalf("RoundAverage(%v): want=%v got=%v", tc.in, tc.want, got)
		}
	}
}

func TestRankGenresValidatesOptions(t *testing.T) {
	if _, err := RankGenres(nil, nil, Options{MinRatings: 0, TopN: 5}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if _, err := RankGenres(nil, nil, Options{MinRatings: 10, TopN: 0}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
