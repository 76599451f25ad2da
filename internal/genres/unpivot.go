package genres

import (
	"github.com/yungbote/movielens-insights/internal/movielens"
	"github.com/yungbote/movielens-insights/internal/types"
)

// Unpivot emits one MovieGenre per true flag, in movie order then genre column
// order. Movies without a true flag contribute nothing.
func Unpivot(movies []types.Movie) []types.MovieGenre {
	out := make([]types.MovieGenre, 0, len(movies)*2)
	for _, m := range movies {
		for i, on := range m.GenreFlags {
			if !on || i >= len(movielens.Genres) {
				continue
			}
			out = append(out, types.MovieGenre{MovieID: m.ID, Genre: movielens.Genres[i]})
		}
	}
	return out
}

// ByMovie groups unpivoted rows into movie id -> genres.
func ByMovie(rows []types.MovieGenre) map[int][]string {
	out := make(map[int][]string)
	for _, r := range rows {
		out[r.MovieID] = append(out[r.MovieID], r.Genre)
	}
	return out
}
