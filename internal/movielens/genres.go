package movielens

// Genres is the u.item genre column order. Names are emitted verbatim.
var Genres = [...]string{
	"Unknown",
	"Action",
	"Adventure",
	"Animation",
	"Childrens",
	"Comedy",
	"Crime",
	"Documentary",
	"Drama",
	"Fantasy",
	"FilmNoir",
	"Horror",
	"Musical",
	"Mystery",
	"Romance",
	"SciFi",
	"Thriller",
	"War",
	"Western",
}

var genreIndex = func() map[string]int {
	m := make(map[string]int, len(Genres))
	for i, g := range Genres {
		m[g] = i
	}
	return m
}()

// GenreIndex returns the column position of name. Matching is case-sensitive.
func GenreIndex(name string) (int, bool) {
	i, ok := genreIndex[name]
	return i, ok
}

func IsGenre(name string) bool {
	_, ok := genreIndex[name]
	return ok
}
