package types

// Movie is one row of u.item. GenreFlags is indexed like movielens.Genres.
type Movie struct {
	ID               int    `json:"id"`
	Title            string `json:"title"`
	ReleaseDate      string `json:"release_date,omitempty"`
	VideoReleaseDate string `json:"video_release_date,omitempty"`
	IMDBURL          string `json:"imdb_url,omitempty"`
	GenreFlags       []bool `json:"genre_flags"`
}

// MovieGenre is the long form of a single true genre flag.
type MovieGenre struct {
	MovieID int    `json:"movie_id"`
	Genre   string `json:"genre"`
}

// Rating is one row of u.data. The timestamp column is not kept.
type Rating struct {
	UserID  int `json:"user_id"`
	MovieID int `json:"movie_id"`
	Rating  int `json:"rating"`
}
