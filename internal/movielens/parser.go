package movielens

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
	"github.com/yungbote/movielens-insights/internal/types"
)

const (
	UserFile   = "u.user"
	ItemFile   = "u.item"
	RatingFile = "u.data"

	pipeDelim = "|"
	tabDelim  = "\t"

	userFields   = 5
	itemFixed    = 5
	itemFields   = itemFixed + len(Genres)
	ratingFields = 4

	minRating = 1
	maxRating = 5
)

// ParseUser parses `UserId|Age|Gender|Occupation|ZipCode`.
func ParseUser(line string) (types.User, error) {
	f, err := splitExact(line, pipeDelim, userFields)
	if err != nil {
		return types.User{}, err
	}
	id, err := parseInt("UserId", f[0])
	if err != nil {
		return types.User{}, err
	}
	age, err := parseInt("Age", f[1])
	if err != nil {
		return types.User{}, err
	}
	gender := strings.TrimSpace(f[2])
	if gender != "M" && gender != "F" {
		return types.User{}, &apperr.RecordError{Field: "Gender", Reason: "expected M or F, got " + strconv.Quote(gender)}
	}
	occupation := strings.TrimSpace(f[3])
	if occupation == "" {
		return types.User{}, &apperr.RecordError{Field: "Occupation", Reason: "empty"}
	}
	return types.User{ID: id, Age: age, Gender: gender, Occupation: occupation}, nil
}

// ParseMovie parses `MovieId|Title|ReleaseDate|VideoReleaseDate|IMDBURL|g0|...|g18`.
// A genre flag is true when its integer value is non-zero.
func ParseMovie(line string) (types.Movie, error) {
	f, err := splitExact(line, pipeDelim, itemFields)
	if err != nil {
		return types.Movie{}, err
	}
	id, err := parseInt("MovieId", f[0])
	if err != nil {
		return types.Movie{}, err
	}
	flags := make([]bool, len(Genres))
	for i, g := range Genres {
		v, err := parseInt(g, f[itemFixed+i])
		if err != nil {
			return types.Movie{}, err
		}
		flags[i] = v != 0
	}
	return types.Movie{
		ID:               id,
		Title:            decodeLatin1(f[1]),
		ReleaseDate:      strings.TrimSpace(f[2]),
		VideoReleaseDate: strings.TrimSpace(f[3]),
		IMDBURL:          strings.TrimSpace(f[4]),
		GenreFlags:       flags,
	}, nil
}

// ParseRating parses `UserId<TAB>ItemId<TAB>Rating<TAB>Timestamp`.
func ParseRating(line string) (types.Rating, error) {
	f, err := splitExact(line, tabDelim, ratingFields)
	if err != nil {
		return types.Rating{}, err
	}
	uid, err := parseInt("UserId", f[0])
	if err != nil {
		return types.Rating{}, err
	}
	mid, err := parseInt("ItemId", f[1])
	if err != nil {
		return types.Rating{}, err
	}
	r, err := parseInt("Rating", f[2])
	if err != nil {
		return types.Rating{}, err
	}
	if r < minRating || r > maxRating {
		return types.Rating{}, &apperr.RecordError{Field: "Rating", Reason: "out of range [1,5]: " + strconv.Itoa(r)}
	}
	return types.Rating{UserID: uid, MovieID: mid, Rating: r}, nil
}

func splitExact(line, delim string, want int) ([]string, error) {
	f := strings.Split(line, delim)
	if len(f) != want {
		return nil, &apperr.RecordError{Reason: "expected " + strconv.Itoa(want) + " fields, got " + strconv.Itoa(len(f))}
	}
	return f, nil
}

func parseInt(field, raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &apperr.RecordError{Field: field, Reason: "not an integer: " + strconv.Quote(raw), Cause: err}
	}
	return v, nil
}

// u.item ships as ISO-8859-1; titles that are not valid UTF-8 are decoded from it.
func decodeLatin1(s string) string {
	s = strings.TrimSpace(s)
	if utf8.ValidString(s) {
		return s
	}
	out, err := charmap.ISO8859_1.NewDecoder().String(s)
	if err != nil {
		return s
	}
	return out
}
