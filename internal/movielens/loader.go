package movielens

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
	"github.com/yungbote/movielens-insights/internal/types"
)

const maxLineBytes = 1 << 20

// ReadUsers parses every line of r. Blank lines are skipped; any other malformed
// line, or a repeated user id, fails the whole read.
func ReadUsers(r io.Reader, name string) ([]types.User, error) {
	seen := map[int]int{}
	return readLines(r, name, func(line string, lineNo int) (types.User, error) {
		u, err := ParseUser(line)
		if err != nil {
			return u, err
		}
		if prev, dup := seen[u.ID]; dup {
			return u, &apperr.RecordError{Field: "UserId", Reason: fmt.Sprintf("duplicate id %d (first on line %d)", u.ID, prev)}
		}
		seen[u.ID] = lineNo
		return u, nil
	})
}

func ReadMovies(r io.Reader, name string) ([]types.Movie, error) {
	seen := map[int]int{}
	return readLines(r, name, func(line string, lineNo int) (types.Movie, error) {
		m, err := ParseMovie(line)
		if err != nil {
			return m, err
		}
		if prev, dup := seen[m.ID]; dup {
			return m, &apperr.RecordError{Field: "MovieId", Reason: fmt.Sprintf("duplicate id %d (first on line %d)", m.ID, prev)}
		}
		seen[m.ID] = lineNo
		return m, nil
	})
}

func ReadRatings(r io.Reader, name string) ([]types.Rating, error) {
	return readLines(r, name, func(line string, _ int) (types.Rating, error) {
		return ParseRating(line)
	})
}

func LoadUsers(dir string) ([]types.User, error) {
	return loadFile(filepath.Join(dir, UserFile), ReadUsers)
}

func LoadMovies(dir string) ([]types.Movie, error) {
	return loadFile(filepath.Join(dir, ItemFile), ReadMovies)
}

func LoadRatings(dir string) ([]types.Rating, error) {
	return loadFile(filepath.Join(dir, RatingFile), ReadRatings)
}

func loadFile[T any](path string, read func(io.Reader, string) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return read(bufio.NewReader(f), filepath.Base(path))
}

func readLines[T any](r io.Reader, name string, parse func(line string, lineNo int) (T, error)) ([]T, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var out []T
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := parse(line, lineNo)
		if err != nil {
			var re *apperr.RecordError
			if errors.As(err, &re) {
				re.File = name
				re.Line = lineNo
				return nil, re
			}
			return nil, fmt.Errorf("%s:%d: %w", name, lineNo, err)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return out, nil
}
