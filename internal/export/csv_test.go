package export

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
	"github.com/yungbote/movielens-insights/internal/types"
)

func TestGenreRankingRoundTrip(t *testing.T) {
	in := []types.GenreRanking{
		{UserID: 1, Genre: "Drama", Rank: 1, TotalRatings: 10, AverageRating: 4.0},
		{UserID: 1, Genre: "FilmNoir", Rank: 2, TotalRatings: 14, AverageRating: 3.857},
		{UserID: 2, Genre: "Sci,Fi \"quoted\"", Rank: 1, TotalRatings: 11, AverageRating: 3.333},
	}
	path := filepath.Join(t.TempDir(), UserGenresFile)
	if err := WriteGenreRankings(path, in); err != nil {
		t.Fatalf("WriteGenreRankings: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	out, err := ReadGenreRankings(f)
	if err != nil {
		t.Fatalf("ReadGenreRankings: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\nwant=%+v\ngot=%+v", in, out)
	}
}

func TestGenreRankingAverageHasThreeDecimals(t *testing.T) {
	var buf bytes.Buffer
	rows := []types.GenreRanking{
		{UserID: 1, Genre: "Drama", Rank: 1, TotalRatings: 10, AverageRating: 4.0},
		{UserID: 1, Genre: "War", Rank: 2, TotalRatings: 12, AverageRating: 3.5},
		{UserID: 1, Genre: "Crime", Rank: 3, TotalRatings: 11, AverageRating: 3.333},
	}
	if err := Write(&buf, GenreRankingHeader, GenreRankingRows(rows)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := "UserId,Genre,Rank,TotalRatings,AverageRating\n" +
		"1,Drama,1,10,4.000\n" +
		"1,War,2,12,3.500\n" +
		"1,Crime,3,11,3.333\n"
	if buf.String() != want {
		t.Fatalf("want=%q got=%q", want, buf.String())
	}
}

func TestClusterAssignmentLayout(t *testing.T) {
	var buf bytes.Buffer
	rows := []types.ClusterAssignment{{UserID: 1, Cluster: 0}, {UserID: 2, Cluster: 3}}
	if err := Write(&buf, ClusterAssignmentHeader, ClusterAssignmentRows(rows)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := "UserId,Cluster\n1,0\n2,3\n"
	if buf.String() != want {
		t.Fatalf("want=%q got=%q", want, buf.String())
	}
	back, err := ReadClusterAssignments(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("ReadClusterAssignments: %v", err)
	}
	if !reflect.DeepEqual(rows, back) {
		t.Fatalf("round trip: want=%v got=%v", rows, back)
	}
}

func TestClusterScoresKeepFailureStatus(t *testing.T) {
	in := []types.ClusterScore{
		{K: 2, Silhouette: 0.41, Status: types.ClusterScoreStatusOK},
		{K: 3, Status: "k=3: degenerate input: k=3 exceeds 2 distinct points"},
	}
	var buf bytes.Buffer
	if err := Write(&buf, ClusterScoreHeader, ClusterScoreRows(in)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out, err := ReadClusterScores(&buf)
	if err != nil {
		t.Fatalf("ReadClusterScores: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("want=%+v got=%+v", in, out)
	}
}

func TestWriteFileOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", UsersClusteredFile)
	if err := WriteClusterAssignments(path, []types.ClusterAssignment{{UserID: 1, Cluster: 1}, {UserID: 2, Cluster: 0}}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteClusterAssignments(path, []types.ClusterAssignment{{UserID: 9, Cluster: 2}}); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "UserId,Cluster\n9,2\n" {
		t.Fatalf("unexpected content %q", string(b))
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %d entries", len(entries))
	}
}

func TestWriteFileUnwritableTarget(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	err := WriteClusterAssignments(filepath.Join(blocker, UsersClusteredFile), nil)
	if !errors.Is(err, apperr.ErrOutputWrite) {
		t.Fatalf("expected ErrOutputWrite, got %v", err)
	}
}

func TestReadRejectsWrongHeader(t *testing.T) {
	_, err := ReadClusterAssignments(strings.NewReader("user,cluster\n1,0\n"))
	if !errors.Is(err, apperr.ErrInputFormat) {
		t.Fatalf("expected ErrInputFormat, got %v", err)
	}
}

func TestWriteAtomicFailureKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ClusterScoresFile)
	if err := WriteClusterScores(path, []types.ClusterScore{{K: 2, Silhouette: 0.5, Status: types.ClusterScoreStatusOK}}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	boom := errors.New("boom")
	err = WriteAtomic(path, func(w io.Writer) error {
		if _, err := w.Write([]byte("partial")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want=%v got=%v", boom, err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("previous file removed: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("previous file modified: %q", string(after))
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %d entries", len(entries))
	}
}
