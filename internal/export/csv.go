package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	apperr "github.com/yungbote/movielens-insights/internal/pkg/errors"
)

// Write emits header then rows as RFC 4180 CSV.
func Write(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteFile replaces path with the CSV document.
func WriteFile(path string, header []string, rows [][]string) error {
	return WriteAtomic(path, func(w io.Writer) error {
		if err := Write(w, header, rows); err != nil {
			return fmt.Errorf("%w: write %s: %v", apperr.ErrOutputWrite, path, err)
		}
		return nil
	})
}

// WriteAtomic creates path's directory, streams write into a temporary file in
// it and renames the result over path. When write fails the temporary file is
// removed and any previous file at path is left intact. Errors from write are
// returned unchanged; filesystem failures wrap ErrOutputWrite.
func WriteAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", apperr.ErrOutputWrite, dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", apperr.ErrOutputWrite, path, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()
	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", apperr.ErrOutputWrite, path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", apperr.ErrOutputWrite, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename %s: %v", apperr.ErrOutputWrite, path, err)
	}
	tmpName = ""
	return nil
}

// Read parses a CSV document, checks its header and returns the data rows.
func Read(r io.Reader, header []string) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	got, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: missing header", apperr.ErrInputFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", apperr.ErrInputFormat, err)
	}
	for i := range header {
		if got[i] != header[i] {
			return nil, fmt.Errorf("%w: column %d: want %q got %q", apperr.ErrInputFormat, i, header[i], got[i])
		}
	}
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInputFormat, err)
	}
	return rows, nil
}
