// Package emit names and writes reconciliation result files.
//
// Both operations are deterministic: the output name depends only on the input
// locators and the output directory, and the same rows always produce the same
// bytes. Rows end in CRLF. Quoting is that of encoding/csv: a field is quoted
// when it contains a comma, quote or line break, or starts with a space or tab.
package emit

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"colmerge/internal/source"
)

// Suffix is appended to the joined source basenames.
const Suffix = "_merged.csv"

// OutputPath derives the result file location for the given sources:
// basenames without extension, in input order, joined by "_", plus Suffix.
// An empty dir places the file in the current working directory.
//
//	OutputPath("out", []string{"a/q1.csv", "b/q2.json"}) == "out/q1_q2_merged.csv"
func OutputPath(dir string, sources []string) string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = source.Basename(s)
	}
	name := strings.Join(names, "_") + Suffix
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

// WriteRows writes rows as CSV to path, creating or replacing it.
//
// The rows are written to a temporary file in the same directory and renamed
// into place, so a failed write never leaves a partial result behind. Two
// writers racing on the same path both succeed; the last rename wins.
func WriteRows(path string, rows [][]string) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	w.UseCRLF = true
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
