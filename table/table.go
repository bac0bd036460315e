package table

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Header is the first line of the output table.
var Header = []string{"paper_id", "author", "affiliation"}

const outputFileMode = 0644

// Row is one (paper, author) pair.
type Row struct {
	PaperID     string
	Author      string
	Affiliation string
}

// Table holds the rows in the order they were appended.
type Table struct {
	Rows []Row
}

// WriteError is returned when the table cannot be written to its destination.
type WriteError struct {
	Filename string
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write table %v: %v", e.Filename, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// New returns an empty table.
func New() *Table {
	return &Table{}
}

// Append adds one row per author. The affiliation for authors[i] is
// affiliations[i], missing affiliations are empty. A paper without authors
// still gets a row so that its ID is present in the output.
func (t *Table) Append(paperID string, authors, affiliations []string) {
	if len(authors) == 0 {
		t.Rows = append(t.Rows, Row{PaperID: paperID})
		return
	}

	for i, author := range authors {
		row := Row{PaperID: paperID, Author: author}
		if i < len(affiliations) {
			row.Affiliation = affiliations[i]
		}

		t.Rows = append(t.Rows, row)
	}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

var fieldReplacer = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

func field(s string) string {
	return strings.TrimSpace(fieldReplacer.Replace(s))
}

// Write writes the header and all rows as tab-separated values.
func (t *Table) Write(w io.Writer) error {
	wr := csv.NewWriter(w)
	wr.Comma = '\t'

	err := wr.Write(Header)
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range t.Rows {
		err = wr.Write([]string{field(row.PaperID), field(row.Author), field(row.Affiliation)})
		if err != nil {
			return fmt.Errorf("write row for %v: %w", row.PaperID, err)
		}
	}

	wr.Flush()

	return wr.Error()
}

// Save writes the table to filename. The data is written to a temporary file
// in the same directory first, so filename is either complete or untouched.
// All errors are of type *WriteError.
func (t *Table) Save(filename string) (err error) {
	f, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+".tmp-")
	if err != nil {
		return &WriteError{Filename: filename, Err: err}
	}

	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	bw := bufio.NewWriter(f)

	err = t.Write(bw)
	if err == nil {
		err = bw.Flush()
	}

	if err != nil {
		_ = f.Close()

		return &WriteError{Filename: filename, Err: err}
	}

	err = f.Chmod(outputFileMode)
	if err != nil {
		_ = f.Close()

		return &WriteError{Filename: filename, Err: err}
	}

	err = f.Close()
	if err != nil {
		return &WriteError{Filename: filename, Err: err}
	}

	err = os.Rename(f.Name(), filename)
	if err != nil {
		return &WriteError{Filename: filename, Err: err}
	}

	return nil
}

// CheckWritable returns a *WriteError if filename cannot be created or
// replaced, without creating it.
func CheckWritable(filename string) error {
	dir := filepath.Dir(filename)

	fi, err := os.Stat(dir)
	if err != nil {
		return &WriteError{Filename: filename, Err: err}
	}

	if !fi.IsDir() {
		return &WriteError{Filename: filename, Err: fmt.Errorf("%v is not a directory", dir)}
	}

	err = unix.Access(dir, unix.W_OK)
	if err != nil {
		return &WriteError{Filename: filename, Err: fmt.Errorf("directory %v: %w", dir, err)}
	}

	fi, err = os.Stat(filename)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return &WriteError{Filename: filename, Err: err}
	}

	if fi.IsDir() {
		return &WriteError{Filename: filename, Err: errors.New("is a directory")}
	}

	return nil
}
