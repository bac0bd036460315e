package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Paper is one entry of the conference metadata.
type Paper struct {
	ID         string
	Title      string
	Authors    []string
	Conference string
}

func (p Paper) String() string {
	return fmt.Sprintf("<Paper %q, %d authors, conference %q>", p.ID, len(p.Authors), p.Conference)
}

// FormatError is returned when the metadata file cannot be read or does not
// have the expected structure.
type FormatError struct {
	Filename string
	Err      error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("metadata %v: %v", e.Filename, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

var errNoPapers = errors.New(`no "papers" object found`)

// Author is the name of an author. In the metadata it is either a string or
// a list of name parts.
type Author string

// UnmarshalJSON accepts "Alice Smith" as well as ["Alice", "Smith"].
func (a *Author) UnmarshalJSON(buf []byte) error {
	var name string

	err := json.Unmarshal(buf, &name)
	if err == nil {
		*a = Author(strings.TrimSpace(name))
		return nil
	}

	var parts []string

	err = json.Unmarshal(buf, &parts)
	if err != nil {
		return fmt.Errorf("author %s is neither a string nor a list of strings", buf)
	}

	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			fields = append(fields, p)
		}
	}

	*a = Author(strings.Join(fields, " "))

	return nil
}

type entry struct {
	Title   string    `json:"title"`
	Authors *[]Author `json:"authors"`
}

// Load reads the papers listed in filename, in the order they appear in the
// file. All errors are of type *FormatError.
func Load(filename string) ([]Paper, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, &FormatError{Filename: filename, Err: err}
	}

	papers, conference, err := decode(json.NewDecoder(f))
	if err != nil {
		_ = f.Close()

		return nil, &FormatError{Filename: filename, Err: err}
	}

	err = f.Close()
	if err != nil {
		return nil, &FormatError{Filename: filename, Err: err}
	}

	if conference == "" {
		conference = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	for i := range papers {
		papers[i].Conference = conference
	}

	return papers, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	d, ok := tok.(json.Delim)
	if !ok || d != want {
		return fmt.Errorf("expected %q, found %v", want, tok)
	}

	return nil
}

func decode(dec *json.Decoder) (papers []Paper, conference string, err error) {
	err = expectDelim(dec, '{')
	if err != nil {
		return nil, "", err
	}

	found := false

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, "", fmt.Errorf("decode: %w", err)
		}

		key, _ := tok.(string)

		switch key {
		case "papers":
			papers, err = decodePapers(dec)
			if err != nil {
				return nil, "", err
			}

			found = true
		case "conference":
			err = dec.Decode(&conference)
			if err != nil {
				return nil, "", fmt.Errorf("decode conference: %w", err)
			}
		default:
			var skip json.RawMessage

			err = dec.Decode(&skip)
			if err != nil {
				return nil, "", fmt.Errorf("decode %q: %w", key, err)
			}
		}
	}

	err = expectDelim(dec, '}')
	if err != nil {
		return nil, "", err
	}

	if !found {
		return nil, "", errNoPapers
	}

	return papers, conference, nil
}

func decodePapers(dec *json.Decoder) ([]Paper, error) {
	err := expectDelim(dec, '{')
	if err != nil {
		return nil, fmt.Errorf("papers: %w", err)
	}

	var papers []Paper

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}

		id, _ := tok.(string)
		if strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("empty paper ID after %d papers", len(papers))
		}

		var e entry

		err = dec.Decode(&e)
		if err != nil {
			return nil, fmt.Errorf("paper %v: %w", id, err)
		}

		if e.Authors == nil {
			return nil, fmt.Errorf("paper %v: no authors list", id)
		}

		p := Paper{
			ID:      id,
			Title:   strings.TrimSpace(e.Title),
			Authors: make([]string, 0, len(*e.Authors)),
		}

		for _, a := range *e.Authors {
			p.Authors = append(p.Authors, string(a))
		}

		papers = append(papers, p)
	}

	err = expectDelim(dec, '}')
	if err != nil {
		return nil, fmt.Errorf("papers: %w", err)
	}

	return papers, nil
}
