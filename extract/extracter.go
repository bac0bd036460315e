package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/sirupsen/logrus"
)

// NotFoundError is returned when the archive has no PDF for a paper.
type NotFoundError struct {
	PaperID string
	Dir     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no PDF for %v in %v", e.PaperID, e.Dir)
}

// ReadError is returned when a PDF cannot be parsed.
type ReadError struct {
	Filename string
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %v: %v", e.Filename, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// pdfcpu exits the process when it cannot create its configuration
// directory, validation does not need it.
var disableConfigDir sync.Once

// Extracter finds the PDF for a paper in the archive directory and returns
// the text of its first pages.
type Extracter struct {
	ArchiveDir string

	// Pages is the number of pages to extract, starting with the first.
	Pages int

	// Validate runs a structural check on each file before the text is
	// extracted.
	Validate bool

	Backend Backend

	log logrus.FieldLogger
}

// New returns an Extracter for the first page of the PDFs in archiveDir.
func New(archiveDir string, backend Backend) *Extracter {
	return &Extracter{
		ArchiveDir: archiveDir,
		Pages:      1,
		Backend:    backend,
		log:        logrus.StandardLogger(),
	}
}

// SetLogger updates the logger to use.
func (e *Extracter) SetLogger(logger logrus.FieldLogger) {
	e.log = logger.WithField("component", "extracter")
}

// Locate returns the path of the PDF for paperID, which is named after the ID.
func (e *Extracter) Locate(paperID string) (string, error) {
	if paperID == "" || paperID != filepath.Base(paperID) {
		return "", &NotFoundError{PaperID: paperID, Dir: e.ArchiveDir}
	}

	for _, ext := range []string{".pdf", ".PDF"} {
		filename := filepath.Join(e.ArchiveDir, paperID+ext)

		fi, err := os.Stat(filename)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err != nil {
			e.log.WithField("filename", filename).Debugf("stat failed: %v", err)
			continue
		}

		if !fi.Mode().IsRegular() {
			e.log.WithField("filename", filename).Debug("ignore non-regular file")
			continue
		}

		return filename, nil
	}

	return "", &NotFoundError{PaperID: paperID, Dir: e.ArchiveDir}
}

// Text returns the text of the first pages of filename. All errors except a
// cancelled context are of type *ReadError.
func (e *Extracter) Text(ctx context.Context, filename string) (text string, err error) {
	log := e.log.WithField("filename", filename)

	if e.Validate {
		disableConfigDir.Do(pdfcpu.DisableConfigDir)

		err = pdfcpu.ValidateFile(filename, nil)
		if err != nil {
			return "", &ReadError{Filename: filename, Err: fmt.Errorf("validate: %w", err)}
		}

		log.Debug("validation passed")
	}

	pages := e.Pages
	if pages < 1 {
		pages = 1
	}

	// the PDF parsers panic on some broken files
	defer func() {
		r := recover()
		if r != nil {
			text = ""
			err = &ReadError{Filename: filename, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	text, err = e.Backend.Text(ctx, filename, pages)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		return "", &ReadError{Filename: filename, Err: err}
	}

	log.Debugf("extracted %d bytes from %d page(s)", len(text), pages)

	return text, nil
}
