package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fd0/affiliations/affiliation"
	"github.com/fd0/affiliations/config"
	"github.com/fd0/affiliations/extract"
	"github.com/sirupsen/logrus"
)

// probe runs the extraction for a single PDF and prints what was found for
// each author.
func probe(ctx context.Context, out io.Writer, logger logrus.FieldLogger, cfg config.Config, filename string, authors []string) error {
	backend, err := extract.BackendByName(opts.Extractor)
	if err != nil {
		return err
	}

	extracter := extract.New(filepath.Dir(filename), backend)
	extracter.Pages = cfg.Pages
	extracter.Validate = opts.Validate
	extracter.SetLogger(logger)

	text, err := extracter.Text(ctx, filename)
	if err != nil {
		return fmt.Errorf("error processing %v: %w", filename, err)
	}

	if opts.ShowText {
		for _, line := range strings.Split(text, "\n") {
			fmt.Fprintf(out, "| %s\n", line)
		}

		fmt.Fprintln(out)
	}

	matcher := cfg.Matcher()
	matcher.SetLogger(logger)

	affiliations, err := matcher.Match(text, authors)
	if errors.Is(err, affiliation.ErrNoMatch) {
		logger.Warnf("%v: %v", filename, err)
	} else if err != nil {
		return err
	}

	for i, author := range authors {
		aff := affiliations[i]
		if aff == "" {
			aff = "(not found)"
		}

		fmt.Fprintf(out, "%v: %v\n", author, aff)
	}

	return nil
}
