package process

import (
	"context"
	"errors"
	"fmt"

	"github.com/fd0/affiliations/affiliation"
	"github.com/fd0/affiliations/metadata"
	"github.com/fd0/affiliations/table"
	"github.com/sirupsen/logrus"
)

// Extracter locates the PDF of a paper and returns the text of its first page.
type Extracter interface {
	Locate(paperID string) (string, error)
	Text(ctx context.Context, filename string) (string, error)
}

// Matcher attributes affiliations found in text to authors.
type Matcher interface {
	Match(text string, authors []string) ([]string, error)
}

// Stats counts what happened during a run.
type Stats struct {
	Papers     int
	Rows       int
	Missing    int
	Unreadable int
	Unmatched  int

	// EmptyAffiliations counts authors without affiliation in papers where
	// at least one author was found.
	EmptyAffiliations int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d papers, %d rows, %d missing, %d unreadable, %d without author match, %d authors without affiliation",
		s.Papers, s.Rows, s.Missing, s.Unreadable, s.Unmatched, s.EmptyAffiliations)
}

// Processor extracts the affiliations for a list of papers, one paper at a time.
type Processor struct {
	Extracter Extracter
	Matcher   Matcher

	log logrus.FieldLogger
}

// New returns a Processor.
func New(extracter Extracter, matcher Matcher) *Processor {
	return &Processor{
		Extracter: extracter,
		Matcher:   matcher,
		log:       logrus.StandardLogger(),
	}
}

// SetLogger updates the logger to use.
func (p *Processor) SetLogger(logger logrus.FieldLogger) {
	p.log = logger.WithField("component", "processor")
}

// processPaper returns the affiliations for the authors of paper. Problems
// with a single paper are logged and result in empty affiliations, only a
// cancelled context is returned as an error.
func (p *Processor) processPaper(ctx context.Context, paper metadata.Paper, stats *Stats) ([]string, error) {
	log := p.log.WithField("paper_id", paper.ID)
	empty := make([]string, len(paper.Authors))

	filename, err := p.Extracter.Locate(paper.ID)
	if err != nil {
		stats.Missing++

		log.WithField("error_step", "pdf_loading").Warn(err)

		return empty, nil
	}

	log = log.WithField("filename", filename)

	text, err := p.Extracter.Text(ctx, filename)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if err != nil {
		stats.Unreadable++

		log.WithField("error_step", "text_extraction").Warn(err)

		return empty, nil
	}

	affiliations, err := p.Matcher.Match(text, paper.Authors)
	if errors.Is(err, affiliation.ErrNoMatch) {
		stats.Unmatched++

		log.WithField("error_step", "affiliations_extraction").WithField("authors", paper.Authors).Warn(err)

		return empty, nil
	}

	if err != nil {
		stats.Unmatched++

		log.WithField("error_step", "affiliations_extraction").Warnf("match failed: %v", err)

		return empty, nil
	}

	for i, author := range paper.Authors {
		if i < len(affiliations) && affiliations[i] != "" {
			continue
		}

		stats.EmptyAffiliations++

		log.WithField("error_step", "affiliations_extraction").WithField("author", author).Warn("no affiliation found for author")
	}

	return affiliations, nil
}

// Run processes papers in order and returns one row per author. The run is
// aborted without result when ctx is cancelled.
func (p *Processor) Run(ctx context.Context, papers []metadata.Paper) (*table.Table, Stats, error) {
	var stats Stats

	tab := table.New()

	for i, paper := range papers {
		if ctx.Err() != nil {
			return nil, stats, ctx.Err()
		}

		p.log.WithField("paper_id", paper.ID).Infof("process paper %d/%d", i+1, len(papers))

		affiliations, err := p.processPaper(ctx, paper, &stats)
		if err != nil {
			return nil, stats, err
		}

		tab.Append(paper.ID, paper.Authors, affiliations)
		stats.Papers++
	}

	stats.Rows = tab.Len()

	return tab, stats, nil
}
