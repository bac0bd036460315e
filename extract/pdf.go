package extract

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

const (
	// minGap is the horizontal distance between two glyphs, relative to the
	// font size, above which a space is inserted.
	minGap = 0.2

	// rowTolerance is the vertical distance, relative to the font size, up to
	// which glyphs belong to the same row. Superscript markers stay on the
	// row of the name they follow.
	rowTolerance = 0.4
)

// Native extracts text with a pure Go PDF reader. Glyphs are grouped by
// their baseline, so each returned line is one row on the page.
type Native struct{}

// Text returns the rows of the first pages of filename, top to bottom.
func (Native) Text(ctx context.Context, filename string, pages int) (text string, err error) {
	f, r, err := pdf.Open(filename)
	if err != nil {
		if f != nil {
			_ = f.Close()
		}

		return "", fmt.Errorf("open %v: %w", filename, err)
	}

	defer func() {
		e := f.Close()
		if err == nil && e != nil {
			err = fmt.Errorf("close %v: %w", filename, e)
		}
	}()

	if pages > r.NumPage() {
		pages = r.NumPage()
	}

	var lines []string

	for i := 1; i <= pages; i++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		for _, row := range groupRows(page.Content().Text) {
			line := joinRow(row)
			if line == "" {
				continue
			}

			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n"), nil
}

func rowLimit(a, b pdf.Text) float64 {
	return math.Max(1, rowTolerance*math.Max(a.FontSize, b.FontSize))
}

// groupRows sorts glyphs from the top of the page to the bottom and splits
// them into rows. Glyphs keep their content stream order within a row,
// control characters are dropped.
func groupRows(glyphs []pdf.Text) [][]pdf.Text {
	texts := make([]pdf.Text, 0, len(glyphs))

	for _, t := range glyphs {
		if t.S == "" || strings.IndexFunc(t.S, unicode.IsControl) >= 0 {
			continue
		}

		texts = append(texts, t)
	}

	order := make([]int, len(texts))
	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(a, b int) bool {
		return texts[order[a]].Y > texts[order[b]].Y
	})

	var buckets [][]int

	first := 0

	for i, idx := range order {
		if i == 0 || texts[first].Y-texts[idx].Y > rowLimit(texts[first], texts[idx]) {
			buckets = append(buckets, nil)
			first = idx
		}

		buckets[len(buckets)-1] = append(buckets[len(buckets)-1], idx)
	}

	rows := make([][]pdf.Text, 0, len(buckets))

	for _, bucket := range buckets {
		sort.Ints(bucket)

		row := make([]pdf.Text, 0, len(bucket))
		for _, idx := range bucket {
			row = append(row, texts[idx])
		}

		rows = append(rows, row)
	}

	return rows
}

func joinRow(row []pdf.Text) string {
	texts := make([]pdf.Text, len(row))
	copy(texts, row)

	sort.SliceStable(texts, func(a, b int) bool {
		return texts[a].X < texts[b].X
	})

	var sb strings.Builder

	for i, t := range texts {
		if i > 0 {
			prev := texts[i-1]
			gap := t.X - (prev.X + prev.W)

			if prev.W > 0 && gap > minGap*t.FontSize &&
				!strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(t.S, " ") {
				sb.WriteByte(' ')
			}
		}

		sb.WriteString(t.S)
	}

	return strings.TrimSpace(sb.String())
}
