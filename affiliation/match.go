package affiliation

import (
	"errors"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultMaxLines is the number of lines after an author block which may
// contain affiliations.
const DefaultMaxLines = 8

// ErrNoMatch is returned when none of the authors could be found in the text.
var ErrNoMatch = errors.New("no author found in text")

var (
	// the header ends with the "Abstract" heading, either on its own line or
	// followed by a dash or colon
	abstractRegexp = regexp.MustCompile(`(?s)\n[ \t]*Abstract(?:[ \t]*(?:\n|$)|[ \t]*[—–:.-]).*$`)

	emailRegexp = regexp.MustCompile(`(?i)^e-?mails?\b`)

	markerRegexp       = regexp.MustCompile(`[0-9]{1,2}|[*†‡§¶]`)
	markerBeforeName   = regexp.MustCompile(`([0-9]{1,2}|[*†‡§¶])\s+([a-z])`)
	nameSplitRegexp    = regexp.MustCompile(`,|;| and | & `)
	nonNameRegexp      = regexp.MustCompile(`[^a-z\-. ']`)
	affiliationMarkers = regexp.MustCompile(`(?:^|[,;])\s*([0-9]{1,2}|[*†‡§¶])\s*`)
)

var inlineSeparators = []string{" — ", " – ", " - "}

// Matcher finds the affiliations of authors in the text of a paper's first page.
type Matcher struct {
	Cleaner *Cleaner

	// MaxLines limits the affiliation lines following each author block.
	MaxLines int

	log logrus.FieldLogger
}

// NewMatcher returns a Matcher which normalizes names with cleaner.
func NewMatcher(cleaner *Cleaner) *Matcher {
	return &Matcher{
		Cleaner:  cleaner,
		MaxLines: DefaultMaxLines,
		log:      logrus.StandardLogger(),
	}
}

// SetLogger updates the logger to use.
func (m *Matcher) SetLogger(logger logrus.FieldLogger) {
	m.log = logger.WithField("component", "matcher")
}

type line struct {
	raw     string
	cleaned string
}

// chunk is a name found in an author line with the footnote markers printed
// after it.
type chunk struct {
	name    string
	markers []string
}

// group is a block of author lines followed by affiliation lines.
type group struct {
	authors []chunk
	lines   []string
}

type entry struct {
	marker string
	text   string
}

// nameKey reduces a cleaned name to the characters used for comparison.
func nameKey(cleaned string) string {
	s := markerRegexp.ReplaceAllString(cleaned, "")
	s = nonNameRegexp.ReplaceAllString(s, "")

	return strings.Join(strings.Fields(s), " ")
}

func (m *Matcher) headerLines(text string) []line {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	header := abstractRegexp.ReplaceAllString(text, "")

	var lines []string
	for _, raw := range strings.Split(header, "\n") {
		raw = strings.Join(strings.Fields(raw), " ")

		if raw == "" || strings.Contains(raw, "@") || strings.HasPrefix(raw, "{") || emailRegexp.MatchString(raw) {
			continue
		}

		lines = append(lines, raw)
	}

	res := make([]line, 0, len(lines))
	for _, raw := range lines {
		res = append(res, line{raw: raw, cleaned: m.Cleaner.Clean(raw)})
	}

	return res
}

// chunks splits a cleaned author line into names.
func chunks(cleaned string) []chunk {
	cleaned = markerBeforeName.ReplaceAllString(cleaned, "${1}, ${2}")

	var res []chunk

	for _, part := range nameSplitRegexp.Split(cleaned, -1) {
		markers := markerRegexp.FindAllString(part, -1)
		name := nameKey(part)

		// markers separated from the name by a comma ("smith1,2")
		if name == "" {
			if len(res) > 0 {
				res[len(res)-1].markers = append(res[len(res)-1].markers, markers...)
			}

			continue
		}

		res = append(res, chunk{name: name, markers: markers})
	}

	return res
}

// authorLine returns the names in cleaned if its first name is a known author.
func authorLine(cleaned string, index map[string][]int) ([]chunk, bool) {
	list := chunks(cleaned)
	if len(list) == 0 {
		return nil, false
	}

	if _, ok := index[list[0].name]; !ok {
		return nil, false
	}

	return list, true
}

// inline recognizes lines such as "Alice Smith — University of Somewhere".
func (m *Matcher) inline(l line, index map[string][]int) (string, string, bool) {
	for _, sep := range inlineSeparators {
		pos := strings.Index(l.raw, sep)
		if pos < 0 {
			continue
		}

		name := nameKey(m.Cleaner.Clean(l.raw[:pos]))
		if _, ok := index[name]; !ok {
			continue
		}

		aff := strings.TrimSpace(l.raw[pos+len(sep):])
		if aff == "" {
			continue
		}

		// "Alice Smith - Bob Lee" is a list of authors
		if _, ok := authorLine(m.Cleaner.Clean(aff), index); ok {
			continue
		}

		return name, aff, true
	}

	return "", "", false
}

func (m *Matcher) groups(lines []line, index map[string][]int) []*group {
	var (
		res []*group
		cur *group
	)

	max := m.MaxLines
	if max <= 0 {
		max = DefaultMaxLines
	}

	for _, l := range lines {
		names, ok := authorLine(l.cleaned, index)
		if ok {
			if cur == nil || len(cur.lines) > 0 {
				cur = &group{}
				res = append(res, cur)
			}

			for _, c := range names {
				if _, known := index[c.name]; known {
					cur.authors = append(cur.authors, c)
				}
			}

			continue
		}

		// title and anything else before the first author
		if cur == nil {
			continue
		}

		if len(cur.lines) < max {
			cur.lines = append(cur.lines, l.raw)
		}
	}

	return res
}

func trimEntry(s string) string {
	return strings.Trim(s, " ,;")
}

// entries splits affiliation lines at the known footnote markers. Lines
// without a marker continue the previous entry.
func entries(lines []string, known map[string]bool) []entry {
	var res []entry

	for _, l := range lines {
		var starts [][]int

		for _, loc := range affiliationMarkers.FindAllStringSubmatchIndex(l, -1) {
			if known[l[loc[2]:loc[3]]] {
				starts = append(starts, loc)
			}
		}

		leading := l
		if len(starts) > 0 {
			leading = l[:starts[0][0]]
		}

		if text := trimEntry(leading); text != "" {
			if len(res) > 0 {
				res[len(res)-1].text += ", " + text
			} else {
				res = append(res, entry{text: text})
			}
		}

		for i, loc := range starts {
			end := len(l)
			if i+1 < len(starts) {
				end = starts[i+1][0]
			}

			res = append(res, entry{
				marker: l[loc[2]:loc[3]],
				text:   trimEntry(l[loc[1]:end]),
			})
		}
	}

	return res
}

func join(list []entry, sep string) string {
	var parts []string

	seen := make(map[string]struct{}, len(list))

	for _, e := range list {
		if e.text == "" {
			continue
		}

		if _, ok := seen[e.text]; ok {
			continue
		}

		seen[e.text] = struct{}{}

		parts = append(parts, e.text)
	}

	return strings.Join(parts, sep)
}

// Match returns the affiliation for each author, in the order of authors.
// Affiliations which cannot be attributed with confidence are left empty.
// When no author is found in text at all, ErrNoMatch is returned along with
// the empty affiliations.
func (m *Matcher) Match(text string, authors []string) ([]string, error) {
	res := make([]string, len(authors))

	if len(authors) == 0 {
		return res, nil
	}

	index := make(map[string][]int, len(authors))

	for i, a := range authors {
		key := nameKey(m.Cleaner.Clean(a))
		if key == "" {
			m.log.WithField("author", a).Debug("author name is empty after cleaning")
			continue
		}

		index[key] = append(index[key], i)
	}

	found := false

	set := func(name, aff string) {
		for _, i := range index[name] {
			if res[i] == "" {
				res[i] = aff
			}
		}
	}

	lines := m.headerLines(text)

	// first pass: "author — affiliation" lines
	remaining := lines[:0:0]

	for _, l := range lines {
		name, aff, ok := m.inline(l, index)
		if !ok {
			remaining = append(remaining, l)
			continue
		}

		m.log.WithField("author", name).Debugf("inline affiliation %q", aff)

		found = true

		set(name, aff)
	}

	// second pass: author blocks followed by affiliation lines
	groups := m.groups(remaining, index)

	known := make(map[string]bool)

	for _, g := range groups {
		for _, c := range g.authors {
			for _, marker := range c.markers {
				known[marker] = true
			}
		}
	}

	var all [][]entry

	marked := false

	for _, g := range groups {
		list := entries(g.lines, known)
		all = append(all, list)

		for _, e := range list {
			if e.marker != "" {
				marked = true
			}
		}
	}

	for gi, g := range groups {
		found = found || len(g.authors) > 0

		if !marked {
			shared := join(all[gi], ", ")

			m.log.WithField("authors", len(g.authors)).Debugf("shared affiliation %q", shared)

			for _, c := range g.authors {
				set(c.name, shared)
			}

			continue
		}

		for _, c := range g.authors {
			var list []entry

			for _, marker := range c.markers {
				for _, list2 := range all {
					for _, e := range list2 {
						if e.marker == marker {
							list = append(list, e)
						}
					}
				}
			}

			if len(list) == 0 {
				m.log.WithField("author", c.name).Debugf("no affiliation for markers %v", c.markers)
				continue
			}

			set(c.name, join(list, "; "))
		}
	}

	if !found {
		return res, ErrNoMatch
	}

	return res, nil
}
