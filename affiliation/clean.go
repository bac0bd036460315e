package affiliation

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Replacement replaces the substring From with To.
type Replacement struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Cleaner normalizes names so that the spelling in the metadata and the text
// extracted from a PDF can be compared.
type Cleaner struct {
	// Replacements are applied before diacritics are removed. They repair
	// broken text extraction, such as spacing accents and ligatures.
	Replacements []Replacement

	// Aliases are applied last and map known spelling differences between
	// metadata and PDFs.
	Aliases []Replacement
}

var initialRegexp = regexp.MustCompile(` ([a-z]) `)

// fold removes diacritics and decomposes compatibility characters.
func fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	res, _, err := transform.String(t, s)
	if err != nil {
		return s
	}

	return res
}

func replace(s string, list []Replacement) string {
	for _, r := range list {
		if r.From == "" {
			continue
		}

		s = strings.ReplaceAll(s, r.From, r.To)
	}

	return s
}

// Clean returns the normalized form of s: lower case, single whitespace,
// initials followed by a dot, without diacritics.
func (c *Cleaner) Clean(s string) string {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	s = initialRegexp.ReplaceAllString(s, " ${1}. ")

	if c == nil {
		return fold(s)
	}

	s = replace(s, c.Replacements)
	s = fold(s)
	s = replace(s, c.Aliases)

	return s
}
