package affiliation

import (
	"errors"
	"reflect"
	"testing"
)

func TestMatch(t *testing.T) {
	t.Parallel()

	cleaner := &Cleaner{
		Replacements: []Replacement{
			{From: "´e", To: "e"},
			{From: "´ı", To: "i"},
		},
	}

	tests := []struct {
		name    string
		text    string
		authors []string
		want    []string
		err     error
	}{
		{
			name: "inline",
			text: "Robust Speech Recognition\n" +
				"Alice Smith — University of Alpha\n" +
				"Bob Lee – Beta Institute, USA\n" +
				"Abstract\n" +
				"We present a system.\n",
			authors: []string{"Alice Smith", "Bob Lee"},
			want:    []string{"University of Alpha", "Beta Institute, USA"},
		},
		{
			name: "markers",
			text: "Robust Speech Recognition\n" +
				"Alice Smith1, Bob Lee1,2\n" +
				"1University of Alpha, Finland\n" +
				"2Beta Institute, USA\n" +
				"alice@alpha.fi, bob@beta.org\n" +
				"Abstract\n" +
				"Alice Smith and Bob Lee worked at 3Gamma Labs.\n",
			authors: []string{"Alice Smith", "Bob Lee"},
			want: []string{
				"University of Alpha, Finland",
				"University of Alpha, Finland; Beta Institute, USA",
			},
		},
		{
			name: "markers-without-comma",
			text: "Title\n" +
				"Alice Smith 1 Bob Lee 2\n" +
				"1 University of Alpha, 2 Beta Institute\n",
			authors: []string{"Alice Smith", "Bob Lee"},
			want:    []string{"University of Alpha", "Beta Institute"},
		},
		{
			name: "postal-code",
			text: "Title\n" +
				"Alice Smith1 and Bob Lee2\n" +
				"1University of Alpha, 00076 Espoo\n" +
				"2Beta Institute\n",
			authors: []string{"Alice Smith", "Bob Lee"},
			want:    []string{"University of Alpha, 00076 Espoo", "Beta Institute"},
		},
		{
			name: "shared",
			text: "Robust Speech Recognition\n" +
				"Alice Smith, Bob Lee\n" +
				"Department of Computing,\n" +
				"University of Alpha, Finland\n" +
				"{alice,bob}@alpha.fi\n" +
				"Email: info@alpha.fi\n" +
				"\n" +
				"Abstract\n" +
				"Text.",
			authors: []string{"Alice Smith", "Bob Lee"},
			want: []string{
				"Department of Computing, University of Alpha, Finland",
				"Department of Computing, University of Alpha, Finland",
			},
		},
		{
			name: "groups",
			text: "Title\n" +
				"Alice Smith\n" +
				"University of Alpha\n" +
				"Bob Lee\n" +
				"Beta Institute\n" +
				"Abstract\n",
			authors: []string{"Alice Smith", "Bob Lee"},
			want:    []string{"University of Alpha", "Beta Institute"},
		},
		{
			name: "diacritics",
			text: "Title\n" +
				"Jos´e Garc´ıa, Zoë Müller\n" +
				"Universidad de Granada\n",
			authors: []string{"José García", "Zoe Muller"},
			want:    []string{"Universidad de Granada", "Universidad de Granada"},
		},
		{
			name: "unresolved-marker",
			text: "Title\n" +
				"Alice Smith1, Bob Lee3\n" +
				"1University of Alpha\n",
			authors: []string{"Alice Smith", "Bob Lee"},
			want:    []string{"University of Alpha", ""},
		},
		{
			name: "body-ignored",
			text: "Title\n" +
				"Alice Smith\n" +
				"Abstract\n" +
				"Bob Lee\n" +
				"Beta Institute\n",
			authors: []string{"Alice Smith", "Bob Lee"},
			want:    []string{"", ""},
		},
		{
			name: "author-list-with-dash",
			text: "Title\n" +
				"Alice Smith - Bob Lee\n",
			authors: []string{"Alice Smith", "Bob Lee"},
			want:    []string{"", ""},
			err:     ErrNoMatch,
		},
		{
			name:    "no-author",
			text:    "Title\nCarol Jones\nUniversity of Gamma\n",
			authors: []string{"Alice Smith"},
			want:    []string{""},
			err:     ErrNoMatch,
		},
		{
			name:    "empty-text",
			text:    "",
			authors: []string{"Alice Smith", "Bob Lee"},
			want:    []string{"", ""},
			err:     ErrNoMatch,
		},
		{
			name:    "no-authors",
			text:    "Title\nAlice Smith\nUniversity of Alpha\n",
			authors: []string{},
			want:    []string{},
		},
	}

	for _, test := range tests {
		test := test

		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			m := NewMatcher(cleaner)

			res, err := m.Match(test.text, test.authors)
			if !errors.Is(err, test.err) {
				t.Errorf("wrong error, want %v, got %v", test.err, err)
			}

			if !reflect.DeepEqual(res, test.want) {
				t.Errorf("wrong affiliations\nwant %q\n got %q", test.want, res)
			}
		})
	}
}

func TestMatchMaxLines(t *testing.T) {
	t.Parallel()

	m := NewMatcher(nil)
	m.MaxLines = 1

	res, err := m.Match("Alice Smith\nUniversity of Alpha\nFirst sentence of the body.\n", []string{"Alice Smith"})
	if err != nil {
		t.Fatal(err)
	}

	if res[0] != "University of Alpha" {
		t.Errorf("wrong affiliation, want %q, got %q", "University of Alpha", res[0])
	}
}
