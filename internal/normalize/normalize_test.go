package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \t\n ", ""},
		{"trim and lower", "  221B Baker Street  ", "221b baker street"},
		{"street abbreviation", "10 Downing St.", "10 downing street"},
		{"road abbreviation", "1 Abbey Rd., London", "1 abbey road, london"},
		{"strasse abbreviation", "Hauptstr. 5", "hauptstrasse 5"},
		{"newline to delimiter", "1 Main St.\nSpringfield", "1 main street, springfield"},
		{"crlf to delimiter", "1 Main St.\r\nSpringfield", "1 main street, springfield"},
		{"collapse interior spaces", "1    Main     Road", "1 main road"},
		{"newline then indentation", "Line one\n    line two", "line one, line two"},
		{"tabs", "a\tb", "a b"},
		{"decomposed accent", "Cafe\u0301 Rue", "caf\u00e9 rue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"221B Baker Street",
		"not a real place",
		"10 Downing St.",
		"  Hauptstr. 5\n10115 Berlin  ",
		"1 Abbey Rd., London NW8",
		"East. st.. rd.rd. str.str.",
		"ÄÖÜ straße\n\n\nZürich",
		"Café\r\n  Rue   de   Rivoli",
	}

	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNew_ExtraRules(t *testing.T) {
	t.Parallel()

	n := New(Rule{From: "Ave.", To: "Avenue"}, Rule{From: "", To: "ignored"})
	assert.Len(t, n.Rules(), 4)
	assert.Equal(t, "5 park avenue", n.Normalize("5 Park Ave."))
	assert.Equal(t, "10 downing street", n.Normalize("10 Downing St."))
}

func TestZeroValueNormalizer(t *testing.T) {
	t.Parallel()

	var n Normalizer
	assert.Equal(t, "10 downing st.", n.Normalize(" 10  Downing St. "))
}
