// Package normalize turns free-text addresses into the canonical form used
// as the lookup cache key.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Rule is a literal substring expansion applied to lower-cased text.
type Rule struct {
	From string `yaml:"from" mapstructure:"from"`
	To   string `yaml:"to" mapstructure:"to"`
}

// DefaultRules returns the built-in expansion table in application order.
func DefaultRules() []Rule {
	return []Rule{
		{From: "st.", To: "street"},
		{From: "rd.", To: "road"},
		{From: "str.", To: "strasse"},
	}
}

var lineBreaks = strings.NewReplacer("\r\n", ", ", "\n", ", ", "\r", ", ")

// Normalizer canonicalizes address strings. The zero value applies no
// expansions; use New for the default table.
type Normalizer struct {
	rules []Rule
}

// New returns a Normalizer using the default expansion table followed by
// any extra rules. Extra rules must not produce their own From text or the
// result is no longer idempotent.
func New(extra ...Rule) *Normalizer {
	rules := DefaultRules()
	for _, r := range extra {
		if r.From == "" {
			continue
		}
		rules = append(rules, Rule{From: strings.ToLower(r.From), To: strings.ToLower(r.To)})
	}
	return &Normalizer{rules: rules}
}

// Rules returns a copy of the expansion table.
func (n *Normalizer) Rules() []Rule {
	out := make([]Rule, len(n.rules))
	copy(out, n.rules)
	return out
}

// Normalize returns the canonical form of text. It never fails; empty or
// whitespace-only input yields "".
func (n *Normalizer) Normalize(text string) string {
	s := norm.NFC.String(text)
	s = strings.TrimSpace(s)
	s = lineBreaks.Replace(s)
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), " ")
	for _, r := range n.rules {
		s = strings.ReplaceAll(s, r.From, r.To)
	}
	return norm.NFC.String(s)
}

var std = New()

// Normalize canonicalizes text with the default expansion table.
func Normalize(text string) string {
	return std.Normalize(text)
}
