package transcript

import (
	"strings"
	"testing"

	"github.com/clausewise/clausewise/internal/analysis"
)

// tableMatcher maps exact lowercase spans to replacements.
type tableMatcher map[string]string

func (m tableMatcher) Match(word string, _ []string) (string, float64, bool) {
	if term, ok := m[strings.ToLower(word)]; ok {
		return term, 0.9, true
	}
	return word, 0, false
}

func TestCorrect_ReplacesMisheardTerms(t *testing.T) {
	t.Parallel()

	c := New([]string{"force majeure", "estoppel"}, WithMatcher(tableMatcher{
		"four major": "force majeure",
		"a stopple":  "estoppel",
	}))

	got := c.Correct("what does four major mean here")
	if got != "what does force majeure mean here" {
		t.Errorf("Correct = %q", got)
	}
}

func TestCorrectDetailed_LongestWindowWins(t *testing.T) {
	t.Parallel()

	// Both the two-word window and its first word alone would match; the
	// two-word replacement must win.
	c := New([]string{"force majeure", "force"}, WithMatcher(tableMatcher{
		"four major": "force majeure",
		"four":       "force",
	}))

	got, corrections := c.CorrectDetailed("four major clause")
	if got != "force majeure clause" {
		t.Errorf("corrected = %q", got)
	}
	if len(corrections) != 1 || corrections[0].Original != "four major" {
		t.Errorf("corrections = %+v", corrections)
	}
}

func TestCorrectDetailed_PreservesPunctuation(t *testing.T) {
	t.Parallel()

	c := New([]string{"estoppel"}, WithMatcher(tableMatcher{
		"a stopple": "estoppel",
	}))

	got, _ := c.CorrectDetailed("what is a stopple?")
	if got != "what is estoppel?" {
		t.Errorf("corrected = %q", got)
	}
}

func TestCorrect_IdenticalMatchRecordsNothing(t *testing.T) {
	t.Parallel()

	c := New([]string{"estoppel"}, WithMatcher(tableMatcher{
		"estoppel": "estoppel",
	}))

	got, corrections := c.CorrectDetailed("Estoppel applies here")
	if got != "Estoppel applies here" {
		t.Errorf("corrected = %q, want original casing untouched", got)
	}
	if len(corrections) != 0 {
		t.Errorf("corrections = %+v, want none", corrections)
	}
}

func TestCorrect_EmptyTermListPassesThrough(t *testing.T) {
	t.Parallel()

	c := New(nil)
	if got := c.Correct("anything at all"); got != "anything at all" {
		t.Errorf("Correct = %q", got)
	}
}

func TestFromGlossary_SkipsBlankTerms(t *testing.T) {
	t.Parallel()

	c := FromGlossary([]analysis.GlossaryTerm{
		{Term: "lien", Definition: "a claim on property"},
		{Term: "   "},
	})
	if len(c.terms) != 1 || c.terms[0] != "lien" {
		t.Errorf("terms = %v", c.terms)
	}
}
