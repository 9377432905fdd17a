// Package transcript fixes misheard legal vocabulary in finalized user
// turns. Live speech recognition regularly mangles terms of art: "force
// majeure" comes back as "four major", "estoppel" as "a stopple". The
// [Corrector] aligns each turn against the document's jargon glossary with
// phonetic matching, so the conversation history and any downstream prompts
// carry the terms the user actually meant.
package transcript

import (
	"strings"
	"unicode"

	"github.com/clausewise/clausewise/internal/analysis"
	"github.com/clausewise/clausewise/internal/transcript/phonetic"
)

// Correction captures a single substitution made by the corrector.
type Correction struct {
	// Original is the text span as transcribed.
	Original string

	// Corrected is the glossary term it was replaced with.
	Corrected string

	// Confidence is the match score (0.0 to 1.0).
	Confidence float64
}

// Matcher resolves a word or phrase to a known term by pronunciation
// similarity. Implementations must be safe for concurrent use.
type Matcher interface {
	Match(word string, terms []string) (corrected string, confidence float64, matched bool)
}

// Option is a functional option for configuring a [Corrector].
type Option func(*Corrector)

// WithMatcher replaces the default phonetic matcher.
func WithMatcher(m Matcher) Option {
	return func(c *Corrector) {
		c.matcher = m
	}
}

// Corrector rewrites transcript text against a fixed term list. It is
// read-only after construction and safe for concurrent use.
type Corrector struct {
	matcher      Matcher
	terms        []string
	maxTermWords int
}

// New returns a Corrector over terms. An empty term list yields a corrector
// that passes text through unchanged.
func New(terms []string, opts ...Option) *Corrector {
	c := &Corrector{
		matcher: phonetic.New(),
		terms:   terms,
	}
	for _, o := range opts {
		o(c)
	}
	for _, t := range terms {
		if n := len(strings.Fields(t)); n > c.maxTermWords {
			c.maxTermWords = n
		}
	}
	return c
}

// FromGlossary builds a Corrector from a document's jargon glossary.
func FromGlossary(terms []analysis.GlossaryTerm, opts ...Option) *Corrector {
	names := make([]string, 0, len(terms))
	for _, t := range terms {
		if strings.TrimSpace(t.Term) != "" {
			names = append(names, t.Term)
		}
	}
	return New(names, opts...)
}

// Correct returns text with every recognised misheard span replaced by its
// glossary term. It satisfies the voice session's corrector contract.
func (c *Corrector) Correct(text string) string {
	corrected, _ := c.CorrectDetailed(text)
	return corrected
}

// CorrectDetailed applies corrections and itemises every substitution.
//
// The text is tokenised on whitespace and walked left to right. At each
// position, n-gram windows from the longest term length down to one word are
// tested against the term list; the longest match wins so multi-word terms
// take precedence over partial single-word matches. Surrounding punctuation
// is preserved across a substitution.
func (c *Corrector) CorrectDetailed(text string) (string, []Correction) {
	if c.maxTermWords == 0 {
		return text, nil
	}
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return text, nil
	}

	var output []string
	var corrections []Correction

	i := 0
	for i < len(tokens) {
		maxN := c.maxTermWords
		if i+maxN > len(tokens) {
			maxN = len(tokens) - i
		}

		matched := false
		for n := maxN; n >= 1; n-- {
			window := strings.Join(tokens[i:i+n], " ")
			prefix, core, suffix := splitPunct(window)
			if core == "" {
				continue
			}
			term, conf, ok := c.matcher.Match(core, c.terms)
			if !ok || strings.EqualFold(core, term) {
				continue
			}

			output = append(output, prefix+term+suffix)
			corrections = append(corrections, Correction{
				Original:   core,
				Corrected:  term,
				Confidence: conf,
			})
			i += n
			matched = true
			break
		}

		if !matched {
			output = append(output, tokens[i])
			i++
		}
	}

	return strings.Join(output, " "), corrections
}

// splitPunct separates leading and trailing punctuation from a span so that
// "estoppel?" matches "estoppel" and the question mark survives replacement.
func splitPunct(s string) (prefix, core, suffix string) {
	start := 0
	for start < len(s) && isPunct(rune(s[start])) {
		start++
	}
	end := len(s)
	for end > start && isPunct(rune(s[end-1])) {
		end--
	}
	return s[:start], s[start:end], s[end:]
}

func isPunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
