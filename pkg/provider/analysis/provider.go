// Package analysis defines the Provider interface for the document-analysis
// backend.
//
// A provider answers one request per section: given the document text (or, for
// the jargon glossary, the concatenated prior results) it returns that
// section's JSON payload. Requests are independent and individually
// retryable; providers must be safe for concurrent use because the
// orchestrator fans sections out in parallel.
package analysis

import (
	"context"
	"encoding/json"
)

// Section identifies one independently requested analysis section.
type Section string

const (
	SectionSummary           Section = "summary"
	SectionComplexityScore   Section = "complexityScore"
	SectionSWOT              Section = "swot"
	SectionRedFlags          Section = "redFlags"
	SectionNegotiationPoints Section = "negotiationPoints"
	SectionJargonGlossary    Section = "jargonGlossary"
)

// PrimarySections returns the five sections requested in the initial fan-out.
// The jargon glossary is not among them; it is chained after settlement.
func PrimarySections() []Section {
	return []Section{
		SectionSummary,
		SectionComplexityScore,
		SectionSWOT,
		SectionRedFlags,
		SectionNegotiationPoints,
	}
}

// Valid reports whether s names a known section.
func (s Section) Valid() bool {
	switch s {
	case SectionSummary, SectionComplexityScore, SectionSWOT,
		SectionRedFlags, SectionNegotiationPoints, SectionJargonGlossary:
		return true
	}
	return false
}

// Request is a single section-analysis request.
type Request struct {
	// Section selects the payload shape and the prompt the backend uses.
	Section Section

	// Input is the text to analyse. For primary sections this is the document
	// text; for the jargon glossary it is the concatenation of the successful
	// section payloads.
	Input string
}

// Provider is the abstraction over any section-analysis backend.
//
// Analyze returns the section's JSON payload, already validated to be
// well-formed JSON of the shape the section defines. Implementations must
// propagate ctx cancellation promptly.
type Provider interface {
	Analyze(ctx context.Context, req Request) (json.RawMessage, error)

	// Name identifies the backend for logs and fallback reporting.
	Name() string
}
