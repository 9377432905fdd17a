package analysis

import "fmt"

// sectionSpec holds the prompt instruction and the JSON shape contract for
// one section. Both backends build their requests from the same specs so
// fallback between providers yields compatible payloads.
type sectionSpec struct {
	// instruction tells the model what to produce for this section.
	instruction string

	// shape is an inline description of the required JSON value, embedded in
	// the prompt and enforced again by backend-native structured output where
	// the API supports it.
	shape string

	// schema is the JSON Schema for backends with native structured output.
	schema map[string]any
}

var sectionSpecs = map[Section]sectionSpec{
	SectionSummary: {
		instruction: "Summarise this legal document for a non-lawyer.",
		shape:       `{"title": string, "overview": string, "keyPoints": [string]}`,
		schema: objectSchema(map[string]any{
			"title":     map[string]any{"type": "string"},
			"overview":  map[string]any{"type": "string"},
			"keyPoints": arraySchema(map[string]any{"type": "string"}),
		}, "title", "overview", "keyPoints"),
	},
	SectionComplexityScore: {
		instruction: "Rate how difficult this legal document is for a layperson to understand.",
		shape:       `{"score": integer 1-10, "rationale": string}`,
		schema: objectSchema(map[string]any{
			"score":     map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
			"rationale": map[string]any{"type": "string"},
		}, "score", "rationale"),
	},
	SectionSWOT: {
		instruction: "Produce a SWOT analysis of this legal document from the signing party's perspective.",
		shape:       `{"strengths": [string], "weaknesses": [string], "opportunities": [string], "threats": [string]}`,
		schema: objectSchema(map[string]any{
			"strengths":     arraySchema(map[string]any{"type": "string"}),
			"weaknesses":    arraySchema(map[string]any{"type": "string"}),
			"opportunities": arraySchema(map[string]any{"type": "string"}),
			"threats":       arraySchema(map[string]any{"type": "string"}),
		}, "strengths", "weaknesses", "opportunities", "threats"),
	},
	SectionRedFlags: {
		instruction: "Identify clauses in this legal document that are unusual, one-sided, or risky for the signing party.",
		shape:       `{"redFlags": [{"clause": string, "risk": string, "severity": "low"|"medium"|"high"}]}`,
		schema: objectSchema(map[string]any{
			"redFlags": arraySchema(objectSchema(map[string]any{
				"clause":   map[string]any{"type": "string"},
				"risk":     map[string]any{"type": "string"},
				"severity": map[string]any{"type": "string", "enum": []string{"low", "medium", "high"}},
			}, "clause", "risk", "severity")),
		}, "redFlags"),
	},
	SectionNegotiationPoints: {
		instruction: "List concrete points the signing party should try to negotiate in this legal document.",
		shape:       `{"negotiationPoints": [{"point": string, "suggestion": string}]}`,
		schema: objectSchema(map[string]any{
			"negotiationPoints": arraySchema(objectSchema(map[string]any{
				"point":      map[string]any{"type": "string"},
				"suggestion": map[string]any{"type": "string"},
			}, "point", "suggestion")),
		}, "negotiationPoints"),
	},
	SectionJargonGlossary: {
		instruction: "Extract the legal jargon terms appearing in the following analysis results and define each in plain language.",
		shape:       `{"terms": [{"term": string, "definition": string}]}`,
		schema: objectSchema(map[string]any{
			"terms": arraySchema(objectSchema(map[string]any{
				"term":       map[string]any{"type": "string"},
				"definition": map[string]any{"type": "string"},
			}, "term", "definition")),
		}, "terms"),
	},
}

// BuildPrompt renders the full user prompt for req. It returns an error for
// unknown sections so backends fail fast instead of sending a blank prompt.
func BuildPrompt(req Request) (string, error) {
	spec, ok := sectionSpecs[req.Section]
	if !ok {
		return "", fmt.Errorf("analysis: unknown section %q", req.Section)
	}
	return fmt.Sprintf(
		"%s\n\nRespond with a single JSON object of exactly this shape, no prose:\n%s\n\n--- INPUT ---\n%s",
		spec.instruction, spec.shape, req.Input,
	), nil
}

// Schema returns the JSON Schema for a section, or nil for unknown sections.
func Schema(s Section) map[string]any {
	spec, ok := sectionSpecs[s]
	if !ok {
		return nil
	}
	return spec.schema
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

func arraySchema(items map[string]any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}
