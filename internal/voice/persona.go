package voice

import "fmt"

// Disclaimer is the fixed legal disclaimer the assistant must deliver
// verbatim in its first reply. Delivery is a protocol contract with the
// backend: the instruction is embedded once in the system prompt at session
// open, and the client never enforces or repeats it.
const Disclaimer = "Please remember: I am an AI assistant, not a lawyer. " +
	"Nothing I say is legal advice. For decisions with legal consequences, " +
	"consult a qualified attorney."

// Persona parameterises the session controller so the general advisor and
// the document-specific advisor share one implementation.
type Persona struct {
	// Name labels the persona in logs.
	Name string

	// SystemPrompt is the full system instruction sent at session open.
	SystemPrompt string
}

// introContract is the shared first-turn instruction: a one-time
// self-introduction plus the verbatim disclaimer, never repeated.
func introContract() string {
	return fmt.Sprintf(
		"On your first reply only: briefly introduce yourself, then say exactly the following, word for word: %q. "+
			"Never repeat the introduction or the disclaimer in later replies.",
		Disclaimer,
	)
}

// GeneralAdvisor is the persona for open-ended legal conversation with no
// document loaded.
func GeneralAdvisor(language string) Persona {
	return Persona{
		Name: "general-advisor",
		SystemPrompt: fmt.Sprintf(
			"You are a friendly legal advisor who explains legal concepts in plain language for non-lawyers. "+
				"Keep answers short and conversational; this is a spoken dialogue. Speak %s. %s",
			language, introContract(),
		),
	}
}

// DocumentAdvisor is the persona grounded on a specific document's analysis.
// analysisJSON is the serialized analysis snapshot; it is embedded in the
// system prompt so the backend can answer questions about the document.
func DocumentAdvisor(language, analysisJSON string) Persona {
	return Persona{
		Name: "document-advisor",
		SystemPrompt: fmt.Sprintf(
			"You are a legal advisor discussing one specific document with the user. "+
				"The document was analysed with these results:\n\n%s\n\n"+
				"Ground every answer in this analysis; say so when a question falls outside it. "+
				"Keep answers short and conversational; this is a spoken dialogue. Speak %s. %s",
			analysisJSON, language, introContract(),
		),
	}
}
