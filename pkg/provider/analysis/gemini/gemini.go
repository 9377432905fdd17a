// Package gemini provides an analysis.Provider backed by the Gemini API
// (google.golang.org/genai) using JSON-mode generateContent requests.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/clausewise/clausewise/pkg/provider/analysis"
)

var _ analysis.Provider = (*Provider)(nil)

const defaultModel = "gemini-2.5-flash"

// Option is a functional option for Provider.
type Option func(*Provider)

// WithModel overrides the default Gemini model.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// Provider implements analysis.Provider using the Gemini API.
type Provider struct {
	client *genai.Client
	model  string
}

// New constructs a Gemini analysis Provider. The client is created eagerly so
// credential problems surface at startup rather than on the first section.
func New(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: apiKey must not be empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	p := &Provider{client: client, model: defaultModel}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Name implements analysis.Provider.
func (p *Provider) Name() string { return "gemini" }

// Analyze implements analysis.Provider.
func (p *Provider) Analyze(ctx context.Context, req analysis.Request) (json.RawMessage, error) {
	prompt, err := analysis.BuildPrompt(req)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %s: generate: %w", req.Section, err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("gemini: %s: empty response", req.Section)
	}
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("gemini: %s: response is not valid JSON", req.Section)
	}
	return json.RawMessage(text), nil
}
