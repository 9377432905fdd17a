// Package chat implements the text Q&A assistant: turn-based questions about
// an analysed document, answered by a completion backend grounded on the
// analysis snapshot.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/clausewise/clausewise/internal/voice"
	"github.com/clausewise/clausewise/pkg/provider/llm"
)

const (
	defaultTemperature = 0.4
	defaultMaxTokens   = 1024

	// defaultWindow is the number of history messages kept in the prompt.
	// Older turns fall out of the window but stay in History.
	defaultWindow = 20
)

// Option is a functional option for configuring an [Assistant].
type Option func(*Assistant)

// WithTemperature overrides the completion temperature. Default: 0.4.
func WithTemperature(t float64) Option {
	return func(a *Assistant) { a.temperature = t }
}

// WithMaxTokens caps the reply length. Default: 1024.
func WithMaxTokens(n int) Option {
	return func(a *Assistant) { a.maxTokens = n }
}

// WithWindow sets how many history messages are included in each prompt.
// Default: 20.
func WithWindow(n int) Option {
	return func(a *Assistant) { a.window = n }
}

// Assistant answers questions about one analysed document. Concurrent Ask
// calls are serialised via an internal mutex to keep the history coherent.
type Assistant struct {
	provider    llm.Provider
	system      string
	temperature float64
	maxTokens   int
	window      int

	mu       sync.Mutex
	messages []llm.Message
}

// New creates an Assistant. analysisJSON is the serialized analysis snapshot
// the answers are grounded on; empty means general legal Q&A.
func New(provider llm.Provider, analysisJSON string, opts ...Option) (*Assistant, error) {
	if provider == nil {
		return nil, errors.New("chat: provider must not be nil")
	}
	a := &Assistant{
		provider:    provider,
		system:      systemPrompt(analysisJSON),
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
		window:      defaultWindow,
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// systemPrompt grounds the assistant on the analysis snapshot and carries
// the same disclaimer contract as the voice personas.
func systemPrompt(analysisJSON string) string {
	var b strings.Builder
	b.WriteString("You are a legal advisor who explains legal concepts in plain language for non-lawyers. ")
	if strings.TrimSpace(analysisJSON) != "" {
		b.WriteString("The user's document was analysed with these results:\n\n")
		b.WriteString(analysisJSON)
		b.WriteString("\n\nGround every answer in this analysis; say so when a question falls outside it. ")
	}
	b.WriteString("In your first reply, include this notice word for word: ")
	fmt.Fprintf(&b, "%q.", voice.Disclaimer)
	return b.String()
}

// Ask sends question to the model and returns the full reply. The exchange
// is recorded in the conversation history.
func (a *Assistant) Ask(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", errors.New("chat: empty question")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}

	resp, err := a.provider.Complete(ctx, a.buildRequest(question))
	if err != nil {
		return "", fmt.Errorf("chat: complete: %w", err)
	}

	a.record(question, resp.Content)
	return resp.Content, nil
}

// Stream sends question to the model and returns a channel of reply chunks.
// The assistant turn enters the history once the stream ends; a chunk with
// FinishReason "error" discards the partial reply.
func (a *Assistant) Stream(ctx context.Context, question string) (<-chan llm.Chunk, error) {
	if strings.TrimSpace(question) == "" {
		return nil, errors.New("chat: empty question")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	stream, err := a.provider.StreamCompletion(ctx, a.buildRequest(question))
	if err != nil {
		return nil, fmt.Errorf("chat: stream: %w", err)
	}

	out := make(chan llm.Chunk)
	go func() {
		defer close(out)
		var reply strings.Builder
		failed := false
		for chunk := range stream {
			if chunk.FinishReason == "error" {
				failed = true
			} else {
				reply.WriteString(chunk.Text)
			}
			out <- chunk
		}
		if !failed {
			a.mu.Lock()
			a.record(question, reply.String())
			a.mu.Unlock()
		}
	}()
	return out, nil
}

// History returns a copy of the full conversation so far.
func (a *Assistant) History() []llm.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]llm.Message, len(a.messages))
	copy(out, a.messages)
	return out
}

// Reset clears the conversation history. The grounding snapshot stays.
func (a *Assistant) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = nil
}

// buildRequest assembles the windowed prompt plus the new question.
// Must be called with a.mu held.
func (a *Assistant) buildRequest(question string) llm.CompletionRequest {
	recent := a.messages
	if len(recent) > a.window {
		recent = recent[len(recent)-a.window:]
	}
	msgs := make([]llm.Message, len(recent), len(recent)+1)
	copy(msgs, recent)
	msgs = append(msgs, llm.Message{Role: "user", Content: question})

	return llm.CompletionRequest{
		SystemPrompt: a.system,
		Messages:     msgs,
		Temperature:  a.temperature,
		MaxTokens:    a.maxTokens,
	}
}

// record appends one finished exchange. Must be called with a.mu held.
func (a *Assistant) record(question, reply string) {
	a.messages = append(a.messages, llm.Message{Role: "user", Content: question})
	if reply != "" {
		a.messages = append(a.messages, llm.Message{Role: "assistant", Content: reply})
	}
}
