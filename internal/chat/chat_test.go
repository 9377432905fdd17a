package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/clausewise/clausewise/internal/voice"
	"github.com/clausewise/clausewise/pkg/provider/llm"
	llmmock "github.com/clausewise/clausewise/pkg/provider/llm/mock"
)

func TestNew_NilProvider(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, ""); err == nil {
		t.Fatal("New accepted a nil provider")
	}
}

func TestAsk_GroundsOnAnalysisSnapshot(t *testing.T) {
	t.Parallel()

	mock := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{{Content: "It is a lease."}},
	}
	a, err := New(mock, `{"summary":{"title":"Lease"}}`)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	reply, err := a.Ask(context.Background(), "What kind of contract is this?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if reply != "It is a lease." {
		t.Errorf("reply = %q", reply)
	}

	req := mock.Requests[0]
	if !strings.Contains(req.SystemPrompt, `"Lease"`) {
		t.Error("system prompt does not carry the analysis snapshot")
	}
	if !strings.Contains(req.SystemPrompt, voice.Disclaimer) {
		t.Error("system prompt does not carry the disclaimer")
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Errorf("messages = %+v", req.Messages)
	}
}

func TestAsk_HistoryAccumulatesAcrossTurns(t *testing.T) {
	t.Parallel()

	mock := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{
			{Content: "first answer"},
			{Content: "second answer"},
		},
	}
	a, _ := New(mock, "")

	if _, err := a.Ask(context.Background(), "first question"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if _, err := a.Ask(context.Background(), "second question"); err != nil {
		t.Fatalf("Ask: %v", err)
	}

	// The second request must carry the first exchange.
	second := mock.Requests[1]
	if len(second.Messages) != 3 {
		t.Fatalf("second request messages = %+v", second.Messages)
	}
	if second.Messages[0].Content != "first question" || second.Messages[1].Content != "first answer" {
		t.Errorf("history not replayed: %+v", second.Messages)
	}

	hist := a.History()
	if len(hist) != 4 {
		t.Errorf("history = %+v, want 4 messages", hist)
	}
}

func TestAsk_WindowBoundsPrompt(t *testing.T) {
	t.Parallel()

	mock := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{{Content: "ok"}},
	}
	a, _ := New(mock, "", WithWindow(2))

	for i := 0; i < 4; i++ {
		if _, err := a.Ask(context.Background(), "q"); err != nil {
			t.Fatalf("Ask %d: %v", i, err)
		}
	}

	last := mock.Requests[len(mock.Requests)-1]
	// 2 windowed history messages plus the new question.
	if len(last.Messages) != 3 {
		t.Errorf("windowed messages = %d, want 3", len(last.Messages))
	}
	// Full history is unaffected by the window.
	if len(a.History()) != 8 {
		t.Errorf("history = %d messages, want 8", len(a.History()))
	}
}

func TestAsk_ErrorLeavesHistoryUntouched(t *testing.T) {
	t.Parallel()

	mock := &llmmock.Provider{CompleteErr: errors.New("overloaded")}
	a, _ := New(mock, "")

	if _, err := a.Ask(context.Background(), "q"); err == nil {
		t.Fatal("Ask succeeded, want error")
	}
	if len(a.History()) != 0 {
		t.Errorf("history = %+v, want empty after failure", a.History())
	}
}

func TestAsk_EmptyQuestion(t *testing.T) {
	t.Parallel()

	a, _ := New(&llmmock.Provider{}, "")
	if _, err := a.Ask(context.Background(), "   "); err == nil {
		t.Fatal("Ask accepted a blank question")
	}
}

func TestStream_RecordsReplyWhenDone(t *testing.T) {
	t.Parallel()

	mock := &llmmock.Provider{
		StreamChunks: []llm.Chunk{
			{Text: "A lien is "},
			{Text: "a claim on property."},
			{FinishReason: "stop"},
		},
	}
	a, _ := New(mock, "")

	ch, err := a.Stream(context.Background(), "what is a lien?")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	var got strings.Builder
	for chunk := range ch {
		got.WriteString(chunk.Text)
	}
	if got.String() != "A lien is a claim on property." {
		t.Errorf("streamed = %q", got.String())
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && len(a.History()) < 2 {
		time.Sleep(2 * time.Millisecond)
	}
	hist := a.History()
	if len(hist) != 2 || hist[1].Content != "A lien is a claim on property." {
		t.Errorf("history = %+v", hist)
	}
}

func TestStream_ErrorChunkDiscardsPartialReply(t *testing.T) {
	t.Parallel()

	mock := &llmmock.Provider{
		StreamChunks: []llm.Chunk{
			{Text: "partial "},
			{Text: "connection reset", FinishReason: "error"},
		},
	}
	a, _ := New(mock, "")

	ch, err := a.Stream(context.Background(), "q")
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	for range ch {
	}

	time.Sleep(20 * time.Millisecond)
	if len(a.History()) != 0 {
		t.Errorf("history = %+v, want empty after stream error", a.History())
	}
}

func TestReset_ClearsHistoryKeepsGrounding(t *testing.T) {
	t.Parallel()

	mock := &llmmock.Provider{
		CompleteResponses: []*llm.CompletionResponse{{Content: "ok"}},
	}
	a, _ := New(mock, `{"summary":{}}`)

	_, _ = a.Ask(context.Background(), "q")
	a.Reset()
	if len(a.History()) != 0 {
		t.Error("history survived Reset")
	}

	_, _ = a.Ask(context.Background(), "q2")
	last := mock.Requests[len(mock.Requests)-1]
	if !strings.Contains(last.SystemPrompt, `"summary"`) {
		t.Error("grounding snapshot lost after Reset")
	}
}
