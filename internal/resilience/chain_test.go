package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/clausewise/clausewise/pkg/provider/analysis"
	analysismock "github.com/clausewise/clausewise/pkg/provider/analysis/mock"
)

func TestChain_PrimaryServesWhenHealthy(t *testing.T) {
	t.Parallel()

	c := NewChain("primary", "A", ChainConfig{})
	c.Add("secondary", "B")

	var served []string
	err := c.Execute(func(v string) error {
		served = append(served, v)
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(served) != 1 || served[0] != "A" {
		t.Errorf("served = %v, want primary only", served)
	}
}

func TestChain_FallsThroughInOrder(t *testing.T) {
	t.Parallel()

	c := NewChain("a", "A", ChainConfig{})
	c.Add("b", "B")
	c.Add("c", "C")

	got, err := Run(c, func(v string) (string, error) {
		if v != "C" {
			return "", errBoom
		}
		return v, nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "C" {
		t.Errorf("result = %q, want C", got)
	}
}

func TestChain_AllFailedWrapsLastError(t *testing.T) {
	t.Parallel()

	c := NewChain("only", "A", ChainConfig{})
	_, err := Run(c, func(string) (int, error) { return 0, errBoom })
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("err = %v, want ErrAllProvidersFailed", err)
	}
	if !errors.Is(err, errBoom) {
		t.Errorf("err = %v, want wrapped cause", err)
	}
}

func TestChain_OpenBreakerSkipsEntry(t *testing.T) {
	t.Parallel()

	c := NewChain("flaky", "A", ChainConfig{
		Breaker: BreakerConfig{Threshold: 1, Cooldown: time.Hour},
	})
	c.Add("stable", "B")

	// Trip the primary's breaker.
	_ = c.Execute(func(v string) error {
		if v == "A" {
			return errBoom
		}
		return nil
	})

	var served []string
	err := c.Execute(func(v string) error {
		served = append(served, v)
		return nil
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(served) != 1 || served[0] != "B" {
		t.Errorf("served = %v, want fallback only", served)
	}
}

func TestAnalysisChain_FallbackAnswersSection(t *testing.T) {
	t.Parallel()

	primary := &analysismock.Provider{
		ProviderName: "gemini",
		Errs:         map[analysis.Section]error{analysis.SectionSummary: errors.New("quota exceeded")},
	}
	fallback := &analysismock.Provider{
		ProviderName: "openai",
		Results: map[analysis.Section]json.RawMessage{
			analysis.SectionSummary: json.RawMessage(`{"title":"Lease"}`),
		},
	}

	chain := NewAnalysisChain(primary, []analysis.Provider{fallback}, ChainConfig{})

	raw, err := chain.Analyze(context.Background(), analysis.Request{
		Section: analysis.SectionSummary,
		Input:   "full text",
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if string(raw) != `{"title":"Lease"}` {
		t.Errorf("payload = %s", raw)
	}
	if primary.CallCount(analysis.SectionSummary) != 1 {
		t.Error("primary was not tried first")
	}

	name := chain.Name()
	if !strings.Contains(name, "gemini") || !strings.Contains(name, "openai") {
		t.Errorf("Name = %q, want both members listed", name)
	}
}
