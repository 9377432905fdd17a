package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/clausewise/clausewise/internal/config"
	"github.com/clausewise/clausewise/internal/observe"
	"github.com/clausewise/clausewise/pkg/provider/analysis"
	"github.com/clausewise/clausewise/pkg/provider/analysis/mock"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func newTestOrchestrator(t *testing.T, p analysis.Provider) *Orchestrator {
	t.Helper()

	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	return New(p,
		WithMetrics(m),
		WithRetry(config.RetryConfig{Attempts: 1, BaseDelay: time.Millisecond}),
	)
}

func TestRun_AllSectionsSucceedAndGlossaryChains(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		Results: map[analysis.Section]json.RawMessage{
			analysis.SectionJargonGlossary: json.RawMessage(`{"terms": [{"term": "indemnity", "definition": "protection from loss"}]}`),
		},
	}
	o := newTestOrchestrator(t, p)

	if err := o.Run(context.Background(), "contract text"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := o.Snapshot()
	if len(snap.Sections) != 6 {
		t.Errorf("sections = %d, want 6 (5 primary + glossary)", len(snap.Sections))
	}
	if len(snap.Errors) != 0 {
		t.Errorf("errors = %v, want none", snap.Errors)
	}
	if got := p.CallCount(analysis.SectionJargonGlossary); got != 1 {
		t.Errorf("glossary requests = %d, want 1", got)
	}

	terms := o.GlossaryTerms()
	if len(terms) != 1 || terms[0].Term != "indemnity" {
		t.Errorf("GlossaryTerms() = %+v", terms)
	}

	// The glossary input is the concatenation of the successful payloads.
	var glossaryReq *mock.Call
	for i := range p.Calls {
		if p.Calls[i].Req.Section == analysis.SectionJargonGlossary {
			glossaryReq = &p.Calls[i]
		}
	}
	if glossaryReq == nil {
		t.Fatal("glossary request not recorded")
	}
	for _, s := range analysis.PrimarySections() {
		if !strings.Contains(glossaryReq.Req.Input, string(s)) {
			t.Errorf("glossary input is missing payload of section %s", s)
		}
	}
}

func TestRun_PartialFailureIsolation(t *testing.T) {
	t.Parallel()

	boom := errors.New("backend exploded")
	p := &mock.Provider{
		Errs: map[analysis.Section]error{
			analysis.SectionComplexityScore: boom,
			analysis.SectionRedFlags:        boom,
		},
	}
	o := newTestOrchestrator(t, p)

	if err := o.Run(context.Background(), "contract text"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := o.Snapshot()
	for _, s := range []analysis.Section{analysis.SectionSummary, analysis.SectionSWOT, analysis.SectionNegotiationPoints} {
		if _, ok := snap.Sections[s]; !ok {
			t.Errorf("section %s missing despite its request succeeding", s)
		}
	}
	if len(snap.Errors) != 2 {
		t.Fatalf("errors = %v, want exactly complexityScore and redFlags", snap.Errors)
	}
	if snap.Errors[0].Section != analysis.SectionComplexityScore || snap.Errors[1].Section != analysis.SectionRedFlags {
		t.Errorf("errors = %v", snap.Errors)
	}

	// Glossary still chains over the three successes.
	if got := p.CallCount(analysis.SectionJargonGlossary); got != 1 {
		t.Errorf("glossary requests = %d, want 1", got)
	}
}

func TestRun_TargetedRetryPreservesOtherEntries(t *testing.T) {
	t.Parallel()

	boom := errors.New("backend exploded")
	p := &mock.Provider{
		Errs: map[analysis.Section]error{
			analysis.SectionComplexityScore: boom,
			analysis.SectionRedFlags:        boom,
		},
		FailTimes: map[analysis.Section]int{
			analysis.SectionComplexityScore: 1,
		},
	}
	o := newTestOrchestrator(t, p)

	if err := o.Run(context.Background(), "contract text"); err != nil {
		t.Fatalf("initial Run: %v", err)
	}
	before := o.Snapshot()
	if len(before.Errors) != 2 {
		t.Fatalf("errors after fan-out = %v, want 2", before.Errors)
	}
	glossaryCalls := p.CallCount(analysis.SectionJargonGlossary)

	// Retry only the complexity score; its mock failure budget is exhausted
	// so this attempt succeeds.
	if err := o.Run(context.Background(), "contract text", analysis.SectionComplexityScore); err != nil {
		t.Fatalf("targeted Run: %v", err)
	}

	after := o.Snapshot()
	if _, ok := after.Sections[analysis.SectionComplexityScore]; !ok {
		t.Error("complexityScore missing after successful retry")
	}
	if len(after.Errors) != 1 || after.Errors[0].Section != analysis.SectionRedFlags {
		t.Errorf("errors after retry = %v, want only redFlags", after.Errors)
	}
	for _, s := range []analysis.Section{analysis.SectionSummary, analysis.SectionSWOT, analysis.SectionNegotiationPoints} {
		if !json.Valid(after.Sections[s]) {
			t.Errorf("section %s payload corrupted by retry", s)
		}
	}

	// Targeted retries never re-trigger the glossary chain.
	if got := p.CallCount(analysis.SectionJargonGlossary); got != glossaryCalls {
		t.Errorf("glossary requests = %d, want unchanged %d", got, glossaryCalls)
	}
}

func TestRun_NoGlossaryWhenEverySectionFails(t *testing.T) {
	t.Parallel()

	boom := errors.New("backend exploded")
	errs := make(map[analysis.Section]error)
	for _, s := range analysis.PrimarySections() {
		errs[s] = boom
	}
	o := newTestOrchestrator(t, &mock.Provider{Errs: errs})

	if err := o.Run(context.Background(), "contract text"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := o.Snapshot()
	if len(snap.Sections) != 0 {
		t.Errorf("sections = %v, want none", snap.Sections)
	}
	if len(snap.Errors) != 5 {
		t.Errorf("errors = %d, want 5", len(snap.Errors))
	}
	if o.GlossaryTerms() != nil {
		t.Error("GlossaryTerms() non-nil without a glossary payload")
	}
}

func TestRun_GlossaryFailureIsItsOwnSectionError(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{
		Errs: map[analysis.Section]error{
			analysis.SectionJargonGlossary: errors.New("glossary exploded"),
		},
	}
	o := newTestOrchestrator(t, p)

	if err := o.Run(context.Background(), "contract text"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := o.Snapshot()
	if len(snap.Sections) != 5 {
		t.Errorf("sections = %d, want all 5 primaries intact", len(snap.Sections))
	}
	if len(snap.Errors) != 1 || snap.Errors[0].Section != analysis.SectionJargonGlossary {
		t.Errorf("errors = %v, want only jargonGlossary", snap.Errors)
	}
}

func TestRun_FanOutIsConcurrent(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{Delay: 50 * time.Millisecond}
	o := newTestOrchestrator(t, p)

	start := time.Now()
	if err := o.Run(context.Background(), "contract text"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	elapsed := time.Since(start)

	if p.MaxConcurrent() < 5 {
		t.Errorf("max concurrent requests = %d, want all 5 primaries overlapping", p.MaxConcurrent())
	}
	// 5 sequential requests plus glossary would take at least 300ms.
	if elapsed > 250*time.Millisecond {
		t.Errorf("fan-out took %v, looks sequential", elapsed)
	}
}

func TestRun_InFlightGuard(t *testing.T) {
	t.Parallel()

	p := &mock.Provider{Delay: 100 * time.Millisecond}
	o := newTestOrchestrator(t, p)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = o.Run(context.Background(), "contract text", analysis.SectionSummary)
	}()

	// Give the first run time to mark the section in flight.
	time.Sleep(20 * time.Millisecond)

	err := o.Run(context.Background(), "contract text", analysis.SectionSummary)
	if !errors.Is(err, ErrSectionInFlight) {
		t.Errorf("second Run error = %v, want ErrSectionInFlight", err)
	}
	wg.Wait()

	if got := p.CallCount(analysis.SectionSummary); got != 1 {
		t.Errorf("summary requests = %d, want 1", got)
	}
}

func TestRun_UnknownSection(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, &mock.Provider{})
	if err := o.Run(context.Background(), "text", analysis.Section("vibes")); err == nil {
		t.Fatal("Run with unknown section succeeded, want error")
	}
}

func TestRun_RetriesBeforeRecordingFailure(t *testing.T) {
	t.Parallel()

	flaky := errors.New("transient")
	p := &mock.Provider{
		Errs:      map[analysis.Section]error{analysis.SectionSummary: flaky},
		FailTimes: map[analysis.Section]int{analysis.SectionSummary: 2},
	}

	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	o := New(p,
		WithMetrics(m),
		WithRetry(config.RetryConfig{Attempts: 3, BaseDelay: time.Millisecond}),
	)

	if err := o.Run(context.Background(), "contract text", analysis.SectionSummary); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := p.CallCount(analysis.SectionSummary); got != 3 {
		t.Errorf("summary attempts = %d, want 3 (2 failures + 1 success)", got)
	}
	snap := o.Snapshot()
	if _, ok := snap.Sections[analysis.SectionSummary]; !ok {
		t.Error("summary missing after retries eventually succeeded")
	}
}
