// Package analysis implements the multi-section document analysis
// orchestrator.
//
// A run fans out one request per section concurrently, records successes and
// failures independently, and chains a follow-up jargon-glossary request over
// the successful payloads once the initial fan-out settles. Individual
// sections can be retried later without touching the others.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/clausewise/clausewise/internal/config"
	"github.com/clausewise/clausewise/internal/observe"
	"github.com/clausewise/clausewise/pkg/provider/analysis"
)

// ErrSectionInFlight is returned when a run names a section whose previous
// request has not settled yet.
var ErrSectionInFlight = errors.New("analysis: section request already in flight")

// SectionError records the failure of one section's request.
type SectionError struct {
	Section analysis.Section `json:"section"`
	Message string           `json:"message"`
}

// Result is a point-in-time snapshot of the accumulated analysis. It is a
// partial record: sections appear as they resolve, and a section is never in
// both Sections and Errors at once.
type Result struct {
	Sections map[analysis.Section]json.RawMessage `json:"sections"`
	Errors   []SectionError                       `json:"errors,omitempty"`
}

// Orchestrator coordinates section fan-out, retry, and glossary chaining for
// one document. It is safe for concurrent use.
type Orchestrator struct {
	provider analysis.Provider
	retry    config.RetryConfig
	metrics  *observe.Metrics
	logger   *slog.Logger

	mu       sync.Mutex
	inFlight map[analysis.Section]bool
	sections map[analysis.Section]json.RawMessage
	failures map[analysis.Section]string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRetry overrides the default per-section retry policy.
func WithRetry(rc config.RetryConfig) Option {
	return func(o *Orchestrator) {
		if rc.Attempts > 0 {
			o.retry = rc
		}
	}
}

// WithMetrics sets the metrics instance. Defaults to observe.DefaultMetrics.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New creates an Orchestrator over the given provider.
func New(p analysis.Provider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider: p,
		retry: config.RetryConfig{
			Attempts:  config.DefaultRetryAttempts,
			BaseDelay: config.DefaultRetryBaseDelay,
		},
		inFlight: make(map[analysis.Section]bool),
		sections: make(map[analysis.Section]json.RawMessage),
		failures: make(map[analysis.Section]string),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Run analyses documentText. With no sections named it performs the initial
// fan-out over all primary sections and, once every request has settled,
// chains the jargon-glossary request when at least one section succeeded.
// Naming sections performs a targeted retry of only those sections, leaving
// every other entry untouched.
//
// Run returns an error only for usage mistakes (unknown section, a named
// section still in flight). Section failures are recorded in the snapshot,
// never returned.
func (o *Orchestrator) Run(ctx context.Context, documentText string, sections ...analysis.Section) error {
	initial := len(sections) == 0
	if initial {
		sections = analysis.PrimarySections()
	}
	for _, s := range sections {
		if !s.Valid() {
			return fmt.Errorf("analysis: unknown section %q", s)
		}
	}

	if err := o.acquire(sections); err != nil {
		return err
	}
	defer o.release(sections)

	// Fan-out. Workers record their own outcomes and always return nil so
	// one failed section never cancels the siblings.
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range sections {
		g.Go(func() error {
			o.requestSection(gctx, s, documentText)
			return nil
		})
	}
	_ = g.Wait()

	if initial {
		o.chainGlossary(ctx)
	}
	return nil
}

// Snapshot returns a deep copy of the accumulated result, with errors ordered
// by section name.
func (o *Orchestrator) Snapshot() Result {
	o.mu.Lock()
	defer o.mu.Unlock()

	res := Result{Sections: make(map[analysis.Section]json.RawMessage, len(o.sections))}
	for s, payload := range o.sections {
		cp := make(json.RawMessage, len(payload))
		copy(cp, payload)
		res.Sections[s] = cp
	}
	for s, msg := range o.failures {
		res.Errors = append(res.Errors, SectionError{Section: s, Message: msg})
	}
	sort.Slice(res.Errors, func(i, j int) bool {
		return res.Errors[i].Section < res.Errors[j].Section
	})
	return res
}

// acquire marks every section in flight, or fails without marking any if one
// already is.
func (o *Orchestrator) acquire(sections []analysis.Section) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, s := range sections {
		if o.inFlight[s] {
			return fmt.Errorf("%w: %s", ErrSectionInFlight, s)
		}
	}
	for _, s := range sections {
		o.inFlight[s] = true
	}
	return nil
}

func (o *Orchestrator) release(sections []analysis.Section) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, s := range sections {
		delete(o.inFlight, s)
	}
}

// requestSection issues one section request with capped exponential backoff
// and records the outcome.
func (o *Orchestrator) requestSection(ctx context.Context, section analysis.Section, input string) {
	start := time.Now()
	payload, err := o.analyzeWithRetry(ctx, analysis.Request{Section: section, Input: input})
	elapsed := time.Since(start)

	if err != nil {
		o.metrics.RecordSection(ctx, string(section), o.provider.Name(), "error", elapsed.Seconds())
		o.logger.Warn("section analysis failed",
			"section", section, "provider", o.provider.Name(), "err", err)
		o.recordFailure(section, err)
		return
	}

	o.metrics.RecordSection(ctx, string(section), o.provider.Name(), "ok", elapsed.Seconds())
	o.logger.Debug("section analysis complete",
		"section", section, "duration", elapsed)
	o.recordSuccess(section, payload)
}

func (o *Orchestrator) analyzeWithRetry(ctx context.Context, req analysis.Request) (json.RawMessage, error) {
	backoff := retry.WithMaxRetries(
		uint64(o.retry.Attempts-1),
		retry.NewExponential(o.retry.BaseDelay),
	)

	var payload json.RawMessage
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := o.provider.Analyze(ctx, req)
		if err != nil {
			return retry.RetryableError(err)
		}
		payload = p
		return nil
	})
	return payload, err
}

func (o *Orchestrator) recordSuccess(section analysis.Section, payload json.RawMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sections[section] = payload
	delete(o.failures, section)
}

func (o *Orchestrator) recordFailure(section analysis.Section, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures[section] = err.Error()
	delete(o.sections, section)
}

// chainGlossary issues the follow-up jargon-glossary request over the
// concatenation of all successful payloads. Nothing to do when every primary
// section failed.
func (o *Orchestrator) chainGlossary(ctx context.Context) {
	input := o.glossaryInput()
	if input == "" {
		o.logger.Warn("skipping jargon glossary: no successful sections")
		return
	}

	glossary := []analysis.Section{analysis.SectionJargonGlossary}
	if err := o.acquire(glossary); err != nil {
		o.logger.Warn("skipping jargon glossary: request already in flight")
		return
	}
	defer o.release(glossary)

	o.requestSection(ctx, analysis.SectionJargonGlossary, input)
}

// glossaryInput concatenates successful primary payloads in section order so
// the chained request is deterministic.
func (o *Orchestrator) glossaryInput() string {
	o.mu.Lock()
	defer o.mu.Unlock()

	var b strings.Builder
	for _, s := range analysis.PrimarySections() {
		payload, ok := o.sections[s]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", s, payload)
	}
	return b.String()
}

// GlossaryTerms decodes the jargon-glossary payload from the snapshot. It
// returns nil when the glossary has not resolved.
func (o *Orchestrator) GlossaryTerms() []GlossaryTerm {
	o.mu.Lock()
	payload, ok := o.sections[analysis.SectionJargonGlossary]
	o.mu.Unlock()
	if !ok {
		return nil
	}

	var decoded struct {
		Terms []GlossaryTerm `json:"terms"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil
	}
	return decoded.Terms
}

// GlossaryTerm is one entry of the jargon glossary.
type GlossaryTerm struct {
	Term       string `json:"term"`
	Definition string `json:"definition"`
}
