// Package mock provides a test double for the analysis.Provider interface.
//
// Use Provider in orchestrator tests to script per-section payloads and
// failures without a live backend. Configure fields before first use; call
// records are guarded by an internal mutex so concurrent fan-out is safe.
package mock

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/clausewise/clausewise/pkg/provider/analysis"
)

var _ analysis.Provider = (*Provider)(nil)

// Call records a single invocation of Analyze.
type Call struct {
	Req analysis.Request
}

// Provider is a mock implementation of analysis.Provider.
//
// Responses resolve per section: an entry in FailTimes makes the first N
// requests for that section fail, an entry in Errs makes every request fail,
// otherwise Results (or a default payload) is returned.
type Provider struct {
	mu sync.Mutex

	// Results maps sections to scripted payloads. Sections without an entry
	// return {"section": "<name>"}.
	Results map[analysis.Section]json.RawMessage

	// Errs maps sections to permanent errors.
	Errs map[analysis.Section]error

	// FailTimes maps sections to a number of initial failures before
	// succeeding. Used to exercise retry paths. The error returned is the
	// section's Errs entry, which must be set alongside.
	FailTimes map[analysis.Section]int

	// Delay is applied to every Analyze call before resolving, honouring ctx.
	Delay time.Duration

	// ProviderName is returned by Name. Defaults to "mock".
	ProviderName string

	// Calls records every invocation in completion order.
	Calls []Call

	failures  map[analysis.Section]int
	inFlight  int
	maxFlight int
}

// Name implements analysis.Provider.
func (p *Provider) Name() string {
	if p.ProviderName == "" {
		return "mock"
	}
	return p.ProviderName
}

// Analyze implements analysis.Provider.
func (p *Provider) Analyze(ctx context.Context, req analysis.Request) (json.RawMessage, error) {
	p.mu.Lock()
	p.inFlight++
	if p.inFlight > p.maxFlight {
		p.maxFlight = p.inFlight
	}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight--
		p.Calls = append(p.Calls, Call{Req: req})
		p.mu.Unlock()
	}()

	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if n, ok := p.FailTimes[req.Section]; ok && p.failures[req.Section] < n {
		if p.failures == nil {
			p.failures = map[analysis.Section]int{}
		}
		p.failures[req.Section]++
		return nil, p.Errs[req.Section]
	}
	if err, ok := p.Errs[req.Section]; ok {
		if _, transient := p.FailTimes[req.Section]; !transient {
			return nil, err
		}
	}
	if payload, ok := p.Results[req.Section]; ok {
		return payload, nil
	}
	return json.RawMessage(`{"section": "` + string(req.Section) + `"}`), nil
}

// CallCount returns how many Analyze calls were made for the given section.
func (p *Provider) CallCount(section analysis.Section) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.Calls {
		if c.Req.Section == section {
			n++
		}
	}
	return n
}

// MaxConcurrent returns the highest number of simultaneously in-flight
// Analyze calls observed.
func (p *Provider) MaxConcurrent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxFlight
}
