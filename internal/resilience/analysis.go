package resilience

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/clausewise/clausewise/pkg/provider/analysis"
)

// AnalysisChain is an [analysis.Provider] that tries a configured list of
// backends in order. Every backend answers the same section prompts with the
// same JSON shapes, so a fallback result is indistinguishable from a primary
// one downstream.
type AnalysisChain struct {
	chain *Chain[analysis.Provider]
}

var _ analysis.Provider = (*AnalysisChain)(nil)

// NewAnalysisChain builds a chain with primary first and fallbacks in order.
func NewAnalysisChain(primary analysis.Provider, fallbacks []analysis.Provider, cfg ChainConfig) *AnalysisChain {
	c := NewChain(primary.Name(), primary, cfg)
	for _, fb := range fallbacks {
		c.Add(fb.Name(), fb)
	}
	return &AnalysisChain{chain: c}
}

// Analyze implements [analysis.Provider].
func (a *AnalysisChain) Analyze(ctx context.Context, req analysis.Request) (json.RawMessage, error) {
	return Run(a.chain, func(p analysis.Provider) (json.RawMessage, error) {
		return p.Analyze(ctx, req)
	})
}

// Name implements [analysis.Provider]. It lists the member backends so logs
// show which chain served a section.
func (a *AnalysisChain) Name() string {
	return "fallback(" + strings.Join(a.chain.Names(), ",") + ")"
}
