// Package health provides the HTTP liveness and readiness probes served
// alongside the metrics endpoint.
//
//   - /healthz — liveness; always 200 while the process serves HTTP.
//   - /readyz  — readiness; 200 only when every registered [Checker] passes.
//
// Responses are JSON with a top-level "status" ("ok" or "fail") and a
// "checks" map with each named checker's outcome.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/clausewise/clausewise/internal/config"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Checker is a named readiness check. Check returns nil when the dependency
// is usable and must respect context cancellation.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// AnalysisConfigured verifies that the active analysis backend and every
// configured fallback carry an API key. A probe, not a billable call: it
// never contacts the backends.
func AnalysisConfigured(cfg *config.Config) Checker {
	return Checker{
		Name: "analysis",
		Check: func(context.Context) error {
			names := append([]string{cfg.Analysis.Provider}, cfg.Analysis.Fallbacks...)
			for _, name := range names {
				var key string
				switch name {
				case "gemini":
					key = cfg.Analysis.Gemini.APIKey
				case "openai":
					key = cfg.Analysis.OpenAI.APIKey
				default:
					return fmt.Errorf("unknown provider %q", name)
				}
				if key == "" {
					return fmt.Errorf("provider %q has no API key", name)
				}
			}
			return nil
		},
	}
}

// VoiceConfigured verifies the live voice backend has an API key.
func VoiceConfigured(cfg *config.Config) Checker {
	return Checker{
		Name: "voice",
		Check: func(context.Context) error {
			if cfg.Voice.APIKey == "" {
				return fmt.Errorf("no API key")
			}
			return nil
		},
	}
}

type response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the probe endpoints. Safe for concurrent use; the checker
// list is fixed at construction.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler] that evaluates checkers in order on each /readyz
// request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always answers 200.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{Status: "ok"})
}

// Readyz answers 200 only when every checker passes, 503 otherwise. Each
// checker gets a [checkTimeout] deadline derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	status := http.StatusOK
	res := response{Status: "ok", Checks: checks}

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			res.Status = "fail"
			status = http.StatusServiceUnavailable
		} else {
			checks[c.Name] = "ok"
		}
	}

	writeJSON(w, status, res)
}

// Register adds the probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
