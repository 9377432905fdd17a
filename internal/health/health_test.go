package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clausewise/clausewise/internal/config"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) (status string, checks map[string]string) {
	t.Helper()
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body.Status, body.Checks
}

func TestHealthz_AlwaysOK(t *testing.T) {
	t.Parallel()

	h := New()
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if status, _ := decode(t, rec); status != "ok" {
		t.Errorf("body status = %q", status)
	}
}

func TestReadyz_AllChecksPass(t *testing.T) {
	t.Parallel()

	h := New(
		Checker{Name: "a", Check: func(context.Context) error { return nil }},
		Checker{Name: "b", Check: func(context.Context) error { return nil }},
	)
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	status, checks := decode(t, rec)
	if status != "ok" || checks["a"] != "ok" || checks["b"] != "ok" {
		t.Errorf("body = %q %v", status, checks)
	}
}

func TestReadyz_FailingCheckReturns503(t *testing.T) {
	t.Parallel()

	h := New(
		Checker{Name: "good", Check: func(context.Context) error { return nil }},
		Checker{Name: "bad", Check: func(context.Context) error { return errors.New("down") }},
	)
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	status, checks := decode(t, rec)
	if status != "fail" {
		t.Errorf("body status = %q", status)
	}
	if checks["good"] != "ok" || checks["bad"] != "fail: down" {
		t.Errorf("checks = %v", checks)
	}
}

func TestRegister_RoutesProbes(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	New().Register(mux)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d", path, resp.StatusCode)
		}
	}
}

func TestAnalysisConfigured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.AnalysisConfig
		wantErr bool
	}{
		{
			name: "primary and fallback keyed",
			cfg: config.AnalysisConfig{
				Provider:  "gemini",
				Fallbacks: []string{"openai"},
				Gemini:    config.BackendConfig{APIKey: "k1"},
				OpenAI:    config.BackendConfig{APIKey: "k2"},
			},
		},
		{
			name: "fallback missing key",
			cfg: config.AnalysisConfig{
				Provider:  "gemini",
				Fallbacks: []string{"openai"},
				Gemini:    config.BackendConfig{APIKey: "k1"},
			},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			cfg:     config.AnalysisConfig{Provider: "cohere"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			check := AnalysisConfigured(&config.Config{Analysis: tt.cfg})
			err := check.Check(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVoiceConfigured(t *testing.T) {
	t.Parallel()

	keyed := voiceConfig("k")
	if err := VoiceConfigured(keyed).Check(context.Background()); err != nil {
		t.Errorf("keyed voice config: %v", err)
	}
	if err := VoiceConfigured(voiceConfig("")).Check(context.Background()); err == nil {
		t.Error("missing voice key passed the check")
	}
}

// voiceConfig builds a config with only the voice API key set.
func voiceConfig(key string) *config.Config {
	return &config.Config{Voice: config.VoiceConfig{APIKey: key}}
}
