// Command clausewise analyses a legal document and talks you through it:
// extract → concurrent section analysis → optional live voice advisor or
// text chat, grounded on the analysis results.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	docanalysis "github.com/clausewise/clausewise/internal/analysis"
	"github.com/clausewise/clausewise/internal/chat"
	"github.com/clausewise/clausewise/internal/config"
	"github.com/clausewise/clausewise/internal/health"
	"github.com/clausewise/clausewise/internal/observe"
	"github.com/clausewise/clausewise/internal/resilience"
	"github.com/clausewise/clausewise/internal/transcript"
	"github.com/clausewise/clausewise/internal/voice"
	"github.com/clausewise/clausewise/pkg/audio"
	"github.com/clausewise/clausewise/pkg/audio/miniaudio"
	"github.com/clausewise/clausewise/pkg/audio/otospeaker"
	"github.com/clausewise/clausewise/pkg/extract"
	"github.com/clausewise/clausewise/pkg/provider/analysis"
	geminianalysis "github.com/clausewise/clausewise/pkg/provider/analysis/gemini"
	openaianalysis "github.com/clausewise/clausewise/pkg/provider/analysis/openai"
	geminilive "github.com/clausewise/clausewise/pkg/provider/live/gemini"
	"github.com/clausewise/clausewise/pkg/provider/llm/anyllm"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	docPath := flag.String("doc", "", "document to analyse (.txt or .md)")
	voiceFlag := flag.Bool("voice", false, "open a live voice session after analysis")
	chatFlag := flag.Bool("chat", false, "interactive text chat about the document")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "clausewise: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "clausewise: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("clausewise starting",
		"version", version,
		"config", *configPath,
		"log_level", cfg.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics := observe.DefaultMetrics()

	if cfg.Metrics.ListenAddr != "" {
		srv := metricsServer(cfg, metrics)
		go func() {
			slog.Info("metrics server listening", "addr", cfg.Metrics.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server error", "err", err)
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	// Hot-reload watcher: log level applies immediately, everything else is
	// reported only.
	watcher, err := config.NewWatcher(*configPath, func(d config.Diff) {
		if d.LogLevelChanged {
			slog.SetDefault(newLogger(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.VoiceChanged {
			slog.Info("voice settings changed, applies to the next session")
		}
		if d.RestartRequired {
			slog.Warn("backend configuration changed, restart to apply")
		}
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	var (
		orch         *docanalysis.Orchestrator
		snapshotJSON string
	)
	if *docPath != "" {
		orch, snapshotJSON, err = analyseDocument(ctx, cfg, metrics, *docPath)
		if err != nil {
			slog.Error("analysis failed", "err", err)
			return 1
		}
	}

	if *chatFlag {
		if err := runChat(ctx, cfg, snapshotJSON); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("chat error", "err", err)
			return 1
		}
	}

	if *voiceFlag {
		if err := runVoice(ctx, cfg, metrics, orch, snapshotJSON); err != nil {
			slog.Error("voice session error", "err", err)
			return 1
		}
	}

	if !*voiceFlag && !*chatFlag && *docPath == "" {
		flag.Usage()
		return 2
	}

	slog.Info("goodbye")
	return 0
}

// metricsServer builds the /metrics + health probe server with request
// instrumentation.
func metricsServer(cfg *config.Config, metrics *observe.Metrics) *http.Server {
	mux := http.NewServeMux()
	health.New(
		health.AnalysisConfigured(cfg),
		health.VoiceConfigured(cfg),
	).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return &http.Server{
		Addr:              cfg.Metrics.ListenAddr,
		Handler:           observe.Middleware(metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// analyseDocument extracts the file, fans out the analysis, retries failed
// sections once, prints the result, and returns the orchestrator plus the
// serialized snapshot for grounding chat and voice.
func analyseDocument(ctx context.Context, cfg *config.Config, metrics *observe.Metrics, path string) (*docanalysis.Orchestrator, string, error) {
	provider, err := buildAnalysisChain(ctx, cfg)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	extractor := &extract.Plaintext{MaxBytes: cfg.Extract.MaxBytes}
	doc, err := extractor.Extract(ctx, filepath.Base(path), f)
	if err != nil {
		return nil, "", fmt.Errorf("extract %q: %w", path, err)
	}
	slog.Info("document extracted", "file", filepath.Base(path), "bytes", len(doc.Text))

	orch := docanalysis.New(provider,
		docanalysis.WithRetry(cfg.Analysis.Retry),
		docanalysis.WithMetrics(metrics),
	)

	if err := orch.Run(ctx, doc.Text); err != nil {
		return nil, "", err
	}

	// One targeted retry pass over whatever failed. The glossary is chained,
	// not retried here; its input is the successful sections, not the raw
	// document.
	if snap := orch.Snapshot(); len(snap.Errors) > 0 {
		var failed []analysis.Section
		for _, se := range snap.Errors {
			if se.Section != analysis.SectionJargonGlossary {
				failed = append(failed, se.Section)
			}
		}
		if len(failed) > 0 {
			slog.Info("retrying failed sections", "sections", failed)
			if err := orch.Run(ctx, doc.Text, failed...); err != nil {
				slog.Warn("targeted retry", "err", err)
			}
		}
	}

	snap := orch.Snapshot()
	printResult(snap)

	b, err := json.Marshal(snap.Sections)
	if err != nil {
		return nil, "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return orch, string(b), nil
}

// buildAnalysisChain wires the primary backend and configured fallbacks into
// one fallback chain.
func buildAnalysisChain(ctx context.Context, cfg *config.Config) (analysis.Provider, error) {
	names := append([]string{cfg.Analysis.Provider}, cfg.Analysis.Fallbacks...)
	providers := make([]analysis.Provider, 0, len(names))
	for _, name := range names {
		p, err := buildAnalysisProvider(ctx, cfg, name)
		if err != nil {
			return nil, fmt.Errorf("build %s provider: %w", name, err)
		}
		providers = append(providers, p)
	}
	if len(providers) == 1 {
		return providers[0], nil
	}
	return resilience.NewAnalysisChain(providers[0], providers[1:], resilience.ChainConfig{}), nil
}

func buildAnalysisProvider(ctx context.Context, cfg *config.Config, name string) (analysis.Provider, error) {
	switch name {
	case "gemini":
		var opts []geminianalysis.Option
		if cfg.Analysis.Gemini.Model != "" {
			opts = append(opts, geminianalysis.WithModel(cfg.Analysis.Gemini.Model))
		}
		return geminianalysis.New(ctx, cfg.Analysis.Gemini.APIKey, opts...)
	case "openai":
		var opts []openaianalysis.Option
		if cfg.Analysis.OpenAI.Model != "" {
			opts = append(opts, openaianalysis.WithModel(cfg.Analysis.OpenAI.Model))
		}
		return openaianalysis.New(cfg.Analysis.OpenAI.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown analysis provider %q", name)
	}
}

// printResult pretty-prints each section payload in canonical order, then
// the failures.
func printResult(snap docanalysis.Result) {
	order := append(analysis.PrimarySections(), analysis.SectionJargonGlossary)
	for _, s := range order {
		payload, ok := snap.Sections[s]
		if !ok {
			continue
		}
		buf, err := json.MarshalIndent(json.RawMessage(payload), "", "  ")
		if err != nil {
			buf = payload
		}
		fmt.Printf("\n── %s ──\n%s\n", s, buf)
	}
	for _, se := range snap.Errors {
		fmt.Printf("\n── %s ── FAILED: %s\n", se.Section, se.Message)
	}
}

// runChat reads questions from stdin until EOF or cancellation.
func runChat(ctx context.Context, cfg *config.Config, snapshotJSON string) error {
	var opts []anyllmlib.Option
	if cfg.Chat.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(cfg.Chat.APIKey))
	}
	provider, err := anyllm.New(cfg.Chat.Provider, cfg.Chat.Model, opts...)
	if err != nil {
		return fmt.Errorf("chat provider: %w", err)
	}
	assistant, err := chat.New(provider, snapshotJSON)
	if err != nil {
		return err
	}

	fmt.Println("\nAsk about the document (Ctrl+D to finish):")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		question := scanner.Text()
		if question == "" {
			continue
		}
		reply, err := assistant.Ask(ctx, question)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("chat turn failed", "err", err)
			continue
		}
		fmt.Println(reply)
	}
}

// runVoice opens one live voice session and keeps it until interrupt or
// session teardown.
func runVoice(ctx context.Context, cfg *config.Config, metrics *observe.Metrics, orch *docanalysis.Orchestrator, snapshotJSON string) error {
	var liveOpts []geminilive.Option
	if cfg.Voice.Model != "" {
		liveOpts = append(liveOpts, geminilive.WithModel(cfg.Voice.Model))
	}
	provider := geminilive.New(cfg.Voice.APIKey, liveOpts...)

	sink, err := otospeaker.New(audio.Format{SampleRate: audio.PlaybackRate, Channels: 1})
	if err != nil {
		return fmt.Errorf("speaker: %w", err)
	}
	defer sink.Close()

	persona := voice.GeneralAdvisor(cfg.Voice.Language)
	var corrector voice.Corrector
	if orch != nil {
		persona = voice.DocumentAdvisor(cfg.Voice.Language, snapshotJSON)
		if terms := orch.GlossaryTerms(); len(terms) > 0 {
			corrector = transcript.FromGlossary(terms)
		}
	}

	var mgr voice.Manager
	controller, err := mgr.Open(ctx, voice.Config{
		Provider:    provider,
		Device:      miniaudio.New(),
		Sink:        sink,
		Persona:     persona,
		Voice:       cfg.Voice.Voice,
		Language:    cfg.Voice.Language,
		IdleTimeout: cfg.Voice.IdleTimeout,
		Corrector:   corrector,
		Metrics:     metrics,
	})
	if err != nil {
		return err
	}

	fmt.Println("\nVoice session open — speak into the microphone, Ctrl+C to hang up.")

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := mgr.Close(); err != nil {
				return err
			}
			printHistory(controller.History())
			return nil
		case <-ticker.C:
			if st := controller.State(); st == voice.StateIdle || st == voice.StateError {
				printHistory(controller.History())
				return mgr.Close()
			}
		}
	}
}

func printHistory(turns []voice.Turn) {
	if len(turns) == 0 {
		return
	}
	fmt.Println("\nConversation:")
	for _, t := range turns {
		fmt.Printf("  [%s] %s\n", t.Role, t.Text)
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
