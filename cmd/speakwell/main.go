// Command speakwell is the entry point for the SpeakWell speech analysis server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/speakwell/speakwell/internal/analysis"
	"github.com/speakwell/speakwell/internal/auth"
	"github.com/speakwell/speakwell/internal/config"
	"github.com/speakwell/speakwell/internal/health"
	"github.com/speakwell/speakwell/internal/media"
	"github.com/speakwell/speakwell/internal/observe"
	"github.com/speakwell/speakwell/internal/resilience"
	"github.com/speakwell/speakwell/internal/server"
	"github.com/speakwell/speakwell/internal/store"
	"github.com/speakwell/speakwell/pkg/provider/acceptability"
	"github.com/speakwell/speakwell/pkg/provider/acceptability/cola"
	"github.com/speakwell/speakwell/pkg/provider/asr"
	"github.com/speakwell/speakwell/pkg/provider/asr/whisper"
	"github.com/speakwell/speakwell/pkg/provider/llm"
	"github.com/speakwell/speakwell/pkg/provider/llm/anyllm"
	oaillm "github.com/speakwell/speakwell/pkg/provider/llm/openai"
	"github.com/speakwell/speakwell/pkg/provider/tts"
	"github.com/speakwell/speakwell/pkg/provider/tts/coqui"
)

// shutdownTimeout bounds graceful teardown after a termination signal.
const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	// A .env file is optional; already-set environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "speakwell: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "speakwell: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	listenAddr := cfg.Server.ListenAddr
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	slog.Info("speakwell starting",
		"config", *configPath,
		"listen_addr", listenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "speakwell",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Persistence ───────────────────────────────────────────────────────────
	db, err := store.New(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		slog.Error("failed to connect to database", "err", err)
		return 1
	}
	defer db.Close()

	uploadDir := cfg.Storage.UploadDir
	if uploadDir == "" {
		uploadDir = "data/uploads"
	}
	outputDir := cfg.Storage.OutputDir
	if outputDir == "" {
		outputDir = "data/outputs"
	}
	mediaStore, err := media.NewStore(uploadDir, outputDir)
	if err != nil {
		slog.Error("failed to create media store", "err", err)
		return 1
	}

	// ── Providers ─────────────────────────────────────────────────────────────
	asrProvider, err := buildASR(cfg.Providers.ASR)
	if err != nil {
		slog.Error("failed to create asr provider", "err", err)
		return 1
	}
	scorer, err := buildScorer(cfg.Providers.Acceptability)
	if err != nil {
		slog.Error("failed to create acceptability scorer", "err", err)
		return 1
	}
	ttsProvider, err := buildTTS(cfg.Providers.TTS)
	if err != nil {
		slog.Error("failed to create tts provider", "err", err)
		return 1
	}
	strategies, err := buildStrategies(cfg.Providers.Grammar, logger)
	if err != nil {
		slog.Error("failed to create grammar strategies", "err", err)
		return 1
	}

	// ── Analysis pipeline ─────────────────────────────────────────────────────
	ensemble := analysis.NewEnsemble(strategies, scorer, logger)
	fluency := analysis.NewFluencyScorer(fluencyOptions(cfg.Analysis)...)
	pipeline := analysis.NewPipeline(asrProvider, ensemble, fluency, ttsProvider, mediaStore,
		pipelineOptions(cfg.Analysis, metrics, logger)...)

	// ── HTTP server ───────────────────────────────────────────────────────────
	var tokenOpts []auth.TokenManagerOption
	if cfg.Auth.TokenTTLMinutes > 0 {
		tokenOpts = append(tokenOpts, auth.WithTokenTTL(time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute))
	}
	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, tokenOpts...)
	if err != nil {
		slog.Error("failed to create token manager", "err", err)
		return 1
	}

	srv := server.New(server.Deps{
		Tokens:     tokens,
		Users:      db,
		Recordings: db,
		Media:      mediaStore,
		Decoder:    media.NewDecoder(),
		Analyzer:   pipeline,
		Health:     health.New(health.DatabaseChecker(db)),
	}, server.WithLogger(logger), server.WithMetrics(metrics))

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", listenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		slog.Error("server error", "err", err)
		return 1
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildASR constructs the speech recognition backend named in entry,
// wrapped in a failover chain when fallbacks are configured.
func buildASR(entry config.ProviderEntry) (asr.Provider, error) {
	primary, err := buildASRBackend(entry)
	if err != nil {
		return nil, err
	}
	if len(entry.Fallbacks) == 0 {
		return primary, nil
	}

	failover := resilience.NewASRFailover(entry.Name, primary)
	for _, fb := range entry.Fallbacks {
		backend, err := buildASRBackend(fb)
		if err != nil {
			return nil, fmt.Errorf("asr fallback %q: %w", fb.Name, err)
		}
		failover.Add(fb.Name, backend)
	}
	return failover, nil
}

func buildASRBackend(entry config.ProviderEntry) (asr.Provider, error) {
	switch entry.Name {
	case "whisper":
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)

	case "whisper-native":
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		return whisper.NewNative(modelPath, opts...)

	default:
		return nil, fmt.Errorf("unknown asr provider %q", entry.Name)
	}
}

// buildScorer constructs the acceptability classifier named in entry.
func buildScorer(entry config.ProviderEntry) (acceptability.Scorer, error) {
	switch entry.Name {
	case "cola":
		var opts []cola.Option
		if label := optString(entry.Options, "acceptable_label"); label != "" {
			opts = append(opts, cola.WithAcceptableLabel(label))
		}
		return cola.New(entry.BaseURL, opts...)

	default:
		return nil, fmt.Errorf("unknown acceptability provider %q", entry.Name)
	}
}

// buildTTS constructs the synthesis backend named in entry, wrapped in a
// failover chain when fallbacks are configured.
func buildTTS(entry config.ProviderEntry) (tts.Provider, error) {
	primary, err := buildTTSBackend(entry)
	if err != nil {
		return nil, err
	}
	if len(entry.Fallbacks) == 0 {
		return primary, nil
	}

	failover := resilience.NewTTSFailover(entry.Name, primary)
	for _, fb := range entry.Fallbacks {
		backend, err := buildTTSBackend(fb)
		if err != nil {
			return nil, fmt.Errorf("tts fallback %q: %w", fb.Name, err)
		}
		failover.Add(fb.Name, backend)
	}
	return failover, nil
}

func buildTTSBackend(entry config.ProviderEntry) (tts.Provider, error) {
	switch entry.Name {
	case "coqui":
		var opts []coqui.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, coqui.WithLanguage(lang))
		}
		if speaker := optString(entry.Options, "speaker_id"); speaker != "" {
			opts = append(opts, coqui.WithSpeakerID(speaker))
		}
		if mode := optString(entry.Options, "api_mode"); mode != "" {
			opts = append(opts, coqui.WithAPIMode(coqui.APIMode(mode)))
		}
		return coqui.New(entry.BaseURL, opts...)

	default:
		return nil, fmt.Errorf("unknown tts provider %q", entry.Name)
	}
}

// buildStrategies constructs the configured correction strategies in their
// evaluation order.
func buildStrategies(entries []config.StrategyEntry, logger *slog.Logger) ([]analysis.Strategy, error) {
	strategies := make([]analysis.Strategy, 0, len(entries))
	for _, entry := range entries {
		switch entry.Kind {
		case config.StrategyInstruction:
			p, err := buildLLM(entry.Provider)
			if err != nil {
				return nil, fmt.Errorf("strategy %q: %w", entry.ID, err)
			}
			strategies = append(strategies, analysis.NewInstructionStrategy(entry.ID, p, logger))

		case config.StrategyPrefix:
			p, err := buildLLM(entry.Provider)
			if err != nil {
				return nil, fmt.Errorf("strategy %q: %w", entry.ID, err)
			}
			strategies = append(strategies, analysis.NewPrefixStrategy(entry.ID, p, logger))

		case config.StrategyRules:
			strategies = append(strategies, analysis.NewRuleStrategy(entry.ID))

		default:
			return nil, fmt.Errorf("strategy %q: unknown kind %q", entry.ID, entry.Kind)
		}
	}
	return strategies, nil
}

// buildLLM constructs the language model backend named in entry, wrapped in
// a failover chain when fallbacks are configured.
func buildLLM(entry config.ProviderEntry) (llm.Provider, error) {
	primary, err := buildLLMBackend(entry)
	if err != nil {
		return nil, err
	}
	if len(entry.Fallbacks) == 0 {
		return primary, nil
	}

	failover := resilience.NewLLMFailover(entry.Name, primary)
	for _, fb := range entry.Fallbacks {
		backend, err := buildLLMBackend(fb)
		if err != nil {
			return nil, fmt.Errorf("llm fallback %q: %w", fb.Name, err)
		}
		failover.Add(fb.Name, backend)
	}
	return failover, nil
}

// buildLLMBackend constructs one language model backend. The
// "openai-compatible" name addresses any server speaking the OpenAI chat API
// directly; everything else goes through the any-llm bindings.
func buildLLMBackend(entry config.ProviderEntry) (llm.Provider, error) {
	if entry.Name == "openai-compatible" {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	}

	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return anyllm.New(entry.Name, entry.Model, opts...)
}

// fluencyOptions maps the analysis config onto fluency scorer options.
func fluencyOptions(cfg config.AnalysisConfig) []analysis.FluencyOption {
	var opts []analysis.FluencyOption
	if cfg.IdealWPM > 0 {
		opts = append(opts, analysis.WithIdealWPM(cfg.IdealWPM))
	}
	if cfg.GreenAbove > 0 && cfg.YellowAbove > 0 {
		opts = append(opts, analysis.WithBandThresholds(cfg.GreenAbove, cfg.YellowAbove))
	}
	return opts
}

// pipelineOptions maps the analysis config onto pipeline options.
func pipelineOptions(cfg config.AnalysisConfig, metrics *observe.Metrics, logger *slog.Logger) []analysis.PipelineOption {
	opts := []analysis.PipelineOption{
		analysis.WithMetrics(metrics),
		analysis.WithLogger(logger),
	}
	if cfg.ASRTimeoutSeconds > 0 {
		opts = append(opts, analysis.WithASRTimeout(time.Duration(cfg.ASRTimeoutSeconds)*time.Second))
	}
	if cfg.TTSTimeoutSeconds > 0 {
		opts = append(opts, analysis.WithTTSTimeout(time.Duration(cfg.TTSTimeoutSeconds)*time.Second))
	}
	return opts
}

// ── Logger ─────────────────────────────────────────────────────────────────────

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

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
