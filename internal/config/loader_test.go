package config

import (
	"strings"
	"testing"
)

// validYAML is a minimal configuration that passes validation.
const validYAML = `
server:
  listen_addr: ":8080"
  log_level: info
auth:
  jwt_secret: test-secret
  token_ttl_minutes: 60
storage:
  postgres_dsn: postgres://localhost/speakwell
  upload_dir: /tmp/uploads
  output_dir: /tmp/outputs
providers:
  asr:
    name: whisper
    base_url: http://localhost:8080
  grammar:
    - id: instruct
      kind: instruction
      provider:
        name: ollama
        model: grammar-llm
    - id: gec
      kind: prefix
      provider:
        name: ollama
        model: grammar-t5
    - id: rules
      kind: rules
  acceptability:
    name: cola
    base_url: http://localhost:8090
  tts:
    name: coqui
    base_url: http://localhost:5002
analysis:
  ideal_wpm: 150
  green_above: 75
  yellow_above: 40
`

func TestLoadFromReader_Valid(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want %q", cfg.Server.ListenAddr, ":8080")
	}
	if cfg.Server.LogLevel != LogInfo {
		t.Errorf("LogLevel = %q, want info", cfg.Server.LogLevel)
	}
	if len(cfg.Providers.Grammar) != 3 {
		t.Fatalf("grammar strategies = %d, want 3", len(cfg.Providers.Grammar))
	}
	// Order is the evaluation order and must survive decoding.
	wantIDs := []string{"instruct", "gec", "rules"}
	for i, want := range wantIDs {
		if cfg.Providers.Grammar[i].ID != want {
			t.Errorf("grammar[%d].ID = %q, want %q", i, cfg.Providers.Grammar[i].ID, want)
		}
	}
	if cfg.Analysis.IdealWPM != 150 {
		t.Errorf("IdealWPM = %v, want 150", cfg.Analysis.IdealWPM)
	}
}

func TestLoadFromReader_EnvOverrides(t *testing.T) {
	t.Setenv("SPEAKWELL_JWT_SECRET", "env-secret")
	t.Setenv("SPEAKWELL_POSTGRES_DSN", "postgres://env-host/speakwell")

	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Errorf("JWTSecret = %q, want env override", cfg.Auth.JWTSecret)
	}
	if cfg.Storage.PostgresDSN != "postgres://env-host/speakwell" {
		t.Errorf("PostgresDSN = %q, want env override", cfg.Storage.PostgresDSN)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	yaml := strings.Replace(validYAML, "server:", "server:\n  bogus_field: 1", 1)
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadFromReader(strings.NewReader(validYAML))
		if err != nil {
			t.Fatalf("parsing base config: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			"missing jwt secret",
			func(c *Config) { c.Auth.JWTSecret = "" },
			"auth.jwt_secret is required",
		},
		{
			"missing dsn",
			func(c *Config) { c.Storage.PostgresDSN = "" },
			"storage.postgres_dsn is required",
		},
		{
			"bad log level",
			func(c *Config) { c.Server.LogLevel = "verbose" },
			"server.log_level",
		},
		{
			"unknown asr provider",
			func(c *Config) { c.Providers.ASR.Name = "dictaphone" },
			"providers.asr.name",
		},
		{
			"no strategies",
			func(c *Config) { c.Providers.Grammar = nil },
			"at least one strategy",
		},
		{
			"duplicate strategy id",
			func(c *Config) { c.Providers.Grammar[1].ID = "instruct" },
			"duplicate",
		},
		{
			"bad strategy kind",
			func(c *Config) { c.Providers.Grammar[0].Kind = "prompt" },
			"kind",
		},
		{
			"strategy missing provider",
			func(c *Config) { c.Providers.Grammar[0].Provider.Name = "" },
			"providers.grammar[0].provider.name is required",
		},
		{
			"inverted band thresholds",
			func(c *Config) { c.Analysis.GreenAbove = 30; c.Analysis.YellowAbove = 60 },
			"green_above",
		},
		{
			"negative timeout",
			func(c *Config) { c.Analysis.ASRTimeoutSeconds = -1 },
			"asr_timeout_seconds",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidate_Fallbacks(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadFromReader(strings.NewReader(validYAML))
		if err != nil {
			t.Fatalf("LoadFromReader: %v", err)
		}
		return cfg
	}

	cfg := valid()
	cfg.Providers.ASR.Fallbacks = []ProviderEntry{{Name: "whisper-native", Model: "models/ggml-base.en.bin"}}
	if err := Validate(cfg); err != nil {
		t.Errorf("valid fallback rejected: %v", err)
	}

	cfg = valid()
	cfg.Providers.ASR.Fallbacks = []ProviderEntry{{Name: "coqui"}}
	if err := Validate(cfg); err == nil {
		t.Error("fallback with wrong-kind name accepted")
	}

	cfg = valid()
	cfg.Providers.TTS.Fallbacks = []ProviderEntry{{
		Name:      "coqui",
		Fallbacks: []ProviderEntry{{Name: "coqui"}},
	}}
	if err := Validate(cfg); err == nil {
		t.Error("nested fallbacks accepted")
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for empty config, got nil")
	}
	for _, want := range []string{"auth.jwt_secret", "storage.postgres_dsn", "providers.asr"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error does not mention %q: %v", want, err)
		}
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
