package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind. Used by
// [Validate] to reject unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"asr":           {"whisper", "whisper-native"},
	"llm":           {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile", "openai-compatible"},
	"acceptability": {"cola"},
	"tts":           {"coqui"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets secrets come from the environment instead of the
// YAML file. A set environment variable wins over the file value.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SPEAKWELL_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("SPEAKWELL_POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if cfg.Auth.TokenTTLMinutes < 0 {
		errs = append(errs, fmt.Errorf("auth.token_ttl_minutes %d must not be negative", cfg.Auth.TokenTTLMinutes))
	}

	if cfg.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.postgres_dsn is required"))
	}

	errs = append(errs, validateEntry("providers.asr", "asr", cfg.Providers.ASR, true)...)
	errs = append(errs, validateEntry("providers.acceptability", "acceptability", cfg.Providers.Acceptability, true)...)
	errs = append(errs, validateEntry("providers.tts", "tts", cfg.Providers.TTS, true)...)

	if len(cfg.Providers.Grammar) == 0 {
		errs = append(errs, errors.New("providers.grammar must list at least one strategy"))
	}
	idsSeen := make(map[string]int, len(cfg.Providers.Grammar))
	for i, entry := range cfg.Providers.Grammar {
		prefix := fmt.Sprintf("providers.grammar[%d]", i)
		if entry.ID == "" {
			errs = append(errs, fmt.Errorf("%s.id is required", prefix))
		} else {
			if prev, ok := idsSeen[entry.ID]; ok {
				errs = append(errs, fmt.Errorf("%s.id %q is a duplicate of providers.grammar[%d]", prefix, entry.ID, prev))
			}
			idsSeen[entry.ID] = i
		}
		if !entry.Kind.IsValid() {
			errs = append(errs, fmt.Errorf("%s.kind %q is invalid; valid values: instruction, prefix, rules", prefix, entry.Kind))
			continue
		}
		if entry.Kind != StrategyRules {
			errs = append(errs, validateEntry(prefix+".provider", "llm", entry.Provider, true)...)
		}
	}

	if cfg.Analysis.IdealWPM < 0 {
		errs = append(errs, fmt.Errorf("analysis.ideal_wpm %.1f must not be negative", cfg.Analysis.IdealWPM))
	}
	if cfg.Analysis.GreenAbove != 0 && cfg.Analysis.YellowAbove != 0 &&
		cfg.Analysis.GreenAbove <= cfg.Analysis.YellowAbove {
		errs = append(errs, fmt.Errorf("analysis.green_above %.1f must exceed analysis.yellow_above %.1f",
			cfg.Analysis.GreenAbove, cfg.Analysis.YellowAbove))
	}
	if cfg.Analysis.ASRTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("analysis.asr_timeout_seconds %d must not be negative", cfg.Analysis.ASRTimeoutSeconds))
	}
	if cfg.Analysis.TTSTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("analysis.tts_timeout_seconds %d must not be negative", cfg.Analysis.TTSTimeoutSeconds))
	}

	return errors.Join(errs...)
}

// validateEntry checks a provider entry's name and its fallback names
// against the known providers of kind.
func validateEntry(field, kind string, entry ProviderEntry, required bool) []error {
	var errs []error
	if err := validateProviderName(field, kind, entry.Name, required); err != nil {
		errs = append(errs, err)
	}
	for i, fb := range entry.Fallbacks {
		prefix := fmt.Sprintf("%s.fallbacks[%d]", field, i)
		if err := validateProviderName(prefix, kind, fb.Name, true); err != nil {
			errs = append(errs, err)
		}
		if len(fb.Fallbacks) > 0 {
			errs = append(errs, fmt.Errorf("%s must not declare nested fallbacks", prefix))
		}
	}
	return errs
}

// validateProviderName checks name against the known providers of kind.
// When required is true, an empty name is an error.
func validateProviderName(field, kind, name string, required bool) error {
	if name == "" {
		if required {
			return fmt.Errorf("%s.name is required", field)
		}
		return nil
	}
	if !slices.Contains(ValidProviderNames[kind], name) {
		return fmt.Errorf("%s.name %q is unknown; valid values: %v", field, name, ValidProviderNames[kind])
	}
	return nil
}
