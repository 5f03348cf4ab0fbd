package analysis

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/speakwell/speakwell/pkg/provider/llm"
)

// Strategy produces one candidate rewrite of a transcript. Propose is total:
// a strategy that cannot improve the text, or whose backend fails, returns
// the input unchanged so the ensemble always has a full candidate set.
type Strategy interface {
	// ID identifies the strategy in logs and stored results.
	ID() string

	// Propose returns a corrected version of text, or text itself when no
	// correction could be produced.
	Propose(ctx context.Context, text string) string
}

// instructionPrompt frames the correction task for general instruction-tuned
// models. The trailing "Corrected Text:" cue keeps completions from drifting
// into explanations.
const instructionPrompt = "Fix all grammar and spelling mistakes in the following text. " +
	"Reply with only the corrected text and nothing else.\n\n" +
	"Original Text: %s\n\nCorrected Text:"

// gecPrefix is the task prefix expected by T5-style models fine-tuned for
// grammatical error correction.
const gecPrefix = "gec: "

// strategyTimeout bounds one backend completion. A slow model falls back to
// the original text instead of stalling the whole analysis.
const strategyTimeout = 30 * time.Second

// InstructionStrategy prompts a general-purpose LLM with an explicit
// correction instruction.
type InstructionStrategy struct {
	id       string
	provider llm.Provider
	logger   *slog.Logger
}

var _ Strategy = (*InstructionStrategy)(nil)

// NewInstructionStrategy builds an InstructionStrategy named id over provider.
func NewInstructionStrategy(id string, provider llm.Provider, logger *slog.Logger) *InstructionStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &InstructionStrategy{id: id, provider: provider, logger: logger}
}

// ID implements Strategy.
func (s *InstructionStrategy) ID() string { return s.id }

// Propose implements Strategy.
func (s *InstructionStrategy) Propose(ctx context.Context, text string) string {
	prompt := strings.Replace(instructionPrompt, "%s", text, 1)
	return completeOrFallback(ctx, s.provider, s.logger, s.id, prompt, text)
}

// PrefixStrategy prompts a grammar-correction fine-tune using its task
// prefix. Models like flan-t5 GEC fine-tunes expect "gec: <text>" and emit
// the corrected sentence directly.
type PrefixStrategy struct {
	id       string
	provider llm.Provider
	logger   *slog.Logger
}

var _ Strategy = (*PrefixStrategy)(nil)

// NewPrefixStrategy builds a PrefixStrategy named id over provider.
func NewPrefixStrategy(id string, provider llm.Provider, logger *slog.Logger) *PrefixStrategy {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrefixStrategy{id: id, provider: provider, logger: logger}
}

// ID implements Strategy.
func (s *PrefixStrategy) ID() string { return s.id }

// Propose implements Strategy.
func (s *PrefixStrategy) Propose(ctx context.Context, text string) string {
	return completeOrFallback(ctx, s.provider, s.logger, s.id, gecPrefix+text, text)
}

// completeOrFallback runs a single-turn completion and cleans the reply.
// Any failure, or an empty reply, falls back to the original text.
func completeOrFallback(ctx context.Context, provider llm.Provider, logger *slog.Logger, id, prompt, original string) string {
	ctx, cancel := context.WithTimeout(ctx, strategyTimeout)
	defer cancel()

	resp, err := provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
		MaxTokens:   256,
	})
	if err != nil {
		logger.Warn("correction strategy failed, keeping original text",
			"strategy", id, "error", err)
		return original
	}
	cleaned := cleanReply(resp.Content)
	if cleaned == "" {
		return original
	}
	return cleaned
}

// cleanReply normalizes a model reply into a bare sentence: code fences and
// surrounding quotes are stripped, a leading "Corrected Text:" echo is
// removed, and only the first non-empty line is kept.
func cleanReply(reply string) string {
	s := strings.TrimSpace(reply)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "Corrected Text:"); ok {
			line = strings.TrimSpace(rest)
			if line == "" {
				continue
			}
		}
		line = strings.Trim(line, `"'`)
		return strings.TrimSpace(line)
	}
	return ""
}

// rule is one pattern/replacement pair applied by RuleStrategy.
type rule struct {
	pattern *regexp.Regexp
	replace string
}

// tenseRules fix present-state descriptions misrendered in past tense, a
// frequent pattern in Indian English learner speech ("I was currently working
// in Hyderabad and stays at Mumbai"). The rules run in order so the more
// specific rewrites fire before the general ones.
var tenseRules = []rule{
	// "I was currently" describes the present.
	{regexp.MustCompile(`(?i)\bI was currently\b`), "I am currently"},
	// "I was <ProperNoun>" is an introduction, not a past state. The name
	// capture stays case-sensitive so ordinary past tense ("I was tired")
	// is left alone.
	{regexp.MustCompile(`(?i:\bI was)\s+([A-Z][a-z]+)\b`), "I am $1"},
	{regexp.MustCompile(`(?i)\bcurrently stays\b`), "currently stay"},
	// "stays at <city>" → "stay in <city>" for major Indian metros.
	{regexp.MustCompile(`(?i)\bstays? at (Hyderabad|Mumbai|Delhi|Bangalore|Chennai|Kolkata)\b`), "stay in $1"},
}

// RuleStrategy applies deterministic regex rewrites for mistakes the model
// strategies reliably miss. It needs no backend and never fails.
type RuleStrategy struct {
	id    string
	rules []rule
}

var _ Strategy = (*RuleStrategy)(nil)

// NewRuleStrategy builds the rule-based strategy named id.
func NewRuleStrategy(id string) *RuleStrategy {
	return &RuleStrategy{id: id, rules: tenseRules}
}

// ID implements Strategy.
func (s *RuleStrategy) ID() string { return s.id }

// Propose implements Strategy.
func (s *RuleStrategy) Propose(_ context.Context, text string) string {
	out := text
	for _, r := range s.rules {
		out = r.pattern.ReplaceAllString(out, r.replace)
	}
	return out
}
