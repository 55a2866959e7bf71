package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/config"
)

var (
	ErrEmptyOutput   = errors.New("llm: post-processor returned empty output")
	ErrUnknownPrompt = errors.New("llm: unknown prompt")
)

const baseSystemMessage = `You are a dictation post-processor. Follow these rules strictly:
1) Do not invent facts, events, names, owners, dates, or outcomes.
2) Preserve the speaker's exact claims and intent.
3) If a detail is uncertain or missing, keep it vague rather than guessing.
4) Keep technical identifiers, code tokens, file paths, CLI flags, and URLs unchanged.
5) Do not add extra explanation or commentary beyond the requested output format.`

const segmentNote = "IMPORTANT: This text was transcribed from multiple independent audio segments split on silence. " +
	"The speech recognition model processed each segment separately, which causes artifacts: " +
	"missing spaces between segments, sentence-ending punctuation inserted mid-thought, " +
	"capitalization at segment boundaries that do not start a new sentence, and trailing ellipses where the speaker only paused. " +
	"Remove these artifacts and produce natural, flowing text that reflects what the speaker actually said."

const termsInstruction = "IMPORTANT: Use these exact spellings for technical terms: "

const tokenInstruction = `IMPORTANT: Preserve any @file-style references exactly (for example @main.rs or @"my file.ts"). ` +
	"Do not expand, remove, or rewrite these references."

var (
	leakedTerms    = regexp.MustCompile(`(?is)\n?\s*IMPORTANT:\s*Use these exact spellings for technical terms:\s*.*?(?:\n\s*\n|$)`)
	leakedTokens   = regexp.MustCompile(`(?is)\n?\s*IMPORTANT:\s*Preserve any @file-style references exactly\s*\(for example @main\.rs or @"my file\.ts"\)\.\s*Do not expand, remove, or rewrite these references\.\s*`)
	leakedSegments = regexp.MustCompile(`(?is)\n?\s*IMPORTANT:\s*This text was transcribed from multiple independent audio segments split on silence\..*?Remove these artifacts and produce natural, flowing text that reflects what the speaker actually said\.\s*`)
	zeroWidth      = strings.NewReplacer("\u200b", "", "\u200c", "", "\u200d", "", "\ufeff", "")
)

// Input is a finished transcript ready for rewriting.
type Input struct {
	Text     string
	PromptID string
	Terms    []string
	Segments int
	// PreserveTokens asks the model to leave @file references alone.
	PreserveTokens bool
}

type Output struct {
	Text     string
	PromptID string
	Latency  time.Duration
}

type PostProcessor struct {
	generator   Generator
	templates   map[string]Template
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	log         *slog.Logger
}

func NewPostProcessor(cfg config.PostProcessConfig, generator Generator, log *slog.Logger) *PostProcessor {
	templates := make(map[string]Template)
	for _, t := range Builtins() {
		templates[t.ID] = t
	}
	return &PostProcessor{
		generator:   generator,
		templates:   templates,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     time.Duration(cfg.TimeoutMS) * time.Millisecond,
		log:         log.With(slog.String("component", "postprocess")),
	}
}

// Templates returns the known templates.
func (p *PostProcessor) Templates() []Template {
	out := make([]Template, 0, len(p.templates))
	for _, t := range Builtins() {
		out = append(out, p.templates[t.ID])
	}
	return out
}

// Process rewrites in.Text. Callers keep the original text on any error.
func (p *PostProcessor) Process(ctx context.Context, in Input) (Output, error) {
	tmpl, ok := p.templates[in.PromptID]
	if !ok {
		return Output{}, fmt.Errorf("%w: %q", ErrUnknownPrompt, in.PromptID)
	}
	if strings.TrimSpace(in.Text) == "" {
		return Output{}, ErrEmptyOutput
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	req := Request{
		Prompt:      BuildPrompt(tmpl, in),
		System:      SystemMessage(in.Segments),
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	}
	started := time.Now()
	raw, _, err := Collect(ctx, p.generator, req)
	if err != nil {
		return Output{}, fmt.Errorf("generate: %w", err)
	}
	text := Sanitize(raw)
	if text == "" {
		return Output{}, ErrEmptyOutput
	}
	out := Output{Text: text, PromptID: tmpl.ID, Latency: time.Since(started)}
	p.log.Debug("transcript post-processed",
		slog.String("prompt", tmpl.ID),
		slog.Int("input_chars", len(in.Text)),
		slog.Int("output_chars", len(text)),
		slog.Duration("latency", out.Latency),
	)
	return out, nil
}

// BuildPrompt renders the template and appends vocabulary and @file
// instructions.
func BuildPrompt(t Template, in Input) string {
	prompt := t.Render(in.Text)
	if len(in.Terms) > 0 {
		prompt += "\n\n" + termsInstruction + strings.Join(in.Terms, ", ")
	}
	if in.PreserveTokens {
		prompt += "\n\n" + tokenInstruction
	}
	return prompt
}

// SystemMessage returns the safety rules, plus the segment artefact note when
// the transcript was stitched from more than one segment.
func SystemMessage(segments int) string {
	if segments > 1 {
		return baseSystemMessage + "\n\n" + segmentNote
	}
	return baseSystemMessage
}

// Sanitize strips zero-width characters and instruction blocks the model
// echoed back.
func Sanitize(text string) string {
	text = zeroWidth.Replace(text)
	text = leakedTerms.ReplaceAllString(text, "\n")
	text = leakedTokens.ReplaceAllString(text, "\n")
	text = leakedSegments.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
