// Package llm rewrites finished transcripts with a generative model.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/config"
)

// Request describes a language model prompt.
type Request struct {
	Prompt      string
	System      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Chunk represents streamed model output.
type Chunk struct {
	Content          string
	Partial          bool
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
}

// Generator defines a pluggable LLM backend.
type Generator interface {
	Generate(ctx context.Context, req Request, consumer func(Chunk) error) error
}

// NewGenerator builds the backend named by cfg.Mode.
func NewGenerator(cfg config.PostProcessConfig) (Generator, error) {
	switch cfg.Mode {
	case "ollama":
		return NewOllamaGenerator(cfg.Endpoint, cfg.Model, nil), nil
	case "openai":
		return NewOpenAIGenerator(cfg, nil), nil
	case "exec":
		return NewExecGenerator(cfg.Command)
	case "mock", "":
		return NewMockGenerator(nil), nil
	default:
		return nil, fmt.Errorf("unknown post-process mode %q", cfg.Mode)
	}
}

// Collect runs req to completion and returns the concatenated content.
func Collect(ctx context.Context, g Generator, req Request) (string, Chunk, error) {
	var b strings.Builder
	var last Chunk
	err := g.Generate(ctx, req, func(c Chunk) error {
		b.WriteString(c.Content)
		last = c
		return nil
	})
	return b.String(), last, err
}
