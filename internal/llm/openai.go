package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openAIGenerator streams chat completions from any OpenAI-compatible
// endpoint.
type openAIGenerator struct {
	client *openai.Client
	model  string
}

func NewOpenAIGenerator(cfg config.PostProcessConfig, httpClient *http.Client) Generator {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	client := openai.NewClient(opts...)
	return &openAIGenerator{client: &client, model: cfg.Model}
}

func (g *openAIGenerator) Generate(ctx context.Context, req Request, consumer func(Chunk) error) error {
	model := req.Model
	if model == "" {
		model = g.model
	}
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       model,
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	started := time.Now()
	stream := g.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if err := consumer(Chunk{
			Content: chunk.Choices[0].Delta.Content,
			Partial: chunk.Choices[0].FinishReason == "",
			Latency: time.Since(started),
		}); err != nil {
			return err
		}
	}
	if err := stream.Err(); err != nil && err != io.EOF {
		return fmt.Errorf("openai stream: %w", err)
	}
	return nil
}
