package llm

import (
	"context"
	"strings"
	"time"
)

type mockGenerator struct {
	respond func(Request) (string, error)
}

// NewMockGenerator answers with respond, or by echoing the transcript
// embedded in the prompt when respond is nil.
func NewMockGenerator(respond func(Request) (string, error)) Generator {
	if respond == nil {
		respond = echoTranscript
	}
	return &mockGenerator{respond: respond}
}

func (m *mockGenerator) Generate(ctx context.Context, req Request, consumer func(Chunk) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Millisecond):
	}
	content, err := m.respond(req)
	if err != nil {
		return err
	}
	return consumer(Chunk{Content: content, Latency: 5 * time.Millisecond})
}

func echoTranscript(req Request) (string, error) {
	text := req.Prompt
	if i := strings.LastIndex(text, transcriptMarker); i >= 0 {
		text = text[i+len(transcriptMarker):]
	}
	if i := strings.Index(text, "\n\nIMPORTANT:"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text), nil
}
