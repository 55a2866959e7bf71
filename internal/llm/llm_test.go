package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/loqalabs/loqa-dictate/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newProcessor(g Generator) *PostProcessor {
	return NewPostProcessor(config.PostProcessConfig{MaxTokens: 256, TimeoutMS: 2000}, g, newLogger())
}

func TestBuiltinTemplates(t *testing.T) {
	templates := Builtins()
	if len(templates) != 9 {
		t.Fatalf("expected nine templates, got %d", len(templates))
	}
	for _, tmpl := range templates {
		if !strings.Contains(tmpl.Body, OutputPlaceholder) {
			t.Fatalf("template %s has no placeholder", tmpl.ID)
		}
	}
	if _, ok := Lookup("default_email_draft"); !ok {
		t.Fatal("expected email template")
	}
}

func TestBuildPrompt(t *testing.T) {
	tmpl, _ := Lookup("default_improve_transcriptions")
	prompt := BuildPrompt(tmpl, Input{
		Text:           "ship the next js app",
		Terms:          []string{"Next.js", "Vercel"},
		PreserveTokens: true,
	})
	if !strings.Contains(prompt, "Transcript:\nship the next js app") {
		t.Fatalf("transcript not substituted: %q", prompt)
	}
	if !strings.Contains(prompt, "IMPORTANT: Use these exact spellings for technical terms: Next.js, Vercel") {
		t.Fatal("missing terms instruction")
	}
	if !strings.Contains(prompt, "@file-style references") {
		t.Fatal("missing @file instruction")
	}
	if strings.Contains(BuildPrompt(tmpl, Input{Text: "x"}), "IMPORTANT") {
		t.Fatal("unexpected instructions without terms")
	}
}

func TestSystemMessage(t *testing.T) {
	if strings.Contains(SystemMessage(1), "multiple independent audio segments") {
		t.Fatal("single segment should not carry the segment note")
	}
	if !strings.Contains(SystemMessage(3), "multiple independent audio segments") {
		t.Fatal("expected segment note")
	}
}

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"zero width", "Hello\u200b wor\u200dld\ufeff", "Hello world"},
		{"leaked terms", "Clean text.\n\nIMPORTANT: Use these exact spellings for technical terms: Foo, Bar", "Clean text."},
		{"leaked tokens", "Check @main.rs now.\n\n" + tokenInstruction, "Check @main.rs now."},
		{"leaked segments", segmentNote + "\nActual text.", "Actual text."},
		{"untouched", "Nothing to strip.", "Nothing to strip."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Sanitize(tc.in); got != tc.want {
				t.Fatalf("Sanitize() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestProcessWithMock(t *testing.T) {
	p := newProcessor(NewMockGenerator(nil))
	out, err := p.Process(context.Background(), Input{
		Text:     "we should ship on friday",
		PromptID: "default_improve_transcriptions",
		Terms:    []string{"Friday"},
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.Text != "we should ship on friday" || out.PromptID != "default_improve_transcriptions" {
		t.Fatalf("unexpected output %+v", out)
	}
}

func TestProcessErrors(t *testing.T) {
	failing := NewMockGenerator(func(Request) (string, error) { return "", errors.New("backend down") })
	if _, err := newProcessor(failing).Process(context.Background(), Input{Text: "x", PromptID: "default_improve_transcriptions"}); err == nil {
		t.Fatal("expected generator error")
	}

	blank := NewMockGenerator(func(Request) (string, error) { return " \u200b\n", nil })
	if _, err := newProcessor(blank).Process(context.Background(), Input{Text: "x", PromptID: "default_improve_transcriptions"}); !errors.Is(err, ErrEmptyOutput) {
		t.Fatalf("expected ErrEmptyOutput, got %v", err)
	}

	if _, err := newProcessor(NewMockGenerator(nil)).Process(context.Background(), Input{Text: "x", PromptID: "nope"}); !errors.Is(err, ErrUnknownPrompt) {
		t.Fatalf("expected ErrUnknownPrompt, got %v", err)
	}
}

func TestProcessPassesSystemMessage(t *testing.T) {
	var seen Request
	g := NewMockGenerator(func(r Request) (string, error) {
		seen = r
		return "ok", nil
	})
	if _, err := newProcessor(g).Process(context.Background(), Input{Text: "a b", PromptID: "default_slack_message", Segments: 2}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(seen.System, "dictation post-processor") || !strings.Contains(seen.System, "segments") {
		t.Fatalf("unexpected system message %q", seen.System)
	}
	if seen.MaxTokens != 256 {
		t.Fatalf("expected max tokens 256, got %d", seen.MaxTokens)
	}
}

func TestOllamaGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Stream || req.Model != "llama3.2:latest" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, `{"response":"Hello","done":false}`)
		fmt.Fprintln(w, `{"response":" world","done":true,"eval_count":2,"prompt_eval_count":5}`)
	}))
	defer srv.Close()

	text, last, err := Collect(context.Background(), NewOllamaGenerator(srv.URL, "", nil), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "Hello world" || last.Partial || last.CompletionTokens != 2 || last.PromptTokens != 5 {
		t.Fatalf("unexpected result %q %+v", text, last)
	}
}

func TestOllamaGeneratorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	if _, _, err := Collect(context.Background(), NewOllamaGenerator(srv.URL, "m", nil), Request{Prompt: "hi"}); err == nil {
		t.Fatal("expected status error")
	}
}

func TestOpenAIGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Stream   bool   `json:"stream"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Stream || len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Clean", " text."} {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":%q,\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", req.Model, part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	g := NewOpenAIGenerator(config.PostProcessConfig{Endpoint: srv.URL, Model: "gpt-test", APIKey: "k"}, nil)
	text, _, err := Collect(context.Background(), g, Request{Prompt: "p", System: "s"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "Clean text." {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExecGenerator(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "rewrite.sh")
	body := "#!/bin/sh\ncat > " + filepath.Join(dir, "in.json") + "\necho '{\"content\":\"rewritten\",\"completion_tokens\":3}'\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatal(err)
	}
	g, err := NewExecGenerator(script)
	if err != nil {
		t.Fatal(err)
	}
	text, last, err := Collect(context.Background(), g, Request{Prompt: "hello", System: "sys"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "rewritten" || last.CompletionTokens != 3 {
		t.Fatalf("unexpected result %q %+v", text, last)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "in.json"))
	if err != nil {
		t.Fatal(err)
	}
	var req execRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.Prompt != "hello" || req.System != "sys" {
		t.Fatalf("unexpected stdin %s (%v)", raw, err)
	}
}

func TestNewGenerator(t *testing.T) {
	for _, mode := range []string{"mock", "ollama", "openai"} {
		if _, err := NewGenerator(config.PostProcessConfig{Mode: mode, Endpoint: "http://localhost:1"}); err != nil {
			t.Fatalf("%s: %v", mode, err)
		}
	}
	if _, err := NewGenerator(config.PostProcessConfig{Mode: "exec"}); err == nil {
		t.Fatal("expected error for empty exec command")
	}
	if _, err := NewGenerator(config.PostProcessConfig{Mode: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
