package selector

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Prompt is the routing metadata of a post-processing prompt.
type Prompt struct {
	ID   string
	Name string
}

const maxRouteText = 2000

var promptKeywords = map[string][]string{
	"default_action_items":    {"action item", "todo", "next steps", "owner", "deadline", "task"},
	"default_document_writer": {"document", "proposal", "design doc", "write-up", "spec", "draft"},
	"default_meeting_notes":   {"meeting", "agenda", "decisions", "attendees", "recap", "notes"},
	"default_slack_message":   {"slack", "channel", "team update", "quick update", "message"},
	"default_email_draft":     {"email", "dear", "regards", "subject line", "reply to"},
	"default_standup_update":  {"standup", "yesterday", "today", "blocker", "blockers"},
	"default_pr_description":  {"pull request", "pr description", "changes", "reviewers", "merge"},
}

// PromptRouter chooses a post-processing prompt from the dictated text. It
// remembers its last choice and only switches when beaten by the hysteresis
// margin.
type PromptRouter struct {
	opts Options
	log  *slog.Logger

	mu   sync.Mutex
	last *Ranked
}

func NewPromptRouter(opts Options, log *slog.Logger) *PromptRouter {
	return &PromptRouter{opts: opts, log: log.With(slog.String("component", "prompt_router"))}
}

// Select returns the chosen prompt id, or fallback when nothing scores above
// the minimum or scoring does not finish in time.
func (r *PromptRouter) Select(ctx context.Context, text string, prompts []Prompt, fallback string) string {
	if strings.TrimSpace(text) == "" || len(prompts) == 0 {
		return fallback
	}
	if runes := []rune(text); len(runes) > maxRouteText {
		text = string(runes[:maxRouteText])
	}
	timeout := min(max(r.opts.Timeout, 10*time.Millisecond), 80*time.Millisecond)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan []Ranked, 1)
	go func() { done <- scorePrompts(text, prompts) }()

	var ranked []Ranked
	select {
	case ranked = <-done:
	case <-ctx.Done():
		r.log.Warn("prompt routing timed out", slog.Duration("timeout", timeout))
		return fallback
	}
	if len(ranked) == 0 || ranked[0].Score < r.opts.MinScore {
		return fallback
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	top := ranked[0]
	if r.last != nil && top.ID != r.last.ID && top.Score < r.last.Score+r.opts.Hysteresis {
		top = *r.last
	}
	r.last = &top
	r.log.Debug("prompt selected", slog.String("prompt", top.ID), slog.Float64("score", top.Score))
	return top.ID
}

// Reset forgets the last choice.
func (r *PromptRouter) Reset() {
	r.mu.Lock()
	r.last = nil
	r.mu.Unlock()
}

func scorePrompts(text string, prompts []Prompt) []Ranked {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	lower := strings.ToLower(text)
	scores := make(map[string]float64, len(prompts))
	for _, p := range prompts {
		score := 1.8 * overlap(tokens, Tokenize(p.ID+" "+p.Name))
		for _, kw := range promptKeywords[p.ID] {
			if strings.Contains(lower, kw) {
				score += 0.2
			}
		}
		if s := clamp01(score); s > 0 {
			scores[p.ID] = s
		}
	}
	return rank(scores)
}
