// Package selector picks the jargon profiles that match what is being
// dictated. Scoring is bounded by a deadline and fails open to the previous
// choice.
package selector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/jargon"
)

var ErrTimeout = errors.New("selector: scoring timed out")

// Fallback reasons recorded on an Outcome.
const (
	FallbackDisabled = "disabled"
	FallbackEmpty    = "empty_text"
	FallbackTimeout  = "timeout"
	FallbackError    = "scorer_error"
)

const minTimeout = 25 * time.Millisecond

type Options struct {
	Enabled     bool
	Timeout     time.Duration
	TopK        int
	MinScore    float64
	Hysteresis  float64
	BlendManual bool
}

// OptionsFrom clamps cfg into usable options.
func OptionsFrom(cfg config.SelectorConfig) Options {
	return Options{
		Enabled:     cfg.Enabled,
		Timeout:     max(time.Duration(cfg.TimeoutMS)*time.Millisecond, minTimeout),
		TopK:        max(cfg.TopK, 1),
		MinScore:    clamp01(cfg.MinScore),
		Hysteresis:  clamp01(cfg.Hysteresis),
		BlendManual: cfg.BlendManual,
	}
}

// State carries the selection of one recording session across utterances.
type State struct {
	Previous   []string
	LastScores map[string]float64
}

func (s *State) Reset() {
	s.Previous = nil
	s.LastScores = nil
}

func (s *State) selectedBefore(id string) bool {
	for _, p := range s.Previous {
		if p == id {
			return true
		}
	}
	return false
}

type Ranked struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

type Outcome struct {
	IDs      []string
	Ranked   []Ranked
	Fallback string
}

type Selector struct {
	scorer Scorer
	opts   Options
	log    *slog.Logger
}

func New(opts Options, scorer Scorer, log *slog.Logger) *Selector {
	if scorer == nil {
		scorer = Lexical{}
	}
	return &Selector{scorer: scorer, opts: opts, log: log.With(slog.String("component", "selector"))}
}

func (s *Selector) Options() Options { return s.opts }

// Select scores text against profiles and updates state. When scoring times
// out or fails, the previous selection is returned with a non-nil error and
// state is left untouched.
func (s *Selector) Select(ctx context.Context, state *State, text string, profiles []jargon.Profile) (Outcome, error) {
	if !s.opts.Enabled {
		return Outcome{Fallback: FallbackDisabled}, nil
	}
	previous := append([]string(nil), state.Previous...)
	if strings.TrimSpace(text) == "" {
		return Outcome{IDs: previous, Fallback: FallbackEmpty}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	type result struct {
		scores map[string]float64
		err    error
	}
	done := make(chan result, 1)
	go func() {
		scores, err := s.scorer.Score(ctx, text, profiles)
		done <- result{scores, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		s.log.Warn("selector timed out", slog.Duration("timeout", s.opts.Timeout))
		return Outcome{IDs: previous, Fallback: FallbackTimeout}, fmt.Errorf("%w after %s", ErrTimeout, s.opts.Timeout)
	}
	if res.err != nil {
		s.log.Warn("selector scoring failed", slog.String("error", res.err.Error()))
		return Outcome{IDs: previous, Fallback: FallbackError}, fmt.Errorf("score profiles: %w", res.err)
	}

	ranked := rank(res.scores)
	var ids []string
	for _, r := range ranked {
		if len(ids) == s.opts.TopK {
			break
		}
		if r.Score >= s.opts.MinScore || (state.selectedBefore(r.ID) && r.Score >= s.opts.MinScore-s.opts.Hysteresis) {
			ids = append(ids, r.ID)
		}
	}

	state.Previous = ids
	state.LastScores = res.scores
	s.log.Debug("profiles selected", slog.Any("ids", ids), slog.Int("candidates", len(ranked)))
	return Outcome{IDs: ids, Ranked: ranked}, nil
}

// rank orders scores by score descending, then id ascending.
func rank(scores map[string]float64) []Ranked {
	out := make([]Ranked, 0, len(scores))
	for id, score := range scores {
		out = append(out, Ranked{ID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Blend combines manually enabled profiles with the automatic selection.
// With blend the result is the union, manual ids first; otherwise the
// automatic selection replaces the manual one.
func Blend(manual, auto []string, blend bool) []string {
	if !blend {
		return append([]string(nil), auto...)
	}
	seen := make(map[string]bool, len(manual)+len(auto))
	var out []string
	for _, list := range [][]string{manual, auto} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
