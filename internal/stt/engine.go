// Package stt turns speech segments into text through the model manager.
package stt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/model"
	"github.com/loqalabs/loqa-dictate/internal/textfilter"
	"github.com/loqalabs/loqa-dictate/internal/vad"
)

// Transcript is the outcome of one segment.
type Transcript struct {
	Text       string
	Raw        string
	Confidence float64
	ModelID    string
	Elapsed    time.Duration
	// Discarded is set when filtering removed the whole output.
	Discarded bool
}

type Engine struct {
	manager  *model.Manager
	timeout  time.Duration
	filter   bool
	language string
	log      *slog.Logger
}

func NewEngine(cfg config.STTConfig, manager *model.Manager, log *slog.Logger) *Engine {
	return &Engine{
		manager:  manager,
		timeout:  time.Duration(cfg.TimeoutMS) * time.Millisecond,
		filter:   cfg.Filter,
		language: cfg.Language,
		log:      log.With(slog.String("component", "stt")),
	}
}

// Transcribe runs seg through the loaded model, loading it first when
// needed. Model load failures are returned wrapped so callers can tell them
// apart from recognition failures with errors.Is.
func (e *Engine) Transcribe(ctx context.Context, seg vad.Segment, hints model.Hints) (Transcript, error) {
	if len(seg.Samples) == 0 {
		return Transcript{Discarded: true}, nil
	}
	if hints.Language == "" {
		hints.Language = e.language
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	started := time.Now()
	var res model.Result
	err := e.manager.Use(ctx, func(m model.Model) error {
		var err error
		res, err = m.Transcribe(ctx, seg.Samples, seg.SampleRate, hints)
		return err
	})
	out := Transcript{
		Raw:        res.Text,
		Confidence: res.Confidence,
		ModelID:    e.manager.Status().ID,
		Elapsed:    time.Since(started),
	}
	if err != nil {
		return out, fmt.Errorf("transcribe segment at %dms: %w", seg.StartMS, err)
	}

	text := strings.TrimSpace(res.Text)
	if e.filter {
		text = textfilter.Clean(text)
	}
	out.Text = text
	out.Discarded = text == ""
	e.log.Debug("segment transcribed",
		slog.Int64("start_ms", seg.StartMS),
		slog.Int64("duration_ms", seg.DurationMS()),
		slog.Int("chars", len(text)),
		slog.Duration("elapsed", out.Elapsed),
	)
	return out, nil
}
