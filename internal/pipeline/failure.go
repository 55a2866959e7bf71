package pipeline

import (
	"errors"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/jargon"
	"github.com/loqalabs/loqa-dictate/internal/protocol"
)

type Stage string

const (
	StageCapture       Stage = "capture"
	StageSegmentation  Stage = "segmentation"
	StageModelLoad     Stage = "model_load"
	StageTranscription Stage = "transcription"
	StageSelector      Stage = "selector"
	StagePostProcess   Stage = "post_process"
	StageExpansion     Stage = "expansion"
	StageDelivery      Stage = "delivery"
)

// Failure ties an error to the pipeline stage that produced it.
type Failure struct {
	Stage Stage
	Err   error
}

func (f *Failure) Error() string {
	return string(f.Stage) + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

// StageOf returns the stage of the first Failure in err's chain.
func StageOf(err error) (Stage, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Stage, true
	}
	return "", false
}

// Output is the result of one recording session. Err is set when the
// session failed; Warnings lists stages that fell back.
type Output struct {
	SessionID     string
	HistoryText   string
	DeliveredText string
	Profiles      []string
	PromptID      string
	ModelID       string
	Segments      int
	Err           error
	Warnings      []*Failure
}

// Dictation converts o to its wire form.
func (o Output) Dictation() protocol.Dictation {
	d := protocol.Dictation{
		SessionID:     o.SessionID,
		HistoryText:   o.HistoryText,
		DeliveredText: o.DeliveredText,
		Profiles:      o.Profiles,
		PromptID:      o.PromptID,
		ModelID:       o.ModelID,
		Segments:      o.Segments,
	}
	if o.Err != nil {
		d.Error = o.Err.Error()
	}
	return d
}

// Settings are the user choices read at the start of every utterance.
type Settings struct {
	ManualProfiles []string
	Custom         jargon.Custom
	FuzzyThreshold float64
	PostProcess    bool
	PromptID       string
	AutoPrompt     bool
	Expansion      bool
}

func SettingsFrom(cfg config.Config) Settings {
	custom := jargon.Custom{Terms: append([]string(nil), cfg.Jargon.CustomTerms...)}
	for _, c := range cfg.Jargon.CustomCorrections {
		custom.Corrections = append(custom.Corrections, jargon.Correction{From: c.From, To: c.To})
	}
	return Settings{
		ManualProfiles: append([]string(nil), cfg.Jargon.EnabledProfiles...),
		Custom:         custom,
		FuzzyThreshold: cfg.Jargon.FuzzyThreshold,
		PostProcess:    cfg.PostProcess.Enabled,
		PromptID:       cfg.PostProcess.PromptID,
		AutoPrompt:     cfg.PostProcess.AutoPrompt,
		Expansion:      cfg.Expansion.Enabled,
	}
}

func (s Settings) clone() Settings {
	out := s
	out.ManualProfiles = append([]string(nil), s.ManualProfiles...)
	out.Custom.Terms = append([]string(nil), s.Custom.Terms...)
	out.Custom.Corrections = append([]jargon.Correction(nil), s.Custom.Corrections...)
	return out
}
