// Package vad splits a frame stream into speech segments. Frames are
// classified speech or non-speech; leading and trailing silence is trimmed and
// long utterances are split at a maximum duration.
package vad

import (
	"math"
	"sync"
)

// Classifier decides whether a frame carries speech. Implementations may keep
// state between frames; Reset clears it at session boundaries.
type Classifier interface {
	IsSpeech(samples []int16) bool
	Reset()
}

// EnergyClassifier thresholds an exponentially smoothed RMS level.
type EnergyClassifier struct {
	threshold float64
	alpha     float64

	mu     sync.Mutex
	level  float64
	primed bool
	frames uint64
	speech uint64
}

// ClassifierStats summarises classifier activity.
type ClassifierStats struct {
	Frames       uint64  `json:"frames"`
	SpeechFrames uint64  `json:"speech_frames"`
	Level        float64 `json:"level"`
	Threshold    float64 `json:"threshold"`
}

// NewEnergyClassifier returns a classifier that reports speech when the
// smoothed RMS level (0..1) reaches threshold. smoothing is the weight of the
// newest frame; 1 disables smoothing.
func NewEnergyClassifier(threshold, smoothing float64) *EnergyClassifier {
	if smoothing <= 0 || smoothing > 1 {
		smoothing = 1
	}
	return &EnergyClassifier{threshold: threshold, alpha: smoothing}
}

func (c *EnergyClassifier) IsSpeech(samples []int16) bool {
	rms := RMS(samples)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.primed {
		c.level = rms
		c.primed = true
	} else {
		c.level = c.alpha*rms + (1-c.alpha)*c.level
	}
	c.frames++
	speech := c.level >= c.threshold
	if speech {
		c.speech++
	}
	return speech
}

func (c *EnergyClassifier) Reset() {
	c.mu.Lock()
	c.level = 0
	c.primed = false
	c.mu.Unlock()
}

// Stats returns a snapshot of the classifier counters.
func (c *EnergyClassifier) Stats() ClassifierStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ClassifierStats{
		Frames:       c.frames,
		SpeechFrames: c.speech,
		Level:        c.level,
		Threshold:    c.threshold,
	}
}

// RMS is the root mean square of samples scaled to 0..1.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
