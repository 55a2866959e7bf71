package audio

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/config"
)

type wavSource struct {
	path       string
	sampleRate int
	frameMS    int
	realtime   bool
}

// NewWAVSource replays a WAV file. With realtime set, frames are paced at
// their natural duration.
func NewWAVSource(cfg config.AudioConfig) Source {
	return &wavSource{
		path:       cfg.File,
		sampleRate: cfg.SampleRate,
		frameMS:    cfg.FrameDurationMS,
		realtime:   cfg.Realtime,
	}
}

func (s *wavSource) Run(ctx context.Context, emit func(Frame)) error {
	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	defer file.Close()

	samples, rate, err := DecodeWAV(file)
	if err != nil {
		return err
	}
	if s.sampleRate > 0 && rate != s.sampleRate {
		return fmt.Errorf("wav sample rate %d does not match configured %d", rate, s.sampleRate)
	}

	fr := newFramer(rate, s.frameMS)
	var ticker *time.Ticker
	if s.realtime {
		ticker = time.NewTicker(time.Duration(s.frameMS) * time.Millisecond)
		defer ticker.Stop()
	}
	for start := 0; start < len(samples); start += fr.size {
		if ctx.Err() != nil {
			return nil
		}
		end := start + fr.size
		if end > len(samples) {
			end = len(samples)
		}
		fr.push(samples[start:end], emit)
		if ticker != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	}
	fr.flush(emit)
	return nil
}

// StaticSource emits a fixed sample buffer as frames, then returns. It backs
// tests and in-memory replays.
type StaticSource struct {
	Samples    []int16
	SampleRate int
	FrameMS    int
}

func (s StaticSource) Run(ctx context.Context, emit func(Frame)) error {
	fr := newFramer(s.SampleRate, s.FrameMS)
	for start := 0; start < len(s.Samples); start += fr.size {
		if ctx.Err() != nil {
			return nil
		}
		end := start + fr.size
		if end > len(s.Samples) {
			end = len(s.Samples)
		}
		fr.push(s.Samples[start:end], emit)
	}
	fr.flush(emit)
	return nil
}
