package vad

import (
	"errors"
	"fmt"

	"github.com/loqalabs/loqa-dictate/internal/audio"
	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/queue"
)

// ErrFrameFormat marks a frame the segmenter cannot consume.
var ErrFrameFormat = errors.New("vad: unexpected frame format")

// Segment is a contiguous run of speech ready for transcription.
type Segment struct {
	Samples    []int16
	StartMS    int64
	EndMS      int64
	SampleRate int
	// Forced is set when the segment was cut at the maximum duration rather
	// than at a pause.
	Forced bool
}

// DurationMS is EndMS - StartMS.
func (s Segment) DurationMS() int64 {
	return s.EndMS - s.StartMS
}

// Stats accounts for every input sample. Emitted + Trimmed + Discarded never
// exceeds Input; the difference is audio still buffered.
type Stats struct {
	InputMS     int64  `json:"input_ms"`
	EmittedMS   int64  `json:"emitted_ms"`
	TrimmedMS   int64  `json:"trimmed_ms"`
	DiscardedMS int64  `json:"discarded_ms"`
	Segments    uint64 `json:"segments"`
	Dropped     uint64 `json:"dropped"`
}

// Segmenter turns frames into segments and pushes them into a bounded queue.
// Feed, Flush and Discard must be called from a single goroutine.
type Segmenter struct {
	classifier Classifier
	out        *queue.Ring[Segment]
	onDrop     func(Segment)

	sampleRate      int
	trailingSamples int
	minSamples      int
	maxSamples      int

	inSpeech   bool
	buf        []int16
	startMS    int64
	silenceRun int

	input, emitted, trimmed, discarded int64
	segments, dropped                  uint64
}

// NewSegmenter builds a segmenter for frames at sampleRate. onDrop, when not
// nil, is called with each segment evicted from a full queue.
func NewSegmenter(cfg config.VADConfig, sampleRate int, classifier Classifier, out *queue.Ring[Segment], onDrop func(Segment)) *Segmenter {
	maxSamples := audio.MSToSamples(int64(cfg.MaxSegmentMS), sampleRate)
	if maxSamples < 1 {
		maxSamples = 1
	}
	return &Segmenter{
		classifier:      classifier,
		out:             out,
		onDrop:          onDrop,
		sampleRate:      sampleRate,
		trailingSamples: audio.MSToSamples(int64(cfg.TrailingSilenceMS), sampleRate),
		minSamples:      audio.MSToSamples(int64(cfg.MinSegmentMS), sampleRate),
		maxSamples:      maxSamples,
	}
}

// Feed consumes one frame. A frame with a different sample rate drops the
// segment in progress and returns ErrFrameFormat; later frames are accepted.
func (s *Segmenter) Feed(frame audio.Frame) error {
	n := len(frame.Samples)
	if n == 0 {
		return nil
	}
	if frame.SampleRate != s.sampleRate {
		s.Discard()
		return fmt.Errorf("%w: sample rate %d, want %d", ErrFrameFormat, frame.SampleRate, s.sampleRate)
	}
	s.input += int64(n)

	speech := s.classifier.IsSpeech(frame.Samples)
	if !s.inSpeech {
		if !speech {
			s.trimmed += int64(n)
			return nil
		}
		s.open(frame.StartMS)
	}

	samples := frame.Samples
	offsetMS := frame.StartMS
	for len(samples) > 0 {
		room := s.maxSamples - len(s.buf)
		take := len(samples)
		if take > room {
			take = room
		}
		s.buf = append(s.buf, samples[:take]...)
		if speech {
			s.silenceRun = 0
		} else {
			s.silenceRun += take
		}
		samples = samples[take:]
		offsetMS += audio.SamplesToMS(take, s.sampleRate)

		if len(s.buf) >= s.maxSamples {
			s.emit(len(s.buf), true)
			if len(samples) > 0 {
				s.open(offsetMS)
			} else {
				s.inSpeech = false
			}
		}
	}

	// A pause ends the segment once it is strictly longer than the trailing
	// silence threshold.
	if s.inSpeech && !speech && s.trailingSamples > 0 && s.silenceRun > s.trailingSamples {
		s.emit(len(s.buf)-s.silenceRun, false)
		s.inSpeech = false
	}
	return nil
}

// Flush emits the segment in progress, trimmed of trailing silence, if it
// meets the minimum duration.
func (s *Segmenter) Flush() {
	if s.inSpeech && len(s.buf) > 0 {
		s.emit(len(s.buf)-s.silenceRun, false)
	}
	s.reset()
}

// Discard drops the segment in progress.
func (s *Segmenter) Discard() {
	s.discarded += int64(len(s.buf))
	s.buf = nil
	s.reset()
}

// Stats returns the running accounting.
func (s *Segmenter) Stats() Stats {
	return Stats{
		InputMS:     audio.SamplesToMS(int(s.input), s.sampleRate),
		EmittedMS:   audio.SamplesToMS(int(s.emitted), s.sampleRate),
		TrimmedMS:   audio.SamplesToMS(int(s.trimmed), s.sampleRate),
		DiscardedMS: audio.SamplesToMS(int(s.discarded), s.sampleRate),
		Segments:    s.segments,
		Dropped:     s.dropped,
	}
}

func (s *Segmenter) open(startMS int64) {
	s.inSpeech = true
	s.buf = make([]int16, 0, s.maxSamples)
	s.startMS = startMS
	s.silenceRun = 0
}

func (s *Segmenter) reset() {
	s.inSpeech = false
	s.buf = nil
	s.silenceRun = 0
	s.classifier.Reset()
}

// emit closes the current buffer keeping its first keep samples.
func (s *Segmenter) emit(keep int, forced bool) {
	if keep < 0 {
		keep = 0
	}
	s.trimmed += int64(len(s.buf) - keep)
	samples := s.buf[:keep]
	s.buf = nil
	s.silenceRun = 0

	durMS := audio.SamplesToMS(keep, s.sampleRate)
	if keep == 0 || keep < s.minSamples || durMS == 0 {
		s.discarded += int64(keep)
		return
	}
	seg := Segment{
		Samples:    samples,
		StartMS:    s.startMS,
		EndMS:      s.startMS + durMS,
		SampleRate: s.sampleRate,
		Forced:     forced,
	}
	s.emitted += int64(keep)
	s.segments++

	old, evicted, err := s.out.Push(seg)
	if err != nil {
		// The consumer is gone; nothing downstream will see it.
		s.emitted -= int64(keep)
		s.discarded += int64(keep)
		s.segments--
		return
	}
	if evicted {
		s.dropped++
		if s.onDrop != nil {
			s.onDrop(old)
		}
	}
}
