package audio

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/loqalabs/loqa-dictate/internal/config"
)

func collect(t *testing.T, src Source) []Frame {
	t.Helper()
	var frames []Frame
	if err := src.Run(context.Background(), func(f Frame) { frames = append(frames, f) }); err != nil {
		t.Fatalf("run source: %v", err)
	}
	return frames
}

func TestStaticSourceFrames(t *testing.T) {
	samples := make([]int16, 16000+100)
	frames := collect(t, StaticSource{Samples: samples, SampleRate: 16000, FrameMS: 20})

	if len(frames) != 51 {
		t.Fatalf("expected 51 frames, got %d", len(frames))
	}
	if len(frames[0].Samples) != 320 {
		t.Fatalf("expected 320 samples per frame, got %d", len(frames[0].Samples))
	}
	if frames[1].StartMS != 20 || frames[1].Seq != 1 {
		t.Fatalf("unexpected second frame %+v", frames[1])
	}
	last := frames[len(frames)-1]
	if len(last.Samples) != 100 {
		t.Fatalf("expected short trailing frame, got %d samples", len(last.Samples))
	}
	var total int
	for _, f := range frames {
		total += len(f.Samples)
	}
	if total != len(samples) {
		t.Fatalf("frames lost samples: %d != %d", total, len(samples))
	}
}

func TestWAVRoundTripThroughSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	samples := make([]int16, 8000)
	for i := range samples {
		samples[i] = int16((i % 200) * 100)
	}
	if err := EncodeWAV(file, samples, 16000); err != nil {
		t.Fatalf("encode: %v", err)
	}
	file.Close()

	src := NewWAVSource(config.AudioConfig{File: path, SampleRate: 16000, FrameDurationMS: 20})
	frames := collect(t, src)
	var got []int16
	for _, f := range frames {
		got = append(got, f.Samples...)
	}
	if len(got) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(got))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("sample %d mismatch: %d != %d", i, got[i], samples[i])
		}
	}
}

func TestWAVSourceRejectsRateMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := EncodeWAV(file, make([]int16, 800), 8000); err != nil {
		t.Fatalf("encode: %v", err)
	}
	file.Close()

	src := NewWAVSource(config.AudioConfig{File: path, SampleRate: 16000, FrameDurationMS: 20})
	if err := src.Run(context.Background(), func(Frame) {}); err == nil {
		t.Fatal("expected sample rate mismatch error")
	}
}

func TestDownmix(t *testing.T) {
	got := Downmix([]int16{100, 300, -50, 50}, 2)
	if len(got) != 2 || got[0] != 200 || got[1] != 0 {
		t.Fatalf("unexpected downmix %v", got)
	}
}

func TestCommandSourceParse(t *testing.T) {
	if _, err := NewCommandSource(config.AudioConfig{Command: "", SampleRate: 16000, FrameDurationMS: 20}); err == nil {
		t.Fatal("expected empty command error")
	}
	if _, err := NewCommandSource(config.AudioConfig{Command: `arecord -f "S16_LE`, SampleRate: 16000}); err == nil {
		t.Fatal("expected parse error for unbalanced quote")
	}
}
