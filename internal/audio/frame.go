// Package audio produces fixed-size mono PCM frames from a capture device or
// a recorded file.
package audio

import (
	"context"
	"encoding/binary"
)

// Frame is a run of mono signed 16-bit samples.
type Frame struct {
	Seq        int
	Samples    []int16
	SampleRate int
	StartMS    int64
}

// DurationMS is the frame length in milliseconds.
func (f Frame) DurationMS() int64 {
	return SamplesToMS(len(f.Samples), f.SampleRate)
}

// Source delivers frames to emit until the context ends or the input is
// exhausted. emit must not block.
type Source interface {
	Run(ctx context.Context, emit func(Frame)) error
}

// SamplesToMS converts a sample count to milliseconds.
func SamplesToMS(n, sampleRate int) int64 {
	if sampleRate <= 0 {
		return 0
	}
	return int64(n) * 1000 / int64(sampleRate)
}

// MSToSamples converts milliseconds to a sample count.
func MSToSamples(ms int64, sampleRate int) int {
	return int(ms * int64(sampleRate) / 1000)
}

// BytesToSamples decodes little-endian 16-bit PCM. A trailing odd byte is
// ignored.
func BytesToSamples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

// Downmix averages interleaved channels into mono.
func Downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	out := make([]int16, len(samples)/channels)
	for i := range out {
		var sum int
		for c := 0; c < channels; c++ {
			sum += int(samples[i*channels+c])
		}
		out[i] = int16(sum / channels)
	}
	return out
}

// framer slices an arbitrary sample stream into frames of a fixed size.
type framer struct {
	size       int
	sampleRate int
	pending    []int16
	seq        int
	offset     int
}

func newFramer(sampleRate, frameMS int) *framer {
	size := MSToSamples(int64(frameMS), sampleRate)
	if size < 1 {
		size = 1
	}
	return &framer{size: size, sampleRate: sampleRate}
}

func (f *framer) push(samples []int16, emit func(Frame)) {
	f.pending = append(f.pending, samples...)
	for len(f.pending) >= f.size {
		chunk := make([]int16, f.size)
		copy(chunk, f.pending[:f.size])
		f.pending = f.pending[f.size:]
		f.emit(chunk, emit)
	}
}

// flush emits a final short frame, if any.
func (f *framer) flush(emit func(Frame)) {
	if len(f.pending) == 0 {
		return
	}
	chunk := append([]int16(nil), f.pending...)
	f.pending = nil
	f.emit(chunk, emit)
}

func (f *framer) emit(chunk []int16, emit func(Frame)) {
	frame := Frame{
		Seq:        f.seq,
		Samples:    chunk,
		SampleRate: f.sampleRate,
		StartMS:    SamplesToMS(f.offset, f.sampleRate),
	}
	f.seq++
	f.offset += len(chunk)
	emit(frame)
}
