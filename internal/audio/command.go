package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/mattn/go-shellwords"
)

// ErrCaptureUnavailable marks failures to open the capture device.
var ErrCaptureUnavailable = errors.New("capture device unavailable")

type commandSource struct {
	cmd        []string
	sampleRate int
	channels   int
	frameMS    int
}

// NewCommandSource runs an external capture program (arecord, sox, ffmpeg)
// that writes raw signed 16-bit little-endian PCM on stdout.
func NewCommandSource(cfg config.AudioConfig) (Source, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse capture command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("capture command is empty")
	}
	channels := cfg.Channels
	if channels < 1 {
		channels = 1
	}
	return &commandSource{
		cmd:        args,
		sampleRate: cfg.SampleRate,
		channels:   channels,
		frameMS:    cfg.FrameDurationMS,
	}, nil
}

func (s *commandSource) Run(ctx context.Context, emit func(Frame)) error {
	command := exec.CommandContext(ctx, s.cmd[0], s.cmd[1:]...)
	var stderr bytes.Buffer
	command.Stderr = &stderr
	stdout, err := command.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}
	if err := command.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	fr := newFramer(s.sampleRate, s.frameMS)
	chunk := make([]byte, fr.size*2*s.channels)
	var readErr error
	for {
		n, err := io.ReadFull(stdout, chunk)
		if n > 0 {
			usable := n - n%(2*s.channels)
			fr.push(Downmix(BytesToSamples(chunk[:usable]), s.channels), emit)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				readErr = err
			}
			break
		}
	}
	fr.flush(emit)

	waitErr := command.Wait()
	if ctx.Err() != nil {
		// Cancellation kills the process; that is the normal stop path.
		return nil
	}
	if readErr != nil {
		return fmt.Errorf("read capture stream: %w", readErr)
	}
	if waitErr != nil {
		return fmt.Errorf("%w: capture command failed: %v: %s", ErrCaptureUnavailable, waitErr, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}
