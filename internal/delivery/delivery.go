// Package delivery hands finished dictations to whatever consumes them: the
// log, a clipboard or typing command, or the bus.
package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/protocol"
	"github.com/mattn/go-shellwords"
)

type Deliverer interface {
	Deliver(ctx context.Context, d protocol.Dictation) error
}

// Publisher is the subset of the bus client used for delivery.
type Publisher interface {
	PublishJSON(subject string, v any) error
}

// New builds the deliverer for cfg.Mode, a comma separated list of log,
// command and bus.
func New(cfg config.DeliveryConfig, pub Publisher, log *slog.Logger) (Deliverer, error) {
	var out Multi
	for _, mode := range strings.Split(cfg.Mode, ",") {
		switch strings.TrimSpace(mode) {
		case "log", "":
			out = append(out, NewLog(log))
		case "command":
			cmd, err := NewCommand(cfg.Command, time.Duration(cfg.TimeoutMS)*time.Millisecond)
			if err != nil {
				return nil, err
			}
			out = append(out, cmd)
		case "bus":
			if pub == nil {
				return nil, errors.New("delivery mode bus requires a bus connection")
			}
			out = append(out, NewBus(pub))
		default:
			return nil, fmt.Errorf("unknown delivery mode %q", mode)
		}
	}
	if len(out) == 1 {
		return out[0], nil
	}
	return out, nil
}

type Log struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *Log {
	return &Log{log: log.With(slog.String("component", "delivery"))}
}

func (l *Log) Deliver(_ context.Context, d protocol.Dictation) error {
	l.log.Info("dictation delivered",
		slog.String("session_id", d.SessionID),
		slog.Int("segments", d.Segments),
		slog.String("text", d.DeliveredText),
	)
	return nil
}

// Command pipes the delivered text to a program's stdin, for example
// wl-copy, xclip -selection clipboard or a typing helper.
type Command struct {
	argv    []string
	timeout time.Duration
}

func NewCommand(command string, timeout time.Duration) (*Command, error) {
	argv, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse delivery command: %w", err)
	}
	if len(argv) == 0 {
		return nil, errors.New("delivery command is empty")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Command{argv: argv, timeout: timeout}, nil
}

func (c *Command) Deliver(ctx context.Context, d protocol.Dictation) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	cmd.Stdin = strings.NewReader(d.DeliveredText)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("delivery command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Bus publishes the dictation on the output subject.
type Bus struct {
	pub Publisher
}

func NewBus(pub Publisher) *Bus {
	return &Bus{pub: pub}
}

func (b *Bus) Deliver(_ context.Context, d protocol.Dictation) error {
	if err := b.pub.PublishJSON(protocol.SubjectOutput, d); err != nil {
		return fmt.Errorf("publish dictation: %w", err)
	}
	return nil
}

// Multi delivers to every target and joins their errors.
type Multi []Deliverer

func (m Multi) Deliver(ctx context.Context, d protocol.Dictation) error {
	var errs []error
	for _, target := range m {
		if err := target.Deliver(ctx, d); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
