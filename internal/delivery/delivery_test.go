package delivery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/protocol"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePublisher struct {
	subject string
	value   any
	err     error
}

func (f *fakePublisher) PublishJSON(subject string, v any) error {
	f.subject, f.value = subject, v
	return f.err
}

type failing struct{ err error }

func (f failing) Deliver(context.Context, protocol.Dictation) error { return f.err }

func TestCommandPipesStdin(t *testing.T) {
	out := filepath.Join(t.TempDir(), "clipboard.txt")
	cmd, err := NewCommand("sh -c 'cat > "+out+"'", 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Deliver(context.Background(), protocol.Dictation{DeliveredText: "hello @main.go"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello @main.go" {
		t.Fatalf("unexpected stdin %q", data)
	}
}

func TestCommandFailure(t *testing.T) {
	cmd, err := NewCommand("sh -c 'echo nope >&2; exit 3'", 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Deliver(context.Background(), protocol.Dictation{DeliveredText: "x"}); err == nil {
		t.Fatal("expected failure")
	}
	if _, err := NewCommand("  ", 0); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestBusPublishesOutput(t *testing.T) {
	pub := &fakePublisher{}
	if err := NewBus(pub).Deliver(context.Background(), protocol.Dictation{SessionID: "s"}); err != nil {
		t.Fatal(err)
	}
	if pub.subject != protocol.SubjectOutput {
		t.Fatalf("unexpected subject %q", pub.subject)
	}
	if d, ok := pub.value.(protocol.Dictation); !ok || d.SessionID != "s" {
		t.Fatalf("unexpected payload %#v", pub.value)
	}
}

func TestMultiJoinsErrors(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")
	err := Multi{NewLog(newLogger()), failing{first}, failing{second}}.Deliver(context.Background(), protocol.Dictation{})
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("expected both errors, got %v", err)
	}
}

func TestNew(t *testing.T) {
	d, err := New(config.DeliveryConfig{Mode: "log"}, nil, newLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := d.(*Log); !ok {
		t.Fatalf("expected *Log, got %T", d)
	}

	d, err = New(config.DeliveryConfig{Mode: "log, bus"}, &fakePublisher{}, newLogger())
	if err != nil {
		t.Fatal(err)
	}
	if m, ok := d.(Multi); !ok || len(m) != 2 {
		t.Fatalf("expected two targets, got %#v", d)
	}

	if _, err := New(config.DeliveryConfig{Mode: "bus"}, nil, newLogger()); err == nil {
		t.Fatal("expected error without publisher")
	}
	if _, err := New(config.DeliveryConfig{Mode: "fax"}, nil, newLogger()); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
