package control

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/loqalabs/loqa-dictate/internal/config"
	"github.com/loqalabs/loqa-dictate/internal/natsserver"
	"github.com/loqalabs/loqa-dictate/internal/pipeline"
	"github.com/loqalabs/loqa-dictate/internal/protocol"
	"github.com/loqalabs/loqa-dictate/internal/session"
	"github.com/nats-io/nats.go"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// machineController drives a bare session machine.
type machineController struct {
	mu      sync.Mutex
	machine *session.Machine
	actions []string
	err     error
}

func newController() *machineController {
	return &machineController{machine: session.New(session.ModeToggle)}
}

func (c *machineController) Dispatch(action string) (session.Effect, session.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions = append(c.actions, action)
	if c.err != nil {
		return session.EffectNone, c.machine.State(), c.err
	}
	switch action {
	case ActionStart:
		e, s := c.machine.Start()
		return e, s, nil
	case ActionStop:
		e, s := c.machine.Stop()
		return e, s, nil
	case ActionToggle:
		e, s := c.machine.Toggle()
		return e, s, nil
	case ActionCancel:
		e, s := c.machine.Cancel()
		return e, s, nil
	}
	return session.EffectNone, c.machine.State(), errors.New("unsupported")
}

func (c *machineController) State() session.Session { return c.machine.State() }

func (c *machineController) seen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.actions...)
}

func TestRoutes(t *testing.T) {
	c := newController()
	mux := http.NewServeMux()
	Routes(mux, c, newLogger())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	post := func(path string) (*http.Response, protocol.ControlReply) {
		t.Helper()
		resp, err := http.Post(srv.URL+path, "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var r protocol.ControlReply
		_ = json.NewDecoder(resp.Body).Decode(&r)
		return resp, r
	}

	resp, r := post("/v1/recording/start")
	if resp.StatusCode != http.StatusOK || r.Effect != "begin_recording" || r.State != "recording" || r.SessionID == "" {
		t.Fatalf("unexpected start reply %d %+v", resp.StatusCode, r)
	}
	resp, r = post("/v1/recording/toggle")
	if resp.StatusCode != http.StatusOK || r.Effect != "begin_processing" || r.State != "processing" {
		t.Fatalf("unexpected toggle reply %d %+v", resp.StatusCode, r)
	}
	resp, _ = post("/v1/recording/rewind")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown action, got %d", resp.StatusCode)
	}

	get, err := http.Get(srv.URL + "/v1/recording")
	if err != nil {
		t.Fatal(err)
	}
	defer get.Body.Close()
	var state protocol.ControlReply
	if err := json.NewDecoder(get.Body).Decode(&state); err != nil {
		t.Fatal(err)
	}
	if state.State != "processing" {
		t.Fatalf("unexpected state %+v", state)
	}

	c.mu.Lock()
	c.err = pipeline.ErrNotRunning
	c.mu.Unlock()
	resp, r = post("/v1/recording/stop")
	if resp.StatusCode != http.StatusServiceUnavailable || r.Error == "" {
		t.Fatalf("expected 503 with error, got %d %+v", resp.StatusCode, r)
	}
}

func TestSubscribe(t *testing.T) {
	srv, err := natsserver.Start(config.BusConfig{Embedded: true, Port: -1, StoreDir: t.TempDir()}, newLogger())
	if err != nil {
		t.Fatalf("start embedded nats: %v", err)
	}
	t.Cleanup(srv.Shutdown)
	conn, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(conn.Close)

	c := newController()
	sub, err := Subscribe(conn, c, newLogger())
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	data, _ := json.Marshal(protocol.ControlCommand{Action: "toggle", RequestID: "r1"})
	msg, err := conn.Request(protocol.SubjectControl, data, 2*time.Second)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var r protocol.ControlReply
	if err := json.Unmarshal(msg.Data, &r); err != nil {
		t.Fatal(err)
	}
	if r.RequestID != "r1" || r.Effect != "begin_recording" || r.State != "recording" {
		t.Fatalf("unexpected reply %+v", r)
	}

	msg, err = conn.Request(protocol.SubjectControl, []byte("{"), 2*time.Second)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := json.Unmarshal(msg.Data, &r); err != nil || r.Error == "" {
		t.Fatalf("expected decode error in reply, got %+v", r)
	}
}

func TestAcquireLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "daemon.lock")
	release, err := AcquireLock(path, 0)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := AcquireLock(path, 150*time.Millisecond); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	release()
	release, err = AcquireLock(path, 0)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	release()
}

func TestHandleSignalsStopsCleanly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stop := HandleSignals(ctx, newController(), newLogger())
	cancel()
	stop()
}
