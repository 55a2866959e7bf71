// Package control exposes recording commands over POSIX signals, HTTP and
// the bus, and guards the daemon with a single-instance lock.
package control

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/loqalabs/loqa-dictate/internal/protocol"
	"github.com/loqalabs/loqa-dictate/internal/session"
)

const (
	ActionStart   = "start"
	ActionStop    = "stop"
	ActionToggle  = "toggle"
	ActionPress   = "press"
	ActionRelease = "release"
	ActionCancel  = "cancel"
)

var ErrLocked = errors.New("control: another instance holds the lock")

// Controller runs recording actions. pipeline.Orchestrator implements it.
type Controller interface {
	Dispatch(action string) (session.Effect, session.Session, error)
	State() session.Session
}

func reply(requestID string, effect session.Effect, s session.Session, err error) protocol.ControlReply {
	r := protocol.ControlReply{
		RequestID: requestID,
		Effect:    effect.String(),
		SessionID: s.ID,
		State:     string(s.State),
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// AcquireLock takes an exclusive lock on path, creating its directory. An
// empty path uses the user cache directory. The returned func releases it.
func AcquireLock(path string, timeout time.Duration) (func(), error) {
	if path == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			dir = os.TempDir()
		}
		path = filepath.Join(dir, "loqa-dictate", "daemon.lock")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	l := flock.New(path)
	deadline := time.Now().Add(timeout)
	for {
		locked, err := l.TryLock()
		if err != nil {
			return nil, err
		}
		if locked {
			return func() { _ = l.Unlock() }, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
