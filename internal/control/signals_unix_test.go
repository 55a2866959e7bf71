//go:build unix

package control

import (
	"context"
	"slices"
	"syscall"
	"testing"
	"time"
)

func TestHandleSignals(t *testing.T) {
	c := newController()
	stop := HandleSignals(context.Background(), c, newLogger())
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return slices.Contains(c.seen(), ActionToggle) })
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR2); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return slices.Contains(c.seen(), ActionStop) })

	if st := c.State().State; st != "processing" {
		t.Fatalf("expected processing after toggle then stop, got %s", st)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
