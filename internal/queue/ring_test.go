package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPushPopFIFO(t *testing.T) {
	r := New[int](4)
	for i := 1; i <= 3; i++ {
		if _, evicted, err := r.Push(i); err != nil || evicted {
			t.Fatalf("push %d: evicted=%v err=%v", i, evicted, err)
		}
	}
	for want := 1; want <= 3; want++ {
		got, err := r.Pop(context.Background())
		if err != nil {
			t.Fatalf("pop: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
}

func TestPushEvictsOldest(t *testing.T) {
	r := New[string](2)
	r.Push("a")
	r.Push("b")
	old, evicted, err := r.Push("c")
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if !evicted || old != "a" {
		t.Fatalf("expected eviction of a, got %q evicted=%v", old, evicted)
	}
	if r.Dropped() != 1 {
		t.Fatalf("expected 1 dropped, got %d", r.Dropped())
	}
	got := r.Drain()
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Fatalf("unexpected contents %v", got)
	}
}

func TestPopBlocksUntilPush(t *testing.T) {
	r := New[int](1)
	result := make(chan int, 1)
	go func() {
		v, err := r.Pop(context.Background())
		if err == nil {
			result <- v
		}
	}()
	time.Sleep(10 * time.Millisecond)
	r.Push(42)
	select {
	case v := <-result:
		if v != 42 {
			t.Fatalf("expected 42, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("pop did not wake up")
	}
}

func TestCloseDeliversRemainingThenErrClosed(t *testing.T) {
	r := New[int](3)
	r.Push(1)
	r.Close()
	if _, _, err := r.Push(2); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed on push, got %v", err)
	}
	v, err := r.Pop(context.Background())
	if err != nil || v != 1 {
		t.Fatalf("expected queued element, got %d %v", v, err)
	}
	if _, err := r.Pop(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestPopHonoursContext(t *testing.T) {
	r := New[int](1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := r.Pop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
