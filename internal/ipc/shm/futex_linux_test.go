//go:build linux

package shm

import (
	"context"
	"testing"
	"time"
)

func TestSemaphoreWaitPost(t *testing.T) {
	Dir = t.TempDir()
	r, err := Create("sem-test", 16)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer r.Close()

	sem := NewSemaphore(r, 0, 0, true)
	if sem.TryWait() {
		t.Fatal("expected TryWait to fail on a zero-count semaphore")
	}

	sem.Post()
	if !sem.TryWait() {
		t.Fatal("expected TryWait to succeed after Post")
	}
}

func TestSemaphoreWaitContextCancel(t *testing.T) {
	Dir = t.TempDir()
	r, err := Create("sem-ctx-test", 16)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer r.Close()

	sem := NewSemaphore(r, 0, 0, true)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := sem.WaitContext(ctx); err == nil {
		t.Fatal("expected WaitContext to return an error once ctx is canceled")
	}
}

func TestSemaphoreUnblocksWaiter(t *testing.T) {
	Dir = t.TempDir()
	r, err := Create("sem-wake-test", 16)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer r.Close()

	sem := NewSemaphore(r, 0, 0, true)
	done := make(chan error, 1)
	go func() {
		done <- sem.WaitContext(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	sem.Post()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("wait returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by Post")
	}
}
