package fifo

import (
	"context"
	"testing"

	"github.com/preforkhq/apiserver/internal/ipc/shm"
)

func newTestChannel(t *testing.T, capacity int) *Channel[ConnJob] {
	t.Helper()
	shm.Dir = t.TempDir()
	region, err := shm.Create("test_fifo", Size(capacity, 16))
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	t.Cleanup(func() { region.Close() })
	return New[ConnJob](region, capacity, true)
}

func TestFIFOOrdering(t *testing.T) {
	ch := newTestChannel(t, 8)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := ch.Enqueue(ctx, ConnJob{Slot: int32(i), Seq: uint64(i)}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}

	for i := 0; i < 5; i++ {
		job, err := ch.Dequeue(ctx)
		if err != nil {
			t.Fatalf("dequeue %d: %v", i, err)
		}
		if job.Slot != int32(i) {
			t.Fatalf("expected slot %d, got %d", i, job.Slot)
		}
	}
}

func TestFIFOCapacityBackpressure(t *testing.T) {
	ch := newTestChannel(t, 2)

	if err := ch.TryEnqueue(ConnJob{Slot: 1}); err != nil {
		t.Fatalf("enqueue 1: %v", err)
	}
	if err := ch.TryEnqueue(ConnJob{Slot: 2}); err != nil {
		t.Fatalf("enqueue 2: %v", err)
	}
	if err := ch.TryEnqueue(ConnJob{Slot: 3}); err == nil {
		t.Fatal("expected ErrQueueFull at capacity")
	}
}

func TestFIFOTryDequeueEmpty(t *testing.T) {
	ch := newTestChannel(t, 2)
	if _, err := ch.TryDequeue(); err == nil {
		t.Fatal("expected ErrQueueEmpty on empty channel")
	}
}
