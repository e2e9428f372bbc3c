package priority

import (
	"context"
	"testing"
	"unsafe"

	"github.com/preforkhq/apiserver/internal/ipc/shm"
)

func newTestHeap(t *testing.T, capacity int) *Heap[string8] {
	t.Helper()
	shm.Dir = t.TempDir()
	region, err := shm.Create("test_priority", Size(capacity, unsafe.Sizeof(Entry[string8]{})))
	if err != nil {
		t.Fatalf("create region: %v", err)
	}
	t.Cleanup(func() { region.Close() })
	return New[string8](region, capacity, true)
}

// string8 is a fixed-size, pointer-free stand-in for a payload string
// short enough to fit inline, since Entry[T] must be a raw memory type.
type string8 [8]byte

func str8(s string) string8 {
	var b string8
	copy(b[:], s)
	return b
}

func (b string8) String() string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

func TestPriorityOrdering(t *testing.T) {
	h := newTestHeap(t, 16)
	ctx := context.Background()

	h.Push(ctx, Low, str8("a"))
	h.Push(ctx, Normal, str8("b"))
	h.Push(ctx, Urgent, str8("c"))
	h.Push(ctx, High, str8("d"))

	want := []string{"c", "d", "b", "a"}
	for i, w := range want {
		e, err := h.Pop(ctx)
		if err != nil {
			t.Fatalf("pop %d: %v", i, err)
		}
		if got := e.Value.String(); got != w {
			t.Fatalf("pop %d: want %q, got %q", i, w, got)
		}
	}
}

func TestPriorityStableFIFOWithinClass(t *testing.T) {
	h := newTestHeap(t, 16)
	ctx := context.Background()

	h.Push(ctx, Normal, str8("a1"))
	h.Push(ctx, Normal, str8("a2"))
	h.Push(ctx, Normal, str8("a3"))

	want := []string{"a1", "a2", "a3"}
	for i, w := range want {
		e, err := h.Pop(ctx)
		if err != nil {
			t.Fatalf("pop %d: %v", i, err)
		}
		if got := e.Value.String(); got != w {
			t.Fatalf("pop %d: want %q, got %q", i, w, got)
		}
	}
}

func TestPriorityCapacity(t *testing.T) {
	h := newTestHeap(t, 2)
	ctx := context.Background()

	if err := h.Push(ctx, Normal, str8("a")); err != nil {
		t.Fatalf("push 1: %v", err)
	}
	if err := h.Push(ctx, Normal, str8("b")); err != nil {
		t.Fatalf("push 2: %v", err)
	}
	if err := h.Push(ctx, Normal, str8("c")); err == nil {
		t.Fatal("expected ErrQueueFull at capacity")
	}
}
