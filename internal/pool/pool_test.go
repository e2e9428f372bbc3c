package pool

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsAllTasks(t *testing.T) {
	p := New(4)
	var count int64
	const n = 200

	for i := 0; i < n; i++ {
		p.Enqueue(func() { atomic.AddInt64(&count, 1) })
	}
	p.Stop()

	if got := atomic.LoadInt64(&count); got != n {
		t.Fatalf("expected %d tasks run, got %d", n, got)
	}
	if p.TasksRun() != n {
		t.Fatalf("TasksRun() = %d, want %d", p.TasksRun(), n)
	}
}

func TestPoolFIFOOrder(t *testing.T) {
	p := New(1) // single worker: FIFO order is observable
	var order []int
	done := make(chan struct{})

	for i := 0; i < 5; i++ {
		i := i
		p.Enqueue(func() {
			order = append(order, i)
			if i == 4 {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for tasks")
	}
	p.Stop()

	for i, v := range order {
		if v != i {
			t.Fatalf("expected FIFO order, got %v", order)
		}
	}
}

func TestPoolRejectsAfterStop(t *testing.T) {
	p := New(2)
	p.Stop()

	var ran bool
	p.Enqueue(func() { ran = true })
	time.Sleep(10 * time.Millisecond)

	if ran {
		t.Fatal("task should not run after Stop")
	}
}
