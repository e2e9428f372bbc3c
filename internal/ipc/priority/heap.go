// Package priority implements the bounded priority channel (C4): an
// array-backed binary max-heap in shared memory, ordered by priority
// class and, within a class, by insertion sequence so that same-class
// entries stay FIFO. It mirrors the mutex-plus-counting-semaphore
// PriorityQueue used for job dispatch in the reference implementation.
package priority

import (
	"context"
	"unsafe"

	"github.com/preforkhq/apiserver/internal/errs"
	"github.com/preforkhq/apiserver/internal/ipc/shm"
)

// Class is a priority level. Higher values sort first. The ordering
// URGENT > HIGH > NORMAL > LOW is normative: it must hold regardless
// of enqueue order.
type Class int32

const (
	Low Class = iota
	Normal
	High
	Urgent
)

// Entry is one heap element: a fixed-size, pointer-free payload tagged
// with a priority class and a monotonic sequence number that breaks
// ties in favor of earlier insertion.
type Entry[T any] struct {
	Priority Class
	Seq      uint64
	Value    T
}

func less[T any](a, b Entry[T]) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Seq < b.Seq
}

const (
	countOffset = 0
	seqOffset   = 8
	itemsOffset = 16
	mutexOffset = 20
	// slotsOffset is where the heap array begins.
	slotsOffset = 24
)

// Heap is a bounded priority queue of Entry[T] stored in shared
// memory.
type Heap[T any] struct {
	region   *shm.Region
	capacity int
	itemSize uintptr

	count *uint32
	seq   *uint64

	items *shm.Semaphore
	mutex *shm.Semaphore
}

// HeaderSize returns the byte offset where item storage begins.
func HeaderSize() int { return slotsOffset }

// Size returns the total region size needed for capacity entries of T.
func Size(capacity int, itemSize uintptr) int {
	return slotsOffset + capacity*int(itemSize)
}

// New builds a Heap over region, sized via Size(capacity, sizeof(Entry[T])).
func New[T any](region *shm.Region, capacity int, create bool) *Heap[T] {
	var zero Entry[T]
	h := &Heap[T]{
		region:   region,
		capacity: capacity,
		itemSize: unsafe.Sizeof(zero),
		count:    (*uint32)(unsafe.Pointer(&region.Bytes()[countOffset])),
		seq:      (*uint64)(unsafe.Pointer(&region.Bytes()[seqOffset])),
	}
	h.items = shm.NewSemaphore(region, itemsOffset, 0, create)
	h.mutex = shm.NewSemaphore(region, mutexOffset, 1, create)
	if create {
		*h.count = 0
		*h.seq = 0
	}
	return h
}

func (h *Heap[T]) at(i uint32) *Entry[T] {
	off := slotsOffset + uintptr(i)*h.itemSize
	return (*Entry[T])(unsafe.Pointer(&h.region.Bytes()[off]))
}

func (h *Heap[T]) swap(i, j uint32) {
	*h.at(i), *h.at(j) = *h.at(j), *h.at(i)
}

func (h *Heap[T]) siftUp(i uint32) {
	for i > 0 {
		parent := (i - 1) / 2
		if !less(*h.at(i), *h.at(parent)) {
			return
		}
		h.swap(i, parent)
		i = parent
	}
}

func (h *Heap[T]) siftDown(i uint32) {
	n := *h.count
	for {
		l, r := 2*i+1, 2*i+2
		best := i
		if l < n && less(*h.at(l), *h.at(best)) {
			best = l
		}
		if r < n && less(*h.at(r), *h.at(best)) {
			best = r
		}
		if best == i {
			return
		}
		h.swap(i, best)
		i = best
	}
}

// Push waits for the heap's mutex (or for ctx to be canceled) and
// inserts value; it does not wait for room, returning errs.ErrQueueFull
// at once if the heap is at capacity. Ties within the same class
// resolve in insertion order.
func (h *Heap[T]) Push(ctx context.Context, class Class, value T) error {
	if err := h.mutex.WaitContext(ctx); err != nil {
		return err
	}
	defer h.mutex.Post()

	if *h.count >= uint32(h.capacity) {
		return errs.ErrQueueFull
	}
	*h.seq++
	e := Entry[T]{Priority: class, Seq: *h.seq, Value: value}
	i := *h.count
	*h.at(i) = e
	*h.count++
	h.siftUp(i)
	h.items.Post()
	return nil
}

// Pop blocks until an entry is available or ctx is canceled, returning
// the highest-priority, earliest-inserted entry.
func (h *Heap[T]) Pop(ctx context.Context) (Entry[T], error) {
	var zero Entry[T]
	if err := h.items.WaitContext(ctx); err != nil {
		return zero, err
	}
	if err := h.mutex.WaitContext(ctx); err != nil {
		h.items.Post()
		return zero, err
	}
	defer h.mutex.Post()

	top := *h.at(0)
	last := *h.count - 1
	*h.at(0) = *h.at(last)
	*h.count = last
	if last > 0 {
		h.siftDown(0)
	}
	return top, nil
}

// Len returns the current number of queued entries.
func (h *Heap[T]) Len() int { return int(*h.count) }

// Capacity returns the heap's fixed capacity.
func (h *Heap[T]) Capacity() int { return h.capacity }
