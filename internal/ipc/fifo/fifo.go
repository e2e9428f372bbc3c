// Package fifo implements the bounded first-in-first-out IPC channel
// (C3): a fixed-capacity ring buffer of small, pointer-free job
// descriptors living in shared memory, synchronized by two counting
// semaphores (free slots, filled slots) and a binary mutex, following
// the single-semaphore SharedQueue design used for connection
// distribution in the reference master/worker split.
package fifo

import (
	"context"
	"unsafe"

	"github.com/preforkhq/apiserver/internal/errs"
	"github.com/preforkhq/apiserver/internal/ipc/shm"
)

// ConnJob describes one accepted connection queued for a worker. The
// live file descriptor never travels through shared memory: only its
// bookkeeping (which worker slot claimed it, a monotonic sequence
// number for stats/tracing) does. The descriptor itself crosses the
// process boundary over a control socket via SCM_RIGHTS, sent by the
// master right after it enqueues the matching job.
type ConnJob struct {
	Slot int32
	Seq  uint64
}

const (
	headOffset     = 0
	tailOffset     = 4
	notEmptyOffset = 8
	notFullOffset  = 12
	mutexOffset    = 16
	// slotsOffset is where the ring buffer's item storage begins.
	slotsOffset = 24
)

// Channel is a bounded FIFO of type T stored in a shared-memory
// region. T must be a fixed-size, pointer-free struct (ConnJob
// satisfies this) so that a raw memory cast is safe across processes.
type Channel[T any] struct {
	region   *shm.Region
	capacity int
	itemSize uintptr

	head *uint32 // next slot to dequeue
	tail *uint32 // next slot to enqueue

	notEmpty *shm.Semaphore
	notFull  *shm.Semaphore
	mutex    *shm.Semaphore
}

// HeaderSize returns the number of bytes a Channel occupies before its
// item storage, callers use it to size the backing region.
func HeaderSize() int { return slotsOffset }

// Size returns the total region size required to hold capacity items
// of the given size, header included.
func Size(capacity int, itemSize uintptr) int {
	return slotsOffset + capacity*int(itemSize)
}

// New builds a Channel over region, which must be at least
// Size(capacity, sizeof(T)) bytes. create initializes the header and
// semaphores; false attaches to a channel another process already
// created.
func New[T any](region *shm.Region, capacity int, create bool) *Channel[T] {
	var zero T
	itemSize := unsafe.Sizeof(zero)

	c := &Channel[T]{
		region:   region,
		capacity: capacity,
		itemSize: itemSize,
		head:     (*uint32)(unsafe.Pointer(&region.Bytes()[headOffset])),
		tail:     (*uint32)(unsafe.Pointer(&region.Bytes()[tailOffset])),
	}

	c.notEmpty = shm.NewSemaphore(region, notEmptyOffset, 0, create)
	c.notFull = shm.NewSemaphore(region, notFullOffset, uint32(capacity), create)
	c.mutex = shm.NewSemaphore(region, mutexOffset, 1, create)

	if create {
		*c.head = 0
		*c.tail = 0
	}
	return c
}

func (c *Channel[T]) slot(index uint32) *T {
	off := slotsOffset + uintptr(index)*c.itemSize
	return (*T)(unsafe.Pointer(&c.region.Bytes()[off]))
}

// Enqueue blocks until there is capacity or ctx is canceled.
func (c *Channel[T]) Enqueue(ctx context.Context, item T) error {
	if err := c.notFull.WaitContext(ctx); err != nil {
		return err
	}
	if err := c.mutex.WaitContext(ctx); err != nil {
		c.notFull.Post()
		return err
	}
	*c.slot(*c.tail) = item
	*c.tail = (*c.tail + 1) % uint32(c.capacity)
	c.mutex.Post()
	c.notEmpty.Post()
	return nil
}

// TryEnqueue enqueues without blocking, returning errs.ErrQueueFull if
// the channel is at capacity.
func (c *Channel[T]) TryEnqueue(item T) error {
	if !c.notFull.TryWait() {
		return errs.ErrQueueFull
	}
	c.mutex.Wait()
	*c.slot(*c.tail) = item
	*c.tail = (*c.tail + 1) % uint32(c.capacity)
	c.mutex.Post()
	c.notEmpty.Post()
	return nil
}

// Dequeue blocks until an item is available or ctx is canceled.
func (c *Channel[T]) Dequeue(ctx context.Context) (T, error) {
	var zero T
	if err := c.notEmpty.WaitContext(ctx); err != nil {
		return zero, err
	}
	if err := c.mutex.WaitContext(ctx); err != nil {
		c.notEmpty.Post()
		return zero, err
	}
	item := *c.slot(*c.head)
	*c.head = (*c.head + 1) % uint32(c.capacity)
	c.mutex.Post()
	c.notFull.Post()
	return item, nil
}

// TryDequeue dequeues without blocking, returning errs.ErrQueueEmpty
// if nothing is queued.
func (c *Channel[T]) TryDequeue() (T, error) {
	var zero T
	if !c.notEmpty.TryWait() {
		return zero, errs.ErrQueueEmpty
	}
	c.mutex.Wait()
	item := *c.slot(*c.head)
	*c.head = (*c.head + 1) % uint32(c.capacity)
	c.mutex.Post()
	c.notFull.Post()
	return item, nil
}

// Len reports the approximate number of queued items. It is racy by
// nature (a snapshot of the free-slot semaphore's count) and intended for stats
// reporting, not correctness decisions.
func (c *Channel[T]) Len() int {
	return c.capacity - int(c.notFull.Value())
}

// Capacity returns the channel's fixed capacity.
func (c *Channel[T]) Capacity() int { return c.capacity }
