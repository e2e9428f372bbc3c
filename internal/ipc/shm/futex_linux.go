//go:build linux

package shm

import (
	"context"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// futexWait blocks while *addr == expect. It is grounded on the
// futex wrapper shape used for cross-thread IPC in shared-memory
// transports, but drops the PRIVATE flag variants: this semaphore is
// shared across independently exec'd processes, not goroutines within
// one address space, so the kernel must hash the futex by physical
// page rather than by virtual address.
func futexWait(addr *uint32, expect uint32) error {
	for {
		_, _, errno := syscall.Syscall6(syscall.SYS_FUTEX,
			uintptr(unsafe.Pointer(addr)),
			uintptr(linuxFutexWait),
			uintptr(expect),
			0, 0, 0)
		if errno == 0 || errno == syscall.EAGAIN {
			return nil
		}
		if errno == syscall.EINTR {
			continue
		}
		return errno
	}
}

func futexWake(addr *uint32, n int32) error {
	_, _, errno := syscall.Syscall6(syscall.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(linuxFutexWake),
		uintptr(n),
		0, 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

const (
	linuxFutexWait = 0 // FUTEX_WAIT, no FUTEX_PRIVATE_FLAG
	linuxFutexWake = 1 // FUTEX_WAKE, no FUTEX_PRIVATE_FLAG
)

// futexWaitTimeout blocks while *addr == expect, for at most timeout.
// Returns syscall.ETIMEDOUT when the deadline passes.
func futexWaitTimeout(addr *uint32, expect uint32, timeout time.Duration) error {
	ts := unix.NsecToTimespec(timeout.Nanoseconds())
	_, _, errno := syscall.Syscall6(syscall.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(linuxFutexWait),
		uintptr(expect),
		uintptr(unsafe.Pointer(&ts)),
		0, 0)
	if errno == 0 || errno == syscall.EAGAIN {
		return nil
	}
	return errno
}

// Semaphore is a counting semaphore living inside a shared-memory
// region so that unrelated processes can Wait/Post on the same count.
// It substitutes for POSIX sem_open/sem_wait/sem_post, which have no
// binding in golang.org/x/sys/unix.
type Semaphore struct {
	count *uint32
}

// NewSemaphore wraps a *uint32 already inside a shared Region at the
// given byte offset, initializing it to initial if create is true.
func NewSemaphore(r *Region, offset int, initial uint32, create bool) *Semaphore {
	p := (*uint32)(unsafe.Pointer(&r.data[offset]))
	if create {
		atomic.StoreUint32(p, initial)
	}
	return &Semaphore{count: p}
}

// Wait decrements the count, blocking via futex while it is zero.
func (s *Semaphore) Wait() error {
	for {
		v := atomic.LoadUint32(s.count)
		if v > 0 {
			if atomic.CompareAndSwapUint32(s.count, v, v-1) {
				return nil
			}
			continue
		}
		if err := futexWait(s.count, 0); err != nil {
			return err
		}
	}
}

// WaitContext decrements the count, blocking in short slices so ctx
// cancellation is observed promptly instead of parking indefinitely
// in the kernel.
func (s *Semaphore) WaitContext(ctx context.Context) error {
	const slice = 50 * time.Millisecond
	for {
		v := atomic.LoadUint32(s.count)
		if v > 0 {
			if atomic.CompareAndSwapUint32(s.count, v, v-1) {
				return nil
			}
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		err := futexWaitTimeout(s.count, 0, slice)
		if err != nil && err != syscall.ETIMEDOUT {
			return err
		}
	}
}

// TryWait decrements the count without blocking, reporting whether it
// succeeded.
func (s *Semaphore) TryWait() bool {
	for {
		v := atomic.LoadUint32(s.count)
		if v == 0 {
			return false
		}
		if atomic.CompareAndSwapUint32(s.count, v, v-1) {
			return true
		}
	}
}

// Post increments the count and wakes one waiter.
func (s *Semaphore) Post() error {
	atomic.AddUint32(s.count, 1)
	return futexWake(s.count, 1)
}

// Value returns the current count without modifying it.
func (s *Semaphore) Value() uint32 {
	return atomic.LoadUint32(s.count)
}
