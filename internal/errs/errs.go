// Package errs defines the sentinel error taxonomy shared across the
// master, worker, and IPC packages.
package errs

import "errors"

var (
	// ErrQueueFull is returned by a bounded channel's non-blocking
	// insert (fifo TryEnqueue, priority Push) when it is at capacity.
	ErrQueueFull = errors.New("apiserver: queue full")

	// ErrQueueEmpty is returned by a bounded channel Dequeue when there
	// is nothing to take and the caller asked for a non-blocking attempt.
	ErrQueueEmpty = errors.New("apiserver: queue empty")

	// ErrResourceUnavailable names a shared-memory resource (region,
	// semaphore) that could not be created or attached. The shm package
	// reports such failures as wrapped OS errors and does not return it.
	ErrResourceUnavailable = errors.New("apiserver: resource unavailable")

	// ErrWorkerUnavailable names the case of no usable worker slot. The
	// master does not return it: when no slot is IDLE it falls back to
	// a BUSY slot, and when none is registered it closes the connection.
	ErrWorkerUnavailable = errors.New("apiserver: no idle worker")

	// ErrWorkerDead names a worker whose process has exited and has not
	// yet been respawned. Slots record such exits as DEAD state plus a
	// last-error string; nothing returns this value.
	ErrWorkerDead = errors.New("apiserver: worker dead")

	// ErrShuttingDown names a refusal during graceful shutdown. No
	// accept or enqueue path returns it: shutdown closes the listener.
	ErrShuttingDown = errors.New("apiserver: shutting down")

	// ErrClosed names use of an IPC primitive after Close. The IPC
	// packages do not check for that case and do not return it.
	ErrClosed = errors.New("apiserver: closed")

	// ErrRouteNotFound is returned by the router when no registered
	// pattern matches a request's method and path.
	ErrRouteNotFound = errors.New("apiserver: route not found")

	// ErrMalformedRequest is returned by the request parser when the
	// input cannot be interpreted as a well-formed HTTP/1.1 request.
	ErrMalformedRequest = errors.New("apiserver: malformed request")
)
