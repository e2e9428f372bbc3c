// Package stats implements the shared-memory statistics block (C9):
// one WorkerSlot per supervised worker plus a GlobalStats header, laid
// out so the master and every worker can read and update counters
// without a round trip through IPC channels.
package stats

import (
	"sync/atomic"
	"unsafe"

	"github.com/preforkhq/apiserver/internal/ipc/shm"
)

// State is a worker's lifecycle state as observed by the master's
// supervision sweep.
type State int32

const (
	StateDead State = iota
	StateIdle
	StateBusy
)

func (s State) String() string {
	switch s {
	case StateDead:
		return "dead"
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	default:
		return "unknown"
	}
}

const lastErrorSize = 256

// WorkerSlot is one worker's row in the shared stats block. State and
// the counters are updated with atomic operations since master and
// worker attach the same memory from different processes; PID is a
// plain write by the master when it spawns the worker. LastError is written by
// byte-copy under no lock: readers may observe a torn string during a
// concurrent write, which is acceptable for a best-effort diagnostic
// field.
type WorkerSlot struct {
	PID             int64
	State           int32 // State, accessed via atomic on the *int32 view
	RequestsHandled uint64
	RequestsFailed  uint64
	BytesRead       uint64
	BytesWritten    uint64
	Restarts        uint64
	LastErrorLen    int32
	LastError       [lastErrorSize]byte
}

// slotSize is the fixed stride between rows in the shared block.
const slotSize = int(unsafe.Sizeof(WorkerSlot{}))

// GlobalStats is the fixed-size header preceding the WorkerSlot array.
type GlobalStats struct {
	StartedAtUnix     int64
	TotalAccepted     uint64
	TotalCompleted    uint64
	TotalRejected     uint64
	TotalQueueDropped uint64
	ActiveConnections int64
	WorkerCount       int32
}

const globalSize = int(unsafe.Sizeof(GlobalStats{}))

// Block is the attached shared stats region: one GlobalStats header
// followed by workerCount WorkerSlot rows.
type Block struct {
	region  *shm.Region
	global  *GlobalStats
	workers int
}

// Size returns the region size required for workerCount slots.
func Size(workerCount int) int {
	return globalSize + workerCount*slotSize
}

// New attaches Block to region, which must be at least
// Size(workerCount) bytes. create zeroes the header and every slot.
func New(region *shm.Region, workerCount int, create bool) *Block {
	b := &Block{
		region:  region,
		global:  (*GlobalStats)(unsafe.Pointer(&region.Bytes()[0])),
		workers: workerCount,
	}
	if create {
		*b.global = GlobalStats{WorkerCount: int32(workerCount)}
		for i := 0; i < workerCount; i++ {
			*b.slotPtr(i) = WorkerSlot{}
		}
	}
	return b
}

func (b *Block) slotPtr(i int) *WorkerSlot {
	off := globalSize + i*slotSize
	return (*WorkerSlot)(unsafe.Pointer(&b.region.Bytes()[off]))
}

// Global returns the shared GlobalStats header.
func (b *Block) Global() *GlobalStats { return b.global }

// Slot returns worker i's shared row. i must be in [0, workerCount).
func (b *Block) Slot(i int) *WorkerSlot { return b.slotPtr(i) }

// WorkerCount returns the number of provisioned slots.
func (b *Block) WorkerCount() int { return b.workers }

// SetState atomically updates a slot's lifecycle state.
func SetState(slot *WorkerSlot, s State) {
	atomic.StoreInt32(&slot.State, int32(s))
}

// GetState atomically reads a slot's lifecycle state.
func GetState(slot *WorkerSlot) State {
	return State(atomic.LoadInt32(&slot.State))
}

// RecordError copies msg (truncated to lastErrorSize) into the slot's
// last-error buffer. It does not by itself count as a failed request:
// callers that report a per-request failure also call IncFailed.
func RecordError(slot *WorkerSlot, msg string) {
	n := copy(slot.LastError[:], msg)
	atomic.StoreInt32(&slot.LastErrorLen, int32(n))
}

// Error returns the slot's last recorded error message, if any.
func Error(slot *WorkerSlot) string {
	n := atomic.LoadInt32(&slot.LastErrorLen)
	if n <= 0 {
		return ""
	}
	return string(slot.LastError[:n])
}

// IncRequests, IncFailed, IncBytesRead and IncBytesWritten update
// per-worker throughput counters from the worker process.
func IncRequests(slot *WorkerSlot)               { atomic.AddUint64(&slot.RequestsHandled, 1) }
func IncFailed(slot *WorkerSlot)                 { atomic.AddUint64(&slot.RequestsFailed, 1) }
func IncBytesRead(slot *WorkerSlot, n uint64)    { atomic.AddUint64(&slot.BytesRead, n) }
func IncBytesWritten(slot *WorkerSlot, n uint64) { atomic.AddUint64(&slot.BytesWritten, n) }
func IncRestarts(slot *WorkerSlot)               { atomic.AddUint64(&slot.Restarts, 1) }

// IncAccepted, IncCompleted, IncRejected and IncQueueDropped update the
// master-owned global counters.
func IncAccepted(g *GlobalStats)     { atomic.AddUint64(&g.TotalAccepted, 1) }
func IncCompleted(g *GlobalStats)    { atomic.AddUint64(&g.TotalCompleted, 1) }
func IncRejected(g *GlobalStats)     { atomic.AddUint64(&g.TotalRejected, 1) }
func IncQueueDropped(g *GlobalStats) { atomic.AddUint64(&g.TotalQueueDropped, 1) }

// IncActiveConnections and DecActiveConnections track connections that
// have been handed off to a worker but not yet completed. The master
// increments on a successful C3 enqueue; the worker decrements once
// the response is written and the descriptor is closed.
func IncActiveConnections(g *GlobalStats) { atomic.AddInt64(&g.ActiveConnections, 1) }
func DecActiveConnections(g *GlobalStats) { atomic.AddInt64(&g.ActiveConnections, -1) }
