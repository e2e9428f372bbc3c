// Package worker implements the worker process (C7): it consumes
// accepted connection bookkeeping from C3, receives the matching live
// descriptor over its control socket, and schedules a task onto the
// local thread pool (C5) that parses the request, dispatches it
// through the router (C6), writes the response, and closes the
// descriptor.
package worker

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/preforkhq/apiserver/internal/bufpool"
	"github.com/preforkhq/apiserver/internal/httpx"
	"github.com/preforkhq/apiserver/internal/ipc/fdpass"
	"github.com/preforkhq/apiserver/internal/ipc/fifo"
	"github.com/preforkhq/apiserver/internal/ipc/priority"
	"github.com/preforkhq/apiserver/internal/ipc/shm"
	"github.com/preforkhq/apiserver/internal/master"
	"github.com/preforkhq/apiserver/internal/pool"
	"github.com/preforkhq/apiserver/internal/procutil"
	"github.com/preforkhq/apiserver/internal/router"
	"github.com/preforkhq/apiserver/internal/stats"
	"golang.org/x/sys/unix"
)

// controlFD is the worker's inherited end of its control socketpair,
// always fd 3 given the [stdin, stdout, stderr, ctrl] layout the
// master starts every worker with.
const controlFD = 3

// Worker runs one pre-forked worker process to completion.
type Worker struct {
	env    master.WorkerEnv
	rt     *router.Router
	pool   *pool.Pool
	slot   *stats.WorkerSlot
	global *stats.GlobalStats

	statsRegion   *shm.Region
	fifoRegion    *shm.Region
	controlRegion *shm.Region

	connFifo *fifo.Channel[fifo.ConnJob]
	control  *priority.Heap[master.ControlMsg]

	errStreak int32
}

// New attaches to the shared resources named in env and prepares the
// worker to serve rt.
func New(env master.WorkerEnv, rt *router.Router) (*Worker, error) {
	statsRegion, err := shm.Open(env.StatsSHM, stats.Size(env.Workers))
	if err != nil {
		return nil, err
	}
	block := stats.New(statsRegion, env.Workers, false)

	fifoRegion, err := shm.Open(env.FIFOSHM, fifo.Size(env.FIFOCapacity, fifoItemSize()))
	if err != nil {
		return nil, err
	}
	connFifo := fifo.New[fifo.ConnJob](fifoRegion, env.FIFOCapacity, false)

	controlRegion, err := shm.Open(env.ControlSHM, priority.Size(env.PriorityCap, controlItemSize()))
	if err != nil {
		return nil, err
	}
	control := priority.New[master.ControlMsg](controlRegion, env.PriorityCap, false)

	procutil.Apply(procutil.DefaultWorkerGC())

	return &Worker{
		env:           env,
		rt:            rt,
		pool:          pool.New(env.ThreadPoolSize),
		slot:          block.Slot(env.Slot),
		global:        block.Global(),
		statsRegion:   statsRegion,
		fifoRegion:    fifoRegion,
		controlRegion: controlRegion,
		connFifo:      connFifo,
		control:       control,
	}, nil
}

func fifoItemSize() uintptr    { return sizeOfConnJob }
func controlItemSize() uintptr { return sizeOfControlEntry }

// Run consumes C3 until ctx is canceled or SIGTERM arrives, then drains
// the pool and marks the slot DEAD before returning.
func (w *Worker) Run(ctx context.Context) error {
	defer w.close()

	signal.Ignore(syscall.SIGPIPE)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-sigCh:
			log.Printf("worker[%d]: received shutdown signal", w.env.Slot)
			cancel()
		case <-ctx.Done():
		}
	}()

	stats.SetState(w.slot, stats.StateIdle)
	log.Printf("worker[%d]: ready (pid %d)", w.env.Slot, os.Getpid())

	for {
		job, err := w.connFifo.Dequeue(runCtx)
		if err != nil {
			break
		}
		fd, err := fdpass.Recv(controlFD)
		if err != nil {
			log.Printf("worker[%d]: fd recv for seq %d failed: %v", w.env.Slot, job.Seq, err)
			continue
		}
		w.pool.Enqueue(func() { w.handleConn(fd) })
	}

	w.pool.Stop()
	stats.SetState(w.slot, stats.StateDead)
	return nil
}

func (w *Worker) handleConn(fd int) {
	stats.SetState(w.slot, stats.StateBusy)
	defer func() {
		stats.SetState(w.slot, stats.StateIdle)
		unix.Shutdown(fd, unix.SHUT_RDWR)
		unix.Close(fd)
		stats.DecActiveConnections(w.global)
	}()

	buf := bufpool.Get(bufpool.ReadSize)
	defer bufpool.Put(buf)

	n, err := readWithDeadline(fd, buf)
	if err != nil {
		w.recordError(err)
		return
	}
	stats.IncBytesRead(w.slot, uint64(n))

	req, err := httpx.ParseRequest(buf[:n])
	if err != nil {
		resp := httpx.Encode(httpx.WriteError(400, "bad request"))
		unix.Write(fd, resp)
		w.recordError(err)
		return
	}
	defer httpx.ReleaseRequest(req)

	ctx := w.rt.Dispatch(req)

	if ctx.FilePath() != "" {
		if err := httpx.SendFile(fd, ctx); err != nil {
			w.recordError(err)
			return
		}
	} else {
		resp := httpx.Encode(ctx)
		if _, err := unix.Write(fd, resp); err != nil {
			w.recordError(err)
			return
		}
		stats.IncBytesWritten(w.slot, uint64(len(resp)))
	}

	if hErr := ctx.HandlerError(); hErr != nil {
		w.recordError(hErr)
		return
	}

	stats.IncRequests(w.slot)
	stats.IncCompleted(w.global)
	atomic.StoreInt32(&w.errStreak, 0)
}

func readWithDeadline(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		if err == nil {
			return n, nil
		}
		if err == unix.EINTR {
			continue
		}
		return 0, err
	}
}

func (w *Worker) recordError(err error) {
	stats.RecordError(w.slot, err.Error())
	stats.IncFailed(w.slot)
	streak := atomic.AddInt32(&w.errStreak, 1)
	if streak >= errStreakAlertThreshold {
		atomic.StoreInt32(&w.errStreak, 0)
		w.control.Push(context.Background(), priority.High, master.ControlMsg{
			Slot: int32(w.env.Slot),
			Code: int32(master.ControlHandlerError),
		})
	}
}

const errStreakAlertThreshold = 5

func (w *Worker) close() {
	w.statsRegion.Close()
	w.fifoRegion.Close()
	w.controlRegion.Close()
}
