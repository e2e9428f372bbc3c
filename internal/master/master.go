// Package master implements the listening process (C8): it owns the
// socket, accepts connections, hands each one to a worker over C3 plus
// an SCM_RIGHTS control channel, and supervises worker lifecycles.
package master

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/preforkhq/apiserver/internal/config"
	"github.com/preforkhq/apiserver/internal/ipc/fdpass"
	"github.com/preforkhq/apiserver/internal/ipc/fifo"
	"github.com/preforkhq/apiserver/internal/ipc/priority"
	"github.com/preforkhq/apiserver/internal/ipc/shm"
	"github.com/preforkhq/apiserver/internal/netpoll"
	"github.com/preforkhq/apiserver/internal/stats"
	"golang.org/x/sys/unix"
)

const (
	statsSHMName = "apiserver_stats"
	fifoSHMName  = "apiserver_conn_fifo"
	sweepPeriod  = 10 * time.Second
)

// Master owns the listening socket and every supervised worker.
type Master struct {
	cfg *config.Config

	listenFd int
	poller   netpoll.Poller

	statsRegion *shm.Region
	statsBlock  *stats.Block

	fifoRegion *shm.Region
	connFifo   *fifo.Channel[fifo.ConnJob]

	controlRegion *shm.Region
	controlQueue  *priority.Heap[ControlMsg]

	mu           sync.Mutex
	workers      []*workerProc
	nextSeq      uint64
	shuttingDown bool

	statsSHMName   string
	fifoSHMName    string
	controlSHMName string
}

// New builds a Master, binding the listening socket and creating
// every shared-memory region up front so Stats() is valid as soon as
// New returns, before Run spawns a single worker.
func New(cfg *config.Config) (*Master, error) {
	m := &Master{
		cfg:          cfg,
		statsSHMName: fmt.Sprintf("%s_%d", statsSHMName, os.Getpid()),
		fifoSHMName:  fmt.Sprintf("%s_%d", fifoSHMName, os.Getpid()),
	}
	if err := m.listen(); err != nil {
		return nil, err
	}
	if err := m.createSharedState(); err != nil {
		return nil, err
	}
	if err := m.createControlQueue(); err != nil {
		return nil, err
	}
	return m, nil
}

// Run spawns the worker pool, serves the accept loop, and blocks
// until ctx is canceled or a shutdown signal is observed, then shuts
// down gracefully.
func (m *Master) Run(ctx context.Context) error {
	defer m.cleanup()
	go m.runControlConsumer(ctx)

	for i := 0; i < m.cfg.Workers; i++ {
		if err := m.startWorker(i); err != nil {
			return fmt.Errorf("master: initial spawn slot %d: %w", i, err)
		}
	}

	log.Printf("master: listening on %s with %d workers (pid %d)", m.cfg.Addr, m.cfg.Workers, os.Getpid())

	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)

	sweep := time.NewTicker(sweepPeriod)
	defer sweep.Stop()

	acceptCtx, cancelAccept := context.WithCancel(ctx)
	defer cancelAccept()
	acceptErrCh := make(chan error, 1)
	go func() { acceptErrCh <- m.acceptLoop(acceptCtx) }()

	for {
		select {
		case <-ctx.Done():
			return m.shutdown()
		case sig := <-sigCh:
			log.Printf("master: received %s, shutting down", sig)
			return m.shutdown()
		case <-sweep.C:
			m.supervisionSweep()
		case err := <-acceptErrCh:
			if err != nil {
				log.Printf("master: accept loop exited: %v", err)
			}
			return m.shutdown()
		}
	}
}

func (m *Master) createSharedState() error {
	statsRegion, err := shm.Create(m.statsSHMName, stats.Size(m.cfg.Workers))
	if err != nil {
		return err
	}
	m.statsRegion = statsRegion
	m.statsBlock = stats.New(statsRegion, m.cfg.Workers, true)
	m.statsBlock.Global().StartedAtUnix = time.Now().Unix()

	fifoRegion, err := shm.Create(m.fifoSHMName, fifo.Size(m.cfg.FIFOCapacity, uintptr(fifoItemSize)))
	if err != nil {
		return err
	}
	m.fifoRegion = fifoRegion
	m.connFifo = fifo.New[fifo.ConnJob](fifoRegion, m.cfg.FIFOCapacity, true)
	return nil
}

func (m *Master) startWorker(slot int) error {
	wp, err := m.spawnWorker(slot)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if len(m.workers) <= slot {
		grown := make([]*workerProc, slot+1)
		copy(grown, m.workers)
		m.workers = grown
	}
	m.workers[slot] = wp
	m.mu.Unlock()

	slotStats := m.statsBlock.Slot(slot)
	slotStats.PID = int64(wp.proc.Pid)
	stats.SetState(slotStats, stats.StateIdle)
	return nil
}

func (m *Master) listen() error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return fmt.Errorf("master: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("master: setsockopt: %w", err)
	}

	addr, err := parseAddr(m.cfg.Addr)
	if err != nil {
		return err
	}
	if err := unix.Bind(fd, addr); err != nil {
		return fmt.Errorf("master: bind %s: %w", m.cfg.Addr, err)
	}
	if err := unix.Listen(fd, 128); err != nil {
		return fmt.Errorf("master: listen: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("master: set nonblock: %w", err)
	}

	poller, err := netpoll.New()
	if err != nil {
		return fmt.Errorf("master: create poller: %w", err)
	}
	if err := poller.Add(fd); err != nil {
		return fmt.Errorf("master: register listener: %w", err)
	}

	m.listenFd = fd
	m.poller = poller
	return nil
}

// acceptLoop drains ready-to-accept connections on every readiness
// event and hands each to a worker via C3 plus its control socket.
func (m *Master) acceptLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		ready, err := m.poller.Wait(1000)
		if err != nil {
			return err
		}
		for _, fd := range ready {
			if fd != m.listenFd {
				continue
			}
			m.drainAccepts()
		}
	}
}

func (m *Master) drainAccepts() {
	for {
		connFd, _, err := unix.Accept(m.listenFd)
		if err != nil {
			if err == unix.EAGAIN {
				return
			}
			if err == unix.EINTR {
				continue
			}
			log.Printf("master: accept: %v", err)
			return
		}
		m.dispatch(connFd)
	}
}

// dispatch chooses a worker round-robin (preferring IDLE, falling back
// to BUSY rather than rejecting), enqueues its bookkeeping job on C3,
// and hands the live descriptor over that worker's control socket. A
// refused or unroutable connection is closed immediately so no
// descriptor is ever leaked.
func (m *Master) dispatch(connFd int) {
	g := m.statsBlock.Global()
	stats.IncAccepted(g)

	slot, wp := m.pickIdleWorker()
	if wp == nil {
		unix.Close(connFd)
		stats.IncRejected(g)
		return
	}

	m.mu.Lock()
	m.nextSeq++
	seq := m.nextSeq
	m.mu.Unlock()

	job := fifo.ConnJob{Slot: int32(slot), Seq: seq}
	if err := m.connFifo.TryEnqueue(job); err != nil {
		unix.Close(connFd)
		stats.IncQueueDropped(g)
		return
	}
	stats.IncActiveConnections(g)

	if err := fdpass.Send(int(wp.ctrl.Fd()), connFd); err != nil {
		log.Printf("master: fd handoff to slot %d failed: %v", slot, err)
		unix.Close(connFd)
		stats.IncRejected(g)
		stats.DecActiveConnections(g)
		return
	}
}

// pickIdleWorker scans C9 round-robin for an IDLE slot, falling back to
// plain round-robin over every non-dead slot (BUSY included) if none is
// IDLE. The accept loop must never block waiting for an IDLE worker to
// free up, so backpressure is left entirely to the OS accept queue and
// C3's own bounded capacity, not to this selection.
func (m *Master) pickIdleWorker() (int, *workerProc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.workers)
	fallbackSlot, fallbackWp := -1, (*workerProc)(nil)
	for i := 0; i < n; i++ {
		slot := int((m.nextSeq + uint64(i)) % uint64(n))
		wp := m.workers[slot]
		if wp == nil {
			continue
		}
		switch stats.GetState(m.statsBlock.Slot(slot)) {
		case stats.StateIdle:
			return slot, wp
		case stats.StateBusy:
			if fallbackWp == nil {
				fallbackSlot, fallbackWp = slot, wp
			}
		}
	}
	return fallbackSlot, fallbackWp
}

func (m *Master) cleanup() {
	if m.poller != nil {
		m.poller.Close()
	}
	if m.listenFd != 0 {
		unix.Close(m.listenFd)
	}
	if m.statsRegion != nil {
		m.statsRegion.Close()
	}
	if m.fifoRegion != nil {
		m.fifoRegion.Close()
	}
	if m.controlRegion != nil {
		m.controlRegion.Close()
	}
	shm.Unlink(m.statsSHMName)
	shm.Unlink(m.fifoSHMName)
	shm.Unlink(m.controlSHMName)
}

// Stats returns the shared stats block for the admin surface to read.
func (m *Master) Stats() *stats.Block { return m.statsBlock }

// RegionsAttached reports whether every shared-memory region the
// master and its workers depend on was created successfully. New
// creates all three synchronously, so a nil region here means startup
// itself failed in a way that somehow left the process running.
func (m *Master) RegionsAttached() error {
	if m.statsRegion == nil || m.fifoRegion == nil || m.controlRegion == nil {
		return fmt.Errorf("master: shared-memory regions not attached")
	}
	return nil
}

// WorkersAlive reports an error unless at least one supervised worker
// slot is IDLE or BUSY (i.e. not DEAD and awaiting respawn).
func (m *Master) WorkersAlive() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.workers {
		if m.workers[i] == nil {
			continue
		}
		if stats.GetState(m.statsBlock.Slot(i)) != stats.StateDead {
			return nil
		}
	}
	return fmt.Errorf("master: no worker slot is alive")
}

var fifoItemSize = int(unsafe.Sizeof(fifo.ConnJob{}))

func notifySignals(ch chan os.Signal) {
	signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
}
