package master

import (
	"log"
	"time"

	"github.com/preforkhq/apiserver/internal/stats"
	"golang.org/x/sys/unix"
)

// shutdown stops accepting, signals every worker, and waits up to the
// configured deadline for them to exit before escalating to SIGKILL.
func (m *Master) shutdown() error {
	m.mu.Lock()
	if m.shuttingDown {
		m.mu.Unlock()
		return nil
	}
	m.shuttingDown = true
	workers := make([]*workerProc, len(m.workers))
	copy(workers, m.workers)
	m.mu.Unlock()

	if m.poller != nil {
		m.poller.Remove(m.listenFd)
	}
	unix.Close(m.listenFd)

	for _, wp := range workers {
		if wp == nil {
			continue
		}
		if err := wp.proc.Signal(unix.SIGTERM); err != nil {
			log.Printf("master: SIGTERM to slot %d: %v", wp.slot, err)
		}
	}

	deadline := time.Now().Add(m.cfg.ShutdownTimeout)
	for time.Now().Before(deadline) {
		if m.allDead(workers) {
			break
		}
		time.Sleep(100 * time.Millisecond)
		m.reapExited(workers)
	}

	for _, wp := range workers {
		if wp == nil || stats.GetState(m.statsBlock.Slot(wp.slot)) == stats.StateDead {
			continue
		}
		log.Printf("master: slot %d did not exit in time, sending SIGKILL", wp.slot)
		wp.proc.Signal(unix.SIGKILL)
		wp.proc.Wait()
		stats.SetState(m.statsBlock.Slot(wp.slot), stats.StateDead)
	}

	log.Printf("master: shutdown complete")
	return nil
}

func (m *Master) allDead(workers []*workerProc) bool {
	for _, wp := range workers {
		if wp == nil {
			continue
		}
		if stats.GetState(m.statsBlock.Slot(wp.slot)) != stats.StateDead {
			return false
		}
	}
	return true
}

func (m *Master) reapExited(workers []*workerProc) {
	for _, wp := range workers {
		if wp == nil {
			continue
		}
		if stats.GetState(m.statsBlock.Slot(wp.slot)) == stats.StateDead {
			continue
		}
		var ws unix.WaitStatus
		pid, err := unix.Wait4(wp.proc.Pid, &ws, unix.WNOHANG, nil)
		if err == nil && pid == wp.proc.Pid {
			stats.SetState(m.statsBlock.Slot(wp.slot), stats.StateDead)
		}
	}
}
