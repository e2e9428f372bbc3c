package master

import (
	"fmt"
	"log"

	"github.com/preforkhq/apiserver/internal/stats"
	"golang.org/x/sys/unix"
)

// supervisionSweep performs one non-blocking reap pass over every
// worker, marking dead slots and re-forking a replacement into the
// same slot so it keeps consuming the same C3 channel.
func (m *Master) supervisionSweep() {
	m.mu.Lock()
	workers := make([]*workerProc, len(m.workers))
	copy(workers, m.workers)
	m.mu.Unlock()

	for slot, wp := range workers {
		if wp == nil {
			continue
		}
		var ws unix.WaitStatus
		pid, err := unix.Wait4(wp.proc.Pid, &ws, unix.WNOHANG, nil)
		if err != nil || pid == 0 {
			continue // still alive, or a transient wait error
		}
		m.handleWorkerDeath(slot, ws)
	}
}

func (m *Master) handleWorkerDeath(slot int, ws unix.WaitStatus) {
	slotStats := m.statsBlock.Slot(slot)
	stats.SetState(slotStats, stats.StateDead)
	stats.RecordError(slotStats, fmt.Sprintf("worker exited: %v", ws))
	stats.IncRestarts(slotStats)
	log.Printf("master: worker slot %d died (%v), respawning", slot, ws)

	m.mu.Lock()
	if wp := m.workers[slot]; wp != nil {
		wp.ctrl.Close()
	}
	shuttingDown := m.shuttingDown
	m.mu.Unlock()

	if shuttingDown {
		return
	}
	if err := m.startWorker(slot); err != nil {
		log.Printf("master: failed to respawn slot %d: %v", slot, err)
	}
}
