package admin

import (
	"fmt"

	"github.com/preforkhq/apiserver/internal/procutil"
	"github.com/preforkhq/apiserver/internal/stats"
)

// WorkerReport is one worker's JSON-friendly snapshot.
type WorkerReport struct {
	Slot            int    `json:"slot"`
	PID             int64  `json:"pid"`
	State           string `json:"state"`
	RequestsHandled uint64 `json:"requests_handled"`
	RequestsFailed  uint64 `json:"requests_failed"`
	BytesRead       uint64 `json:"bytes_read"`
	BytesWritten    uint64 `json:"bytes_written"`
	Restarts        uint64 `json:"restarts"`
	LastError       string `json:"last_error,omitempty"`
}

// Snapshot is the full stats report served at /stats.
type Snapshot struct {
	StartedAtUnix     int64          `json:"started_at_unix"`
	TotalAccepted     uint64         `json:"total_accepted"`
	TotalCompleted    uint64         `json:"total_completed"`
	TotalRejected     uint64         `json:"total_rejected"`
	TotalQueueDropped uint64         `json:"total_queue_dropped"`
	ActiveConnections int64          `json:"active_connections"`
	Workers           []WorkerReport `json:"workers"`
	GC                procutil.Stats `json:"gc"`
}

// BuildSnapshot reads the shared stats block into a Snapshot.
func BuildSnapshot(block *stats.Block) Snapshot {
	g := block.Global()
	snap := Snapshot{
		StartedAtUnix:     g.StartedAtUnix,
		TotalAccepted:     g.TotalAccepted,
		TotalCompleted:    g.TotalCompleted,
		TotalRejected:     g.TotalRejected,
		TotalQueueDropped: g.TotalQueueDropped,
		ActiveConnections: g.ActiveConnections,
		GC:                procutil.GetStats(),
	}
	for i := 0; i < block.WorkerCount(); i++ {
		slot := block.Slot(i)
		snap.Workers = append(snap.Workers, WorkerReport{
			Slot:            i,
			PID:             slot.PID,
			State:           stats.GetState(slot).String(),
			RequestsHandled: slot.RequestsHandled,
			RequestsFailed:  slot.RequestsFailed,
			BytesRead:       slot.BytesRead,
			BytesWritten:    slot.BytesWritten,
			Restarts:        slot.Restarts,
			LastError:       stats.Error(slot),
		})
	}
	return snap
}

// Text renders a Snapshot as the human-readable report format used by
// operators watching a terminal rather than parsing JSON.
func (s Snapshot) Text() string {
	out := fmt.Sprintf("apiserver stats\n===============\naccepted=%d completed=%d rejected=%d dropped=%d active=%d\n\n",
		s.TotalAccepted, s.TotalCompleted, s.TotalRejected, s.TotalQueueDropped, s.ActiveConnections)
	for _, w := range s.Workers {
		out += fmt.Sprintf("worker[%d] pid=%d state=%-4s requests=%d failed=%d read=%dB written=%dB restarts=%d\n",
			w.Slot, w.PID, w.State, w.RequestsHandled, w.RequestsFailed, w.BytesRead, w.BytesWritten, w.Restarts)
	}
	return out
}
