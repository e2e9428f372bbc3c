package master

import (
	"context"
	"fmt"
	"log"
	"os"
	"unsafe"

	"github.com/preforkhq/apiserver/internal/ipc/priority"
	"github.com/preforkhq/apiserver/internal/ipc/shm"
)

// ControlCode identifies what a ControlMsg reports.
type ControlCode int32

const (
	ControlHandlerError ControlCode = iota
	ControlHighLoad
	ControlDrainRequest
)

// ControlMsg is the fixed-size, pointer-free payload carried by the
// control priority channel (C4): a general-purpose message-passing
// path from workers back to the master, separate from the C3 fd
// handoff used for ordinary connection distribution. A worker posts
// ControlHandlerError here after a streak of failed requests, and the
// master logs it as soon as it arrives instead of waiting on the 10s
// supervision sweep. ControlHighLoad and ControlDrainRequest are
// understood by the consumer but no worker sends them.
type ControlMsg struct {
	Slot int32
	Code int32
}

const controlSHMBaseName = "apiserver_control"

func (m *Master) createControlQueue() error {
	m.controlSHMName = fmt.Sprintf("%s_%d", controlSHMBaseName, os.Getpid())
	size := priority.Size(m.cfg.PriorityCap, unsafe.Sizeof(priority.Entry[ControlMsg]{}))
	region, err := shm.Create(m.controlSHMName, size)
	if err != nil {
		return err
	}
	m.controlRegion = region
	m.controlQueue = priority.New[ControlMsg](region, m.cfg.PriorityCap, true)
	return nil
}

// runControlConsumer drains the control queue until ctx is canceled,
// logging each message; a real deployment would fold ControlHighLoad
// into autoscaling and ControlDrainRequest into a targeted respawn.
func (m *Master) runControlConsumer(ctx context.Context) {
	for {
		entry, err := m.controlQueue.Pop(ctx)
		if err != nil {
			return
		}
		msg := entry.Value
		switch ControlCode(msg.Code) {
		case ControlHandlerError:
			log.Printf("master: control: worker slot %d reported a handler error", msg.Slot)
		case ControlHighLoad:
			log.Printf("master: control: worker slot %d reports sustained high load", msg.Slot)
		case ControlDrainRequest:
			log.Printf("master: control: worker slot %d requested drain", msg.Slot)
		}
	}
}
