package master

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// workerProc tracks one supervised worker: its OS process and the
// master-side end of the control socketpair used to hand it live
// connection descriptors via SCM_RIGHTS.
type workerProc struct {
	slot int
	proc *os.Process
	ctrl *os.File
}

// spawnWorker creates a control socketpair, re-execs the current
// binary with the worker's end inherited at fd 3, and returns a
// workerProc holding the master's end.
//
// Go processes cannot fork-and-continue the way the C original does;
// os.StartProcess always re-execs a full binary image. A pair of
// connected unix-domain sockets, one inherited via ProcAttr.Files, gives
// the two processes a channel to pass live file descriptors that a
// bare integer written into shared memory could never carry across an
// independent exec.
func (m *Master) spawnWorker(slot int) (*workerProc, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("master: socketpair: %w", err)
	}
	masterEnd := os.NewFile(uintptr(fds[0]), fmt.Sprintf("worker-%d-ctrl-master", slot))
	workerEnd := os.NewFile(uintptr(fds[1]), fmt.Sprintf("worker-%d-ctrl-child", slot))
	defer workerEnd.Close()

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("master: resolve executable: %w", err)
	}

	env := workerEnviron(slot, m.statsSHMName, m.fifoSHMName, m.controlSHMName, m.cfg.Workers, m.cfg.FIFOCapacity, m.cfg.PriorityCap, m.cfg.ThreadPoolSize, m.cfg.Addr)

	proc, err := os.StartProcess(exe, os.Args, &os.ProcAttr{
		Files: []*os.File{os.Stdin, os.Stdout, os.Stderr, workerEnd},
		Env:   env,
	})
	if err != nil {
		masterEnd.Close()
		return nil, fmt.Errorf("master: start worker %d: %w", slot, err)
	}

	return &workerProc{slot: slot, proc: proc, ctrl: masterEnd}, nil
}
