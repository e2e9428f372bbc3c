package master

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variable names used to hand configuration and shared
// resource names from the master to a re-exec'd worker. A worker
// re-execs the same binary rather than continuing after a real fork,
// so it cannot inherit Go-level state: everything it needs travels
// either as an inherited file descriptor (ProcAttr.Files) or as one of
// these variables.
const (
	envRole        = "APISERVER_ROLE"
	envSlot        = "APISERVER_SLOT"
	envStatsSHM    = "APISERVER_STATS_SHM"
	envFIFOSHM     = "APISERVER_FIFO_SHM"
	envControlSHM  = "APISERVER_CONTROL_SHM"
	envWorkers     = "APISERVER_WORKERS"
	envFIFOCap     = "APISERVER_FIFO_CAP"
	envPriorityCap = "APISERVER_PRIORITY_CAP"
	envThreads     = "APISERVER_THREAD_POOL"
	envAddr        = "APISERVER_ADDR"

	roleWorker = "worker"
)

// controlFD is the worker's inherited end of its control socketpair.
// spawnWorker passes ProcAttr.Files as [stdin, stdout, stderr, ctrl],
// so the control socket always lands at fd 3 in the child.
const controlFD = 3

// WorkerEnv describes everything a re-exec'd worker needs, resolved
// from its process environment.
type WorkerEnv struct {
	Slot           int
	StatsSHM       string
	FIFOSHM        string
	ControlSHM     string
	Workers        int
	FIFOCapacity   int
	PriorityCap    int
	ThreadPoolSize int
	Addr           string
}

// IsWorker reports whether this process was re-exec'd as a worker.
func IsWorker() bool {
	return os.Getenv(envRole) == roleWorker
}

// LoadWorkerEnv parses WorkerEnv from the process environment. Called
// only after IsWorker returns true.
func LoadWorkerEnv() (WorkerEnv, error) {
	var e WorkerEnv
	var err error
	if e.Slot, err = atoiEnv(envSlot); err != nil {
		return e, err
	}
	e.StatsSHM = os.Getenv(envStatsSHM)
	e.FIFOSHM = os.Getenv(envFIFOSHM)
	e.ControlSHM = os.Getenv(envControlSHM)
	if e.Workers, err = atoiEnv(envWorkers); err != nil {
		return e, err
	}
	if e.FIFOCapacity, err = atoiEnv(envFIFOCap); err != nil {
		return e, err
	}
	if e.PriorityCap, err = atoiEnv(envPriorityCap); err != nil {
		return e, err
	}
	if e.ThreadPoolSize, err = atoiEnv(envThreads); err != nil {
		return e, err
	}
	e.Addr = os.Getenv(envAddr)
	return e, nil
}

func atoiEnv(name string) (int, error) {
	v := os.Getenv(name)
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("master: env %s=%q: %w", name, v, err)
	}
	return n, nil
}

func workerEnviron(slot int, statsSHM, fifoSHM, controlSHM string, workers, fifoCap, priorityCap, threads int, addr string) []string {
	return append(os.Environ(),
		envRole+"="+roleWorker,
		envSlot+"="+strconv.Itoa(slot),
		envStatsSHM+"="+statsSHM,
		envFIFOSHM+"="+fifoSHM,
		envControlSHM+"="+controlSHM,
		envWorkers+"="+strconv.Itoa(workers),
		envFIFOCap+"="+strconv.Itoa(fifoCap),
		envPriorityCap+"="+strconv.Itoa(priorityCap),
		envThreads+"="+strconv.Itoa(threads),
		envAddr+"="+addr,
	)
}
