// Package shm implements the two lowest-level IPC primitives: named
// shared-memory regions backed by mmap over a file in a tmpfs-mounted
// directory, and a futex-based counting semaphore over a cell inside
// one of those regions.
//
// POSIX shm_open/sem_open have no binding in golang.org/x/sys/unix, so
// both primitives are built from what the toolchain does expose:
// unix.Mmap/Munmap/Ftruncate for the region, and the raw SYS_FUTEX
// syscall for the semaphore. Region names are resolved relative to a
// shared directory (/dev/shm by default) the way named POSIX shared
// memory objects are resolved relative to a fixed namespace.
package shm

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Dir is the directory backing named regions. It defaults to /dev/shm,
// the conventional tmpfs mount used for POSIX shared memory on Linux.
var Dir = "/dev/shm"

// Region is a shared-memory segment mapped into this process's address
// space. Multiple processes that Open the same name observe the same
// bytes.
type Region struct {
	name string
	file *os.File
	data []byte
}

func path(name string) string {
	return filepath.Join(Dir, name)
}

// Create allocates a new named region of the given size, truncating
// any pre-existing region of the same name. The caller owns unlinking
// it via Unlink once no process needs it anymore.
func Create(name string, size int) (*Region, error) {
	f, err := os.OpenFile(path(name), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("shm: create %s: %w", name, err)
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: truncate %s: %w", name, err)
	}
	return mapFile(name, f, size)
}

// Open attaches to an existing named region created by another process
// (typically the master, before it forks/re-execs its workers).
func Open(name string, size int) (*Region, error) {
	f, err := os.OpenFile(path(name), os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("shm: open %s: %w", name, err)
	}
	return mapFile(name, f, size)
}

func mapFile(name string, f *os.File, size int) (*Region, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: mmap %s: %w", name, err)
	}
	return &Region{name: name, file: f, data: data}, nil
}

// Bytes returns the mapped region as a byte slice. Callers build typed
// views (via unsafe.Pointer or binary.Read/Write) on top of this.
func (r *Region) Bytes() []byte { return r.data }

// Name returns the region's shared name.
func (r *Region) Name() string { return r.name }

// Close unmaps the region in this process without removing the
// backing file, so other attached processes are unaffected.
func (r *Region) Close() error {
	if r.data != nil {
		if err := unix.Munmap(r.data); err != nil {
			return err
		}
		r.data = nil
	}
	return r.file.Close()
}

// Unlink removes the backing file. Only the owning master should call
// this, and only after every worker has exited, mirroring shm_unlink
// semantics where the name disappears but existing mappings survive
// until their last close.
func Unlink(name string) error {
	err := os.Remove(path(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
