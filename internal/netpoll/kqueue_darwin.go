//go:build darwin

package netpoll

import "golang.org/x/sys/unix"

// KqueuePoller is a kqueue-based multiplexer, used when this codebase
// is built on macOS for local development against a Linux production
// target.
type KqueuePoller struct {
	kq     int
	events []unix.Kevent_t
}

// New creates a Poller backed by kqueue.
func New() (Poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &KqueuePoller{kq: kq, events: make([]unix.Kevent_t, 1024)}, nil
}

// Add registers fd for level-triggered readability.
func (p *KqueuePoller) Add(fd int) error {
	ev := unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_ADD | unix.EV_ENABLE}
	_, err := unix.Kevent(p.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

// Remove deregisters fd.
func (p *KqueuePoller) Remove(fd int) error {
	ev := unix.Kevent_t{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE}
	_, err := unix.Kevent(p.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

// Wait blocks until at least one registered fd is ready or timeoutMs
// elapses, returning the ready descriptors.
func (p *KqueuePoller) Wait(timeoutMs int) ([]int, error) {
	var ts unix.Timespec
	if timeoutMs >= 0 {
		ts = unix.NsecToTimespec(int64(timeoutMs) * 1e6)
	}
	var tsp *unix.Timespec
	if timeoutMs >= 0 {
		tsp = &ts
	}
	n, err := unix.Kevent(p.kq, nil, p.events, tsp)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ready = append(ready, int(p.events[i].Ident))
	}
	return ready, nil
}

// Close releases the kqueue's file descriptor.
func (p *KqueuePoller) Close() error {
	return unix.Close(p.kq)
}
