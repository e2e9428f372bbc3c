//go:build linux

package netpoll

import "golang.org/x/sys/unix"

// EpollPoller is an edge-triggered epoll multiplexer.
type EpollPoller struct {
	epfd   int
	events []unix.EpollEvent
}

// New creates a Poller backed by epoll_create1.
func New() (Poller, error) {
	fd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &EpollPoller{epfd: fd, events: make([]unix.EpollEvent, 1024)}, nil
}

// Add registers fd for edge-triggered readability.
func (p *EpollPoller) Add(fd int) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN | unix.EPOLLET, Fd: int32(fd)}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// Remove deregisters fd.
func (p *EpollPoller) Remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait blocks until at least one registered fd is ready or timeoutMs
// elapses, returning the ready descriptors.
func (p *EpollPoller) Wait(timeoutMs int) ([]int, error) {
	n, err := unix.EpollWait(p.epfd, p.events, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	ready := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ready = append(ready, int(p.events[i].Fd))
	}
	return ready, nil
}

// Close releases the epoll instance's file descriptor.
func (p *EpollPoller) Close() error {
	return unix.Close(p.epfd)
}
