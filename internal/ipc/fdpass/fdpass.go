// Package fdpass sends and receives a single open file descriptor
// over a unix-domain socket using SCM_RIGHTS ancillary data. It is the
// live-descriptor transport that substitutes for a shared fd table:
// two independently exec'd processes have no such table to share, so
// the master hands each accepted connection to a worker this way.
package fdpass

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Send transfers fd to whoever is listening on the other end of
// sockFd, then closes the local copy; ownership moves to the
// receiver.
func Send(sockFd, fd int) error {
	rights := unix.UnixRights(fd)
	if err := unix.Sendmsg(sockFd, []byte{0}, rights, nil, 0); err != nil {
		return fmt.Errorf("fdpass: sendmsg: %w", err)
	}
	return unix.Close(fd)
}

// Recv blocks until a descriptor arrives on sockFd and returns it.
func Recv(sockFd int) (int, error) {
	buf := make([]byte, 1)
	oob := make([]byte, unix.CmsgSpace(4))

	n, oobn, _, _, err := unix.Recvmsg(sockFd, buf, oob, 0)
	if err != nil {
		return -1, fmt.Errorf("fdpass: recvmsg: %w", err)
	}
	if n == 0 && oobn == 0 {
		return -1, fmt.Errorf("fdpass: control connection closed")
	}

	cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return -1, fmt.Errorf("fdpass: parse control message: %w", err)
	}
	for _, cmsg := range cmsgs {
		fds, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			continue
		}
		if len(fds) > 0 {
			return fds[0], nil
		}
	}
	return -1, fmt.Errorf("fdpass: no descriptor in control message")
}
