package httpx

import (
	"os"

	"golang.org/x/sys/unix"
)

// SendFile writes a response header followed by a zero-copy sendfile
// of the file at ctx.FilePath(), used for ServeFile responses instead
// of buffering the whole file into ctx's body.
func SendFile(fd int, ctx *Context) error {
	f, err := os.Open(ctx.FilePath())
	if err != nil {
		errCtx := WriteError(404, "not found")
		_, werr := unix.Write(fd, Encode(errCtx))
		if werr != nil {
			return werr
		}
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	if _, err := unix.Write(fd, EncodeHeader(ctx, info.Size())); err != nil {
		return err
	}

	srcFd := int(f.Fd())
	var offset int64
	remaining := info.Size()
	for remaining > 0 {
		n, err := unix.Sendfile(fd, srcFd, &offset, int(remaining))
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return err
		}
		if n == 0 {
			break
		}
		remaining -= int64(n)
	}
	return nil
}
