package httpx

import (
	"fmt"
	"net/http"
	"strconv"
)

// Encode serializes a Context's status/headers/body into a complete
// HTTP/1.1 response byte sequence, ready for a single Write to the
// connection's file descriptor. The worker always closes the
// connection after writing, so Connection: close is unconditional.
func Encode(c *Context) []byte {
	status := c.Status()
	if status == 0 {
		status = 200
	}
	text := http.StatusText(status)
	if text == "" {
		text = "Unknown"
	}

	buf := make([]byte, 0, len(c.body)+256)
	buf = append(buf, "HTTP/1.1 "...)
	buf = strconv.AppendInt(buf, int64(status), 10)
	buf = append(buf, ' ')
	buf = append(buf, text...)
	buf = append(buf, "\r\n"...)

	for k, v := range c.headers {
		buf = append(buf, k...)
		buf = append(buf, ": "...)
		buf = append(buf, v...)
		buf = append(buf, "\r\n"...)
	}
	buf = append(buf, fmt.Sprintf("Content-Length: %d\r\n", len(c.body))...)
	buf = append(buf, "Connection: close\r\n\r\n"...)
	buf = append(buf, c.body...)
	return buf
}

// EncodeHeader serializes only the status line and headers, used when
// the body is sent separately via sendfile. size is the file's byte
// length, reported as Content-Length.
func EncodeHeader(c *Context, size int64) []byte {
	status := c.Status()
	text := http.StatusText(status)
	if text == "" {
		text = "Unknown"
	}
	buf := make([]byte, 0, 256)
	buf = append(buf, "HTTP/1.1 "...)
	buf = strconv.AppendInt(buf, int64(status), 10)
	buf = append(buf, ' ')
	buf = append(buf, text...)
	buf = append(buf, "\r\n"...)
	for k, v := range c.headers {
		buf = append(buf, k...)
		buf = append(buf, ": "...)
		buf = append(buf, v...)
		buf = append(buf, "\r\n"...)
	}
	buf = append(buf, fmt.Sprintf("Content-Length: %d\r\n", size)...)
	buf = append(buf, "Connection: close\r\n\r\n"...)
	return buf
}
