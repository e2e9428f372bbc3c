// Package httpx implements the request/response types and wire codec
// used by workers to serve one connection at a time: a zero-copy
// request parser lifted from a pooled-buffer HTTP engine, and a small
// Context wrapping a raw response byte sequence rather than net.Conn,
// since a worker only ever sees a bare file descriptor handed to it
// over a control socket.
package httpx

import (
	"bytes"
	"sync"
	"unsafe"

	"github.com/preforkhq/apiserver/internal/errs"
)

// Request is a parsed HTTP/1.1 request. Method, Path and Proto point
// into the buffer ParseRequest was given, so callers must not reuse
// that buffer while the Request is alive.
type Request struct {
	Method string
	Path   string
	Proto  string

	ContentType   string
	ContentLength string
	UserAgent     string
	Accept        string
	Host          string
	Connection    string

	ExtraHeaders map[string]string
	Query        map[string]string
	Params       map[string]string

	Body []byte
}

var requestPool = sync.Pool{
	New: func() any {
		return &Request{Body: make([]byte, 0, 1024)}
	},
}

// AcquireRequest returns a pooled Request ready for ParseRequest.
func AcquireRequest() *Request {
	return requestPool.Get().(*Request)
}

// Reset clears a Request for reuse without releasing its backing
// storage.
func (r *Request) Reset() {
	r.Method, r.Path, r.Proto = "", "", ""
	r.ContentType, r.ContentLength, r.UserAgent, r.Accept, r.Host, r.Connection = "", "", "", "", "", ""
	for k := range r.ExtraHeaders {
		delete(r.ExtraHeaders, k)
	}
	for k := range r.Query {
		delete(r.Query, k)
	}
	for k := range r.Params {
		delete(r.Params, k)
	}
	r.Body = r.Body[:0]
}

// ReleaseRequest resets req and returns it to the pool.
func ReleaseRequest(req *Request) {
	req.Reset()
	requestPool.Put(req)
}

// SetHeader records a header, routing well-known names to dedicated
// fields and everything else into ExtraHeaders.
func (r *Request) SetHeader(key, value string) {
	switch key {
	case "Content-Type":
		r.ContentType = value
	case "Content-Length":
		r.ContentLength = value
	case "User-Agent":
		r.UserAgent = value
	case "Accept":
		r.Accept = value
	case "Host":
		r.Host = value
	case "Connection":
		r.Connection = value
	default:
		if r.ExtraHeaders == nil {
			r.ExtraHeaders = make(map[string]string)
		}
		r.ExtraHeaders[key] = value
	}
}

// Header returns a header's value by name, checking well-known fields
// before ExtraHeaders.
func (r *Request) Header(key string) string {
	switch key {
	case "Content-Type":
		return r.ContentType
	case "Content-Length":
		return r.ContentLength
	case "User-Agent":
		return r.UserAgent
	case "Accept":
		return r.Accept
	case "Host":
		return r.Host
	case "Connection":
		return r.Connection
	}
	return r.ExtraHeaders[key]
}

func unsafeString(b []byte) string {
	return *(*string)(unsafe.Pointer(&b))
}

// ParseRequest parses one HTTP/1.1 request out of data. Method, Path
// and Proto alias data directly to avoid copies; Body is copied since
// the caller's read buffer is reused for the next connection.
func ParseRequest(data []byte) (*Request, error) {
	req := AcquireRequest()

	lineEnd := bytes.IndexByte(data, '\n')
	if lineEnd == -1 {
		ReleaseRequest(req)
		return nil, errs.ErrMalformedRequest
	}
	line := data[:lineEnd]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}

	sp1 := bytes.IndexByte(line, ' ')
	if sp1 == -1 {
		ReleaseRequest(req)
		return nil, errs.ErrMalformedRequest
	}
	sp2 := bytes.IndexByte(line[sp1+1:], ' ')
	if sp2 == -1 {
		ReleaseRequest(req)
		return nil, errs.ErrMalformedRequest
	}
	sp2 += sp1 + 1

	req.Method = unsafeString(line[:sp1])
	req.Path = unsafeString(line[sp1+1 : sp2])
	req.Proto = unsafeString(line[sp2+1:])

	if idx := bytes.IndexByte([]byte(req.Path), '?'); idx != -1 {
		parseQuery(req, req.Path[idx+1:])
		req.Path = req.Path[:idx]
	}

	rest := data[lineEnd+1:]
	headerEnd, sep := -1, 0
	switch {
	case bytes.HasPrefix(rest, []byte("\r\n")):
		headerEnd, sep = 0, 2 // no headers: blank line right after the request line
	case bytes.HasPrefix(rest, []byte("\n")):
		headerEnd, sep = 0, 1
	default:
		headerEnd = bytes.Index(rest, []byte("\r\n\r\n"))
		sep = 4
	}
	if headerEnd == -1 {
		headerEnd = bytes.Index(rest, []byte("\n\n"))
		sep = 2
		if headerEnd == -1 {
			ReleaseRequest(req)
			return nil, errs.ErrMalformedRequest
		}
	}
	parseHeaders(req, rest[:headerEnd])
	body := rest[headerEnd+sep:]
	if len(body) > 0 {
		req.Body = append(req.Body[:0], body...)
	}

	return req, nil
}

func parseHeaders(req *Request, data []byte) {
	for len(data) > 0 {
		lineEnd := bytes.IndexByte(data, '\n')
		if lineEnd == -1 {
			lineEnd = len(data)
		}
		line := data[:lineEnd]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		if len(line) == 0 {
			break
		}
		if colon := bytes.IndexByte(line, ':'); colon > 0 {
			key := string(bytes.TrimSpace(line[:colon]))
			value := string(bytes.TrimSpace(line[colon+1:]))
			req.SetHeader(key, value)
		}
		if lineEnd == len(data) {
			break
		}
		data = data[lineEnd+1:]
	}
}

// parseQuery parses a legacy `?key=value&key2=value2` query string,
// tolerating bare keys with no `=`.
func parseQuery(req *Request, raw string) {
	if req.Query == nil {
		req.Query = make(map[string]string)
	}
	for _, pair := range bytes.Split([]byte(raw), []byte("&")) {
		if len(pair) == 0 {
			continue
		}
		kv := bytes.SplitN(pair, []byte("="), 2)
		if len(kv) == 2 {
			req.Query[string(kv[0])] = string(kv[1])
		} else {
			req.Query[string(kv[0])] = ""
		}
	}
}
