package httpx

import (
	"encoding/json"
	"fmt"
	"path/filepath"
)

// Context is the handler-facing view of one request/response cycle.
// Unlike a net/http ResponseWriter it does not stream: handlers build
// the full response in memory and the worker writes it (or, for
// ServeFile, sendfiles it) in one shot once the handler returns.
type Context struct {
	req *Request

	status  int
	headers map[string]string
	body    []byte

	filePath string // set by ServeFile; worker sendfiles this instead of body
	aborted  bool

	handlerErr error // set when Dispatch recovers a panicking handler
}

// NewContext wraps req for handler dispatch.
func NewContext(req *Request) *Context {
	return &Context{req: req, status: 200}
}

func (c *Context) Method() string          { return c.req.Method }
func (c *Context) Path() string            { return c.req.Path }
func (c *Context) Header(key string) string { return c.req.Header(key) }
func (c *Context) Body() []byte            { return c.req.Body }
func (c *Context) Query(key string) string { return c.req.Query[key] }

// Param returns a path parameter captured by the router.
func (c *Context) Param(key string) string { return c.req.Params[key] }

// SetParam is called by the router once a route's whole pattern has
// matched, once per captured parameter.
func (c *Context) SetParam(key, value string) {
	if c.req.Params == nil {
		c.req.Params = make(map[string]string)
	}
	c.req.Params[key] = value
}

// SetHeader queues a response header.
func (c *Context) SetHeader(key, value string) {
	if c.headers == nil {
		c.headers = make(map[string]string)
	}
	c.headers[key] = value
}

// String writes a plain-text response.
func (c *Context) String(code int, s string) {
	c.status = code
	c.SetHeader("Content-Type", "text/plain; charset=utf-8")
	c.body = []byte(s)
}

// JSON marshals v and writes it as an application/json response.
func (c *Context) JSON(code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.Error(500, "encode error: "+err.Error())
		return
	}
	c.status = code
	c.SetHeader("Content-Type", "application/json; charset=utf-8")
	c.body = data
}

// Bytes writes an octet-stream response.
func (c *Context) Bytes(code int, data []byte) {
	c.Data(code, "application/octet-stream", data)
}

// Data writes a response with an explicit content type.
func (c *Context) Data(code int, contentType string, data []byte) {
	c.status = code
	c.SetHeader("Content-Type", contentType)
	c.body = data
}

// Error writes a JSON error envelope.
func (c *Context) Error(code int, message string) {
	c.JSON(code, map[string]string{"error": message})
}

// Success writes a JSON success envelope around data.
func (c *Context) Success(data any) {
	c.JSON(200, map[string]any{"success": true, "data": data})
}

// ServeFile marks the response to be sent via zero-copy sendfile from
// path, deferring the content-type lookup and Content-Length to the
// worker's write path.
func (c *Context) ServeFile(path string) {
	c.status = 200
	c.SetHeader("Content-Type", ContentType(path))
	c.filePath = path
}

// FilePath returns the path set by ServeFile, or "" if none.
func (c *Context) FilePath() string { return c.filePath }

// Abort marks the response as final, short-circuiting middleware.
func (c *Context) Abort() { c.aborted = true }

// Aborted reports whether Abort was called.
func (c *Context) Aborted() bool { return c.aborted }

// SetHandlerError records that the handler failed (typically a
// recovered panic) so the worker can count it as a failed request
// even though a response body was still produced.
func (c *Context) SetHandlerError(err error) { c.handlerErr = err }

// HandlerError returns the error recorded by SetHandlerError, if any.
func (c *Context) HandlerError() error { return c.handlerErr }

// Status, Headers and Body expose the built response for encoding.
func (c *Context) Status() int                { return c.status }
func (c *Context) Headers() map[string]string { return c.headers }
func (c *Context) ResponseBody() []byte       { return c.body }

// ContentType returns a MIME type guessed from a file's extension.
func ContentType(name string) string {
	switch filepath.Ext(name) {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	case ".json":
		return "application/json; charset=utf-8"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".svg":
		return "image/svg+xml"
	default:
		return "application/octet-stream"
	}
}

// WriteError builds an error Context with a small JSON {"error": ...}
// body and no Request behind it, used by the worker when a request
// can't even be parsed.
func WriteError(code int, message string) *Context {
	c := &Context{status: code}
	c.body = []byte(fmt.Sprintf(`{"error":%q}`, message))
	c.headers = map[string]string{"Content-Type": "application/json; charset=utf-8"}
	return c
}
