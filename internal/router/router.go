// Package router implements registration-order request dispatch: the
// first pattern registered that matches a request's method and path
// wins, with no most-specific-first reordering. This is a deliberate
// departure from the radix-tree "most specific wins" routers common in
// this codebase's lineage, chosen because predictable, order-dependent
// dispatch is what callers of this engine depend on.
package router

import (
	"fmt"
	"strings"

	"github.com/preforkhq/apiserver/internal/errs"
	"github.com/preforkhq/apiserver/internal/httpx"
)

// Handler serves one request through a Context.
type Handler func(*httpx.Context)

// Middleware wraps a Handler to run logic before/after dispatch.
type Middleware func(Handler) Handler

type route struct {
	method   string
	segments []segment
	handler  Handler
}

type segment struct {
	literal string
	isParam bool
}

// Router holds routes in registration order and a middleware chain
// applied to every dispatch.
type Router struct {
	routes []route
	chain  []Middleware
}

// New creates an empty Router.
func New() *Router {
	return &Router{}
}

// Use appends middleware to the chain, applied outermost-registered-first.
func (r *Router) Use(mw Middleware) {
	r.chain = append(r.chain, mw)
}

// Handle registers pattern for method. Segments starting with ':'
// capture a path parameter, e.g. "/users/:id".
func (r *Router) Handle(method, pattern string, handler Handler) {
	r.routes = append(r.routes, route{
		method:   method,
		segments: compile(pattern),
		handler:  handler,
	})
}

func compile(pattern string) []segment {
	parts := strings.Split(strings.Trim(pattern, "/"), "/")
	segs := make([]segment, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		if p[0] == ':' {
			segs = append(segs, segment{literal: p[1:], isParam: true})
		} else {
			segs = append(segs, segment{literal: p})
		}
	}
	return segs
}

// capture is one path-parameter binding found while attempting a
// match. Captures are collected into a scratch slice during the
// attempt and only applied to the context once the whole pattern is
// confirmed to match, so a partially-matching route (params match but
// a later literal segment doesn't) never leaks stray parameters into
// the context a different, winning route sees.
type capture struct {
	key   string
	value string
}

func match(segs []segment, path string) ([]capture, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 1 && parts[0] == "" {
		parts = parts[:0]
	}
	if len(parts) != len(segs) {
		return nil, false
	}
	var captures []capture
	for i, seg := range segs {
		if seg.isParam {
			captures = append(captures, capture{key: seg.literal, value: parts[i]})
			continue
		}
		if !samePath(seg.literal, parts[i]) {
			return nil, false
		}
	}
	return captures, true
}

// Dispatch finds the first route registered for req.Method whose
// pattern matches req.Path, in registration order, and runs the
// middleware-wrapped handler. If nothing matches it writes a 404. A
// panicking handler is recovered here unconditionally, converted to a
// 500 response and recorded on the context via SetHandlerError, so a
// route table that never registers a recovery middleware still can't
// take down the worker process.
func (r *Router) Dispatch(req *httpx.Request) *httpx.Context {
	ctx := httpx.NewContext(req)

	for i := range r.routes {
		rt := &r.routes[i]
		if rt.method != req.Method {
			continue
		}
		captures, ok := match(rt.segments, req.Path)
		if !ok {
			continue
		}
		for _, c := range captures {
			ctx.SetParam(c.key, c.value)
		}

		h := rt.handler
		for i := len(r.chain) - 1; i >= 0; i-- {
			h = r.chain[i](h)
		}
		dispatchSafely(h, ctx)
		return ctx
	}

	ctx.Error(404, errs.ErrRouteNotFound.Error())
	return ctx
}

func dispatchSafely(h Handler, ctx *httpx.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("handler panic: %v", rec)
			ctx.SetHandlerError(err)
			ctx.Error(500, "internal error")
		}
	}()
	h(ctx)
}
