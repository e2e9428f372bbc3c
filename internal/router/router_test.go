package router

import (
	"testing"

	"github.com/preforkhq/apiserver/internal/httpx"
)

func TestRegistrationOrderWins(t *testing.T) {
	rt := New()
	var hit string

	rt.Handle("GET", "/users/:id", func(c *httpx.Context) {
		hit = "param"
		c.String(200, "param")
	})
	rt.Handle("GET", "/users/admin", func(c *httpx.Context) {
		hit = "literal"
		c.String(200, "literal")
	})

	req := &httpx.Request{Method: "GET", Path: "/users/admin"}
	rt.Dispatch(req)

	if hit != "param" {
		t.Fatalf("expected the earlier-registered pattern to win, got %q", hit)
	}
}

func TestPathParamCapture(t *testing.T) {
	rt := New()
	rt.Handle("GET", "/users/:id", func(c *httpx.Context) {
		c.String(200, c.Param("id"))
	})

	req := &httpx.Request{Method: "GET", Path: "/users/42"}
	ctx := rt.Dispatch(req)

	if string(ctx.ResponseBody()) != "42" {
		t.Fatalf("expected param 42, got %q", ctx.ResponseBody())
	}
}

func TestNoMatchReturns404(t *testing.T) {
	rt := New()
	rt.Handle("GET", "/known", func(c *httpx.Context) { c.String(200, "ok") })

	req := &httpx.Request{Method: "GET", Path: "/unknown"}
	ctx := rt.Dispatch(req)

	if ctx.Status() != 404 {
		t.Fatalf("expected 404, got %d", ctx.Status())
	}
}

func TestFailedMatchDoesNotLeakCaptures(t *testing.T) {
	rt := New()
	rt.Handle("GET", "/:x/foo", func(c *httpx.Context) { c.String(200, "x-route") })
	rt.Handle("GET", "/bar/:y", func(c *httpx.Context) { c.JSON(200, map[string]string{"y": c.Param("y")}) })

	req := &httpx.Request{Method: "GET", Path: "/bar/baz"}
	ctx := rt.Dispatch(req)

	if _, ok := req.Params["x"]; ok {
		t.Fatalf("expected no stray %q param from the earlier non-matching route, got %v", "x", req.Params)
	}
	if req.Params["y"] != "baz" {
		t.Fatalf("expected y=baz, got %v", req.Params)
	}
	if ctx.Status() != 200 {
		t.Fatalf("expected 200, got %d", ctx.Status())
	}
}

func TestDispatchRecoversPanickingHandler(t *testing.T) {
	rt := New()
	rt.Handle("GET", "/boom", func(c *httpx.Context) {
		panic("kaboom")
	})

	req := &httpx.Request{Method: "GET", Path: "/boom"}
	ctx := rt.Dispatch(req)

	if ctx.Status() != 500 {
		t.Fatalf("expected 500, got %d", ctx.Status())
	}
	if ctx.HandlerError() == nil {
		t.Fatalf("expected a non-nil HandlerError after a recovered panic")
	}
}

func TestMiddlewareRunsInRegisteredOrder(t *testing.T) {
	rt := New()
	var order []string

	rt.Use(func(next Handler) Handler {
		return func(c *httpx.Context) {
			order = append(order, "first")
			next(c)
		}
	})
	rt.Use(func(next Handler) Handler {
		return func(c *httpx.Context) {
			order = append(order, "second")
			next(c)
		}
	})
	rt.Handle("GET", "/", func(c *httpx.Context) {
		order = append(order, "handler")
		c.String(200, "ok")
	})

	rt.Dispatch(&httpx.Request{Method: "GET", Path: "/"})

	want := []string{"first", "second", "handler"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}
