package main

import (
	"github.com/preforkhq/apiserver/internal/httpx"
	"github.com/preforkhq/apiserver/internal/router"
)

// registerRoutes wires up the demo API surface every worker serves.
// Route registration order is significant: the router dispatches to
// the first pattern that matches, with no most-specific-wins fallback.
func registerRoutes(rt *router.Router) {
	rt.Use(router.AccessLog())

	rt.Handle("GET", "/", func(c *httpx.Context) {
		c.String(200, "apiserver\n")
	})

	rt.Handle("GET", "/api/status", func(c *httpx.Context) {
		c.Success(map[string]string{"status": "ok"})
	})

	rt.Handle("GET", "/api/users/:id", func(c *httpx.Context) {
		c.JSON(200, map[string]string{"id": c.Param("id")})
	})

	rt.Handle("POST", "/api/users", func(c *httpx.Context) {
		c.JSON(201, map[string]string{"created": "true"})
	})

	rt.Handle("GET", "/api/search", func(c *httpx.Context) {
		c.JSON(200, map[string]string{"query": c.Query("q")})
	})
}
