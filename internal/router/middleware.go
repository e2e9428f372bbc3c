package router

import (
	"log"
	"time"

	"github.com/preforkhq/apiserver/internal/httpx"
)

func samePath(a, b string) bool { return a == b }

// AccessLog wraps a Handler to emit one log line per request with
// method, path, status and latency.
func AccessLog() Middleware {
	return func(next Handler) Handler {
		return func(ctx *httpx.Context) {
			start := time.Now()
			next(ctx)
			log.Printf("%s %s -> %d (%s)", ctx.Method(), ctx.Path(), ctx.Status(), time.Since(start))
		}
	}
}
