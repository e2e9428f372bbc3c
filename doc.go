/*
Package apiserver is a multi-process HTTP request-serving engine: a
master process owns the listening socket and distributes accepted
connections to a pool of pre-forked worker processes over shared
memory, and each worker dispatches requests through an internal
cooperative-threaded pool to a registration-order router.

Modules

  - internal/ipc/shm: named shared-memory regions and a futex-based
    counting semaphore
  - internal/ipc/fifo: the bounded FIFO channel connections travel
    through on their way to a worker
  - internal/ipc/priority: a bounded priority heap used as a
    general-purpose control-plane channel
  - internal/ipc/fdpass: SCM_RIGHTS live file descriptor handoff
  - internal/stats: the shared-memory statistics block read by both
    the master's supervision sweep and the admin surface
  - internal/router: registration-order request dispatch
  - internal/pool: the fixed-size FIFO task pool each worker schedules
    connections onto
  - internal/httpx: request parsing, response encoding and the
    handler-facing Context
  - internal/master, internal/worker: the two process roles
  - internal/admin: health checks and live stats over h2c

Quick Start

	package main

	import (
	    "github.com/preforkhq/apiserver/internal/httpx"
	    "github.com/preforkhq/apiserver/internal/router"
	)

	func registerRoutes(rt *router.Router) {
	    rt.Handle("GET", "/hello", func(c *httpx.Context) {
	        c.String(200, "Hello, World!")
	    })
	}

See cmd/apiserver for the full master/worker entrypoint and
cmd/loadtest for a concurrent load-testing client.
*/
package apiserver
