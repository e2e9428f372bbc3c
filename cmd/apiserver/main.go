// Command apiserver is the single binary that plays both the master
// and worker role, re-exec'd into the worker role by the master with
// APISERVER_ROLE=worker set in its environment.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/preforkhq/apiserver/internal/admin"
	"github.com/preforkhq/apiserver/internal/config"
	"github.com/preforkhq/apiserver/internal/master"
	"github.com/preforkhq/apiserver/internal/procutil"
	"github.com/preforkhq/apiserver/internal/router"
	"github.com/preforkhq/apiserver/internal/worker"
)

func main() {
	if master.IsWorker() {
		runWorker()
		return
	}
	runMaster()
}

func runMaster() {
	cfg := config.New()
	procutil.Apply(procutil.DefaultMasterGC())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	m, err := master.New(cfg)
	if err != nil {
		log.Fatalf("master: %v", err)
	}

	registry := admin.NewRegistry()
	registry.Register("shared-memory regions attached", m.RegionsAttached)
	registry.Register("workers alive", m.WorkersAlive)

	adminSrv := admin.New(cfg.AdminAddr, registry, m.Stats())
	go func() {
		if err := adminSrv.Run(ctx); err != nil {
			log.Printf("admin: %v", err)
		}
	}()

	if err := m.Run(ctx); err != nil {
		log.Fatalf("master: %v", err)
	}
}

func runWorker() {
	env, err := master.LoadWorkerEnv()
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	rt := router.New()
	registerRoutes(rt)

	w, err := worker.New(env, rt)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := w.Run(ctx); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
