// Package config loads process configuration from command-line flags,
// following the flat flag.IntVar/flag.StringVar style used throughout
// this codebase rather than a struct-tag or viper-style loader.
package config

import (
	"flag"
	"os"
	"runtime"
	"time"
)

// Config holds every tunable for the master and its workers. A single
// binary parses it once in cmd/apiserver and re-derives the same
// values in re-exec'd worker processes from environment variables set
// by the master (see internal/master.env).
type Config struct {
	Addr            string
	AdminAddr       string
	Workers         int
	ThreadPoolSize  int
	FIFOCapacity    int
	PriorityCap     int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Env             string
}

// New parses flags into a Config. Call once from main.
func New() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.Addr, "addr", ":8080", "HTTP listen address")
	flag.StringVar(&cfg.AdminAddr, "admin-addr", ":8081", "admin/health listen address")
	flag.IntVar(&cfg.Workers, "workers", runtime.NumCPU(), "number of worker processes")
	flag.IntVar(&cfg.ThreadPoolSize, "thread-pool-size", 8, "goroutines per worker task pool")
	flag.IntVar(&cfg.FIFOCapacity, "fifo-capacity", 1024, "connection FIFO channel capacity")
	flag.IntVar(&cfg.PriorityCap, "priority-capacity", 256, "priority channel capacity")

	var readTimeout, writeTimeout, shutdownTimeout int
	flag.IntVar(&readTimeout, "read-timeout", 10, "read timeout (seconds)")
	flag.IntVar(&writeTimeout, "write-timeout", 30, "write timeout (seconds)")
	flag.IntVar(&shutdownTimeout, "shutdown-timeout", 30, "graceful shutdown timeout (seconds)")
	flag.StringVar(&cfg.Env, "env", "development", "environment (development/production)")

	flag.Parse()

	cfg.ReadTimeout = time.Duration(readTimeout) * time.Second
	cfg.WriteTimeout = time.Duration(writeTimeout) * time.Second
	cfg.ShutdownTimeout = time.Duration(shutdownTimeout) * time.Second

	if v := os.Getenv("APISERVER_ADDR"); v != "" {
		cfg.Addr = v
	}
	return cfg
}
