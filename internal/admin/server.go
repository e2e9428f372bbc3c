package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/preforkhq/apiserver/internal/stats"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Server serves /healthz, /stats and /stats/stream over cleartext
// HTTP/2 (h2c), so operators scraping stats over a service mesh get
// multiplexed requests without needing TLS termination on this
// side-channel listener.
type Server struct {
	addr     string
	registry *Registry
	block    *stats.Block
	http     *http.Server
}

// New builds an admin Server bound to addr, reporting from block and
// gated by registry's health checks.
func New(addr string, registry *Registry, block *stats.Block) *Server {
	mux := http.NewServeMux()
	s := &Server{addr: addr, registry: registry, block: block}

	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/stats/stream", s.handleStatsStream)
	mux.HandleFunc("/stats.txt", s.handleStatsText)

	h2s := &http2.Server{}
	s.http = &http.Server{
		Addr:    addr,
		Handler: h2c.NewHandler(mux, h2s),
	}
	return s
}

// Run serves until ctx is canceled, then shuts down within 5s.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.http.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ok, results := s.registry.RunAll()
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(map[string]any{"healthy": ok, "checks": results})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := BuildSnapshot(s.block)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleStatsText(w http.ResponseWriter, r *http.Request) {
	snap := BuildSnapshot(s.block)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, snap.Text())
}

// handleStatsStream pushes a Snapshot every second as a
// server-sent-events stream, letting a dashboard render live counters
// without polling.
func (s *Server) handleStatsStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			snap := BuildSnapshot(s.block)
			data, err := json.Marshal(snap)
			if err != nil {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
