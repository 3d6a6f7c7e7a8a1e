// Package web provides an HTTP status and control server for the led-blinker daemon.
package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/led-blinker/internal/status"
)

// handoffTimeout bounds how long a delay request waits for the driver loop.
const handoffTimeout = 2 * time.Second

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	delays     chan<- uint64
}

// New creates a Server that reads state from the given tracker and forwards
// delay requests to delays. A nil delays channel disables POST /delay.
func New(addr string, tracker *status.Tracker, delays chan<- uint64) *Server {
	s := &Server{tracker: tracker, delays: delays}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/delay", s.handleDelay)
	mux.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleDelay accepts POST /delay with ms=<milliseconds> as a query or form
// value. The value is handed to the driver loop unclamped; the controller
// clamps it, so the response echoes the request rather than the result.
func (s *Server) handleDelay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.delays == nil {
		http.Error(w, "delay control disabled", http.StatusServiceUnavailable)
		return
	}

	raw := r.FormValue("ms")
	ms, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid ms %q", raw), http.StatusBadRequest)
		return
	}

	select {
	case s.delays <- ms:
	case <-r.Context().Done():
		return
	case <-time.After(handoffTimeout):
		http.Error(w, "driver loop busy", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintf(w, "{\"requested_delay_ms\":%d}\n", ms)
}
