package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires HTTP routes to the server's handlers.
func NewRouter(s *Server) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/repair", s.metrics.instrument("/repair", s.handleRepair))
	mux.HandleFunc("/artifacts/", s.metrics.instrument("/artifacts", s.handleArtifactDownload))
	mux.HandleFunc("/healthz", s.metrics.instrument("/healthz", s.handleHealth))
	mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	return mux
}
