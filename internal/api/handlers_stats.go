package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/docnorm/internal/backend"
)

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"extensions": backend.SupportedExtensions(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"stats":       s.orchestrator.Stats().Snapshot(),
	})
}
