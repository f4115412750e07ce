package server

import (
	"net/http"

	"pixvault/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{Status: "ok", Store: "ok", Blobs: "ok"}
	status := http.StatusOK

	if err := s.fileStore.Ping(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Store = err.Error()
		status = http.StatusServiceUnavailable
	}
	if err := s.blobStore.Healthy(r.Context()); err != nil {
		resp.Status = "degraded"
		resp.Blobs = err.Error()
		status = http.StatusServiceUnavailable
	}

	s.writeJSON(w, status, resp)
}
