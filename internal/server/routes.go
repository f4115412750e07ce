package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /health", s.handleHealth)

	// Upload and token minting.
	mux.HandleFunc("POST /v1/files", s.handleUploadFile)
	mux.HandleFunc("POST /v1/files/{id}/token", s.handleMintToken)

	// Token-gated access.
	mux.HandleFunc("GET /v1/files/{id}", s.handleServeFile)
	mux.HandleFunc("GET /v1/files/{id}/download", s.handleDownloadFile)
	mux.HandleFunc("GET /v1/files/{id}/metadata", s.handleFileMetadata)

	// Admin surface.
	mux.HandleFunc("DELETE /v1/files/{id}", s.withAdminAuth(s.handleDeleteFile))
	mux.HandleFunc("GET /v1/files", s.withAdminAuth(s.handleListFiles))

	return s.withRequestLogging(mux)
}
