package api

import (
	"net/http"

	"ragcorpus/internal/middleware"

	"github.com/gorilla/mux"
)

func SetupRoutes(h *Handler) *mux.Router {
	r := mux.NewRouter()

	// Middleware runs in order - tracing first, then recovery, then CORS.
	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.ErrorRecoveryMiddleware)
	r.Use(middleware.CORSMiddleware)

	// API routes
	api := r.PathPrefix("/api").Subrouter()

	// Project endpoints
	api.HandleFunc("/projects", h.CreateProject).Methods("POST")
	api.HandleFunc("/projects", h.ListProjects).Methods("GET")
	api.HandleFunc("/projects/get-or-create", h.GetOrCreateProject).Methods("POST")

	// File endpoints
	api.HandleFunc("/projects/{id}/files", h.AddFile).Methods("POST")
	api.HandleFunc("/projects/{id}/files", h.ListFiles).Methods("GET")
	api.HandleFunc("/files/{id}", h.DeleteFile).Methods("DELETE")

	// Search endpoint
	api.HandleFunc("/projects/{id}/search", h.SearchProject).Methods("POST")

	// Health check endpoint
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// WebSocket routes
	r.HandleFunc("/ws/updates", h.HandleUpdatesWebSocket)

	return r
}
