package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ragcorpus/internal/models"
	"ragcorpus/internal/services/events"

	"github.com/gorilla/mux"
)

// Handler handles HTTP requests. Dependencies arrive as the interfaces
// declared in this package.
type Handler struct {
	projects  ProjectStore
	ingest    IngestService
	search    SearchService
	hub       *events.Hub
	wsHandler *events.WebSocketHandler
}

func NewHandler(
	projects ProjectStore,
	ingest IngestService,
	search SearchService,
	hub *events.Hub,
	wsHandler *events.WebSocketHandler,
) *Handler {
	return &Handler{
		projects:  projects,
		ingest:    ingest,
		search:    search,
		hub:       hub,
		wsHandler: wsHandler,
	}
}

// writeJSON writes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the engine's error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var pe *models.ProviderError

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		status = http.StatusConflict
	case errors.As(err, &pe):
		if pe.Transient {
			status = http.StatusServiceUnavailable
		} else {
			status = http.StatusBadGateway
		}
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeError turns a JSON decode failure into a validation error so it goes
// through the same envelope as every other failure.
func decodeError(err error) error {
	return fmt.Errorf("%w: invalid request body: %v", models.ErrValidation, err)
}

// Project handlers

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req models.ProjectCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, decodeError(err))
		return
	}

	project, err := h.projects.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}

	h.hub.Publish(events.Event{
		Type:      events.TypeProjectCreated,
		ProjectID: project.ID,
		Name:      project.Name,
		At:        time.Now().UTC(),
	})

	writeJSON(w, http.StatusCreated, project)
}

// GetOrCreateProject resolves a project by name, creating it when absent.
// Idempotent: two concurrent calls with the same name both receive the one
// surviving project.
func (h *Handler) GetOrCreateProject(w http.ResponseWriter, r *http.Request) {
	var req models.ProjectCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, decodeError(err))
		return
	}

	project, err := h.projects.GetOrCreate(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, project)
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// File handlers

// AddFile ingests a document into a project. 201 on a fresh ingestion, 200
// with the stored file when the content fingerprint already exists.
func (h *Handler) AddFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	projectID := vars["id"]

	var upload models.FileUpload
	if err := json.NewDecoder(r.Body).Decode(&upload); err != nil {
		writeError(w, decodeError(err))
		return
	}

	file, created, err := h.ingest.AddFile(r.Context(), projectID, upload)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, file)
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	projectID := vars["id"]

	files, err := h.ingest.ListFiles(r.Context(), projectID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

// DeleteFile removes a file and its chunks. Deleting a missing file is not
// an error; the response reports what happened.
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	fileID := vars["id"]

	deleted, err := h.ingest.DeleteFile(r.Context(), fileID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

// Search handlers

type searchRequest struct {
	Query               string  `json:"query"`
	Page                int     `json:"page"`
	PageSize            int     `json:"page_size"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

func (h *Handler) SearchProject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	projectID := vars["id"]

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, decodeError(err))
		return
	}

	// Absent pagination fields get the UI defaults rather than failing.
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 10
	}

	page, err := h.search.Search(r.Context(), projectID, req.Query, req.Page, req.PageSize, req.SimilarityThreshold)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// WebSocket endpoints

// HandleUpdatesWebSocket streams corpus mutation events to the client.
func (h *Handler) HandleUpdatesWebSocket(w http.ResponseWriter, r *http.Request) {
	h.wsHandler.HandleUpdatesConnection(w, r)
}
