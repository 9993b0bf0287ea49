package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/GiuGiglio/ai-supported-data-mapping-system/internal/core/domain"
)

func (rt *Router) createProject(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	project, err := rt.projects.Upload(
		r.Context(),
		r.FormValue("name"),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, project)
}

// projectSubtree dispatches /v1/projects/{id} and its sub-resources.
func (rt *Router) projectSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/projects/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "project id is required"})
		return
	}

	switch action {
	case "":
		rt.getProject(w, r, id)
	case "map":
		rt.remapProject(w, r, id)
	case "accept":
		rt.acceptProject(w, r, id)
	case "accepted":
		rt.listAccepted(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown project resource"})
	}
}

func (rt *Router) getProject(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	state, err := rt.states.GetState(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (rt *Router) remapProject(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if err := rt.projects.Requeue(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "project_id": id})
}

func (rt *Router) acceptProject(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		Results []domain.MappingResult `json:"results"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	if err := rt.acceptor.Accept(r.Context(), id, req.Results); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted", "project_id": id})
}

func (rt *Router) listAccepted(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	required, optional, err := rt.accepted.ListAccepted(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]domain.MappingResult{
		"required": required,
		"optional": optional,
	})
}
