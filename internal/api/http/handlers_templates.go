package apihttp

import (
	"encoding/json"
	"net/http"

	"mediafetch/internal/domain"
)

type namingTemplatesResponse struct {
	NamingTemplates domain.NamingTemplates `json:"namingTemplates"`
}

type updateTemplatesRequest struct {
	NamingTemplates *domain.NamingTemplates `json:"namingTemplates"`
}

type updateTemplatesResponse struct {
	Success         bool                   `json:"success"`
	NamingTemplates domain.NamingTemplates `json:"namingTemplates"`
}

func (s *Server) handleNamingTemplates(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetNamingTemplates(w, r)
	case http.MethodPut:
		s.handleUpdateNamingTemplates(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGetNamingTemplates(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "settings not configured")
		return
	}
	writeJSON(w, http.StatusOK, namingTemplatesResponse{NamingTemplates: s.settings.NamingTemplates()})
}

// handleUpdateNamingTemplates persists a new template set. Templates are not
// validated here: validation depends on the (contentType, mode) pair of a
// concrete job, so it happens when a download is enqueued.
func (s *Server) handleUpdateNamingTemplates(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "settings not configured")
		return
	}

	var body updateTemplatesRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}
	if body.NamingTemplates == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "namingTemplates is required")
		return
	}

	stored, err := s.settings.UpdateNamingTemplates(*body.NamingTemplates)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to persist settings")
		return
	}

	writeJSON(w, http.StatusOK, updateTemplatesResponse{Success: true, NamingTemplates: stored})
}
