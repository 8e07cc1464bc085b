package apihttp

import (
	"net/http"
	"strings"

	"mediafetch/internal/domain"
)

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListHistory(w, r)
	case http.MethodDelete:
		s.handleClearHistory(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.listHistory == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "history not configured")
		return
	}

	status, err := parseStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid status")
		return
	}
	sortOrder, err := parseSortOrder(r.URL.Query().Get("sortOrder"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid sortOrder")
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), true)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}
	offset, err := parsePositiveInt(r.URL.Query().Get("offset"), false)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid offset")
		return
	}

	const maxLimit = 1000
	if limit > maxLimit {
		limit = maxLimit
	}

	filter := domain.HistoryFilter{
		Status:    status,
		Search:    strings.TrimSpace(r.URL.Query().Get("search")),
		SortOrder: sortOrder,
	}
	if limit > 0 {
		filter.Limit = limit
	}
	if offset > 0 {
		filter.Offset = offset
	}

	entries, err := s.listHistory.Execute(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if s.clearHistory == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "history not configured")
		return
	}
	if err := s.clearHistory.Execute(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleHistoryByID(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimPrefix(r.URL.Path, "/api/history/")
	if jobID == "" || strings.Contains(jobID, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		if s.getHistoryEntry == nil {
			writeError(w, http.StatusNotImplemented, "not_configured", "history not configured")
			return
		}
		entry, err := s.getHistoryEntry.Execute(r.Context(), jobID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	case http.MethodDelete:
		if s.deleteHistoryEntry == nil {
			writeError(w, http.StatusNotImplemented, "not_configured", "history not configured")
			return
		}
		if err := s.deleteHistoryEntry.Execute(r.Context(), jobID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, successResponse{Success: true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
