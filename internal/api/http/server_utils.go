package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"mediafetch/internal/domain"
	"mediafetch/internal/naming"
	"mediafetch/internal/usecase"
)

type errorEnvelope struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeDomainError maps errors from the domain and usecase layers onto the
// HTTP error contract. Template validation failures keep their kind as the
// error code so clients can point at the offending rule.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *naming.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, string(verr.Kind), verr.Error())
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "download not found")
		return
	}
	if errors.Is(err, domain.ErrInvalidURL) {
		writeError(w, http.StatusBadRequest, "invalid_url", "url is not a supported media url")
		return
	}
	if errors.Is(err, domain.ErrInvalidPlaylistItems) {
		writeError(w, http.StatusBadRequest, "invalid_playlist_items", "invalid playlist selection")
		return
	}
	if errors.Is(err, domain.ErrInvalidTransition) {
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
		return
	}
	if errors.Is(err, domain.ErrLowDiskSpace) {
		writeError(w, http.StatusInsufficientStorage, "low_disk_space", err.Error())
		return
	}
	if errors.Is(err, usecase.ErrExtractor) {
		writeError(w, http.StatusInternalServerError, "extractor_error", err.Error())
		return
	}
	if errors.Is(err, usecase.ErrRepository) {
		writeError(w, http.StatusInternalServerError, "repository_error", err.Error())
		return
	}

	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorPayload{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// parseStatus reads the history status filter. History only holds terminal
// entries, so only terminal statuses are valid filter values.
func parseStatus(value string) (*domain.DownloadStatus, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "all" {
		return nil, nil
	}
	switch value {
	case string(domain.StatusCompleted), string(domain.StatusFailed), string(domain.StatusCanceled):
		status := domain.DownloadStatus(value)
		return &status, nil
	default:
		return nil, errors.New("invalid status")
	}
}

func parsePositiveInt(value string, requirePositive bool) (int, error) {
	if strings.TrimSpace(value) == "" {
		return -1, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if requirePositive && parsed <= 0 {
		return 0, errors.New("must be > 0")
	}
	if !requirePositive && parsed < 0 {
		return 0, errors.New("must be >= 0")
	}
	return parsed, nil
}

func parseSortOrder(value string) (domain.SortOrder, error) {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return domain.SortDesc, nil
	}
	switch domain.SortOrder(trimmed) {
	case domain.SortAsc:
		return domain.SortAsc, nil
	case domain.SortDesc:
		return domain.SortDesc, nil
	default:
		return "", errors.New("invalid sort order")
	}
}
