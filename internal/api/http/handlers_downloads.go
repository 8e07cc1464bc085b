package apihttp

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediafetch/internal/domain"
	"mediafetch/internal/domain/ports"
	"mediafetch/internal/naming"
)

type successResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.health == nil {
		writeJSON(w, http.StatusOK, domain.ServiceHealth{
			Status:    "ok",
			Version:   s.version,
			Timestamp: time.Now(),
		})
		return
	}
	writeJSON(w, http.StatusOK, s.health.Execute(r.Context()))
}

type metadataRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.metadata == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "metadata probe not configured")
		return
	}

	var body metadataRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}

	cleaned, err := sanitizeMediaURL(body.URL)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	meta, err := s.metadata.Execute(r.Context(), cleaned)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, meta)
}

type fileSizeRequest struct {
	URL           string              `json:"url"`
	Mode          domain.DownloadMode `json:"mode"`
	Quality       string              `json:"quality,omitempty"`
	Format        string              `json:"format,omitempty"`
	PlaylistItems string              `json:"playlistItems,omitempty"`
}

type fileSizeResponse struct {
	FileSize int64 `json:"fileSize"`
}

func (s *Server) handleFileSize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.estimate == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "size estimation not configured")
		return
	}

	var body fileSizeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}

	cleaned, err := sanitizeMediaURL(body.URL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	switch body.Mode {
	case domain.ModeVideo, domain.ModeAudio:
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "mode must be video or audio")
		return
	}

	size, err := s.estimate.Execute(r.Context(), ports.SizeRequest{
		URL:           cleaned,
		Mode:          body.Mode,
		Quality:       body.Quality,
		Format:        body.Format,
		PlaylistItems: body.PlaylistItems,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fileSizeResponse{FileSize: size})
}

type downloadQueuedResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
	Status  string `json:"status"`
}

// handleDownload runs the synchronous half of the enqueue path: sanitize,
// validate, resolve the final filename from the naming template, register.
// The subprocess itself runs in the background; the response only confirms
// the job took off.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.startDownload == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "downloads not configured")
		return
	}

	var opts domain.JobOptions
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&opts); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json")
		return
	}

	cleaned, err := sanitizeMediaURL(opts.URL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	opts.URL = cleaned

	if opts.JobID == "" {
		opts.JobID = uuid.NewString()
	}
	if opts.ContentType == "" {
		opts.ContentType = domain.ContentSingle
	}
	if opts.OutputDir == "" {
		opts.OutputDir = s.outputDir
	}
	if err := opts.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	templates := domain.DefaultNamingTemplates()
	if s.settings != nil {
		templates = s.settings.NamingTemplates()
	}
	template := templates.For(opts.ContentType, opts.Mode)
	if err := naming.Validate(template, opts.ContentType, opts.Mode); err != nil {
		writeDomainError(w, err)
		return
	}

	title := opts.Title
	if title == "" {
		title = opts.VideoID
	}
	resolved, err := naming.Resolve(template, naming.ResolveInput{
		Title:   title,
		Channel: opts.Channel,
		Quality: opts.Quality,
		Format:  opts.Format,
		Index:   opts.PlaylistIndex,
		Mode:    opts.Mode,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	opts.ResolvedName = resolved

	if _, err := s.startDownload.Execute(r.Context(), opts); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, downloadQueuedResponse{
		Success: true,
		JobID:   opts.JobID,
		Status:  "queued",
	})
}

type activeDownloadsResponse struct {
	Downloads map[string]domain.JobProgress `json:"downloads"`
}

func (s *Server) handleActiveDownloads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.listDownloads == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "downloads not configured")
		return
	}

	downloads, err := s.listDownloads.Execute(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if downloads == nil {
		downloads = map[string]domain.JobProgress{}
	}

	writeJSON(w, http.StatusOK, activeDownloadsResponse{Downloads: downloads})
}

// handleDownloadAction routes /api/download/<action>/<jobID>. The action set
// is fixed; anything else is a 404.
func (s *Server) handleDownloadAction(w http.ResponseWriter, r *http.Request) {
	tail := strings.TrimPrefix(r.URL.Path, "/api/download/")
	parts := strings.SplitN(tail, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		http.NotFound(w, r)
		return
	}
	action, jobID := parts[0], parts[1]

	switch action {
	case "progress":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleProgress(w, r, jobID)
	case "pause":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handlePause(w, r, jobID)
	case "resume":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleResume(w, r, jobID)
	case "cancel":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.handleCancel(w, r, jobID)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request, jobID string) {
	if s.progress == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "downloads not configured")
		return
	}
	snapshot, err := s.progress.Execute(r.Context(), jobID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request, jobID string) {
	if s.pauseDownload == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "downloads not configured")
		return
	}
	if err := s.pauseDownload.Execute(r.Context(), jobID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request, jobID string) {
	if s.resumeDownload == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "downloads not configured")
		return
	}
	if _, err := s.resumeDownload.Execute(r.Context(), jobID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request, jobID string) {
	if s.cancelDownload == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "downloads not configured")
		return
	}
	if err := s.cancelDownload.Execute(r.Context(), jobID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
