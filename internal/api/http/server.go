package apihttp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"mediafetch/internal/domain"
	"mediafetch/internal/domain/ports"
)

type StartDownloadUseCase interface {
	Execute(ctx context.Context, opts domain.JobOptions) (domain.JobProgress, error)
}

type PauseDownloadUseCase interface {
	Execute(ctx context.Context, jobID string) error
}

type ResumeDownloadUseCase interface {
	Execute(ctx context.Context, jobID string) (domain.JobProgress, error)
}

type CancelDownloadUseCase interface {
	Execute(ctx context.Context, jobID string) error
}

type GetProgressUseCase interface {
	Execute(ctx context.Context, jobID string) (domain.JobProgress, error)
}

type ListDownloadsUseCase interface {
	Execute(ctx context.Context) (map[string]domain.JobProgress, error)
}

type FetchMetadataUseCase interface {
	Execute(ctx context.Context, url string) (domain.VideoMetadata, error)
}

type EstimateSizeUseCase interface {
	Execute(ctx context.Context, req ports.SizeRequest) (int64, error)
}

type ServiceHealthUseCase interface {
	Execute(ctx context.Context) domain.ServiceHealth
}

type ListHistoryUseCase interface {
	Execute(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error)
}

type GetHistoryEntryUseCase interface {
	Execute(ctx context.Context, jobID string) (domain.HistoryEntry, error)
}

type DeleteHistoryEntryUseCase interface {
	Execute(ctx context.Context, jobID string) error
}

type ClearHistoryUseCase interface {
	Execute(ctx context.Context) error
}

// SettingsStore serves and persists the naming template set.
type SettingsStore interface {
	NamingTemplates() domain.NamingTemplates
	UpdateNamingTemplates(templates domain.NamingTemplates) (domain.NamingTemplates, error)
}

type Server struct {
	startDownload      StartDownloadUseCase
	pauseDownload      PauseDownloadUseCase
	resumeDownload     ResumeDownloadUseCase
	cancelDownload     CancelDownloadUseCase
	progress           GetProgressUseCase
	listDownloads      ListDownloadsUseCase
	metadata           FetchMetadataUseCase
	estimate           EstimateSizeUseCase
	health             ServiceHealthUseCase
	listHistory        ListHistoryUseCase
	getHistoryEntry    GetHistoryEntryUseCase
	deleteHistoryEntry DeleteHistoryEntryUseCase
	clearHistory       ClearHistoryUseCase
	settings           SettingsStore
	outputDir          string
	staticDir          string
	version            string
	allowedOrigins     []string
	logger             *slog.Logger
	handler            http.Handler
	wsHub              *wsHub
}

type ServerOption func(*Server)

func WithPauseDownload(uc PauseDownloadUseCase) ServerOption {
	return func(s *Server) {
		s.pauseDownload = uc
	}
}

func WithResumeDownload(uc ResumeDownloadUseCase) ServerOption {
	return func(s *Server) {
		s.resumeDownload = uc
	}
}

func WithCancelDownload(uc CancelDownloadUseCase) ServerOption {
	return func(s *Server) {
		s.cancelDownload = uc
	}
}

func WithGetProgress(uc GetProgressUseCase) ServerOption {
	return func(s *Server) {
		s.progress = uc
	}
}

func WithListDownloads(uc ListDownloadsUseCase) ServerOption {
	return func(s *Server) {
		s.listDownloads = uc
	}
}

func WithFetchMetadata(uc FetchMetadataUseCase) ServerOption {
	return func(s *Server) {
		s.metadata = uc
	}
}

func WithEstimateSize(uc EstimateSizeUseCase) ServerOption {
	return func(s *Server) {
		s.estimate = uc
	}
}

func WithServiceHealth(uc ServiceHealthUseCase) ServerOption {
	return func(s *Server) {
		s.health = uc
	}
}

func WithHistory(list ListHistoryUseCase, get GetHistoryEntryUseCase, del DeleteHistoryEntryUseCase, clear ClearHistoryUseCase) ServerOption {
	return func(s *Server) {
		s.listHistory = list
		s.getHistoryEntry = get
		s.deleteHistoryEntry = del
		s.clearHistory = clear
	}
}

func WithSettings(store SettingsStore) ServerOption {
	return func(s *Server) {
		s.settings = store
	}
}

// WithOutputDir sets the directory used when a download request does not
// name its own output folder.
func WithOutputDir(dir string) ServerOption {
	return func(s *Server) {
		s.outputDir = dir
	}
}

func WithStaticDir(dir string) ServerOption {
	return func(s *Server) {
		s.staticDir = dir
	}
}

func WithVersion(version string) ServerOption {
	return func(s *Server) {
		s.version = version
	}
}

// WithAllowedOrigins configures the CORS allowed origins whitelist.
// When empty (default), any origin is permitted (development mode).
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(start StartDownloadUseCase, opts ...ServerOption) *Server {
	s := &Server{
		startDownload: start,
		outputDir:     "downloads",
		version:       "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/naming-templates", s.handleNamingTemplates)
	mux.HandleFunc("/api/metadata", s.handleMetadata)
	mux.HandleFunc("/api/filesize", s.handleFileSize)
	mux.HandleFunc("/api/download", s.handleDownload)
	mux.HandleFunc("/api/download/", s.handleDownloadAction)
	mux.HandleFunc("/api/downloads/active", s.handleActiveDownloads)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/history/", s.handleHistoryByID)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/", s.handleSPA)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "mediafetch",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/api/health" && p != "/health"
		}),
	)
	s.handler = recoveryMiddleware(s.logger, versionMiddleware(rateLimitMiddleware(100, 200, metricsMiddleware(corsMiddleware(s.allowedOrigins, traced)))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.wsHub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := &wsClient{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	s.wsHub.register <- client
	go client.writePump()
	go client.readPump()
}

// BroadcastDownloads pushes the active download snapshots to all connected
// WebSocket clients.
func (s *Server) BroadcastDownloads(ctx context.Context) {
	if s.wsHub == nil || s.listDownloads == nil {
		return
	}
	downloads, err := s.listDownloads.Execute(ctx)
	if err != nil {
		s.logger.Debug("ws broadcast downloads failed", slog.String("error", err.Error()))
		return
	}
	s.wsHub.BroadcastDownloads(downloads)
}

// BroadcastHealth pushes the current health snapshot to all connected
// WebSocket clients.
func (s *Server) BroadcastHealth(ctx context.Context) {
	if s.wsHub == nil || s.health == nil {
		return
	}
	s.wsHub.Broadcast("health", s.health.Execute(ctx))
}

// Close disconnects all WebSocket clients and stops the hub.
func (s *Server) Close() {
	if s.wsHub != nil {
		s.wsHub.Close()
	}
}
