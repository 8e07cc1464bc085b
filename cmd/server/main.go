package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apihttp "mediafetch/internal/api/http"
	"mediafetch/internal/app"
	"mediafetch/internal/domain/ports"
	"mediafetch/internal/metrics"
	"mediafetch/internal/progress"
	"mediafetch/internal/repository/memory"
	mongorepo "mediafetch/internal/repository/mongo"
	"mediafetch/internal/services/extractor/ytdlp"
	"mediafetch/internal/telemetry"
	"mediafetch/internal/usecase"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "mediafetch")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "mediafetch"),
		slog.String("version", version),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("outputDir", cfg.OutputDir),
		slog.String("staticDir", cfg.StaticDir),
		slog.String("extractor", cfg.ExtractorPath),
		slog.Bool("mongo", cfg.MongoURI != ""),
		slog.Int64("minDiskSpaceBytes", cfg.MinDiskSpaceBytes),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, startCancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer startCancel()

	// History lives in Mongo when a URI is configured, otherwise in process
	// memory where it is lost on restart.
	var history ports.HistoryRepository
	var mongoClient *mongo.Client
	if cfg.MongoURI != "" {
		client, err := mongorepo.Connect(startCtx, cfg.MongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
		if err != nil {
			logger.Error("mongo connect failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := client.Ping(startCtx, readpref.Primary()); err != nil {
			logger.Error("mongo ping failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		repo := mongorepo.NewRepository(client, cfg.MongoDatabase, cfg.MongoCollection)
		if err := repo.EnsureIndexes(startCtx); err != nil {
			logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
		}
		mongoClient = client
		history = repo
	} else {
		logger.Info("no MONGO_URI configured, keeping history in memory")
		history = memory.NewRepository()
	}

	driver := ytdlp.New(cfg.ExtractorPath, logger)
	if v, err := driver.Version(startCtx); err != nil {
		logger.Warn("yt-dlp probe failed, downloads will fail until the binary is available",
			slog.String("path", cfg.ExtractorPath),
			slog.String("error", err.Error()),
		)
	} else {
		logger.Info("yt-dlp ready", slog.String("ytdlpVersion", v))
	}

	registry := progress.NewRegistry(logger)
	settings := app.NewSettingsManager(cfg.SettingsPath, logger)

	startUC := usecase.StartDownload{
		Registry:     registry,
		Extractor:    driver,
		History:      history,
		Logger:       logger,
		MinFreeBytes: cfg.MinDiskSpaceBytes,
		Now:          time.Now,
	}
	pauseUC := usecase.PauseDownload{Registry: registry}
	cancelUC := usecase.CancelDownload{Registry: registry}
	resumeUC := usecase.ResumeDownload{Registry: registry, Start: startUC}
	progressUC := usecase.GetProgress{Registry: registry}
	listUC := usecase.ListDownloads{Registry: registry}
	metadataUC := usecase.FetchMetadata{Extractor: driver}
	sizeUC := usecase.EstimateSize{Extractor: driver}
	healthUC := usecase.ServiceHealth{
		Registry:  registry,
		Extractor: driver,
		Logger:    logger,
		Version:   version,
		DataDir:   cfg.OutputDir,
		Now:       time.Now,
	}

	// Pause everything when the output volume runs out of room, resume once
	// it clears twice the threshold.
	if cfg.MinDiskSpaceBytes > 0 {
		diskUC := usecase.DiskPressure{
			Registry:     registry,
			Resume:       resumeUC,
			Logger:       logger,
			DataDir:      cfg.OutputDir,
			MinFreeBytes: cfg.MinDiskSpaceBytes,
			ResumeBytes:  cfg.MinDiskSpaceBytes * 2,
		}
		go diskUC.Run(rootCtx)
	}

	serverOpts := []apihttp.ServerOption{
		apihttp.WithLogger(logger),
		apihttp.WithPauseDownload(pauseUC),
		apihttp.WithResumeDownload(resumeUC),
		apihttp.WithCancelDownload(cancelUC),
		apihttp.WithGetProgress(progressUC),
		apihttp.WithListDownloads(listUC),
		apihttp.WithFetchMetadata(metadataUC),
		apihttp.WithEstimateSize(sizeUC),
		apihttp.WithServiceHealth(healthUC),
		apihttp.WithHistory(
			usecase.ListHistory{Repo: history},
			usecase.GetHistoryEntry{Repo: history},
			usecase.DeleteHistoryEntry{Repo: history},
			usecase.ClearHistory{Repo: history},
		),
		apihttp.WithSettings(settings),
		apihttp.WithOutputDir(cfg.OutputDir),
		apihttp.WithVersion(version),
		apihttp.WithAllowedOrigins(cfg.AllowedOrigins),
	}
	if cfg.StaticDir != "" {
		serverOpts = append(serverOpts, apihttp.WithStaticDir(cfg.StaticDir))
	}

	handler := apihttp.NewServer(startUC, serverOpts...)

	// Push progress and health snapshots to websocket clients.
	go broadcastLoop(rootCtx, handler)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	handler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
		}
	}

	logger.Info("server stopped")
}

// broadcastLoop feeds the websocket hub. Download snapshots go out every
// second to drive progress bars, health goes out on a slower cadence. The
// hub drops both when no client is connected.
func broadcastLoop(ctx context.Context, handler *apihttp.Server) {
	downloadTicker := time.NewTicker(time.Second)
	healthTicker := time.NewTicker(15 * time.Second)
	defer downloadTicker.Stop()
	defer healthTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-downloadTicker.C:
			handler.BroadcastDownloads(ctx)
		case <-healthTicker.C:
			handler.BroadcastHealth(ctx)
		}
	}
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
