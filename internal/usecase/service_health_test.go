package usecase

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"mediafetch/internal/domain"
	"mediafetch/internal/progress"
)

func TestServiceHealth(t *testing.T) {
	reg := progress.NewRegistry(discardLogger())
	reg.Register("active", testJobOptions("active", t.TempDir()))
	reg.Register("done", testJobOptions("done", t.TempDir()))
	reg.Complete("done", 1, domain.DownloadResult{FileName: "a.mp4"})

	fixed := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	uc := ServiceHealth{
		Registry:  reg,
		Extractor: &fakeRunner{version: "2025.06.09"},
		Logger:    discardLogger(),
		Version:   "1.2.3",
		Now:       func() time.Time { return fixed },
	}

	health := uc.Execute(context.Background())

	if health.Status != "ok" {
		t.Fatalf("status = %q, want ok", health.Status)
	}
	if health.Version != "1.2.3" {
		t.Fatalf("version = %q", health.Version)
	}
	if health.ExtractorVersion != "2025.06.09" {
		t.Fatalf("extractorVersion = %q", health.ExtractorVersion)
	}
	if health.ActiveDownloads != 1 {
		t.Fatalf("activeDownloads = %d, want 1", health.ActiveDownloads)
	}
	if !health.Timestamp.Equal(fixed) {
		t.Fatalf("timestamp = %v, want %v", health.Timestamp, fixed)
	}
}

func TestServiceHealthVersionProbeFailure(t *testing.T) {
	uc := ServiceHealth{
		Extractor: &fakeRunner{verErr: errors.New("binary missing")},
		Logger:    discardLogger(),
		Version:   "1.2.3",
	}

	health := uc.Execute(context.Background())
	if health.Status != "ok" {
		t.Fatalf("status = %q, want ok despite probe failure", health.Status)
	}
	if health.ExtractorVersion != "" {
		t.Fatalf("extractorVersion = %q, want empty", health.ExtractorVersion)
	}
}

func TestServiceHealthDiskFree(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("disk probe not supported on this platform")
	}

	uc := ServiceHealth{Version: "1.2.3", DataDir: t.TempDir()}

	health := uc.Execute(context.Background())
	if health.DiskFreeBytes <= 0 {
		t.Fatalf("diskFreeBytes = %d, want > 0", health.DiskFreeBytes)
	}
	if health.DiskFree == "" {
		t.Fatal("diskFree not rendered")
	}
}
