package progress

import (
	"errors"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"mediafetch/internal/domain"
)

type fakeHandle struct {
	mu    sync.Mutex
	kills int
}

func (h *fakeHandle) Kill() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.kills++
	return nil
}

func (h *fakeHandle) killCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.kills
}

func newTestRegistry(t *testing.T) (*Registry, *time.Time) {
	t.Helper()
	now := time.Date(2026, time.August, 25, 12, 0, 0, 0, time.UTC)
	r := NewRegistry(slog.Default())
	r.Now = func() time.Time { return now }
	return r, &now
}

func videoOptions(jobID string, estimate int64) domain.JobOptions {
	return domain.JobOptions{
		JobID:          jobID,
		URL:            "https://www.youtube.com/watch?v=abc",
		OutputDir:      "/tmp/out",
		Mode:           domain.ModeVideo,
		Quality:        "1080p",
		EstimatedBytes: estimate,
	}
}

func audioOptions(jobID, format string, estimate int64) domain.JobOptions {
	return domain.JobOptions{
		JobID:          jobID,
		URL:            "https://www.youtube.com/watch?v=abc",
		OutputDir:      "/tmp/out",
		Mode:           domain.ModeAudio,
		Format:         format,
		EstimatedBytes: estimate,
	}
}

func TestRegisterInitialState(t *testing.T) {
	r, _ := newTestRegistry(t)

	p, resumed := r.Register("j1", videoOptions("j1", 5000))
	if resumed {
		t.Fatal("first register should not report a resume")
	}
	if p.Status != domain.StatusDownloading {
		t.Errorf("status = %s, want downloading", p.Status)
	}
	if p.Stage != domain.StageVideo {
		t.Errorf("stage = %s, want video", p.Stage)
	}
	if p.TotalBytes != 5000 {
		t.Errorf("totalBytes = %d, want 5000", p.TotalBytes)
	}

	p, _ = r.Register("j2", audioOptions("j2", "mp3", 0))
	if p.Stage != domain.StageAudio {
		t.Errorf("audio job stage = %s, want audio", p.Stage)
	}
}

func TestRegisterResumeKeepsCounters(t *testing.T) {
	r, _ := newTestRegistry(t)
	opts := videoOptions("j1", 10000)

	r.Register("j1", opts)
	r.SetStageTotalBytes("j1", 10000)
	r.UpdateProgress("j1", 4000)

	if err := r.Pause("j1"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if st, _ := r.Status("j1"); st != domain.StatusPaused {
		t.Fatalf("status after pause = %s, want paused", st)
	}

	p, resumed := r.Register("j1", opts)
	if !resumed {
		t.Fatal("second register should report a resume")
	}
	if p.Status != domain.StatusDownloading {
		t.Errorf("status after resume = %s, want downloading", p.Status)
	}
	if p.VideoDownloadedBytes != 4000 || p.DownloadedBytes != 4000 {
		t.Errorf("counters reset on resume: video=%d total=%d, want 4000", p.VideoDownloadedBytes, p.DownloadedBytes)
	}
	if p.Stage != domain.StageVideo {
		t.Errorf("stage after resume = %s, want video", p.Stage)
	}
}

func TestStageTransitionFinalizesVideo(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Register("j1", videoOptions("j1", 0))

	r.SetStageTotalBytes("j1", 10*1024*1024)
	r.UpdateProgress("j1", 5*1024*1024)
	r.SetStage("j1", domain.StageAudio)

	p, err := r.Snapshot("j1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if p.VideoDownloadedBytes != 10*1024*1024 {
		t.Errorf("videoDownloadedBytes = %d, want %d", p.VideoDownloadedBytes, 10*1024*1024)
	}
	if p.DownloadedBytes != 10*1024*1024 {
		t.Errorf("downloadedBytes = %d, want %d", p.DownloadedBytes, 10*1024*1024)
	}
	if p.Stage != domain.StageAudio {
		t.Errorf("stage = %s, want audio", p.Stage)
	}
}

func TestVideoAudioMergeAccounting(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Register("j1", videoOptions("j1", 0))

	r.SetStageTotalBytes("j1", 10*1024*1024)
	r.UpdateProgress("j1", 10*1024*1024)
	r.SetStage("j1", domain.StageAudio)
	r.SetStageTotalBytes("j1", 1*1024*1024)
	r.UpdateProgress("j1", 1*1024*1024)
	r.SetStage("j1", domain.StageMerging)
	r.SetStatus("j1", domain.StatusConverting)

	p, err := r.Snapshot("j1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if p.VideoDownloadedBytes != 10*1024*1024 || p.AudioDownloadedBytes != 1*1024*1024 {
		t.Errorf("stage counters = %d/%d, want 10MiB/1MiB", p.VideoDownloadedBytes, p.AudioDownloadedBytes)
	}
	if p.TotalBytes != 11*1024*1024 {
		t.Errorf("totalBytes = %d, want 11MiB", p.TotalBytes)
	}
	if p.Percentage != 99 {
		t.Errorf("percentage at merge = %v, want 99", p.Percentage)
	}
	if p.Status != domain.StatusConverting {
		t.Errorf("status = %s, want converting", p.Status)
	}

	r.Complete("j1", 11*1024*1024, domain.DownloadResult{FileName: "clip.mp4", FilePath: "/tmp/out/clip.mp4", FileSize: "11.00 MB"})
	p, _ = r.Snapshot("j1")
	if p.Percentage != 100 {
		t.Errorf("percentage after complete = %v, want 100", p.Percentage)
	}
	if p.Status != domain.StatusCompleted || p.Stage != domain.StageComplete {
		t.Errorf("terminal state = %s/%s, want completed/complete", p.Status, p.Stage)
	}
	if p.Result == nil || p.Result.FileName != "clip.mp4" {
		t.Errorf("result not stored: %+v", p.Result)
	}
}

func TestTerminalStatusIsAbsorbing(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Register("j1", videoOptions("j1", 0))

	r.Complete("j1", 100, domain.DownloadResult{FileName: "a.mp4"})
	r.SetStatus("j1", domain.StatusDownloading)
	r.Fail("j1", "late failure")
	r.UpdateProgress("j1", 50)

	p, err := r.Snapshot("j1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if p.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want completed to absorb later writes", p.Status)
	}
	if p.Error != "" {
		t.Errorf("error = %q, want empty", p.Error)
	}
	if p.DownloadedBytes != 100 {
		t.Errorf("downloadedBytes = %d, want 100", p.DownloadedBytes)
	}
}

func TestCompleteDroppedWhilePaused(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Register("j1", videoOptions("j1", 1000))
	r.SetStageTotalBytes("j1", 1000)
	r.UpdateProgress("j1", 990)

	if err := r.Pause("j1"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	// Exit code 0 can arrive right after the kill; it must not win.
	r.Complete("j1", 1000, domain.DownloadResult{FileName: "a.mp4"})

	p, err := r.Snapshot("j1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if p.Status != domain.StatusPaused {
		t.Errorf("status = %s, want paused", p.Status)
	}
	if p.Result != nil {
		t.Error("result should not be stored for a paused job")
	}
}

func TestPauseKillsAttachedProcess(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Register("j1", videoOptions("j1", 0))

	h := &fakeHandle{}
	r.AttachProcess("j1", h)

	if err := r.Pause("j1"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if h.killCount() != 1 {
		t.Errorf("kill count = %d, want 1", h.killCount())
	}

	if err := r.Pause("j1"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("second pause = %v, want ErrInvalidTransition", err)
	}
	if h.killCount() != 1 {
		t.Errorf("kill count after second pause = %d, want 1", h.killCount())
	}
}

func TestPauseMissingJob(t *testing.T) {
	r, _ := newTestRegistry(t)
	if err := r.Pause("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("pause missing = %v, want ErrNotFound", err)
	}
}

func TestCancelRemovesEntry(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Register("j1", videoOptions("j1", 0))

	h := &fakeHandle{}
	r.AttachProcess("j1", h)

	if err := r.Cancel("j1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if h.killCount() != 1 {
		t.Errorf("kill count = %d, want 1", h.killCount())
	}

	if _, err := r.Snapshot("j1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("snapshot after cancel = %v, want ErrNotFound", err)
	}
	if err := r.Cancel("j1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second cancel = %v, want ErrNotFound", err)
	}
}

func TestPauseThenCancel(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Register("j1", videoOptions("j1", 0))

	if err := r.Pause("j1"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := r.Cancel("j1"); err != nil {
		t.Fatalf("cancel after pause: %v", err)
	}
	if _, err := r.Status("j1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("status after cancel = %v, want ErrNotFound", err)
	}
}

func TestSpeedSampledLazily(t *testing.T) {
	r, now := newTestRegistry(t)
	r.Register("j1", videoOptions("j1", 5000))
	r.SetStageTotalBytes("j1", 5000)
	r.UpdateProgress("j1", 1000)

	// Inside the sampling window the speed stays at its previous value.
	*now = now.Add(100 * time.Millisecond)
	p, _ := r.Snapshot("j1")
	if p.Speed != 0 {
		t.Errorf("speed inside window = %d, want 0", p.Speed)
	}

	*now = now.Add(500 * time.Millisecond)
	p, _ = r.Snapshot("j1")
	elapsedSec := 0.6
	wantSpeed := int64(float64(1000) / elapsedSec)
	if p.Speed != wantSpeed {
		t.Errorf("speed = %d, want %d", p.Speed, wantSpeed)
	}
	if wantETA := (5000 - 1000) / wantSpeed; p.ETA != wantETA {
		t.Errorf("eta = %d, want %d", p.ETA, wantETA)
	}

	// The sample point refreshed; an immediate re-read keeps the values.
	r.UpdateProgress("j1", 2000)
	*now = now.Add(100 * time.Millisecond)
	p, _ = r.Snapshot("j1")
	if p.Speed != wantSpeed {
		t.Errorf("speed refreshed too early: %d, want %d", p.Speed, wantSpeed)
	}
}

func TestZeroEstimateYieldsZeroPercentage(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Register("j1", audioOptions("j1", "", 0))

	p, _ := r.Snapshot("j1")
	if p.Percentage != 0 {
		t.Errorf("percentage before any size line = %v, want 0", p.Percentage)
	}

	r.SetStageTotalBytes("j1", 4000)
	r.UpdateProgress("j1", 1000)
	p, _ = r.Snapshot("j1")
	if p.Percentage != 25 {
		t.Errorf("percentage = %v, want 25", p.Percentage)
	}
}

func TestAudioProjectionAppliedOnReadOnly(t *testing.T) {
	raw := int64(6 * 1024 * 1024)
	r, _ := newTestRegistry(t)
	r.Register("j1", audioOptions("j1", "wav", raw))

	p, _ := r.Snapshot("j1")
	want := int64(math.Round(float64(raw) * 12.85))
	if p.TotalBytes != want {
		t.Errorf("projected totalBytes = %d, want %d", p.TotalBytes, want)
	}

	// A second read projects from the stored raw value, not the projected one.
	p, _ = r.Snapshot("j1")
	if p.TotalBytes != want {
		t.Errorf("second read projected totalBytes = %d, want %d", p.TotalBytes, want)
	}

	r.SetStageTotalBytes("j1", raw)
	p, _ = r.Snapshot("j1")
	if p.AudioTotalBytes != want {
		t.Errorf("projected audioTotalBytes = %d, want %d", p.AudioTotalBytes, want)
	}
}

func TestProjectionSkippedAfterCompletion(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Register("j1", audioOptions("j1", "wav", 6*1024*1024))

	final := int64(77 * 1024 * 1024)
	r.Complete("j1", final, domain.DownloadResult{FileName: "a.wav", FileSize: "77.00 MB"})

	p, _ := r.Snapshot("j1")
	if p.TotalBytes != final {
		t.Errorf("totalBytes after completion = %d, want the on-disk size %d", p.TotalBytes, final)
	}
	if p.Percentage != 100 {
		t.Errorf("percentage = %v, want 100", p.Percentage)
	}
}

func TestSnapshotAll(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Register("j1", videoOptions("j1", 0))
	r.Register("j2", audioOptions("j2", "mp3", 0))

	all := r.SnapshotAll()
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if all["j1"].Stage != domain.StageVideo || all["j2"].Stage != domain.StageAudio {
		t.Errorf("stages = %s/%s, want video/audio", all["j1"].Stage, all["j2"].Stage)
	}

	if err := r.Cancel("j2"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	all = r.SnapshotAll()
	if len(all) != 1 {
		t.Errorf("len after cancel = %d, want 1", len(all))
	}
}

func TestActiveCount(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Register("j1", videoOptions("j1", 0))
	r.Register("j2", videoOptions("j2", 0))
	r.Complete("j2", 0, domain.DownloadResult{})

	if got := r.ActiveCount(); got != 1 {
		t.Errorf("active = %d, want 1", got)
	}
}
