package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/2xkl/PeerFlow/internal/domain"
)

func TestListSessionsMergesLiveState(t *testing.T) {
	engine := newFakeEngine()
	engine.snapshots["hash1"] = domain.LiveSnapshot{
		InfoHash:        "hash1",
		Progress:        0.123456,
		DownloadedBytes: 1234,
		TotalBytes:      10000,
	}
	repo := newFakeRepo()
	repo.records["s1"] = domain.SessionRecord{
		ID: "s1", InfoHash: "hash1", Status: domain.SessionDownloading,
		Progress: 1.0, DownloadedBytes: 100, SizeBytes: 10000,
	}

	uc := ListSessions{Engine: engine, Repo: repo, Log: discardLogger()}
	sessions, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	if sessions[0].Progress != 12.35 {
		t.Fatalf("progress = %v, want 12.35", sessions[0].Progress)
	}
	if sessions[0].DownloadedBytes != 1234 {
		t.Fatalf("downloadedBytes = %d, want 1234", sessions[0].DownloadedBytes)
	}
	if sessions[0].Status != domain.SessionDownloading {
		t.Fatalf("status = %s, want downloading", sessions[0].Status)
	}
}

func TestListSessionsCompletionTransitionPersisted(t *testing.T) {
	engine := newFakeEngine()
	engine.snapshots["hash1"] = domain.LiveSnapshot{
		InfoHash: "hash1", Progress: 1.0, Done: true,
		DownloadedBytes: 10000, TotalBytes: 10000,
	}
	repo := newFakeRepo()
	repo.records["s1"] = domain.SessionRecord{
		ID: "s1", InfoHash: "hash1", Status: domain.SessionDownloading,
	}

	uc := ListSessions{Engine: engine, Repo: repo, Log: discardLogger()}
	sessions, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if sessions[0].Status != domain.SessionCompleted {
		t.Fatalf("status = %s, want completed", sessions[0].Status)
	}
	if sessions[0].Progress != 100 {
		t.Fatalf("progress = %v, want 100", sessions[0].Progress)
	}
	stored, _ := repo.Get(context.Background(), "s1")
	if stored.Status != domain.SessionCompleted {
		t.Fatalf("transition not persisted, stored status = %s", stored.Status)
	}
}

func TestListSessionsNoSnapshotKeepsPersistedValues(t *testing.T) {
	repo := newFakeRepo()
	repo.records["s1"] = domain.SessionRecord{
		ID: "s1", InfoHash: "hash1", Status: domain.SessionPaused,
		Progress: 55.5, DownloadedBytes: 500,
	}

	uc := ListSessions{Engine: newFakeEngine(), Repo: repo, Log: discardLogger()}
	sessions, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if sessions[0].Progress != 55.5 || sessions[0].DownloadedBytes != 500 {
		t.Fatalf("persisted values overwritten: %+v", sessions[0])
	}
}

func TestListSessionsCompletedSnapshotOverPausedRecord(t *testing.T) {
	engine := newFakeEngine()
	engine.snapshots["hash1"] = domain.LiveSnapshot{InfoHash: "hash1", Progress: 1.0, Done: true}
	repo := newFakeRepo()
	repo.records["s1"] = domain.SessionRecord{ID: "s1", InfoHash: "hash1", Status: domain.SessionPaused}

	uc := ListSessions{Engine: engine, Repo: repo, Log: discardLogger()}
	sessions, err := uc.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	// Only downloading records transition; paused stays paused.
	if sessions[0].Status != domain.SessionPaused {
		t.Fatalf("status = %s, want paused", sessions[0].Status)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	uc := GetSession{Engine: newFakeEngine(), Repo: newFakeRepo(), Log: discardLogger()}
	_, err := uc.Execute(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetSessionMergesLiveState(t *testing.T) {
	engine := newFakeEngine()
	engine.snapshots["hash1"] = domain.LiveSnapshot{
		InfoHash: "hash1", Progress: 0.5, DownloadedBytes: 5000, TotalBytes: 10000,
	}
	repo := newFakeRepo()
	repo.records["s1"] = domain.SessionRecord{ID: "s1", InfoHash: "hash1", Status: domain.SessionDownloading}

	uc := GetSession{Engine: engine, Repo: repo, Log: discardLogger()}
	record, err := uc.Execute(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if record.Progress != 50 || record.DownloadedBytes != 5000 {
		t.Fatalf("merge failed: %+v", record)
	}
}
