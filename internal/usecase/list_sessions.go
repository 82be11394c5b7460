package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/2xkl/PeerFlow/internal/domain"
	"github.com/2xkl/PeerFlow/internal/domain/ports"
)

type ListSessions struct {
	Engine ports.Engine
	Repo   ports.SessionRepository
	Log    *slog.Logger
}

// Execute returns all sessions with live engine state merged in. Persisted
// progress is only authoritative for sessions without a live transfer.
func (uc ListSessions) Execute(ctx context.Context) ([]domain.SessionRecord, error) {
	records, err := uc.Repo.List(ctx)
	if err != nil {
		return nil, wrapRepo(err)
	}

	merged := make([]domain.SessionRecord, 0, len(records))
	for _, record := range records {
		merged = append(merged, mergeLiveState(ctx, uc.Engine, uc.Repo, uc.Log, record))
	}
	return merged, nil
}

// mergeLiveState overlays the engine snapshot onto a persisted record. A
// finished snapshot over a still-downloading record transitions it to
// completed and persists the transition; persistence failures are logged,
// the caller still gets the merged view.
func mergeLiveState(ctx context.Context, engine ports.Engine, repo ports.SessionRepository, log *slog.Logger, record domain.SessionRecord) domain.SessionRecord {
	snap, ok := engine.Snapshot(ctx, record.InfoHash)
	if !ok {
		return record
	}

	record.Progress = snap.ProgressPercent()
	record.DownloadedBytes = snap.DownloadedBytes
	if snap.TotalBytes > 0 {
		record.SizeBytes = snap.TotalBytes
	}

	if snap.Done && record.Status == domain.SessionDownloading {
		record.Status = domain.SessionCompleted
		record.UpdatedAt = time.Now().UTC()
		if err := repo.Update(ctx, record); err != nil && log != nil {
			log.Warn("failed to persist completion transition",
				slog.String("sessionId", string(record.ID)),
				slog.Any("error", err),
			)
		}
	}
	return record
}
