package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/2xkl/PeerFlow/internal/domain"
	"github.com/2xkl/PeerFlow/internal/domain/ports"
)

const defaultRestoreConcurrency = 4

type RestoreSessions struct {
	Engine      ports.Engine
	Repo        ports.SessionRepository
	Log         *slog.Logger
	Concurrency int
}

type RestoreResult struct {
	Restored int
	Failed   int
	Skipped  int
}

// Execute re-registers every persisted session that should be live after a
// restart. One failing session is marked with error status and logged; it
// never aborts the rest of the pass.
func (uc RestoreSessions) Execute(ctx context.Context) (RestoreResult, error) {
	records, err := uc.Repo.ListByStatus(ctx, domain.SessionDownloading, domain.SessionSeeding)
	if err != nil {
		return RestoreResult{}, wrapRepo(err)
	}

	log := uc.Log
	if log == nil {
		log = slog.Default()
	}
	limit := uc.Concurrency
	if limit <= 0 {
		limit = defaultRestoreConcurrency
	}

	var restored, failed, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, record := range records {
		record := record
		if strings.TrimSpace(record.MagnetURI) == "" || uc.Engine.IsActive(record.InfoHash) {
			skipped.Add(1)
			continue
		}
		g.Go(func() error {
			if _, err := uc.Engine.AddMagnet(gctx, record.MagnetURI); err != nil {
				failed.Add(1)
				log.Error("session restore failed",
					slog.String("sessionId", string(record.ID)),
					slog.String("infoHash", string(record.InfoHash)),
					slog.Any("error", err),
				)
				if updErr := uc.Repo.UpdateStatus(gctx, record.ID, domain.SessionError); updErr != nil {
					log.Warn("failed to mark session as errored",
						slog.String("sessionId", string(record.ID)),
						slog.Any("error", updErr),
					)
				}
				return nil
			}
			restored.Add(1)
			log.Info("session restored",
				slog.String("sessionId", string(record.ID)),
				slog.String("infoHash", string(record.InfoHash)),
			)
			return nil
		})
	}
	_ = g.Wait()

	return RestoreResult{
		Restored: int(restored.Load()),
		Failed:   int(failed.Load()),
		Skipped:  int(skipped.Load()),
	}, nil
}
