package usecase

import (
	"context"
	"time"

	"github.com/2xkl/PeerFlow/internal/domain"
	"github.com/2xkl/PeerFlow/internal/domain/ports"
)

type PauseSession struct {
	Engine ports.Engine
	Repo   ports.SessionRepository
}

// Execute halts the live transfer and persists the paused status. The engine
// side is a no-op when no transfer is active for the hash; the status change
// is recorded either way so a later restore does not resurrect it.
func (uc PauseSession) Execute(ctx context.Context, id domain.SessionID) (domain.SessionRecord, error) {
	record, err := uc.Repo.Get(ctx, id)
	if err != nil {
		return domain.SessionRecord{}, wrapRepo(err)
	}

	if err := uc.Engine.Pause(ctx, record.InfoHash); err != nil {
		return domain.SessionRecord{}, wrapEngine(err)
	}

	if err := uc.Repo.UpdateStatus(ctx, id, domain.SessionPaused); err != nil {
		return domain.SessionRecord{}, wrapRepo(err)
	}
	record.Status = domain.SessionPaused
	record.UpdatedAt = time.Now().UTC()
	return record, nil
}

type ResumeSession struct {
	Engine ports.Engine
	Repo   ports.SessionRepository
}

func (uc ResumeSession) Execute(ctx context.Context, id domain.SessionID) (domain.SessionRecord, error) {
	record, err := uc.Repo.Get(ctx, id)
	if err != nil {
		return domain.SessionRecord{}, wrapRepo(err)
	}

	if err := uc.Engine.Resume(ctx, record.InfoHash); err != nil {
		return domain.SessionRecord{}, wrapEngine(err)
	}

	if err := uc.Repo.UpdateStatus(ctx, id, domain.SessionDownloading); err != nil {
		return domain.SessionRecord{}, wrapRepo(err)
	}
	record.Status = domain.SessionDownloading
	record.UpdatedAt = time.Now().UTC()
	return record, nil
}
