package usecase

import (
	"context"

	"github.com/2xkl/PeerFlow/internal/domain"
	"github.com/2xkl/PeerFlow/internal/domain/ports"
)

type RemoveSession struct {
	Engine ports.Engine
	Repo   ports.SessionRepository
}

// Execute tears down the live transfer and deletes the record; embedded file
// metadata goes with it. The removed record is returned so the caller can
// delete payload blobs when asked to. Payload deletion itself is not this
// service's job.
func (uc RemoveSession) Execute(ctx context.Context, id domain.SessionID) (domain.SessionRecord, error) {
	record, err := uc.Repo.Get(ctx, id)
	if err != nil {
		return domain.SessionRecord{}, wrapRepo(err)
	}

	if err := uc.Engine.Remove(ctx, record.InfoHash); err != nil {
		return domain.SessionRecord{}, wrapEngine(err)
	}

	if err := uc.Repo.Delete(ctx, id); err != nil {
		return domain.SessionRecord{}, wrapRepo(err)
	}
	return record, nil
}
