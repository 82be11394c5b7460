package usecase

import (
	"context"
	"log/slog"

	"github.com/2xkl/PeerFlow/internal/domain"
	"github.com/2xkl/PeerFlow/internal/domain/ports"
)

type GetSession struct {
	Engine ports.Engine
	Repo   ports.SessionRepository
	Log    *slog.Logger
}

func (uc GetSession) Execute(ctx context.Context, id domain.SessionID) (domain.SessionRecord, error) {
	record, err := uc.Repo.Get(ctx, id)
	if err != nil {
		return domain.SessionRecord{}, wrapRepo(err)
	}
	return mergeLiveState(ctx, uc.Engine, uc.Repo, uc.Log, record), nil
}
