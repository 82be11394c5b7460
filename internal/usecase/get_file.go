package usecase

import (
	"context"

	"github.com/2xkl/PeerFlow/internal/domain"
	"github.com/2xkl/PeerFlow/internal/domain/ports"
)

type GetFile struct {
	Repo ports.SessionRepository
}

func (uc GetFile) Execute(ctx context.Context, fileID domain.SessionID) (domain.SessionFile, domain.SessionRecord, error) {
	file, session, err := uc.Repo.GetFile(ctx, fileID)
	if err != nil {
		return domain.SessionFile{}, domain.SessionRecord{}, wrapRepo(err)
	}
	return file, session, nil
}
