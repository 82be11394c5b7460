package ports

import (
	"context"

	"github.com/2xkl/PeerFlow/internal/domain"
)

type SessionRepository interface {
	Create(ctx context.Context, s domain.SessionRecord) error
	Get(ctx context.Context, id domain.SessionID) (domain.SessionRecord, error)
	GetByInfoHash(ctx context.Context, h domain.InfoHash) (domain.SessionRecord, error)
	List(ctx context.Context) ([]domain.SessionRecord, error)
	ListByStatus(ctx context.Context, statuses ...domain.SessionStatus) ([]domain.SessionRecord, error)
	Update(ctx context.Context, s domain.SessionRecord) error
	UpdateStatus(ctx context.Context, id domain.SessionID, status domain.SessionStatus) error
	Delete(ctx context.Context, id domain.SessionID) error
	// GetFile looks a file up by its own id across all sessions and returns
	// it together with the owning session.
	GetFile(ctx context.Context, fileID domain.SessionID) (domain.SessionFile, domain.SessionRecord, error)
	EnsureIndexes(ctx context.Context) error
}
