package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2xkl/PeerFlow/internal/domain"
	"github.com/2xkl/PeerFlow/internal/domain/ports"
)

type AddSession struct {
	Engine  ports.Engine
	Repo    ports.SessionRepository
	Now     func() time.Time
	DataDir string // engine data dir, recorded as the session save path
}

type AddSessionInput struct {
	MagnetURI   string
	TorrentData []byte // raw bencoded metainfo
}

// Execute registers the transfer with the engine, waits for metadata and
// persists the session. A hash already known to the repository yields
// domain.ErrAlreadyExists; the engine side dedupes internally, so the
// conflict leaves no orphaned transfer behind.
func (uc AddSession) Execute(ctx context.Context, input AddSessionInput) (domain.SessionRecord, error) {
	magnet := strings.TrimSpace(input.MagnetURI)
	if magnet == "" && len(input.TorrentData) == 0 {
		return domain.SessionRecord{}, domain.ErrInvalidRequest
	}

	now := time.Now
	if uc.Now != nil {
		now = uc.Now
	}

	var (
		snap domain.LiveSnapshot
		err  error
	)
	if magnet != "" {
		snap, err = uc.Engine.AddMagnet(ctx, magnet)
	} else {
		snap, err = uc.Engine.AddTorrentData(ctx, input.TorrentData)
	}
	if err != nil {
		return domain.SessionRecord{}, wrapEngine(err)
	}

	if _, getErr := uc.Repo.GetByInfoHash(ctx, snap.InfoHash); getErr == nil {
		return domain.SessionRecord{}, domain.ErrAlreadyExists
	}

	sessionID := domain.SessionID(uuid.NewString())
	files := make([]domain.SessionFile, 0, len(snap.Files))
	for _, f := range snap.Files {
		files = append(files, domain.SessionFile{
			ID:         domain.SessionID(uuid.NewString()),
			SessionID:  sessionID,
			Path:       f.Path,
			SizeBytes:  f.Length,
			MimeType:   domain.MimeByName(f.Path),
			Playable:   domain.Playable(f.Path),
			StorageKey: f.Path,
		})
	}

	record := domain.SessionRecord{
		ID:              sessionID,
		InfoHash:        snap.InfoHash,
		Name:            snap.Name,
		MagnetURI:       magnet,
		Status:          domain.SessionDownloading,
		Progress:        0,
		SizeBytes:       snap.TotalBytes,
		DownloadedBytes: 0,
		SavePath:        uc.DataDir,
		Files:           files,
		CreatedAt:       now().UTC(),
		UpdatedAt:       now().UTC(),
	}

	if err := uc.Repo.Create(ctx, record); err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) {
			// A non-conflict persistence failure leaves the engine transfer
			// orphaned; tear it down before reporting.
			_ = uc.Engine.Remove(ctx, snap.InfoHash)
		}
		return domain.SessionRecord{}, wrapRepo(err)
	}

	return record, nil
}
