package usecase

import (
	"context"

	"github.com/2xkl/PeerFlow/internal/domain"
	"github.com/2xkl/PeerFlow/internal/domain/ports"
)

type StreamInfo struct {
	Key       string
	SizeBytes int64
	MimeType  string
	File      domain.SessionFile
	Session   domain.SessionRecord
}

type ResolveStreamInfo struct {
	Repo  ports.SessionRepository
	Store ports.BlobStore
}

// Execute resolves everything the streaming handlers need for one file. The
// on-disk size wins over the persisted one while the transfer is still
// writing; the persisted size is the fallback when the blob is not there yet.
func (uc ResolveStreamInfo) Execute(ctx context.Context, fileID domain.SessionID) (StreamInfo, error) {
	file, session, err := uc.Repo.GetFile(ctx, fileID)
	if err != nil {
		return StreamInfo{}, wrapRepo(err)
	}

	key := file.Key()
	size := file.SizeBytes
	if uc.Store.Exists(key) {
		if diskSize, sizeErr := uc.Store.Size(key); sizeErr == nil {
			size = diskSize
		}
	}

	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = domain.MimeByName(file.Path)
	}

	return StreamInfo{
		Key:       key,
		SizeBytes: size,
		MimeType:  mimeType,
		File:      file,
		Session:   session,
	}, nil
}
