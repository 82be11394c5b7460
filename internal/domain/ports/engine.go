package ports

import (
	"context"

	"github.com/2xkl/PeerFlow/internal/domain"
)

// Engine is the transfer-engine boundary. Implementations own the underlying
// client and translate its state to domain.LiveSnapshot; engine-library types
// never cross this interface.
type Engine interface {
	// AddMagnet registers a transfer from a magnet URI and blocks until
	// metadata is known or the configured timeout elapses
	// (domain.ErrEngineTimeout).
	AddMagnet(ctx context.Context, uri string) (domain.LiveSnapshot, error)
	// AddTorrentData registers a transfer from raw bencoded metainfo bytes.
	AddTorrentData(ctx context.Context, raw []byte) (domain.LiveSnapshot, error)
	// Remove drops the transfer. No-op for an untracked hash.
	Remove(ctx context.Context, infoHash domain.InfoHash) error
	// Pause halts all network activity. No-op for an untracked hash.
	Pause(ctx context.Context, infoHash domain.InfoHash) error
	// Resume restores network activity. No-op for an untracked hash.
	Resume(ctx context.Context, infoHash domain.InfoHash) error
	Snapshot(ctx context.Context, infoHash domain.InfoHash) (domain.LiveSnapshot, bool)
	AllSnapshots(ctx context.Context) []domain.LiveSnapshot
	IsActive(infoHash domain.InfoHash) bool
	Close() error
}
