package anacrolix

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/anacrolix/torrent"
	"github.com/anacrolix/torrent/metainfo"

	"github.com/2xkl/PeerFlow/internal/domain"
	"github.com/2xkl/PeerFlow/internal/domain/ports"
)

// defaultMaxConns is the value restored when resuming a hard-paused transfer.
const defaultMaxConns = 35

const defaultMetadataTimeout = 60 * time.Second

type Config struct {
	DataDir         string
	MetadataTimeout time.Duration // max wait for metadata on add; 0 = default 60s
	Logger          *slog.Logger
}

// Engine adapts the anacrolix torrent client to ports.Engine. It is the sole
// owner of the client; every public method serializes commands per info hash
// so a pause racing a remove for the same transfer executes in order while
// unrelated transfers proceed in parallel.
type Engine struct {
	client          *torrent.Client
	metadataTimeout time.Duration
	log             *slog.Logger

	mu       sync.RWMutex
	torrents map[domain.InfoHash]*torrent.Torrent
	paused   map[domain.InfoHash]bool

	speedMu sync.Mutex
	speeds  map[domain.InfoHash]speedSample

	locks keyedMutex
}

var _ ports.Engine = (*Engine)(nil)

func New(cfg Config) (*Engine, error) {
	clientConfig := torrent.NewDefaultClientConfig()
	if cfg.DataDir != "" {
		clientConfig.DataDir = cfg.DataDir
	}
	clientConfig.Seed = true

	client, err := torrent.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}
	return newWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client *torrent.Client) *Engine {
	return newWithClient(client, Config{})
}

func newWithClient(client *torrent.Client, cfg Config) *Engine {
	timeout := cfg.MetadataTimeout
	if timeout <= 0 {
		timeout = defaultMetadataTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		client:          client,
		metadataTimeout: timeout,
		log:             log,
		torrents:        make(map[domain.InfoHash]*torrent.Torrent),
		paused:          make(map[domain.InfoHash]bool),
		speeds:          make(map[domain.InfoHash]speedSample),
	}
}

// ---------------------------------------------------------------------------
// Add
// ---------------------------------------------------------------------------

func (e *Engine) AddMagnet(ctx context.Context, uri string) (domain.LiveSnapshot, error) {
	if e.client == nil {
		return domain.LiveSnapshot{}, errors.New("torrent client not configured")
	}
	t, err := e.client.AddMagnet(uri)
	if err != nil {
		return domain.LiveSnapshot{}, err
	}
	return e.register(ctx, t)
}

func (e *Engine) AddTorrentData(ctx context.Context, raw []byte) (domain.LiveSnapshot, error) {
	if e.client == nil {
		return domain.LiveSnapshot{}, errors.New("torrent client not configured")
	}
	mi, err := metainfo.Load(bytes.NewReader(raw))
	if err != nil {
		return domain.LiveSnapshot{}, err
	}
	t, err := e.client.AddTorrent(mi)
	if err != nil {
		return domain.LiveSnapshot{}, err
	}
	return e.register(ctx, t)
}

// register waits for metadata, enables sequential delivery and starts the
// download. An already-tracked hash returns the existing transfer's snapshot
// so callers can detect duplicates without disturbing engine state.
func (e *Engine) register(ctx context.Context, t *torrent.Torrent) (domain.LiveSnapshot, error) {
	h := domain.InfoHash(t.InfoHash().HexString())

	unlock := e.locks.lock(h)
	defer unlock()

	e.mu.Lock()
	if existing, ok := e.torrents[h]; ok {
		e.mu.Unlock()
		return e.buildSnapshot(h, existing, true), nil
	}
	e.torrents[h] = t
	e.mu.Unlock()

	select {
	case <-t.GotInfo():
	case <-time.After(e.metadataTimeout):
		e.forget(h, t)
		return domain.LiveSnapshot{}, domain.ErrEngineTimeout
	case <-ctx.Done():
		e.forget(h, t)
		return domain.LiveSnapshot{}, ctx.Err()
	}

	e.enableSequentialDelivery(t)
	t.DownloadAll()

	return e.buildSnapshot(h, t, true), nil
}

// ---------------------------------------------------------------------------
// Lifecycle commands
// ---------------------------------------------------------------------------

func (e *Engine) Remove(ctx context.Context, h domain.InfoHash) error {
	unlock := e.locks.lock(h)
	defer unlock()

	t := e.getTorrent(h)
	if t == nil {
		return nil
	}
	e.forget(h, t)
	return nil
}

func (e *Engine) Pause(ctx context.Context, h domain.InfoHash) error {
	unlock := e.locks.lock(h)
	defer unlock()

	t := e.getTorrent(h)
	if t == nil {
		return nil
	}
	t.DisallowDataDownload()
	t.DisallowDataUpload()
	t.SetMaxEstablishedConns(0)

	e.mu.Lock()
	e.paused[h] = true
	e.mu.Unlock()
	return nil
}

func (e *Engine) Resume(ctx context.Context, h domain.InfoHash) error {
	unlock := e.locks.lock(h)
	defer unlock()

	t := e.getTorrent(h)
	if t == nil {
		return nil
	}
	t.SetMaxEstablishedConns(defaultMaxConns)
	t.AllowDataUpload()
	t.AllowDataDownload()
	if torrentInfoReady(t) {
		t.DownloadAll()
	}

	e.mu.Lock()
	delete(e.paused, h)
	e.mu.Unlock()
	return nil
}

func (e *Engine) Close() error {
	if e.client == nil {
		return nil
	}
	errList := e.client.Close()
	if len(errList) > 0 {
		return errList[0]
	}
	return nil
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

func (e *Engine) Snapshot(ctx context.Context, h domain.InfoHash) (domain.LiveSnapshot, bool) {
	t := e.getTorrent(h)
	if t == nil {
		return domain.LiveSnapshot{}, false
	}
	return e.buildSnapshot(h, t, false), true
}

func (e *Engine) AllSnapshots(ctx context.Context) []domain.LiveSnapshot {
	e.mu.RLock()
	hashes := make([]domain.InfoHash, 0, len(e.torrents))
	for h := range e.torrents {
		hashes = append(hashes, h)
	}
	e.mu.RUnlock()

	snapshots := make([]domain.LiveSnapshot, 0, len(hashes))
	for _, h := range hashes {
		if snap, ok := e.Snapshot(ctx, h); ok {
			snapshots = append(snapshots, snap)
		}
	}
	return snapshots
}

func (e *Engine) IsActive(h domain.InfoHash) bool {
	return e.getTorrent(h) != nil
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

func (e *Engine) getTorrent(h domain.InfoHash) *torrent.Torrent {
	e.mu.RLock()
	t := e.torrents[h]
	e.mu.RUnlock()
	if t == nil {
		return nil
	}
	select {
	case <-t.Closed():
		e.forget(h, t)
		return nil
	default:
		return t
	}
}

func (e *Engine) forget(h domain.InfoHash, t *torrent.Torrent) {
	e.mu.Lock()
	delete(e.torrents, h)
	delete(e.paused, h)
	e.mu.Unlock()
	e.forgetSpeed(h)
	if t != nil {
		t.Drop()
	}
	// Return freed memory to the OS promptly; the GC can otherwise hold on
	// to large piece buffers long enough to OOM constrained deployments.
	runtime.GC()
	debug.FreeOSMemory()
}

func (e *Engine) buildSnapshot(h domain.InfoHash, t *torrent.Torrent, withFiles bool) domain.LiveSnapshot {
	snap := domain.LiveSnapshot{
		InfoHash: h,
		Name:     t.Name(),
	}

	stats := t.Stats()
	snap.Peers = stats.ActivePeers
	snap.DownloadRate, snap.UploadRate = e.sampleSpeed(h, stats, time.Now().UTC())

	if !torrentInfoReady(t) {
		return snap
	}

	length := t.Length()
	completed := t.BytesCompleted()
	snap.TotalBytes = length
	snap.DownloadedBytes = completed
	if length > 0 {
		snap.Progress = float64(completed) / float64(length)
		snap.Done = completed >= length
	}
	if withFiles {
		snap.Files = e.mapFiles(t)
	}
	return snap
}

func (e *Engine) mapFiles(t *torrent.Torrent) (mapped []domain.SnapshotFile) {
	if !torrentInfoReady(t) {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("mapFiles panic recovered",
				slog.Any("error", r),
				slog.String("stack", string(debug.Stack())),
			)
			mapped = nil
		}
	}()

	files := t.Files()
	mapped = make([]domain.SnapshotFile, 0, len(files))
	for _, f := range files {
		mapped = append(mapped, domain.SnapshotFile{
			Name:   f.DisplayPath(),
			Path:   f.Path(),
			Length: f.Length(),
		})
	}
	return mapped
}

func torrentInfoReady(t *torrent.Torrent) bool {
	if t == nil {
		return false
	}
	select {
	case <-t.GotInfo():
		return true
	default:
		return false
	}
}

type speedSample struct {
	at           time.Time
	bytesRead    int64
	bytesWritten int64
}

func (e *Engine) sampleSpeed(h domain.InfoHash, stats torrent.TorrentStats, now time.Time) (int64, int64) {
	currentRead := stats.BytesReadUsefulData.Int64()
	currentWritten := stats.BytesWrittenData.Int64()

	e.speedMu.Lock()
	defer e.speedMu.Unlock()

	prev, ok := e.speeds[h]
	e.speeds[h] = speedSample{
		at:           now,
		bytesRead:    currentRead,
		bytesWritten: currentWritten,
	}

	if !ok || prev.at.IsZero() {
		return 0, 0
	}

	dt := now.Sub(prev.at).Seconds()
	if dt <= 0 {
		return 0, 0
	}

	deltaRead := currentRead - prev.bytesRead
	deltaWritten := currentWritten - prev.bytesWritten
	if deltaRead < 0 {
		deltaRead = 0
	}
	if deltaWritten < 0 {
		deltaWritten = 0
	}

	download := int64(float64(deltaRead) / dt)
	upload := int64(float64(deltaWritten) / dt)
	return download, upload
}

func (e *Engine) forgetSpeed(h domain.InfoHash) {
	e.speedMu.Lock()
	delete(e.speeds, h)
	e.speedMu.Unlock()
}
