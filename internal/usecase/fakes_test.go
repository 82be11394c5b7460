package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/2xkl/PeerFlow/internal/domain"
	"github.com/2xkl/PeerFlow/internal/domain/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---------------------------------------------------------------------------
// fakeEngine
// ---------------------------------------------------------------------------

type fakeEngine struct {
	mu        sync.Mutex
	addSnap   domain.LiveSnapshot
	addErr    error
	failURI   string // AddMagnet with this URI fails with addErr, others succeed
	addedURIs []string
	addedData [][]byte
	snapshots map[domain.InfoHash]domain.LiveSnapshot
	active    map[domain.InfoHash]bool
	removed   []domain.InfoHash
	paused    []domain.InfoHash
	resumed   []domain.InfoHash
}

var _ ports.Engine = (*fakeEngine)(nil)

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		snapshots: make(map[domain.InfoHash]domain.LiveSnapshot),
		active:    make(map[domain.InfoHash]bool),
	}
}

func (e *fakeEngine) AddMagnet(ctx context.Context, uri string) (domain.LiveSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.addedURIs = append(e.addedURIs, uri)
	if e.addErr != nil && (e.failURI == "" || e.failURI == uri) {
		return domain.LiveSnapshot{}, e.addErr
	}
	e.active[e.addSnap.InfoHash] = true
	return e.addSnap, nil
}

func (e *fakeEngine) AddTorrentData(ctx context.Context, raw []byte) (domain.LiveSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.addedData = append(e.addedData, raw)
	if e.addErr != nil {
		return domain.LiveSnapshot{}, e.addErr
	}
	e.active[e.addSnap.InfoHash] = true
	return e.addSnap, nil
}

func (e *fakeEngine) Remove(ctx context.Context, h domain.InfoHash) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removed = append(e.removed, h)
	delete(e.active, h)
	delete(e.snapshots, h)
	return nil
}

func (e *fakeEngine) Pause(ctx context.Context, h domain.InfoHash) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = append(e.paused, h)
	return nil
}

func (e *fakeEngine) Resume(ctx context.Context, h domain.InfoHash) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resumed = append(e.resumed, h)
	return nil
}

func (e *fakeEngine) Snapshot(ctx context.Context, h domain.InfoHash) (domain.LiveSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap, ok := e.snapshots[h]
	return snap, ok
}

func (e *fakeEngine) AllSnapshots(ctx context.Context) []domain.LiveSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snaps := make([]domain.LiveSnapshot, 0, len(e.snapshots))
	for _, s := range e.snapshots {
		snaps = append(snaps, s)
	}
	return snaps
}

func (e *fakeEngine) IsActive(h domain.InfoHash) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active[h]
}

func (e *fakeEngine) Close() error { return nil }

// ---------------------------------------------------------------------------
// fakeRepo
// ---------------------------------------------------------------------------

type fakeRepo struct {
	mu        sync.Mutex
	records   map[domain.SessionID]domain.SessionRecord
	createErr error
	updateErr error
	updates   []domain.SessionRecord
	statuses  map[domain.SessionID]domain.SessionStatus
}

var _ ports.SessionRepository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		records:  make(map[domain.SessionID]domain.SessionRecord),
		statuses: make(map[domain.SessionID]domain.SessionStatus),
	}
}

func (r *fakeRepo) Create(ctx context.Context, s domain.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.records {
		if existing.InfoHash == s.InfoHash {
			return domain.ErrAlreadyExists
		}
	}
	r.records[s.ID] = s
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, id domain.SessionID) (domain.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.records[id]
	if !ok {
		return domain.SessionRecord{}, domain.ErrNotFound
	}
	return s, nil
}

func (r *fakeRepo) GetByInfoHash(ctx context.Context, h domain.InfoHash) (domain.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.records {
		if s.InfoHash == h {
			return s, nil
		}
	}
	return domain.SessionRecord{}, domain.ErrNotFound
}

func (r *fakeRepo) List(ctx context.Context) ([]domain.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.SessionRecord, 0, len(r.records))
	for _, s := range r.records {
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeRepo) ListByStatus(ctx context.Context, statuses ...domain.SessionStatus) ([]domain.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.SessionRecord
	for _, s := range r.records {
		for _, status := range statuses {
			if s.Status == status {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeRepo) Update(ctx context.Context, s domain.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.records[s.ID]; !ok {
		return domain.ErrNotFound
	}
	r.records[s.ID] = s
	r.updates = append(r.updates, s)
	return nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id domain.SessionID, status domain.SessionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = status
	r.records[id] = s
	r.statuses[id] = status
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, id domain.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *fakeRepo) GetFile(ctx context.Context, fileID domain.SessionID) (domain.SessionFile, domain.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.records {
		for _, f := range s.Files {
			if f.ID == fileID {
				return f, s, nil
			}
		}
	}
	return domain.SessionFile{}, domain.SessionRecord{}, domain.ErrNotFound
}

func (r *fakeRepo) EnsureIndexes(ctx context.Context) error { return nil }

// ---------------------------------------------------------------------------
// fakeStore
// ---------------------------------------------------------------------------

type fakeStore struct {
	sizes map[string]int64
}

var _ ports.BlobStore = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{sizes: make(map[string]int64)}
}

func (s *fakeStore) OpenRange(key string, start, end int64) (io.ReadCloser, error) {
	return io.NopCloser(nil), nil
}

func (s *fakeStore) Create(key string) (io.WriteCloser, error) { return nil, nil }

func (s *fakeStore) Delete(key string) error { return nil }

func (s *fakeStore) Exists(key string) bool {
	_, ok := s.sizes[key]
	return ok
}

func (s *fakeStore) Size(key string) (int64, error) {
	size, ok := s.sizes[key]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return size, nil
}

func (s *fakeStore) ResolvePath(key string) (string, error) { return "/data/" + key, nil }
