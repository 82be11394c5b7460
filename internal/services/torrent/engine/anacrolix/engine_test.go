package anacrolix

import (
	"sync"
	"testing"
	"time"

	"github.com/anacrolix/torrent"

	"github.com/2xkl/PeerFlow/internal/domain"
	"github.com/2xkl/PeerFlow/internal/domain/ports"
)

func statsWithCounts(read, written int64) torrent.TorrentStats {
	var stats torrent.TorrentStats
	stats.BytesReadUsefulData.Add(read)
	stats.BytesWrittenData.Add(written)
	return stats
}

func TestEngineImplementsPortsEngine(t *testing.T) {
	var _ ports.Engine = (*Engine)(nil)
}

// ---------------------------------------------------------------------------
// Speed sampling
// ---------------------------------------------------------------------------

func TestSampleSpeedFirstObservationIsZero(t *testing.T) {
	e := &Engine{speeds: make(map[domain.InfoHash]speedSample)}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	download, upload := e.sampleSpeed("h1", statsWithCounts(1000, 500), now)
	if download != 0 || upload != 0 {
		t.Fatalf("first sample should be zero, got %d/%d", download, upload)
	}
}

func TestSampleSpeedDelta(t *testing.T) {
	e := &Engine{speeds: make(map[domain.InfoHash]speedSample)}
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	_, _ = e.sampleSpeed("h1", statsWithCounts(1000, 500), start)

	download, upload := e.sampleSpeed("h1", statsWithCounts(3000, 1500), start.Add(2*time.Second))
	if download != 1000 {
		t.Fatalf("download = %d, want 1000", download)
	}
	if upload != 500 {
		t.Fatalf("upload = %d, want 500", upload)
	}
}

func TestSampleSpeedNegativeDeltaClamped(t *testing.T) {
	e := &Engine{speeds: make(map[domain.InfoHash]speedSample)}
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	_, _ = e.sampleSpeed("h1", statsWithCounts(1000, 500), start)

	download, upload := e.sampleSpeed("h1", statsWithCounts(50, 20), start.Add(time.Second))
	if download != 0 || upload != 0 {
		t.Fatalf("negative delta should clamp to 0, got %d/%d", download, upload)
	}
}

func TestForgetSpeedCleanup(t *testing.T) {
	e := &Engine{speeds: make(map[domain.InfoHash]speedSample)}
	now := time.Now().UTC()
	_, _ = e.sampleSpeed("h1", statsWithCounts(10, 10), now)

	e.forgetSpeed("h1")
	if _, ok := e.speeds["h1"]; ok {
		t.Fatal("forgetSpeed should remove entry")
	}
}

// ---------------------------------------------------------------------------
// Piece span math
// ---------------------------------------------------------------------------

func TestSpanForRange(t *testing.T) {
	const pieceSize = 1 << 20 // 1 MiB

	cases := []struct {
		name      string
		numPieces int
		off       int64
		length    int64
		remaining int64
		want      pieceSpan
	}{
		{"aligned head", 100, 0, 4 * pieceSize, 100 * pieceSize, pieceSpan{0, 4}},
		{"mid file unaligned", 100, pieceSize + 100, pieceSize, 50 * pieceSize, pieceSpan{1, 3}},
		{"clamped to piece space", 10, 8 * pieceSize, 10 * pieceSize, 10 * pieceSize, pieceSpan{8, 10}},
		{"beyond piece space", 10, 20 * pieceSize, pieceSize, pieceSize, pieceSpan{}},
		{"zero length", 10, 0, 0, pieceSize, pieceSpan{}},
		{"exhausted remaining", 10, 0, pieceSize, 0, pieceSpan{}},
		{"length capped by remaining", 100, 0, 10 * pieceSize, 2 * pieceSize, pieceSpan{0, 2}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := spanForRange(pieceSize, tc.numPieces, tc.off, tc.length, tc.remaining)
			if got != tc.want {
				t.Fatalf("spanForRange = %+v, want %+v", got, tc.want)
			}
		})
	}
}

// Layout of a 40 MiB playable file at 1 MiB pieces: the 16 MiB tail preload
// [24, 40) overlaps the Next band [8, 24) at piece 24 onward and the whole
// Readahead band [24, 40). The tail must keep Now regardless of band order.
func TestResolveBandsOverlapKeepsHighest(t *testing.T) {
	bands := []pieceBand{
		{pieceSpan{0, 8}, torrent.PiecePriorityNow},
		{pieceSpan{8, 24}, torrent.PiecePriorityNext},
		{pieceSpan{24, 40}, torrent.PiecePriorityReadahead},
		{pieceSpan{24, 40}, torrent.PiecePriorityNow},
	}

	plan := resolveBands(bands)
	if len(plan) != 40 {
		t.Fatalf("plan covers %d pieces, want 40", len(plan))
	}
	for p := 0; p < 8; p++ {
		if plan[p] != torrent.PiecePriorityNow {
			t.Fatalf("head piece %d = %v, want Now", p, plan[p])
		}
	}
	for p := 8; p < 24; p++ {
		if plan[p] != torrent.PiecePriorityNext {
			t.Fatalf("piece %d = %v, want Next", p, plan[p])
		}
	}
	for p := 24; p < 40; p++ {
		if plan[p] != torrent.PiecePriorityNow {
			t.Fatalf("tail piece %d = %v, want Now", p, plan[p])
		}
	}
}

func TestResolveBandsDisjoint(t *testing.T) {
	bands := []pieceBand{
		{pieceSpan{0, 2}, torrent.PiecePriorityNow},
		{pieceSpan{5, 7}, torrent.PiecePriorityReadahead},
	}

	plan := resolveBands(bands)
	if len(plan) != 4 {
		t.Fatalf("plan covers %d pieces, want 4", len(plan))
	}
	if plan[1] != torrent.PiecePriorityNow || plan[6] != torrent.PiecePriorityReadahead {
		t.Fatalf("unexpected plan: %v", plan)
	}
	if _, ok := plan[3]; ok {
		t.Fatal("uncovered piece should not appear in the plan")
	}
}

// ---------------------------------------------------------------------------
// Keyed mutex
// ---------------------------------------------------------------------------

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	var km keyedMutex
	var order []int
	var mu sync.Mutex

	unlock := km.lock("h1")

	done := make(chan struct{})
	go func() {
		defer close(done)
		u := km.lock("h1")
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		u()
	}()

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	order = append(order, 1)
	mu.Unlock()
	unlock()

	<-done
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("unexpected order: %v", order)
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	var km keyedMutex
	unlock := km.lock("h1")
	defer unlock()

	acquired := make(chan struct{})
	go func() {
		u := km.lock("h2")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key should not block")
	}
}

func TestKeyedMutexEntryRemovedAfterUnlock(t *testing.T) {
	var km keyedMutex
	unlock := km.lock("h1")
	unlock()

	km.mu.Lock()
	defer km.mu.Unlock()
	if len(km.locks) != 0 {
		t.Fatalf("expected empty lock table, got %d entries", len(km.locks))
	}
}
