package anacrolix

import (
	"log/slog"
	"runtime/debug"

	"github.com/anacrolix/torrent"

	"github.com/2xkl/PeerFlow/internal/domain"
)

// Startup gradient for the first playable file. The head bands get the
// player to first frame fast; the tail preload covers container indexes
// (mp4 moov atoms, mkv cues) that players read before any payload.
const (
	headNowBytes       = 8 << 20
	headNextBytes      = 16 << 20
	headReadaheadBytes = 32 << 20
	tailPreloadBytes   = 16 << 20
)

type pieceSpan struct {
	start int
	end   int // exclusive
}

type pieceBand struct {
	span pieceSpan
	prio torrent.PiecePriority
}

// resolveBands flattens overlapping bands into one priority per piece,
// keeping the highest request where bands overlap. SetPriority overwrites
// the stored priority rather than raising it, so the tail preload of a
// short file would otherwise lose to a later lower-priority band.
func resolveBands(bands []pieceBand) map[int]torrent.PiecePriority {
	plan := make(map[int]torrent.PiecePriority)
	for _, b := range bands {
		for p := b.span.start; p < b.span.end; p++ {
			if cur, ok := plan[p]; !ok || b.prio > cur {
				plan[p] = b.prio
			}
		}
	}
	return plan
}

// enableSequentialDelivery biases piece selection toward in-order delivery
// of the first playable file so playback can start before the transfer
// completes. Transfers without a playable file are left on the default
// rarest-first strategy.
func (e *Engine) enableSequentialDelivery(t *torrent.Torrent) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("enableSequentialDelivery recovered from panic",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	if !torrentInfoReady(t) {
		return
	}

	target := firstPlayableFile(t.Files())
	if target == nil {
		return
	}

	pieceSize := int64(t.Info().PieceLength)
	numPieces := t.NumPieces()
	if pieceSize <= 0 || numPieces <= 0 {
		return
	}

	offset := target.Offset()
	length := target.Length()

	tailOff := offset + length - tailPreloadBytes
	if tailOff < offset {
		tailOff = offset
	}

	bands := []pieceBand{
		{spanForRange(pieceSize, numPieces, offset, headNowBytes, length), torrent.PiecePriorityNow},
		{spanForRange(pieceSize, numPieces, offset+headNowBytes, headNextBytes, length-headNowBytes), torrent.PiecePriorityNext},
		{spanForRange(pieceSize, numPieces, offset+headNowBytes+headNextBytes, headReadaheadBytes, length-headNowBytes-headNextBytes), torrent.PiecePriorityReadahead},
		{spanForRange(pieceSize, numPieces, tailOff, tailPreloadBytes, offset+length-tailOff), torrent.PiecePriorityNow},
	}

	for p, prio := range resolveBands(bands) {
		t.Piece(p).SetPriority(prio)
	}

	e.log.Debug("sequential delivery enabled",
		slog.String("infoHash", t.InfoHash().HexString()),
		slog.String("file", target.Path()),
	)
}

func firstPlayableFile(files []*torrent.File) *torrent.File {
	for _, f := range files {
		if domain.Playable(f.Path()) {
			return f
		}
	}
	return nil
}

// spanForRange converts a byte range [off, off+length) to a piece span,
// clamped to the torrent's piece space. remaining caps the range at what is
// actually left of the file; a non-positive remaining yields an empty span.
func spanForRange(pieceSize int64, numPieces int, off, length, remaining int64) pieceSpan {
	if pieceSize <= 0 || numPieces <= 0 || length <= 0 || remaining <= 0 {
		return pieceSpan{}
	}
	if length > remaining {
		length = remaining
	}
	if off < 0 {
		length += off
		off = 0
		if length <= 0 {
			return pieceSpan{}
		}
	}
	end := off + length

	startPiece := int(off / pieceSize)
	endPiece := int((end + pieceSize - 1) / pieceSize)
	if startPiece >= numPieces {
		return pieceSpan{}
	}
	if endPiece > numPieces {
		endPiece = numPieces
	}
	if endPiece <= startPiece {
		return pieceSpan{}
	}
	return pieceSpan{start: startPiece, end: endPiece}
}
