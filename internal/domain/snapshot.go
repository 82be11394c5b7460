package domain

import "math"

// LiveSnapshot is the engine-reported state of an active transfer. It is
// built fresh on every read at the adapter boundary and never persisted;
// the engine library's native types must not travel past the adapter.
type LiveSnapshot struct {
	InfoHash        InfoHash       `json:"infoHash"`
	Name            string         `json:"name"`
	Progress        float64        `json:"progress"` // fraction in [0,1]
	DownloadRate    int64          `json:"downloadSpeed"`
	UploadRate      int64          `json:"uploadSpeed"`
	Peers           int            `json:"numPeers"`
	DownloadedBytes int64          `json:"downloaded"`
	TotalBytes      int64          `json:"size"`
	Done            bool           `json:"done"`
	Files           []SnapshotFile `json:"files,omitempty"`
}

// SnapshotFile is one payload file as reported by the engine at add time.
type SnapshotFile struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Length int64  `json:"length"`
}

// ProgressPercent converts the snapshot fraction to a percentage rounded to
// two decimals, the precision stored on SessionRecord.
func (s LiveSnapshot) ProgressPercent() float64 {
	return math.Round(s.Progress*10000) / 100
}
