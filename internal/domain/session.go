package domain

import (
	"errors"
	"time"
)

type SessionID string

type InfoHash string

// SessionRecord is the persisted view of one tracked transfer. Progress and
// DownloadedBytes are refreshed from a LiveSnapshot on every read while the
// session is active; the stored values are only authoritative for sessions
// without a live engine instance (e.g. right after a restart).
type SessionRecord struct {
	ID              SessionID     `json:"id"`
	InfoHash        InfoHash      `json:"infoHash"`
	Name            string        `json:"name"`
	MagnetURI       string        `json:"magnetUri,omitempty"`
	Status          SessionStatus `json:"status"`
	Progress        float64       `json:"progress"`
	SizeBytes       int64         `json:"sizeBytes"`
	DownloadedBytes int64         `json:"downloadedBytes"`
	SavePath        string        `json:"savePath"`
	Files           []SessionFile `json:"files"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// SessionFile is one constituent payload file. The file set is fixed when the
// session is created from engine metadata; only MimeType and StorageKey may
// be enriched afterwards.
type SessionFile struct {
	ID         SessionID `json:"id"`
	SessionID  SessionID `json:"sessionId"`
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"sizeBytes"`
	MimeType   string    `json:"mimeType,omitempty"`
	Playable   bool      `json:"playable"`
	StorageKey string    `json:"storageKey,omitempty"`
}

// Key returns the blob key used to address this file's bytes in storage.
func (f SessionFile) Key() string {
	if f.StorageKey != "" {
		return f.StorageKey
	}
	return f.Path
}

// Validate checks domain invariants for SessionRecord.
func (r SessionRecord) Validate() error {
	if r.ID == "" {
		return errors.New("session id is required")
	}
	if r.InfoHash == "" {
		return errors.New("info hash is required")
	}
	if r.SizeBytes < 0 {
		return errors.New("sizeBytes must not be negative")
	}
	if r.DownloadedBytes < 0 {
		return errors.New("downloadedBytes must not be negative")
	}
	if r.Progress < 0 || r.Progress > 100 {
		return errors.New("progress must be within [0,100]")
	}
	switch r.Status {
	case SessionDownloading, SessionSeeding, SessionPaused, SessionError, SessionCompleted:
		// valid
	case "":
		return errors.New("status is required")
	default:
		return errors.New("invalid status: " + string(r.Status))
	}
	return nil
}
