package domain

import (
	"mime"
	"path/filepath"
	"strings"
)

// playableExtensions lists container formats browsers can seek through over
// byte-range requests. Files outside this set are still downloadable, just
// not marked playable.
var playableExtensions = map[string]struct{}{
	".mp4":  {},
	".mkv":  {},
	".avi":  {},
	".mov":  {},
	".wmv":  {},
	".flv":  {},
	".webm": {},
	".m4v":  {},
	".mpg":  {},
	".mpeg": {},
	".ts":   {},
	".ogv":  {},
}

// mimeFallback covers extensions the platform mime database often misses.
var mimeFallback = map[string]string{
	".mkv":  "video/x-matroska",
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".mpg":  "video/mpeg",
	".mpeg": "video/mpeg",
	".ts":   "video/mp2t",
	".ogv":  "video/ogg",
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".srt":  "application/x-subrip",
}

// Playable reports whether the file name looks like seekable media.
func Playable(name string) bool {
	_, ok := playableExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// MimeByName resolves a content type for a file name, preferring the
// platform mime database and falling back to a built-in table. Returns
// "application/octet-stream" when nothing matches.
func MimeByName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return "application/octet-stream"
	}
	if mt, ok := mimeFallback[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}
	return "application/octet-stream"
}
