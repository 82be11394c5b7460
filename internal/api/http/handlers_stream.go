package apihttp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/2xkl/PeerFlow/internal/domain"
	"github.com/2xkl/PeerFlow/internal/metrics"
)

type streamInfoResponse struct {
	FileSize int64  `json:"fileSize"`
	MimeType string `json:"mimeType"`
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.resolveStream == nil || s.store == nil {
		writeError(w, http.StatusNotImplemented, "not_implemented", "streaming not configured")
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/stream/")
	if rest == "" {
		writeError(w, http.StatusNotFound, "not_found", "file id is required")
		return
	}

	fileID, tail, _ := strings.Cut(rest, "/")
	info, err := s.resolveStream.Execute(r.Context(), domain.SessionID(fileID))
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	if tail == "info" {
		writeJSON(w, http.StatusOK, streamInfoResponse{FileSize: info.SizeBytes, MimeType: info.MimeType})
		return
	}
	if tail != "" {
		http.NotFound(w, r)
		return
	}

	size := info.SizeBytes
	w.Header().Set("Content-Type", info.MimeType)
	w.Header().Set("Accept-Ranges", "bytes")
	// Close the connection after streaming so keep-alive does not hold the
	// range reader open after the player stops playback.
	w.Header().Set("Connection", "close")

	if r.Method == http.MethodHead {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		return
	}

	rangeHeader := r.Header.Get("Range")
	if rangeHeader != "" {
		start, end, err := parseByteRange(rangeHeader, size)
		if errors.Is(err, errInvalidRange) {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid range")
			return
		}
		if errors.Is(err, errRangeNotSatisfiable) {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}

		reader, err := s.store.OpenRange(info.Key, start, end)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to open stream")
			return
		}
		defer reader.Close()

		length := end - start + 1
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
		w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
		w.WriteHeader(http.StatusPartialContent)
		metrics.StreamRequestsTotal.WithLabelValues("partial").Inc()
		if n, err := io.Copy(w, reader); err != nil {
			// The peer going away mid-stream is routine; headers are out,
			// all we can do is release the reader and log.
			s.logger.Debug("stream range copy interrupted",
				slog.String("fileId", fileID),
				slog.Int64("sent", n),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	if size == 0 {
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(http.StatusOK)
		return
	}
	reader, err := s.store.OpenRange(info.Key, 0, size-1)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to open stream")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
	metrics.StreamRequestsTotal.WithLabelValues("full").Inc()
	if n, err := io.Copy(w, reader); err != nil {
		s.logger.Debug("stream copy interrupted",
			slog.String("fileId", fileID),
			slog.Int64("sent", n),
			slog.String("error", err.Error()),
		)
	}
}
