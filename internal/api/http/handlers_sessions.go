package apihttp

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/2xkl/PeerFlow/internal/domain"
	"github.com/2xkl/PeerFlow/internal/usecase"
)

type addSessionRequest struct {
	MagnetURI         string `json:"magnetUri"`
	TorrentFileBase64 string `json:"torrentFileBase64"`
}

type listResponse struct {
	Items interface{} `json:"items"`
	Count int         `json:"count"`
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSessions(w, r)
	case http.MethodPost:
		s.handleAddSession(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.listSessions == nil {
		writeError(w, http.StatusNotImplemented, "not_implemented", "listing not configured")
		return
	}
	sessions, err := s.listSessions.Execute(r.Context())
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: sessions, Count: len(sessions)})
}

func (s *Server) handleAddSession(w http.ResponseWriter, r *http.Request) {
	var req addSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	input := usecase.AddSessionInput{MagnetURI: req.MagnetURI}
	if raw := strings.TrimSpace(req.TorrentFileBase64); raw != "" {
		data, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "torrentFileBase64 is not valid base64")
			return
		}
		input.TorrentData = data
	}

	record, err := s.addSession.Execute(r.Context(), input)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (s *Server) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if rest == "" {
		writeError(w, http.StatusNotFound, "not_found", "session id is required")
		return
	}

	parts := strings.SplitN(rest, "/", 2)
	id := domain.SessionID(parts[0])
	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		s.handleGetSession(w, r, id)
	case action == "" && r.Method == http.MethodDelete:
		s.handleRemoveSession(w, r, id)
	case action == "pause" && r.Method == http.MethodPost:
		s.handlePauseSession(w, r, id)
	case action == "resume" && r.Method == http.MethodPost:
		s.handleResumeSession(w, r, id)
	case action == "files" && r.Method == http.MethodGet:
		s.handleSessionFiles(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	if s.getSession == nil {
		writeError(w, http.StatusNotImplemented, "not_implemented", "lookup not configured")
		return
	}
	record, err := s.getSession.Execute(r.Context(), id)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleRemoveSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	if s.removeSession == nil {
		writeError(w, http.StatusNotImplemented, "not_implemented", "removal not configured")
		return
	}
	deleteFiles, err := parseBoolQuery(r.URL.Query().Get("deleteFiles"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "deleteFiles must be true or false")
		return
	}

	record, err := s.removeSession.Execute(r.Context(), id)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}

	if deleteFiles && s.store != nil {
		for _, f := range record.Files {
			if err := s.store.Delete(f.Key()); err != nil {
				s.logger.Warn("failed to delete payload file",
					slog.String("sessionId", string(id)),
					slog.String("key", f.Key()),
					slog.Any("error", err),
				)
			}
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "session removed"})
}

func (s *Server) handlePauseSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	if s.pauseSession == nil {
		writeError(w, http.StatusNotImplemented, "not_implemented", "pause not configured")
		return
	}
	record, err := s.pauseSession.Execute(r.Context(), id)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleResumeSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	if s.resumeSession == nil {
		writeError(w, http.StatusNotImplemented, "not_implemented", "resume not configured")
		return
	}
	record, err := s.resumeSession.Execute(r.Context(), id)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleSessionFiles(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	if s.getSession == nil {
		writeError(w, http.StatusNotImplemented, "not_implemented", "lookup not configured")
		return
	}
	record, err := s.getSession.Execute(r.Context(), id)
	if err != nil {
		writeUseCaseError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: record.Files, Count: len(record.Files)})
}
