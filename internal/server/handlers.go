package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"podcaster/internal/feeds"
	"podcaster/internal/logging"
	"podcaster/internal/rss"
	"podcaster/internal/services"
)

const maxRequestBytes = 64 << 10

type generateRequest struct {
	Request string `json:"request"`
}

type episodesResponse struct {
	Episodes []feeds.EpisodeRecord `json:"episodes"`
}

type healthResponse struct {
	Ready  bool                `json:"ready"`
	Checks []healthCheckStatus `json:"checks"`
}

type healthCheckStatus struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Ready: true}
	for _, check := range s.svc.Health(r.Context()) {
		resp.Checks = append(resp.Checks, healthCheckStatus{Name: check.Name, Ready: check.Ready, Detail: check.Detail})
		if !check.Ready {
			resp.Ready = false
		}
	}
	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	body, err := s.svc.RSS(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", rss.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	record, err := s.svc.Feed(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleReplaceFeed(w http.ResponseWriter, r *http.Request) {
	var feed feeds.Feed
	if err := decodeBody(w, r, &feed); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	record, err := s.svc.ReplaceFeed(r.Context(), feed)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	withAudio := false
	if value := strings.TrimSpace(r.URL.Query().Get("with_audio")); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "with_audio must be a boolean")
			return
		}
		withAudio = parsed
	}
	records, err := s.svc.Episodes(r.Context(), withAudio)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, episodesResponse{Episodes: records})
}

func (s *Server) handleEpisode(w http.ResponseWriter, r *http.Request) {
	record, err := s.svc.Episode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "json" || strings.Contains(r.Header.Get("Accept"), "application/json") {
		s.writeJSON(w, http.StatusOK, record)
		return
	}
	page, err := renderEpisodePage(record)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	id, ok := s.episodeID(w, r.URL.Query().Get("id"))
	if !ok {
		return
	}
	record, err := s.svc.Episode(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	f, err := os.Open(s.svc.AudioPath(record.ID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.writeError(w, http.StatusNotFound, "audio not uploaded")
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeContent(w, r, record.ID+".mp3", info.ModTime(), f)
}

func (s *Server) handleUploadAudio(w http.ResponseWriter, r *http.Request) {
	id, ok := s.episodeID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	record, _, err := s.svc.StoreAudio(r.Context(), id, http.MaxBytesReader(w, r.Body, maxAudioBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "audio exceeds upload limit")
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *Server) handlePremise(w http.ResponseWriter, r *http.Request) {
	req, ok := s.generateRequest(w, r)
	if !ok {
		return
	}
	res, err := s.svc.Premise(r.Context(), req.Request)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEpisodePremise(w http.ResponseWriter, r *http.Request) {
	req, ok := s.generateRequest(w, r)
	if !ok {
		return
	}
	res, err := s.svc.EpisodePremise(r.Context(), req.Request)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	req, ok := s.generateRequest(w, r)
	if !ok {
		return
	}
	res, err := s.svc.Script(r.Context(), req.Request)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, res)
}

func (s *Server) generateRequest(w http.ResponseWriter, r *http.Request) (generateRequest, bool) {
	var req generateRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	if strings.TrimSpace(req.Request) == "" {
		s.writeError(w, http.StatusBadRequest, "request is required")
		return req, false
	}
	return req, true
}

// episodeID accepts only document IDs, which keeps audio paths inside the
// audio directory.
func (s *Server) episodeID(w http.ResponseWriter, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		s.writeError(w, http.StatusBadRequest, "episode id is required")
		return "", false
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid episode id")
		return "", false
	}
	return parsed.String(), true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps classified errors to status codes. Internal
// failures are logged and answered without detail.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context(), s.logger).Error("request failed",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.Error(err),
		)
	}
	if status == http.StatusInternalServerError {
		s.writeError(w, status, "internal error")
		return
	}
	s.writeError(w, status, err.Error())
}
