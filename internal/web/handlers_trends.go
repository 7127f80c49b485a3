package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/runixer/trendstudio/internal/trend"
)

type trendListResponse struct {
	Data  []trend.Trend `json:"data"`
	Total int           `json:"total"`
}

func trendKey(id int64) string {
	return "trend:" + strconv.FormatInt(id, 10)
}

// serveCached writes the cached body for key, or calls load, encodes its
// result and caches it. load reports failures itself and returns ok=false.
// A result loaded across a mutation is served but not cached.
func (s *Server) serveCached(w http.ResponseWriter, key string, load func() (any, bool)) {
	if body, ok := s.cache.get(key); ok {
		writeRawJSON(w, http.StatusOK, body)
		return
	}
	gen := s.cache.generation()
	v, ok := load()
	if !ok {
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		writeInternalError(w, s.logger, "failed to encode response", err)
		return
	}
	s.cache.set(key, body, gen)
	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) listTrendsHandler(w http.ResponseWriter, r *http.Request) {
	filter := trend.Filter{
		Search:  r.URL.Query().Get("search"),
		Enabled: boolQuery(r, "enabled"),
	}
	s.serveCached(w, "trends:"+r.URL.Query().Encode(), func() (any, bool) {
		trends, err := s.trends.List(r.Context(), filter)
		if err != nil {
			writeTrendError(w, s.logger, err)
			return nil, false
		}
		if trends == nil {
			trends = []trend.Trend{}
		}
		return trendListResponse{Data: trends, Total: len(trends)}, true
	})
}

func (s *Server) getTrendHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.serveCached(w, trendKey(id), func() (any, bool) {
		t, err := s.trends.Get(r.Context(), id)
		if err != nil {
			writeTrendError(w, s.logger, err)
			return nil, false
		}
		return t, true
	})
}

func (s *Server) createTrendHandler(w http.ResponseWriter, r *http.Request) {
	in, ok := readJSON[trend.Input](w, r, s.cfg.Server.BodyLimit)
	if !ok {
		return
	}
	t, err := s.trends.Create(r.Context(), in)
	if err != nil {
		writeTrendError(w, s.logger, err)
		return
	}
	s.cache.invalidate()
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) updateTrendHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	patch, ok := readJSON[trend.Patch](w, r, s.cfg.Server.BodyLimit)
	if !ok {
		return
	}
	t, err := s.trends.Update(r.Context(), id, patch)
	if err != nil {
		writeTrendError(w, s.logger, err)
		return
	}
	s.cache.invalidate()
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTrendHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := s.trends.Delete(r.Context(), id); err != nil {
		writeTrendError(w, s.logger, err)
		return
	}
	s.cache.invalidate()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getSectionsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	sections, err := s.trends.Sections(r.Context(), id)
	if err != nil {
		writeTrendError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sectionsPayload{Sections: sections})
}

func (s *Server) putSectionsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[sectionsPayload](w, r, s.cfg.Server.BodyLimit)
	if !ok {
		return
	}
	t, err := s.trends.SaveSections(r.Context(), id, req.Sections)
	if err != nil {
		writeTrendError(w, s.logger, err)
		return
	}
	s.cache.invalidate()
	writeJSON(w, http.StatusOK, t)
}

type moveSectionRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type toggleSectionRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) resetSectionsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	t, err := s.trends.ResetSections(r.Context(), id)
	if err != nil {
		writeTrendError(w, s.logger, err)
		return
	}
	s.cache.invalidate()
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) moveSectionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[moveSectionRequest](w, r, s.cfg.Server.BodyLimit)
	if !ok {
		return
	}
	t, err := s.trends.MoveSection(r.Context(), id, req.From, req.To)
	if err != nil {
		writeTrendError(w, s.logger, err)
		return
	}
	s.cache.invalidate()
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) toggleSectionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[toggleSectionRequest](w, r, s.cfg.Server.BodyLimit)
	if !ok {
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}
	t, err := s.trends.SetSectionEnabled(r.Context(), id, urlParam(r, "sectionID"), *req.Enabled)
	if err != nil {
		writeTrendError(w, s.logger, err)
		return
	}
	s.cache.invalidate()
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) getFullPromptHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	text, err := s.trends.FullPrompt(r.Context(), id)
	if err != nil {
		writeTrendError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, textResponse{Text: text})
}

func (s *Server) putFullPromptHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[textRequest](w, r, s.cfg.Server.BodyLimit)
	if !ok {
		return
	}
	t, err := s.trends.SetFullPrompt(r.Context(), id, req.Text)
	if err != nil {
		writeTrendError(w, s.logger, err)
		return
	}
	s.cache.invalidate()
	writeJSON(w, http.StatusOK, t)
}
