package web

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/runixer/trendstudio/internal/playground"
	"github.com/runixer/trendstudio/internal/storage"
)

const filesRoute = "/api/playground/files/"

type batchRequest struct {
	TrendIDs []int64           `json:"trend_ids"`
	Params   playground.Params `json:"params"`
}

type batchResponse struct {
	Items   []playground.BatchItem  `json:"items"`
	Summary playground.BatchSummary `json:"summary"`
}

type playgroundLogView struct {
	ID               int64     `json:"id"`
	TrendID          *int64    `json:"trend_id,omitempty"`
	Kind             string    `json:"kind"`
	Prompt           string    `json:"prompt"`
	RequestBody      string    `json:"request_body,omitempty"`
	ResponseBody     string    `json:"response_body,omitempty"`
	Model            string    `json:"model"`
	ImageURL         string    `json:"image_url,omitempty"`
	Success          bool      `json:"success"`
	ErrorMessage     string    `json:"error,omitempty"`
	DurationMs       int       `json:"duration_ms"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalCost        *float64  `json:"total_cost,omitempty"`
	Metadata         string    `json:"metadata,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type playgroundLogsResponse struct {
	Data  []playgroundLogView `json:"data"`
	Total int                 `json:"total"`
}

func (s *Server) playgroundAvailable(w http.ResponseWriter) bool {
	if s.runner == nil || !s.cfg.Playground.Enabled {
		writeError(w, http.StatusServiceUnavailable, playground.ErrDisabled.Error())
		return false
	}
	return true
}

// publishImage points ImageURL at the file route for images saved to disk.
func publishImage(res *playground.Result) {
	if res.ImageFile != "" {
		res.ImageURL = filesRoute + res.ImageFile
	}
}

func (s *Server) playgroundRunHandler(w http.ResponseWriter, r *http.Request) {
	if !s.playgroundAvailable(w) {
		return
	}
	cfg, ok := readJSON[playground.Config](w, r, s.cfg.Server.BodyLimit)
	if !ok {
		return
	}
	res := s.runner.Run(r.Context(), cfg)
	publishImage(&res)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) playgroundBatchHandler(w http.ResponseWriter, r *http.Request) {
	if !s.playgroundAvailable(w) {
		return
	}
	req, ok := readJSON[batchRequest](w, r, s.cfg.Server.BodyLimit)
	if !ok {
		return
	}
	items := s.runner.BatchTest(r.Context(), req.TrendIDs, req.Params)
	for i := range items {
		publishImage(&items[i].Result)
	}
	if items == nil {
		items = []playground.BatchItem{}
	}
	writeJSON(w, http.StatusOK, batchResponse{Items: items, Summary: playground.Summarize(items)})
}

func (s *Server) playgroundLogsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.PlaygroundLogFilter{
		Kind:    q.Get("kind"),
		Success: boolQuery(r, "success"),
		Search:  q.Get("search"),
	}
	if v, err := strconv.ParseInt(q.Get("trend_id"), 10, 64); err == nil {
		filter.TrendID = v
	}
	limit, offset := pagination(r)

	result, err := s.logs.GetPlaygroundLogs(filter, limit, offset)
	if err != nil {
		writeInternalError(w, s.logger, "failed to get playground logs", err)
		return
	}

	views := make([]playgroundLogView, 0, len(result.Data))
	for _, l := range result.Data {
		views = append(views, playgroundLogView{
			ID:               l.ID,
			TrendID:          l.TrendID,
			Kind:             l.Kind,
			Prompt:           l.Prompt,
			RequestBody:      l.RequestBody,
			ResponseBody:     l.ResponseBody,
			Model:            l.Model,
			ImageURL:         l.ImageURL,
			Success:          l.Success,
			ErrorMessage:     l.ErrorMessage,
			DurationMs:       l.DurationMs,
			PromptTokens:     l.PromptTokens,
			CompletionTokens: l.CompletionTokens,
			TotalCost:        l.TotalCost,
			Metadata:         l.Metadata,
			CreatedAt:        l.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, playgroundLogsResponse{Data: views, Total: result.TotalCount})
}

func (s *Server) playgroundFileHandler(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil || s.runner.Files() == nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	path, ok := s.runner.Files().Path(urlParam(r, "name"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return
	}
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	http.ServeFile(w, r, path)
}
