// Package runlog records generation exchanges made from the playground.
package runlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/runixer/trendstudio/internal/storage"
)

// Kind tells a single playground run from a batch test item.
type Kind string

const (
	KindRun   Kind = "run"
	KindBatch Kind = "batch"
)

// Exchange is one request/response pair sent to the image model.
type Exchange struct {
	ID               int64       `json:"id,omitempty"`
	Kind             Kind        `json:"kind"`
	TrendID          *int64      `json:"trend_id,omitempty"`
	Prompt           string      `json:"prompt"`
	Model            string      `json:"model"`
	Request          interface{} `json:"request,omitempty"`  // Raw OpenRouter request
	Response         interface{} `json:"response,omitempty"` // Raw OpenRouter response
	ImageURL         string      `json:"image_url,omitempty"`
	Success          bool        `json:"success"`
	ErrorMessage     string      `json:"error,omitempty"`
	DurationMs       int         `json:"duration_ms"`
	PromptTokens     int         `json:"prompt_tokens"`
	CompletionTokens int         `json:"completion_tokens"`
	TotalCost        *float64    `json:"total_cost,omitempty"`
	Metadata         interface{} `json:"metadata,omitempty"` // Generation parameters
}

// Logger persists exchanges to the playground log table.
type Logger struct {
	repo    storage.PlaygroundLogRepository
	logger  *slog.Logger
	enabled bool
}

// NewLogger creates a new exchange logger.
// If enabled is false, Log() calls will be no-ops.
func NewLogger(repo storage.PlaygroundLogRepository, logger *slog.Logger, enabled bool) *Logger {
	return &Logger{
		repo:    repo,
		logger:  logger.With("component", "runlog"),
		enabled: enabled,
	}
}

// Log stores the exchange and sets its ID.
// Storage failures are logged and swallowed: a lost log entry never fails a run.
func (l *Logger) Log(ctx context.Context, ex *Exchange) {
	if l == nil || !l.enabled || l.repo == nil || ex == nil {
		return
	}

	entry := storage.PlaygroundLog{
		TrendID:          ex.TrendID,
		Kind:             string(ex.Kind),
		Prompt:           ex.Prompt,
		RequestBody:      RedactDataURLs(serializeJSON(ex.Request)),
		ResponseBody:     RedactDataURLs(serializeJSON(ex.Response)),
		Model:            ex.Model,
		ImageURL:         RedactDataURLs(ex.ImageURL),
		Success:          ex.Success,
		ErrorMessage:     ex.ErrorMessage,
		DurationMs:       ex.DurationMs,
		PromptTokens:     ex.PromptTokens,
		CompletionTokens: ex.CompletionTokens,
		TotalCost:        ex.TotalCost,
		Metadata:         serializeJSON(ex.Metadata),
		CreatedAt:        time.Now().UTC(),
	}

	id, err := l.repo.AddPlaygroundLog(entry)
	if err != nil {
		l.logger.Warn("failed to save playground log",
			"kind", ex.Kind,
			"model", ex.Model,
			"error", err,
		)
		return
	}
	ex.ID = id
}

// Enabled returns whether logging is enabled.
func (l *Logger) Enabled() bool {
	return l != nil && l.enabled
}

// serializeJSON converts interface{} to JSON string.
// Returns empty string for nil or on error.
func serializeJSON(v interface{}) string {
	if v == nil {
		return ""
	}

	// Debug bodies arrive as raw JSON text already
	if s, ok := v.(string); ok {
		return s
	}

	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

var dataURLPattern = regexp.MustCompile(`data:([a-zA-Z0-9.+/-]+);base64,([A-Za-z0-9+/=]+)`)

// RedactDataURLs replaces base64 payloads of data URLs with their size.
// Generated images are megabytes of base64 and are kept as files instead.
func RedactDataURLs(s string) string {
	return dataURLPattern.ReplaceAllStringFunc(s, func(m string) string {
		parts := dataURLPattern.FindStringSubmatch(m)
		return fmt.Sprintf("data:%s;base64,<%d bytes>", parts[1], len(parts[2]))
	})
}
