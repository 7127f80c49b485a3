// Package trend manages trends: named prompt presets shown to bot users.
//
// A trend keeps its prompt twice: as the four prompt fields the bot reads
// (scene, style, avoid, composition) and as the editable section list. Every
// write through this package keeps both forms consistent.
package trend

import (
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/runixer/trendstudio/internal/prompt"
	"github.com/runixer/trendstudio/internal/storage"
)

var (
	ErrNotFound = errors.New("trend not found")
	ErrInvalid  = errors.New("invalid trend")
	ErrConflict = errors.New("trend slug already exists")

	ErrSectionNotFound = errors.New("section not found")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Trend is the domain view of a stored trend.
type Trend struct {
	ID                int64             `json:"id"`
	Slug              string            `json:"slug"`
	Title             string            `json:"title"`
	Emoji             string            `json:"emoji"`
	Description       string            `json:"description"`
	ScenePrompt       string            `json:"scene_prompt"`
	StylePreset       prompt.StyleValue `json:"style_preset"`
	NegativeScene     string            `json:"negative_scene"`
	CompositionPrompt *string           `json:"composition_prompt"`
	PromptSections    []prompt.Section  `json:"prompt_sections,omitempty"`
	Enabled           bool              `json:"enabled"`
	SortOrder         int               `json:"sort_order"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// FullPrompt renders the four prompt fields as flat text.
func (t Trend) FullPrompt() string {
	composition := ""
	if t.CompositionPrompt != nil {
		composition = *t.CompositionPrompt
	}
	return prompt.Build(t.ScenePrompt, t.StylePreset.String(), t.NegativeScene, composition)
}

// Input is the payload for creating a trend. Enabled defaults to true.
type Input struct {
	Slug              string            `json:"slug"`
	Title             string            `json:"title"`
	Emoji             string            `json:"emoji"`
	Description       string            `json:"description"`
	ScenePrompt       string            `json:"scene_prompt"`
	StylePreset       prompt.StyleValue `json:"style_preset"`
	NegativeScene     string            `json:"negative_scene"`
	CompositionPrompt *string           `json:"composition_prompt"`
	PromptSections    []prompt.Section  `json:"prompt_sections"`
	Enabled           *bool             `json:"enabled"`
	SortOrder         int               `json:"sort_order"`
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Slug              *string            `json:"slug"`
	Title             *string            `json:"title"`
	Emoji             *string            `json:"emoji"`
	Description       *string            `json:"description"`
	ScenePrompt       *string            `json:"scene_prompt"`
	StylePreset       *prompt.StyleValue `json:"style_preset"`
	NegativeScene     *string            `json:"negative_scene"`
	CompositionPrompt *string            `json:"composition_prompt"`
	Enabled           *bool              `json:"enabled"`
	SortOrder         *int               `json:"sort_order"`
}

// Fields returns the JSON names of the fields set in the patch.
func (p Patch) Fields() []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(p.Slug != nil, "slug")
	add(p.Title != nil, "title")
	add(p.Emoji != nil, "emoji")
	add(p.Description != nil, "description")
	add(p.ScenePrompt != nil, "scene_prompt")
	add(p.StylePreset != nil, "style_preset")
	add(p.NegativeScene != nil, "negative_scene")
	add(p.CompositionPrompt != nil, "composition_prompt")
	add(p.Enabled != nil, "enabled")
	add(p.SortOrder != nil, "sort_order")
	return fields
}

// touchesPrompt reports whether the patch changes any of the four prompt fields.
func (p Patch) touchesPrompt() bool {
	return p.ScenePrompt != nil || p.StylePreset != nil || p.NegativeScene != nil || p.CompositionPrompt != nil
}

type Filter struct {
	Search  string
	Enabled *bool
}

func validate(slug, title string) error {
	var errs []error
	if !slugPattern.MatchString(slug) {
		errs = append(errs, errors.New("slug must be lowercase letters, digits, '-' or '_'"))
	}
	if strings.TrimSpace(title) == "" {
		errs = append(errs, errors.New("title is required"))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalid}, errs...)...)
}

// applyBlocks writes parsed blocks into the four prompt fields.
func (t *Trend) applyBlocks(b prompt.Blocks) {
	t.ScenePrompt = b.Scene
	t.StylePreset = b.Style
	t.NegativeScene = b.Avoid
	t.CompositionPrompt = optional(b.Composition)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func fromStorage(st storage.Trend, logger *slog.Logger) Trend {
	t := Trend{
		ID:                st.ID,
		Slug:              st.Slug,
		Title:             st.Title,
		Emoji:             st.Emoji,
		Description:       st.Description,
		ScenePrompt:       st.ScenePrompt,
		StylePreset:       decodeStyle(st.StylePreset),
		NegativeScene:     st.NegativeScene,
		CompositionPrompt: st.CompositionPrompt,
		Enabled:           st.Enabled,
		SortOrder:         st.SortOrder,
		CreatedAt:         st.CreatedAt,
		UpdatedAt:         st.UpdatedAt,
	}
	if st.PromptSections != "" {
		var sections []prompt.Section
		if err := json.Unmarshal([]byte(st.PromptSections), &sections); err != nil {
			logger.Warn("ignoring malformed prompt_sections", "trend_id", st.ID, "error", err)
		} else {
			t.PromptSections = sections
		}
	}
	return t
}

func toStorage(t Trend) (storage.Trend, error) {
	st := storage.Trend{
		ID:                t.ID,
		Slug:              t.Slug,
		Title:             t.Title,
		Emoji:             t.Emoji,
		Description:       t.Description,
		ScenePrompt:       t.ScenePrompt,
		NegativeScene:     t.NegativeScene,
		CompositionPrompt: t.CompositionPrompt,
		Enabled:           t.Enabled,
		SortOrder:         t.SortOrder,
	}
	if !t.StylePreset.IsZero() {
		data, err := json.Marshal(t.StylePreset)
		if err != nil {
			return st, err
		}
		st.StylePreset = string(data)
	}
	if len(t.PromptSections) > 0 {
		data, err := json.Marshal(t.PromptSections)
		if err != nil {
			return st, err
		}
		st.PromptSections = string(data)
	}
	return st, nil
}

// decodeStyle reads style_preset, which holds JSON written by this package
// or plain text written by older tools.
func decodeStyle(raw string) prompt.StyleValue {
	if strings.TrimSpace(raw) == "" {
		return prompt.StyleValue{}
	}
	var v prompt.StyleValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return prompt.ParseStyle(raw)
	}
	return v
}
