package trend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/runixer/trendstudio/internal/audit"
	"github.com/runixer/trendstudio/internal/prompt"
	"github.com/runixer/trendstudio/internal/storage"
)

// Service reads and writes trends, keeping prompt fields and sections in sync.
type Service struct {
	repo   storage.TrendRepository
	audit  *audit.Recorder
	logger *slog.Logger
}

func NewService(repo storage.TrendRepository, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		audit:  recorder,
		logger: logger.With("component", "trend"),
	}
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Trend, error) {
	stored, err := s.repo.GetTrends(storage.TrendFilter{Search: filter.Search, Enabled: filter.Enabled})
	if err != nil {
		return nil, err
	}
	trends := make([]Trend, 0, len(stored))
	for _, st := range stored {
		trends = append(trends, fromStorage(st, s.logger))
	}
	return trends, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Trend, error) {
	st, err := s.repo.GetTrend(id)
	if err != nil {
		return nil, mapStorageError(id, err)
	}
	t := fromStorage(*st, s.logger)
	return &t, nil
}

// Create stores a new trend. When sections are given they win over the
// prompt fields, which are then derived from them.
func (s *Service) Create(ctx context.Context, in Input) (*Trend, error) {
	if err := validate(in.Slug, in.Title); err != nil {
		return nil, err
	}

	t := Trend{
		Slug:              in.Slug,
		Title:             in.Title,
		Emoji:             in.Emoji,
		Description:       in.Description,
		ScenePrompt:       in.ScenePrompt,
		StylePreset:       in.StylePreset,
		NegativeScene:     in.NegativeScene,
		CompositionPrompt: in.CompositionPrompt,
		Enabled:           true,
		SortOrder:         in.SortOrder,
	}
	if in.Enabled != nil {
		t.Enabled = *in.Enabled
	}
	if len(in.PromptSections) > 0 {
		sections, err := normalizeSections(in.PromptSections)
		if err != nil {
			return nil, err
		}
		t.PromptSections = sections
		t.applyBlocks(prompt.Parse(prompt.SectionsToFlatText(sections)))
	}

	st, err := toStorage(t)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.CreateTrend(st)
	if err != nil {
		return nil, mapStorageError(0, err)
	}

	s.logger.Info("trend created", "trend_id", id, "slug", t.Slug)
	s.audit.Record(ctx, audit.ActionCreate, audit.EntityTrend, strconv.FormatInt(id, 10), map[string]string{"slug": t.Slug})

	return s.Get(ctx, id)
}

// Update applies a partial change. Changing any prompt field drops the stored
// sections; Sections then derives them from the new fields.
func (s *Service) Update(ctx context.Context, id int64, patch Patch) (*Trend, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Slug != nil {
		t.Slug = *patch.Slug
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Emoji != nil {
		t.Emoji = *patch.Emoji
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.ScenePrompt != nil {
		t.ScenePrompt = *patch.ScenePrompt
	}
	if patch.StylePreset != nil {
		t.StylePreset = *patch.StylePreset
	}
	if patch.NegativeScene != nil {
		t.NegativeScene = *patch.NegativeScene
	}
	if patch.CompositionPrompt != nil {
		t.CompositionPrompt = optional(*patch.CompositionPrompt)
	}
	if patch.Enabled != nil {
		t.Enabled = *patch.Enabled
	}
	if patch.SortOrder != nil {
		t.SortOrder = *patch.SortOrder
	}
	if patch.touchesPrompt() {
		t.PromptSections = nil
	}

	if err := validate(t.Slug, t.Title); err != nil {
		return nil, err
	}
	if err := s.save(*t); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.ActionUpdate, audit.EntityTrend, strconv.FormatInt(id, 10), map[string][]string{"fields": patch.Fields()})
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteTrend(id); err != nil {
		return mapStorageError(id, err)
	}
	s.logger.Info("trend deleted", "trend_id", id)
	s.audit.Record(ctx, audit.ActionDelete, audit.EntityTrend, strconv.FormatInt(id, 10), nil)
	return nil
}

// Sections returns the stored sections, or derives them from the prompt
// fields for trends never edited by sections.
func (s *Service) Sections(ctx context.Context, id int64) ([]prompt.Section, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(t.PromptSections) > 0 {
		return prompt.Resequence(t.PromptSections), nil
	}
	return prompt.FlatTextToSections(t.FullPrompt()), nil
}

// SaveSections stores sections and rewrites the prompt fields from the
// enabled ones.
func (s *Service) SaveSections(ctx context.Context, id int64, sections []prompt.Section) (*Trend, error) {
	normalized, err := normalizeSections(sections)
	if err != nil {
		return nil, err
	}

	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t.PromptSections = normalized
	t.applyBlocks(prompt.Parse(prompt.SectionsToFlatText(normalized)))

	if err := s.save(*t); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.ActionUpdate, audit.EntityTrend, strconv.FormatInt(id, 10), map[string]int{"sections": len(normalized)})
	return s.Get(ctx, id)
}

// ResetSections replaces the sections with the four empty canonical ones,
// which also clears the prompt fields.
func (s *Service) ResetSections(ctx context.Context, id int64) (*Trend, error) {
	return s.SaveSections(ctx, id, prompt.DefaultSections())
}

// MoveSection moves the section at position from to position to.
func (s *Service) MoveSection(ctx context.Context, id int64, from, to int) (*Trend, error) {
	sections, err := s.Sections(ctx, id)
	if err != nil {
		return nil, err
	}
	if from < 0 || from >= len(sections) || to < 0 || to >= len(sections) {
		return nil, fmt.Errorf("%w: section position out of range 0..%d", ErrInvalid, len(sections)-1)
	}
	return s.SaveSections(ctx, id, prompt.Move(sections, from, to))
}

// SetSectionEnabled toggles one stored section. Derived sections get fresh
// IDs on every read, so only trends saved by sections can be toggled.
func (s *Service) SetSectionEnabled(ctx context.Context, id int64, sectionID string, enabled bool) (*Trend, error) {
	sections, err := s.Sections(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, ok := prompt.SetEnabled(sections, sectionID, enabled)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
	}
	return s.SaveSections(ctx, id, updated)
}

func (s *Service) FullPrompt(ctx context.Context, id int64) (string, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return t.FullPrompt(), nil
}

// SetFullPrompt parses flat text into the prompt fields and replaces the
// sections with the ones split from the same text.
func (s *Service) SetFullPrompt(ctx context.Context, id int64, text string) (*Trend, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	t.applyBlocks(prompt.Parse(text))
	t.PromptSections = prompt.FlatTextToSections(text)

	if err := s.save(*t); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.ActionUpdate, audit.EntityTrend, strconv.FormatInt(id, 10), map[string][]string{"fields": {"full_prompt"}})
	return s.Get(ctx, id)
}

func (s *Service) save(t Trend) error {
	st, err := toStorage(t)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateTrend(st); err != nil {
		return mapStorageError(t.ID, err)
	}
	return nil
}

// normalizeSections assigns missing IDs, rejects duplicates and resequences.
func normalizeSections(sections []prompt.Section) ([]prompt.Section, error) {
	out := prompt.Resequence(sections)
	seen := make(map[string]bool, len(out))
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.NewString()
		}
		if seen[out[i].ID] {
			return nil, fmt.Errorf("%w: duplicate section id %q", ErrInvalid, out[i].ID)
		}
		seen[out[i].ID] = true
	}
	return out, nil
}

func mapStorageError(id int64, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	case errors.Is(err, storage.ErrDuplicate):
		return ErrConflict
	default:
		return err
	}
}
