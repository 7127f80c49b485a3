package trend

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runixer/trendstudio/internal/audit"
	"github.com/runixer/trendstudio/internal/prompt"
	"github.com/runixer/trendstudio/internal/storage"
)

func setupService(t *testing.T) (*Service, *storage.SQLiteStore) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	store, err := storage.NewSQLiteStore(logger, ":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })

	return NewService(store, audit.NewRecorder(store, logger), logger), store
}

func strPtr(s string) *string { return &s }

func createTrend(t *testing.T, svc *Service, in Input) *Trend {
	t.Helper()
	tr, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	return tr
}

func TestCreateAndGet(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	created := createTrend(t, svc, Input{
		Slug:              "neon-city",
		Title:             "Neon City",
		ScenePrompt:       "a portrait in a neon city",
		StylePreset:       prompt.StructuredStyle(map[string]any{"lighting": "neon"}),
		NegativeScene:     "blur",
		CompositionPrompt: strPtr("close-up"),
	})

	assert.True(t, created.Enabled, "enabled by default")
	assert.Empty(t, created.PromptSections)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a portrait in a neon city", got.ScenePrompt)
	assert.True(t, got.StylePreset.Structured())
	assert.Equal(t, "neon", got.StylePreset.Fields()["lighting"])
	require.NotNil(t, got.CompositionPrompt)
	assert.Equal(t, "close-up", *got.CompositionPrompt)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Slug: "Bad Slug", Title: "x"})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = svc.Create(ctx, Input{Slug: "ok", Title: "  "})
	assert.ErrorIs(t, err, ErrInvalid)

	createTrend(t, svc, Input{Slug: "dup", Title: "One"})
	_, err = svc.Create(ctx, Input{Slug: "dup", Title: "Two"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateWithSectionsDerivesFields(t *testing.T) {
	svc, _ := setupService(t)

	scene := prompt.NewSection("Scene", "a cat")
	avoid := prompt.NewSection("Avoid", "dogs")
	avoid.Order = 1
	disabled := prompt.NewSection("Composition", "wide shot")
	disabled.Enabled = false
	disabled.Order = 2

	tr := createTrend(t, svc, Input{
		Slug:           "cat",
		Title:          "Cat",
		ScenePrompt:    "ignored",
		PromptSections: []prompt.Section{avoid, scene, disabled},
	})

	assert.Equal(t, "a cat", tr.ScenePrompt)
	assert.Equal(t, "dogs", tr.NegativeScene)
	assert.Nil(t, tr.CompositionPrompt, "disabled sections do not reach the fields")
	require.Len(t, tr.PromptSections, 3)
	assert.Equal(t, scene.ID, tr.PromptSections[0].ID)
}

func TestUpdatePatch(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	tr := createTrend(t, svc, Input{
		Slug:              "beach",
		Title:             "Beach",
		ScenePrompt:       "sunny beach",
		CompositionPrompt: strPtr("wide"),
	})

	disabled := false
	updated, err := svc.Update(ctx, tr.ID, Patch{Title: strPtr("Beach Day"), Enabled: &disabled})
	require.NoError(t, err)
	assert.Equal(t, "Beach Day", updated.Title)
	assert.False(t, updated.Enabled)
	assert.Equal(t, "sunny beach", updated.ScenePrompt, "untouched fields survive")

	updated, err = svc.Update(ctx, tr.ID, Patch{CompositionPrompt: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.CompositionPrompt)

	_, err = svc.Update(ctx, tr.ID, Patch{Slug: strPtr("")})
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = svc.Update(ctx, 999, Patch{Title: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePromptFieldDropsStoredSections(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	tr := createTrend(t, svc, Input{Slug: "s", Title: "S"})
	_, err := svc.SaveSections(ctx, tr.ID, []prompt.Section{prompt.NewSection("Scene", "old")})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, tr.ID, Patch{ScenePrompt: strPtr("new scene")})
	require.NoError(t, err)
	assert.Empty(t, updated.PromptSections)

	sections, err := svc.Sections(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "new scene", sections[0].Content)
}

func TestDelete(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	tr := createTrend(t, svc, Input{Slug: "gone", Title: "Gone"})
	require.NoError(t, svc.Delete(ctx, tr.ID))

	_, err := svc.Get(ctx, tr.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, tr.ID), ErrNotFound)
}

func TestSectionsDerivedFromFields(t *testing.T) {
	svc, _ := setupService(t)

	tr := createTrend(t, svc, Input{
		Slug:          "derived",
		Title:         "Derived",
		ScenePrompt:   "a forest",
		StylePreset:   prompt.TextStyle("watercolor"),
		NegativeScene: "people",
	})

	sections, err := svc.Sections(context.Background(), tr.ID)
	require.NoError(t, err)
	require.Len(t, sections, 4)
	assert.Equal(t, "Scene", sections[0].Label)
	assert.Equal(t, "a forest", sections[0].Content)
	assert.Equal(t, "watercolor", sections[1].Content)
	assert.Equal(t, "people", sections[2].Content)
	assert.Equal(t, "", sections[3].Content)
}

func TestSectionsEmptyTrend(t *testing.T) {
	svc, _ := setupService(t)
	tr := createTrend(t, svc, Input{Slug: "empty", Title: "Empty"})

	sections, err := svc.Sections(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Len(t, sections, 4)
}

func TestSaveSections(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	tr := createTrend(t, svc, Input{Slug: "edit", Title: "Edit"})

	sections := []prompt.Section{
		{Label: "Scene", Content: "a {{subject}} on a roof", Enabled: true, Order: 10},
		{Label: "Style", Content: `{"mood":"calm"}`, Enabled: true, Order: 20},
		{Label: "Avoid", Content: "text", Enabled: false, Order: 30},
	}
	saved, err := svc.SaveSections(ctx, tr.ID, sections)
	require.NoError(t, err)

	assert.Equal(t, "a {{subject}} on a roof", saved.ScenePrompt)
	assert.True(t, saved.StylePreset.Structured())
	assert.Equal(t, "", saved.NegativeScene)
	require.Len(t, saved.PromptSections, 3)
	for i, s := range saved.PromptSections {
		assert.Equal(t, i, s.Order)
		assert.NotEmpty(t, s.ID)
	}

	got, err := svc.Sections(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.False(t, got[2].Enabled, "disabled sections are kept")
}

func TestSaveSectionsDuplicateIDs(t *testing.T) {
	svc, _ := setupService(t)
	tr := createTrend(t, svc, Input{Slug: "d", Title: "D"})

	_, err := svc.SaveSections(context.Background(), tr.ID, []prompt.Section{
		{ID: "x", Label: "Scene", Enabled: true},
		{ID: "x", Label: "Style", Enabled: true, Order: 1},
	})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestResetSections(t *testing.T) {
	svc, _ := setupService(t)
	tr := createTrend(t, svc, Input{Slug: "reset", Title: "Reset", ScenePrompt: "a forest", NegativeScene: "people"})

	reset, err := svc.ResetSections(context.Background(), tr.ID)
	require.NoError(t, err)

	assert.Equal(t, "", reset.ScenePrompt)
	assert.Equal(t, "", reset.NegativeScene)
	require.Len(t, reset.PromptSections, 4)
	for i, s := range reset.PromptSections {
		assert.Equal(t, i, s.Order)
		assert.Empty(t, s.Content)
		assert.True(t, s.Enabled)
	}
}

func TestMoveSection(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	tr := createTrend(t, svc, Input{Slug: "move", Title: "Move", ScenePrompt: "a forest", StylePreset: prompt.TextStyle("watercolor")})

	moved, err := svc.MoveSection(ctx, tr.ID, 1, 0)
	require.NoError(t, err)
	require.Len(t, moved.PromptSections, 4)
	assert.Equal(t, "Style", moved.PromptSections[0].Label)
	assert.Equal(t, "Scene", moved.PromptSections[1].Label)
	assert.Equal(t, "a forest", moved.ScenePrompt)
	assert.Equal(t, "watercolor", moved.StylePreset.String())

	_, err = svc.MoveSection(ctx, tr.ID, 0, 4)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = svc.MoveSection(ctx, 999, 0, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetSectionEnabled(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	tr := createTrend(t, svc, Input{Slug: "toggle", Title: "Toggle"})

	saved, err := svc.SaveSections(ctx, tr.ID, []prompt.Section{
		{ID: "scene", Label: "Scene", Content: "a forest", Enabled: true},
		{ID: "avoid", Label: "Avoid", Content: "people", Enabled: true, Order: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "people", saved.NegativeScene)

	off, err := svc.SetSectionEnabled(ctx, tr.ID, "avoid", false)
	require.NoError(t, err)
	assert.Equal(t, "", off.NegativeScene, "disabled sections do not feed the prompt fields")
	require.Len(t, off.PromptSections, 2)
	assert.False(t, off.PromptSections[1].Enabled)

	on, err := svc.SetSectionEnabled(ctx, tr.ID, "avoid", true)
	require.NoError(t, err)
	assert.Equal(t, "people", on.NegativeScene)

	_, err = svc.SetSectionEnabled(ctx, tr.ID, "missing", true)
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestFullPromptRoundTrip(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	tr := createTrend(t, svc, Input{Slug: "full", Title: "Full"})

	text := "[SCENE]\na knight\n\n[STYLE]\noil painting\n\n[AVOID]\nmodern items\n\n[COMPOSITION]\nfull body"
	updated, err := svc.SetFullPrompt(ctx, tr.ID, text)
	require.NoError(t, err)

	assert.Equal(t, "a knight", updated.ScenePrompt)
	assert.Equal(t, "oil painting", updated.StylePreset.String())
	assert.Equal(t, "modern items", updated.NegativeScene)
	require.NotNil(t, updated.CompositionPrompt)
	assert.Equal(t, "full body", *updated.CompositionPrompt)
	assert.Len(t, updated.PromptSections, 4)

	full, err := svc.FullPrompt(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, text, full)
}

func TestSetFullPromptWithoutMarkers(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	tr := createTrend(t, svc, Input{Slug: "free", Title: "Free"})

	updated, err := svc.SetFullPrompt(ctx, tr.ID, "  just a dog in the rain  ")
	require.NoError(t, err)
	assert.Equal(t, "just a dog in the rain", updated.ScenePrompt)
	require.Len(t, updated.PromptSections, 1)
	assert.Equal(t, prompt.LabelPrompt, updated.PromptSections[0].Label)
}

func TestMutationsAreAudited(t *testing.T) {
	svc, store := setupService(t)
	ctx := audit.WithActor(context.Background(), "editor")

	tr, err := svc.Create(ctx, Input{Slug: "audited", Title: "A"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, tr.ID, Patch{Title: strPtr("B")})
	require.NoError(t, err)
	_, err = svc.SetFullPrompt(ctx, tr.ID, "x")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, tr.ID))

	result, err := store.GetAuditLogs(storage.AuditLogFilter{EntityType: audit.EntityTrend}, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 4, result.TotalCount)
	assert.Equal(t, audit.ActionDelete, result.Data[0].Action)
	assert.Equal(t, audit.ActionCreate, result.Data[3].Action)
	assert.Equal(t, "editor", result.Data[0].Actor)
	assert.JSONEq(t, `{"fields":["title"]}`, result.Data[2].Details)
}

func TestLegacyPlainTextStyle(t *testing.T) {
	svc, store := setupService(t)

	id, err := store.CreateTrend(storage.Trend{Slug: "legacy", Title: "Legacy", StylePreset: "film grain, 35mm"})
	require.NoError(t, err)

	tr, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "film grain, 35mm", tr.StylePreset.String())
	assert.False(t, tr.StylePreset.Structured())
}

func TestDecodeStyleDoubleEncoded(t *testing.T) {
	v := decodeStyle(`"{\"palette\":\"pastel\"}"`)
	assert.True(t, v.Structured())
	assert.Equal(t, "pastel", v.Fields()["palette"])

	assert.True(t, decodeStyle("").IsZero())
}
