package storage

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) (*SQLiteStore, func()) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	// Use in-memory SQLite database for testing
	store, err := NewSQLiteStore(logger, ":memory:")
	if err != nil {
		t.Fatal(err)
	}

	cleanup := func() {
		store.Close()
	}

	return store, cleanup
}

func setupInitializedDB(t *testing.T) (*SQLiteStore, func()) {
	store, cleanup := setupTestDB(t)
	require.NoError(t, store.Init())
	return store, cleanup
}

func TestNewSQLiteStore(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	assert.NotNil(t, store)
	assert.NotNil(t, store.db)
}

func TestInit(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	err := store.Init()
	assert.NoError(t, err)

	tables := []string{"trends", "variables", "playground_logs", "audit_logs"}

	for _, table := range tables {
		var name string
		err := store.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "Table %s should exist", table)
		assert.Equal(t, table, name)
	}

	// Init must be re-runnable on an existing schema
	assert.NoError(t, store.Init())
}

func TestMigrateAddsPromptSections(t *testing.T) {
	store, cleanup := setupTestDB(t)
	defer cleanup()

	// Schema from before section editing existed
	_, err := store.db.Exec(`CREATE TABLE trends (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		emoji TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		scene_prompt TEXT NOT NULL DEFAULT '',
		style_preset TEXT NOT NULL DEFAULT '',
		negative_scene TEXT NOT NULL DEFAULT '',
		composition_prompt TEXT,
		enabled BOOLEAN NOT NULL DEFAULT 1,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	require.NoError(t, err)
	_, err = store.db.Exec("INSERT INTO trends (slug, scene_prompt) VALUES ('old', 'a cat')")
	require.NoError(t, err)

	require.NoError(t, store.Init())

	trends, err := store.GetTrends(TrendFilter{})
	require.NoError(t, err)
	require.Len(t, trends, 1)
	assert.Equal(t, "a cat", trends[0].ScenePrompt)
	assert.Empty(t, trends[0].PromptSections)
}

func TestTrendCRUD(t *testing.T) {
	store, cleanup := setupInitializedDB(t)
	defer cleanup()

	composition := "close-up portrait"
	id, err := store.CreateTrend(Trend{
		Slug:              "neon",
		Title:             "Neon",
		Emoji:             "🌃",
		ScenePrompt:       "a city at night",
		StylePreset:       `{"lighting":"neon"}`,
		NegativeScene:     "blur",
		CompositionPrompt: &composition,
		Enabled:           true,
		SortOrder:         2,
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	got, err := store.GetTrend(id)
	require.NoError(t, err)
	assert.Equal(t, "neon", got.Slug)
	assert.Equal(t, "a city at night", got.ScenePrompt)
	assert.Equal(t, `{"lighting":"neon"}`, got.StylePreset)
	require.NotNil(t, got.CompositionPrompt)
	assert.Equal(t, composition, *got.CompositionPrompt)
	assert.True(t, got.Enabled)
	assert.False(t, got.CreatedAt.IsZero())

	got.CompositionPrompt = nil
	got.PromptSections = `[{"id":"a","label":"prompt","content":"x","enabled":true,"order":0}]`
	got.Enabled = false
	require.NoError(t, store.UpdateTrend(*got))

	updated, err := store.GetTrend(id)
	require.NoError(t, err)
	assert.Nil(t, updated.CompositionPrompt)
	assert.Equal(t, got.PromptSections, updated.PromptSections)
	assert.False(t, updated.Enabled)

	require.NoError(t, store.DeleteTrend(id))

	_, err = store.GetTrend(id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTrendNotFound(t *testing.T) {
	store, cleanup := setupInitializedDB(t)
	defer cleanup()

	_, err := store.GetTrend(42)
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.UpdateTrend(Trend{ID: 42, Slug: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.DeleteTrend(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateTrendDuplicateSlug(t *testing.T) {
	store, cleanup := setupInitializedDB(t)
	defer cleanup()

	_, err := store.CreateTrend(Trend{Slug: "dup"})
	require.NoError(t, err)

	_, err = store.CreateTrend(Trend{Slug: "dup"})
	assert.ErrorIs(t, err, ErrDuplicate)

	id, err := store.CreateTrend(Trend{Slug: "other"})
	require.NoError(t, err)
	err = store.UpdateTrend(Trend{ID: id, Slug: "dup"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestGetTrendsFilterAndOrder(t *testing.T) {
	store, cleanup := setupInitializedDB(t)
	defer cleanup()

	_, err := store.CreateTrend(Trend{Slug: "b", Title: "Beach", SortOrder: 1, Enabled: true})
	require.NoError(t, err)
	_, err = store.CreateTrend(Trend{Slug: "a", Title: "Anime", SortOrder: 0, Enabled: false})
	require.NoError(t, err)
	_, err = store.CreateTrend(Trend{Slug: "c", Title: "Castle", SortOrder: 1, Enabled: true, ScenePrompt: "a beach castle"})
	require.NoError(t, err)

	all, err := store.GetTrends(TrendFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{all[0].Slug, all[1].Slug, all[2].Slug})

	enabled := true
	onlyEnabled, err := store.GetTrends(TrendFilter{Enabled: &enabled})
	require.NoError(t, err)
	assert.Len(t, onlyEnabled, 2)

	search, err := store.GetTrends(TrendFilter{Search: "beach"})
	require.NoError(t, err)
	assert.Len(t, search, 2, "matches title and scene prompt")
}

func TestVariables(t *testing.T) {
	store, cleanup := setupInitializedDB(t)
	defer cleanup()

	vars, err := store.GetVariables()
	require.NoError(t, err)
	assert.Empty(t, vars)

	require.NoError(t, store.SetVariables(map[string]string{"gender": "woman", "age": "30"}))
	vars, err = store.GetVariables()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"gender": "woman", "age": "30"}, vars)

	// Replaces the whole set
	require.NoError(t, store.SetVariables(map[string]string{"mood": "happy"}))
	vars, err = store.GetVariables()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"mood": "happy"}, vars)
}

func TestPlaygroundLogs(t *testing.T) {
	store, cleanup := setupInitializedDB(t)
	defer cleanup()

	trendID := int64(7)
	cost := 0.04
	for i := 0; i < 3; i++ {
		_, err := store.AddPlaygroundLog(PlaygroundLog{
			Kind:     "run",
			Prompt:   "a cat",
			Model:    "test-model",
			Success:  true,
			Metadata: "{}",
		})
		require.NoError(t, err)
	}
	_, err := store.AddPlaygroundLog(PlaygroundLog{
		TrendID:      &trendID,
		Kind:         "batch",
		Prompt:       "a dog",
		Success:      false,
		ErrorMessage: "rate limited",
		TotalCost:    &cost,
	})
	require.NoError(t, err)

	result, err := store.GetPlaygroundLogs(PlaygroundLogFilter{}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, result.TotalCount)
	require.Len(t, result.Data, 2)
	assert.Equal(t, "batch", result.Data[0].Kind, "newest first")
	require.NotNil(t, result.Data[0].TrendID)
	assert.Equal(t, trendID, *result.Data[0].TrendID)
	require.NotNil(t, result.Data[0].TotalCost)
	assert.InDelta(t, cost, *result.Data[0].TotalCost, 1e-9)
	assert.Nil(t, result.Data[1].TrendID)

	failed := false
	result, err = store.GetPlaygroundLogs(PlaygroundLogFilter{Success: &failed}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalCount)

	result, err = store.GetPlaygroundLogs(PlaygroundLogFilter{TrendID: trendID}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalCount)

	result, err = store.GetPlaygroundLogs(PlaygroundLogFilter{Search: "rate"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalCount)

	result, err = store.GetPlaygroundLogs(PlaygroundLogFilter{Kind: "run"}, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalCount)
	assert.Len(t, result.Data, 1)
}

func TestAuditLogs(t *testing.T) {
	store, cleanup := setupInitializedDB(t)
	defer cleanup()

	require.NoError(t, store.AddAuditLog(AuditLog{Actor: "admin", Action: "create", EntityType: "trend", EntityID: "1"}))
	require.NoError(t, store.AddAuditLog(AuditLog{Actor: "admin", Action: "update", EntityType: "trend", EntityID: "1", Details: `{"fields":["title"]}`}))
	require.NoError(t, store.AddAuditLog(AuditLog{Actor: "editor", Action: "set", EntityType: "variables"}))

	result, err := store.GetAuditLogs(AuditLogFilter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalCount)
	require.Len(t, result.Data, 3)
	assert.Equal(t, "set", result.Data[0].Action)

	result, err = store.GetAuditLogs(AuditLogFilter{EntityType: "trend", EntityID: "1"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCount)

	result, err = store.GetAuditLogs(AuditLogFilter{Actor: "editor"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalCount)

	result, err = store.GetAuditLogs(AuditLogFilter{Action: "update"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	assert.Equal(t, `{"fields":["title"]}`, result.Data[0].Details)
}
