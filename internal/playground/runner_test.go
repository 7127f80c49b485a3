package playground

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/runixer/trendstudio/internal/audit"
	"github.com/runixer/trendstudio/internal/jobtype"
	"github.com/runixer/trendstudio/internal/openrouter"
	"github.com/runixer/trendstudio/internal/prompt"
	"github.com/runixer/trendstudio/internal/runlog"
	"github.com/runixer/trendstudio/internal/storage"
	"github.com/runixer/trendstudio/internal/testutil"
	"github.com/runixer/trendstudio/internal/trend"
)

type fixture struct {
	runner *Runner
	gen    *testutil.MockGenerator
	store  *storage.SQLiteStore
	trends *trend.Service
	dir    string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	logger := testutil.TestLogger()
	store := testutil.TestStore(t)
	cfg := testutil.TestConfig().Playground
	dir := t.TempDir()

	gen := new(testutil.MockGenerator)
	trends := trend.NewService(store, audit.NewRecorder(store, logger), logger)
	rl := runlog.NewLogger(store, logger, true)
	runner := NewRunner(cfg, gen, store, trends, rl, NewFileStore(dir), logger)

	return &fixture{runner: runner, gen: gen, store: store, trends: trends, dir: dir}
}

func TestRunSubstitutesAndFlattens(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.store.SetVariables(map[string]string{"gender": "male", "mood": "calm"}))

	var sent openrouter.ImageRequest
	f.gen.On("CreateImage", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(openrouter.ImageRequest)
	}).Return(testutil.MockImageResponse("https://cdn.example.com/out.png"), nil)

	sections := testutil.TestSections()
	sections[2].Enabled = false

	res := f.runner.Run(context.Background(), Config{
		Sections: sections,
		Params:   Params{Variables: map[string]string{"gender": "female"}},
	})

	require.Empty(t, res.Error)
	assert.True(t, res.OK())
	assert.Equal(t, "https://cdn.example.com/out.png", res.ImageURL)
	assert.Empty(t, res.UnresolvedVariables)

	want := "[SCENE]\na female astronaut on the moon\n\n[STYLE]\n{\"lighting\": \"rim light\"}"
	assert.Equal(t, want, res.Prompt)
	assert.Equal(t, want, sent.Prompt, "override wins over master variable")
	assert.NotContains(t, sent.Prompt, "watermark", "disabled sections never reach the request")
	assert.Equal(t, "test-image-model", sent.Model)
	assert.Equal(t, "1:1", sent.AspectRatio)
	assert.Equal(t, "1K", sent.ImageSize)

	require.NotNil(t, res.Log)
	assert.NotZero(t, res.Log.ID)
	assert.True(t, res.Log.Success)
	testutil.AssertPlaygroundLogCount(t, f.store, "run", 1)
}

func TestRunReportsUnresolvedVariables(t *testing.T) {
	f := setup(t)
	f.gen.On("CreateImage", mock.Anything, mock.Anything).
		Return(testutil.MockImageResponse("https://x/y.png"), nil)

	res := f.runner.Run(context.Background(), Config{Sections: testutil.TestSections()})

	assert.Equal(t, []string{"gender"}, res.UnresolvedVariables)
	assert.Contains(t, res.Prompt, "{{gender}}", "unknown placeholders stay literal")
}

func TestRunValueWithBracesIsResolved(t *testing.T) {
	f := setup(t)
	f.gen.On("CreateImage", mock.Anything, mock.Anything).
		Return(testutil.MockImageResponse("https://x/y.png"), nil)

	res := f.runner.Run(context.Background(), Config{
		Sections: testutil.TestSections(),
		Params:   Params{Variables: map[string]string{"gender": "{{robot}}"}},
	})

	assert.Empty(t, res.UnresolvedVariables)
	assert.Contains(t, res.Prompt, "a {{robot}} astronaut")
}

func TestRunSavesDataURLImage(t *testing.T) {
	f := setup(t)
	f.gen.On("CreateImage", mock.Anything, mock.Anything).
		Return(testutil.MockImageResponse(testutil.TestPNGDataURL), nil)

	res := f.runner.Run(context.Background(), Config{Sections: testutil.TestSections()})

	require.Empty(t, res.Error)
	assert.Empty(t, res.ImageURL)
	require.NotEmpty(t, res.ImageFile)
	assert.Equal(t, ".png", filepath.Ext(res.ImageFile))

	info, err := os.Stat(filepath.Join(f.dir, res.ImageFile))
	require.NoError(t, err)
	assert.Equal(t, int64(68), info.Size())

	assert.NotContains(t, res.Log.Response, "iVBORw0KGgo", "base64 payloads are not echoed back")
}

func TestRunGeneratorErrorIsReported(t *testing.T) {
	f := setup(t)
	f.gen.On("CreateImage", mock.Anything, mock.Anything).
		Return(openrouter.ImageResponse{DebugRequestBody: `{"model":"m"}`}, &openrouter.APIError{StatusCode: 400, Status: "400 Bad Request"})

	res := f.runner.Run(context.Background(), Config{Sections: testutil.TestSections()})

	assert.False(t, res.OK())
	assert.Contains(t, res.Error, "400 Bad Request")
	require.NotNil(t, res.Log)
	assert.False(t, res.Log.Success)

	failed := false
	logs, err := f.store.GetPlaygroundLogs(storage.PlaygroundLogFilter{Success: &failed}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.TotalCount)
}

func TestRunEmptyPrompt(t *testing.T) {
	f := setup(t)

	res := f.runner.Run(context.Background(), Config{Sections: []prompt.Section{
		{ID: "a", Label: "Scene", Content: "  ", Enabled: true},
		{ID: "b", Label: "Style", Content: "pastel", Enabled: false, Order: 1},
	}})

	assert.Equal(t, ErrEmptyPrompt.Error(), res.Error)
	f.gen.AssertNotCalled(t, "CreateImage", mock.Anything, mock.Anything)
}

func TestRunInvalidParams(t *testing.T) {
	f := setup(t)

	temp := 3.0
	res := f.runner.Run(context.Background(), Config{
		Sections: testutil.TestSections(),
		Params:   Params{AspectRatio: "7:3", Temperature: &temp, InputImage: "ftp://x"},
	})

	assert.Contains(t, res.Error, "unsupported aspect ratio")
	assert.Contains(t, res.Error, "temperature")
	assert.Contains(t, res.Error, "input image")
	f.gen.AssertNotCalled(t, "CreateImage", mock.Anything, mock.Anything)
}

func TestRunDisabledWithoutGenerator(t *testing.T) {
	store := testutil.TestStore(t)
	runner := NewRunner(testutil.TestConfig().Playground, nil, store, nil, nil, nil, testutil.TestLogger())

	res := runner.Run(context.Background(), Config{Sections: testutil.TestSections()})
	assert.Equal(t, ErrDisabled.Error(), res.Error)
}

func TestRunDefaultTemperature(t *testing.T) {
	f := setup(t)
	f.runner.cfg.Temperature = 0.7

	var sent openrouter.ImageRequest
	f.gen.On("CreateImage", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(openrouter.ImageRequest)
	}).Return(testutil.MockImageResponse("https://x/y.png"), nil)

	seed := int64(9)
	f.runner.Run(context.Background(), Config{Sections: testutil.TestSections(), Params: Params{Seed: &seed, ImageSize: "4K"}})

	require.NotNil(t, sent.Temperature)
	assert.Equal(t, 0.7, *sent.Temperature)
	assert.Equal(t, &seed, sent.Seed)
	assert.Equal(t, "4K", sent.ImageSize)
}

func createTrend(t *testing.T, f *fixture, slug, scene string, enabled bool) int64 {
	t.Helper()
	tr, err := f.trends.Create(context.Background(), trend.Input{
		Slug:        slug,
		Title:       slug,
		ScenePrompt: scene,
		Enabled:     &enabled,
	})
	require.NoError(t, err)
	return tr.ID
}

func TestBatchTestContinuesPastFailures(t *testing.T) {
	f := setup(t)
	ok := createTrend(t, f, "ok", "a calm lake", true)
	bad := createTrend(t, f, "bad", "a stormy sea", true)
	off := createTrend(t, f, "off", "a desert", false)

	f.gen.On("CreateImage", mock.Anything, mock.MatchedBy(func(r openrouter.ImageRequest) bool {
		return r.Prompt == "[SCENE]\na stormy sea"
	})).Return(openrouter.ImageResponse{}, errors.New("upstream failed"))
	f.gen.On("CreateImage", mock.Anything, mock.Anything).
		Return(testutil.MockImageResponse("https://x/lake.png"), nil)

	items := f.runner.BatchTest(context.Background(), []int64{ok, bad, off, 999}, Params{})

	require.Len(t, items, 4)
	assert.True(t, items[0].Result.OK())
	assert.Equal(t, "ok", items[0].Slug)
	assert.Equal(t, "upstream failed", items[1].Result.Error)
	assert.True(t, items[2].Skipped)
	assert.Contains(t, items[3].Result.Error, "not found")

	f.gen.AssertNumberOfCalls(t, "CreateImage", 2)

	s := Summarize(items)
	assert.Equal(t, BatchSummary{Total: 4, Succeeded: 1, Failed: 2, Skipped: 1}, s)

	result, err := f.store.GetPlaygroundLogs(storage.PlaygroundLogFilter{Kind: "batch", TrendID: ok}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalCount)
}

func TestBatchTestAllEnabledTrends(t *testing.T) {
	f := setup(t)
	createTrend(t, f, "one", "first", true)
	createTrend(t, f, "two", "second", true)
	createTrend(t, f, "three", "third", false)

	var jobTypes []jobtype.JobType
	f.gen.On("CreateImage", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		jobTypes = append(jobTypes, jobtype.FromContext(args.Get(0).(context.Context)))
	}).Return(testutil.MockImageResponse("https://x/y.png"), nil)

	items := f.runner.BatchTest(context.Background(), nil, Params{})

	require.Len(t, items, 2)
	assert.Equal(t, "one", items[0].Slug)
	assert.Equal(t, "two", items[1].Slug)
	assert.Equal(t, []jobtype.JobType{jobtype.Batch, jobtype.Batch}, jobTypes)
}

func TestBatchTestStopsOnCancel(t *testing.T) {
	f := setup(t)
	first := createTrend(t, f, "first", "one", true)
	second := createTrend(t, f, "second", "two", true)

	ctx, cancel := context.WithCancel(context.Background())
	f.gen.On("CreateImage", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		cancel()
	}).Return(testutil.MockImageResponse("https://x/y.png"), nil)

	items := f.runner.BatchTest(ctx, []int64{first, second}, Params{})

	assert.Len(t, items, 1)
	f.gen.AssertNumberOfCalls(t, "CreateImage", 1)
}

func TestBatchTestHonoursDelay(t *testing.T) {
	f := setup(t)
	f.runner.cfg.BatchDelay = "30ms"
	a := createTrend(t, f, "a", "one", true)
	b := createTrend(t, f, "b", "two", true)

	f.gen.On("CreateImage", mock.Anything, mock.Anything).
		Return(testutil.MockImageResponse("https://x/y.png"), nil)

	start := time.Now()
	items := f.runner.BatchTest(context.Background(), []int64{a, b}, Params{})
	assert.Len(t, items, 2)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRunSkipsBlankSections(t *testing.T) {
	f := setup(t)
	f.gen.On("CreateImage", mock.Anything, mock.Anything).
		Return(testutil.MockImageResponse("https://x/y.png"), nil)

	res := f.runner.Run(context.Background(), Config{Sections: prompt.FlatTextToSections("[SCENE]\na red fox")})

	assert.Equal(t, "[SCENE]\na red fox", res.Prompt)
}
