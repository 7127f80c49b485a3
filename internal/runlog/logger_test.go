package runlog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/runixer/trendstudio/internal/storage"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) AddPlaygroundLog(log storage.PlaygroundLog) (int64, error) {
	args := m.Called(log)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRepo) GetPlaygroundLogs(filter storage.PlaygroundLogFilter, limit, offset int) (storage.PlaygroundLogResult, error) {
	args := m.Called(filter, limit, offset)
	return args.Get(0).(storage.PlaygroundLogResult), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestLogPersistsExchange(t *testing.T) {
	repo := new(mockRepo)
	trendID := int64(5)
	cost := 0.02

	var saved storage.PlaygroundLog
	repo.On("AddPlaygroundLog", mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(0).(storage.PlaygroundLog)
	}).Return(int64(17), nil)

	l := NewLogger(repo, testLogger(), true)
	ex := &Exchange{
		Kind:      KindBatch,
		TrendID:   &trendID,
		Prompt:    "[SCENE]\na cat",
		Model:     "m",
		Request:   `{"model":"m"}`,
		Response:  map[string]string{"id": "gen-1"},
		ImageURL:  "data:image/png;base64,AAAABBBB",
		Success:   true,
		TotalCost: &cost,
		Metadata:  map[string]string{"aspect_ratio": "1:1"},
	}
	l.Log(context.Background(), ex)

	repo.AssertExpectations(t)
	assert.Equal(t, int64(17), ex.ID)
	assert.Equal(t, "batch", saved.Kind)
	assert.Equal(t, &trendID, saved.TrendID)
	assert.Equal(t, `{"model":"m"}`, saved.RequestBody)
	assert.JSONEq(t, `{"id":"gen-1"}`, saved.ResponseBody)
	assert.JSONEq(t, `{"aspect_ratio":"1:1"}`, saved.Metadata)
	assert.Equal(t, "data:image/png;base64,<8 bytes>", saved.ImageURL)
	assert.True(t, saved.Success)
	assert.False(t, saved.CreatedAt.IsZero())
}

func TestLogDisabled(t *testing.T) {
	repo := new(mockRepo)
	l := NewLogger(repo, testLogger(), false)

	ex := &Exchange{Kind: KindRun}
	l.Log(context.Background(), ex)

	repo.AssertNotCalled(t, "AddPlaygroundLog", mock.Anything)
	assert.Zero(t, ex.ID)
	assert.False(t, l.Enabled())
}

func TestLogNilLogger(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Log(context.Background(), &Exchange{}) })
	assert.False(t, l.Enabled())
}

func TestLogStorageErrorIsSwallowed(t *testing.T) {
	repo := new(mockRepo)
	repo.On("AddPlaygroundLog", mock.Anything).Return(int64(0), errors.New("disk full"))

	l := NewLogger(repo, testLogger(), true)
	ex := &Exchange{Kind: KindRun}
	assert.NotPanics(t, func() { l.Log(context.Background(), ex) })
	assert.Zero(t, ex.ID)
}

func TestRedactDataURLs(t *testing.T) {
	in := `{"images":[{"image_url":{"url":"data:image/webp;base64,QUJDRA=="}}],"other":"https://x/y.png"}`
	out := RedactDataURLs(in)
	assert.Equal(t, `{"images":[{"image_url":{"url":"data:image/webp;base64,<8 bytes>"}}],"other":"https://x/y.png"}`, out)

	assert.Equal(t, "plain text", RedactDataURLs("plain text"))
}

func TestSerializeJSON(t *testing.T) {
	assert.Equal(t, "", serializeJSON(nil))
	assert.Equal(t, "raw", serializeJSON("raw"))
	require.Equal(t, `{"a":1}`, serializeJSON(map[string]int{"a": 1}))
}
