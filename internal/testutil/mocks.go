package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/runixer/trendstudio/internal/openrouter"
	"github.com/runixer/trendstudio/internal/storage"
)

// MockStorage implements storage.Storage for tests.
type MockStorage struct {
	mock.Mock
}

// TrendRepository methods

func (m *MockStorage) CreateTrend(trend storage.Trend) (int64, error) {
	args := m.Called(trend)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) GetTrend(id int64) (*storage.Trend, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Trend), args.Error(1)
}

func (m *MockStorage) GetTrends(filter storage.TrendFilter) ([]storage.Trend, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.Trend), args.Error(1)
}

func (m *MockStorage) UpdateTrend(trend storage.Trend) error {
	return m.Called(trend).Error(0)
}

func (m *MockStorage) DeleteTrend(id int64) error {
	return m.Called(id).Error(0)
}

// VariableRepository methods

func (m *MockStorage) GetVariables() (map[string]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockStorage) SetVariables(vars map[string]string) error {
	return m.Called(vars).Error(0)
}

// PlaygroundLogRepository methods

func (m *MockStorage) AddPlaygroundLog(log storage.PlaygroundLog) (int64, error) {
	args := m.Called(log)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) GetPlaygroundLogs(filter storage.PlaygroundLogFilter, limit, offset int) (storage.PlaygroundLogResult, error) {
	args := m.Called(filter, limit, offset)
	return args.Get(0).(storage.PlaygroundLogResult), args.Error(1)
}

// AuditRepository methods

func (m *MockStorage) AddAuditLog(log storage.AuditLog) error {
	return m.Called(log).Error(0)
}

func (m *MockStorage) GetAuditLogs(filter storage.AuditLogFilter, limit, offset int) (storage.AuditLogResult, error) {
	args := m.Called(filter, limit, offset)
	return args.Get(0).(storage.AuditLogResult), args.Error(1)
}

// MaintenanceRepository methods

func (m *MockStorage) GetDBSize() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) GetTableSizes() ([]storage.TableSize, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.TableSize), args.Error(1)
}

func (m *MockStorage) CleanupPlaygroundLogs(keep int) (int64, error) {
	args := m.Called(keep)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) CleanupAuditLogs(keep int) (int64, error) {
	args := m.Called(keep)
	return args.Get(0).(int64), args.Error(1)
}

// MockGenerator is a mock image generator (openrouter.Client).
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) CreateImage(ctx context.Context, req openrouter.ImageRequest) (openrouter.ImageResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openrouter.ImageResponse), args.Error(1)
}

var (
	_ storage.Storage   = (*MockStorage)(nil)
	_ openrouter.Client = (*MockGenerator)(nil)
)
