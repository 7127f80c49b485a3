package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/runixer/trendstudio/internal/storage"
)

// AssertLogContains asserts that the log contains an entry with the given level and message.
func AssertLogContains(t *testing.T, logs []LogEntry, level string, msg string) {
	t.Helper()
	for _, entry := range logs {
		if (level == "" || strings.EqualFold(entry.Level, level)) &&
			strings.Contains(entry.Message, msg) {
			return
		}
	}
	t.Fatalf("no log entry found with level=%q msg containing %q. Entries: %d", level, msg, len(logs))
}

// AssertLogHasField asserts that a log entry exists with the given field value.
func AssertLogHasField(t *testing.T, logs []LogEntry, key string, value interface{}) {
	t.Helper()
	for _, entry := range logs {
		if v, ok := entry.Fields[key]; ok && fmt.Sprint(v) == fmt.Sprint(value) {
			return
		}
	}
	t.Fatalf("no log entry found with field %q=%v. Entries: %d", key, value, len(logs))
}

// AssertNoErrorLogs asserts that no ERROR level logs were captured.
func AssertNoErrorLogs(t *testing.T, logs []LogEntry) {
	t.Helper()
	for _, entry := range logs {
		if strings.EqualFold(entry.Level, "error") {
			t.Errorf("found error log: %s (fields: %v)", entry.Message, entry.Fields)
		}
	}
}

// AssertAuditLogged asserts that at least one audit entry matches action and entity.
func AssertAuditLogged(t *testing.T, store storage.AuditRepository, action, entityType, entityID string) {
	t.Helper()
	result, err := store.GetAuditLogs(storage.AuditLogFilter{Action: action, EntityType: entityType, EntityID: entityID}, 1, 0)
	require.NoError(t, err)
	if result.TotalCount == 0 {
		t.Fatalf("no audit entry for action=%q entity=%s/%s", action, entityType, entityID)
	}
}

// AssertPlaygroundLogCount asserts the number of stored playground logs of a kind.
func AssertPlaygroundLogCount(t *testing.T, store storage.PlaygroundLogRepository, kind string, expected int) {
	t.Helper()
	result, err := store.GetPlaygroundLogs(storage.PlaygroundLogFilter{Kind: kind}, 1, 0)
	require.NoError(t, err)
	if result.TotalCount != expected {
		t.Errorf("expected %d playground logs of kind %q, got %d", expected, kind, result.TotalCount)
	}
}
