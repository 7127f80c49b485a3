package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique column already holds the value.
	ErrDuplicate = errors.New("duplicate")
)

// Trend is a stored prompt preset shown to bot users.
// StylePreset holds JSON (an object or a string); PromptSections holds a JSON
// array of sections or is empty when the trend was never edited by sections.
type Trend struct {
	ID                int64
	Slug              string
	Title             string
	Emoji             string
	Description       string
	ScenePrompt       string
	StylePreset       string
	NegativeScene     string
	CompositionPrompt *string // Nullable
	PromptSections    string
	Enabled           bool
	SortOrder         int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type TrendFilter struct {
	Search  string
	Enabled *bool // nil = all
}

// PlaygroundLog stores one generation request/response exchange.
type PlaygroundLog struct {
	ID               int64
	TrendID          *int64 // Nullable, set for batch tests
	Kind             string // run, batch
	Prompt           string
	RequestBody      string // JSON - full request sent to the model
	ResponseBody     string // JSON - full response
	Model            string
	ImageURL         string
	Success          bool
	ErrorMessage     string
	DurationMs       int
	PromptTokens     int
	CompletionTokens int
	TotalCost        *float64
	Metadata         string // JSON - generation parameters
	CreatedAt        time.Time
}

type PlaygroundLogFilter struct {
	Kind    string
	TrendID int64
	Success *bool
	Search  string
}

type PlaygroundLogResult struct {
	Data       []PlaygroundLog
	TotalCount int
}

// AuditLog records an administrative change.
type AuditLog struct {
	ID         int64
	Actor      string
	Action     string // create, update, delete, set
	EntityType string // trend, variables, maintenance
	EntityID   string
	Details    string // JSON
	CreatedAt  time.Time
}

type AuditLogFilter struct {
	Actor      string
	Action     string
	EntityType string
	EntityID   string
}

type AuditLogResult struct {
	Data       []AuditLog
	TotalCount int
}

type Storage interface {
	TrendRepository
	VariableRepository
	PlaygroundLogRepository
	AuditRepository
	MaintenanceRepository
}

type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	dbPath string // Original path without query params, for file size check
}

func NewSQLiteStore(logger *slog.Logger, path string) (*SQLiteStore, error) {
	originalPath := path
	if idx := strings.Index(path, "?"); idx != -1 {
		originalPath = path[:idx]
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// A single connection avoids "database is locked" with modernc.org/sqlite
	// and keeps ":memory:" databases alive across queries.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	// The _journal_mode query param doesn't work with modernc.org/sqlite
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
		logger.Warn("failed to set WAL journal mode", "error", err)
	} else {
		logger.Info("SQLite journal mode set", "mode", journalMode, "path", originalPath)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		logger.Warn("failed to set busy timeout", "error", err)
	}

	return &SQLiteStore{db: db, logger: logger.With("component", "storage"), dbPath: originalPath}, nil
}

func (s *SQLiteStore) Init() error {
	query := `
	CREATE TABLE IF NOT EXISTS trends (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		emoji TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		scene_prompt TEXT NOT NULL DEFAULT '',
		style_preset TEXT NOT NULL DEFAULT '',
		negative_scene TEXT NOT NULL DEFAULT '',
		composition_prompt TEXT,
		enabled BOOLEAN NOT NULL DEFAULT 1,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_trends_sort ON trends(sort_order, id);

	CREATE TABLE IF NOT EXISTS variables (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS playground_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trend_id INTEGER,
		kind TEXT NOT NULL,
		prompt TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		success BOOLEAN NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		prompt_tokens INTEGER NOT NULL DEFAULT 0,
		completion_tokens INTEGER NOT NULL DEFAULT 0,
		total_cost REAL,
		metadata TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_playground_logs_trend ON playground_logs(trend_id);

	CREATE TABLE IF NOT EXISTS audit_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		actor TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id TEXT NOT NULL DEFAULT '',
		details TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_audit_logs_entity ON audit_logs(entity_type, entity_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return err
	}

	if err := s.migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

func (s *SQLiteStore) migrate() error {
	// prompt_sections was added after the first trends schema
	var count int
	err := s.db.QueryRow("SELECT count(*) FROM pragma_table_info('trends') WHERE name='prompt_sections'").Scan(&count)
	if err != nil {
		return err
	}
	if count == 0 {
		s.logger.Info("migrating trends table: adding prompt_sections")
		if _, err := s.db.Exec("ALTER TABLE trends ADD COLUMN prompt_sections TEXT NOT NULL DEFAULT ''"); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// whereClause joins conditions with AND, or returns "" when there are none.
func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(conditions, " AND ")
}
