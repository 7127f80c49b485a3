package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const trendColumns = `id, slug, title, emoji, description, scene_prompt, style_preset,
	negative_scene, composition_prompt, prompt_sections, enabled, sort_order, created_at, updated_at`

// CreateTrend inserts a trend and returns its ID.
func (s *SQLiteStore) CreateTrend(trend Trend) (int64, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO trends (
			slug, title, emoji, description, scene_prompt, style_preset,
			negative_scene, composition_prompt, prompt_sections, enabled, sort_order,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.Exec(query,
		trend.Slug,
		trend.Title,
		trend.Emoji,
		trend.Description,
		trend.ScenePrompt,
		trend.StylePreset,
		trend.NegativeScene,
		trend.CompositionPrompt,
		trend.PromptSections,
		trend.Enabled,
		trend.SortOrder,
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create trend %q: %w", trend.Slug, uniqueViolation(err))
	}
	return result.LastInsertId()
}

// GetTrend returns a trend by ID or ErrNotFound.
func (s *SQLiteStore) GetTrend(id int64) (*Trend, error) {
	row := s.db.QueryRow("SELECT "+trendColumns+" FROM trends WHERE id = ?", id)
	trend, err := scanTrend(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trend %d: %w", id, err)
	}
	return &trend, nil
}

// GetTrends returns trends ordered by sort_order, then id.
func (s *SQLiteStore) GetTrends(filter TrendFilter) ([]Trend, error) {
	var conditions []string
	var args []interface{}

	if filter.Enabled != nil {
		conditions = append(conditions, "enabled = ?")
		args = append(args, *filter.Enabled)
	}
	if filter.Search != "" {
		conditions = append(conditions, "(slug LIKE ? OR title LIKE ? OR scene_prompt LIKE ?)")
		searchPattern := "%" + filter.Search + "%"
		args = append(args, searchPattern, searchPattern, searchPattern)
	}

	query := "SELECT " + trendColumns + " FROM trends " + whereClause(conditions) + " ORDER BY sort_order ASC, id ASC"
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trends: %w", err)
	}
	defer rows.Close()

	var trends []Trend
	for rows.Next() {
		trend, err := scanTrend(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trend: %w", err)
		}
		trends = append(trends, trend)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return trends, nil
}

// UpdateTrend overwrites every mutable column of an existing trend.
func (s *SQLiteStore) UpdateTrend(trend Trend) error {
	query := `
		UPDATE trends SET
			slug = ?, title = ?, emoji = ?, description = ?, scene_prompt = ?,
			style_preset = ?, negative_scene = ?, composition_prompt = ?,
			prompt_sections = ?, enabled = ?, sort_order = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := s.db.Exec(query,
		trend.Slug,
		trend.Title,
		trend.Emoji,
		trend.Description,
		trend.ScenePrompt,
		trend.StylePreset,
		trend.NegativeScene,
		trend.CompositionPrompt,
		trend.PromptSections,
		trend.Enabled,
		trend.SortOrder,
		time.Now().UTC(),
		trend.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update trend %d: %w", trend.ID, uniqueViolation(err))
	}
	return expectAffected(result)
}

// DeleteTrend removes a trend. Playground logs keep their dangling trend_id.
func (s *SQLiteStore) DeleteTrend(id int64) error {
	result, err := s.db.Exec("DELETE FROM trends WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete trend %d: %w", id, err)
	}
	return expectAffected(result)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrend(row rowScanner) (Trend, error) {
	var t Trend
	var composition sql.NullString
	err := row.Scan(
		&t.ID,
		&t.Slug,
		&t.Title,
		&t.Emoji,
		&t.Description,
		&t.ScenePrompt,
		&t.StylePreset,
		&t.NegativeScene,
		&composition,
		&t.PromptSections,
		&t.Enabled,
		&t.SortOrder,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return Trend{}, err
	}
	if composition.Valid {
		t.CompositionPrompt = &composition.String
	}
	return t, nil
}

// uniqueViolation maps SQLite unique constraint failures to ErrDuplicate.
func uniqueViolation(err error) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrDuplicate
	}
	return err
}

func expectAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
