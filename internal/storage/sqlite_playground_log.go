package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// AddPlaygroundLog inserts a new playground exchange log entry.
func (s *SQLiteStore) AddPlaygroundLog(log PlaygroundLog) (int64, error) {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO playground_logs (
			trend_id, kind, prompt, request_body, response_body, model, image_url,
			success, error_message, duration_ms, prompt_tokens, completion_tokens,
			total_cost, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.Exec(query,
		log.TrendID,
		log.Kind,
		log.Prompt,
		log.RequestBody,
		log.ResponseBody,
		log.Model,
		log.ImageURL,
		log.Success,
		log.ErrorMessage,
		log.DurationMs,
		log.PromptTokens,
		log.CompletionTokens,
		log.TotalCost,
		log.Metadata,
		log.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to add playground log: %w", err)
	}
	return result.LastInsertId()
}

// GetPlaygroundLogs returns playground logs with filtering and pagination, newest first.
func (s *SQLiteStore) GetPlaygroundLogs(filter PlaygroundLogFilter, limit, offset int) (PlaygroundLogResult, error) {
	var result PlaygroundLogResult

	var conditions []string
	var args []interface{}

	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.TrendID > 0 {
		conditions = append(conditions, "trend_id = ?")
		args = append(args, filter.TrendID)
	}
	if filter.Success != nil {
		conditions = append(conditions, "success = ?")
		args = append(args, *filter.Success)
	}
	if filter.Search != "" {
		conditions = append(conditions, "(prompt LIKE ? OR error_message LIKE ?)")
		searchPattern := "%" + filter.Search + "%"
		args = append(args, searchPattern, searchPattern)
	}

	where := whereClause(conditions)

	if err := s.db.QueryRow("SELECT COUNT(*) FROM playground_logs "+where, args...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("failed to count playground logs: %w", err)
	}

	query := `
		SELECT id, trend_id, kind, prompt, request_body, response_body, model, image_url,
			   success, error_message, duration_ms, prompt_tokens, completion_tokens,
			   total_cost, metadata, created_at
		FROM playground_logs ` + where + `
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.Query(query, append(args, limit, offset)...)
	if err != nil {
		return result, fmt.Errorf("failed to query playground logs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var log PlaygroundLog
		var trendID sql.NullInt64
		var totalCost sql.NullFloat64
		err := rows.Scan(
			&log.ID,
			&trendID,
			&log.Kind,
			&log.Prompt,
			&log.RequestBody,
			&log.ResponseBody,
			&log.Model,
			&log.ImageURL,
			&log.Success,
			&log.ErrorMessage,
			&log.DurationMs,
			&log.PromptTokens,
			&log.CompletionTokens,
			&totalCost,
			&log.Metadata,
			&log.CreatedAt,
		)
		if err != nil {
			return result, fmt.Errorf("failed to scan playground log: %w", err)
		}
		if trendID.Valid {
			log.TrendID = &trendID.Int64
		}
		if totalCost.Valid {
			log.TotalCost = &totalCost.Float64
		}
		result.Data = append(result.Data, log)
	}

	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}
