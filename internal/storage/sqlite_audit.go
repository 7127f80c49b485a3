package storage

import (
	"fmt"
	"time"
)

// AddAuditLog records an administrative change.
func (s *SQLiteStore) AddAuditLog(log AuditLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		"INSERT INTO audit_logs (actor, action, entity_type, entity_id, details, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		log.Actor, log.Action, log.EntityType, log.EntityID, log.Details, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add audit log: %w", err)
	}
	return nil
}

// GetAuditLogs returns audit entries with filtering and pagination, newest first.
func (s *SQLiteStore) GetAuditLogs(filter AuditLogFilter, limit, offset int) (AuditLogResult, error) {
	var result AuditLogResult

	var conditions []string
	var args []interface{}

	if filter.Actor != "" {
		conditions = append(conditions, "actor = ?")
		args = append(args, filter.Actor)
	}
	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.EntityType != "" {
		conditions = append(conditions, "entity_type = ?")
		args = append(args, filter.EntityType)
	}
	if filter.EntityID != "" {
		conditions = append(conditions, "entity_id = ?")
		args = append(args, filter.EntityID)
	}

	where := whereClause(conditions)

	if err := s.db.QueryRow("SELECT COUNT(*) FROM audit_logs "+where, args...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("failed to count audit logs: %w", err)
	}

	query := "SELECT id, actor, action, entity_type, entity_id, details, created_at FROM audit_logs " +
		where + " ORDER BY id DESC LIMIT ? OFFSET ?"
	rows, err := s.db.Query(query, append(args, limit, offset)...)
	if err != nil {
		return result, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var log AuditLog
		if err := rows.Scan(&log.ID, &log.Actor, &log.Action, &log.EntityType, &log.EntityID, &log.Details, &log.CreatedAt); err != nil {
			return result, fmt.Errorf("failed to scan audit log: %w", err)
		}
		result.Data = append(result.Data, log)
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}
