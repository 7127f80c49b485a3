package storage

import (
	"fmt"
	"os"
)

// TableSize represents the size of a database table.
type TableSize struct {
	Name  string
	Bytes int64
}

// GetDBSize returns the size of the database file in bytes.
func (s *SQLiteStore) GetDBSize() (int64, error) {
	info, err := os.Stat(s.dbPath)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// GetTableSizes returns the size of each table in bytes using SQLite's dbstat virtual table.
func (s *SQLiteStore) GetTableSizes() ([]TableSize, error) {
	query := `
		SELECT name, SUM(pgsize) as size_bytes
		FROM dbstat
		WHERE name NOT LIKE 'sqlite_%'
		GROUP BY name
		ORDER BY size_bytes DESC
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sizes []TableSize
	for rows.Next() {
		var ts TableSize
		if err := rows.Scan(&ts.Name, &ts.Bytes); err != nil {
			return nil, err
		}
		sizes = append(sizes, ts)
	}
	return sizes, rows.Err()
}

// CleanupPlaygroundLogs removes old playground_logs records, keeping only the N most recent.
// Returns the number of deleted rows.
func (s *SQLiteStore) CleanupPlaygroundLogs(keep int) (int64, error) {
	return s.cleanupKeepLatest("playground_logs", keep)
}

// CleanupAuditLogs removes old audit_logs records, keeping only the N most recent.
// Returns the number of deleted rows.
func (s *SQLiteStore) CleanupAuditLogs(keep int) (int64, error) {
	return s.cleanupKeepLatest("audit_logs", keep)
}

// cleanupKeepLatest deletes every row of table outside the newest keep ids.
// table is always a package constant, never user input.
func (s *SQLiteStore) cleanupKeepLatest(table string, keep int) (int64, error) {
	query := fmt.Sprintf(`
		DELETE FROM %[1]s
		WHERE id NOT IN (
			SELECT id FROM %[1]s ORDER BY id DESC LIMIT ?
		)
	`, table)
	result, err := s.db.Exec(query, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup %s: %w", table, err)
	}
	return result.RowsAffected()
}
