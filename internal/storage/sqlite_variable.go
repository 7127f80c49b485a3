package storage

import (
	"fmt"
	"time"
)

// GetVariables returns all master prompt variables.
func (s *SQLiteStore) GetVariables() (map[string]string, error) {
	rows, err := s.db.Query("SELECT name, value FROM variables")
	if err != nil {
		return nil, fmt.Errorf("failed to query variables: %w", err)
	}
	defer rows.Close()

	vars := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan variable: %w", err)
		}
		vars[name] = value
	}
	return vars, rows.Err()
}

// SetVariables replaces the whole variable set atomically.
func (s *SQLiteStore) SetVariables(vars map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM variables"); err != nil {
		return fmt.Errorf("failed to clear variables: %w", err)
	}

	now := time.Now().UTC()
	for name, value := range vars {
		if _, err := tx.Exec("INSERT INTO variables (name, value, updated_at) VALUES (?, ?, ?)", name, value, now); err != nil {
			return fmt.Errorf("failed to insert variable %q: %w", name, err)
		}
	}

	return tx.Commit()
}
