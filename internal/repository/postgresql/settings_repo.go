package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"plate_reader/internal/repository"
)

type pgSettingsRepository struct {
	db *sql.DB
}

// NewPgSettingsRepository stores JSON values in the capture_settings table.
func NewPgSettingsRepository(db *sql.DB) repository.SettingsRepository {
	return &pgSettingsRepository{db: db}
}

func (r *pgSettingsRepository) Get(ctx context.Context, key string, dest interface{}) error {
	var raw []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM capture_settings WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("SettingsRepository.Get: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("SettingsRepository.Get (decode %s): %w", key, err)
	}
	return nil
}

func (r *pgSettingsRepository) Save(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("SettingsRepository.Save (encode %s): %w", key, err)
	}
	query := `INSERT INTO capture_settings (key, value, updated_at) VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP`
	if _, err := r.db.ExecContext(ctx, query, key, raw); err != nil {
		return fmt.Errorf("SettingsRepository.Save: %w", err)
	}
	return nil
}

func (r *pgSettingsRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM capture_settings WHERE key = $1`, key); err != nil {
		return fmt.Errorf("SettingsRepository.Delete: %w", err)
	}
	return nil
}
