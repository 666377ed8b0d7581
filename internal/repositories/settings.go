package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/desertthunder/muziek/internal/models"
	"github.com/desertthunder/muziek/internal/shared"
)

var (
	_ models.SettingsStore = (*SettingsRepository)(nil)
	_ models.SettingsStore = (*KeyringSettings)(nil)
)

// SettingsRepository implements [models.SettingsStore] over the settings table.
type SettingsRepository struct {
	db     *sql.DB
	staged map[string]string
}

// NewSettingsRepository creates a new [SettingsRepository] with the given database connection
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db, staged: map[string]string{}}
}

// Get returns the staged value for key, then the committed one, then fallback.
func (r *SettingsRepository) Get(key, fallback string) (string, error) {
	if v, ok := r.staged[key]; ok {
		if v == "" {
			return fallback, nil
		}
		return v, nil
	}

	var value string
	err := r.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query setting %s: %w", key, err)
	}
	return value, nil
}

// Set stages value for key. An empty value deletes the key on commit.
func (r *SettingsRepository) Set(key, value string) {
	r.staged[key] = value
}

// Commit writes all staged values in a single transaction.
func (r *SettingsRepository) Commit() error {
	if len(r.staged) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, key := range slices.Sorted(maps.Keys(r.staged)) {
		value := r.staged[key]
		if value == "" {
			_, err = tx.Exec("DELETE FROM settings WHERE key = ?", key)
		} else {
			_, err = tx.Exec(`
				INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
			`, key, value)
		}
		if err != nil {
			return fmt.Errorf("failed to write setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}

	clear(r.staged)
	return nil
}

// OpenSettings returns the [models.SettingsStore] selected by config.
//
// db may be nil when the keyring backend is selected.
func OpenSettings(config shared.SettingsConfig, db *sql.DB) (models.SettingsStore, error) {
	switch config.Backend {
	case "", "sqlite":
		if db == nil {
			return nil, fmt.Errorf("%w: sqlite settings need a database", shared.ErrInvalidConfig)
		}
		return NewSettingsRepository(db), nil
	case "keyring":
		return NewKeyringSettings(config.KeyringService)
	default:
		return nil, fmt.Errorf("%w: unsupported settings backend %q", shared.ErrInvalidConfig, config.Backend)
	}
}
