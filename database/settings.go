package database

import (
	"context"
	"database/sql"
	"errors"

	"jdnotes/config"
)

const (
	keyAIBaseURL = "ai_base_url"
	keyAIAPIKey  = "ai_api_key"
	keyAIModel   = "ai_model"
)

// AISettings returns the live connection settings, falling back to the
// config-file defaults for any key the settings screen has not saved yet.
func (s *Store) AISettings(ctx context.Context) (config.AISettings, error) {
	settings := s.aiDefaults

	rows, err := s.DB.QueryContext(ctx,
		`SELECT key, value FROM app_config WHERE key IN (?, ?, ?)`,
		keyAIBaseURL, keyAIAPIKey, keyAIModel)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return settings, nil
		}
		return settings, dbErr("read ai settings", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return settings, err
		}
		switch key {
		case keyAIBaseURL:
			settings.BaseURL = value
		case keyAIAPIKey:
			settings.APIKey = value
		case keyAIModel:
			settings.Model = value
		}
	}
	return settings, rows.Err()
}

// SaveAISettings persists the connection settings so they survive
// restarts independent of the config file.
func (s *Store) SaveAISettings(ctx context.Context, settings config.AISettings) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	pairs := map[string]string{
		keyAIBaseURL: settings.BaseURL,
		keyAIAPIKey:  settings.APIKey,
		keyAIModel:   settings.Model,
	}
	for key, value := range pairs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO app_config (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
		if err != nil {
			return dbErr("save setting "+key, err)
		}
	}
	return tx.Commit()
}
