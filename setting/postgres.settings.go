package setting

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresSettings returns Settings persisted in the table public.setting,
// as created by the migrations of the postgres package.
func NewPostgresSettings(pgxPool *pgxpool.Pool) *PostgresSettings {
	return &PostgresSettings{
		notifier: newNotifier(),
		db:       pgxPool,
	}
}

var _ Settings = (*PostgresSettings)(nil)

type PostgresSettings struct {
	*notifier

	db *pgxpool.Pool
}

func (s *PostgresSettings) Save(ctx context.Context, key Key, value Value) error {
	var changed bool

	err := s.db.QueryRow(ctx, `
		INSERT INTO public.setting (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
			WHERE setting.value IS DISTINCT FROM EXCLUDED.value
		RETURNING TRUE`,
		key.Key(), value.String(),
	).Scan(&changed)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("could not save setting: %w", err)
	}

	if changed {
		s.notify(key, value)
	}

	return nil
}

func (s *PostgresSettings) Setting(ctx context.Context, key Key) (Value, error) {
	var value string

	err := s.db.QueryRow(ctx, `SELECT value FROM public.setting WHERE key = $1`, key.Key()).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return NewValue(nil), ErrNotFound
	}

	if err != nil {
		return NewValue(nil), fmt.Errorf("could not get setting: %w", err)
	}

	return NewValue(value), nil
}

func (s *PostgresSettings) Settings(ctx context.Context, keys []Key) (map[Key]Value, error) {
	compositeKeys := make([]string, len(keys))
	for i, k := range keys {
		compositeKeys[i] = k.Key()
	}

	rows, err := s.db.Query(ctx, `SELECT key, value FROM public.setting WHERE key = ANY($1)`, compositeKeys)
	if err != nil {
		return nil, fmt.Errorf("could not get settings: %w", err)
	}

	settings := make(map[Key]Value, len(keys))

	var rawKey, value string

	_, err = pgx.ForEachRow(rows, []any{&rawKey, &value}, func() error {
		key, err := ParseKey(rawKey)
		if err != nil {
			return err
		}

		settings[key] = NewValue(value)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not get settings: %w", err)
	}

	if len(keys) != len(settings) {
		return settings, ErrNotFound
	}

	return settings, nil
}

func (s *PostgresSettings) Delete(ctx context.Context, key Key) error {
	_, err := s.db.Exec(ctx, `DELETE FROM public.setting WHERE key = $1`, key.Key())
	if err != nil {
		return fmt.Errorf("could not delete setting: %w", err)
	}

	return nil
}
