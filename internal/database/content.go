package database

import (
	"context"
	"errors"

	"saazebharat/internal/model"

	"github.com/jackc/pgx/v5"
)

var ErrContentNotFound = errors.New("content entry not found")

func (db *Database) GetContentByKey(ctx context.Context, key string) (model.ContentEntry, error) {
	var entry model.ContentEntry
	err := db.Pool.QueryRow(ctx, `SELECT id, key, value, section, updated_at
		FROM tbl_content WHERE key = $1`, key).
		Scan(&entry.ID, &entry.Key, &entry.Value, &entry.Section, &entry.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return entry, ErrContentNotFound
	}
	return entry, err
}

func (db *Database) ListContentBySection(ctx context.Context, section string) ([]model.ContentEntry, error) {
	rows, err := db.Pool.Query(ctx, `SELECT id, key, value, section, updated_at
		FROM tbl_content WHERE section = $1 ORDER BY key ASC`, section)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.ContentEntry
	for rows.Next() {
		var entry model.ContentEntry
		if err := rows.Scan(&entry.ID, &entry.Key, &entry.Value, &entry.Section, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// UpsertContent creates or replaces a content entry by key.
func (db *Database) UpsertContent(ctx context.Context, entry model.ContentEntry) error {
	_, err := db.Pool.Exec(ctx, `INSERT INTO tbl_content (id, key, value, section, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET value = $3, section = $4, updated_at = $5`,
		entry.ID, entry.Key, entry.Value, entry.Section, entry.UpdatedAt)
	return err
}
