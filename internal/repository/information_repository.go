package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/slack-archv/internal/models"
)

// InformationRepository stores workspace metadata.
type InformationRepository struct {
	db *sqlx.DB
}

// NewInformationRepository builds repository.
func NewInformationRepository(db *sqlx.DB) *InformationRepository {
	return &InformationRepository{db: db}
}

// Get returns the value stored at key and whether it exists.
func (r *InformationRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value sql.NullString
	query := r.db.Rebind(`SELECT value FROM information WHERE key = ?`)
	if err := r.db.GetContext(ctx, &value, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get information %s: %w", key, err)
	}
	return value.String, true, nil
}

// List returns all metadata ordered by key.
func (r *InformationRepository) List(ctx context.Context) ([]models.Information, error) {
	var items []models.Information
	if err := r.db.SelectContext(ctx, &items, `SELECT key, COALESCE(value, '') AS value FROM information ORDER BY key`); err != nil {
		return nil, fmt.Errorf("list information: %w", err)
	}
	return items, nil
}

// CreateIfAbsent inserts key unless it already exists.
func (r *InformationRepository) CreateIfAbsent(ctx context.Context, exec sqlx.ExtContext, key, value string) error {
	target := execOr(exec, r.db)
	query := target.Rebind(`INSERT INTO information (key, value) VALUES (?, ?) ON CONFLICT (key) DO NOTHING`)
	if _, err := target.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("create information %s: %w", key, err)
	}
	return nil
}

// Upsert writes key, replacing any existing value.
func (r *InformationRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, key, value string) error {
	target := execOr(exec, r.db)
	query := target.Rebind(`INSERT INTO information (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`)
	if _, err := target.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("upsert information %s: %w", key, err)
	}
	return nil
}
