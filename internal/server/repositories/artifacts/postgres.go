// Package artifacts provides the PostgreSQL-backed store of encrypted
// artifact references (storage keys, never URLs).
package artifacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carebridge/sharelink/internal/common"
	"github.com/carebridge/sharelink/internal/dbx"
	"github.com/carebridge/sharelink/internal/server/models"
)

// PostgresRepository implements artifact reference storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateBatch(ctx context.Context, items []*models.Artifact) error {
	query := `
		INSERT INTO link_artifacts (link_id, role, storage_key, content_type, byte_size)
		VALUES ($1, $2, $3, $4, $5);
	`
	for _, a := range items {
		if _, err := r.db.ExecContext(ctx, query,
			a.LinkID, a.Role, a.StorageKey, a.ContentType, a.ByteSize); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) GetBundle(ctx context.Context, linkID string) (*models.Artifact, error) {
	query := `
		SELECT link_id, role, storage_key, content_type, byte_size
		FROM link_artifacts WHERE link_id=$1 AND role=$2
	`
	var a models.Artifact
	err := r.db.QueryRowContext(ctx, query, linkID, models.RoleBundle).
		Scan(&a.LinkID, &a.Role, &a.StorageKey, &a.ContentType, &a.ByteSize)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &a, nil
}

func (r *PostgresRepository) ListByLink(ctx context.Context, linkID string) ([]*models.Artifact, error) {
	query := `
		SELECT link_id, role, storage_key, content_type, byte_size
		FROM link_artifacts WHERE link_id=$1
		ORDER BY CASE WHEN role = 'bundle' THEN 0 ELSE 1 END, role
	`
	rows, err := r.db.QueryContext(ctx, query, linkID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Artifact
	for rows.Next() {
		var a models.Artifact
		if err := rows.Scan(&a.LinkID, &a.Role, &a.StorageKey, &a.ContentType, &a.ByteSize); err != nil {
			return nil, err
		}
		result = append(result, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
