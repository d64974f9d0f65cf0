// Package links provides the PostgreSQL-backed registry of issued share
// links and their lifecycle state.
package links

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carebridge/sharelink/internal/common"
	"github.com/carebridge/sharelink/internal/dbx"
	"github.com/carebridge/sharelink/internal/server/models"
)

// PostgresRepository implements link storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const linkColumns = `id, subject_id, subject_name, subject_phone, subject_email,
		issuer_id, issuer_name, label, state, created_at, expires_at,
		revoked_at, revoked_by, access_count, last_accessed_at`

func (r *PostgresRepository) Create(ctx context.Context, link *models.Link) error {
	query := `
		INSERT INTO links (id, subject_id, subject_name, subject_phone, subject_email,
			issuer_id, issuer_name, label, state, created_at, expires_at, access_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0);
	`
	_, err := r.db.ExecContext(ctx, query,
		link.ID, link.SubjectID, link.SubjectName, link.SubjectPhone, link.SubjectEmail,
		link.IssuerID, link.IssuerName, link.Label, link.State, link.CreatedAt, link.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE id=$1`
	link, err := scanLink(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return link, nil
}

func (r *PostgresRepository) ListBySubject(ctx context.Context, subjectID string) ([]*models.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE subject_id=$1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, link)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// RecordAccess relies on the database applying the single-row UPDATE
// atomically: concurrent accesses to the same link serialize on the row
// lock, so each request increments the counter by exactly one.
func (r *PostgresRepository) RecordAccess(ctx context.Context, id string, now time.Time) (int64, error) {
	query := `
		UPDATE links
		SET access_count = access_count + 1, last_accessed_at = $2
		WHERE id = $1 AND state = 'active' AND expires_at > $2
		RETURNING access_count;
	`
	var count int64
	err := r.db.QueryRowContext(ctx, query, id, now).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) MarkExpired(ctx context.Context, id string) error {
	query := `UPDATE links SET state='expired' WHERE id=$1 AND state='active';`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, id string, actorID string, at time.Time) error {
	query := `
		UPDATE links
		SET state='revoked', revoked_at=$2, revoked_by=$3
		WHERE id=$1 AND state <> 'revoked';
	`
	res, err := r.db.ExecContext(ctx, query, id, at, actorID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorAlreadyRevoked
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLink(row rowScanner) (*models.Link, error) {
	var (
		link           models.Link
		revokedAt      sql.NullTime
		lastAccessedAt sql.NullTime
	)
	err := row.Scan(
		&link.ID, &link.SubjectID, &link.SubjectName, &link.SubjectPhone, &link.SubjectEmail,
		&link.IssuerID, &link.IssuerName, &link.Label, &link.State, &link.CreatedAt,
		&link.ExpiresAt, &revokedAt, &link.RevokedBy, &link.AccessCount, &lastAccessedAt,
	)
	if err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		link.RevokedAt = &revokedAt.Time
	}
	if lastAccessedAt.Valid {
		link.LastAccessedAt = &lastAccessedAt.Time
	}
	return &link, nil
}
