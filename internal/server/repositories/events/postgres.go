// Package events provides the PostgreSQL-backed append-only audit trail.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/carebridge/sharelink/internal/dbx"
	"github.com/carebridge/sharelink/internal/server/models"
)

// PostgresRepository implements audit event storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, event *models.AccessEvent) error {
	var detail any
	if len(event.Detail) > 0 {
		b, err := json.Marshal(event.Detail)
		if err != nil {
			return fmt.Errorf("detail marshal error: %w", err)
		}
		detail = b
	}

	query := `
		INSERT INTO access_events (id, link_id, event_type, occurred_at,
			remote_addr, user_agent, location, recipient, actor_id, actor_name, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.LinkID, event.Type, event.OccurredAt,
		event.RemoteAddr, event.UserAgent, event.Location, event.Recipient,
		event.ActorID, event.ActorName, detail)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByLink(ctx context.Context, linkID string) ([]*models.AccessEvent, error) {
	query := `
		SELECT id, link_id, event_type, occurred_at,
			remote_addr, user_agent, location, recipient, actor_id, actor_name, detail
		FROM access_events WHERE link_id=$1
		ORDER BY occurred_at
	`
	rows, err := r.db.QueryContext(ctx, query, linkID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.AccessEvent
	for rows.Next() {
		var (
			e      models.AccessEvent
			detail sql.Null[[]byte]
		)
		if err := rows.Scan(
			&e.ID, &e.LinkID, &e.Type, &e.OccurredAt,
			&e.RemoteAddr, &e.UserAgent, &e.Location, &e.Recipient,
			&e.ActorID, &e.ActorName, &detail,
		); err != nil {
			return nil, err
		}
		if detail.Valid && len(detail.V) > 0 {
			if err := json.Unmarshal(detail.V, &e.Detail); err != nil {
				return nil, fmt.Errorf("detail unmarshal error: %w", err)
			}
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
