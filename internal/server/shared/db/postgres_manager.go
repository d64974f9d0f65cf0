package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/carebridge/sharelink/internal/dbx"
	"github.com/carebridge/sharelink/internal/server/migrations"
	"github.com/carebridge/sharelink/internal/server/repositories/artifacts"
	"github.com/carebridge/sharelink/internal/server/repositories/events"
	"github.com/carebridge/sharelink/internal/server/repositories/links"
)

type PostgresRepositoryManager struct {
	db *sql.DB
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Links(h dbx.DBTX) links.Repository {
	return links.NewPostgresRepository(h)
}

func (m *PostgresRepositoryManager) Artifacts(h dbx.DBTX) artifacts.Repository {
	return artifacts.NewPostgresRepository(h)
}

func (m *PostgresRepositoryManager) Events(h dbx.DBTX) events.Repository {
	return events.NewPostgresRepository(h)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &PostgresRepositoryManager{db: db}

	if err := m.RunMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
