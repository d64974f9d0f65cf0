// Package db wires the PostgreSQL connection, migrations, and repositories
// behind a single manager. Repositories are handed out per database handle
// so a service can bind them to *sql.DB or to an open transaction.
package db

import (
	"context"
	"database/sql"

	"github.com/carebridge/sharelink/internal/dbx"
	"github.com/carebridge/sharelink/internal/server/repositories/artifacts"
	"github.com/carebridge/sharelink/internal/server/repositories/events"
	"github.com/carebridge/sharelink/internal/server/repositories/links"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Links(h dbx.DBTX) links.Repository
	Artifacts(h dbx.DBTX) artifacts.Repository
	Events(h dbx.DBTX) events.Repository
}
