package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/exporter3/internal/dbx"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/catalog"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/participants"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/records"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/schedules"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/versions"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Records(db dbx.DBTX) records.Repository
	Versions(db dbx.DBTX) versions.Repository
	Participants(db dbx.DBTX) participants.Repository
	Schedules(db dbx.DBTX) schedules.Repository
	Catalog(db dbx.DBTX) catalog.Repository
}
