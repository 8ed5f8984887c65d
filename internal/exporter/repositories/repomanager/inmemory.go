package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/exporter3/internal/dbx"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/catalog"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/memory"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/participants"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/records"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/schedules"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/versions"
)

// InMemoryRepositoryManager serves every repository from one memory.Store
// and ignores the DBTX handle it is given.
type InMemoryRepositoryManager struct {
	store *memory.Store
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) Records(dbx.DBTX) records.Repository {
	return m.store.Records()
}

func (m *InMemoryRepositoryManager) Versions(dbx.DBTX) versions.Repository {
	return m.store.Versions()
}

func (m *InMemoryRepositoryManager) Participants(dbx.DBTX) participants.Repository {
	return m.store.Participants()
}

func (m *InMemoryRepositoryManager) Schedules(dbx.DBTX) schedules.Repository {
	return m.store.Schedules()
}

func (m *InMemoryRepositoryManager) Catalog(dbx.DBTX) catalog.Repository {
	return m.store.Catalog()
}

// Store exposes the backing store for seeding.
func (m *InMemoryRepositoryManager) Store() *memory.Store {
	return m.store
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{store: memory.NewStore()}
}
