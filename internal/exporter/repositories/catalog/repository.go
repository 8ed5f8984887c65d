// Package catalog is the structured-metadata side of the archive: dated
// folders and the annotated entity of each exported artifact.
package catalog

import (
	"context"

	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
)

type Repository interface {
	EnsureFolder(ctx context.Context, appID, name string) (*models.ArchiveFolder, error)
	LookupChild(ctx context.Context, folderID, name string) (*models.ArchiveEntry, error)
	GetEntry(ctx context.Context, id string) (*models.ArchiveEntry, error)
	InsertEntry(ctx context.Context, e *models.ArchiveEntry) (*models.ArchiveEntry, bool, error)
	DeleteEntry(ctx context.Context, id string) error
}
