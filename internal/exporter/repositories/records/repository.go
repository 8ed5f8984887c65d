// Package records persists upload records and their export status.
package records

import (
	"context"
	"time"

	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
)

type Repository interface {
	Get(ctx context.Context, uploadID string) (*models.UploadRecord, error)
	Create(ctx context.Context, rec *models.UploadRecord) error
	MarkExported(ctx context.Context, uploadID string, exportedOn time.Time, loc models.ArchiveLocator) error
}
