// Package versions is the append-only participant version ledger.
package versions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
)

type Repository interface {
	CurrentVersion(ctx context.Context, healthCode string, asOf time.Time) (*models.ParticipantVersion, error)
	Append(ctx context.Context, v *models.ParticipantVersion) (*models.ParticipantVersion, error)
	Get(ctx context.Context, healthCode string, version int64) (*models.ParticipantVersion, error)
}
