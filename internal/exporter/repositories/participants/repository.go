// Package participants stores each participant's current sharing scope.
package participants

import (
	"context"

	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
)

type Repository interface {
	GetSharingScope(ctx context.Context, healthCode string) (models.SharingScope, error)
	SetSharingScope(ctx context.Context, healthCode, appID string, scope models.SharingScope) error
}
