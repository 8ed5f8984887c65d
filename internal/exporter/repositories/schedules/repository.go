// Package schedules resolves scheduled-session instances referenced by
// uploads.
package schedules

import (
	"context"

	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
)

type Repository interface {
	ResolveInstance(ctx context.Context, appID, instanceGUID string) (*models.ScheduleContext, error)
}
