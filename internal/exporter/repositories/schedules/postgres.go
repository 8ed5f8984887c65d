package schedules

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/exporter3/internal/common"
	"github.com/dmitrijs2005/exporter3/internal/dbx"
	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// ResolveInstance returns the schedule context of instanceGUID within appID,
// or common.ErrorNotFound.
func (r *PostgresRepository) ResolveInstance(ctx context.Context, appID, instanceGUID string) (*models.ScheduleContext, error) {
	query := `SELECT instance_guid, assessment_guid, assessment_id, assessment_revision, assessment_instance_guid,
			session_instance_guid, session_guid, session_instance_start_day, session_instance_end_day,
			session_start_event_id, time_window_guid, schedule_guid, schedule_modified_on
		FROM scheduled_instances
		WHERE app_id = $1 AND instance_guid = $2`

	var s models.ScheduleContext
	err := r.db.QueryRowContext(ctx, query, appID, instanceGUID).Scan(
		&s.InstanceGUID, &s.AssessmentGUID, &s.AssessmentID, &s.AssessmentRevision, &s.AssessmentInstanceGUID,
		&s.SessionInstanceGUID, &s.SessionGUID, &s.SessionInstanceStartDay, &s.SessionInstanceEndDay,
		&s.SessionStartEventID, &s.TimeWindowGUID, &s.ScheduleGUID, &s.ScheduleModifiedOn,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &s, nil
}
