package schedules

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/exporter3/internal/common"
	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resolveQ = `(?s)^SELECT\s+instance_guid,.*FROM\s+scheduled_instances\s+WHERE\s+app_id\s*=\s*\$1\s+AND\s+instance_guid\s*=\s*\$2$`

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func TestResolveInstance_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	modified := time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(resolveQ).
		WithArgs("api", "inst-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"instance_guid", "assessment_guid", "assessment_id", "assessment_revision", "assessment_instance_guid",
			"session_instance_guid", "session_guid", "session_instance_start_day", "session_instance_end_day",
			"session_start_event_id", "time_window_guid", "schedule_guid", "schedule_modified_on",
		}).AddRow("inst-1", "ag", "aid", 5, "inst-1", "si", "sg", 0, 6, "enrollment", "tw", "sched", modified))

	got, err := repo.ResolveInstance(context.Background(), "api", "inst-1")
	require.NoError(t, err)

	want := &models.ScheduleContext{
		InstanceGUID: "inst-1", AssessmentGUID: "ag", AssessmentID: "aid", AssessmentRevision: 5,
		AssessmentInstanceGUID: "inst-1", SessionInstanceGUID: "si", SessionGUID: "sg",
		SessionInstanceStartDay: 0, SessionInstanceEndDay: 6, SessionStartEventID: "enrollment",
		TimeWindowGUID: "tw", ScheduleGUID: "sched", ScheduleModifiedOn: modified,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("schedule mismatch (-want +got):\n%s", diff)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveInstance_Errors(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(resolveQ).WithArgs("api", "missing").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(resolveQ).WithArgs("api", "x").WillReturnError(errors.New("db down"))

	_, err := repo.ResolveInstance(context.Background(), "api", "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.ResolveInstance(context.Background(), "api", "x")
	assert.EqualError(t, err, "db error: db down")
}
