package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/exporter3/internal/common"
	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/repomanager"
	"github.com/dmitrijs2005/exporter3/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionService_QueryFindsVisibleVersion(t *testing.T) {
	rm := repomanager.NewInMemoryRepositoryManager()
	svc := NewVersionService(nil, rm, 3, time.Millisecond, logging.Nop{})
	ctx := context.Background()

	_, err := svc.UpdateSharingScope(ctx, testApp, testHealth, models.SharingAllQualifiedResearchers)
	require.NoError(t, err)

	v, err := svc.Query(ctx, testHealth, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v.Version)
	assert.Equal(t, models.SharingAllQualifiedResearchers, v.SharingScope)
}

func TestVersionService_QueryTimesOut(t *testing.T) {
	svc := NewVersionService(nil, repomanager.NewInMemoryRepositoryManager(), 2, time.Millisecond, logging.Nop{})

	_, err := svc.Query(context.Background(), testHealth, 7)
	assert.ErrorIs(t, err, common.ErrPollTimeout)
}

func TestVersionService_UpdateSharingScopeAppendsContiguousVersions(t *testing.T) {
	rm := repomanager.NewInMemoryRepositoryManager()
	svc := NewVersionService(nil, rm, 1, 0, logging.Nop{})
	ctx := context.Background()

	for i, scope := range []models.SharingScope{models.SharingNone, models.SharingSponsorsAndPartners, models.SharingNone} {
		v, err := svc.UpdateSharingScope(ctx, testApp, testHealth, scope)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), v.Version)
	}

	scope, err := rm.Store().Participants().GetSharingScope(ctx, testHealth)
	require.NoError(t, err)
	assert.Equal(t, models.SharingNone, scope)
}

func TestVersionService_UpdateSharingScopeRunsInTransaction(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT\s+INTO\s+participants`).
		WithArgs(testHealth, testApp, "SPONSORS_AND_PARTNERS").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT\s+INTO\s+participant_versions`).
		WithArgs(testHealth, testApp, "SPONSORS_AND_PARTNERS", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(4)))
	mock.ExpectCommit()

	svc := NewVersionService(db, repomanager.NewPostgresRepositoryManager(), 1, 0, logging.Nop{})
	v, err := svc.UpdateSharingScope(context.Background(), testApp, testHealth, models.SharingSponsorsAndPartners)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v.Version)
	assert.False(t, v.CreatedOn.Before(now.Add(-time.Minute)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVersionService_UpdateSharingScopeRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT\s+INTO\s+participants`).WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	svc := NewVersionService(db, repomanager.NewPostgresRepositoryManager(), 1, 0, logging.Nop{})
	_, err = svc.UpdateSharingScope(context.Background(), testApp, testHealth, models.SharingNone)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordService_GetRecord(t *testing.T) {
	rm := repomanager.NewInMemoryRepositoryManager()
	ctx := context.Background()
	require.NoError(t, rm.Store().Records().Create(ctx, &models.UploadRecord{UploadID: "u1", AppID: testApp}))

	svc := NewRecordService(nil, rm)
	rec, err := svc.GetRecord(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, rec.Exported)

	_, err = svc.GetRecord(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
