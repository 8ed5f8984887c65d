package memory

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/exporter3/internal/common"
	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/catalog"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/participants"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/records"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/schedules"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/versions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ records.Repository      = (*Records)(nil)
	_ versions.Repository     = (*Versions)(nil)
	_ participants.Repository = (*Participants)(nil)
	_ schedules.Repository    = (*Schedules)(nil)
	_ catalog.Repository      = (*Catalog)(nil)
)

func TestRecords(t *testing.T) {
	ctx := context.Background()
	r := NewStore().Records()

	rec := &models.UploadRecord{UploadID: "u1", UserMetadata: models.Metadata{{Key: "k", Value: "v"}}}
	require.NoError(t, r.Create(ctx, rec))
	assert.ErrorIs(t, r.Create(ctx, rec), common.ErrAlreadyExists)

	now := time.Now()
	loc := models.ArchiveLocator{EntryID: "e"}
	require.NoError(t, r.MarkExported(ctx, "u1", now, loc))
	assert.ErrorIs(t, r.MarkExported(ctx, "nope", now, loc), common.ErrorNotFound)

	got, err := r.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.Exported)
	assert.Equal(t, loc, got.Locator)

	got.UserMetadata[0].Value = "mutated"
	again, _ := r.Get(ctx, "u1")
	assert.Equal(t, "v", again.UserMetadata[0].Value)
}

func TestVersions_ContiguousAndAsOf(t *testing.T) {
	ctx := context.Background()
	v := NewStore().Versions()

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		got, err := v.Append(ctx, &models.ParticipantVersion{HealthCode: "hc", CreatedOn: t0.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), got.Version)
	}

	cur, err := v.CurrentVersion(ctx, "hc", t0.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), cur.Version)

	_, err = v.CurrentVersion(ctx, "hc", t0.Add(-time.Second))
	assert.ErrorIs(t, err, common.ErrLedgerInconsistency)

	_, err = v.Get(ctx, "hc", 4)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestCatalog_InsertIsCreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	c := NewStore().Catalog()

	f1, err := c.EnsureFolder(ctx, "api", "2024-05-02")
	require.NoError(t, err)
	f2, err := c.EnsureFolder(ctx, "api", "2024-05-02")
	require.NoError(t, err)
	assert.Equal(t, f1.ID, f2.ID)

	e1, created, err := c.InsertEntry(ctx, &models.ArchiveEntry{FolderID: f1.ID, AppID: "api", Name: "n"})
	require.NoError(t, err)
	assert.True(t, created)

	e2, created, err := c.InsertEntry(ctx, &models.ArchiveEntry{FolderID: f1.ID, AppID: "api", Name: "n"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, e1.ID, e2.ID)

	require.NoError(t, c.DeleteEntry(ctx, e1.ID))
	assert.ErrorIs(t, c.DeleteEntry(ctx, e1.ID), common.ErrorNotFound)
	assert.Empty(t, c.Entries("api"))
}
