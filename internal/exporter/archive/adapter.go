// Package archive stores exported artifacts: bytes in the object store, one
// annotated catalog entity per artifact, grouped in dated folders per app.
// Every write is create-if-absent, so repeated or concurrent calls for the
// same entry converge on a single live entity.
package archive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/exporter3/internal/common"
	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/catalog"
	"github.com/dmitrijs2005/exporter3/internal/exporter/storage"
	"github.com/dmitrijs2005/exporter3/internal/logging"
	"github.com/dmitrijs2005/exporter3/internal/timex"
)

// DateFolder names the dated folder for an export at t.
func DateFolder(t time.Time, loc *time.Location) string {
	return timex.DateFolder(t, loc)
}

// EntryName names the archive entry of an upload.
func EntryName(uploadID, filename string) string {
	return uploadID + "-" + filename
}

// ObjectKey is the object-store key of an entry: {appId}/{dateFolder}/{entryName}.
// The parts are joined verbatim; callers check them with ValidateSegment.
func ObjectKey(appID, dateFolder, entryName string) string {
	return appID + "/" + dateFolder + "/" + entryName
}

// ValidateSegment rejects values that cannot be used as a single key segment:
// empty values, "." and "..", and values containing a path separator.
func ValidateSegment(kind, v string) error {
	if v == "" || v == "." || v == ".." || strings.ContainsAny(v, `/\`) {
		return fmt.Errorf("%w: %s %q is not a valid archive name", common.ErrInvalidMessage, kind, v)
	}
	return nil
}

type Adapter struct {
	catalog catalog.Repository
	store   storage.ObjectStore
	bucket  string
	logger  logging.Logger
}

func NewAdapter(cat catalog.Repository, store storage.ObjectStore, bucket string, l logging.Logger) *Adapter {
	return &Adapter{catalog: cat, store: store, bucket: bucket, logger: l.With("module", "archive")}
}

// PutArtifact ensures the dated folder exists and creates the entry under it
// unless one with the same name is already live, in which case the existing
// entry's locator is returned and nothing is overwritten. Losing an insert
// race to another writer is also reported as success with the winner's
// locator.
func (a *Adapter) PutArtifact(ctx context.Context, appID, dateFolder, entryName string, body []byte,
	contentType string, annotations models.Annotations) (models.ArchiveLocator, error) {

	for _, part := range [][2]string{{"app id", appID}, {"date folder", dateFolder}, {"entry name", entryName}} {
		if err := ValidateSegment(part[0], part[1]); err != nil {
			return models.ArchiveLocator{}, err
		}
	}

	folder, err := a.catalog.EnsureFolder(ctx, appID, dateFolder)
	if err != nil {
		return models.ArchiveLocator{}, upstream("ensure folder", err)
	}

	existing, err := a.catalog.LookupChild(ctx, folder.ID, entryName)
	switch {
	case err == nil:
		a.logger.Debug(ctx, "entry already present", "folder", dateFolder, "entry", entryName, "entry_id", existing.ID)
		return existing.Locator(), nil
	case !errors.Is(err, common.ErrorNotFound):
		return models.ArchiveLocator{}, upstream("lookup entry", err)
	}

	key := ObjectKey(appID, dateFolder, entryName)
	err = a.store.Put(ctx, a.bucket, key, &storage.Object{
		Body:        body,
		ContentType: contentType,
		Metadata:    annotations.Flatten(),
	})
	if err != nil {
		return models.ArchiveLocator{}, err
	}

	entry, created, err := a.catalog.InsertEntry(ctx, &models.ArchiveEntry{
		FolderID:    folder.ID,
		AppID:       appID,
		Name:        entryName,
		ContentType: contentType,
		Bucket:      a.bucket,
		Key:         key,
		Annotations: annotations,
	})
	if err != nil {
		return models.ArchiveLocator{}, upstream("insert entry", err)
	}
	if !created {
		a.logger.Info(ctx, "concurrent writer created entry first", "entry", entryName, "entry_id", entry.ID)
	}
	return entry.Locator(), nil
}

// Lookup returns the live entry behind loc, or common.ErrorNotFound if the
// entry was deleted.
func (a *Adapter) Lookup(ctx context.Context, loc models.ArchiveLocator) (*models.ArchiveEntry, error) {
	if loc.IsZero() {
		return nil, common.ErrorNotFound
	}
	e, err := a.catalog.GetEntry(ctx, loc.EntryID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, upstream("get entry", err)
	}
	return e, nil
}

// Delete removes the entry behind loc together with its bytes.
func (a *Adapter) Delete(ctx context.Context, loc models.ArchiveLocator) error {
	if err := a.catalog.DeleteEntry(ctx, loc.EntryID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return upstream("delete entry", err)
	}
	if loc.Key != "" {
		if err := a.store.Delete(ctx, loc.Bucket, loc.Key); err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}
	}
	a.logger.Info(ctx, "entry deleted", "entry_id", loc.EntryID)
	return nil
}

func upstream(op string, err error) error {
	if errors.Is(err, common.ErrTransientUpstream) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", common.ErrTransientUpstream, op, err)
}
