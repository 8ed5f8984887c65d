package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/exporter3/internal/common"
	"github.com/dmitrijs2005/exporter3/internal/exporter/archive"
	"github.com/dmitrijs2005/exporter3/internal/exporter/metadata"
	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/repomanager"
	"github.com/dmitrijs2005/exporter3/internal/exporter/storage"
	"github.com/dmitrijs2005/exporter3/internal/logging"
	"go.opentelemetry.io/otel/metric"
)

// Decrypter unwraps encrypted payloads with the destination app's key.
type Decrypter interface {
	Decrypt(appID string, ciphertext []byte) ([]byte, error)
}

// Archive is what the orchestrator needs from the archive adapter.
type Archive interface {
	PutArtifact(ctx context.Context, appID, dateFolder, entryName string, body []byte,
		contentType string, annotations models.Annotations) (models.ArchiveLocator, error)
	Lookup(ctx context.Context, loc models.ArchiveLocator) (*models.ArchiveEntry, error)
}

type ExportConfig struct {
	StagingBucket string
	Location      *time.Location
}

// ExportService sequences one export attempt per call. It keeps no state
// between calls: sharing scope, ledger and archive are read fresh each time.
type ExportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	archive     Archive
	staging     storage.ObjectStore
	keys        Decrypter
	config      ExportConfig
	logger      logging.Logger
	metrics     *exportMetrics
	now         func() time.Time
}

func NewExportService(db *sql.DB, rm repomanager.RepositoryManager, arch Archive, staging storage.ObjectStore,
	keys Decrypter, cfg ExportConfig, meter metric.Meter, l logging.Logger) (*ExportService, error) {

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	m, err := newExportMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("export metrics: %w", err)
	}
	return &ExportService{
		db:          db,
		repomanager: rm,
		archive:     arch,
		staging:     staging,
		keys:        keys,
		config:      cfg,
		logger:      l.With("module", "export"),
		metrics:     m,
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

// Export runs the export state machine for uploadID:
//
//  1. sharing-scope gate on the participant's current scope
//  2. redrive short-circuit when the recorded entry is still live
//  3. ledger join for the current participant version
//  4. staged bytes, decrypted when the upload is encrypted
//  5. metadata assembly
//  6. create-if-absent artifact write
//  7. mark exported, always last
//
// A NO_SHARING participant yields OutcomeSkippedByPolicy with no writes.
// Any error leaves the record as it was.
func (s *ExportService) Export(ctx context.Context, appID, uploadID string) (res *models.ExportResult, err error) {
	start := time.Now()
	l := s.logger.With("upload_id", uploadID, "app_id", appID)
	defer func() {
		outcome := "error"
		if res != nil {
			outcome = string(res.Outcome)
		}
		s.metrics.record(ctx, appID, outcome, err, time.Since(start))
		if err != nil {
			l.Error(ctx, "export failed", "error", err, "terminal", common.IsTerminal(err))
			return
		}
		l.Info(ctx, "export finished", "outcome", outcome, "entry_id", res.Locator.EntryID)
	}()

	rec, err := s.repomanager.Records(s.db).Get(ctx, uploadID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: upload %s: %w", common.ErrInvalidMessage, uploadID, err)
		}
		return nil, upstream("load record", err)
	}
	if rec.AppID != appID {
		return nil, fmt.Errorf("%w: upload %s belongs to app %q", common.ErrInvalidMessage, uploadID, rec.AppID)
	}
	if err := archive.ValidateSegment("app id", rec.AppID); err != nil {
		return nil, err
	}
	if err := archive.ValidateSegment("entry name", archive.EntryName(rec.UploadID, rec.Filename)); err != nil {
		return nil, err
	}

	scope, err := s.repomanager.Participants(s.db).GetSharingScope(ctx, rec.HealthCode)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: unknown participant %s", common.ErrLedgerInconsistency, logging.Redact(rec.HealthCode))
		}
		return nil, upstream("sharing scope", err)
	}
	if !scope.Shares() {
		l.Info(ctx, "participant does not share, skipping", "sharing_scope", string(scope))
		return &models.ExportResult{UploadID: uploadID, Outcome: models.OutcomeSkippedByPolicy}, nil
	}

	if rec.Exported && !rec.Locator.IsZero() {
		_, err := s.archive.Lookup(ctx, rec.Locator)
		switch {
		case err == nil:
			return &models.ExportResult{
				UploadID: uploadID, Outcome: models.OutcomeReused, Locator: rec.Locator, ExportedOn: derefTime(rec.ExportedOn),
			}, nil
		case errors.Is(err, common.ErrorNotFound):
			l.Info(ctx, "archived entry gone, re-exporting", "entry_id", rec.Locator.EntryID)
		default:
			return nil, err
		}
	}

	exportedOn := s.now()

	version, err := s.repomanager.Versions(s.db).CurrentVersion(ctx, rec.HealthCode, exportedOn)
	if err != nil {
		if errors.Is(err, common.ErrLedgerInconsistency) {
			return nil, err
		}
		return nil, upstream("participant version", err)
	}

	body, err := s.payload(ctx, rec)
	if err != nil {
		return nil, err
	}

	annotations := metadata.Assemble(rec, version, s.scheduleContext(ctx, l, rec), exportedOn)

	loc, err := s.archive.PutArtifact(ctx, rec.AppID,
		archive.DateFolder(exportedOn, s.config.Location),
		archive.EntryName(rec.UploadID, rec.Filename),
		body, rec.ContentType, annotations)
	if err != nil {
		return nil, err
	}

	if err := s.repomanager.Records(s.db).MarkExported(ctx, uploadID, exportedOn, loc); err != nil {
		return nil, upstream("mark exported", err)
	}

	return &models.ExportResult{UploadID: uploadID, Outcome: models.OutcomeExported, Locator: loc, ExportedOn: exportedOn}, nil
}

func (s *ExportService) payload(ctx context.Context, rec *models.UploadRecord) ([]byte, error) {
	obj, err := s.staging.Get(ctx, s.config.StagingBucket, rec.StagingKey)
	if err != nil {
		return nil, upstream("read staged upload", err)
	}
	if !rec.Encrypted {
		return obj.Body, nil
	}
	plain, err := s.keys.Decrypt(rec.AppID, obj.Body)
	if err != nil {
		return nil, err
	}
	return plain, nil
}

// scheduleContext resolves the upload's scheduled-session instance. Missing
// or unresolvable instances degrade to no schedule annotations.
func (s *ExportService) scheduleContext(ctx context.Context, l logging.Logger, rec *models.UploadRecord) *models.ScheduleContext {
	guid, ok := metadata.InstanceGUID(rec)
	if !ok {
		return nil
	}
	sched, err := s.repomanager.Schedules(s.db).ResolveInstance(ctx, rec.AppID, guid)
	if err != nil {
		l.Warn(ctx, "schedule context unavailable", "instance_guid", guid, "error", err)
		return nil
	}
	return sched
}

func upstream(op string, err error) error {
	if errors.Is(err, common.ErrTransientUpstream) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", common.ErrTransientUpstream, op, err)
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
