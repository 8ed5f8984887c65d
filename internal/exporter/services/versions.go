package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/exporter3/internal/dbx"
	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/repomanager"
	"github.com/dmitrijs2005/exporter3/internal/logging"
	"github.com/dmitrijs2005/exporter3/internal/pollx"
)

// VersionService serves the participant-version catalog and records
// consent changes on behalf of the participant-management collaborator.
type VersionService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	pollAttempts int
	pollDelay    time.Duration
	logger       logging.Logger
}

func NewVersionService(db *sql.DB, rm repomanager.RepositoryManager, attempts int, delay time.Duration, l logging.Logger) *VersionService {
	return &VersionService{
		db:           db,
		repomanager:  rm,
		pollAttempts: attempts,
		pollDelay:    delay,
		logger:       l.With("module", "versions"),
	}
}

// Query waits for version of healthCode to become visible. It gives up with
// common.ErrPollTimeout after the configured number of attempts.
func (s *VersionService) Query(ctx context.Context, healthCode string, version int64) (*models.ParticipantVersion, error) {
	repo := s.repomanager.Versions(s.db)
	return pollx.Until(ctx, s.pollAttempts, s.pollDelay, func(ctx context.Context) (*models.ParticipantVersion, error) {
		return repo.Get(ctx, healthCode, version)
	})
}

// UpdateSharingScope sets the participant's current scope and appends the
// matching ledger version in one transaction.
func (s *VersionService) UpdateSharingScope(ctx context.Context, appID, healthCode string, scope models.SharingScope) (*models.ParticipantVersion, error) {
	var out *models.ParticipantVersion
	fn := func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Participants(tx).SetSharingScope(ctx, healthCode, appID, scope); err != nil {
			return err
		}
		v, err := s.repomanager.Versions(tx).Append(ctx, &models.ParticipantVersion{
			HealthCode: healthCode, AppID: appID, SharingScope: scope,
		})
		if err != nil {
			return err
		}
		out = v
		return nil
	}

	var err error
	if s.db == nil {
		err = fn(ctx, nil)
	} else {
		err = dbx.WithTx(ctx, s.db, nil, fn)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "sharing scope updated", "health_code", logging.Redact(healthCode),
		"sharing_scope", string(scope), "version", out.Version)
	return out, nil
}
