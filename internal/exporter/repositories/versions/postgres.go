package versions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

const selectColumns = `health_code, app_id, version, sharing_scope, created_on, modified_on`

func scanVersion(row *sql.Row) (*models.ParticipantVersion, error) {
	var (
		v     models.ParticipantVersion
		scope string
	)
	if err := row.Scan(&v.HealthCode, &v.AppID, &v.Version, &scope, &v.CreatedOn, &v.ModifiedOn); err != nil {
		return nil, err
	}
	parsed, err := models.ParseSharingScope(scope)
	if err != nil {
		return nil, err
	}
	v.SharingScope = parsed
	return &v, nil
}

// CurrentVersion returns the highest version for healthCode created at or
// before asOf. A participant without any such version is a ledger
// inconsistency; the returned error matches both common.ErrLedgerInconsistency
// and common.ErrorNotFound.
func (r *PostgresRepository) CurrentVersion(ctx context.Context, healthCode string, asOf time.Time) (*models.ParticipantVersion, error) {
	query := `SELECT ` + selectColumns + ` FROM participant_versions
		WHERE health_code = $1 AND created_on <= $2
		ORDER BY version DESC
		LIMIT 1`

	v, err := scanVersion(r.db.QueryRowContext(ctx, query, healthCode, asOf))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %w", common.ErrLedgerInconsistency, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}

// Append records a new version for v.HealthCode, numbered one past the
// current maximum (1 for a new participant). Two concurrent appends for the
// same participant collide on the primary key; the loser gets
// common.ErrAlreadyExists and may retry.
func (r *PostgresRepository) Append(ctx context.Context, v *models.ParticipantVersion) (*models.ParticipantVersion, error) {
	createdOn := v.CreatedOn
	if createdOn.IsZero() {
		createdOn = time.Now().UTC()
	}

	query := `
		INSERT INTO participant_versions (health_code, version, app_id, sharing_scope, created_on, modified_on)
		SELECT $1, COALESCE(MAX(version), 0) + 1, $2, $3, $4, $4
		FROM participant_versions
		WHERE health_code = $1
		RETURNING version
	`
	out := *v
	out.CreatedOn = createdOn
	out.ModifiedOn = createdOn
	err := r.db.QueryRowContext(ctx, query, v.HealthCode, v.AppID, string(v.SharingScope), createdOn).Scan(&out.Version)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &out, nil
}

// Get returns one specific version. Returns common.ErrorNotFound when the
// version is not (yet) visible.
func (r *PostgresRepository) Get(ctx context.Context, healthCode string, version int64) (*models.ParticipantVersion, error) {
	query := `SELECT ` + selectColumns + ` FROM participant_versions
		WHERE health_code = $1 AND version = $2`

	v, err := scanVersion(r.db.QueryRowContext(ctx, query, healthCode, version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return v, nil
}
