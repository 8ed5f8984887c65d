package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/exporter3/internal/common"
	"github.com/dmitrijs2005/exporter3/internal/dbx"
	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get loads the record for uploadID. Returns common.ErrorNotFound when absent.
func (r *PostgresRepository) Get(ctx context.Context, uploadID string) (*models.UploadRecord, error) {
	query := `SELECT upload_id, app_id, health_code, filename, content_type, encrypted, staging_key,
			client_info, user_metadata, sharing_scope_at_upload, uploaded_on,
			exported, exported_on, entry_id, folder_id, s3_bucket, s3_key
		FROM upload_records
		WHERE upload_id = $1`

	var (
		rec        models.UploadRecord
		meta       []byte
		scope      string
		exportedOn sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, uploadID).Scan(
		&rec.UploadID, &rec.AppID, &rec.HealthCode, &rec.Filename, &rec.ContentType, &rec.Encrypted, &rec.StagingKey,
		&rec.ClientInfo, &meta, &scope, &rec.UploadedOn,
		&rec.Exported, &exportedOn, &rec.Locator.EntryID, &rec.Locator.FolderID, &rec.Locator.Bucket, &rec.Locator.Key,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &rec.UserMetadata); err != nil {
			return nil, fmt.Errorf("decode user metadata: %w", err)
		}
	}
	rec.SharingScopeAtUpload = models.SharingScope(scope)
	if exportedOn.Valid {
		t := exportedOn.Time
		rec.ExportedOn = &t
	}
	return &rec, nil
}

// Create inserts a new, unexported record. Returns common.ErrAlreadyExists
// when uploadID is taken.
func (r *PostgresRepository) Create(ctx context.Context, rec *models.UploadRecord) error {
	meta, err := json.Marshal(rec.UserMetadata)
	if err != nil {
		return fmt.Errorf("encode user metadata: %w", err)
	}
	if rec.UserMetadata == nil {
		meta = []byte("[]")
	}

	query := `
		INSERT INTO upload_records (upload_id, app_id, health_code, filename, content_type, encrypted,
			staging_key, client_info, user_metadata, sharing_scope_at_upload, uploaded_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (upload_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		rec.UploadID, rec.AppID, rec.HealthCode, rec.Filename, rec.ContentType, rec.Encrypted,
		rec.StagingKey, rec.ClientInfo, meta, string(rec.SharingScopeAtUpload), rec.UploadedOn)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrAlreadyExists
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// MarkExported sets exported=true, overwrites exported_on and stores the
// archive locator. The transition is monotone: re-marking an exported
// record only refreshes the timestamp and locator.
func (r *PostgresRepository) MarkExported(ctx context.Context, uploadID string, exportedOn time.Time, loc models.ArchiveLocator) error {
	query := `
		UPDATE upload_records
		SET exported = true, exported_on = $2, entry_id = $3, folder_id = $4, s3_bucket = $5, s3_key = $6
		WHERE upload_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, uploadID, exportedOn, loc.EntryID, loc.FolderID, loc.Bucket, loc.Key)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
