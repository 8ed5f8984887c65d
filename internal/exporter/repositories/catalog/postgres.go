package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/exporter3/internal/common"
	"github.com/dmitrijs2005/exporter3/internal/dbx"
	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
	"github.com/google/uuid"
)

// newID issues catalog identities. Swapped in tests.
var newID = uuid.NewString

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureFolder creates the folder if absent and returns the live row.
// Concurrent first writers all observe the same folder.
func (r *PostgresRepository) EnsureFolder(ctx context.Context, appID, name string) (*models.ArchiveFolder, error) {
	insert := `
		INSERT INTO archive_folders (id, app_id, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (app_id, name) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, insert, newID(), appID, name); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	query := `SELECT id, app_id, name, created_on FROM archive_folders WHERE app_id = $1 AND name = $2`
	f := &models.ArchiveFolder{}
	if err := r.db.QueryRowContext(ctx, query, appID, name).Scan(&f.ID, &f.AppID, &f.Name, &f.CreatedOn); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

const entryColumns = `id, folder_id, app_id, name, content_type, s3_bucket, s3_key, annotations, created_on`

func scanEntry(row *sql.Row) (*models.ArchiveEntry, error) {
	var (
		e   models.ArchiveEntry
		raw []byte
	)
	if err := row.Scan(&e.ID, &e.FolderID, &e.AppID, &e.Name, &e.ContentType, &e.Bucket, &e.Key, &raw, &e.CreatedOn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := json.Unmarshal(raw, &e.Annotations); err != nil {
		return nil, fmt.Errorf("decode annotations: %w", err)
	}
	return &e, nil
}

// LookupChild finds the entry called name under folderID.
func (r *PostgresRepository) LookupChild(ctx context.Context, folderID, name string) (*models.ArchiveEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM archive_entries WHERE folder_id = $1 AND name = $2`
	return scanEntry(r.db.QueryRowContext(ctx, query, folderID, name))
}

// GetEntry loads an entry by identity.
func (r *PostgresRepository) GetEntry(ctx context.Context, id string) (*models.ArchiveEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM archive_entries WHERE id = $1`
	return scanEntry(r.db.QueryRowContext(ctx, query, id))
}

// InsertEntry stores e under a fresh identity. If an entry with the same
// name already exists in the folder, that entry is returned instead and the
// bool result is false.
func (r *PostgresRepository) InsertEntry(ctx context.Context, e *models.ArchiveEntry) (*models.ArchiveEntry, bool, error) {
	raw, err := json.Marshal(e.Annotations)
	if err != nil {
		return nil, false, fmt.Errorf("encode annotations: %w", err)
	}

	id := newID()
	query := `
		INSERT INTO archive_entries (id, folder_id, app_id, name, content_type, s3_bucket, s3_key, annotations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (folder_id, name) DO NOTHING
		RETURNING created_on
	`
	out := *e
	out.ID = id
	err = r.db.QueryRowContext(ctx, query, id, e.FolderID, e.AppID, e.Name, e.ContentType, e.Bucket, e.Key, raw).
		Scan(&out.CreatedOn)
	switch {
	case err == nil:
		return &out, true, nil
	case errors.Is(err, sql.ErrNoRows):
		existing, err := r.LookupChild(ctx, e.FolderID, e.Name)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	default:
		return nil, false, fmt.Errorf("db error: %w", err)
	}
}

// DeleteEntry removes an entry. Returns common.ErrorNotFound if it is
// already gone.
func (r *PostgresRepository) DeleteEntry(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM archive_entries WHERE id = $1`, id)
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
