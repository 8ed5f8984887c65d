package participants

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

// GetSharingScope reads the participant's scope as it is right now.
func (r *PostgresRepository) GetSharingScope(ctx context.Context, healthCode string) (models.SharingScope, error) {
	query := `SELECT sharing_scope FROM participants WHERE health_code = $1`

	var scope string
	if err := r.db.QueryRowContext(ctx, query, healthCode).Scan(&scope); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return models.ParseSharingScope(scope)
}

// SetSharingScope creates or updates the participant row.
func (r *PostgresRepository) SetSharingScope(ctx context.Context, healthCode, appID string, scope models.SharingScope) error {
	query := `
		INSERT INTO participants (health_code, app_id, sharing_scope, modified_on)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (health_code)
		DO UPDATE SET sharing_scope = EXCLUDED.sharing_scope, modified_on = EXCLUDED.modified_on
	`
	res, err := r.db.ExecContext(ctx, query, healthCode, appID, string(scope))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}
