package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/exporter3/internal/exporter/models"
	"github.com/dmitrijs2005/exporter3/internal/exporter/repositories/repomanager"
)

// RecordService is the read side of the record store.
type RecordService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewRecordService(db *sql.DB, rm repomanager.RepositoryManager) *RecordService {
	return &RecordService{db: db, repomanager: rm}
}

func (s *RecordService) GetRecord(ctx context.Context, uploadID string) (*models.UploadRecord, error) {
	return s.repomanager.Records(s.db).Get(ctx, uploadID)
}
