package supabase

import (
	"context"
	"fmt"

	"github.com/relife/service-api/dataapi"
	"github.com/relife/service-api/models"
	"github.com/relife/service-api/repositories"
	"go.uber.org/zap"
)

// PrivateRecordRepository implements the repositories.PrivateRecordRepository interface
type PrivateRecordRepository struct {
	handle *dataapi.ServiceHandle
	logger *zap.Logger
}

// NewPrivateRecordRepository creates a new private record repository
func NewPrivateRecordRepository(handle *dataapi.ServiceHandle, logger *zap.Logger) repositories.PrivateRecordRepository {
	return &PrivateRecordRepository{
		handle: handle,
		logger: logger,
	}
}

// List retrieves every row of the private table
func (r *PrivateRecordRepository) List(ctx context.Context) ([]models.PrivateRecord, error) {
	rows := []models.PrivateRecord{}
	if err := r.handle.Select(ctx, models.PrivateTableName, nil, &rows); err != nil {
		return nil, fmt.Errorf("failed to list private records: %w", err)
	}
	if rows == nil {
		rows = []models.PrivateRecord{}
	}

	r.logger.Debug("private records listed", zap.Int("rows", len(rows)))
	return rows, nil
}
