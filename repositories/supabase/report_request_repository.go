package supabase

import (
	"context"
	"fmt"

	"github.com/relife/service-api/dataapi"
	"github.com/relife/service-api/models"
	"github.com/relife/service-api/repositories"
	"go.uber.org/zap"
)

// ReportRequestRepository implements the repositories.ReportRequestRepository interface.
// It only accepts a scoped handle so Row Level Security always applies.
type ReportRequestRepository struct {
	handle *dataapi.ScopedHandle
	logger *zap.Logger
}

// NewReportRequestRepository creates a new report request repository
func NewReportRequestRepository(handle *dataapi.ScopedHandle, logger *zap.Logger) repositories.ReportRequestRepository {
	return &ReportRequestRepository{
		handle: handle,
		logger: logger,
	}
}

// Create inserts a report request
func (r *ReportRequestRepository) Create(ctx context.Context, req *models.ReportRequest) ([]*models.ReportRequest, error) {
	var rows []*models.ReportRequest
	if err := r.handle.Insert(ctx, req.TableName(), req, &rows); err != nil {
		return nil, fmt.Errorf("failed to create report request: %w", err)
	}

	r.logger.Debug("report request created", zap.String("user_id", req.UserID), zap.Int("rows", len(rows)))
	return rows, nil
}

// ListByUserID retrieves the report requests owned by userID
func (r *ReportRequestRepository) ListByUserID(ctx context.Context, userID string) ([]*models.ReportRequest, error) {
	rows := []*models.ReportRequest{}
	filters := []dataapi.Filter{dataapi.Eq("user_id", userID)}

	if err := r.handle.Select(ctx, models.ReportRequest{}.TableName(), filters, &rows); err != nil {
		return nil, fmt.Errorf("failed to list report requests: %w", err)
	}
	if rows == nil {
		rows = []*models.ReportRequest{}
	}

	return rows, nil
}
