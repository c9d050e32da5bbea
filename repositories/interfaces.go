package repositories

import (
	"context"
	"io"

	"github.com/relife/service-api/models"
)

// ReportRequestRepository handles report request data operations.
// Implementations are bound to one caller and subject to Row Level Security.
type ReportRequestRepository interface {
	// Create inserts a report request and returns the stored rows
	Create(ctx context.Context, req *models.ReportRequest) ([]*models.ReportRequest, error)

	// ListByUserID retrieves the report requests owned by userID
	ListByUserID(ctx context.Context, userID string) ([]*models.ReportRequest, error)
}

// PrivateRecordRepository reads the service-only private table
type PrivateRecordRepository interface {
	// List retrieves every row of the private table
	List(ctx context.Context) ([]models.PrivateRecord, error)
}

// FileRepository handles objects in the storage bucket
type FileRepository interface {
	// Upload stores body at objectPath and returns its public URL
	Upload(ctx context.Context, objectPath, contentType string, body io.Reader) (string, error)

	// ListByPrefix lists the objects stored under prefix
	ListByPrefix(ctx context.Context, prefix string) ([]*models.StorageFileInfo, error)
}

// UserRepositories holds the repositories bound to one caller's credential
type UserRepositories struct {
	ReportRequests ReportRequestRepository
	Files          FileRepository
}

// ServiceRepositories holds the repositories bound to the service key
type ServiceRepositories struct {
	PrivateRecords PrivateRecordRepository
}
