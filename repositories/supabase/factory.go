package supabase

import (
	"fmt"

	"github.com/relife/service-api/dataapi"
	"github.com/relife/service-api/models"
	"github.com/relife/service-api/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory creates repositories on top of data API handles
type RepositoryFactory struct {
	handles *dataapi.Factory
	bucket  string
	logger  *zap.Logger
}

// NewRepositoryFactory creates a new repository factory
func NewRepositoryFactory(handles *dataapi.Factory, bucket string, logger *zap.Logger) *RepositoryFactory {
	return &RepositoryFactory{
		handles: handles,
		bucket:  bucket,
		logger:  logger,
	}
}

// ForUser returns repositories that act with the identity's own credential
func (f *RepositoryFactory) ForUser(identity *models.AuthenticatedIdentity) (*repositories.UserRepositories, error) {
	handle, err := f.handles.ScopedHandle(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to create scoped handle: %w", err)
	}

	return &repositories.UserRepositories{
		ReportRequests: NewReportRequestRepository(handle, f.logger),
		Files:          NewFileRepository(handle, f.bucket, f.logger),
	}, nil
}

// ForService returns repositories that act with the service key
func (f *RepositoryFactory) ForService() *repositories.ServiceRepositories {
	return &repositories.ServiceRepositories{
		PrivateRecords: NewPrivateRecordRepository(f.handles.ServiceHandle(), f.logger),
	}
}
